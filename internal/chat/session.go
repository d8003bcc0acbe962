// Package chat implements session resumption and turn persistence for agent
// conversations.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Jobly-Solutions/lente-ai-sub000/internal/bravilo"
	"github.com/Jobly-Solutions/lente-ai-sub000/internal/events"
	"github.com/Jobly-Solutions/lente-ai-sub000/internal/store"
)

// ErrUserRequired indicates OpenSession was called without a user identity.
// Anonymous callers must first mint one with AnonymousUserID.
var ErrUserRequired = errors.New("chat: user id required")

// RemoteQuerier is the slice of the Bravilo client the chat service needs.
type RemoteQuerier interface {
	Query(ctx context.Context, agentID, query, conversationID string) (*bravilo.QueryResponse, error)
}

// SessionState is what a chat UI needs to render on entry.
type SessionState struct {
	ConversationID string          `json:"conversation_id"`
	Messages       []store.Message `json:"messages"`
	Resumed        bool            `json:"resumed"`
	// PendingReply is true when the transcript ends with an unanswered user
	// message (a crash or reload between the two persistence phases). The UI
	// should show it as pending rather than assuming paired turns.
	PendingReply bool `json:"pending_reply"`
}

// TurnResult is the outcome of one send.
type TurnResult struct {
	ConversationID string        `json:"conversation_id"`
	UserMessage    store.Message `json:"user_message"`
	Assistant      store.Message `json:"assistant_message"`
}

// Service resumes and persists conversations against the local store and the
// remote agent directory.
type Service struct {
	store  *store.Store
	remote RemoteQuerier
	events *events.Publisher
}

func NewService(st *store.Store, remote RemoteQuerier, pub *events.Publisher) *Service {
	return &Service{store: st, remote: remote, events: pub}
}

// AnonymousUserID derives the synthetic user identity for an unauthenticated
// session. The token scopes the transcript to one browser session: resumption
// only ever matches the same token, never "any conversation for this agent",
// so anonymous sessions cannot read each other's threads. A caller that
// presents no token gets a fresh one (and therefore a fresh thread).
func AnonymousUserID(sessionToken string) (userID, token string) {
	token = strings.TrimSpace(sessionToken)
	if token == "" {
		token = uuid.NewString()
	}
	return "anonymous-" + token, token
}

// OpenSession loads the most recent conversation for (user, agent) and
// replays it. When the pair has no history it starts a fresh thread: the
// conversation id is the agent reference itself (one open thread per pair)
// and a welcome message is persisted so later opens replay it in order.
func (s *Service) OpenSession(ctx context.Context, userID, agentRef, agentName string) (*SessionState, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, ErrUserRequired
	}
	if strings.TrimSpace(agentRef) == "" {
		return nil, fmt.Errorf("open session: %w", store.ErrInvalidAgentRef)
	}

	rec, ok, err := s.store.LatestConversation(ctx, userID, agentRef)
	if err != nil {
		return nil, fmt.Errorf("open session: %w", err)
	}
	if ok && len(rec.Messages) > 0 {
		last := rec.Messages[len(rec.Messages)-1]
		return &SessionState{
			ConversationID: rec.ConversationID,
			Messages:       rec.Messages,
			Resumed:        true,
			PendingReply:   last.Role == store.RoleUser,
		}, nil
	}

	welcome := store.Message{
		ID:        uuid.NewString(),
		Role:      store.RoleAssistant,
		Content:   welcomeText(agentName),
		Timestamp: time.Now().UTC(),
	}
	if err := s.store.AppendMessage(ctx, userID, agentRef, agentRef, welcome); err != nil {
		return nil, fmt.Errorf("open session: persist welcome: %w", err)
	}
	return &SessionState{
		ConversationID: agentRef,
		Messages:       []store.Message{welcome},
	}, nil
}

// SendMessage runs one chat turn as two independent persistence phases: the
// user's message is stored before the remote call so a reload during a
// pending reply still shows it, then the assistant's reply is stored when it
// returns. A remote failure is recorded as an assistant-side error entry so
// the thread stays coherent on resume, and the typed error still propagates.
func (s *Service) SendMessage(ctx context.Context, userID, agentRef, conversationID, text string) (*TurnResult, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, ErrUserRequired
	}
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("send message: empty message")
	}
	if conversationID == "" {
		conversationID = agentRef
	}

	userMsg := store.Message{
		ID:        uuid.NewString(),
		Role:      store.RoleUser,
		Content:   text,
		Timestamp: time.Now().UTC(),
	}
	// The user's own turn must never be silently dropped: a failure here
	// aborts the send so the caller can retry or report.
	if err := s.store.AppendMessage(ctx, userID, agentRef, conversationID, userMsg); err != nil {
		return nil, fmt.Errorf("send message: persist user turn: %w", err)
	}

	resp, qerr := s.remote.Query(ctx, agentRef, text, conversationID)

	assistant := store.Message{
		ID:        uuid.NewString(),
		Role:      store.RoleAssistant,
		Timestamp: time.Now().UTC(),
	}
	if qerr != nil {
		assistant.Content = "The agent could not be reached. Your message was saved; please try again."
	} else {
		assistant.Content = resp.Answer
	}
	if err := s.store.AppendMessage(ctx, userID, agentRef, conversationID, assistant); err != nil {
		if qerr != nil {
			return nil, fmt.Errorf("send message: %v: persist error turn: %w", qerr, err)
		}
		return nil, fmt.Errorf("send message: persist assistant turn: %w", err)
	}

	s.events.Publish(events.New(events.TypeChatTurn, userID, agentRef, map[string]any{
		"conversation_id": conversationID,
		"failed":          qerr != nil,
	}))

	result := &TurnResult{
		ConversationID: conversationID,
		UserMessage:    userMsg,
		Assistant:      assistant,
	}
	if qerr != nil {
		return result, fmt.Errorf("send message: %w", qerr)
	}
	return result, nil
}

func welcomeText(agentName string) string {
	if strings.TrimSpace(agentName) == "" {
		return "Hello! How can I help you today?"
	}
	return fmt.Sprintf("Hello! I'm %s. How can I help you today?", agentName)
}
