package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// AppendMessage appends one transcript entry to the conversation keyed by
// (user_id, agent_ref, conversation_id), creating the record on first use.
// The append is a single upsert statement using json_insert, so concurrent
// calls for the same key (rapid double-submit) cannot lose updates the way a
// read-then-overwrite would.
func (s *Store) AppendMessage(ctx context.Context, userID, agentRef, conversationID string, msg Message) error {
	if strings.TrimSpace(userID) == "" || strings.TrimSpace(agentRef) == "" || strings.TrimSpace(conversationID) == "" {
		return fmt.Errorf("append message: empty conversation key")
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("append message: marshal: %w", err)
	}

	now := time.Now().UTC()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO conversations (user_id, agent_ref, conversation_id, messages, created_at, updated_at)
		VALUES (?, ?, ?, json_array(json(?)), ?, ?)
		ON CONFLICT(user_id, agent_ref, conversation_id) DO UPDATE SET
			messages = json_insert(conversations.messages, '$[#]', json(?)),
			updated_at = excluded.updated_at
	`, userID, agentRef, conversationID, string(payload), now, now, string(payload))
	if err != nil {
		return fmt.Errorf("append message to (%s, %s, %s): %w", userID, agentRef, conversationID, err)
	}
	return nil
}

// LatestConversation returns the most recently updated conversation for a
// (user, agent) pair, or ok=false when the pair has no history.
func (s *Store) LatestConversation(ctx context.Context, userID, agentRef string) (*ConversationRecord, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, agent_ref, conversation_id, messages, created_at, updated_at
		FROM conversations
		WHERE user_id = ? AND agent_ref = ?
		ORDER BY updated_at DESC, id DESC
		LIMIT 1
	`, userID, agentRef)
	return scanConversation(row)
}

// GetConversation returns one conversation by its full key.
func (s *Store) GetConversation(ctx context.Context, userID, agentRef, conversationID string) (*ConversationRecord, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, agent_ref, conversation_id, messages, created_at, updated_at
		FROM conversations
		WHERE user_id = ? AND agent_ref = ? AND conversation_id = ?
	`, userID, agentRef, conversationID)
	return scanConversation(row)
}

func scanConversation(row *sql.Row) (*ConversationRecord, bool, error) {
	var rec ConversationRecord
	var raw string
	err := row.Scan(&rec.ID, &rec.UserID, &rec.AgentRef, &rec.ConversationID, &raw, &rec.CreatedAt, &rec.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("scan conversation: %w", err)
	}
	if err := json.Unmarshal([]byte(raw), &rec.Messages); err != nil {
		return nil, false, fmt.Errorf("decode transcript: %w", err)
	}
	return &rec, true, nil
}
