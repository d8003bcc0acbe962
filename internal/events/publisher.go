// Package events provides the async audit event stream for admin actions.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/slack-go/slack"

	"github.com/Jobly-Solutions/lente-ai-sub000/internal/config"
)

// Event types emitted by the admin console.
const (
	TypeAssignmentCreated = "assignment.created"
	TypeAssignmentRemoved = "assignment.removed"
	TypeChatTurn          = "chat.turn"
	TypeAgentSwept        = "agent.swept"
)

// Event is the audit envelope published to the stream.
type Event struct {
	ID        string         `json:"id"`
	Type      string         `json:"type"`
	UserID    string         `json:"user_id,omitempty"`
	AgentRef  string         `json:"agent_ref,omitempty"`
	Detail    map[string]any `json:"detail,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// New creates an event envelope with id and timestamp filled in.
func New(eventType, userID, agentRef string, detail map[string]any) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		UserID:    userID,
		AgentRef:  agentRef,
		Detail:    detail,
		Timestamp: time.Now().UTC(),
	}
}

// Publisher fans audit events out to a Kafka topic and, for assignment
// changes, to a Slack channel. Delivery runs on a single dispatcher
// goroutine fed by a buffered channel; Publish never blocks the request
// path and drops on overflow.
type Publisher struct {
	writer       *kafka.Writer
	slackAPI     *slack.Client
	slackChannel string
	ch           chan Event
	done         chan struct{}
}

// NewPublisher builds a publisher from config. Returns nil when both sinks
// are disabled; a nil *Publisher is safe to use.
func NewPublisher(ev config.EventsConfig, nt config.NotifyConfig) *Publisher {
	if !ev.Enabled && !nt.SlackEnabled {
		return nil
	}
	p := &Publisher{
		ch:   make(chan Event, 256),
		done: make(chan struct{}),
	}
	if ev.Enabled {
		brokers := strings.Split(ev.KafkaBrokers, ",")
		for i := range brokers {
			brokers[i] = strings.TrimSpace(brokers[i])
		}
		p.writer = &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        ev.Topic,
			Balancer:     &kafka.LeastBytes{},
			RequiredAcks: kafka.RequireOne,
		}
	}
	if nt.SlackEnabled && nt.SlackToken != "" {
		p.slackAPI = slack.New(nt.SlackToken)
		p.slackChannel = nt.SlackChannel
	}
	return p
}

// Start runs the dispatcher until the context is cancelled or Close drains
// the queue. Should be run as a goroutine.
func (p *Publisher) Start(ctx context.Context) {
	if p == nil {
		return
	}
	defer close(p.done)
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-p.ch:
			if !ok {
				return
			}
			p.deliver(ctx, evt)
		}
	}
}

// Publish enqueues an event. Safe on a nil publisher; drops on overflow
// rather than stalling an admin request.
func (p *Publisher) Publish(evt Event) {
	if p == nil {
		return
	}
	select {
	case p.ch <- evt:
	default:
		fmt.Fprintf(os.Stderr, "events: queue full, dropped %s\n", evt.Type)
	}
}

// Close stops accepting events and waits for the dispatcher to drain.
func (p *Publisher) Close() error {
	if p == nil {
		return nil
	}
	close(p.ch)
	<-p.done
	if p.writer != nil {
		return p.writer.Close()
	}
	return nil
}

func (p *Publisher) deliver(ctx context.Context, evt Event) {
	if p.writer != nil {
		payload, err := json.Marshal(evt)
		if err == nil {
			wctx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err = p.writer.WriteMessages(wctx, kafka.Message{
				Key:   []byte(evt.Type),
				Value: payload,
			})
			cancel()
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "events: kafka publish failed: %v\n", err)
		}
	}
	if p.slackAPI != nil && isAssignmentEvent(evt.Type) {
		wctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		_, _, err := p.slackAPI.PostMessageContext(wctx, p.slackChannel,
			slack.MsgOptionText(slackText(evt), false))
		cancel()
		if err != nil {
			fmt.Fprintf(os.Stderr, "events: slack notify failed: %v\n", err)
		}
	}
}

func isAssignmentEvent(t string) bool {
	return t == TypeAssignmentCreated || t == TypeAssignmentRemoved
}

func slackText(evt Event) string {
	verb := "assigned to"
	if evt.Type == TypeAssignmentRemoved {
		verb = "unassigned from"
	}
	agent := evt.AgentRef
	if name, ok := evt.Detail["agent_name"].(string); ok && name != "" {
		agent = name
	}
	return fmt.Sprintf("Agent %s %s user %s", agent, verb, evt.UserID)
}
