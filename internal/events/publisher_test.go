package events

import (
	"encoding/json"
	"testing"

	"github.com/Jobly-Solutions/lente-ai-sub000/internal/config"
)

func TestNilPublisherIsSafe(t *testing.T) {
	var p *Publisher
	p.Publish(New(TypeChatTurn, "u1", "a1", nil))
	if err := p.Close(); err != nil {
		t.Fatalf("close nil publisher: %v", err)
	}
}

func TestDisabledConfigYieldsNilPublisher(t *testing.T) {
	p := NewPublisher(config.EventsConfig{Enabled: false}, config.NotifyConfig{SlackEnabled: false})
	if p != nil {
		t.Fatalf("expected nil publisher when both sinks are disabled")
	}
}

func TestEventEnvelope(t *testing.T) {
	evt := New(TypeAssignmentCreated, "u1", "r1", map[string]any{"agent_name": "Sales Bot"})
	if evt.ID == "" {
		t.Fatalf("expected generated event id")
	}
	if evt.Timestamp.IsZero() {
		t.Fatalf("expected timestamp")
	}

	data, err := json.Marshal(evt)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded Event
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded.Type != TypeAssignmentCreated || decoded.UserID != "u1" || decoded.AgentRef != "r1" {
		t.Fatalf("unexpected envelope: %+v", decoded)
	}
}

func TestSlackTextUsesAgentName(t *testing.T) {
	evt := New(TypeAssignmentRemoved, "u1", "r1", map[string]any{"agent_name": "Sales Bot"})
	if got := slackText(evt); got != "Agent Sales Bot unassigned from user u1" {
		t.Fatalf("unexpected slack text: %q", got)
	}
}
