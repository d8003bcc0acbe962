package bravilo

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestListAgents(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/agents" || r.Method != http.MethodGet {
			t.Fatalf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer test-token" {
			t.Fatalf("missing bearer token")
		}
		json.NewEncoder(w).Encode([]Agent{
			{ID: "a1", Name: "Sales Bot", Visibility: "public"},
			{ID: "a2", Name: "Legal Bot", Hidden: true},
		})
	}))
	defer srv.Close()

	c := NewClient("test-token", srv.URL, 0)
	agents, err := c.ListAgents(context.Background())
	if err != nil {
		t.Fatalf("list agents: %v", err)
	}
	if len(agents) != 2 || agents[0].ID != "a1" || agents[1].Hidden != true {
		t.Fatalf("unexpected agents: %+v", agents)
	}
}

func TestListAgentsDemoModeWithoutToken(t *testing.T) {
	c := NewClient("", "http://unreachable.invalid", time.Second)
	if !c.DemoMode() {
		t.Fatalf("expected demo mode without token")
	}
	agents, err := c.ListAgents(context.Background())
	if err != nil {
		t.Fatalf("demo listing should not fail: %v", err)
	}
	if len(agents) == 0 {
		t.Fatalf("expected fixed fallback agent set")
	}
}

func TestCreateAgentDemoModeFails(t *testing.T) {
	c := NewClient("", "", 0)
	if _, err := c.CreateAgent(context.Background(), &AgentInput{Name: "x"}); !errors.Is(err, ErrRemoteUnavailable) {
		t.Fatalf("expected ErrRemoteUnavailable, got %v", err)
	}
}

func TestQueryRoundTrip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/agents/a1/query" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		if body["query"] != "hola" || body["conversationId"] != "conv-1" {
			t.Fatalf("unexpected body: %v", body)
		}
		json.NewEncoder(w).Encode(QueryResponse{Answer: "buenas", ConversationID: "conv-1"})
	}))
	defer srv.Close()

	c := NewClient("tok", srv.URL, 0)
	resp, err := c.Query(context.Background(), "a1", "hola", "conv-1")
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if resp.Answer != "buenas" || resp.ConversationID != "conv-1" {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestServerErrorMapsToRemoteUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient("tok", srv.URL, 0)
	_, err := c.ListAgents(context.Background())
	if !errors.Is(err, ErrRemoteUnavailable) {
		t.Fatalf("expected ErrRemoteUnavailable, got %v", err)
	}
}

func TestNotFoundMapsToAgentNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	c := NewClient("tok", srv.URL, 0)
	_, err := c.GetAgent(context.Background(), "ghost")
	if !errors.Is(err, ErrAgentNotFound) {
		t.Fatalf("expected ErrAgentNotFound, got %v", err)
	}
}

func TestUnreachableHostMapsToRemoteUnavailable(t *testing.T) {
	c := NewClient("tok", "http://127.0.0.1:1", 500*time.Millisecond)
	_, err := c.ListAgents(context.Background())
	if !errors.Is(err, ErrRemoteUnavailable) {
		t.Fatalf("expected ErrRemoteUnavailable, got %v", err)
	}
}
