// Package bravilo implements the HTTP client for the Bravilo agent API.
package bravilo

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ErrRemoteUnavailable indicates the Bravilo API was unreachable, timed out,
// or answered with a server-side error. Listing callers can fall back to the
// demo agent set; write callers must surface it.
var ErrRemoteUnavailable = errors.New("bravilo: remote unavailable")

// ErrAgentNotFound indicates the remote agent id does not resolve.
var ErrAgentNotFound = errors.New("bravilo: agent not found")

// Agent is an agent resource as the Bravilo API returns it.
type Agent struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Hidden      bool   `json:"hidden"`
	Visibility  string `json:"visibility,omitempty"`
	CreatedAt   string `json:"createdAt,omitempty"`
	UpdatedAt   string `json:"updatedAt,omitempty"`
}

// AgentInput is the payload for create/update calls.
type AgentInput struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Visibility  string `json:"visibility,omitempty"`
}

// QueryResponse is the result of one chat turn.
type QueryResponse struct {
	Answer         string `json:"answer"`
	ConversationID string `json:"conversationId,omitempty"`
}

// Client talks to the Bravilo API.
type Client struct {
	apiKey     string
	apiBase    string
	httpClient *http.Client
}

// NewClient creates a new Bravilo API client. An empty apiKey puts the client
// in demo mode: ListAgents serves a fixed fallback set and write operations
// fail with ErrRemoteUnavailable.
func NewClient(apiKey, apiBase string, timeout time.Duration) *Client {
	if apiBase == "" {
		apiBase = "https://app.braviloai.com/api"
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		apiKey:  apiKey,
		apiBase: strings.TrimSuffix(apiBase, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// DemoMode reports whether the client has no API token configured.
func (c *Client) DemoMode() bool {
	return c.apiKey == ""
}

// demoAgents is the fixed fallback set served when no token is configured.
// This is an explicit demo mode, not a silent failure.
var demoAgents = []Agent{
	{ID: "demo-assistant", Name: "Demo Assistant", Description: "General purpose demo agent", Visibility: "public"},
	{ID: "demo-support", Name: "Demo Support", Description: "Customer support demo agent", Visibility: "public"},
}

// DemoAgents returns a copy of the demo-mode fallback agent set.
func DemoAgents() []Agent {
	out := make([]Agent, len(demoAgents))
	copy(out, demoAgents)
	return out
}

// ListAgents returns all agents visible to the configured token.
// In demo mode it returns the fixed fallback set.
func (c *Client) ListAgents(ctx context.Context) ([]Agent, error) {
	if c.DemoMode() {
		return DemoAgents(), nil
	}
	var agents []Agent
	if err := c.do(ctx, http.MethodGet, "/agents", nil, &agents); err != nil {
		return nil, err
	}
	return agents, nil
}

// GetAgent fetches a single agent by remote id.
func (c *Client) GetAgent(ctx context.Context, id string) (*Agent, error) {
	if c.DemoMode() {
		for _, a := range demoAgents {
			if a.ID == id {
				copied := a
				return &copied, nil
			}
		}
		return nil, ErrAgentNotFound
	}
	var agent Agent
	if err := c.do(ctx, http.MethodGet, "/agents/"+id, nil, &agent); err != nil {
		return nil, err
	}
	return &agent, nil
}

// CreateAgent creates an agent on the remote directory.
func (c *Client) CreateAgent(ctx context.Context, in *AgentInput) (*Agent, error) {
	if c.DemoMode() {
		return nil, fmt.Errorf("create agent: demo mode has no write access: %w", ErrRemoteUnavailable)
	}
	var agent Agent
	if err := c.do(ctx, http.MethodPost, "/agents", in, &agent); err != nil {
		return nil, err
	}
	return &agent, nil
}

// UpdateAgent patches an agent on the remote directory.
func (c *Client) UpdateAgent(ctx context.Context, id string, in *AgentInput) (*Agent, error) {
	if c.DemoMode() {
		return nil, fmt.Errorf("update agent: demo mode has no write access: %w", ErrRemoteUnavailable)
	}
	var agent Agent
	if err := c.do(ctx, http.MethodPatch, "/agents/"+id, in, &agent); err != nil {
		return nil, err
	}
	return &agent, nil
}

// DeleteAgent deletes an agent on the remote directory.
func (c *Client) DeleteAgent(ctx context.Context, id string) error {
	if c.DemoMode() {
		return fmt.Errorf("delete agent: demo mode has no write access: %w", ErrRemoteUnavailable)
	}
	return c.do(ctx, http.MethodDelete, "/agents/"+id, nil, nil)
}

// Query sends one chat turn to an agent. The conversation id is optional;
// Bravilo opens a new thread when it is empty and echoes the id back.
func (c *Client) Query(ctx context.Context, agentID, query, conversationID string) (*QueryResponse, error) {
	if c.DemoMode() {
		// Canned echo so the demo console stays usable end to end.
		return &QueryResponse{
			Answer:         fmt.Sprintf("[demo] %s received: %s", agentID, query),
			ConversationID: conversationID,
		}, nil
	}
	body := map[string]any{"query": query}
	if conversationID != "" {
		body["conversationId"] = conversationID
	}
	var resp QueryResponse
	if err := c.do(ctx, http.MethodPost, "/agents/"+agentID+"/query", body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(jsonBody)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, c.apiBase+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("execute request: %v: %w", err, ErrRemoteUnavailable)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("API error (status 404): %w", ErrAgentNotFound)
	case resp.StatusCode >= 500:
		return fmt.Errorf("API error (status %d): %s: %w", resp.StatusCode, string(respBody), ErrRemoteUnavailable)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(respBody))
	}

	if out == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	return nil
}
