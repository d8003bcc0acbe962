package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Jobly-Solutions/lente-ai-sub000/internal/bravilo"
	"github.com/Jobly-Solutions/lente-ai-sub000/internal/chat"
	"github.com/Jobly-Solutions/lente-ai-sub000/internal/config"
	"github.com/Jobly-Solutions/lente-ai-sub000/internal/events"
	"github.com/Jobly-Solutions/lente-ai-sub000/internal/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the admin API server",
	Run:   runServe,
}

func runServe(cmd *cobra.Command, args []string) {
	printHeader("🌐 Lente Admin API")

	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Config error: %v\n", err)
		os.Exit(1)
	}
	if err := config.EnsureDir(cfg.Paths.DataDir); err != nil {
		fmt.Printf("Data dir error: %v\n", err)
		os.Exit(1)
	}

	// 2. Setup store
	st, err := store.NewStore(filepath.Join(cfg.Paths.DataDir, "lente.db"))
	if err != nil {
		fmt.Printf("Failed to init store: %v\n", err)
		os.Exit(1)
	}
	defer st.Close()

	// 3. Setup Bravilo client
	apiKey := config.ResolveAPIKey("", cfg)
	client := bravilo.NewClient(apiKey, cfg.Bravilo.APIBase, cfg.Bravilo.Timeout)
	if client.DemoMode() {
		fmt.Println("⚠️ No Bravilo API key configured — running in demo mode")
	}

	// 4. Setup audit publisher
	pub := events.NewPublisher(cfg.Events, cfg.Notify)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go pub.Start(ctx)

	chatSvc := chat.NewService(st, client, pub)

	mux := buildAdminMux(&adminDeps{
		Store:     st,
		Remote:    client,
		Chat:      chatSvc,
		Events:    pub,
		AuthToken: cfg.Server.AuthToken,
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{Addr: addr, Handler: mux}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Println("\nShutting down...")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		server.Shutdown(shutdownCtx)
		pub.Close()
		cancel()
	}()

	fmt.Printf("✅ Admin API listening on http://%s\n", addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		fmt.Printf("Server error: %v\n", err)
		os.Exit(1)
	}
}

type adminDeps struct {
	Store     *store.Store
	Remote    *bravilo.Client
	Chat      *chat.Service
	Events    *events.Publisher
	AuthToken string
}

// directoryAgent is one entry of the agents listing: the remote descriptor
// plus its local mirror id once reconciled.
type directoryAgent struct {
	bravilo.Agent
	LocalID  int64 `json:"local_id,omitempty"`
	IsActive bool  `json:"is_active"`
}

func buildAdminMux(deps *adminDeps) *http.ServeMux {
	mux := http.NewServeMux()

	requireAuth := func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if deps.AuthToken != "" {
				if r.Header.Get("Authorization") != "Bearer "+deps.AuthToken {
					http.Error(w, "unauthorized", http.StatusUnauthorized)
					return
				}
			}
			next(w, r)
		}
	}

	mux.HandleFunc("/api/v1/status", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"status":    "ok",
			"version":   version,
			"demo_mode": deps.Remote.DemoMode(),
		})
	})

	mux.HandleFunc("/api/v1/agents", requireAuth(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			handleListAgents(deps, w, r)
		case http.MethodPost:
			var in bravilo.AgentInput
			if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
				http.Error(w, "invalid body", http.StatusBadRequest)
				return
			}
			agent, err := deps.Remote.CreateAgent(r.Context(), &in)
			if err != nil {
				writeRemoteError(w, err)
				return
			}
			local, err := deps.Store.EnsureLocalAgent(r.Context(), agent.ID, agent.Name, agent.Description)
			if err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusCreated)
			json.NewEncoder(w).Encode(directoryAgent{Agent: *agent, LocalID: local.ID, IsActive: local.IsActive})
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	}))

	mux.HandleFunc("/api/v1/agents/", requireAuth(func(w http.ResponseWriter, r *http.Request) {
		rest := strings.TrimPrefix(r.URL.Path, "/api/v1/agents/")
		if id, ok := strings.CutSuffix(rest, "/assignees"); ok && r.Method == http.MethodGet {
			handleListAssignees(deps, w, r, id)
			return
		}
		switch r.Method {
		case http.MethodPatch:
			var in bravilo.AgentInput
			if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
				http.Error(w, "invalid body", http.StatusBadRequest)
				return
			}
			agent, err := deps.Remote.UpdateAgent(r.Context(), rest, &in)
			if err != nil {
				writeRemoteError(w, err)
				return
			}
			local, err := deps.Store.EnsureLocalAgent(r.Context(), agent.ID, agent.Name, agent.Description)
			if err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(directoryAgent{Agent: *agent, LocalID: local.ID, IsActive: local.IsActive})
		case http.MethodDelete:
			if err := deps.Remote.DeleteAgent(r.Context(), rest); err != nil {
				writeRemoteError(w, err)
				return
			}
			if err := deps.Store.DeactivateAgent(r.Context(), rest); err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]any{"ok": true})
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	}))

	mux.HandleFunc("/api/v1/assignments", requireAuth(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			userID := r.URL.Query().Get("user_id")
			if userID == "" {
				http.Error(w, "user_id is required", http.StatusBadRequest)
				return
			}
			list, err := deps.Store.ListAssignmentsForUser(r.Context(), userID)
			if err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}
			if list == nil {
				list = []store.AssignedAgent{}
			}
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(list)
		case http.MethodPost:
			handleAssign(deps, w, r)
		case http.MethodDelete:
			handleUnassign(deps, w, r)
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	}))

	mux.HandleFunc("/api/v1/profiles", requireAuth(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			profiles, err := deps.Store.ListProfiles(r.Context())
			if err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}
			if profiles == nil {
				profiles = []store.Profile{}
			}
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(profiles)
		case http.MethodPost:
			var p store.Profile
			if err := json.NewDecoder(r.Body).Decode(&p); err != nil || p.ID == "" {
				http.Error(w, "id is required", http.StatusBadRequest)
				return
			}
			if err := deps.Store.UpsertProfile(r.Context(), &p); err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(p)
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	}))

	mux.HandleFunc("/api/v1/chat/open", requireAuth(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		handleChatOpen(deps, w, r)
	}))

	mux.HandleFunc("/api/v1/chat/send", requireAuth(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		handleChatSend(deps, w, r)
	}))

	return mux
}

// handleListAgents serves the remote directory listing, reconciles mirrors
// and runs the deactivation sweep. When the remote is unreachable the local
// mirror is served instead so the console stays usable.
func handleListAgents(deps *adminDeps, w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	agents, err := deps.Remote.ListAgents(r.Context())
	if err != nil {
		if errors.Is(err, bravilo.ErrRemoteUnavailable) {
			local, lerr := deps.Store.ListAgents(r.Context())
			if lerr != nil {
				http.Error(w, lerr.Error(), http.StatusInternalServerError)
				return
			}
			out := make([]directoryAgent, 0, len(local))
			for _, a := range local {
				out = append(out, directoryAgent{
					Agent:    bravilo.Agent{ID: a.RemoteID, Name: a.Name, Description: a.Description},
					LocalID:  a.ID,
					IsActive: a.IsActive,
				})
			}
			json.NewEncoder(w).Encode(map[string]any{"source": "local", "agents": out})
			return
		}
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}

	out := make([]directoryAgent, 0, len(agents))
	liveIDs := make([]string, 0, len(agents))
	for _, a := range agents {
		liveIDs = append(liveIDs, a.ID)
		local, err := deps.Store.EnsureLocalAgent(r.Context(), a.ID, a.Name, a.Description)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		out = append(out, directoryAgent{Agent: a, LocalID: local.ID, IsActive: local.IsActive})
	}
	if swept, err := deps.Store.DeactivateMissing(r.Context(), liveIDs); err == nil && swept > 0 {
		deps.Events.Publish(events.New(events.TypeAgentSwept, "", "", map[string]any{"count": swept}))
	}

	source := "remote"
	if deps.Remote.DemoMode() {
		source = "demo"
	}
	json.NewEncoder(w).Encode(map[string]any{"source": source, "agents": out})
}

func handleListAssignees(deps *adminDeps, w http.ResponseWriter, r *http.Request, rawID string) {
	agentID, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		http.Error(w, "invalid agent id", http.StatusBadRequest)
		return
	}
	users, err := deps.Store.ListAssigneesForAgent(r.Context(), agentID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	// Attach profile display fields when the console knows the user.
	type assignee struct {
		UserID   string `json:"user_id"`
		FullName string `json:"full_name,omitempty"`
		Email    string `json:"email,omitempty"`
	}
	out := make([]assignee, 0, len(users))
	for _, u := range users {
		a := assignee{UserID: u}
		if p, ok, err := deps.Store.GetProfile(r.Context(), u); err == nil && ok {
			a.FullName = p.FullName
			a.Email = p.Email
		}
		out = append(out, a)
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"agent_id": agentID, "assignees": out})
}

func handleAssign(deps *adminDeps, w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID        string `json:"user_id"`
		RemoteAgentID string `json:"remote_agent_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == "" || req.RemoteAgentID == "" {
		http.Error(w, "user_id and remote_agent_id are required", http.StatusBadRequest)
		return
	}

	// Resolve the remote descriptor; fall back to the mirror when the remote
	// is down so admin work is not blocked by an outage.
	name, description := "", ""
	agent, err := deps.Remote.GetAgent(r.Context(), req.RemoteAgentID)
	switch {
	case err == nil:
		name, description = agent.Name, agent.Description
	case errors.Is(err, bravilo.ErrAgentNotFound):
		http.Error(w, "agent not found", http.StatusNotFound)
		return
	case errors.Is(err, bravilo.ErrRemoteUnavailable):
		mirror, merr := deps.Store.GetAgentByRemoteID(r.Context(), req.RemoteAgentID)
		if merr != nil {
			http.Error(w, "remote unavailable and no local mirror", http.StatusBadGateway)
			return
		}
		name, description = mirror.Name, mirror.Description
	default:
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}

	local, err := deps.Store.EnsureLocalAgent(r.Context(), req.RemoteAgentID, name, description)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	rec, created, err := deps.Store.Assign(r.Context(), req.UserID, local.ID)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if created {
		deps.Events.Publish(events.New(events.TypeAssignmentCreated, req.UserID, req.RemoteAgentID, map[string]any{
			"agent_name": local.Name,
			"local_id":   local.ID,
		}))
	}

	w.Header().Set("Content-Type", "application/json")
	if created {
		w.WriteHeader(http.StatusCreated)
	}
	json.NewEncoder(w).Encode(map[string]any{
		"assignment": rec,
		"created":    created,
		"agent":      local,
	})
}

func handleUnassign(deps *adminDeps, w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID  string `json:"user_id"`
		AgentID int64  `json:"agent_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == "" || req.AgentID == 0 {
		http.Error(w, "user_id and agent_id are required", http.StatusBadRequest)
		return
	}
	if err := deps.Store.Unassign(r.Context(), req.UserID, req.AgentID); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	agentRef := strconv.FormatInt(req.AgentID, 10)
	if mirror, err := deps.Store.GetAgent(r.Context(), req.AgentID); err == nil {
		agentRef = mirror.RemoteID
	}
	deps.Events.Publish(events.New(events.TypeAssignmentRemoved, req.UserID, agentRef, nil))
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"ok": true})
}

func handleChatOpen(deps *adminDeps, w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID       string `json:"user_id"`
		AgentID      string `json:"agent_id"`
		SessionToken string `json:"session_token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.AgentID == "" {
		http.Error(w, "agent_id is required", http.StatusBadRequest)
		return
	}

	userID, token := req.UserID, ""
	if userID == "" {
		userID, token = chat.AnonymousUserID(req.SessionToken)
	}

	agentName := ""
	agent, err := deps.Remote.GetAgent(r.Context(), req.AgentID)
	switch {
	case err == nil:
		agentName = agent.Name
		if _, err := deps.Store.EnsureLocalAgent(r.Context(), agent.ID, agent.Name, agent.Description); err != nil {
			writeStoreError(w, err)
			return
		}
	case errors.Is(err, bravilo.ErrAgentNotFound):
		http.Error(w, "agent not found", http.StatusNotFound)
		return
	default:
		// Remote down: resume from the mirror if we have one.
		if mirror, merr := deps.Store.GetAgentByRemoteID(r.Context(), req.AgentID); merr == nil {
			agentName = mirror.Name
		}
	}

	state, err := deps.Chat.OpenSession(r.Context(), userID, req.AgentID, agentName)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"user_id":       userID,
		"session_token": token,
		"session":       state,
	})
}

func handleChatSend(deps *adminDeps, w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID         string `json:"user_id"`
		AgentID        string `json:"agent_id"`
		ConversationID string `json:"conversation_id"`
		Text           string `json:"text"`
		SessionToken   string `json:"session_token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.AgentID == "" || req.Text == "" {
		http.Error(w, "agent_id and text are required", http.StatusBadRequest)
		return
	}

	userID := req.UserID
	if userID == "" {
		userID, _ = chat.AnonymousUserID(req.SessionToken)
	}

	result, err := deps.Chat.SendMessage(r.Context(), userID, req.AgentID, req.ConversationID, req.Text)
	w.Header().Set("Content-Type", "application/json")
	if err != nil {
		if result != nil {
			// The turn was persisted with an assistant-side error entry; tell
			// the UI so it can show a banner without losing the thread.
			status := http.StatusBadGateway
			msg := "remote unavailable"
			switch {
			case errors.Is(err, bravilo.ErrAgentNotFound):
				status = http.StatusNotFound
				msg = "agent not found"
			case !errors.Is(err, bravilo.ErrRemoteUnavailable):
				msg = err.Error()
			}
			w.WriteHeader(status)
			json.NewEncoder(w).Encode(map[string]any{"turn": result, "error": msg})
			return
		}
		writeStoreError(w, err)
		return
	}
	json.NewEncoder(w).Encode(map[string]any{"turn": result})
}

func writeRemoteError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, bravilo.ErrAgentNotFound):
		http.Error(w, "agent not found", http.StatusNotFound)
	case errors.Is(err, bravilo.ErrRemoteUnavailable):
		http.Error(w, err.Error(), http.StatusBadGateway)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrInvalidAgentRef):
		http.Error(w, "agent not found", http.StatusNotFound)
	case errors.Is(err, chat.ErrUserRequired):
		http.Error(w, "user identity required", http.StatusBadRequest)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
