package store

import (
	"time"
)

// Profile represents a console user identity.
type Profile struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	FullName  string    `json:"full_name"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// LocalAgent is the locally-owned mirror of a remote Bravilo agent. It exists
// so assignments and conversations can hold a foreign key that survives
// remote outages.
type LocalAgent struct {
	ID          int64     `json:"id"`
	RemoteID    string    `json:"remote_id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	IsActive    bool      `json:"is_active"`
	IsShared    bool      `json:"is_shared"`
	CreatedAt   time.Time `json:"created_at"`
}

// AssignmentRecord grants a user visibility of one local agent.
type AssignmentRecord struct {
	UserID     string    `json:"user_id"`
	AgentID    int64     `json:"agent_id"`
	AssignedAt time.Time `json:"assigned_at"`
}

// AssignedAgent is one row of a user's assignment listing, joined with the
// mirror for human-readable fields.
type AssignedAgent struct {
	Agent      LocalAgent `json:"agent"`
	AssignedAt time.Time  `json:"assigned_at"`
}

// Message is a single transcript entry.
type Message struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"` // "user" or "assistant"
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ConversationRecord is the persisted transcript of one chat thread.
type ConversationRecord struct {
	ID             int64     `json:"id"`
	UserID         string    `json:"user_id"`
	AgentRef       string    `json:"agent_ref"`
	ConversationID string    `json:"conversation_id"`
	Messages       []Message `json:"messages"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

const Schema = `
CREATE TABLE IF NOT EXISTS profiles (
	id TEXT PRIMARY KEY,
	email TEXT UNIQUE,
	full_name TEXT DEFAULT '',
	role TEXT DEFAULT 'user',
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS agents (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	remote_id TEXT,
	name TEXT NOT NULL,
	description TEXT DEFAULT '',
	is_active BOOLEAN DEFAULT 1,
	is_shared BOOLEAN DEFAULT 0,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS assignments (
	user_id TEXT NOT NULL,
	agent_id INTEGER NOT NULL,
	assigned_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (user_id, agent_id)
);
CREATE INDEX IF NOT EXISTS idx_assignments_agent ON assignments(agent_id);

CREATE TABLE IF NOT EXISTS conversations (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id TEXT NOT NULL,
	agent_ref TEXT NOT NULL,
	conversation_id TEXT NOT NULL,
	messages TEXT NOT NULL DEFAULT '[]',
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	UNIQUE(user_id, agent_ref, conversation_id)
);
CREATE INDEX IF NOT EXISTS idx_conversations_user_agent ON conversations(user_id, agent_ref, updated_at);
CREATE INDEX IF NOT EXISTS idx_conversations_agent ON conversations(agent_ref);
`
