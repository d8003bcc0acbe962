// Package store implements the local persistence layer: profiles, the agent
// mirror, the assignment ledger, and conversation transcripts.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"

	_ "modernc.org/sqlite"
)

// ErrInvalidAgentRef indicates an operation referenced an agent with no
// resolvable remote or local record.
var ErrInvalidAgentRef = errors.New("store: invalid agent reference")

type Store struct {
	db *sql.DB
}

func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", "file:"+dbPath+"?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open store db: %w", err)
	}

	// Apply schema
	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	// Heal legacy duplicate mirror rows before enforcing uniqueness. Older
	// databases were written by check-then-insert callers and can hold more
	// than one row per remote_id; keep the lowest id and re-point ledger rows.
	if res, err := db.Exec(`
		UPDATE assignments SET agent_id = (
			SELECT MIN(a2.id) FROM agents a2
			WHERE a2.remote_id = (SELECT remote_id FROM agents a3 WHERE a3.id = assignments.agent_id)
		)
		WHERE agent_id IN (
			SELECT id FROM agents WHERE remote_id IS NOT NULL AND id NOT IN (
				SELECT MIN(id) FROM agents WHERE remote_id IS NOT NULL GROUP BY remote_id
			)
		)
	`); err != nil {
		fmt.Fprintf(os.Stderr, "store: failed to re-point assignments from duplicate mirror rows: %v\n", err)
	} else if n, _ := res.RowsAffected(); n > 0 {
		fmt.Fprintf(os.Stderr, "store: re-pointed %d assignment(s) from duplicate mirror rows\n", n)
	}
	if res, err := db.Exec(`
		DELETE FROM agents WHERE remote_id IS NOT NULL AND id NOT IN (
			SELECT MIN(id) FROM agents WHERE remote_id IS NOT NULL GROUP BY remote_id
		)
	`); err != nil {
		fmt.Fprintf(os.Stderr, "store: failed to remove duplicate mirror rows: %v\n", err)
	} else if n, _ := res.RowsAffected(); n > 0 {
		fmt.Fprintf(os.Stderr, "store: data-integrity warning: removed %d duplicate mirror row(s)\n", n)
	}
	if _, err := db.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS idx_agents_remote ON agents(remote_id) WHERE remote_id IS NOT NULL`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enforce mirror uniqueness: %w", err)
	}

	// Best-effort migrations for existing dbs (no-op if column exists).
	_, _ = db.Exec(`ALTER TABLE agents ADD COLUMN is_shared BOOLEAN DEFAULT 0`)
	_, _ = db.Exec(`ALTER TABLE profiles ADD COLUMN role TEXT DEFAULT 'user'`)
	_, _ = db.Exec(`ALTER TABLE conversations ADD COLUMN updated_at DATETIME`)
	_, _ = db.Exec(`UPDATE conversations SET updated_at = created_at WHERE updated_at IS NULL`)

	return &Store{db: db}, nil
}

// DB returns the underlying *sql.DB for shared access.
func (s *Store) DB() *sql.DB { return s.db }

func (s *Store) Close() error {
	return s.db.Close()
}
