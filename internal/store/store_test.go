package store

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "lente.db")
	s, err := NewStore(dbPath)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() {
		_ = s.Close()
	})
	return s
}

func TestNewStoreHealsLegacyDuplicateMirrors(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "lente.db")

	// A pre-constraint database: schema without the unique index, duplicate
	// mirror rows from check-then-insert writers, and an assignment pointing
	// at the higher duplicate.
	raw, err := sql.Open("sqlite", "file:"+dbPath)
	if err != nil {
		t.Fatalf("open raw db: %v", err)
	}
	if _, err := raw.Exec(Schema); err != nil {
		t.Fatalf("apply schema: %v", err)
	}
	for i := 0; i < 2; i++ {
		if _, err := raw.Exec(`INSERT INTO agents (remote_id, name) VALUES ('dup-1', 'Dup')`); err != nil {
			t.Fatalf("seed duplicate %d: %v", i, err)
		}
	}
	if _, err := raw.Exec(`INSERT INTO assignments (user_id, agent_id) VALUES ('u1', 2)`); err != nil {
		t.Fatalf("seed assignment: %v", err)
	}
	if err := raw.Close(); err != nil {
		t.Fatalf("close raw db: %v", err)
	}

	s, err := NewStore(dbPath)
	if err != nil {
		t.Fatalf("open store over legacy db: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	ctx := context.Background()

	agents, err := s.ListAgents(ctx)
	if err != nil {
		t.Fatalf("list agents: %v", err)
	}
	if len(agents) != 1 {
		t.Fatalf("expected duplicates healed to one row, got %d", len(agents))
	}
	list, err := s.ListAssignmentsForUser(ctx, "u1")
	if err != nil {
		t.Fatalf("list assignments: %v", err)
	}
	if len(list) != 1 || list[0].Agent.ID != agents[0].ID {
		t.Fatalf("expected assignment re-pointed to surviving row %d, got %+v", agents[0].ID, list)
	}
}
