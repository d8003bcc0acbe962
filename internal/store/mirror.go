package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// EnsureLocalAgent finds-or-creates the mirror row for a remote agent id.
// The write is a single atomic upsert keyed on remote_id, so concurrent
// callers for the same unseen id converge on one row. Metadata from the
// remote descriptor is refreshed on conflict, and a previously swept mirror
// is re-activated when its remote id resolves again.
func (s *Store) EnsureLocalAgent(ctx context.Context, remoteID, name, description string) (*LocalAgent, error) {
	remoteID = strings.TrimSpace(remoteID)
	if remoteID == "" {
		return nil, fmt.Errorf("ensure local agent: empty remote id: %w", ErrInvalidAgentRef)
	}
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("ensure local agent %q: no resolvable name: %w", remoteID, ErrInvalidAgentRef)
	}

	// The conflict target must repeat the partial index's WHERE clause or
	// sqlite refuses to match idx_agents_remote at all.
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO agents (remote_id, name, description, is_active, is_shared, created_at)
		VALUES (?, ?, ?, 1, 0, ?)
		ON CONFLICT(remote_id) WHERE remote_id IS NOT NULL DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			is_active = 1
	`, remoteID, name, description, time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("ensure local agent %q: %w", remoteID, err)
	}

	return s.GetAgentByRemoteID(ctx, remoteID)
}

// GetAgentByRemoteID looks up a mirror row by its remote id.
func (s *Store) GetAgentByRemoteID(ctx context.Context, remoteID string) (*LocalAgent, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, COALESCE(remote_id,''), name, COALESCE(description,''), is_active, is_shared, created_at
		FROM agents WHERE remote_id = ?
	`, remoteID)
	return scanAgent(row)
}

// GetAgent looks up a mirror row by its internal id.
func (s *Store) GetAgent(ctx context.Context, id int64) (*LocalAgent, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, COALESCE(remote_id,''), name, COALESCE(description,''), is_active, is_shared, created_at
		FROM agents WHERE id = ?
	`, id)
	return scanAgent(row)
}

// ListAgents returns all mirror rows, active first.
func (s *Store) ListAgents(ctx context.Context) ([]LocalAgent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, COALESCE(remote_id,''), name, COALESCE(description,''), is_active, is_shared, created_at
		FROM agents ORDER BY is_active DESC, name
	`)
	if err != nil {
		return nil, fmt.Errorf("list agents: %w", err)
	}
	defer rows.Close()

	var agents []LocalAgent
	for rows.Next() {
		var a LocalAgent
		if err := rows.Scan(&a.ID, &a.RemoteID, &a.Name, &a.Description, &a.IsActive, &a.IsShared, &a.CreatedAt); err != nil {
			return nil, err
		}
		agents = append(agents, a)
	}
	return agents, rows.Err()
}

// DeactivateMissing flips is_active off for every mirror whose remote id is
// not in the given live set. Rows are never deleted so assignments and
// transcripts keep valid references. Returns the number of swept rows.
func (s *Store) DeactivateMissing(ctx context.Context, liveRemoteIDs []string) (int64, error) {
	query := `UPDATE agents SET is_active = 0 WHERE remote_id IS NOT NULL AND is_active = 1`
	args := []any{}
	if len(liveRemoteIDs) > 0 {
		placeholders := strings.Repeat("?,", len(liveRemoteIDs))
		query += " AND remote_id NOT IN (" + placeholders[:len(placeholders)-1] + ")"
		for _, id := range liveRemoteIDs {
			args = append(args, id)
		}
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("deactivate missing mirrors: %w", err)
	}
	return res.RowsAffected()
}

// DeactivateAgent flips a single mirror inactive, e.g. after an explicit
// remote delete. The row itself stays.
func (s *Store) DeactivateAgent(ctx context.Context, remoteID string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE agents SET is_active = 0 WHERE remote_id = ?`, remoteID)
	if err != nil {
		return fmt.Errorf("deactivate agent %q: %w", remoteID, err)
	}
	return nil
}

func scanAgent(row *sql.Row) (*LocalAgent, error) {
	var a LocalAgent
	err := row.Scan(&a.ID, &a.RemoteID, &a.Name, &a.Description, &a.IsActive, &a.IsShared, &a.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("no mirror row: %w", ErrInvalidAgentRef)
	}
	if err != nil {
		return nil, fmt.Errorf("scan agent: %w", err)
	}
	return &a, nil
}
