package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"
	"time"
)

// Assign grants a user access to a local agent. Assigning an existing pair is
// an idempotent no-op: the existing record comes back and created is false.
// The upsert is keyed on the (user_id, agent_id) primary key, never
// check-then-insert.
func (s *Store) Assign(ctx context.Context, userID string, agentID int64) (rec *AssignmentRecord, created bool, err error) {
	if strings.TrimSpace(userID) == "" {
		return nil, false, fmt.Errorf("assign: empty user id")
	}
	if _, err := s.GetAgent(ctx, agentID); err != nil {
		return nil, false, fmt.Errorf("assign user %q: %w", userID, err)
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO assignments (user_id, agent_id, assigned_at)
		VALUES (?, ?, ?)
		ON CONFLICT(user_id, agent_id) DO NOTHING
	`, userID, agentID, time.Now().UTC())
	if err != nil {
		return nil, false, fmt.Errorf("assign user %q to agent %d: %w", userID, agentID, err)
	}
	n, _ := res.RowsAffected()

	var r AssignmentRecord
	err = s.db.QueryRowContext(ctx,
		`SELECT user_id, agent_id, assigned_at FROM assignments WHERE user_id = ? AND agent_id = ?`,
		userID, agentID,
	).Scan(&r.UserID, &r.AgentID, &r.AssignedAt)
	if err != nil {
		return nil, false, fmt.Errorf("read assignment: %w", err)
	}
	return &r, n > 0, nil
}

// Unassign removes a user/agent pair. Removing a pair that does not exist is
// not an error.
func (s *Store) Unassign(ctx context.Context, userID string, agentID int64) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM assignments WHERE user_id = ? AND agent_id = ?`,
		userID, agentID,
	)
	if err != nil {
		return fmt.Errorf("unassign user %q from agent %d: %w", userID, agentID, err)
	}
	return nil
}

// ListAssignmentsForUser returns the agents assigned to a user, joined with
// the mirror for name/description. A dangling agent_id with no mirror row is
// a data-integrity fault: it is logged and skipped, never silently dropped.
func (s *Store) ListAssignmentsForUser(ctx context.Context, userID string) ([]AssignedAgent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT a.agent_id, a.assigned_at,
		       g.id, g.remote_id, g.name, g.description, g.is_active, g.is_shared, g.created_at
		FROM assignments a
		LEFT JOIN agents g ON g.id = a.agent_id
		WHERE a.user_id = ?
		ORDER BY a.assigned_at
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list assignments for user %q: %w", userID, err)
	}
	defer rows.Close()

	var out []AssignedAgent
	for rows.Next() {
		var (
			agentID    int64
			assignedAt time.Time
			id         sql.NullInt64
			remoteID   sql.NullString
			name       sql.NullString
			desc       sql.NullString
			active     sql.NullBool
			shared     sql.NullBool
			createdAt  sql.NullTime
		)
		if err := rows.Scan(&agentID, &assignedAt, &id, &remoteID, &name, &desc, &active, &shared, &createdAt); err != nil {
			return nil, err
		}
		if !id.Valid {
			fmt.Fprintf(os.Stderr, "store: data-integrity warning: assignment (%s, %d) references a missing mirror row\n", userID, agentID)
			continue
		}
		out = append(out, AssignedAgent{
			Agent: LocalAgent{
				ID:          id.Int64,
				RemoteID:    remoteID.String,
				Name:        name.String,
				Description: desc.String,
				IsActive:    active.Bool,
				IsShared:    shared.Bool,
				CreatedAt:   createdAt.Time,
			},
			AssignedAt: assignedAt,
		})
	}
	return out, rows.Err()
}

// ListAssigneesForAgent returns the user ids assigned to a local agent.
func (s *Store) ListAssigneesForAgent(ctx context.Context, agentID int64) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT user_id FROM assignments WHERE agent_id = ? ORDER BY assigned_at`,
		agentID,
	)
	if err != nil {
		return nil, fmt.Errorf("list assignees for agent %d: %w", agentID, err)
	}
	defer rows.Close()

	var users []string
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}
