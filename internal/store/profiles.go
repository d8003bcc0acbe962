package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// UpsertProfile creates or refreshes a console user profile.
func (s *Store) UpsertProfile(ctx context.Context, p *Profile) error {
	if p.Role == "" {
		p.Role = "user"
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO profiles (id, email, full_name, role, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			email = excluded.email,
			full_name = excluded.full_name,
			role = excluded.role
	`, p.ID, p.Email, p.FullName, p.Role, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("upsert profile %q: %w", p.ID, err)
	}
	return nil
}

// GetProfile returns one profile, or ok=false when it does not exist.
func (s *Store) GetProfile(ctx context.Context, id string) (*Profile, bool, error) {
	var p Profile
	err := s.db.QueryRowContext(ctx, `
		SELECT id, COALESCE(email,''), COALESCE(full_name,''), COALESCE(role,'user'), created_at
		FROM profiles WHERE id = ?
	`, id).Scan(&p.ID, &p.Email, &p.FullName, &p.Role, &p.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get profile %q: %w", id, err)
	}
	return &p, true, nil
}

// ListProfiles returns all profiles ordered by creation.
func (s *Store) ListProfiles(ctx context.Context) ([]Profile, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, COALESCE(email,''), COALESCE(full_name,''), COALESCE(role,'user'), created_at
		FROM profiles ORDER BY created_at
	`)
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	defer rows.Close()

	var out []Profile
	for rows.Next() {
		var p Profile
		if err := rows.Scan(&p.ID, &p.Email, &p.FullName, &p.Role, &p.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
