// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pdiddy/oncopulse/internal/mode"
)

// SaveModeProfile creates or replaces a custom profile.
func (s *Store) SaveModeProfile(ctx context.Context, p mode.Profile) error {
	p.Name = strings.TrimSpace(p.Name)
	if err := mode.Validate(p); err != nil {
		return err
	}
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encoding profile: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO custom_modes (name, config_json, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET config_json=excluded.config_json, updated_at=excluded.updated_at`,
		p.Name, string(data), s.stamp(),
	)
	if err != nil {
		return fmt.Errorf("saving profile %q: %w", p.Name, err)
	}
	return nil
}

// ModeProfile implements mode.Store. It returns nil when no profile has
// the name.
func (s *Store) ModeProfile(ctx context.Context, name string) (*mode.Profile, error) {
	var data string
	err := s.db.QueryRowContext(ctx,
		`SELECT config_json FROM custom_modes WHERE name = ?`, strings.TrimSpace(name),
	).Scan(&data)
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading profile %q: %w", name, err)
	}
	p, err := decodeProfile(data)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ModeProfiles lists custom profiles by name.
func (s *Store) ModeProfiles(ctx context.Context) ([]mode.Profile, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT config_json FROM custom_modes ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("listing profiles: %w", err)
	}
	defer rows.Close()

	var out []mode.Profile
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scanning profile: %w", err)
		}
		p, err := decodeProfile(data)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// DeleteModeProfile removes a custom profile.
func (s *Store) DeleteModeProfile(ctx context.Context, name string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM custom_modes WHERE name = ?`, strings.TrimSpace(name))
	if err != nil {
		return fmt.Errorf("deleting profile %q: %w", name, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("profile %q: %w", name, ErrNotFound)
	}
	return nil
}

func decodeProfile(data string) (mode.Profile, error) {
	var p mode.Profile
	if err := json.Unmarshal([]byte(data), &p); err != nil {
		return p, fmt.Errorf("decoding profile: %w", err)
	}
	return p, nil
}
