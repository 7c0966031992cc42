// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"fmt"

	"github.com/pdiddy/oncopulse/pkg/types"
)

// SetNote stars or annotates an item. The first call creates the note.
func (s *Store) SetNote(ctx context.Context, itemID int64, starred bool, text string) error {
	var exists int
	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM items WHERE id = ?`, itemID).Scan(&exists); err != nil {
		return fmt.Errorf("checking item %d: %w", itemID, err)
	}
	if exists == 0 {
		return fmt.Errorf("item %d: %w", itemID, ErrNotFound)
	}

	now := s.stamp()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO notes (item_id, starred, note_text, created_at, updated_at) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(item_id) DO UPDATE SET starred=excluded.starred, note_text=excluded.note_text, updated_at=excluded.updated_at`,
		itemID, starred, text, now, now,
	)
	if err != nil {
		return fmt.Errorf("saving note for item %d: %w", itemID, err)
	}
	return nil
}

// Note returns the note for an item, or nil when there is none.
func (s *Store) Note(ctx context.Context, itemID int64) (*types.Note, error) {
	var (
		n                types.Note
		created, updated string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT item_id, starred, note_text, created_at, updated_at FROM notes WHERE item_id = ?`, itemID,
	).Scan(&n.ItemID, &n.Starred, &n.Text, &created, &updated)
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading note for item %d: %w", itemID, err)
	}
	n.CreatedAt = parseTime(created)
	n.UpdatedAt = parseTime(updated)
	return &n, nil
}
