// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// CitationCount returns a cached citation count. found is false when the
// key has never been cached; a cached nil count means the upstream had no
// record.
func (s *Store) CitationCount(ctx context.Context, key string) (count *int, fetchedAt time.Time, found bool, err error) {
	var (
		n       sql.NullInt64
		fetched string
	)
	err = s.db.QueryRowContext(ctx,
		`SELECT cited_by_count, fetched_at FROM citation_cache WHERE cache_key = ?`,
		strings.ToLower(key),
	).Scan(&n, &fetched)
	if isNoRows(err) {
		return nil, time.Time{}, false, nil
	}
	if err != nil {
		return nil, time.Time{}, false, fmt.Errorf("reading citation cache: %w", err)
	}
	if n.Valid {
		c := int(n.Int64)
		count = &c
	}
	return count, parseTime(fetched), true, nil
}

// PutCitationCount stores a citation count, replacing any previous value.
func (s *Store) PutCitationCount(ctx context.Context, key string, count *int, fetchedAt time.Time) error {
	var n sql.NullInt64
	if count != nil {
		n = sql.NullInt64{Int64: int64(*count), Valid: true}
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO citation_cache (cache_key, cited_by_count, fetched_at) VALUES (?, ?, ?)
		 ON CONFLICT(cache_key) DO UPDATE SET cited_by_count=excluded.cited_by_count, fetched_at=excluded.fetched_at`,
		strings.ToLower(key), n, formatTime(fetchedAt),
	)
	if err != nil {
		return fmt.Errorf("writing citation cache: %w", err)
	}
	return nil
}

// FullText returns a cached full-text payload.
func (s *Store) FullText(ctx context.Context, key string) (payload []byte, fetchedAt time.Time, found bool, err error) {
	var body, fetched string
	err = s.db.QueryRowContext(ctx,
		`SELECT payload, fetched_at FROM fulltext_cache WHERE cache_key = ?`, key,
	).Scan(&body, &fetched)
	if isNoRows(err) {
		return nil, time.Time{}, false, nil
	}
	if err != nil {
		return nil, time.Time{}, false, fmt.Errorf("reading full-text cache: %w", err)
	}
	return []byte(body), parseTime(fetched), true, nil
}

// PutFullText stores a full-text payload, replacing any previous value.
func (s *Store) PutFullText(ctx context.Context, key string, payload []byte, fetchedAt time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO fulltext_cache (cache_key, payload, fetched_at) VALUES (?, ?, ?)
		 ON CONFLICT(cache_key) DO UPDATE SET payload=excluded.payload, fetched_at=excluded.fetched_at`,
		key, string(payload), formatTime(fetchedAt),
	)
	if err != nil {
		return fmt.Errorf("writing full-text cache: %w", err)
	}
	return nil
}
