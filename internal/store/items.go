// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	sq "github.com/Masterminds/squirrel"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/oncopulse/pkg/types"
)

// ItemOrder selects the ranking used by Items.
type ItemOrder string

const (
	OrderScore  ItemOrder = "score"
	OrderCited  ItemOrder = "cited"
	OrderRecent ItemOrder = "recent"
)

// DefaultItemLimit caps Items when the filter leaves Limit at zero.
const DefaultItemLimit = 200

// ItemFilter narrows an Items query. A zero Scope matches every scope.
type ItemFilter struct {
	Scope          types.Scope
	Order          ItemOrder
	ExcludeSources []string
	Sources        []string
	StarredOnly    bool
	Limit          int
}

var itemColumns = []string{
	"i.id", "i.specialty", "i.subcategory", "i.mode_name", "i.source", "i.title",
	"i.url", "i.published_at", "i.updated_at", "i.pmid", "i.doi", "i.nct_id",
	"i.pmcid", "i.venue", "i.authors", "i.abstract_or_text", "i.conditions",
	"i.interventions", "i.study_type", "i.phase", "i.primary_endpoints",
	"i.status", "i.score", "i.score_explain_json", "i.summary_text",
	"i.citations", "i.citations_source", "i.full_text_source", "i.fingerprint",
	"i.created_at", "i.last_seen_at",
	"COALESCE(n.starred, 0)", "COALESCE(n.note_text, '')",
}

const upsertItemSQL = `INSERT INTO items (
	specialty, subcategory, mode_name, source, title, url, published_at,
	updated_at, pmid, doi, nct_id, pmcid, venue, authors, abstract_or_text,
	conditions, interventions, study_type, phase, primary_endpoints, status,
	score, score_explain_json, summary_text, citations, citations_source,
	full_text_source, fingerprint, created_at, last_seen_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(fingerprint) DO UPDATE SET
	specialty=excluded.specialty, subcategory=excluded.subcategory,
	mode_name=excluded.mode_name, source=excluded.source, title=excluded.title,
	url=excluded.url, published_at=excluded.published_at,
	updated_at=excluded.updated_at, pmid=excluded.pmid, doi=excluded.doi,
	nct_id=excluded.nct_id, pmcid=excluded.pmcid, venue=excluded.venue,
	authors=excluded.authors, abstract_or_text=excluded.abstract_or_text,
	conditions=excluded.conditions, interventions=excluded.interventions,
	study_type=excluded.study_type, phase=excluded.phase,
	primary_endpoints=excluded.primary_endpoints, status=excluded.status,
	score=excluded.score, score_explain_json=excluded.score_explain_json,
	summary_text=excluded.summary_text, citations=excluded.citations,
	citations_source=excluded.citations_source,
	full_text_source=excluded.full_text_source,
	last_seen_at=excluded.last_seen_at
RETURNING id`

// UpsertItems writes items in one transaction keyed by fingerprint. An
// existing row takes the new scope, mode and content but keeps its id and
// created_at. The returned ids are in input order.
func (s *Store) UpsertItems(ctx context.Context, items []types.Item) ([]int64, error) {
	if len(items) == 0 {
		return nil, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, upsertItemSQL)
	if err != nil {
		return nil, fmt.Errorf("preparing upsert: %w", err)
	}
	defer stmt.Close()

	now := s.stamp()
	ids := make([]int64, 0, len(items))
	for _, it := range items {
		if it.Fingerprint == "" {
			return nil, fmt.Errorf("item %q has no fingerprint", it.Title)
		}
		explain := it.ScoreExplain
		if explain == nil {
			explain = []string{}
		}
		explainJSON, err := json.Marshal(explain)
		if err != nil {
			return nil, fmt.Errorf("encoding explanation: %w", err)
		}
		var citations sql.NullInt64
		if it.Citations != nil {
			citations = sql.NullInt64{Int64: int64(*it.Citations), Valid: true}
		}

		var id int64
		err = stmt.QueryRowContext(ctx,
			it.Scope.Specialty, it.Scope.Subcategory, it.ModeName, it.Source, it.Title,
			it.URL, it.PublishedAt, it.UpdatedAt, it.PMID, it.DOI, it.NCTID, it.PMCID,
			it.Venue, it.Authors, it.AbstractOrText, it.Conditions, it.Interventions,
			it.StudyType, it.Phase, it.PrimaryEndpoints, it.Status, it.Score,
			string(explainJSON), it.SummaryText, citations, it.CitationsSource,
			it.FullTextSource, it.Fingerprint, now, now,
		).Scan(&id)
		if err != nil {
			return nil, fmt.Errorf("upserting %s: %w", it.Fingerprint, err)
		}
		ids = append(ids, id)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing items: %w", err)
	}
	return ids, nil
}

func itemSelect() sq.SelectBuilder {
	return sq.Select(itemColumns...).
		From("items i").
		LeftJoin("notes n ON n.item_id = i.id")
}

// Items returns ranked items matching f.
func (s *Store) Items(ctx context.Context, f ItemFilter) ([]types.Item, error) {
	b := itemSelect()
	if f.Scope.Specialty != "" {
		b = b.Where(sq.Eq{"i.specialty": f.Scope.Specialty, "i.subcategory": f.Scope.Subcategory})
	}
	if len(f.ExcludeSources) > 0 {
		b = b.Where(sq.NotEq{"i.source": f.ExcludeSources})
	}
	if len(f.Sources) > 0 {
		b = b.Where(sq.Eq{"i.source": f.Sources})
	}
	if f.StarredOnly {
		b = b.Where(sq.Eq{"n.starred": 1})
	}

	switch f.Order {
	case OrderCited:
		b = b.OrderBy("COALESCE(i.citations, 0) DESC", "i.score DESC", "i.published_at DESC")
	case OrderRecent:
		b = b.OrderBy("i.published_at DESC", "i.score DESC")
	default:
		b = b.OrderBy("i.score DESC", "i.published_at DESC")
	}
	b = b.OrderBy("i.id ASC")

	limit := f.Limit
	if limit <= 0 {
		limit = DefaultItemLimit
	}
	b = b.Limit(uint64(limit))

	rows, err := selectRows(ctx, s.db, b)
	if err != nil {
		return nil, fmt.Errorf("querying items: %w", err)
	}
	defer rows.Close()

	var out []types.Item
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

// Item loads one item by id.
func (s *Store) Item(ctx context.Context, id int64) (*types.Item, error) {
	rows, err := selectRows(ctx, s.db, itemSelect().Where(sq.Eq{"i.id": id}))
	if err != nil {
		return nil, fmt.Errorf("querying item %d: %w", id, err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("item %d: %w", id, ErrNotFound)
	}
	it, err := scanItem(rows)
	if err != nil {
		return nil, err
	}
	return &it, nil
}

// CountItems returns the number of items stored under scope.
func (s *Store) CountItems(ctx context.Context, scope types.Scope) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT count(*) FROM items WHERE specialty = ? AND subcategory = ?`,
		scope.Specialty, scope.Subcategory,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting items: %w", err)
	}
	return n, nil
}

// ClearScope deletes the items and notes of one scope, returning the
// number of items removed.
func (s *Store) ClearScope(ctx context.Context, scope types.Scope) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM notes WHERE item_id IN (SELECT id FROM items WHERE specialty = ? AND subcategory = ?)`,
		scope.Specialty, scope.Subcategory,
	); err != nil {
		return 0, fmt.Errorf("clearing notes: %w", err)
	}
	res, err := tx.ExecContext(ctx,
		`DELETE FROM items WHERE specialty = ? AND subcategory = ?`,
		scope.Specialty, scope.Subcategory,
	)
	if err != nil {
		return 0, fmt.Errorf("clearing items: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, tx.Commit()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(r rowScanner) (types.Item, error) {
	var (
		it          types.Item
		explainJSON string
		citations   sql.NullInt64
		created     string
		lastSeen    string
		starred     int
	)
	err := r.Scan(
		&it.ID, &it.Scope.Specialty, &it.Scope.Subcategory, &it.ModeName, &it.Source,
		&it.Title, &it.URL, &it.PublishedAt, &it.UpdatedAt, &it.PMID, &it.DOI,
		&it.NCTID, &it.PMCID, &it.Venue, &it.Authors, &it.AbstractOrText,
		&it.Conditions, &it.Interventions, &it.StudyType, &it.Phase,
		&it.PrimaryEndpoints, &it.Status, &it.Score, &explainJSON, &it.SummaryText,
		&citations, &it.CitationsSource, &it.FullTextSource, &it.Fingerprint,
		&created, &lastSeen, &starred, &it.Note,
	)
	if err != nil {
		return it, fmt.Errorf("scanning item: %w", err)
	}
	if err := json.Unmarshal([]byte(explainJSON), &it.ScoreExplain); err != nil {
		return it, fmt.Errorf("decoding explanation for item %d: %w", it.ID, err)
	}
	if citations.Valid {
		c := int(citations.Int64)
		it.Citations = &c
	}
	it.CreatedAt = parseTime(created)
	it.LastSeenAt = parseTime(lastSeen)
	it.Starred = starred != 0
	return it, nil
}

// ExportYAML writes the items matching f to w as a YAML list.
func (s *Store) ExportYAML(ctx context.Context, w io.Writer, f ItemFilter) error {
	items, err := s.Items(ctx, f)
	if err != nil {
		return err
	}
	if items == nil {
		items = []types.Item{}
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(items); err != nil {
		return fmt.Errorf("marshaling YAML: %w", err)
	}
	return enc.Close()
}

// isNoRows reports whether err is sql.ErrNoRows.
func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
