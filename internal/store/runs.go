// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/pdiddy/oncopulse/internal/ledger"
	"github.com/pdiddy/oncopulse/pkg/types"
)

// DefaultRunLimit caps Runs when the filter leaves Limit at zero.
const DefaultRunLimit = 50

// RunFilter narrows a Runs query. Zero fields match everything.
type RunFilter struct {
	Scope  types.Scope
	Status types.RunStatus
	Limit  int
}

var runColumns = []string{
	"id", "uuid", "specialty", "subcategory", "mode_name", "sources_key",
	"resolved_days_back", "force_full_refresh", "started_at",
	"COALESCE(finished_at, '')", "status", "ingested_count", "deduped_count",
	"error_text",
}

// CreateRun inserts a running record for r and returns it with ID, UUID
// and StartedAt filled in.
func (s *Store) CreateRun(ctx context.Context, r types.RunRecord) (types.RunRecord, error) {
	r.UUID = uuid.NewString()
	r.Status = types.RunRunning
	r.StartedAt = s.now().UTC()
	r.FinishedAt = time.Time{}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO run_history
			(uuid, specialty, subcategory, mode_name, sources_key, resolved_days_back,
			 force_full_refresh, started_at, status)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.UUID, r.Scope.Specialty, r.Scope.Subcategory, r.ModeName, r.SourcesKey,
		r.ResolvedDaysBack, r.ForceFullRefresh, formatTime(r.StartedAt), string(r.Status),
	)
	if err != nil {
		return r, fmt.Errorf("creating run: %w", err)
	}
	r.ID, err = res.LastInsertId()
	if err != nil {
		return r, fmt.Errorf("reading run id: %w", err)
	}
	return r, nil
}

// FinishRun moves a running record to a terminal status. It refuses
// records that are already finished.
func (s *Store) FinishRun(ctx context.Context, id int64, status types.RunStatus, ingested, deduped int, errText string) error {
	if !status.Terminal() {
		return fmt.Errorf("finishing run %d: %q is not a terminal status", id, status)
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE run_history
		 SET finished_at = ?, status = ?, ingested_count = ?, deduped_count = ?, error_text = ?
		 WHERE id = ? AND status = ?`,
		s.stamp(), string(status), ingested, deduped, errText, id, string(types.RunRunning),
	)
	if err != nil {
		return fmt.Errorf("finishing run %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 1 {
		return nil
	}
	if _, err := s.Run(ctx, id); err != nil {
		return err
	}
	return fmt.Errorf("run %d: %w", id, ErrRunFinished)
}

// Run loads one run record.
func (s *Store) Run(ctx context.Context, id int64) (*types.RunRecord, error) {
	runs, err := s.queryRuns(ctx, sq.Select(runColumns...).From("run_history").Where(sq.Eq{"id": id}))
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, fmt.Errorf("run %d: %w", id, ErrNotFound)
	}
	return &runs[0], nil
}

// LastSuccessfulRun implements ledger.Lookup. Only runs whose scope, mode
// and sources key all match are considered.
func (s *Store) LastSuccessfulRun(ctx context.Context, key ledger.Key) (*types.RunRecord, error) {
	b := sq.Select(runColumns...).
		From("run_history").
		Where(sq.Eq{
			"specialty":   key.Scope.Specialty,
			"subcategory": key.Scope.Subcategory,
			"mode_name":   key.ModeName,
			"sources_key": key.SourcesKey,
			"status":      string(types.RunSuccess),
		}).
		OrderBy("COALESCE(finished_at, started_at) DESC", "id DESC").
		Limit(1)

	runs, err := s.queryRuns(ctx, b)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, nil
	}
	return &runs[0], nil
}

// Runs lists run history, newest first.
func (s *Store) Runs(ctx context.Context, f RunFilter) ([]types.RunRecord, error) {
	b := sq.Select(runColumns...).From("run_history")
	if f.Scope.Specialty != "" {
		b = b.Where(sq.Eq{"specialty": f.Scope.Specialty, "subcategory": f.Scope.Subcategory})
	}
	if f.Status != "" {
		b = b.Where(sq.Eq{"status": string(f.Status)})
	}
	limit := f.Limit
	if limit <= 0 {
		limit = DefaultRunLimit
	}
	return s.queryRuns(ctx, b.OrderBy("started_at DESC", "id DESC").Limit(uint64(limit)))
}

func (s *Store) queryRuns(ctx context.Context, b sq.SelectBuilder) ([]types.RunRecord, error) {
	rows, err := selectRows(ctx, s.db, b)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var out []types.RunRecord
	for rows.Next() {
		var (
			r                 types.RunRecord
			status            string
			started, finished string
		)
		if err := rows.Scan(
			&r.ID, &r.UUID, &r.Scope.Specialty, &r.Scope.Subcategory, &r.ModeName,
			&r.SourcesKey, &r.ResolvedDaysBack, &r.ForceFullRefresh, &started, &finished,
			&status, &r.IngestedCount, &r.DedupedCount, &r.ErrorText,
		); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		r.Status = types.RunStatus(status)
		r.StartedAt = parseTime(started)
		r.FinishedAt = parseTime(finished)
		out = append(out, r)
	}
	return out, rows.Err()
}
