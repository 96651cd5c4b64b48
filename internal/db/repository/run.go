package repository

import (
	"context"
	"database/sql"
	"fmt"

	"lf-playbook/internal/domain"
)

// RunRepo records apply runs and their per-item outcomes.
type RunRepo struct {
	db *sql.DB
}

// NewRunRepo creates a RunRepo over a migrated database.
func NewRunRepo(db *sql.DB) *RunRepo {
	return &RunRepo{db: db}
}

// Create inserts a run in its initial state.
func (r *RunRepo) Create(ctx context.Context, run *domain.Run) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO runs (id, account_id, region, status, started_at) VALUES (?, ?, ?, ?, ?)`,
		run.ID, run.AccountID, run.Region, string(run.Status), formatTime(run.StartedAt))
	return mapDBError(err, "run", run.ID)
}

// Finish records the final counts, status and digest of a run together with
// its outcomes in one transaction.
func (r *RunRepo) Finish(ctx context.Context, run *domain.Run, outcomes []domain.RunOutcome) error {
	if run.FinishedAt == nil {
		return domain.ErrValidation("run %q: finished time is required", run.ID)
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	res, err := tx.ExecContext(ctx, `
		UPDATE runs SET status = ?, applied = ?, failed = ?, skipped = ?, snapshot_digest = ?, finished_at = ?
		WHERE id = ?`,
		string(run.Status), run.Applied, run.Failed, run.Skipped, run.SnapshotDigest,
		formatTime(*run.FinishedAt), run.ID)
	if err != nil {
		return mapDBError(err, "run", run.ID)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrNotFound("run %q not found", run.ID)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO run_outcomes (run_id, seq, kind, operation, item_id, status, error)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare outcome insert: %w", err)
	}
	defer stmt.Close()
	for i, o := range outcomes {
		if _, err := stmt.ExecContext(ctx, run.ID, i, o.Kind.String(), o.Operation, o.ItemID, o.Status, o.Error); err != nil {
			return fmt.Errorf("insert outcome %d of run %s: %w", i, run.ID, err)
		}
	}
	return tx.Commit()
}

// Get returns one run.
func (r *RunRepo) Get(ctx context.Context, id string) (*domain.Run, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, account_id, region, status, applied, failed, skipped, snapshot_digest, started_at, finished_at
		FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if err != nil {
		return nil, mapDBError(err, "run", id)
	}
	return run, nil
}

// List returns the most recent runs for an account and region, newest
// first. limit <= 0 returns all.
func (r *RunRepo) List(ctx context.Context, accountID, region string, limit int) ([]domain.Run, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, account_id, region, status, applied, failed, skipped, snapshot_digest, started_at, finished_at
		FROM runs WHERE account_id = ? AND region = ?
		ORDER BY started_at DESC, id DESC LIMIT ?`, accountID, region, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *run)
	}
	return out, rows.Err()
}

// Outcomes returns the outcomes of a run in recorded order.
func (r *RunRepo) Outcomes(ctx context.Context, runID string) ([]domain.RunOutcome, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT kind, operation, item_id, status, error
		FROM run_outcomes WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.RunOutcome
	for rows.Next() {
		var o domain.RunOutcome
		var kind string
		if err := rows.Scan(&kind, &o.Operation, &o.ItemID, &o.Status, &o.Error); err != nil {
			return nil, err
		}
		if o.Kind, err = domain.ParseAssociationKind(kind); err != nil {
			return nil, fmt.Errorf("run %s: %w", runID, err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (*domain.Run, error) {
	var (
		run      domain.Run
		status   string
		started  string
		finished sql.NullString
	)
	if err := s.Scan(&run.ID, &run.AccountID, &run.Region, &status, &run.Applied, &run.Failed,
		&run.Skipped, &run.SnapshotDigest, &started, &finished); err != nil {
		return nil, err
	}
	run.Status = domain.RunStatus(status)
	t, err := parseTime(started)
	if err != nil {
		return nil, fmt.Errorf("run %s: started_at: %w", run.ID, err)
	}
	run.StartedAt = t
	if finished.Valid {
		f, err := parseTime(finished.String)
		if err != nil {
			return nil, fmt.Errorf("run %s: finished_at: %w", run.ID, err)
		}
		run.FinishedAt = &f
	}
	return &run, nil
}
