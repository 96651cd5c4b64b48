package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"lf-playbook/internal/domain"
	"lf-playbook/internal/playbook"
)

// SnapshotStore loads and saves the last known deployed state.
type SnapshotStore interface {
	Load(ctx context.Context, accountID, region string) (*playbook.State, error)
	Save(ctx context.Context, accountID, region string, state *playbook.State) (string, error)
}

// RunRecorder records run history.
type RunRecorder interface {
	Create(ctx context.Context, run *domain.Run) error
	Finish(ctx context.Context, run *domain.Run, outcomes []domain.RunOutcome) error
}

// Runner drives one reconciliation: load deployed, diff, apply, persist.
type Runner struct {
	engine    *Engine
	snapshots SnapshotStore
	recorder  RunRecorder
	logger    *slog.Logger
	now       func() time.Time
}

// NewRunner creates a Runner. recorder may be nil, and so may engine for a
// Runner that only plans.
func NewRunner(engine *Engine, snapshots SnapshotStore, recorder RunRecorder, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{engine: engine, snapshots: snapshots, recorder: recorder, logger: logger, now: time.Now}
}

// Result is the outcome of an applied run.
type Result struct {
	RunID    string
	Plan     *Plan
	Report   *Report
	Deployed *playbook.State
	Digest   string
}

// Plan diffs the playbook against the last known deployed state.
func (r *Runner) Plan(ctx context.Context, pb *playbook.Playbook) (*Plan, error) {
	deployed, err := r.snapshots.Load(ctx, pb.AccountID, pb.Region)
	if err != nil {
		return nil, fmt.Errorf("load deployed state: %w", err)
	}
	return NewPlan(pb.Desired(), deployed), nil
}

// Apply reconciles the playbook and persists a snapshot holding exactly the
// deployed items plus the creates that were applied minus the removes that
// were applied. Item failures are reported, not returned; the error is
// non-nil only when deployed state cannot be loaded or saved.
func (r *Runner) Apply(ctx context.Context, pb *playbook.Playbook) (*Result, error) {
	deployed, err := r.snapshots.Load(ctx, pb.AccountID, pb.Region)
	if err != nil {
		return nil, fmt.Errorf("load deployed state: %w", err)
	}
	plan := NewPlan(pb.Desired(), deployed)

	run := &domain.Run{
		ID:        domain.NewID(),
		AccountID: pb.AccountID,
		Region:    pb.Region,
		Status:    domain.RunStatusRunning,
		StartedAt: r.now(),
	}
	logger := r.logger.With("run_id", run.ID)
	if r.recorder != nil {
		if err := r.recorder.Create(ctx, run); err != nil {
			return nil, fmt.Errorf("record run: %w", err)
		}
	}

	summary := plan.Summary()
	logger.Info("applying plan", "creates", summary.Creates, "removes", summary.Removes,
		"unchanged", summary.Unchanged, "batch_size", r.engine.BatchSize())

	report := r.engine.Apply(ctx, plan)
	next := NextDeployed(pb.Desired(), deployed, report)

	// Applied items must be persisted even after the run context expires.
	digest, saveErr := r.snapshots.Save(context.WithoutCancel(ctx), pb.AccountID, pb.Region, next)

	counts := report.Summary()
	finished := r.now()
	run.FinishedAt = &finished
	run.Applied, run.Failed, run.Skipped = counts.Applied, counts.Failed, counts.Skipped
	run.SnapshotDigest = digest
	run.Status = report.Status()
	if saveErr != nil {
		run.Status = domain.RunStatusFailed
	}
	if r.recorder != nil {
		if err := r.recorder.Finish(context.WithoutCancel(ctx), run, report.RunOutcomes()); err != nil {
			logger.Error("record run outcome", "error", err)
		}
	}
	if saveErr != nil {
		return nil, fmt.Errorf("save deployed state: %w", saveErr)
	}

	logger.Info("run finished", "status", string(run.Status), "applied", counts.Applied,
		"failed", counts.Failed, "skipped", counts.Skipped, "digest", digest)
	return &Result{RunID: run.ID, Plan: plan, Report: report, Deployed: next, Digest: digest}, nil
}

// NextDeployed returns the deployed state after a run. It starts from
// deployed, drops removes that were applied or found already gone, and adds
// creates that were applied. Failed items leave deployed state as it was.
// Resources are taken from desired.
func NextDeployed(desired, deployed *playbook.State, report *Report) *playbook.State {
	next := playbook.NewState()
	for _, res := range desired.Resources.Items() {
		_ = next.Resources.Add(res)
	}
	carry(next.Grants, deployed.Grants, desired.Grants,
		report.Settled(domain.KindGrant, OpRemove), report.Applied(domain.KindGrant, OpCreate))
	carry(next.TagAttachments, deployed.TagAttachments, desired.TagAttachments,
		report.Settled(domain.KindTagAttachment, OpRemove), report.Applied(domain.KindTagAttachment, OpCreate))
	return next
}

func carry[T domain.Entity](into, deployed, desired *domain.Collection[T], removed, created map[string]bool) {
	for _, item := range deployed.Items() {
		if !removed[item.ID()] {
			_ = into.Add(item)
		}
	}
	for _, item := range desired.Items() {
		if created[item.ID()] && !into.Has(item.ID()) {
			_ = into.Add(item)
		}
	}
}
