package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"lf-playbook/internal/backend"
	"lf-playbook/internal/domain"
	"lf-playbook/internal/mapper"
)

// MaxBatchSize is the largest batch the backend accepts.
const MaxBatchSize = 20

// Engine applies a plan through a backend mutator.
type Engine struct {
	mutator   backend.Mutator
	batchSize int
	logger    *slog.Logger
}

// NewEngine creates an Engine. batchSize is clamped to [1, MaxBatchSize].
func NewEngine(mutator backend.Mutator, batchSize int, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		mutator:   mutator,
		batchSize: max(1, min(batchSize, MaxBatchSize)),
		logger:    logger,
	}
}

// BatchSize returns the effective batch size.
func (e *Engine) BatchSize() int { return e.batchSize }

// Apply issues every planned change and reports each item. Batches are
// independent: a failed batch marks its items failed and the run goes on.
func (e *Engine) Apply(ctx context.Context, plan *Plan) *Report {
	report := &Report{}
	report.Results = append(report.Results, applyKind(ctx, e, domain.KindTagAttachment, OpCreate, backend.OpAddTags,
		plan.TagAttachments.ToCreate, mapTagAttachment, DescribeTagAttachment)...)
	report.Results = append(report.Results, applyKind(ctx, e, domain.KindGrant, OpCreate, backend.OpGrant,
		plan.Grants.ToCreate, mapper.GrantEntry, DescribeGrant)...)
	report.Results = append(report.Results, applyKind(ctx, e, domain.KindGrant, OpRemove, backend.OpRevoke,
		plan.Grants.ToRemove, mapper.GrantEntry, DescribeGrant)...)
	report.Results = append(report.Results, applyKind(ctx, e, domain.KindTagAttachment, OpRemove, backend.OpRemoveTags,
		plan.TagAttachments.ToRemove, mapTagAttachment, DescribeTagAttachment)...)
	return report
}

func mapTagAttachment(_ string, a *domain.TagAttachment) (mapper.TagEntryArg, error) {
	return mapper.TagEntry(a)
}

func applyKind[T domain.Association, A any](
	ctx context.Context,
	e *Engine,
	kind domain.AssociationKind,
	op Operation,
	mop backend.MutationOp,
	items []T,
	mapFn func(entryID string, item T) (A, error),
	describe func(T) string,
) []ItemResult {
	var results []ItemResult
	for batchNo, batch := range Chunk(items, e.batchSize) {
		// Entry ids are positions within the batch.
		batchResults := make([]ItemResult, len(batch))
		var entries []backend.Entry
		failed := 0
		for i, item := range batch {
			batchResults[i] = ItemResult{
				Kind: kind, Operation: op, ID: item.ID(), Name: describe(item),
				Batch: batchNo, Outcome: OutcomeApplied,
			}
			args, err := mapFn(strconv.Itoa(i), item)
			if err != nil {
				batchResults[i].Outcome = OutcomeFailed
				batchResults[i].Reason = err.Error()
				failed++
				continue
			}
			entries = append(entries, backend.Entry{ID: strconv.Itoa(i), Args: args})
		}

		switch {
		case len(entries) == 0:
		case ctx.Err() != nil:
			failed += failEntries(batchResults, entries, fmt.Errorf("%s %s batch %d not sent: %w", kind, op, batchNo, ctx.Err()))
		default:
			failures, err := e.mutator.Mutate(ctx, mop, entries)
			if err != nil {
				failed += failEntries(batchResults, entries, fmt.Errorf("%s %s batch %d: %w", kind, op, batchNo, err))
				break
			}
			for _, f := range failures {
				i, convErr := strconv.Atoi(f.ID)
				if convErr != nil || i < 0 || i >= len(batch) {
					e.logger.Warn("backend reported failure for unknown entry", "kind", kind.String(),
						"op", op.String(), "batch", batchNo, "entry", f.ID, "error", f.Error())
					continue
				}
				if f.IsNotFound() {
					batchResults[i].Outcome = OutcomeSkipped
				} else {
					batchResults[i].Outcome = OutcomeFailed
					failed++
				}
				batchResults[i].Reason = f.Error()
			}
		}

		level := slog.LevelInfo
		if failed > 0 {
			level = slog.LevelWarn
		}
		e.logger.Log(ctx, level, "applied batch", "kind", kind.String(), "op", op.String(),
			"batch", batchNo, "size", len(batch), "failed", failed)
		results = append(results, batchResults...)
	}
	return results
}

// failEntries marks every sent entry of a batch failed with err.
func failEntries(results []ItemResult, entries []backend.Entry, err error) int {
	for _, en := range entries {
		i, _ := strconv.Atoi(en.ID)
		results[i].Outcome = OutcomeFailed
		results[i].Reason = err.Error()
	}
	return len(entries)
}
