package reconcile

import "lf-playbook/internal/domain"

// Outcome is the result of one attempted item.
type Outcome string

// Item outcomes.
const (
	OutcomeApplied Outcome = "applied"
	OutcomeFailed  Outcome = "failed"
	OutcomeSkipped Outcome = "skipped"
)

// ItemResult records what happened to one planned item.
type ItemResult struct {
	Kind      domain.AssociationKind
	Operation Operation
	ID        string
	Name      string
	Batch     int
	Outcome   Outcome
	Reason    string
}

// Report collects item results in the order they were attempted.
type Report struct {
	Results []ItemResult
}

// ReportSummary counts item outcomes.
type ReportSummary struct {
	Applied int `json:"applied"`
	Failed  int `json:"failed"`
	Skipped int `json:"skipped"`
}

// Summary counts outcomes across the report.
func (r *Report) Summary() ReportSummary {
	var s ReportSummary
	for _, res := range r.Results {
		switch res.Outcome {
		case OutcomeApplied:
			s.Applied++
		case OutcomeFailed:
			s.Failed++
		case OutcomeSkipped:
			s.Skipped++
		}
	}
	return s
}

// Applied returns the ids of applied items of one kind and operation.
func (r *Report) Applied(kind domain.AssociationKind, op Operation) map[string]bool {
	out := make(map[string]bool)
	for _, res := range r.Results {
		if res.Kind == kind && res.Operation == op && res.Outcome == OutcomeApplied {
			out[res.ID] = true
		}
	}
	return out
}

// Settled returns the ids of items of one kind and operation whose target
// state now holds: applied items and items skipped because the target was
// already gone.
func (r *Report) Settled(kind domain.AssociationKind, op Operation) map[string]bool {
	out := make(map[string]bool)
	for _, res := range r.Results {
		if res.Kind == kind && res.Operation == op &&
			(res.Outcome == OutcomeApplied || res.Outcome == OutcomeSkipped) {
			out[res.ID] = true
		}
	}
	return out
}

// Status condenses the report into a run status.
func (r *Report) Status() domain.RunStatus {
	s := r.Summary()
	switch {
	case s.Failed == 0:
		return domain.RunStatusSucceeded
	case s.Applied == 0 && s.Skipped == 0:
		return domain.RunStatusFailed
	default:
		return domain.RunStatusPartial
	}
}

// RunOutcomes converts the report into recorded outcomes.
func (r *Report) RunOutcomes() []domain.RunOutcome {
	out := make([]domain.RunOutcome, 0, len(r.Results))
	for _, res := range r.Results {
		out = append(out, domain.RunOutcome{
			Kind:      res.Kind,
			Operation: res.Operation.String(),
			ItemID:    res.ID,
			Status:    string(res.Outcome),
			Error:     res.Reason,
		})
	}
	return out
}
