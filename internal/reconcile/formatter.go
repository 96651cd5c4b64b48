package reconcile

import (
	"encoding/json"
	"fmt"
	"io"
)

// ANSI color codes.
const (
	colorReset  = "\033[0m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorRed    = "\033[31m"
	colorCyan   = "\033[36m"
	colorDim    = "\033[2m"
)

func colorizer(noColor bool) func(string) string {
	return func(code string) string {
		if noColor {
			return ""
		}
		return code
	}
}

// FormatText writes a human-readable plan to w.
// If noColor is true, ANSI codes are suppressed.
func FormatText(w io.Writer, plan *Plan, noColor bool) {
	c := colorizer(noColor)

	if !plan.HasChanges() {
		fmt.Fprintln(w, "No changes. Deployed state is up-to-date.")
		return
	}

	var section string
	for _, a := range plan.Actions() {
		if s := a.Kind.String(); s != section {
			section = s
			fmt.Fprintf(w, "\n%s# %ss%s\n", c(colorCyan), s, c(colorReset))
		}
		switch a.Operation {
		case OpCreate:
			fmt.Fprintf(w, "  %s+%s %s will be created\n", c(colorGreen), c(colorReset), a.Name)
		case OpRemove:
			fmt.Fprintf(w, "  %s-%s %s will be removed\n", c(colorRed), c(colorReset), a.Name)
		}
		fmt.Fprintf(w, "      %sid: %s%s\n", c(colorDim), a.ID, c(colorReset))
	}

	s := plan.Summary()
	fmt.Fprintf(w, "\n%sPlan:%s %d to create, %d to remove, %d unchanged.\n",
		c(colorDim), c(colorReset), s.Creates, s.Removes, s.Unchanged)
}

type jsonAction struct {
	Operation string `json:"operation"`
	Kind      string `json:"kind"`
	ID        string `json:"id"`
	Name      string `json:"name"`
}

// FormatJSON writes the plan as JSON to w.
func FormatJSON(w io.Writer, plan *Plan) error {
	type jsonPlan struct {
		Actions []jsonAction `json:"actions"`
		Summary PlanSummary  `json:"summary"`
	}

	actions := plan.Actions()
	jp := jsonPlan{Actions: make([]jsonAction, 0, len(actions)), Summary: plan.Summary()}
	for _, a := range actions {
		jp.Actions = append(jp.Actions, jsonAction{
			Operation: a.Operation.String(),
			Kind:      a.Kind.String(),
			ID:        a.ID,
			Name:      a.Name,
		})
	}
	return writeJSON(w, jp, "plan")
}

// FormatReport writes per-item outcomes and a summary to w.
func FormatReport(w io.Writer, report *Report, noColor bool) {
	c := colorizer(noColor)

	for _, r := range report.Results {
		var mark, color string
		switch r.Outcome {
		case OutcomeApplied:
			mark, color = "✓", colorGreen
		case OutcomeSkipped:
			mark, color = "~", colorYellow
		default:
			mark, color = "✗", colorRed
		}
		fmt.Fprintf(w, "  %s%s%s %s %s %s", c(color), mark, c(colorReset), r.Operation, r.Kind, r.Name)
		if r.Reason != "" {
			fmt.Fprintf(w, ": %s", r.Reason)
		}
		fmt.Fprintln(w)
	}

	s := report.Summary()
	fmt.Fprintf(w, "\n%sApply:%s %d applied, %d failed, %d skipped.\n",
		c(colorDim), c(colorReset), s.Applied, s.Failed, s.Skipped)
}

// FormatReportJSON writes the report as JSON to w.
func FormatReportJSON(w io.Writer, report *Report) error {
	type jsonResult struct {
		jsonAction
		Batch   int    `json:"batch"`
		Outcome string `json:"outcome"`
		Reason  string `json:"reason,omitempty"`
	}
	type jsonReport struct {
		Results []jsonResult  `json:"results"`
		Summary ReportSummary `json:"summary"`
	}

	jr := jsonReport{Results: make([]jsonResult, 0, len(report.Results)), Summary: report.Summary()}
	for _, r := range report.Results {
		jr.Results = append(jr.Results, jsonResult{
			jsonAction: jsonAction{Operation: r.Operation.String(), Kind: r.Kind.String(), ID: r.ID, Name: r.Name},
			Batch:      r.Batch,
			Outcome:    string(r.Outcome),
			Reason:     r.Reason,
		})
	}
	return writeJSON(w, jr, "report")
}

func writeJSON(w io.Writer, v any, what string) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", what, err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write %s: %w", what, err)
	}
	_, err = fmt.Fprintln(w)
	return err
}
