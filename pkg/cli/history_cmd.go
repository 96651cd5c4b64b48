package cli

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"lf-playbook/internal/domain"
)

func newHistoryCmd(env *environment) *cobra.Command {
	var (
		account string
		limit   int
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List past apply runs",
		Long:  "Lists apply runs recorded in the workspace history database, newest first.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := env.load(cmd.ErrOrStderr()); err != nil {
				return err
			}
			defer env.close()
			if account == "" {
				return fmt.Errorf("--account is required")
			}
			if env.cfg.AWSRegion == "" {
				return fmt.Errorf("region is required (--region or AWS_REGION)")
			}

			runs, err := env.runs()
			if err != nil {
				return err
			}
			list, err := runs.List(cmd.Context(), account, env.cfg.AWSRegion, limit)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if getOutputFormat(cmd) == "json" {
				return printJSON(out, list)
			}
			if len(list) == 0 {
				_, _ = fmt.Fprintln(out, "No runs recorded.")
				return nil
			}
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			_, _ = fmt.Fprintln(tw, "RUN\tSTATUS\tSTARTED\tAPPLIED\tFAILED\tSKIPPED\tSNAPSHOT")
			for _, r := range list {
				_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\t%s\n",
					r.ID, r.Status, r.StartedAt.Local().Format(time.DateTime),
					r.Applied, r.Failed, r.Skipped, shortDigest(r.SnapshotDigest))
			}
			return tw.Flush()
		},
	}

	cmd.Flags().StringVar(&account, "account", "", "Account id whose runs to list (required)")
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of runs (0 for all)")

	cmd.AddCommand(newHistoryShowCmd(env))

	return cmd
}

func newHistoryShowCmd(env *environment) *cobra.Command {
	return &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show the per-item outcomes of a run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := env.load(cmd.ErrOrStderr()); err != nil {
				return err
			}
			defer env.close()

			runs, err := env.runs()
			if err != nil {
				return err
			}
			run, err := runs.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			outcomes, err := runs.Outcomes(cmd.Context(), run.ID)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if getOutputFormat(cmd) == "json" {
				return printJSON(out, struct {
					Run      *domain.Run         `json:"run"`
					Outcomes []domain.RunOutcome `json:"outcomes"`
				}{run, outcomes})
			}
			_, _ = fmt.Fprintf(out, "Run %s (%s/%s): %s, %d applied, %d failed, %d skipped\n",
				run.ID, run.AccountID, run.Region, run.Status, run.Applied, run.Failed, run.Skipped)
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			_, _ = fmt.Fprintln(tw, "KIND\tOPERATION\tSTATUS\tITEM\tERROR")
			for _, o := range outcomes {
				_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", o.Kind, o.Operation, o.Status, o.ItemID, o.Error)
			}
			return tw.Flush()
		},
	}
}
