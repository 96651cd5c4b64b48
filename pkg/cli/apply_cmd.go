package cli

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"lf-playbook/internal/playbook"
	"lf-playbook/internal/reconcile"
)

func newApplyCmd(env *environment) *cobra.Command {
	var (
		file        string
		autoApprove bool
		noColor     bool
	)

	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Apply the playbook to the account",
		Long:  "Reads the playbook, compares it with the last deployed snapshot, applies the changes in batches and saves a snapshot of what was applied.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := env.load(cmd.ErrOrStderr()); err != nil {
				return err
			}
			defer env.close()
			ctx := cmd.Context()
			out := cmd.OutOrStdout()
			isJSON := getOutputFormat(cmd) == "json"

			// 1. Load desired state.
			pb, err := playbook.LoadFile(file)
			if err != nil {
				return fmt.Errorf("load playbook: %w", err)
			}

			// 2. Connect and check the credentials target the playbook's account.
			session, err := env.session(ctx)
			if err != nil {
				return err
			}
			if session.AccountID != pb.AccountID || session.Region != pb.Region {
				return fmt.Errorf("playbook targets %s/%s but credentials resolve to %s/%s",
					pb.AccountID, pb.Region, session.AccountID, session.Region)
			}

			snaps, err := env.snapshots(ctx)
			if err != nil {
				return err
			}
			runs, err := env.runs()
			if err != nil {
				return err
			}
			engine := reconcile.NewEngine(session.Mutator, env.cfg.BatchSize, env.logger)
			runner := reconcile.NewRunner(engine, snaps, runs, env.logger)

			// 3. Show the plan.
			plan, err := runner.Plan(ctx, pb)
			if err != nil {
				return err
			}
			if !isJSON {
				reconcile.FormatText(out, plan, noColor)
			}
			if !plan.HasChanges() {
				if isJSON {
					return reconcile.FormatReportJSON(out, &reconcile.Report{})
				}
				return nil
			}

			// 4. Confirm unless auto-approved.
			if !autoApprove {
				if !isStdinTTY() {
					return fmt.Errorf("confirmation required but stdin is not a terminal; use --auto-approve")
				}
				_, _ = fmt.Fprint(out, "\nApply these changes? [y/N] ")
				answer, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil {
					return fmt.Errorf("read confirmation: %w", err)
				}
				answer = strings.TrimSpace(strings.ToLower(answer))
				if answer != "y" && answer != "yes" {
					_, _ = fmt.Fprintln(out, "Apply cancelled.")
					return nil
				}
			}

			// 5. Apply and persist.
			res, err := runner.Apply(ctx, pb)
			if err != nil {
				return err
			}
			if isJSON {
				if err := reconcile.FormatReportJSON(out, res.Report); err != nil {
					return err
				}
			} else {
				_, _ = fmt.Fprintln(out)
				reconcile.FormatReport(out, res.Report, noColor)
				_, _ = fmt.Fprintf(out, "Run %s saved snapshot %s\n", res.RunID, shortDigest(res.Digest))
			}
			if res.Report.Summary().Failed > 0 {
				return &exitError{code: 1}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", defaultPlaybookFile, "Path to the playbook YAML")
	cmd.Flags().BoolVar(&autoApprove, "auto-approve", false, "Skip interactive confirmation prompt")
	cmd.Flags().BoolVar(&noColor, "no-color", false, "Disable colored output")

	return cmd
}

func shortDigest(d string) string {
	if len(d) > 12 {
		return d[:12]
	}
	return d
}
