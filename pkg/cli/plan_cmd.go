package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"lf-playbook/internal/playbook"
	"lf-playbook/internal/reconcile"
)

const defaultPlaybookFile = "playbook.yaml"

func newPlanCmd(env *environment) *cobra.Command {
	var (
		file    string
		noColor bool
	)

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Show changes required to match the playbook",
		Long:  "Reads the playbook, compares it with the last deployed snapshot, and shows the grants and tag attachments to create or remove. Exits 2 when there are changes.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := env.load(cmd.ErrOrStderr()); err != nil {
				return err
			}
			defer env.close()

			// 1. Load desired state.
			pb, err := playbook.LoadFile(file)
			if err != nil {
				return fmt.Errorf("load playbook: %w", err)
			}

			// 2. Diff against deployed state.
			snaps, err := env.snapshots(cmd.Context())
			if err != nil {
				return err
			}
			plan, err := reconcile.NewRunner(nil, snaps, nil, env.logger).Plan(cmd.Context(), pb)
			if err != nil {
				return err
			}

			// 3. Format output.
			out := cmd.OutOrStdout()
			switch getOutputFormat(cmd) {
			case "json":
				if err := reconcile.FormatJSON(out, plan); err != nil {
					return fmt.Errorf("format plan: %w", err)
				}
			default:
				reconcile.FormatText(out, plan, noColor)
			}

			// 4. Exit code 2 if there are changes (useful for CI).
			if plan.HasChanges() {
				return &exitError{code: 2}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", defaultPlaybookFile, "Path to the playbook YAML")
	cmd.Flags().BoolVar(&noColor, "no-color", false, "Disable colored output")

	return cmd
}
