package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"lf-playbook/internal/collector"
	"lf-playbook/internal/playbook"
)

func newExportCmd(env *environment) *cobra.Command {
	var (
		outFile   string
		overwrite bool
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the account's principals and resources as a playbook",
		Long:  "Lists IAM principals, Glue catalog objects, data lake locations, data cells filters and LF-Tags, and writes them as a playbook with no grants or attachments.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := env.load(cmd.ErrOrStderr()); err != nil {
				return err
			}
			defer env.close()
			ctx := cmd.Context()

			if outFile != "" && !overwrite {
				if _, err := os.Stat(outFile); err == nil {
					return fmt.Errorf("%s exists; use --overwrite to replace it", outFile)
				}
			}

			session, err := env.session(ctx)
			if err != nil {
				return err
			}
			snap, err := collector.Collect(ctx, session, collector.Options{
				PageSize:    env.cfg.PageSize,
				Concurrency: env.cfg.CollectConcurrency,
				Logger:      env.logger,
			})
			if err != nil {
				return fmt.Errorf("collect deployed state: %w", err)
			}

			doc := playbook.ExportDoc(snap.AccountID, snap.Region, snap.Principals.Items(), snap.Resources.Items())
			data, err := playbook.MarshalDoc(doc)
			if err != nil {
				return err
			}

			if outFile == "" {
				_, err := cmd.OutOrStdout().Write(data)
				return err
			}
			if err := os.WriteFile(outFile, data, 0o600); err != nil {
				return fmt.Errorf("write %s: %w", outFile, err)
			}
			if getOutputFormat(cmd) == "json" {
				return printJSON(cmd.OutOrStdout(), map[string]any{
					"status":     "ok",
					"path":       outFile,
					"principals": snap.Principals.Len(),
					"resources":  snap.Resources.Len(),
				})
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Exported %d principals and %d resources to %s\n",
				snap.Principals.Len(), snap.Resources.Len(), outFile)
			return nil
		},
	}

	cmd.Flags().StringVar(&outFile, "out", "", "Write the playbook to this file instead of stdout")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Overwrite an existing output file")

	return cmd
}
