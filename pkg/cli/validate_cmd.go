package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"lf-playbook/internal/playbook"
)

func newValidateCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a playbook offline",
		Long:  "Reads the playbook and checks it for errors without contacting AWS or reading deployed state.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			isJSON := getOutputFormat(cmd) == "json"

			pb, err := playbook.LoadFile(file)
			if err != nil {
				if isJSON {
					if err := printJSON(out, map[string]any{"valid": false, "error": err.Error()}); err != nil {
						return err
					}
					return &exitError{code: 1}
				}
				return fmt.Errorf("invalid playbook: %w", err)
			}

			s := pb.Desired()
			if isJSON {
				return printJSON(out, map[string]any{
					"valid":           true,
					"account_id":      pb.AccountID,
					"region":          pb.Region,
					"resources":       s.Resources.Len(),
					"grants":          s.Grants.Len(),
					"tag_attachments": s.TagAttachments.Len(),
				})
			}
			_, _ = fmt.Fprintf(out, "Playbook is valid: %d resources, %d grants, %d tag attachments for %s/%s.\n",
				s.Resources.Len(), s.Grants.Len(), s.TagAttachments.Len(), pb.AccountID, pb.Region)
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", defaultPlaybookFile, "Path to the playbook YAML")

	return cmd
}
