// Package cli implements the lf-playbook command line: plan, apply, export,
// validate and history against one account and region.
package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
)

// Execute runs the CLI.
func Execute() int {
	return execute(newRootCmd())
}

func execute(rootCmd *cobra.Command) int {
	err := rootCmd.Execute()
	if err == nil {
		return 0
	}
	var exit *exitError
	if errors.As(err, &exit) {
		return exit.code
	}
	output, _ := rootCmd.PersistentFlags().GetString("output")
	if output == "json" {
		_ = printJSON(rootCmd.OutOrStdout(), map[string]any{"error": err.Error()})
	} else {
		fmt.Fprintf(rootCmd.ErrOrStderr(), "Error: %v\n", err)
	}
	return 1
}

func newRootCmd() *cobra.Command {
	return newRootCmdWith(defaultHooks())
}

func newRootCmdWith(h hooks) *cobra.Command {
	var (
		output    string
		profile   string
		region    string
		workspace string
		envFile   string
	)
	env := &environment{hooks: h}

	rootCmd := &cobra.Command{
		Use:           "lf-playbook",
		Short:         "Reconcile Lake Formation permissions with a declared playbook",
		Long:          "Plans and applies Lake Formation grants and tag attachments from a YAML playbook, tracking deployed state in a snapshot.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// Config file is optional.
			ucfg, err := LoadUserConfig()
			if err != nil {
				ucfg = emptyUserConfig()
			}
			p, err := ucfg.ActiveProfile(profile)
			if err != nil {
				return err
			}

			// Apply precedence: flag > env > profile > default
			if !cmd.Flags().Changed("output") {
				if v := os.Getenv("LF_OUTPUT"); v != "" {
					output = v
				} else if p.Output != "" {
					output = p.Output
				}
				_ = cmd.Root().PersistentFlags().Set("output", output)
			}
			if err := validateOutputFormat(output); err != nil {
				return err
			}

			env.profile = p
			env.envFile = envFile
			if cmd.Flags().Changed("region") {
				env.region = &region
			}
			if cmd.Flags().Changed("workspace") {
				env.workspace = &workspace
			}
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVarP(&output, "output", "o", "text", "Output format (text, json)")
	rootCmd.PersistentFlags().StringVarP(&profile, "profile", "p", "", "Config profile to use")
	rootCmd.PersistentFlags().StringVar(&region, "region", "", "AWS region (overrides AWS_REGION)")
	rootCmd.PersistentFlags().StringVar(&workspace, "workspace", "", "Workspace directory for local state (overrides LF_WORKSPACE_DIR)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Dotenv file loaded before the environment is read")

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newConfigCmd())

	// Reconciliation commands
	rootCmd.AddCommand(newValidateCmd())
	rootCmd.AddCommand(newPlanCmd(env))
	rootCmd.AddCommand(newApplyCmd(env))
	rootCmd.AddCommand(newExportCmd(env))
	rootCmd.AddCommand(newHistoryCmd(env))

	// Shell completions
	rootCmd.AddCommand(newCompletionCmd())

	return rootCmd
}

func newCompletionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(out)
			case "zsh":
				return cmd.Root().GenZshCompletion(out)
			case "fish":
				return cmd.Root().GenFishCompletion(out, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(out)
			default:
				return fmt.Errorf("unsupported shell: %s", args[0])
			}
		},
	}
	return cmd
}
