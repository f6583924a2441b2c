package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/payops-dev/payops/internal/buildinfo"
)

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "payops",
		Short:   "Batch payout orchestration against the ledger API",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", buildinfo.Version, buildinfo.Commit, buildinfo.Date),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().String("config", "payops.yaml", "path to configuration file")

	rootCmd.AddCommand(newInitCommand())
	rootCmd.AddCommand(newCreateCommand())
	rootCmd.AddCommand(newPayCommand())
	rootCmd.AddCommand(newSanctionsCommand())

	return rootCmd
}
