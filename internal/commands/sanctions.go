package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/payops-dev/payops/internal/normalize"
)

func newSanctionsCommand() *cobra.Command {
	sanctionsCmd := &cobra.Command{
		Use:   "sanctions",
		Short: "Sanction filter operations",
	}
	sanctionsCmd.AddCommand(newSanctionsCheckCommand())
	return sanctionsCmd
}

func newSanctionsCheckCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "check <postcode>",
		Short: "Check a postal code against the configured sanction prefixes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			normalizer := normalize.New(normalize.Options{
				SanctionPrefixes: cfg.Sanctions.Prefixes,
			})
			if normalizer.Sanctioned(args[0]) {
				fmt.Fprintf(cmd.OutOrStdout(), "%s: SANCTIONED (prefixes %v)\n", args[0], cfg.Sanctions.Prefixes)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "%s: clear\n", args[0])
			}
			return nil
		},
	}
}
