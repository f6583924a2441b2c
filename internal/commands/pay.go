package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/payops-dev/payops/internal/orchestrator"
)

func newPayCommand() *cobra.Command {
	var run bool
	var yubikey bool
	var reuseCode bool

	cmd := &cobra.Command{
		Use:   "pay",
		Short: "Pay approved payout records that carry a card token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			logger := newLogger(cfg)

			if !run {
				fmt.Fprintln(cmd.OutOrStdout(), "This is a dry run, pass --run to trigger it for real.")
			}

			client := newLedgerClient(cfg, logger)
			limiter := newLimiter(cfg)
			auth := newAuthenticator(cfg, yubikey, reuseCode, logger)

			driver := orchestrator.NewPaymentDriver(cfg.Ledger.AccountSlug, run, client, limiter, auth, logger)
			results, err := driver.Run(cmd.Context())
			if err != nil {
				return err
			}
			printSummary(cmd, results)
			return nil
		},
	}

	cmd.Flags().BoolVar(&run, "run", false, "disable dry mode and issue mutating calls")
	cmd.Flags().BoolVar(&yubikey, "yubikey", false, "use a YubiKey for 2FA instead of TOTP")
	cmd.Flags().BoolVar(&reuseCode, "reuse-code", false, "prompt for one 2FA code and reuse it for the whole run")

	return cmd
}
