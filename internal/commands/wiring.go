package commands

import (
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/payops-dev/payops/internal/config"
	"github.com/payops-dev/payops/internal/ledger"
	"github.com/payops-dev/payops/internal/logging"
	"github.com/payops-dev/payops/internal/ratelimit"
	"github.com/payops-dev/payops/internal/stepup"
)

// loadConfig reads the config named by the --config flag. A missing file
// falls back to defaults so dry runs work without any setup.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}
	if _, statErr := os.Stat(path); os.IsNotExist(statErr) {
		return config.Default(), nil
	}
	return config.Load(path)
}

func newLogger(cfg *config.Config) *slog.Logger {
	return logging.New(os.Stderr, cfg.Logging)
}

func newLedgerClient(cfg *config.Config, logger *slog.Logger) *ledger.Client {
	return ledger.New(cfg.Ledger.APIURL, cfg.Ledger.APIKey, ledger.WithLogger(logger))
}

func newLimiter(cfg *config.Config) *ratelimit.Limiter {
	return ratelimit.New(map[ratelimit.Op]time.Duration{
		ratelimit.OpCreate:  cfg.RateLimit.Create,
		ratelimit.OpApprove: cfg.RateLimit.Approve,
		ratelimit.OpPay:     cfg.RateLimit.Pay,
	})
}

func newAuthenticator(cfg *config.Config, yubikey, reuseCode bool, logger *slog.Logger) *stepup.Authenticator {
	method := stepup.Method(cfg.StepUp.Method)
	if yubikey {
		method = stepup.MethodYubikey
	}
	prompter := &stepup.TerminalPrompter{In: os.Stdin, Out: os.Stderr}
	return stepup.New(method, prompter, reuseCode || cfg.StepUp.ReuseCode, logger)
}
