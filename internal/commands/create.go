package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/payops-dev/payops/internal/config"
	"github.com/payops-dev/payops/internal/dedupe"
	"github.com/payops-dev/payops/internal/ingest"
	"github.com/payops-dev/payops/internal/model"
	"github.com/payops-dev/payops/internal/normalize"
	"github.com/payops-dev/payops/internal/orchestrator"
	"github.com/payops-dev/payops/internal/tokenizer"
)

func newCreateCommand() *cobra.Command {
	var run bool
	var yubikey bool
	var reuseCode bool
	var split int
	var warnSanctions bool
	var abortOnTokenFailure bool

	cmd := &cobra.Command{
		Use:   "create <csv>",
		Short: "Create and approve payout records from a CSV file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if split > 0 {
				cfg.Payout.SplitParts = split
			}
			if warnSanctions {
				cfg.Sanctions.Policy = "warn"
			}
			if abortOnTokenFailure {
				cfg.Tokenizer.OnFailure = "abort"
			}
			return runCreate(cmd, args[0], cfg, run, yubikey, reuseCode)
		},
	}

	cmd.Flags().BoolVar(&run, "run", false, "disable dry mode and issue mutating calls")
	cmd.Flags().BoolVar(&yubikey, "yubikey", false, "use a YubiKey for 2FA instead of TOTP")
	cmd.Flags().BoolVar(&reuseCode, "reuse-code", false, "prompt for one 2FA code and reuse it for the whole run")
	cmd.Flags().IntVar(&split, "split", 0, "split each payout into N equal parts")
	cmd.Flags().BoolVar(&warnSanctions, "warn-sanctions", false, "warn on sanctioned postal codes instead of skipping")
	cmd.Flags().BoolVar(&abortOnTokenFailure, "abort-on-token-failure", false, "abort the run on the first tokenization failure")

	return cmd
}

func runCreate(cmd *cobra.Command, csvPath string, cfg *config.Config, run, yubikey, reuseCode bool) error {
	logger := newLogger(cfg)

	if !run {
		fmt.Fprintln(cmd.OutOrStdout(), "This is a dry run, pass --run to trigger it for real.")
	}

	rows, err := ingest.ReadFile(csvPath)
	if err != nil {
		return err
	}

	normalizer := normalize.New(normalize.Options{
		Currency:                cfg.Payout.Currency,
		Country:                 cfg.Payout.Country,
		DefaultAmountMinorUnits: cfg.Payout.DefaultAmountMinorUnits,
		SanctionPrefixes:        cfg.Sanctions.Prefixes,
	})

	var requests []model.PayoutRequest
	results := make([]model.SubmissionResult, 0, len(rows))
	for i, row := range rows {
		req, err := normalizer.Normalize(row)
		if err != nil {
			logger.Info("payout skipped", "row", i+2, "outcome", string(model.OutcomeSkipped), "reason", err.Error())
			results = append(results, model.SubmissionResult{
				RequestName: row.Get("NAME"),
				Outcome:     model.OutcomeSkipped,
				Reason:      err.Error(),
			})
			continue
		}
		requests = append(requests, req)
	}

	client := newLedgerClient(cfg, logger)
	limiter := newLimiter(cfg)
	auth := newAuthenticator(cfg, yubikey, reuseCode, logger)
	tokens := tokenizer.New(cfg.Tokenizer.URL, cfg.Tokenizer.BackoffSchedule, tokenizer.WithLogger(logger))

	index := dedupe.New(cfg.Ledger.AccountSlug, model.MatchKey(cfg.Ledger.DedupKey), logger)
	index.Load(cmd.Context(), client)

	runner := orchestrator.NewRunner(orchestrator.Options{
		AccountSlug:                cfg.Ledger.AccountSlug,
		PayeeSlug:                  cfg.Ledger.PayeeSlug,
		Currency:                   cfg.Payout.Currency,
		PayoutCurrency:             "UAH",
		Live:                       run,
		SplitParts:                 cfg.Payout.SplitParts,
		SplitThresholdMinorUnits:   cfg.Payout.SplitThresholdMinorUnits,
		SplitExtra:                 cfg.RateLimit.SplitExtra,
		SanctionsWarnOnly:          cfg.Sanctions.Policy == "warn",
		AbortOnTokenizationFailure: cfg.Tokenizer.OnFailure == "abort",
	}, client, tokens, limiter, auth, index, logger)

	runResults, err := runner.Run(cmd.Context(), requests)
	results = append(results, runResults...)
	printSummary(cmd, results)
	return err
}

func printSummary(cmd *cobra.Command, results []model.SubmissionResult) {
	counts := make(map[model.Outcome]int)
	for _, res := range results {
		counts[res.Outcome]++
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%d processed: %d approved, %d paid, %d created, %d skipped, %d failed\n",
		len(results),
		counts[model.OutcomeApproved],
		counts[model.OutcomePaid],
		counts[model.OutcomeCreated],
		counts[model.OutcomeSkipped],
		counts[model.OutcomeFailed])
}
