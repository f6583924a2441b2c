// Package orchestrator drives normalized payout requests through dedup,
// tokenization, submission and approval against the remote ledger.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/payops-dev/payops/internal/dedupe"
	"github.com/payops-dev/payops/internal/ledger"
	"github.com/payops-dev/payops/internal/model"
	"github.com/payops-dev/payops/internal/ratelimit"
	"github.com/payops-dev/payops/internal/stepup"
	"github.com/payops-dev/payops/internal/tokenizer"
)

// SafetyViolation means a placeholder token was about to reach a live
// mutating call. It aborts the entire batch; continuing would move real
// money against a token that references nothing.
type SafetyViolation struct {
	RequestName string
}

func (e *SafetyViolation) Error() string {
	return fmt.Sprintf("placeholder token reached a live submission for %q; aborting batch", e.RequestName)
}

// LedgerClient is the slice of the ledger API the orchestrator uses.
type LedgerClient interface {
	ListPayoutRecords(ctx context.Context, params ledger.ListParams) ([]model.RemoteRecord, error)
	CreatePayoutRecord(ctx context.Context, input ledger.CreateInput, twoFactor string) (model.SubmissionResult, error)
	ApprovePayoutRecord(ctx context.Context, recordID string, twoFactor string) error
	PayPayoutRecord(ctx context.Context, recordID string, twoFactor string) error
}

// CardTokenizer exchanges a raw card number for an opaque token.
type CardTokenizer interface {
	Tokenize(ctx context.Context, rawValue string) (string, error)
}

// Options configures a Runner.
type Options struct {
	AccountSlug string
	PayeeSlug   string
	Currency    string
	// PayoutCurrency is the currency of the receiving payout method.
	PayoutCurrency string

	// Live issues mutating calls; otherwise every decision is logged with a
	// dry-run marker and nothing is sent.
	Live bool

	// SplitParts divides each payout into N remote transactions. The split
	// applies only at or above SplitThresholdMinorUnits (zero = always).
	SplitParts               int
	SplitThresholdMinorUnits int64
	// SplitExtra is an additional delay between the parts of a split payout.
	SplitExtra time.Duration

	// SanctionsWarnOnly logs sanctioned rows and continues instead of
	// skipping them.
	SanctionsWarnOnly bool

	// AbortOnTokenizationFailure fails the run on the first tokenization
	// error instead of skipping the row.
	AbortOnTokenizationFailure bool
}

// Runner is the top-level batch driver. Requests are fully resolved one at a
// time, in input order; no two mutating calls are ever in flight at once.
type Runner struct {
	opts    Options
	client  LedgerClient
	tokens  CardTokenizer
	limiter *ratelimit.Limiter
	auth    *stepup.Authenticator
	index   *dedupe.Index
	logger  *slog.Logger
	runID   string
}

// NewRunner creates a Runner.
func NewRunner(opts Options, client LedgerClient, tokens CardTokenizer, limiter *ratelimit.Limiter, auth *stepup.Authenticator, index *dedupe.Index, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.SplitParts < 1 {
		opts.SplitParts = 1
	}
	runID := uuid.NewString()
	return &Runner{
		opts:    opts,
		client:  client,
		tokens:  tokens,
		limiter: limiter,
		auth:    auth,
		index:   index,
		logger:  logger.With("run_id", runID),
		runID:   runID,
	}
}

// Run processes requests in input order. Row-local failures become SKIPPED
// or FAILED results and never stop later rows; only a SafetyViolation aborts
// the run. The dedup snapshot is not refreshed mid-run, so duplicate rows
// within the same input are not cross-checked against each other.
func (r *Runner) Run(ctx context.Context, requests []model.PayoutRequest) ([]model.SubmissionResult, error) {
	results := make([]model.SubmissionResult, 0, len(requests))
	for _, req := range requests {
		res, err := r.processOne(ctx, req)
		if err != nil {
			return results, err
		}
		r.logResult(res)
		results = append(results, res)
	}
	return results, nil
}

func (r *Runner) processOne(ctx context.Context, req model.PayoutRequest) (model.SubmissionResult, error) {
	res := model.SubmissionResult{RequestName: req.NormalizedName, Parts: 1}

	if req.Sanctioned {
		if r.opts.SanctionsWarnOnly {
			r.logger.Warn("sanctioned postal code, continuing per policy",
				"name", req.NormalizedName, "post_code", req.Address.PostalCode)
		} else {
			res.Outcome = model.OutcomeSkipped
			res.Reason = "sanctioned postal code " + req.Address.PostalCode
			return res, nil
		}
	}

	if match := r.index.FindMatch(req); match != nil {
		res.Outcome = model.OutcomeSkipped
		res.Reason = fmt.Sprintf("duplicate of remote record %s", match.ID)
		return res, nil
	}

	token, err := r.tokenize(ctx, req)
	if err != nil {
		if r.opts.AbortOnTokenizationFailure {
			return res, fmt.Errorf("tokenizing for %q: %w", req.NormalizedName, err)
		}
		res.Outcome = model.OutcomeSkipped
		res.Reason = fmt.Sprintf("tokenization failed: %v", err)
		return res, nil
	}

	amounts := splitAmount(req.AmountMinorUnits, r.partsFor(req))
	res.Parts = len(amounts)

	for i, amount := range amounts {
		// Run-fatal guard: a placeholder token must never reach a live
		// mutating call.
		if r.opts.Live && token == tokenizer.SentinelToken {
			return res, &SafetyViolation{RequestName: req.NormalizedName}
		}

		if i > 0 && r.opts.Live {
			if err := r.limiter.WaitExtra(ctx, r.opts.SplitExtra); err != nil {
				return res, err
			}
		}

		created, err := r.createPart(ctx, req, token, amount, i, len(amounts))
		if err != nil {
			res.Outcome = model.OutcomeFailed
			res.Reason = fmt.Sprintf("create part %d/%d failed: %v", i+1, len(amounts), err)
			return res, nil
		}
		res.RemoteID = created.RemoteID
		res.LegacyID = created.LegacyID

		if err := r.approvePart(ctx, created.RemoteID); err != nil {
			// Created but unapproved stays in the ledger for manual
			// follow-up; no rollback.
			res.Outcome = model.OutcomeCreated
			res.Reason = fmt.Sprintf("approve part %d/%d failed: %v", i+1, len(amounts), err)
			return res, nil
		}
	}

	res.Outcome = model.OutcomeApproved
	if !r.opts.Live {
		res.Reason = "dry run"
	}
	return res, nil
}

func (r *Runner) tokenize(ctx context.Context, req model.PayoutRequest) (string, error) {
	if !r.opts.Live {
		// Dry runs make no tokenization call; the sentinel stands in and is
		// barred from live submissions by the safety guard.
		return tokenizer.SentinelToken, nil
	}
	return r.tokens.Tokenize(ctx, req.SensitiveValue)
}

func (r *Runner) partsFor(req model.PayoutRequest) int {
	if r.opts.SplitParts <= 1 {
		return 1
	}
	if r.opts.SplitThresholdMinorUnits > 0 && req.AmountMinorUnits < r.opts.SplitThresholdMinorUnits {
		return 1
	}
	return r.opts.SplitParts
}

func (r *Runner) createPart(ctx context.Context, req model.PayoutRequest, token string, amount int64, part, total int) (model.SubmissionResult, error) {
	description := req.NormalizedName + " Family"
	if total > 1 {
		description = fmt.Sprintf("%s (%d/%d)", description, part+1, total)
	}

	input := ledger.CreateInput{
		AccountSlug:      r.opts.AccountSlug,
		PayeeSlug:        r.opts.PayeeSlug,
		Description:      description,
		Currency:         r.opts.Currency,
		AmountMinorUnits: amount,
		PayoutCurrency:   r.opts.PayoutCurrency,
		CardToken:        token,
		HolderName:       req.NormalizedName,
		Email:            req.Email,
		Phone:            phoneWithPlus(req.Phone),
		City:             req.Address.City,
		Country:          req.Address.Country,
		PostalCode:       req.Address.PostalCode,
		AddressLine:      req.Address.Line1,
		Reference:        fmt.Sprintf("%s/%d", r.runID, part),
	}

	if !r.opts.Live {
		r.logger.Info("would create payout record (dry run)",
			"description", description, "amount", amount)
		return model.SubmissionResult{}, nil
	}

	if err := r.limiter.Wait(ctx, ratelimit.OpCreate); err != nil {
		return model.SubmissionResult{}, err
	}

	r.logger.Info("creating payout record", "description", description, "amount", amount)

	var created model.SubmissionResult
	err := r.auth.Call(ctx, func(twoFactor string) error {
		var callErr error
		created, callErr = r.client.CreatePayoutRecord(ctx, input, twoFactor)
		return callErr
	})
	return created, err
}

func (r *Runner) approvePart(ctx context.Context, recordID string) error {
	if !r.opts.Live {
		r.logger.Info("would approve payout record (dry run)")
		return nil
	}

	if err := r.limiter.Wait(ctx, ratelimit.OpApprove); err != nil {
		return err
	}

	return r.auth.Call(ctx, func(twoFactor string) error {
		return r.client.ApprovePayoutRecord(ctx, recordID, twoFactor)
	})
}

func (r *Runner) logResult(res model.SubmissionResult) {
	attrs := []any{"name", res.RequestName, "outcome", string(res.Outcome)}
	if res.Reason != "" {
		attrs = append(attrs, "reason", res.Reason)
	}
	if res.LegacyID != 0 {
		attrs = append(attrs, "legacy_id", res.LegacyID)
	}
	switch res.Outcome {
	case model.OutcomeFailed:
		r.logger.Error("payout failed", attrs...)
	case model.OutcomeSkipped:
		r.logger.Info("payout skipped", attrs...)
	default:
		r.logger.Info("payout processed", attrs...)
	}
}

// splitAmount divides total into n parts that always sum exactly to total:
// floor(total/n) for every part but the last, which absorbs the remainder.
func splitAmount(total int64, n int) []int64 {
	if n <= 1 {
		return []int64{total}
	}
	parts := make([]int64, n)
	base := total / int64(n)
	var allocated int64
	for i := 0; i < n-1; i++ {
		parts[i] = base
		allocated += base
	}
	parts[n-1] = total - allocated
	return parts
}

func phoneWithPlus(phone string) string {
	if phone == "" {
		return ""
	}
	if phone[0] == '+' {
		return phone
	}
	return "+" + phone
}
