package orchestrator

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/payops-dev/payops/internal/ledger"
	"github.com/payops-dev/payops/internal/model"
	"github.com/payops-dev/payops/internal/ratelimit"
	"github.com/payops-dev/payops/internal/stepup"
)

// listPageSize bounds the approved-records fetch, mirroring the dedup index.
const listPageSize = 1000

// PaymentDriver pays previously approved records that carry a tokenized
// payout method. Same shape as the submission runner, smaller scope: one
// fetch, then strictly sequential pay calls behind the rate limiter.
type PaymentDriver struct {
	accountSlug string
	live        bool
	client      LedgerClient
	limiter     *ratelimit.Limiter
	auth        *stepup.Authenticator
	logger      *slog.Logger
}

// NewPaymentDriver creates a PaymentDriver.
func NewPaymentDriver(accountSlug string, live bool, client LedgerClient, limiter *ratelimit.Limiter, auth *stepup.Authenticator, logger *slog.Logger) *PaymentDriver {
	if logger == nil {
		logger = slog.Default()
	}
	return &PaymentDriver{
		accountSlug: accountSlug,
		live:        live,
		client:      client,
		limiter:     limiter,
		auth:        auth,
		logger:      logger,
	}
}

// Run fetches all currently APPROVED records, oldest first, and pays those
// whose payout method carries a card token. Records without structured
// payout data are skipped with a reason; a pay failure never stops the rest
// of the batch.
func (d *PaymentDriver) Run(ctx context.Context) ([]model.SubmissionResult, error) {
	records, err := d.client.ListPayoutRecords(ctx, ledger.ListParams{
		AccountSlug: d.accountSlug,
		Limit:       listPageSize,
		Status:      model.StatusApproved,
		OldestFirst: true,
	})
	if err != nil {
		return nil, fmt.Errorf("listing approved records: %w", err)
	}

	d.logger.Info("found approved records", "count", len(records))

	results := make([]model.SubmissionResult, 0, len(records))
	for _, rec := range records {
		res := d.payOne(ctx, rec)
		d.logOne(res)
		results = append(results, res)
	}
	return results, nil
}

func (d *PaymentDriver) payOne(ctx context.Context, rec model.RemoteRecord) model.SubmissionResult {
	res := model.SubmissionResult{
		RequestName: rec.Description,
		RemoteID:    rec.ID,
		LegacyID:    rec.LegacyID,
		Parts:       1,
	}

	if rec.CardToken() == "" {
		res.Outcome = model.OutcomeSkipped
		res.Reason = "missing structured payout data"
		return res
	}

	if !d.live {
		d.logger.Info("would pay record (dry run)", "description", rec.Description)
		res.Outcome = model.OutcomePaid
		res.Reason = "dry run"
		return res
	}

	if err := d.limiter.Wait(ctx, ratelimit.OpPay); err != nil {
		res.Outcome = model.OutcomeFailed
		res.Reason = err.Error()
		return res
	}

	err := d.auth.Call(ctx, func(twoFactor string) error {
		return d.client.PayPayoutRecord(ctx, rec.ID, twoFactor)
	})
	if err != nil {
		res.Outcome = model.OutcomeFailed
		res.Reason = fmt.Sprintf("pay failed: %v", err)
		return res
	}

	res.Outcome = model.OutcomePaid
	return res
}

func (d *PaymentDriver) logOne(res model.SubmissionResult) {
	attrs := []any{"description", res.RequestName, "outcome", string(res.Outcome)}
	if res.Reason != "" {
		attrs = append(attrs, "reason", res.Reason)
	}
	switch res.Outcome {
	case model.OutcomeFailed:
		d.logger.Error("payment failed", attrs...)
	case model.OutcomeSkipped:
		d.logger.Info("payment skipped", attrs...)
	default:
		d.logger.Info("payment processed", attrs...)
	}
}
