package orchestrator

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/payops-dev/payops/internal/model"
	"github.com/payops-dev/payops/internal/ratelimit"
)

func approvedRecord(id, description, cardToken string) model.RemoteRecord {
	rec := model.RemoteRecord{
		ID:          id,
		Status:      model.StatusApproved,
		Description: description,
	}
	if cardToken != "" {
		rec.PayoutMethod = &model.PayoutMethod{
			Type: "BANK_ACCOUNT",
			Data: []byte(`{"details":{"cardToken":"` + cardToken + `"}}`),
		}
	}
	return rec
}

func newTestDriver(client *fakeLedger, live bool) *PaymentDriver {
	return NewPaymentDriver("1kproject", live, client, ratelimit.New(nil), testAuth(nil), discard())
}

func TestPaymentDriverPaysTokenizedRecords(t *testing.T) {
	client := &fakeLedger{records: []model.RemoteRecord{
		approvedRecord("exp-1", "Jane Doe Family", "tok_abc"),
		approvedRecord("exp-2", "Ivan Family", ""),
		approvedRecord("exp-3", "Olena Family", "tok_def"),
	}}

	driver := newTestDriver(client, true)
	results, err := driver.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, model.OutcomePaid, results[0].Outcome)
	assert.Equal(t, model.OutcomeSkipped, results[1].Outcome)
	assert.Equal(t, "missing structured payout data", results[1].Reason)
	assert.Equal(t, model.OutcomePaid, results[2].Outcome)

	assert.Equal(t, []string{"exp-1", "exp-3"}, client.pays)
}

func TestPaymentDriverPayFailureContinues(t *testing.T) {
	client := &fakeLedger{
		records: []model.RemoteRecord{
			approvedRecord("exp-1", "Jane Doe Family", "tok_abc"),
			approvedRecord("exp-2", "Olena Family", "tok_def"),
		},
		failPay: func(call int, _ string) error {
			if call == 1 {
				return errors.New("insufficient balance")
			}
			return nil
		},
	}

	driver := newTestDriver(client, true)
	results, err := driver.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, model.OutcomeFailed, results[0].Outcome)
	assert.Contains(t, results[0].Reason, "pay failed")
	assert.Equal(t, model.OutcomePaid, results[1].Outcome)
}

func TestPaymentDriverListFailureIsFatal(t *testing.T) {
	client := &fakeLedger{listErr: errors.New("api down")}

	driver := newTestDriver(client, true)
	_, err := driver.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "listing approved records")
}

func TestPaymentDriverDryRun(t *testing.T) {
	client := &fakeLedger{records: []model.RemoteRecord{
		approvedRecord("exp-1", "Jane Doe Family", "tok_abc"),
		approvedRecord("exp-2", "Ivan Family", ""),
	}}

	driver := newTestDriver(client, false)
	results, err := driver.Run(context.Background())
	require.NoError(t, err)

	// Same skip/proceed decisions as a live run, no pay calls issued.
	assert.Equal(t, model.OutcomePaid, results[0].Outcome)
	assert.Equal(t, "dry run", results[0].Reason)
	assert.Equal(t, model.OutcomeSkipped, results[1].Outcome)
	assert.Empty(t, client.pays)
}

func TestPaymentDriverStepUpChallenge(t *testing.T) {
	var prompts int
	client := &fakeLedger{
		records: []model.RemoteRecord{approvedRecord("exp-1", "Jane Doe Family", "tok_abc")},
		failPay: func(_ int, twoFactor string) error {
			if twoFactor == "" {
				return stepUpAPIError()
			}
			return nil
		},
	}

	driver := NewPaymentDriver("1kproject", true, client, ratelimit.New(nil), testAuth(&prompts), discard())
	results, err := driver.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, model.OutcomePaid, results[0].Outcome)
	require.Len(t, client.payHeaders, 2)
	assert.Equal(t, "totp 123456", client.payHeaders[1])
	assert.Equal(t, 1, prompts)
}
