package dedupe

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/payops-dev/payops/internal/ledger"
	"github.com/payops-dev/payops/internal/model"
)

type fakeLister struct {
	records []model.RemoteRecord
	err     error
	params  ledger.ListParams
}

func (f *fakeLister) ListPayoutRecords(_ context.Context, params ledger.ListParams) ([]model.RemoteRecord, error) {
	f.params = params
	return f.records, f.err
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func loadedIndex(t *testing.T, records ...model.RemoteRecord) *Index {
	t.Helper()
	ix := New("1kproject", model.MatchByName, discard())
	ix.Load(context.Background(), &fakeLister{records: records})
	require.False(t, ix.Degraded())
	return ix
}

func TestFindMatchByName(t *testing.T) {
	ix := loadedIndex(t, model.RemoteRecord{
		ID:          "exp-1",
		Description: "Jane Doe Family",
	})

	match := ix.FindMatch(model.PayoutRequest{NormalizedName: "Jane Doe"})
	require.NotNil(t, match)
	assert.Equal(t, "exp-1", match.ID)

	// A superstring of an indexed name must not match.
	assert.Nil(t, ix.FindMatch(model.PayoutRequest{NormalizedName: "Janet Doe"}))
}

func TestFindMatchByEmail(t *testing.T) {
	ix := New("1kproject", model.MatchByEmail, discard())
	ix.Load(context.Background(), &fakeLister{records: []model.RemoteRecord{
		{
			ID: "exp-1",
			PayoutMethod: &model.PayoutMethod{
				Type: "BANK_ACCOUNT",
				Data: []byte(`{"details":{"email":"jane@example.com"}}`),
			},
		},
	}})

	require.NotNil(t, ix.FindMatch(model.PayoutRequest{Email: "jane@example.com"}))
	assert.Nil(t, ix.FindMatch(model.PayoutRequest{Email: "ivan@example.com"}))
}

func TestFindMatchEmptyKey(t *testing.T) {
	ix := loadedIndex(t, model.RemoteRecord{ID: "exp-1"})

	// An empty key must not match everything.
	assert.Nil(t, ix.FindMatch(model.PayoutRequest{}))
}

func TestLoadUsesBoundedPage(t *testing.T) {
	lister := &fakeLister{}
	ix := New("1kproject", model.MatchByName, discard())
	ix.Load(context.Background(), lister)

	assert.Equal(t, "1kproject", lister.params.AccountSlug)
	assert.Equal(t, 1000, lister.params.Limit)
}

func TestLoadFailureDegradesToEmpty(t *testing.T) {
	ix := New("1kproject", model.MatchByName, discard())
	ix.Load(context.Background(), &fakeLister{err: errors.New("boom")})

	assert.True(t, ix.Degraded())
	assert.Zero(t, ix.Len())
	assert.Nil(t, ix.FindMatch(model.PayoutRequest{NormalizedName: "Jane Doe"}))
}
