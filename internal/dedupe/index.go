// Package dedupe answers "has this payee already been submitted?" against a
// one-shot snapshot of the remote ledger.
package dedupe

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/payops-dev/payops/internal/ledger"
	"github.com/payops-dev/payops/internal/model"
)

// defaultPageSize bounds the bulk fetch. The batches this serves stay well
// under it.
const defaultPageSize = 1000

// Lister is the slice of the ledger client the index needs.
type Lister interface {
	ListPayoutRecords(ctx context.Context, params ledger.ListParams) ([]model.RemoteRecord, error)
}

// Index is an in-memory snapshot of existing remote records. It is loaded
// once per run; matches are answered from the snapshot only, so rows created
// during the same run are not cross-checked.
type Index struct {
	accountSlug string
	matchKey    model.MatchKey
	logger      *slog.Logger

	serialized []string
	records    []model.RemoteRecord
	degraded   bool
}

// New creates an unloaded Index.
func New(accountSlug string, matchKey model.MatchKey, logger *slog.Logger) *Index {
	if logger == nil {
		logger = slog.Default()
	}
	return &Index{
		accountSlug: accountSlug,
		matchKey:    matchKey,
		logger:      logger,
	}
}

// Load performs the single bulk fetch. A fetch failure degrades the index to
// empty instead of aborting the run: every row is then treated as "no known
// duplicate", which the caller must take as unknown, not confirmed.
func (ix *Index) Load(ctx context.Context, lister Lister) {
	records, err := lister.ListPayoutRecords(ctx, ledger.ListParams{
		AccountSlug: ix.accountSlug,
		Limit:       defaultPageSize,
	})
	if err != nil {
		ix.degraded = true
		ix.logger.Error("dedup index unavailable, proceeding with EMPTY index; duplicates cannot be detected this run",
			"error", err)
		return
	}

	ix.records = records
	ix.serialized = make([]string, len(records))
	for i, rec := range records {
		raw, err := json.Marshal(rec)
		if err != nil {
			continue
		}
		ix.serialized[i] = string(raw)
	}
	ix.logger.Info("dedup index loaded", "records", len(records))
}

// Degraded reports whether the snapshot fetch failed.
func (ix *Index) Degraded() bool { return ix.degraded }

// Len returns the number of records in the snapshot.
func (ix *Index) Len() int { return len(ix.records) }

// FindMatch returns the first remote record whose serialized form contains
// the request's match key as a substring, or nil. The containment match is
// deliberately loose and over-inclusive: with real money on the line a false
// positive costs a manual check, a false negative costs a double transfer.
func (ix *Index) FindMatch(req model.PayoutRequest) *model.RemoteRecord {
	key := req.Key(ix.matchKey)
	if key == "" {
		return nil
	}
	for i, s := range ix.serialized {
		if strings.Contains(s, key) {
			return &ix.records[i]
		}
	}
	return nil
}
