package normalize

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/payops-dev/payops/internal/ingest"
	"github.com/payops-dev/payops/internal/model"
)

// ValidationError reports a row that cannot become a payout request.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid row: %s %s", e.Field, e.Reason)
}

var (
	whitespaceRegex = regexp.MustCompile(`\s+`)
	// Curly quotes and backticks show up in hand-entered names.
	quoteReplacer = strings.NewReplacer("‘", "'", "’", "'", "“", `"`, "”", `"`, "`", "'")
	// Decomposes, drops combining marks, recomposes. Strips diacritics so
	// "Olena Shevchuk" and "Olena Ševčuk" produce the same match key.
	diacritics = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
)

// Options configures a Normalizer.
type Options struct {
	// Currency and DefaultAmountMinorUnits fill fields the input omits.
	Currency                string
	Country                 string
	DefaultAmountMinorUnits int64
	// SanctionPrefixes flag postal codes whose numeric prefix matches.
	SanctionPrefixes []string
}

// Normalizer turns raw tabular rows into canonical payout requests.
type Normalizer struct {
	opts Options
}

// New creates a Normalizer.
func New(opts Options) *Normalizer {
	return &Normalizer{opts: opts}
}

// Normalize validates and canonicalizes one input row. The returned request
// is immutable; NormalizedName is stable across re-runs of the same input.
func (n *Normalizer) Normalize(row ingest.Row) (model.PayoutRequest, error) {
	rawName := strings.TrimSpace(row.Get("NAME"))
	if rawName == "" {
		return model.PayoutRequest{}, &ValidationError{Field: "NAME", Reason: "is empty"}
	}

	sensitive := strings.TrimSpace(row.Get("BANK CARD"))
	if sensitive == "" {
		return model.PayoutRequest{}, &ValidationError{Field: "BANK CARD", Reason: "is empty"}
	}

	amount := n.opts.DefaultAmountMinorUnits
	if raw := strings.TrimSpace(row.Get("AMOUNT")); raw != "" {
		parsed, err := parseAmount(raw)
		if err != nil {
			return model.PayoutRequest{}, &ValidationError{Field: "AMOUNT", Reason: err.Error()}
		}
		amount = parsed
	}
	if amount <= 0 {
		return model.PayoutRequest{}, &ValidationError{Field: "AMOUNT", Reason: "must be positive"}
	}

	postCode := strings.TrimSpace(row.Get("POST CODE"))

	req := model.PayoutRequest{
		RawName:        rawName,
		NormalizedName: Name(rawName),
		Email:          strings.TrimSpace(strings.ToLower(row.Get("EMAIL"))),
		Phone:          strings.TrimSpace(row.Get("PHONE")),
		Address: model.Address{
			City:       strings.TrimSpace(row.Get("CITY")),
			Country:    n.opts.Country,
			PostalCode: postCode,
			Line1:      strings.TrimSpace(row.Get("ADDRESS")),
		},
		SensitiveValue:   sensitive,
		AmountMinorUnits: amount,
		Currency:         n.opts.Currency,
		Sanctioned:       n.Sanctioned(postCode),
	}
	return req, nil
}

// Name produces the stable matching key for a payee name: diacritics
// stripped, quote variants folded, whitespace collapsed. Idempotent:
// Name(Name(x)) == Name(x).
func Name(raw string) string {
	s, _, err := transform.String(diacritics, raw)
	if err != nil {
		s = raw
	}
	s = quoteReplacer.Replace(s)
	s = whitespaceRegex.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// Sanctioned reports whether the postal code's numeric prefix falls in the
// configured disallowed set.
func (n *Normalizer) Sanctioned(postCode string) bool {
	digits := strings.TrimSpace(postCode)
	for _, prefix := range n.opts.SanctionPrefixes {
		if prefix != "" && strings.HasPrefix(digits, prefix) {
			return true
		}
	}
	return false
}

// parseAmount converts a human-entered amount like "1,000.00" into minor
// units (cents).
func parseAmount(raw string) (int64, error) {
	cleaned := strings.NewReplacer(",", "", "$", "", " ", "").Replace(raw)
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return 0, fmt.Errorf("unparseable amount %q", raw)
	}
	minor := d.Mul(decimal.NewFromInt(100))
	if !minor.Equal(minor.Floor()) {
		return 0, fmt.Errorf("amount %q has sub-cent precision", raw)
	}
	return minor.IntPart(), nil
}
