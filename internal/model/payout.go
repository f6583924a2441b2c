package model

// Address is the payee's postal address as supplied in the input file.
type Address struct {
	City       string
	Country    string
	PostalCode string
	Line1      string
}

// PayoutRequest is one normalized input row representing money owed to a
// payee. It is immutable after normalization; the NormalizedName is the
// stable key used for dedup matching across runs.
type PayoutRequest struct {
	RawName          string
	NormalizedName   string
	Email            string
	Phone            string
	Address          Address
	SensitiveValue   string // raw card/account number, never logged
	AmountMinorUnits int64
	Currency         string
	Sanctioned       bool
}

// MatchKey selects the field used for dedup containment matching.
type MatchKey string

const (
	MatchByName  MatchKey = "name"
	MatchByEmail MatchKey = "email"
)

// Key returns the request's distinguishing token for the given match key.
func (r PayoutRequest) Key(k MatchKey) string {
	if k == MatchByEmail {
		return r.Email
	}
	return r.NormalizedName
}
