package model

import "encoding/json"

// RecordStatus is the remote ledger's lifecycle state for a payout record.
type RecordStatus string

const (
	StatusDraft    RecordStatus = "DRAFT"
	StatusPending  RecordStatus = "PENDING"
	StatusApproved RecordStatus = "APPROVED"
	StatusPaid     RecordStatus = "PAID"
	StatusRejected RecordStatus = "REJECTED"
)

// PayoutMethod describes how a remote record gets paid. Data is the raw
// structured payload as returned by the ledger; its shape varies by Type.
type PayoutMethod struct {
	ID   string          `json:"id"`
	Type string          `json:"type"`
	Name string          `json:"name"`
	Data json.RawMessage `json:"data"`
}

// RemoteRecord is a previously created ledger entry as returned by the bulk
// list query. Records are a read-only snapshot for the duration of one run
// and may be stale relative to concurrent external activity.
type RemoteRecord struct {
	ID               string        `json:"id"`
	LegacyID         int64         `json:"legacyId"`
	Status           RecordStatus  `json:"status"`
	AmountMinorUnits int64         `json:"amount"`
	Description      string        `json:"description"`
	PayeeRef         string        `json:"payee"`
	PayoutMethod     *PayoutMethod `json:"payoutMethod"`
}

// CardToken returns the tokenized card reference from the record's payout
// method data, or "" when the record lacks structured card details.
func (r RemoteRecord) CardToken() string {
	if r.PayoutMethod == nil || r.PayoutMethod.Type != "BANK_ACCOUNT" {
		return ""
	}
	var data struct {
		Details struct {
			CardToken string `json:"cardToken"`
		} `json:"details"`
	}
	if err := json.Unmarshal(r.PayoutMethod.Data, &data); err != nil {
		return ""
	}
	return data.Details.CardToken
}
