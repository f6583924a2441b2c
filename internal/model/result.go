package model

// Outcome is the per-row terminal state for one batch run.
type Outcome string

const (
	OutcomeCreated  Outcome = "CREATED"
	OutcomeApproved Outcome = "APPROVED"
	OutcomePaid     Outcome = "PAID"
	OutcomeSkipped  Outcome = "SKIPPED"
	OutcomeFailed   Outcome = "FAILED"
)

// SubmissionResult records what happened to one payout request. RemoteID and
// LegacyID are set only when at least one create call succeeded; for split
// payouts they refer to the last created part.
type SubmissionResult struct {
	RequestName string
	RemoteID    string
	LegacyID    int64
	Outcome     Outcome
	Reason      string
	Parts       int
}
