package ledger

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrorKind tags an API failure so callers branch on a type-level match
// instead of inspecting error prose.
type ErrorKind int

const (
	// KindOther is any failure without special handling.
	KindOther ErrorKind = iota
	// KindThrottled marks a rate-limit rejection.
	KindThrottled
	// KindStepUpRequired marks a two-factor step-up challenge; the call may
	// be retried once with a credential header attached.
	KindStepUpRequired
)

// APIError represents an error from the ledger API.
type APIError struct {
	Kind       ErrorKind
	StatusCode int
	Message    string
	Code       string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("ledger api error [%s]: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("ledger api error %d: %s", e.StatusCode, e.Message)
}

// IsStepUpRequired reports whether err is a step-up authentication challenge.
func IsStepUpRequired(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Kind == KindStepUpRequired
}

// IsThrottled reports whether err is a rate-limit rejection.
func IsThrottled(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Kind == KindThrottled
}

// stepUpCode is the structured error code the API attaches to step-up
// challenges. Older deployments only carry the message text, so both are
// checked here, once, at the RPC boundary.
const stepUpCode = "2FA_REQUIRED"

func classifyStatus(status int) ErrorKind {
	if status == http.StatusTooManyRequests {
		return KindThrottled
	}
	return KindOther
}

func classifyGraphQL(gqlErr graphqlError) ErrorKind {
	if gqlErr.Extensions.Code == stepUpCode {
		return KindStepUpRequired
	}
	if strings.Contains(gqlErr.Message, "Two-factor authentication") {
		return KindStepUpRequired
	}
	return KindOther
}
