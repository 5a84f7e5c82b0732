package atproto

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// XRPC error names returned by a PDS.
const (
	ErrorExpiredToken      = "ExpiredToken"
	ErrorInvalidToken      = "InvalidToken"
	ErrorAuthRequired      = "AuthenticationRequired"
	ErrorAuthMissing       = "AuthMissing"
	ErrorAccountTakedown   = "AccountTakedown"
	ErrorRateLimitExceeded = "RateLimitExceeded"
	ErrorInvalidRequest    = "InvalidRequest"
	errorUnknown           = "Unknown"
)

// Error is a failed XRPC call.
type Error struct {
	StatusCode int    `json:"-"`
	Code       string `json:"error"`
	Message    string `json:"message,omitempty"`
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("xrpc %d: %s", e.StatusCode, e.Code)
	}
	return fmt.Sprintf("xrpc %d: %s: %s", e.StatusCode, e.Code, e.Message)
}

// IsAuthError reports whether err means the PDS rejected the token or
// credentials, as opposed to the PDS being unreachable or failing.
func IsAuthError(err error) bool {
	var xe *Error
	if !errors.As(err, &xe) {
		return false
	}

	switch xe.Code {
	case ErrorExpiredToken, ErrorInvalidToken, ErrorAuthRequired, ErrorAuthMissing, ErrorAccountTakedown:
		return true
	}
	return xe.StatusCode == http.StatusUnauthorized
}

// IsRateLimited reports whether the PDS refused the call for exceeding its
// rate limit.
func IsRateLimited(err error) bool {
	var xe *Error
	if !errors.As(err, &xe) {
		return false
	}
	return xe.StatusCode == http.StatusTooManyRequests || xe.Code == ErrorRateLimitExceeded
}

func parseError(resp *http.Response, body []byte) error {
	xe := &Error{StatusCode: resp.StatusCode}
	if err := json.Unmarshal(body, xe); err != nil || xe.Code == "" {
		xe.Code = errorUnknown
		xe.Message = http.StatusText(resp.StatusCode)
	}
	return xe
}
