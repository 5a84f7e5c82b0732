package aeoliussdk

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/aussiebroadwan/aeolius/pkg/httpx"
)

// Error codes used by the Aeolius APIs.
const (
	ErrorCodeUnauthorized         = "Unauthorized"
	ErrorCodeNotFound             = "NotFound"
	ErrorCodeMissingService       = "MissingService"
	ErrorCodeInvalidConfiguration = "InvalidConfiguration"
	ErrorCodeServiceNotAllowed    = "ServiceNotAllowed"
	ErrorCodeUpstream             = "UpstreamError"
	ErrorCodeServerError          = "InternalServerError"
	ErrorCodeMethodNotAllowed     = "MethodNotAllowed"
	ErrorCodeInvalidRequest       = "InvalidRequest"
)

// APIError is an error response of the Aeolius APIs. Handlers write it with
// WriteError; the SDK returns it for every non-2xx response.
type APIError struct {
	// StatusCode is the HTTP status code.
	StatusCode int `json:"-"`

	// Code is a stable machine-readable error code.
	Code string `json:"error"`

	// Message is a human-readable description.
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is matches APIErrors by status code and error code so errors.Is works
// against the predefined errors below.
func (e *APIError) Is(target error) bool {
	t, ok := target.(*APIError)
	if !ok {
		return false
	}
	return e.StatusCode == t.StatusCode && e.Code == t.Code
}

// WriteError writes e as a JSON response.
func (e *APIError) WriteError(w http.ResponseWriter) {
	httpx.WriteJSON(w, e.StatusCode, e)
}

// NewAPIError creates an APIError.
func NewAPIError(statusCode int, code, message string) *APIError {
	return &APIError{StatusCode: statusCode, Code: code, Message: message}
}

var (
	// ErrUnauthorized is returned when the bearer token is missing or the
	// identity provider rejected it.
	ErrUnauthorized = &APIError{
		StatusCode: http.StatusUnauthorized,
		Code:       ErrorCodeUnauthorized,
		Message:    "missing or invalid bearer token",
	}

	// ErrNotFound is returned when the account has no configuration.
	ErrNotFound = &APIError{
		StatusCode: http.StatusNotFound,
		Code:       ErrorCodeNotFound,
		Message:    "configuration not found",
	}

	ErrMissingService = &APIError{
		StatusCode: http.StatusUnprocessableEntity,
		Code:       ErrorCodeMissingService,
		Message:    "missing service query parameter",
	}

	// ErrInvalidConfiguration is returned for bodies that don't decode or
	// carry a postTTL below one month.
	ErrInvalidConfiguration = &APIError{
		StatusCode: http.StatusUnprocessableEntity,
		Code:       ErrorCodeInvalidConfiguration,
		Message:    "configuration must be {enabled bool, postTTL >= 1}",
	}

	ErrServiceNotAllowed = &APIError{
		StatusCode: http.StatusForbidden,
		Code:       ErrorCodeServiceNotAllowed,
		Message:    "service is not on the allow list",
	}

	// ErrUpstream is returned when the identity provider could not be reached
	// or failed for reasons other than the token.
	ErrUpstream = &APIError{
		StatusCode: http.StatusBadGateway,
		Code:       ErrorCodeUpstream,
		Message:    "identity provider request failed",
	}

	ErrServerError = &APIError{
		StatusCode: http.StatusInternalServerError,
		Code:       ErrorCodeServerError,
		Message:    "internal server error",
	}

	ErrMethodNotAllowed = &APIError{
		StatusCode: http.StatusMethodNotAllowed,
		Code:       ErrorCodeMethodNotAllowed,
		Message:    "method not allowed",
	}
)

// IsNotFound reports whether err is a 404 from the API.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// IsUnauthorized reports whether err means the credentials were rejected.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized
}

// parseErrorResponse turns a non-2xx response into an *APIError. It returns
// nil for 2xx responses.
func parseErrorResponse(resp *http.Response, body []byte) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	var errResp errorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error != "" {
		msg := errResp.Message
		if msg == "" {
			msg = errResp.ErrorDescription
		}
		return &APIError{StatusCode: resp.StatusCode, Code: errResp.Error, Message: msg}
	}

	// Bodyless responses, e.g. from the bearer middleware or a proxy.
	code := ErrorCodeServerError
	switch resp.StatusCode {
	case http.StatusUnauthorized:
		code = ErrorCodeUnauthorized
	case http.StatusNotFound:
		code = ErrorCodeNotFound
	case http.StatusMethodNotAllowed:
		code = ErrorCodeMethodNotAllowed
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		code = ErrorCodeUpstream
	}
	return &APIError{
		StatusCode: resp.StatusCode,
		Code:       code,
		Message:    fmt.Sprintf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode)),
	}
}
