package courtapi

import (
	"encoding/json"
	"net/http"

	"github.com/juricore/courtsync/pkg/errx"
)

var apiErrors = errx.NewRegistry("COURTAPI")

var (
	ErrAPIRequest = apiErrors.Register(
		"API_REQUEST_FAILED",
		errx.TypeExternal,
		http.StatusBadGateway,
		"Failed to reach the court records API",
	)

	ErrAPIResponse = apiErrors.Register(
		"API_RESPONSE_INVALID",
		errx.TypeExternal,
		http.StatusBadGateway,
		"Invalid response from the court records API",
	)

	ErrAPIUnauthorized = apiErrors.Register(
		"API_UNAUTHORIZED",
		errx.TypeValidation,
		http.StatusUnauthorized,
		"Invalid or missing court API token",
	)

	ErrAPIRateLimit = apiErrors.Register(
		"API_RATE_LIMIT",
		errx.TypeUnavailable,
		http.StatusTooManyRequests,
		"Court records API rate limit exceeded",
	)

	ErrAPINotFound = apiErrors.Register(
		"API_NOT_FOUND",
		errx.TypeNotFound,
		http.StatusNotFound,
		"Court records API resource not found",
	)

	ErrAPIBadRequest = apiErrors.Register(
		"API_BAD_REQUEST",
		errx.TypeValidation,
		http.StatusBadRequest,
		"Court records API rejected the request",
	)

	ErrAttemptsExhausted = apiErrors.Register(
		"ATTEMPTS_EXHAUSTED",
		errx.TypeExternal,
		http.StatusBadGateway,
		"Retries against the court records API exhausted",
	)
)

// ParseAPIError maps an upstream HTTP error response to a registry error.
// The Retry-After detail (seconds) is attached for 429 responses so the
// retry loop can honor the server's pacing.
func ParseAPIError(statusCode int, body []byte, retryAfter string) *errx.Error {
	message := extractMessage(body)

	var base *errx.ErrorCode
	switch {
	case statusCode == http.StatusTooManyRequests:
		base = ErrAPIRateLimit
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		base = ErrAPIUnauthorized
	case statusCode == http.StatusNotFound:
		base = ErrAPINotFound
	case statusCode >= 400 && statusCode < 500:
		base = ErrAPIBadRequest
	default:
		base = ErrAPIRequest
	}

	err := apiErrors.New(base)
	if message != "" {
		err = apiErrors.NewWithMessage(base, message)
	}
	err.WithDetail("status_code", statusCode)
	if retryAfter != "" {
		err.WithDetail("retry_after", retryAfter)
	}
	return err
}

func extractMessage(body []byte) string {
	var errResp struct {
		Detail  string `json:"detail"`
		Message string `json:"message"`
	}
	if jsonErr := json.Unmarshal(body, &errResp); jsonErr == nil {
		if errResp.Detail != "" {
			return errResp.Detail
		}
		if errResp.Message != "" {
			return errResp.Message
		}
	}
	if len(body) > 0 && len(body) <= 256 {
		return string(body)
	}
	return ""
}

// IsTransient reports whether err is worth retrying: rate limits, 5xx
// responses, timeouts and connection failures. Permanent rejections
// (validation, auth, not-found) are not.
func IsTransient(err error) bool {
	var e *errx.Error
	if !errx.As(err, &e) {
		return true // raw transport error
	}

	switch e.Code {
	case ErrAPIRateLimit.Code, ErrAPIRequest.Code, ErrAPIResponse.Code:
		return true
	}
	if status, ok := e.Details["status_code"].(int); ok && status >= 500 {
		return true
	}
	return false
}
