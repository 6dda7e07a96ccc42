package errx

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Error is a rich error with a stable code, category and optional details.
type Error struct {
	// Code is the unique error code
	Code string `json:"code"`

	// Message is the human-readable error message
	Message string `json:"message"`

	// Type categorizes the error
	Type Type `json:"type"`

	// HTTPStatus is the suggested HTTP status code
	HTTPStatus int `json:"http_status"`

	// Details contains additional context about the error
	Details map[string]interface{} `json:"details,omitempty"`

	// Err is the underlying error (not exported in JSON)
	Err error `json:"-"`
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Err
}

// WithDetail adds a detail and returns the error for chaining
func (e *Error) WithDetail(key string, value interface{}) *Error {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// WithDetails adds multiple details to the error
func (e *Error) WithDetails(details map[string]interface{}) *Error {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	for k, v := range details {
		e.Details[k] = v
	}
	return e
}

// MarshalJSON implements json.Marshaler
func (e *Error) MarshalJSON() ([]byte, error) {
	type Alias Error
	return json.Marshal(&struct {
		*Alias
		Error string `json:"error,omitempty"`
	}{
		Alias: (*Alias)(e),
		Error: e.Error(),
	})
}

// New creates a new Error of the given type
func New(message string, errType Type) *Error {
	return &Error{
		Code:       string(errType),
		Message:    message,
		Type:       errType,
		HTTPStatus: typeToHTTPStatus(errType),
		Details:    make(map[string]interface{}),
	}
}

// Wrap wraps an existing error with additional context
func Wrap(err error, message string, errType Type) *Error {
	if err == nil {
		return nil
	}

	// Preserve code and details when wrapping an Error
	var existing *Error
	if errors.As(err, &existing) {
		return &Error{
			Code:       existing.Code,
			Message:    message,
			Type:       errType,
			HTTPStatus: existing.HTTPStatus,
			Details:    existing.Details,
			Err:        err,
		}
	}

	return &Error{
		Code:       string(errType),
		Message:    message,
		Type:       errType,
		HTTPStatus: typeToHTTPStatus(errType),
		Details:    make(map[string]interface{}),
		Err:        err,
	}
}

// Wrapf wraps an error with a formatted message
func Wrapf(err error, errType Type, format string, args ...interface{}) *Error {
	return Wrap(err, fmt.Sprintf(format, args...), errType)
}

// Is checks if an error matches the target error
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// IsType reports whether err carries the given errx type anywhere in its chain
func IsType(err error, t Type) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Type == t
	}
	return false
}

// typeToHTTPStatus maps error types to HTTP status codes
func typeToHTTPStatus(t Type) int {
	switch t {
	case TypeValidation:
		return 400
	case TypeNotFound:
		return 404
	case TypeConflict:
		return 409
	case TypeBusiness:
		return 422
	case TypeExternal:
		return 502
	case TypeUnavailable:
		return 503
	case TypeInternal:
		return 500
	default:
		return 500
	}
}
