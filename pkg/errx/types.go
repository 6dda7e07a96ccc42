package errx

// Type categorizes an error.
type Type string

const (
	// TypeInternal represents internal errors
	TypeInternal Type = "INTERNAL"

	// TypeValidation represents validation errors
	TypeValidation Type = "VALIDATION"

	// TypeNotFound represents resource not found errors
	TypeNotFound Type = "NOT_FOUND"

	// TypeConflict represents resource conflict errors
	TypeConflict Type = "CONFLICT"

	// TypeBusiness represents business logic errors
	TypeBusiness Type = "BUSINESS"

	// TypeExternal represents errors from external services
	TypeExternal Type = "EXTERNAL"

	// TypeUnavailable represents errors from a dependency that is
	// temporarily refusing work (rate limited, circuit open, store down)
	TypeUnavailable Type = "UNAVAILABLE"
)

// String returns the string representation of the error type
func (t Type) String() string {
	return string(t)
}
