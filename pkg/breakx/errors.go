package breakx

import "github.com/juricore/courtsync/pkg/errx"

var breakxErrors = errx.NewRegistry("BREAKX")

var (
	ErrCircuitOpen = breakxErrors.Register("CIRCUIT_OPEN", errx.TypeUnavailable, 503, "Circuit breaker is open")
	ErrProbeBusy   = breakxErrors.Register("PROBE_BUSY", errx.TypeUnavailable, 503, "Half-open trial call already in flight")
)

// IsCircuitOpen reports whether err is a breaker fail-fast rejection.
func IsCircuitOpen(err error) bool {
	var e *errx.Error
	if errx.As(err, &e) {
		return e.Code == ErrCircuitOpen.Code || e.Code == ErrProbeBusy.Code
	}
	return false
}
