package ratex

import "github.com/juricore/courtsync/pkg/errx"

var ratexErrors = errx.NewRegistry("RATEX")

var (
	ErrRateLimited   = ratexErrors.Register("RATE_LIMITED", errx.TypeUnavailable, 429, "Rate limit exceeded")
	ErrInvalidCost   = ratexErrors.Register("INVALID_COST", errx.TypeValidation, 400, "Acquire cost exceeds bucket capacity")
	ErrWaitCancelled = ratexErrors.Register("WAIT_CANCELLED", errx.TypeUnavailable, 499, "Context cancelled while waiting for tokens")
)
