package ratexredis

import "github.com/juricore/courtsync/pkg/errx"

var ratexErrors = errx.NewRegistry("RATEX_REDIS")

var (
	ErrRedis         = ratexErrors.Register("REDIS", errx.TypeExternal, 500, "Redis rate counter operation failed")
	ErrBudgetSpent   = ratexErrors.Register("BUDGET_SPENT", errx.TypeUnavailable, 429, "Shared rate budget spent for this window")
	ErrWaitCancelled = ratexErrors.Register("WAIT_CANCELLED", errx.TypeUnavailable, 499, "Context cancelled while waiting for the next window")
)
