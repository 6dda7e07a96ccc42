package syncxpg

import "github.com/juricore/courtsync/pkg/errx"

var pgErrors = errx.NewRegistry("SYNCX_PG")

var (
	ErrEnqueue  = pgErrors.Register("ENQUEUE", errx.TypeExternal, 500, "Postgres enqueue failed")
	ErrClaim    = pgErrors.Register("CLAIM", errx.TypeExternal, 500, "Postgres claim failed")
	ErrComplete = pgErrors.Register("COMPLETE", errx.TypeExternal, 500, "Postgres complete failed")
	ErrFail     = pgErrors.Register("FAIL", errx.TypeExternal, 500, "Postgres fail update failed")
	ErrQuery    = pgErrors.Register("QUERY", errx.TypeExternal, 500, "Postgres job query failed")
	ErrSchema   = pgErrors.Register("SCHEMA", errx.TypeExternal, 500, "Postgres schema setup failed")
)
