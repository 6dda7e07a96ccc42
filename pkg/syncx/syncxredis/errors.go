package syncxredis

import "github.com/juricore/courtsync/pkg/errx"

var redisErrors = errx.NewRegistry("SYNCX_REDIS")

var (
	ErrEnqueue   = redisErrors.Register("ENQUEUE", errx.TypeExternal, 500, "Redis enqueue failed")
	ErrClaim     = redisErrors.Register("CLAIM", errx.TypeExternal, 500, "Redis claim failed")
	ErrComplete  = redisErrors.Register("COMPLETE", errx.TypeExternal, 500, "Redis complete failed")
	ErrFail      = redisErrors.Register("FAIL", errx.TypeExternal, 500, "Redis fail update failed")
	ErrQuery     = redisErrors.Register("QUERY", errx.TypeExternal, 500, "Redis job query failed")
	ErrMarshal   = redisErrors.Register("MARSHAL", errx.TypeInternal, 500, "Failed to marshal job data")
	ErrUnmarshal = redisErrors.Register("UNMARSHAL", errx.TypeInternal, 500, "Failed to unmarshal job data")
)
