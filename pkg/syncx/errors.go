package syncx

import "github.com/juricore/courtsync/pkg/errx"

var syncxErrors = errx.NewRegistry("SYNCX")

var (
	ErrJobNotFound       = syncxErrors.Register("JOB_NOT_FOUND", errx.TypeNotFound, 404, "Sync job not found")
	ErrInvalidJob        = syncxErrors.Register("INVALID_JOB", errx.TypeValidation, 400, "Invalid sync job definition")
	ErrInvalidTransition = syncxErrors.Register("INVALID_TRANSITION", errx.TypeConflict, 409, "Job is not in a state that allows this transition")
	ErrEnqueueFailed     = syncxErrors.Register("ENQUEUE_FAILED", errx.TypeExternal, 500, "Failed to enqueue sync job")
	ErrClaimFailed       = syncxErrors.Register("CLAIM_FAILED", errx.TypeExternal, 500, "Failed to claim sync job")
	ErrCompleteFailed    = syncxErrors.Register("COMPLETE_FAILED", errx.TypeExternal, 500, "Failed to complete sync job")
	ErrFailFailed        = syncxErrors.Register("FAIL_FAILED", errx.TypeExternal, 500, "Failed to record sync job failure")
	ErrListFailed        = syncxErrors.Register("LIST_FAILED", errx.TypeExternal, 500, "Failed to list sync jobs")
	ErrNoHandler         = syncxErrors.Register("NO_HANDLER", errx.TypeValidation, 400, "No handler registered for job type")
	ErrAlreadyRunning    = syncxErrors.Register("ALREADY_RUNNING", errx.TypeConflict, 409, "Worker client is already running")
)

// NotFoundError builds the canonical job-not-found error. Shared by the
// storage backends so callers can match on one code.
func NotFoundError(jobID string) *errx.Error {
	return syncxErrors.New(ErrJobNotFound).WithDetail("job_id", jobID)
}

// InvalidTransitionError builds the canonical transition-guard error.
func InvalidTransitionError(jobID string, status JobStatus) *errx.Error {
	return syncxErrors.New(ErrInvalidTransition).
		WithDetail("job_id", jobID).
		WithDetail("status", string(status))
}

// IsNotFound reports whether err is a job-not-found error.
func IsNotFound(err error) bool {
	var e *errx.Error
	return errx.As(err, &e) && e.Code == ErrJobNotFound.Code
}

// IsInvalidTransition reports whether err is a transition-guard rejection.
func IsInvalidTransition(err error) bool {
	var e *errx.Error
	return errx.As(err, &e) && e.Code == ErrInvalidTransition.Code
}
