package ingest

import "github.com/juricore/courtsync/pkg/errx"

var ingestErrors = errx.NewRegistry("INGEST")

var (
	ErrBadOptions = ingestErrors.Register("BAD_OPTIONS", errx.TypeValidation, 400, "Invalid sync job options")
	ErrListPage   = ingestErrors.Register("LIST_PAGE", errx.TypeExternal, 502, "Failed to fetch a page from the court API")
	ErrStore      = ingestErrors.Register("STORE", errx.TypeInternal, 500, "Failed to persist fetched records")
)
