package courtapi

// Judge is the minimal judge payload the sync pipeline cares about.
// Handler-level field mapping owns the rest of the upstream schema.
type Judge struct {
	ID           int64  `json:"id"`
	Name         string `json:"name_full"`
	CourtID      string `json:"court"`
	Position     string `json:"position_type,omitempty"`
	DateModified string `json:"date_modified"`
}

// Court is a court record as served by the upstream API.
type Court struct {
	ID           string `json:"id"`
	FullName     string `json:"full_name"`
	Jurisdiction string `json:"jurisdiction"`
	CitationAbbr string `json:"citation_string,omitempty"`
	DateModified string `json:"date_modified"`
}

// OpinionCluster groups the opinions issued for a single case.
type OpinionCluster struct {
	ID           int64  `json:"id"`
	CaseName     string `json:"case_name"`
	CourtID      string `json:"court"`
	DateFiled    string `json:"date_filed"`
	DateModified string `json:"date_modified"`
}

// listEnvelope is the upstream pagination wrapper.
type listEnvelope[T any] struct {
	Count   int    `json:"count"`
	Next    string `json:"next"`
	Results []T    `json:"results"`
}

// ListParams filters list operations. The zero value lists everything from
// the first page with the server's default page size.
type ListParams struct {
	Jurisdiction  string
	ModifiedAfter string
	PageSize      int
}
