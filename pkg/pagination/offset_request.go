// Package pagination holds the page window shared by the search endpoints
// and every storage backend.
package pagination

const (
	PageDefaultSize = 100
	PageMaxSize     = 10_000
)

// OffsetRequest is a 1-based page of Size hits.
type OffsetRequest struct {
	Page int `json:"page" query:"page"`
	Size int `json:"size" query:"size"`
}

// Normalize returns r clamped into range: page at least 1, size defaulted
// and capped.
func (r OffsetRequest) Normalize() OffsetRequest {
	if r.Page <= 0 {
		r.Page = 1
	}
	if r.Size <= 0 {
		r.Size = PageDefaultSize
	}
	if r.Size > PageMaxSize {
		r.Size = PageMaxSize
	}
	return r
}

// Offset is the number of items skipped before the page starts.
func (r OffsetRequest) Offset() int {
	if r.Page <= 1 {
		return 0
	}
	return (r.Page - 1) * r.Size
}
