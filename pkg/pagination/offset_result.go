package pagination

// OffsetResult is one page of items plus the total match count.
type OffsetResult[T any] struct {
	Items   []T   `json:"items"`
	Total   int64 `json:"total"`
	Page    int   `json:"page"`
	Size    int   `json:"size"`
	HasMore bool  `json:"has_more"`
}

func NewOffsetResult[T any](items []T, total int64, req OffsetRequest) *OffsetResult[T] {
	if items == nil {
		items = []T{}
	}
	return &OffsetResult[T]{
		Items:   items,
		Total:   total,
		Page:    req.Page,
		Size:    req.Size,
		HasMore: int64(req.Offset()+len(items)) < total,
	}
}
