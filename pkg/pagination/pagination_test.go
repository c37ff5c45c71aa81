package pagination_test

import (
	"testing"

	"github.com/DjordjeVuckovic/facetq/pkg/pagination"
	"github.com/stretchr/testify/assert"
)

func TestOffsetRequestNormalize(t *testing.T) {
	tests := []struct {
		in         pagination.OffsetRequest
		page, size int
		offset     int
	}{
		{pagination.OffsetRequest{}, 1, pagination.PageDefaultSize, 0},
		{pagination.OffsetRequest{Page: 3, Size: 20}, 3, 20, 40},
		{pagination.OffsetRequest{Page: -1, Size: 1_000_000}, 1, pagination.PageMaxSize, 0},
	}
	for _, tt := range tests {
		r := tt.in.Normalize()
		assert.Equal(t, tt.page, r.Page)
		assert.Equal(t, tt.size, r.Size)
		assert.Equal(t, tt.offset, r.Offset())
	}
}

func TestNewOffsetResult(t *testing.T) {
	res := pagination.NewOffsetResult([]string{"a", "b"}, 5, pagination.OffsetRequest{Page: 2, Size: 2})
	assert.True(t, res.HasMore)

	res = pagination.NewOffsetResult([]string{"e"}, 5, pagination.OffsetRequest{Page: 3, Size: 2})
	assert.False(t, res.HasMore)

	empty := pagination.NewOffsetResult[string](nil, 0, pagination.OffsetRequest{Page: 1, Size: 10})
	assert.NotNil(t, empty.Items)
}
