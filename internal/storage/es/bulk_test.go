package es

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBulkItem(t *testing.T) {
	tests := []struct {
		name    string
		routing string
	}{
		{"parent", ""},
		{"child routed to parent", "p1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item := bulkItem("r1", []byte(`{"a":1}`), tt.routing)
			assert.Equal(t, "index", item.Action)
			assert.Equal(t, "r1", item.DocumentID)
			assert.Equal(t, tt.routing, item.Routing)

			body, err := io.ReadAll(item.Body)
			require.NoError(t, err)
			assert.JSONEq(t, `{"a":1}`, string(body))
		})
	}
}
