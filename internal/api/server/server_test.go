package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	pkgserver "github.com/DjordjeVuckovic/facetq/pkg/server"
	"github.com/stretchr/testify/assert"
)

func TestHealthChecks(t *testing.T) {
	cfg := &Config{Port: "8080", CorsOrigins: []string{"*"}, BodyLimit: "1K", ReadTimeout: time.Second, WriteTimeout: time.Second}

	tests := []struct {
		name    string
		healthy bool
		want    int
	}{
		{"healthy", true, http.StatusOK},
		{"unhealthy", false, http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			check := pkgserver.HealthCheckerFunc(func(context.Context) bool { return tt.healthy })
			s := New(cfg, pkgserver.NewOkHealthChecker()).
				WithHealthChecker(check).
				SetupMiddlewares().
				SetupErrorHandler().
				SetupHealthChecks()
			defer s.stop()

			rec := httptest.NewRecorder()
			s.Echo.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}
