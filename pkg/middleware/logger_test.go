package middleware_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DjordjeVuckovic/facetq/pkg/middleware"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	e := echo.New()
	e.Use(middleware.Logger(
		middleware.WithLogger(logger),
		middleware.WithSkipper(func(c echo.Context) bool { return c.Path() == "/health" }),
	))
	e.GET("/ok", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })
	e.GET("/fail", func(c echo.Context) error { return errors.New("boom") })
	e.GET("/health", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	for _, path := range []string{"/ok", "/fail", "/health"} {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	}

	var lines []map[string]any
	dec := json.NewDecoder(&buf)
	for dec.More() {
		var m map[string]any
		require.NoError(t, dec.Decode(&m))
		lines = append(lines, m)
	}
	require.Len(t, lines, 2)

	assert.Equal(t, "REQUEST", lines[0]["msg"])
	assert.Equal(t, "/ok", lines[0]["uri"])
	assert.Equal(t, float64(http.StatusOK), lines[0]["status"])
	assert.Equal(t, "GET", lines[0]["method"])

	assert.Equal(t, "REQUEST_ERROR", lines[1]["msg"])
	assert.Equal(t, "boom", lines[1]["err"])
	assert.Equal(t, float64(http.StatusInternalServerError), lines[1]["status"])
}
