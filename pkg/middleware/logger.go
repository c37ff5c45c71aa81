package middleware

import (
	"log/slog"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

type LoggerOpts func(*middleware.RequestLoggerConfig)

// WithSkipper excludes matching requests, e.g. health probes.
func WithSkipper(skip middleware.Skipper) LoggerOpts {
	return func(c *middleware.RequestLoggerConfig) { c.Skipper = skip }
}

// WithLogger routes request logs to l instead of slog.Default.
func WithLogger(l *slog.Logger) LoggerOpts {
	return func(c *middleware.RequestLoggerConfig) { c.LogValuesFunc = logValues(l) }
}

// Logger logs one structured line per request.
func Logger(opts ...LoggerOpts) echo.MiddlewareFunc {
	o := defaultOpt()
	for _, opt := range opts {
		opt(&o)
	}
	return middleware.RequestLoggerWithConfig(o)
}

func defaultOpt() middleware.RequestLoggerConfig {
	return middleware.RequestLoggerConfig{
		LogStatus:    true,
		LogLatency:   true,
		LogURI:       true,
		LogMethod:    true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			return logValues(slog.Default())(c, v)
		},
	}
}

func logValues(l *slog.Logger) func(echo.Context, middleware.RequestLoggerValues) error {
	return func(c echo.Context, v middleware.RequestLoggerValues) error {
		attrs := []slog.Attr{
			slog.String("method", v.Method),
			slog.String("uri", v.URI),
			slog.Int("status", v.Status),
			slog.Duration("latency", v.Latency),
		}
		if v.RequestID != "" {
			attrs = append(attrs, slog.String("request_id", v.RequestID))
		}
		if v.Error == nil {
			l.LogAttrs(c.Request().Context(), slog.LevelInfo, "REQUEST", attrs...)
			return nil
		}
		attrs = append(attrs, slog.String("err", v.Error.Error()))
		l.LogAttrs(c.Request().Context(), slog.LevelError, "REQUEST_ERROR", attrs...)
		return nil
	}
}
