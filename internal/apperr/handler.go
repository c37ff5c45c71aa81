package apperr

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
)

func statusFor(kind Kind) int {
	switch kind {
	case KindValidation, KindInvalidFilter, KindInvalidFacet, KindParse:
		return http.StatusBadRequest
	case KindUnknownField, KindUnsupportedUseCase:
		return http.StatusUnprocessableEntity
	case KindUnsupported:
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}

func GlobalErrorHandler() echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		var ae *Error
		if errors.As(err, &ae) {
			body := map[string]string{"error": ae.Error(), "title": string(ae.Kind)}
			if ae.Field != "" {
				body["field"] = ae.Field
			}
			_ = c.JSON(statusFor(ae.Kind), body)
			return
		}

		var he *echo.HTTPError
		if errors.As(err, &he) {
			msg := fmt.Sprintf("%v", he.Message)
			_ = c.JSON(he.Code, map[string]string{"error": msg})
			return
		}

		slog.Error("Unhandled error", "error", err)
		_ = c.JSON(http.StatusInternalServerError, map[string]string{"error": "internal server error"})
	}
}
