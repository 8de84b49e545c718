package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/storefront/store-api/internal/core/apperr"
)

const internalMessage = "internal server error"

// errorResponse is the canonical error envelope for all API errors.
// Status is "fail" for client errors and "error" for server errors.
type errorResponse struct {
	Status  string              `json:"status"`
	Message string              `json:"message"`
	Errors  []apperr.FieldError `json:"errors,omitempty"`
	Detail  string              `json:"detail,omitempty"`
}

// NewHTTPErrorHandler returns an echo.HTTPErrorHandler that:
//   - Maps apperr kinds and echo's own errors to HTTP status codes.
//   - Logs non-operational errors with their full cause chain.
//   - Adds the cause as "detail" only when exposeDetail is set.
func NewHTTPErrorHandler(log zerolog.Logger, exposeDetail bool) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code, body := resolveError(err)
		if code >= http.StatusInternalServerError {
			log.Error().
				Err(err).
				Str("method", c.Request().Method).
				Str("path", c.Path()).
				Str("request_id", c.Response().Header().Get(echo.HeaderXRequestID)).
				Msg("unhandled error")
			if exposeDetail {
				body.Detail = err.Error()
			}
		}

		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(code)
			return
		}
		_ = c.JSON(code, body)
	}
}

func resolveError(err error) (int, errorResponse) {
	if ae, ok := apperr.As(err); ok {
		code := ae.Kind.Status()
		if !ae.Kind.Operational() {
			return code, errorResponse{Status: "error", Message: internalMessage}
		}
		return code, errorResponse{Status: statusWord(code), Message: ae.Message, Errors: ae.Fields}
	}

	// Echo's own errors (unknown route, method not allowed, rate limiter).
	var he *echo.HTTPError
	if errors.As(err, &he) {
		msg := http.StatusText(he.Code)
		if m, ok := he.Message.(string); ok && m != "" {
			msg = m
		} else if he.Message != nil {
			msg = fmt.Sprintf("%v", he.Message)
		}
		if he.Code >= http.StatusInternalServerError {
			msg = internalMessage
		}
		return he.Code, errorResponse{Status: statusWord(he.Code), Message: msg}
	}

	return http.StatusInternalServerError, errorResponse{Status: "error", Message: internalMessage}
}

func statusWord(code int) string {
	if code >= http.StatusInternalServerError {
		return "error"
	}
	return "fail"
}
