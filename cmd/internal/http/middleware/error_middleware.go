package middleware

import (
	"errors"
	"fmt"
	"net/http"

	"companyinfo/cmd/internal/utils/apierror"

	"github.com/labstack/echo/v4"
)

type ErrorMiddlewareConfig struct {
	// MaxUploadSize is reported when echo's BodyLimit rejects a request.
	MaxUploadSize int64
}

// NewErrorMiddleware renders the errors echo produces on its own (unknown
// routes, body limit, bad methods) in the same shape as apierror.APIError.
func NewErrorMiddleware(cfg *ErrorMiddlewareConfig) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			err := next(c)
			if err == nil || c.Response().Committed {
				return err
			}

			var he *echo.HTTPError
			if !errors.As(err, &he) {
				return err
			}

			if he.Code == http.StatusRequestEntityTooLarge {
				return c.JSON(he.Code, apierror.NewUploadTooLargeError(cfg.MaxUploadSize))
			}

			msg := http.StatusText(he.Code)
			if m, ok := he.Message.(string); ok && m != "" {
				msg = m
			} else if he.Message != nil {
				msg = fmt.Sprint(he.Message)
			}
			return c.JSON(he.Code, apierror.NewSimple(he.Code, "%s", msg))
		}
	}
}
