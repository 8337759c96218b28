package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"
)

// Pinger checks that storage answers.
type Pinger interface {
	Ping(ctx context.Context) error
}

type DefaultUtilRoute struct {
	Storage Pinger
}

func NewUtilRoute(storage Pinger) *DefaultUtilRoute {
	return &DefaultUtilRoute{Storage: storage}
}

// HealthCheck is used by the Docker Compose healthcheck.
func (u *DefaultUtilRoute) HealthCheck(c echo.Context) error {
	if err := u.Storage.Ping(c.Request().Context()); err != nil {
		log.Errorf("health check failed: %v", err)
		return c.String(http.StatusServiceUnavailable, "UNAVAILABLE")
	}
	return c.String(http.StatusOK, "OK")
}
