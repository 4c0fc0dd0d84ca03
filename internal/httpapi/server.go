package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/evalgo/vaultforge/internal/workflow/registry"
)

// NewServer builds an *echo.Echo wired with logging/recover/CORS
// middleware, the workflow route group, health checks, and a Prometheus
// /metrics endpoint, mirroring the teacher's runServer middleware stack.
func NewServer(handlers *Handlers, reg registry.Registry) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	e.GET("/readyz", func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()
		if _, err := reg.Stats(ctx); err != nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "unready", "error": err.Error()})
		}
		return c.JSON(http.StatusOK, map[string]string{"status": "ready"})
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	handlers.RegisterRoutes(e.Group(""))

	return e
}
