package health

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewServer wires readiness/liveness/metrics routes onto a fresh echo
// instance, the same single-process HTTP server shape this codebase's
// dispatcher services use alongside their background workers.
func NewServer(metrics *Metrics, probe *Probe) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.GET("/readyz", func(c echo.Context) error {
		view := probe.Readiness(c.Request().Context())
		status := http.StatusOK
		if !view.OK {
			status = http.StatusServiceUnavailable
		}
		return c.JSON(status, view)
	})

	e.GET("/livez", func(c echo.Context) error {
		view := probe.Liveness(c.Request().Context())
		status := http.StatusOK
		if !view.OK {
			status = http.StatusServiceUnavailable
		}
		return c.JSON(status, view)
	})

	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{})))

	return e
}
