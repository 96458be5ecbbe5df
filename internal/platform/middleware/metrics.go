package middleware

import (
	"time"

	"github.com/labstack/echo/v4"

	"github.com/nestorcamelo12/hospitales/internal/platform/metrics"
)

// Metrics records request count and latency labelled by route template.
// It must wrap Logger so that errors are already rendered when it reads the
// response status.
func Metrics() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if c.Path() == "/metrics" {
				return next(c)
			}
			done := metrics.TrackInFlight()
			defer done()

			start := time.Now()
			err := next(c)
			metrics.ObserveHTTP(c.Request().Method, c.Path(), c.Response().Status, time.Since(start))
			return err
		}
	}
}
