package middleware

import (
	"strconv"
	"time"

	"github.com/siherrmann/schoolpayManager/metrics"

	"github.com/labstack/echo/v4"
)

// MetricsMiddleware records request count and duration per route template.
func (r *Middleware) MetricsMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		err := next(c)
		if err != nil {
			c.Error(err)
		}

		route := c.Path()
		if route == "" {
			route = "unmatched"
		}
		status := strconv.Itoa(c.Response().Status)
		metrics.RequestTotal.WithLabelValues(c.Request().Method, route, status).Inc()
		metrics.RequestDuration.WithLabelValues(c.Request().Method, route).Observe(time.Since(start).Seconds())
		return nil
	}
}
