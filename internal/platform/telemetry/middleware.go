package telemetry

import (
	"strings"
	"time"

	"github.com/labstack/echo/v4"
)

// Middleware returns Echo middleware that records every analytics request
// into the provided Tracker.
func Middleware(tracker *Tracker) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			path := c.Request().URL.Path

			err := next(c)

			userID := ""
			if v := c.Get("user_id"); v != nil {
				if s, ok := v.(string); ok {
					userID = s
				}
			}

			tracker.Record(&OperationMetric{
				Timestamp:  start,
				Operation:  operationFromPath(path),
				UserID:     userID,
				StatusCode: c.Response().Status,
				Duration:   time.Since(start),
			})

			return err
		}
	}
}

// operationFromPath maps a request path to the analytics operation it
// exercises, e.g. /api/v1/analytics/forecast -> forecast.
func operationFromPath(path string) string {
	const prefix = "/api/v1/analytics/"
	if !strings.HasPrefix(path, prefix) {
		return "other"
	}
	rest := strings.TrimPrefix(path, prefix)
	if i := strings.IndexByte(rest, '/'); i >= 0 {
		rest = rest[:i]
	}
	if rest == "" {
		return "other"
	}
	return rest
}
