package telemetry

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
)

// Handler serves the usage admin endpoints.
type Handler struct {
	tracker *Tracker
}

func NewHandler(tracker *Tracker) *Handler {
	return &Handler{tracker: tracker}
}

// RegisterRoutes registers the telemetry admin endpoints on the given group.
func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("/telemetry/overview", h.HandleOverview)
	g.GET("/telemetry/operations/:name", h.HandleOperationStats)
	g.GET("/telemetry/users/:id", h.HandleUserStats)
	g.GET("/telemetry/recent", h.HandleRecent)
}

func (h *Handler) HandleOverview(c echo.Context) error {
	return c.JSON(http.StatusOK, h.tracker.GetOverview())
}

func (h *Handler) HandleOperationStats(c echo.Context) error {
	s := h.tracker.GetOperationStats(c.Param("name"))
	if s == nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "operation not found"})
	}
	return c.JSON(http.StatusOK, s)
}

func (h *Handler) HandleUserStats(c echo.Context) error {
	s := h.tracker.GetUserStats(c.Param("id"))
	if s == nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "user not found"})
	}
	return c.JSON(http.StatusOK, s)
}

func (h *Handler) HandleRecent(c echo.Context) error {
	n := 100
	if v := c.QueryParam("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			n = parsed
		}
	}
	return c.JSON(http.StatusOK, h.tracker.Recent(n))
}
