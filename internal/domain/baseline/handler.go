package baseline

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/healthlens/healthlens/internal/platform/auth"
	"github.com/healthlens/healthlens/pkg/engineerr"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/baseline", h.Update)
	api.GET("/baseline/:metric", h.Get)
	api.GET("/baselines", h.List)
}

type updateRequest struct {
	Metric    string     `json:"metric"`
	Value     float64    `json:"value"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
}

func (h *Handler) Update(c echo.Context) error {
	var req updateRequest
	if err := c.Bind(&req); err != nil {
		return engineerr.Respond(c, engineerr.New(engineerr.CodeInvalidRequest, "malformed request body"))
	}

	at := time.Time{}
	if req.Timestamp != nil {
		at = *req.Timestamp
	}
	b, err := h.svc.Update(c.Request().Context(), auth.UserID(c), req.Metric, req.Value, at)
	if err != nil {
		return engineerr.Respond(c, err)
	}
	return c.JSON(http.StatusOK, b)
}

func (h *Handler) Get(c echo.Context) error {
	b, err := h.svc.Get(c.Request().Context(), auth.UserID(c), c.Param("metric"))
	if err != nil {
		return engineerr.Respond(c, err)
	}
	return c.JSON(http.StatusOK, b)
}

func (h *Handler) List(c echo.Context) error {
	baselines, err := h.svc.List(c.Request().Context(), auth.UserID(c))
	if err != nil {
		return engineerr.Respond(c, err)
	}
	if baselines == nil {
		baselines = []*Baseline{}
	}
	return c.JSON(http.StatusOK, baselines)
}
