package forecast

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/healthlens/healthlens/internal/platform/auth"
	"github.com/healthlens/healthlens/pkg/engineerr"
	"github.com/healthlens/healthlens/pkg/health"
	"github.com/healthlens/healthlens/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/forecast", h.Generate)
	api.GET("/forecasts", h.List)
}

type generateRequest struct {
	Metric  string             `json:"metric"`
	Horizon string             `json:"horizon"`
	Data    []health.DataPoint `json:"data"`
}

func (h *Handler) Generate(c echo.Context) error {
	var req generateRequest
	if err := c.Bind(&req); err != nil {
		return engineerr.Respond(c, engineerr.New(engineerr.CodeInvalidRequest, "malformed request body"))
	}
	if req.Metric == "" {
		return engineerr.Respond(c, engineerr.New(engineerr.CodeInvalidRequest, "metric is required"))
	}

	result, err := h.svc.Generate(c.Request().Context(), auth.UserID(c), req.Metric, req.Horizon, req.Data)
	if err != nil {
		return engineerr.Respond(c, err)
	}
	return c.JSON(http.StatusOK, result)
}

func (h *Handler) List(c echo.Context) error {
	p := pagination.FromContext(c)
	results, total, err := h.svc.repo.ListByUser(c.Request().Context(), auth.UserID(c), p.Limit, p.Offset)
	if err != nil {
		return engineerr.Respond(c, err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(results, total, p.Limit, p.Offset))
}
