package circadian

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
	api.POST("/circadian", h.Analyze)
	api.GET("/circadian", h.List)
}

type analyzeRequest struct {
	Data []health.DataPoint `json:"data"`
}

func (h *Handler) Analyze(c echo.Context) error {
	var req analyzeRequest
	if err := c.Bind(&req); err != nil {
		return engineerr.Respond(c, engineerr.New(engineerr.CodeInvalidRequest, "malformed request body"))
	}

	analysis, err := h.svc.Analyze(c.Request().Context(), auth.UserID(c), req.Data)
	if err != nil {
		return engineerr.Respond(c, err)
	}
	return c.JSON(http.StatusOK, analysis)
}

func (h *Handler) List(c echo.Context) error {
	p := pagination.FromContext(c)
	analyses, total, err := h.svc.List(c.Request().Context(), auth.UserID(c), p.Limit, p.Offset)
	if err != nil {
		return engineerr.Respond(c, err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(analyses, total, p.Limit, p.Offset))
}
