package anomaly

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
	api.POST("/anomalies", h.Detect)
	api.GET("/anomalies", h.List)
}

type detectRequest struct {
	Data        []health.DataPoint `json:"data"`
	Algorithms  []string           `json:"algorithms,omitempty"`
	Sensitivity string             `json:"sensitivity,omitempty"`
}

func (h *Handler) Detect(c echo.Context) error {
	var req detectRequest
	if err := c.Bind(&req); err != nil {
		return engineerr.Respond(c, engineerr.New(engineerr.CodeInvalidRequest, "malformed request body"))
	}

	records, err := h.svc.Detect(c.Request().Context(), auth.UserID(c), req.Data, req.Algorithms, req.Sensitivity)
	if err != nil {
		return engineerr.Respond(c, err)
	}
	if records == nil {
		records = []*Record{}
	}
	return c.JSON(http.StatusOK, records)
}

func (h *Handler) List(c echo.Context) error {
	p := pagination.FromContext(c)
	records, total, err := h.svc.repo.ListByUser(c.Request().Context(), auth.UserID(c), p.Limit, p.Offset)
	if err != nil {
		return engineerr.Respond(c, err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(records, total, p.Limit, p.Offset))
}
