package job

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/healthlens/healthlens/internal/platform/auth"
	"github.com/healthlens/healthlens/pkg/engineerr"
	"github.com/healthlens/healthlens/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/jobs", h.Enqueue)
	api.GET("/jobs", h.List)
	api.GET("/jobs/:id", h.Get)
	api.POST("/jobs/:id/cancel", h.Cancel)
}

type enqueueRequest struct {
	Type       string          `json:"type"`
	Priority   Priority        `json:"priority,omitempty"`
	Parameters json.RawMessage `json:"parameters,omitempty"`
}

func (h *Handler) Enqueue(c echo.Context) error {
	var req enqueueRequest
	if err := c.Bind(&req); err != nil {
		return engineerr.Respond(c, engineerr.New(engineerr.CodeInvalidRequest, "malformed request body"))
	}
	if req.Type == "" {
		return engineerr.Respond(c, engineerr.New(engineerr.CodeInvalidRequest, "type is required"))
	}

	j, err := h.svc.Enqueue(c.Request().Context(), auth.UserID(c), req.Type, req.Priority, req.Parameters)
	if err != nil {
		return engineerr.Respond(c, err)
	}
	return c.JSON(http.StatusAccepted, j)
}

func (h *Handler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return engineerr.Respond(c, engineerr.New(engineerr.CodeInvalidRequest, "invalid job id"))
	}
	j, err := h.svc.Get(c.Request().Context(), auth.UserID(c), id)
	if err != nil {
		return engineerr.Respond(c, err)
	}
	return c.JSON(http.StatusOK, j)
}

func (h *Handler) Cancel(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return engineerr.Respond(c, engineerr.New(engineerr.CodeInvalidRequest, "invalid job id"))
	}
	j, err := h.svc.Cancel(c.Request().Context(), auth.UserID(c), id)
	if err != nil {
		return engineerr.Respond(c, err)
	}
	return c.JSON(http.StatusOK, j)
}

func (h *Handler) List(c echo.Context) error {
	p := pagination.FromContext(c)
	jobs, total, err := h.svc.List(c.Request().Context(), auth.UserID(c), p.Limit, p.Offset)
	if err != nil {
		return engineerr.Respond(c, err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(jobs, total, p.Limit, p.Offset))
}
