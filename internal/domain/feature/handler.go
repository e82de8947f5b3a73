package feature

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/healthlens/healthlens/internal/platform/auth"
	"github.com/healthlens/healthlens/pkg/engineerr"
)

type Handler struct {
	registry *Registry
}

func NewHandler(registry *Registry) *Handler {
	return &Handler{registry: registry}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/features/domains", h.Domains)
	api.POST("/features/:domain", h.Extract)
}

func (h *Handler) Domains(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"domains": h.registry.Domains(),
		"version": SchemaVersion,
	})
}

type extractRequest struct {
	Payload map[string]interface{} `json:"payload"`
}

func (h *Handler) Extract(c echo.Context) error {
	var req extractRequest
	if err := c.Bind(&req); err != nil {
		return engineerr.Respond(c, engineerr.New(engineerr.CodeInvalidRequest, "malformed request body"))
	}

	result, err := h.registry.Extract(auth.UserID(c), c.Param("domain"), req.Payload)
	if err != nil {
		return engineerr.Respond(c, err)
	}
	return c.JSON(http.StatusOK, result)
}
