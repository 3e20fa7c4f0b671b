package handler

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/labstack/echo/v4"

	"github.com/deppfellow/platform-user/internal/script"
	"github.com/deppfellow/platform-user/internal/server"
)

// StaticDir holds the documentation assets served under /static.
var StaticDir = "static"

// OpenAPIHandler serves the API documentation.
type OpenAPIHandler struct {
	Handler
}

// NewOpenAPIHandler creates the /docs and /api/scripts handler.
func NewOpenAPIHandler(s *server.Server) *OpenAPIHandler {
	return &OpenAPIHandler{
		Handler: NewHandler(s),
	}
}

// ServeOpenAPIUI serves the documentation page that renders static/openapi.json.
func (h *OpenAPIHandler) ServeOpenAPIUI(c echo.Context) error {
	templateBytes, err := os.ReadFile(filepath.Join(StaticDir, "openapi.html"))
	if err != nil {
		return fmt.Errorf("failed to read OpenAPI UI template: %w", err)
	}

	c.Response().Header().Set("Cache-Control", "no-cache")

	if err := c.HTML(http.StatusOK, string(templateBytes)); err != nil {
		return fmt.Errorf("failed to write HTML response: %w", err)
	}

	return nil
}

// ListScripts describes the registered scripts and their declared parameters.
func (h *OpenAPIHandler) ListScripts(c echo.Context) error {
	defs := h.server.Scripts.All()
	if defs == nil {
		defs = []script.Definition{}
	}
	return c.JSON(http.StatusOK, defs)
}
