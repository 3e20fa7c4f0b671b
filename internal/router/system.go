package router

import (
	"github.com/labstack/echo/v4"

	"github.com/deppfellow/platform-user/internal/handler"
)

func registerSystemRoutes(r *echo.Echo, h *handler.Handlers) {
	r.GET("/status", h.Health.CheckHealth)

	r.Static("/static", handler.StaticDir)

	r.GET("/docs", h.OpenAPI.ServeOpenAPIUI)
	r.GET("/api/scripts", h.OpenAPI.ListScripts)
}
