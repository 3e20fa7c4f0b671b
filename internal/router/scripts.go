package router

import (
	"github.com/labstack/echo/v4"

	"github.com/deppfellow/platform-user/internal/handler"
	"github.com/deppfellow/platform-user/internal/server"
)

// registerScriptRoutes adds one route per script, throttled by limit.
func registerScriptRoutes(r *echo.Echo, s *server.Server, h *handler.Handlers, limit echo.MiddlewareFunc) {
	for _, def := range s.Scripts.All() {
		r.Add(def.Method, def.Path, h.Script.Handle(def), limit)

		s.Logger.Debug().
			Str("script", def.Name).
			Str("method", def.Method).
			Str("path", def.Path).
			Msg("registered script route")
	}
}
