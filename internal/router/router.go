// Package router wires middleware and routes onto an echo instance.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/deppfellow/platform-user/internal/handler"
	"github.com/deppfellow/platform-user/internal/middleware"
	"github.com/deppfellow/platform-user/internal/server"
)

// NewRouter builds the echo instance: global middleware, system routes and
// one route per script registered on s.Scripts.
func NewRouter(s *server.Server, h *handler.Handlers) *echo.Echo {
	middlewares := middleware.NewMiddlewares(s)

	router := echo.New()
	router.HideBanner = true
	router.HidePort = true

	router.HTTPErrorHandler = middlewares.Global.GlobalErrorHandler

	router.Use(
		middleware.RequestID(),
		middlewares.Tracing.NewRelicMiddleware(),
		middlewares.Tracing.EnhanceTracing(),
		middlewares.ContextEnhancer.EnhanceContext(),
		middlewares.Global.CORS(),
		middlewares.Global.Secure(),
		middlewares.Global.RequestLogger(),
		middlewares.Global.Recover(),
	)

	registerSystemRoutes(router, h)
	registerScriptRoutes(router, s, h, middlewares.RateLimit.Limit())

	return router
}
