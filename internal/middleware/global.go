package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/deppfellow/platform-user/internal/errs"
	"github.com/deppfellow/platform-user/internal/script"
	"github.com/deppfellow/platform-user/internal/server"
	"github.com/deppfellow/platform-user/internal/sqlerr"
)

// MessageRouteNotFound is the envelope message for unknown routes.
const MessageRouteNotFound = "Route not found"

// GlobalMiddlewares groups the middleware applied to every route and the
// global error handler.
type GlobalMiddlewares struct {
	server *server.Server
}

// NewGlobalMiddlewares builds the global middleware around the application container.
func NewGlobalMiddlewares(s *server.Server) *GlobalMiddlewares {
	return &GlobalMiddlewares{
		server: s,
	}
}

// CORS allows the origins listed in server.cors_allowed_origins.
func (global *GlobalMiddlewares) CORS() echo.MiddlewareFunc {
	return middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: global.server.Config.Server.CORSAllowedOrigins,
	})
}

// RequestLogger writes one structured line per request.
//
// A handler error has not been rendered yet when the line is written, so the
// status is derived from the error the same way GlobalErrorHandler does it.
func (global *GlobalMiddlewares) RequestLogger() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:     true,
		LogStatus:  true,
		LogError:   true,
		LogLatency: true,
		LogHost:    true,
		LogMethod:  true,
		LogURIPath: true,

		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			statusCode := v.Status
			if v.Error != nil {
				statusCode, _ = statusOf(v.Error)
			}

			logger := GetLogger(c)

			var e *zerolog.Event
			switch {
			case statusCode >= 500:
				e = logger.Error().Err(v.Error)
			case statusCode >= 400:
				e = logger.Warn()
			default:
				e = logger.Info()
			}

			e.
				Dur("latency", v.Latency).
				Int("status", statusCode).
				Str("method", v.Method).
				Str("uri", v.URI).
				Str("host", v.Host).
				Str("ip", c.RealIP()).
				Str("user_agent", c.Request().UserAgent()).
				Msg("API")

			return nil
		},
	})
}

// Recover turns panics into errors so GlobalErrorHandler answers with a 500 envelope.
func (global *GlobalMiddlewares) Recover() echo.MiddlewareFunc {
	return middleware.RecoverWithConfig(middleware.RecoverConfig{
		LogErrorFunc: func(c echo.Context, err error, stack []byte) error {
			GetLogger(c).Error().
				Err(err).
				Bytes("stack", stack).
				Msg("recovered from panic")
			return err
		},
	})
}

// Secure sets the standard security headers.
func (global *GlobalMiddlewares) Secure() echo.MiddlewareFunc {
	return middleware.Secure()
}

// statusOf resolves the HTTP status and envelope message for err.
// Anything that is not a host error is an internal failure and keeps its
// details out of the response.
func statusOf(err error) (int, string) {
	var httpErr *errs.HTTPError
	var echoErr *echo.HTTPError

	switch {
	case errors.As(err, &httpErr):
		return httpErr.Status, httpErr.Message

	case errors.As(err, &echoErr):
		if echoErr.Code == http.StatusNotFound {
			return http.StatusNotFound, MessageRouteNotFound
		}
		if msg, ok := echoErr.Message.(string); ok && msg != "" {
			return echoErr.Code, msg
		}
		return echoErr.Code, http.StatusText(echoErr.Code)

	default:
		return http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError)
	}
}

// GlobalErrorHandler renders every error that escapes a handler as an
// envelope whose code equals the HTTP status.
func (global *GlobalMiddlewares) GlobalErrorHandler(err error, c echo.Context) {
	status, message := statusOf(err)
	code := errs.MakeUpperCaseWithUnderscores(http.StatusText(status))

	logger := GetLogger(c)

	var event *zerolog.Event
	if status >= 500 {
		event = logger.Error().Stack()
	} else {
		event = logger.Warn()
	}

	sqlerr.AddFields(event, err).
		Err(err).
		Int("status", status).
		Str("error_code", code).
		Msg(message)

	if c.Response().Committed {
		return
	}

	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(status)
		return
	}
	_ = c.JSON(status, script.Failure(status, message))
}
