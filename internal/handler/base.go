package handler

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/newrelic/go-agent/v3/integrations/nrpkgerrors"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/pkg/errors"

	"github.com/deppfellow/platform-user/internal/middleware"
	"github.com/deppfellow/platform-user/internal/script"
	"github.com/deppfellow/platform-user/internal/server"
	"github.com/deppfellow/platform-user/internal/sqlerr"
	"github.com/deppfellow/platform-user/internal/validation"
)

// Handler gives every handler access to the application container.
type Handler struct {
	server *server.Server
}

// NewHandler creates the base embedded by every handler.
func NewHandler(s *server.Server) Handler {
	return Handler{server: s}
}

// ScriptHandler exposes handler scripts over HTTP.
type ScriptHandler struct {
	Handler
}

// NewScriptHandler creates the handler that runs scripts against s.DB.
func NewScriptHandler(s *server.Server) *ScriptHandler {
	return &ScriptHandler{
		Handler: NewHandler(s),
	}
}

// Handle returns the echo handler for def.
func (h *ScriptHandler) Handle(def script.Definition) echo.HandlerFunc {
	return func(c echo.Context) error {
		return h.handleScript(c, def)
	}
}

// handleScript binds parameters, runs the script and writes its envelope
// with the envelope code as HTTP status. Binding errors and store errors are
// returned to the global error handler.
func (h *ScriptHandler) handleScript(c echo.Context, def script.Definition) error {
	start := time.Now()

	txn := newrelic.FromContext(c.Request().Context())
	if txn != nil {
		txn.AddAttribute("script.name", def.Name)
		txn.AddAttribute("script.group", def.Group)
	}

	logger := middleware.GetLogger(c).With().
		Str("operation", "script").
		Str("script", def.Name).
		Str("group", def.Group).
		Logger()

	logger.Debug().Msg("handling request")

	bindStart := time.Now()
	params, err := validation.BindParams(c)
	bindDuration := time.Since(bindStart)
	if err != nil {
		logger.Warn().
			Err(err).
			Dur("bind_duration", bindDuration).
			Msg("request binding failed")

		if txn != nil {
			txn.AddAttribute("bind.status", "failed")
			txn.AddAttribute("bind.duration_ms", bindDuration.Milliseconds())
		}
		return err
	}

	if txn != nil {
		txn.AddAttribute("bind.status", "success")
		txn.AddAttribute("bind.duration_ms", bindDuration.Milliseconds())
	}

	ctx := logger.WithContext(c.Request().Context())

	scriptStart := time.Now()
	env, err := def.Func(ctx, params, h.server.DB.Accessor())
	scriptDuration := time.Since(scriptStart)

	if err != nil {
		totalDuration := time.Since(start)

		sqlerr.AddFields(logger.Error(), err).
			Err(err).
			Dur("script_duration", scriptDuration).
			Dur("total_duration", totalDuration).
			Msg("script execution failed")

		if txn != nil {
			txn.NoticeError(nrpkgerrors.Wrap(err))
			txn.AddAttribute("script.status", "error")
			txn.AddAttribute("script.duration_ms", scriptDuration.Milliseconds())
			txn.AddAttribute("total.duration_ms", totalDuration.Milliseconds())
		}
		return err
	}

	if env.Code < 100 || env.Code > 599 {
		return errors.Errorf("script %s returned envelope code %d", def.Name, env.Code)
	}

	totalDuration := time.Since(start)

	if txn != nil {
		txn.AddAttribute("script.status", "success")
		txn.AddAttribute("script.code", env.Code)
		txn.AddAttribute("script.duration_ms", scriptDuration.Milliseconds())
		txn.AddAttribute("total.duration_ms", totalDuration.Milliseconds())
	}

	logger.Info().
		Int("code", env.Code).
		Dur("script_duration", scriptDuration).
		Dur("total_duration", totalDuration).
		Msg("script completed")

	return c.JSON(env.Code, env)
}
