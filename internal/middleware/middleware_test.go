package middleware

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/deppfellow/platform-user/internal/config"
	"github.com/deppfellow/platform-user/internal/errs"
	"github.com/deppfellow/platform-user/internal/script"
	"github.com/deppfellow/platform-user/internal/server"
)

func newTestGlobal() *GlobalMiddlewares {
	logger := zerolog.Nop()
	return NewGlobalMiddlewares(&server.Server{
		Config: config.DefaultConfig(),
		Logger: &logger,
	})
}

func TestGlobalErrorHandler(t *testing.T) {
	global := newTestGlobal()

	tests := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{"host error", errs.NewBadRequestError("Invalid JSON body"), http.StatusBadRequest, "Invalid JSON body"},
		{"wrapped host error", errors.Wrap(errs.NewTooManyRequestsError(), "limit"), http.StatusTooManyRequests, "Too Many Requests"},
		{"unknown route", echo.ErrNotFound, http.StatusNotFound, MessageRouteNotFound},
		{"method not allowed", echo.ErrMethodNotAllowed, http.StatusMethodNotAllowed, "Method Not Allowed"},
		{"store error", errors.New("dial tcp 10.0.0.1:5432: connection refused"), http.StatusInternalServerError, "Internal Server Error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			rec := httptest.NewRecorder()
			c := e.NewContext(httptest.NewRequest(http.MethodPost, "/api/user/saveUser", nil), rec)

			global.GlobalErrorHandler(tt.err, c)

			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d", rec.Code, tt.status)
			}

			var env script.Envelope
			if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if env.Code != tt.status || env.Message != tt.message || env.Data != nil {
				t.Errorf("envelope = %+v", env)
			}
		})
	}
}

func TestGlobalErrorHandlerSkipsCommittedResponse(t *testing.T) {
	global := newTestGlobal()

	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodPost, "/", nil), rec)
	if err := c.String(http.StatusOK, "done"); err != nil {
		t.Fatal(err)
	}

	global.GlobalErrorHandler(errors.New("late failure"), c)

	if rec.Body.String() != "done" {
		t.Errorf("body = %q", rec.Body.String())
	}
}

func TestRequestIDRejectsOversizedHeader(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, strings.Repeat("x", maxRequestIDLength+1))
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var seen string
	err := RequestID()(func(c echo.Context) error {
		seen = GetRequestID(c)
		return nil
	})(c)
	if err != nil {
		t.Fatal(err)
	}

	if len(seen) != 36 || rec.Header().Get(RequestIDHeader) != seen {
		t.Errorf("request id = %q, header = %q", seen, rec.Header().Get(RequestIDHeader))
	}
}

func TestEnhanceContextStoresLogger(t *testing.T) {
	logger := zerolog.New(io.Discard)
	ce := NewContextEnhancer(&server.Server{Config: config.DefaultConfig(), Logger: &logger})

	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())

	err := ce.EnhanceContext()(func(c echo.Context) error {
		if _, ok := c.Get(LoggerKey).(*zerolog.Logger); !ok {
			t.Error("logger missing from echo context")
		}
		if zerolog.Ctx(c.Request().Context()).GetLevel() == zerolog.Disabled {
			t.Error("logger missing from request context")
		}
		return nil
	})(c)
	if err != nil {
		t.Fatal(err)
	}
}

func TestGetLoggerFallsBackToNop(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())

	if GetLogger(c) == nil {
		t.Fatal("GetLogger returned nil")
	}
}
