package router_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/deppfellow/platform-user/internal/config"
	"github.com/deppfellow/platform-user/internal/handler"
	"github.com/deppfellow/platform-user/internal/router"
	"github.com/deppfellow/platform-user/internal/script"
	"github.com/deppfellow/platform-user/internal/script/user"
	"github.com/deppfellow/platform-user/internal/server"
	"github.com/deppfellow/platform-user/internal/testutil"
)

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func newTestServer(t *testing.T, name string, configure func(*config.Config)) (*server.Server, *echo.Echo) {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.Database.Driver = config.DriverSQLite
	cfg.Database.Name = name
	cfg.Server.RateLimit = 0
	if configure != nil {
		configure(cfg)
	}

	registry := script.NewRegistry()
	if err := user.Register(registry); err != nil {
		t.Fatalf("register scripts: %v", err)
	}

	logger := zerolog.Nop()
	s := server.NewWithDatabase(cfg, &logger, nil, testutil.NewDatabase(t, name), registry)

	return s, router.NewRouter(s, handler.NewHandlers(s))
}

func postJSON(t *testing.T, e *echo.Echo, path, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return serve(t, e, req)
}

func serve(t *testing.T, e *echo.Echo, req *http.Request) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("response is not an envelope: %v (%s)", err, rec.Body.String())
	}
	return rec, env
}

func TestSaveUserThenGetDetail(t *testing.T) {
	s, e := newTestServer(t, "router_save_get", nil)

	rec, env := postJSON(t, e, "/api/user/saveUser", `{"name":"Alice","loginName":"alice"}`)
	if rec.Code != http.StatusOK || env.Code != http.StatusOK || env.Message != script.MessageSuccess {
		t.Fatalf("saveUser = %d %+v", rec.Code, env)
	}
	if string(env.Data) != `{"success":true}` {
		t.Errorf("saveUser data = %s", env.Data)
	}

	var id int64
	if err := s.DB.SQL.QueryRow("SELECT id FROM platform_user WHERE login_name = 'alice'").Scan(&id); err != nil {
		t.Fatalf("lookup inserted user: %v", err)
	}

	form := url.Values{"id": {strconv.FormatInt(id, 10)}}
	req := httptest.NewRequest(http.MethodPost, "/api/user/getDetail", strings.NewReader(form.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)

	rec, env = serve(t, e, req)
	if rec.Code != http.StatusOK || env.Code != http.StatusOK {
		t.Fatalf("getDetail = %d %+v", rec.Code, env)
	}

	var row map[string]any
	if err := json.Unmarshal(env.Data, &row); err != nil {
		t.Fatalf("data is not a row: %v", err)
	}
	if row["name"] != "Alice" || row["login_name"] != "alice" || row["id"] != float64(id) {
		t.Errorf("row = %v", row)
	}
}

func TestUpdateThroughJSONNumberID(t *testing.T) {
	s, e := newTestServer(t, "router_update", nil)
	id := testutil.InsertUser(t, s.DB.SQL, "Bob", "bob")

	body := `{"id":` + strconv.FormatInt(id, 10) + `,"name":"Robert","loginName":"rob"}`
	if rec, env := postJSON(t, e, "/api/user/saveUser", body); rec.Code != http.StatusOK {
		t.Fatalf("update = %d %+v", rec.Code, env)
	}

	var name, loginName string
	err := s.DB.SQL.QueryRow("SELECT name, login_name FROM platform_user WHERE id = ?", id).Scan(&name, &loginName)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if name != "Robert" || loginName != "rob" {
		t.Errorf("row = %s/%s, want Robert/rob", name, loginName)
	}
}

func TestQueryStringParameters(t *testing.T) {
	s, e := newTestServer(t, "router_query", nil)
	id := testutil.InsertUser(t, s.DB.SQL, "Carol", "carol")

	req := httptest.NewRequest(http.MethodPost, "/api/user/getDetail?id="+strconv.FormatInt(id, 10), nil)
	rec, env := serve(t, e, req)
	if rec.Code != http.StatusOK || env.Code != http.StatusOK {
		t.Fatalf("getDetail = %d %+v", rec.Code, env)
	}
}

func TestScriptFailuresBecomeEnvelopes(t *testing.T) {
	_, e := newTestServer(t, "router_failures", nil)

	tests := []struct {
		name    string
		path    string
		body    string
		code    int
		message string
	}{
		{"missing fields", "/api/user/saveUser", `{"name":"Alice"}`, http.StatusBadRequest, user.MessageNameRequired},
		{"falsy name", "/api/user/saveUser", `{"name":false,"loginName":0}`, http.StatusBadRequest, user.MessageNameRequired},
		{"missing id", "/api/user/getDetail", `{}`, http.StatusBadRequest, user.MessageUserIDRequired},
		{"unknown user", "/api/user/getDetail", `{"id":999}`, http.StatusNotFound, user.MessageUserNotFound},
		{"malformed json", "/api/user/getDetail", `{"id":`, http.StatusBadRequest, ""},
		{"nested value", "/api/user/getDetail", `{"id":{"v":1}}`, http.StatusBadRequest, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, env := postJSON(t, e, tt.path, tt.body)
			if rec.Code != tt.code || env.Code != tt.code {
				t.Fatalf("status %d, envelope %+v, want %d", rec.Code, env, tt.code)
			}
			if tt.message != "" && env.Message != tt.message {
				t.Errorf("message = %q, want %q", env.Message, tt.message)
			}
			if string(env.Data) != "null" {
				t.Errorf("data = %s, want null", env.Data)
			}
		})
	}
}

func TestStoreFailureIsInternalServerError(t *testing.T) {
	s, e := newTestServer(t, "router_store_failure", nil)
	_ = s.DB.SQL.Close()

	rec, env := postJSON(t, e, "/api/user/saveUser", `{"name":"Alice","loginName":"alice"}`)
	if rec.Code != http.StatusInternalServerError || env.Code != http.StatusInternalServerError {
		t.Fatalf("status %d, envelope %+v", rec.Code, env)
	}
	if env.Message != http.StatusText(http.StatusInternalServerError) || string(env.Data) != "null" {
		t.Errorf("envelope = %+v", env)
	}
	if strings.Contains(rec.Body.String(), "closed") {
		t.Errorf("driver details leaked: %s", rec.Body.String())
	}
}

func TestUnknownRoute(t *testing.T) {
	_, e := newTestServer(t, "router_unknown", nil)

	rec, env := postJSON(t, e, "/api/user/deleteUser", `{}`)
	if rec.Code != http.StatusNotFound || env.Code != http.StatusNotFound || env.Message != "Route not found" {
		t.Fatalf("status %d, envelope %+v", rec.Code, env)
	}
}

func TestRequestIDIsEchoed(t *testing.T) {
	_, e := newTestServer(t, "router_request_id", nil)

	req := httptest.NewRequest(http.MethodPost, "/api/user/getDetail", strings.NewReader(`{"id":1}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.Header.Set("X-Request-ID", "req-123")

	rec, _ := serve(t, e, req)
	if got := rec.Header().Get("X-Request-ID"); got != "req-123" {
		t.Errorf("X-Request-ID = %q", got)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/user/getDetail", strings.NewReader(`{"id":1}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec, _ = serve(t, e, req)
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("missing generated X-Request-ID")
	}
}

func TestRateLimit(t *testing.T) {
	_, e := newTestServer(t, "router_rate_limit", func(cfg *config.Config) {
		cfg.Server.RateLimit = 1
		cfg.Server.RateBurst = 1
	})

	if rec, env := postJSON(t, e, "/api/user/getDetail", `{"id":1}`); rec.Code != http.StatusNotFound {
		t.Fatalf("first request = %d %+v", rec.Code, env)
	}

	rec, env := postJSON(t, e, "/api/user/getDetail", `{"id":1}`)
	if rec.Code != http.StatusTooManyRequests || env.Code != http.StatusTooManyRequests {
		t.Fatalf("second request = %d %+v", rec.Code, env)
	}
}

func TestStatus(t *testing.T) {
	s, e := newTestServer(t, "router_status", nil)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}

	_ = s.DB.SQL.Close()

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status after close = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"unhealthy"`) {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestListScripts(t *testing.T) {
	_, e := newTestServer(t, "router_list", nil)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/scripts", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var defs []script.Definition
	if err := json.Unmarshal(rec.Body.Bytes(), &defs); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(defs) != 2 || defs[0].Name != "saveUser" || defs[1].Name != "getDetail" {
		t.Errorf("defs = %+v", defs)
	}
}
