package validation

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/deppfellow/platform-user/internal/errs"
)

func newContext(method, target, contentType, body string) echo.Context {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set(echo.HeaderContentType, contentType)
	}
	return echo.New().NewContext(req, httptest.NewRecorder())
}

func TestBindParamsJSON(t *testing.T) {
	c := newContext(http.MethodPost, "/api/user/saveUser", echo.MIMEApplicationJSON,
		`{"id": 7, "name": "Alice", "loginName": "alice", "active": true, "ratio": 5.0, "score": 5.7, "note": null}`)

	params, err := BindParams(c)
	if err != nil {
		t.Fatalf("BindParams: %v", err)
	}

	want := map[string]string{
		"id":        "7",
		"name":      "Alice",
		"loginName": "alice",
		"active":    "true",
		"ratio":     "5",
		"score":     "5.7",
	}
	for name, value := range want {
		if got, ok := params.Get(name); !ok || got != value {
			t.Errorf("%s = %q (present %v), want %q", name, got, ok, value)
		}
	}
	if _, ok := params.Get("note"); ok {
		t.Error("null value must be treated as absent")
	}
}

func TestBindParamsFalsyJSONValuesAreAbsent(t *testing.T) {
	c := newContext(http.MethodPost, "/api/user/saveUser?id=4&name=query", echo.MIMEApplicationJSON,
		`{"id": 0, "name": false, "loginName": 0.0, "zero": -0, "text": "0", "flag": "false"}`)

	params, err := BindParams(c)
	if err != nil {
		t.Fatalf("BindParams: %v", err)
	}

	for _, name := range []string{"id", "name", "loginName", "zero"} {
		if got, ok := params.Get(name); ok {
			t.Errorf("%s = %q, want absent", name, got)
		}
	}
	if params["text"] != "0" || params["flag"] != "false" {
		t.Errorf("string values must be kept verbatim, got %v", params)
	}
}

func TestBindParamsForm(t *testing.T) {
	form := url.Values{"id": {"3"}, "name": {"Bob"}, "loginName": {"bob"}}
	c := newContext(http.MethodPost, "/api/user/saveUser", echo.MIMEApplicationForm, form.Encode())

	params, err := BindParams(c)
	if err != nil {
		t.Fatalf("BindParams: %v", err)
	}
	if params["id"] != "3" || params["name"] != "Bob" || params["loginName"] != "bob" {
		t.Fatalf("unexpected params %v", params)
	}
}

func TestBindParamsBodyOverridesQuery(t *testing.T) {
	c := newContext(http.MethodPost, "/api/user/getDetail?id=1&extra=x", echo.MIMEApplicationJSON, `{"id": "2"}`)

	params, err := BindParams(c)
	if err != nil {
		t.Fatalf("BindParams: %v", err)
	}
	if params["id"] != "2" {
		t.Errorf("id = %q, want body value 2", params["id"])
	}
	if params["extra"] != "x" {
		t.Errorf("extra = %q, want query value x", params["extra"])
	}
}

func TestBindParamsEmptyBody(t *testing.T) {
	c := newContext(http.MethodPost, "/api/user/getDetail", echo.MIMEApplicationJSON, "")

	params, err := BindParams(c)
	if err != nil {
		t.Fatalf("BindParams: %v", err)
	}
	if len(params) != 0 {
		t.Fatalf("params = %v, want empty", params)
	}
}

func TestBindParamsRejectsBadBodies(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		body        string
	}{
		{"malformed json", echo.MIMEApplicationJSON, `{"id": `},
		{"json array", echo.MIMEApplicationJSON, `[1, 2]`},
		{"nested object", echo.MIMEApplicationJSON, `{"id": {"value": 1}}`},
		{"nested array", echo.MIMEApplicationJSON, `{"id": [1]}`},
		{"unsupported type", "text/plain", `id=1`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newContext(http.MethodPost, "/api/user/getDetail", tt.contentType, tt.body)

			_, err := BindParams(c)
			var httpErr *errs.HTTPError
			if !errors.As(err, &httpErr) {
				t.Fatalf("err = %v, want *errs.HTTPError", err)
			}
			if httpErr.Status != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", httpErr.Status)
			}
		})
	}
}
