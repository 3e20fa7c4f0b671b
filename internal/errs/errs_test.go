package errs

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/pkg/errors"
)

func TestConstructors(t *testing.T) {
	tests := []struct {
		err     *HTTPError
		status  int
		code    string
		message string
	}{
		{NewBadRequestError("Invalid request body"), http.StatusBadRequest, "BAD_REQUEST", "Invalid request body"},
		{NewNotFoundError("Route not found"), http.StatusNotFound, "NOT_FOUND", "Route not found"},
		{NewTooManyRequestsError(), http.StatusTooManyRequests, "TOO_MANY_REQUESTS", "Too Many Requests"},
		{NewInternalServerError(), http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "Internal Server Error"},
	}

	for _, tt := range tests {
		if tt.err.Status != tt.status || tt.err.Code != tt.code || tt.err.Message != tt.message {
			t.Errorf("got %+v, want {%s %s %d}", tt.err, tt.code, tt.message, tt.status)
		}
	}
}

func TestHTTPErrorMatching(t *testing.T) {
	wrapped := errors.Wrap(fmt.Errorf("bind: %w", NewBadRequestError("bad")), "handler")

	var httpErr *HTTPError
	if !errors.As(wrapped, &httpErr) {
		t.Fatal("errors.As did not find *HTTPError")
	}
	if httpErr.Status != http.StatusBadRequest {
		t.Fatalf("status = %d", httpErr.Status)
	}
	if !errors.Is(wrapped, &HTTPError{}) {
		t.Fatal("errors.Is should match any *HTTPError")
	}

	copied := httpErr.WithMessage("other")
	if copied.Message != "other" || httpErr.Message != "bad" || copied.Status != httpErr.Status {
		t.Fatalf("WithMessage mutated or lost fields: %+v / %+v", copied, httpErr)
	}
}
