package health_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sahhacare/sahha/internal/health"
)

type response struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

func doRequest(t *testing.T, h http.Handler, path string) (int, response) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var res response
	if err := json.NewDecoder(rec.Body).Decode(&res); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return rec.Code, res
}

func TestHealthzAlwaysOK(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	health.New(health.Checker{
		Name:  "llm",
		Check: func(context.Context) error { return errors.New("down") },
	}).Register(mux)

	code, res := doRequest(t, mux, "/healthz")
	if code != http.StatusOK {
		t.Errorf("status = %d, want 200", code)
	}
	if res.Status != "ok" {
		t.Errorf("body status = %q", res.Status)
	}
}

func TestReadyzAllChecksPass(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	health.New(
		health.Checker{Name: "store", Check: func(context.Context) error { return nil }},
		health.Checker{Name: "llm", Check: func(context.Context) error { return nil }},
	).Register(mux)

	code, res := doRequest(t, mux, "/readyz")
	if code != http.StatusOK {
		t.Errorf("status = %d, want 200", code)
	}
	if res.Status != "ok" {
		t.Errorf("body status = %q", res.Status)
	}
	if res.Checks["store"] != "ok" || res.Checks["llm"] != "ok" {
		t.Errorf("checks = %v", res.Checks)
	}
}

func TestReadyzReportsFailure(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	health.New(
		health.Checker{Name: "store", Check: func(context.Context) error { return nil }},
		health.Checker{Name: "search", Check: func(context.Context) error { return errors.New("endpoint unreachable") }},
	).Register(mux)

	code, res := doRequest(t, mux, "/readyz")
	if code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", code)
	}
	if res.Status != "fail" {
		t.Errorf("body status = %q", res.Status)
	}
	if res.Checks["store"] != "ok" {
		t.Errorf("store check = %q", res.Checks["store"])
	}
	if !strings.HasPrefix(res.Checks["search"], "fail: ") {
		t.Errorf("search check = %q", res.Checks["search"])
	}
}

func TestReadyzNoCheckers(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	health.New().Register(mux)

	code, res := doRequest(t, mux, "/readyz")
	if code != http.StatusOK {
		t.Errorf("status = %d, want 200", code)
	}
	if res.Status != "ok" {
		t.Errorf("body status = %q", res.Status)
	}
}

// TestReadyzChecksRunConcurrently verifies that checks do not run one after
// another: two checks that each wait for the other would deadlock if the
// handler ran them sequentially.
func TestReadyzChecksRunConcurrently(t *testing.T) {
	t.Parallel()

	gate := make(chan struct{})
	meet := func(ctx context.Context) error {
		select {
		case gate <- struct{}{}:
			return nil
		case <-gate:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	mux := http.NewServeMux()
	health.New(
		health.Checker{Name: "a", Check: meet},
		health.Checker{Name: "b", Check: meet},
	).Register(mux)

	code, _ := doRequest(t, mux, "/readyz")
	if code != http.StatusOK {
		t.Errorf("status = %d, want 200", code)
	}
}
