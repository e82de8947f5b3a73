package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// mockRecorder collects audit entries for assertions.
type mockRecorder struct {
	mu      sync.Mutex
	entries []AuditEntry
	err     error // if set, RecordAccess returns this error
}

func (m *mockRecorder) RecordAccess(entry AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, entry)
	return m.err
}

func (m *mockRecorder) last() AuditEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.entries[len(m.entries)-1]
}

func (m *mockRecorder) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

func newAuditContext(method, path string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	return c, rec
}

func okHandler(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

func TestAudit_ForecastRequest(t *testing.T) {
	logger := zerolog.New(os.Stderr)
	rec := &mockRecorder{}

	c, _ := newAuditContext(http.MethodPost, "/api/v1/analytics/forecast")
	c.Set("user_id", "user-1")
	c.Set("request_id", "req-abc")

	mw := Audit(logger, rec)
	if err := mw(okHandler)(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if rec.count() != 1 {
		t.Fatalf("expected 1 audit entry, got %d", rec.count())
	}
	entry := rec.last()
	if entry.UserID != "user-1" {
		t.Errorf("expected user_id 'user-1', got %q", entry.UserID)
	}
	if entry.Operation != "forecast" {
		t.Errorf("expected operation 'forecast', got %q", entry.Operation)
	}
	if entry.Action != "create" {
		t.Errorf("expected action 'create', got %q", entry.Action)
	}
	if entry.RequestID != "req-abc" {
		t.Errorf("expected request_id 'req-abc', got %q", entry.RequestID)
	}
	if entry.StatusCode != http.StatusOK {
		t.Errorf("expected status 200, got %d", entry.StatusCode)
	}
}

func TestAudit_NonAPIPathSkipped(t *testing.T) {
	logger := zerolog.New(os.Stderr)
	rec := &mockRecorder{}

	c, _ := newAuditContext(http.MethodGet, "/healthz")

	mw := Audit(logger, rec)
	if err := mw(okHandler)(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.count() != 0 {
		t.Errorf("expected no audit entries for /healthz, got %d", rec.count())
	}
}

func TestAudit_RecorderFailureDoesNotFailRequest(t *testing.T) {
	logger := zerolog.New(os.Stderr)
	rec := &mockRecorder{err: errors.New("disk full")}

	c, httpRec := newAuditContext(http.MethodGet, "/api/v1/analytics/baselines")

	mw := Audit(logger, rec)
	if err := mw(okHandler)(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if httpRec.Code != http.StatusOK {
		t.Errorf("expected 200 despite recorder failure, got %d", httpRec.Code)
	}
}

func TestAudit_NoRecorderFallsBackToLog(t *testing.T) {
	logger := zerolog.New(os.Stderr)

	c, _ := newAuditContext(http.MethodDelete, "/api/v1/analytics/jobs/123")

	mw := Audit(logger)
	if err := mw(okHandler)(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestHTTPMethodToAction(t *testing.T) {
	cases := map[string]string{
		http.MethodGet:    "read",
		http.MethodHead:   "read",
		http.MethodPost:   "create",
		http.MethodPut:    "update",
		http.MethodPatch:  "update",
		http.MethodDelete: "delete",
		"OPTIONS":         "read",
	}
	for method, want := range cases {
		if got := httpMethodToAction(method); got != want {
			t.Errorf("httpMethodToAction(%s) = %s, want %s", method, got, want)
		}
	}
}

func TestOperationSegment(t *testing.T) {
	cases := []struct {
		path, want string
	}{
		{"/api/v1/analytics/forecast", "forecast"},
		{"/api/v1/analytics/jobs/123/cancel", "jobs"},
		{"/api/v1/admin/telemetry/overview", "admin"},
		{"/api/v1/", "unknown"},
	}
	for _, tc := range cases {
		if got := operationSegment(tc.path); got != tc.want {
			t.Errorf("operationSegment(%s) = %s, want %s", tc.path, got, tc.want)
		}
	}
}
