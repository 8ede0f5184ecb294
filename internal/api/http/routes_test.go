package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/syakhish/weather-monitor/internal/metrics"
	"github.com/syakhish/weather-monitor/internal/store"
)

func newTestApp(t *testing.T, backend store.Backend, retention int) *fiber.App {
	t.Helper()
	return NewApp(store.New(backend, retention), Options{BodyLimit: 4096})
}

func do(t *testing.T, app *fiber.App, method, path, contentType, body string) (int, string) {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer resp.Body.Close()

	out, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp.StatusCode, string(out)
}

func TestGetDataEmpty(t *testing.T) {
	app := newTestApp(t, store.NewMemoryBackend(), 10)

	status, body := do(t, app, http.MethodGet, "/get_data", "", "")
	if status != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, status)
	}
	if body != "[]" {
		t.Fatalf("expected [], got %s", body)
	}
}

func TestUpdateDataThenGetData(t *testing.T) {
	app := newTestApp(t, store.NewMemoryBackend(), 10)

	status, body := do(t, app, http.MethodPost, "/update_data", "application/json", `{"timestamp":1,"suhu":20}`)
	if status != http.StatusOK || body != "Data received!" {
		t.Fatalf("unexpected response %d %q", status, body)
	}

	// The firmware sometimes posts JSON as text/plain or form data.
	status, _ = do(t, app, http.MethodPost, "/update_data", "text/plain", `{"timestamp":2,"suhu":21}`)
	if status != http.StatusOK {
		t.Fatalf("expected forced JSON decoding to succeed, got %d", status)
	}
	status, _ = do(t, app, http.MethodPost, "/api/v1/readings", "application/x-www-form-urlencoded", `{"timestamp":3,"suhu":22}`)
	if status != http.StatusOK {
		t.Fatalf("expected v1 alias to accept the reading, got %d", status)
	}

	status, body = do(t, app, http.MethodGet, "/get_data", "", "")
	if status != http.StatusOK {
		t.Fatalf("expected status 200, got %d", status)
	}
	want := `[{"timestamp":1,"suhu":20},{"timestamp":2,"suhu":21},{"timestamp":3,"suhu":22}]`
	if body != want {
		t.Fatalf("expected %s, got %s", want, body)
	}

	_, alias := do(t, app, http.MethodGet, "/api/v1/readings", "", "")
	if alias != want {
		t.Fatalf("expected v1 alias to return %s, got %s", want, alias)
	}
}

func TestRetentionOverHTTP(t *testing.T) {
	app := newTestApp(t, store.NewMemoryBackend(), 3)

	for _, body := range []string{
		`{"timestamp":1,"t":20}`,
		`{"timestamp":2,"t":21}`,
		`{"timestamp":3,"t":22}`,
		`{"timestamp":4,"t":23}`,
	} {
		if status, _ := do(t, app, http.MethodPost, "/update_data", "application/json", body); status != http.StatusOK {
			t.Fatalf("append %s: status %d", body, status)
		}
	}

	_, body := do(t, app, http.MethodGet, "/get_data", "", "")
	want := `[{"timestamp":2,"t":21},{"timestamp":3,"t":22},{"timestamp":4,"t":23}]`
	if body != want {
		t.Fatalf("expected %s, got %s", want, body)
	}
}

func TestUpdateDataRejectsMalformedBody(t *testing.T) {
	app := newTestApp(t, store.NewMemoryBackend(), 10)
	do(t, app, http.MethodPost, "/update_data", "application/json", `{"timestamp":1}`)

	for _, body := range []string{"", "suhu=20", `[{"timestamp":2}]`, `{"timestamp":`} {
		status, resp := do(t, app, http.MethodPost, "/update_data", "application/json", body)
		if status != http.StatusBadRequest {
			t.Fatalf("body %q: expected status %d, got %d", body, http.StatusBadRequest, status)
		}
		if !strings.HasPrefix(resp, "Error processing data: ") {
			t.Fatalf("body %q: unexpected error message %q", body, resp)
		}
	}

	_, got := do(t, app, http.MethodGet, "/get_data", "", "")
	if got != `[{"timestamp":1}]` {
		t.Fatalf("expected log to be unchanged, got %s", got)
	}
}

type brokenBackend struct{}

var errBroken = errors.New("permission denied")

func (brokenBackend) Load(context.Context) ([]byte, error) { return nil, errBroken }
func (brokenBackend) Save(context.Context, []byte) error   { return errBroken }
func (brokenBackend) Close() error                         { return nil }

func TestStorageFailures(t *testing.T) {
	app := newTestApp(t, brokenBackend{}, 10)

	status, body := do(t, app, http.MethodPost, "/update_data", "application/json", `{"timestamp":1}`)
	if status != http.StatusServiceUnavailable {
		t.Fatalf("expected status %d, got %d", http.StatusServiceUnavailable, status)
	}
	if !strings.HasPrefix(body, "Error processing data: ") {
		t.Fatalf("unexpected body %q", body)
	}

	status, body = do(t, app, http.MethodGet, "/get_data", "", "")
	if status != http.StatusServiceUnavailable {
		t.Fatalf("expected status %d, got %d", http.StatusServiceUnavailable, status)
	}

	var payload map[string]any
	if err := json.Unmarshal([]byte(body), &payload); err != nil {
		t.Fatalf("expected JSON error body, got %q", body)
	}
	if payload["error"] != true {
		t.Fatalf("unexpected error payload %v", payload)
	}

	status, _ = do(t, app, http.MethodGet, "/health", "", "")
	if status != http.StatusServiceUnavailable {
		t.Fatalf("expected unhealthy status, got %d", status)
	}
}

func TestHealth(t *testing.T) {
	app := newTestApp(t, store.NewMemoryBackend(), 100)
	do(t, app, http.MethodPost, "/update_data", "", `{"timestamp":1}`)

	status, body := do(t, app, http.MethodGet, "/health", "", "")
	if status != http.StatusOK {
		t.Fatalf("expected status 200, got %d", status)
	}

	var payload struct {
		Status    string `json:"status"`
		Entries   int    `json:"entries"`
		Retention int    `json:"retention"`
	}
	if err := json.Unmarshal([]byte(body), &payload); err != nil {
		t.Fatalf("decode health: %v", err)
	}
	if payload.Status != "ok" || payload.Entries != 1 || payload.Retention != 100 {
		t.Fatalf("unexpected health payload %+v", payload)
	}
}

func TestRequestIDAndMetrics(t *testing.T) {
	reg := metrics.NewRegistry()
	readings := store.New(store.NewMemoryBackend(), 10, store.WithMetrics(metrics.NewStoreMetrics(reg)))
	app := NewApp(readings, Options{Registry: reg})

	req := httptest.NewRequest(http.MethodPost, "/update_data", strings.NewReader(`{"timestamp":1}`))
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Header.Get(fiber.HeaderXRequestID) == "" {
		t.Fatal("expected a request id header")
	}

	status, body := do(t, app, http.MethodGet, "/metrics", "", "")
	if status != http.StatusOK {
		t.Fatalf("expected status 200, got %d", status)
	}
	if !strings.Contains(body, `weather_monitor_store_appends_total{result="ok"} 1`) {
		t.Fatalf("expected append counter in metrics output")
	}
}

func TestHealthIsNotCountedAsRead(t *testing.T) {
	reg := metrics.NewRegistry()
	sm := metrics.NewStoreMetrics(reg)
	app := NewApp(store.New(store.NewMemoryBackend(), 10, store.WithMetrics(sm)), Options{})

	for i := 0; i < 3; i++ {
		if status, _ := do(t, app, http.MethodGet, "/health", "", ""); status != http.StatusOK {
			t.Fatalf("expected status 200, got %d", status)
		}
	}
	if got := testutil.ToFloat64(sm.ReadsTotal.WithLabelValues("ok")); got != 0 {
		t.Fatalf("expected no reads from health checks, got %v", got)
	}

	if status, _ := do(t, app, http.MethodGet, "/get_data", "", ""); status != http.StatusOK {
		t.Fatalf("expected status 200, got %d", status)
	}
	if got := testutil.ToFloat64(sm.ReadsTotal.WithLabelValues("ok")); got != 1 {
		t.Fatalf("expected 1 read, got %v", got)
	}
}
