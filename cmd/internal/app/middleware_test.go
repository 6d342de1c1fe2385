package app

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestWithObservabilityPreservesStatus(t *testing.T) {
	t.Parallel()

	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("short and stout"))
	})

	h := WithObservability(next, discardLogger(), nil)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusTeapot {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusTeapot)
	}
	if rec.Body.String() != "short and stout" {
		t.Fatalf("body = %q", rec.Body.String())
	}
}

func TestWithObservabilityRecordsMetrics(t *testing.T) {
	t.Parallel()

	m := NewMetrics()
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	h := WithObservability(next, discardLogger(), m)
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/missing", nil))

	c, err := m.HTTPRequests.GetMetricWithLabelValues(http.MethodGet, "4xx")
	if err != nil {
		t.Fatalf("lookup counter: %v", err)
	}
	if got := testutil.ToFloat64(c); got != 1 {
		t.Errorf("requests counter = %v, want 1", got)
	}
}

func TestStatusClass(t *testing.T) {
	t.Parallel()

	tests := []struct {
		status int
		want   string
	}{
		{status: 200, want: "2xx"},
		{status: 204, want: "2xx"},
		{status: 301, want: "3xx"},
		{status: 404, want: "4xx"},
		{status: 503, want: "5xx"},
		{status: 42, want: "other"},
		{status: 700, want: "other"},
	}

	for _, tc := range tests {
		if got := statusClass(tc.status); got != tc.want {
			t.Errorf("statusClass(%d) = %q, want %q", tc.status, got, tc.want)
		}
	}
}

// Websocket upgrades hijack the connection; the logging wrapper must not
// mask the underlying Hijacker.
func TestLoggingResponseWriterExposesOptionalInterfaces(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	lrw := &loggingResponseWriter{ResponseWriter: rec, status: http.StatusOK}

	if _, ok := interface{}(lrw).(http.Flusher); !ok {
		t.Error("loggingResponseWriter does not implement http.Flusher")
	}
	if _, ok := interface{}(lrw).(http.Hijacker); !ok {
		t.Error("loggingResponseWriter does not implement http.Hijacker")
	}
	if _, ok := interface{}(lrw).(io.ReaderFrom); !ok {
		t.Error("loggingResponseWriter does not implement io.ReaderFrom")
	}

	// Hijack over a recorder fails at runtime, but must fail gracefully.
	if _, _, err := lrw.Hijack(); err == nil {
		t.Error("expected Hijack over httptest recorder to error")
	}
}
