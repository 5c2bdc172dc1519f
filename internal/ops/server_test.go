package ops

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func testServer() *Server {
	started := time.Now().Add(-90 * time.Second)
	return New("127.0.0.1:0", func() Status {
		return Status{
			Status:    "ok",
			StartedAt: started,
			Model:     "anthropic/claude-sonnet-4.5",
			Connected: true,
		}
	}, nil)
}

func TestHealthEndpoints(t *testing.T) {
	t.Parallel()

	router := testServer().Router()
	for _, path := range []string{"/healthz", "/readyz"} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK {
			t.Errorf("GET %s = %d, want 200", path, rec.Code)
		}
	}
}

func TestStatusEndpoint(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	testServer().Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /status = %d, want 200", rec.Code)
	}

	var st Status
	if err := json.NewDecoder(rec.Body).Decode(&st); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if st.Model != "anthropic/claude-sonnet-4.5" {
		t.Errorf("model = %q", st.Model)
	}
	if !st.Connected {
		t.Error("connected = false, want true")
	}
	if st.UptimeS < 89 {
		t.Errorf("uptime_s = %d, want >= 89", st.UptimeS)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	testServer().Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /metrics = %d, want 200", rec.Code)
	}
	if rec.Body.Len() == 0 {
		t.Error("metrics body empty")
	}
}
