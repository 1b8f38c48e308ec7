package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// TestHandler_ServesRecordedMetrics はスクレイプ結果に記録済みのメトリクスが含まれることを検証する。
func TestHandler_ServesRecordedMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)
	c.RecordHTTPStatus(200)
	c.RecordMutation("game", "create")
	c.RecordAssistantCall("resume", OutcomeOK)
	c.RecordAssistantLatency("resume", 120*time.Millisecond)

	w := httptest.NewRecorder()
	Handler(reg).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	body, _ := io.ReadAll(resp.Body)
	for _, name := range []string{
		"questlog_http_status_total",
		`questlog_entity_mutations_total{kind="game",op="create"} 1`,
		`questlog_assistant_calls_total{operation="resume",outcome="ok"} 1`,
		"questlog_assistant_latency_seconds_bucket",
	} {
		if !strings.Contains(string(body), name) {
			t.Errorf("response should contain %q", name)
		}
	}
}
