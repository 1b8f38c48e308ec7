// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// ミドルウェア、ハブ、アシスタント、ワーカーから利用する。
type MetricsCollector interface {
	RecordHTTPStatus(statusCode int)
	RecordRequestLatency(duration time.Duration)
	RecordMutation(kind, op string)
	RecordPersistenceError(kind, op string)
	RecordAssistantCall(operation, outcome string)
	RecordAssistantLatency(operation string, duration time.Duration)
	RecordSessionsPurged(count int64)
}

// アシスタント呼び出しの結果ラベル。
const (
	OutcomeOK            = "ok"
	OutcomeFallback      = "fallback"
	OutcomeError         = "error"
	OutcomeNotConfigured = "not_configured"
)

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	httpStatus       *prometheus.CounterVec
	requestLatency   prometheus.Histogram
	mutations        *prometheus.CounterVec
	persistenceError *prometheus.CounterVec
	assistantCalls   *prometheus.CounterVec
	assistantLatency *prometheus.HistogramVec
	sessionsPurged   prometheus.Counter
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "questlog_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		requestLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "questlog_http_request_duration_seconds",
			Help:    "HTTPリクエストの処理時間（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "questlog_entity_mutations_total",
			Help: "エンティティ種別・操作別の変更数",
		}, []string{"kind", "op"}),
		persistenceError: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "questlog_persistence_errors_total",
			Help: "永続化失敗の合計数",
		}, []string{"kind", "op"}),
		assistantCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "questlog_assistant_calls_total",
			Help: "アシスタント呼び出しの合計数",
		}, []string{"operation", "outcome"}),
		assistantLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "questlog_assistant_latency_seconds",
			Help:    "アシスタント呼び出しのレイテンシ（秒）",
			Buckets: []float64{0.25, 0.5, 1, 2, 4, 8, 16, 32},
		}, []string{"operation"}),
		sessionsPurged: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "questlog_sessions_purged_total",
			Help: "削除された期限切れセッションの合計数",
		}),
	}

	reg.MustRegister(
		c.httpStatus,
		c.requestLatency,
		c.mutations,
		c.persistenceError,
		c.assistantCalls,
		c.assistantLatency,
		c.sessionsPurged,
	)

	return c
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordRequestLatency はリクエスト処理時間を記録する。
func (c *Collector) RecordRequestLatency(duration time.Duration) {
	c.requestLatency.Observe(duration.Seconds())
}

// RecordMutation はエンティティの変更を記録する。
func (c *Collector) RecordMutation(kind, op string) {
	c.mutations.WithLabelValues(kind, op).Inc()
}

// RecordPersistenceError は永続化失敗を記録する。
func (c *Collector) RecordPersistenceError(kind, op string) {
	c.persistenceError.WithLabelValues(kind, op).Inc()
}

// RecordAssistantCall はアシスタント呼び出しの結果を記録する。
func (c *Collector) RecordAssistantCall(operation, outcome string) {
	c.assistantCalls.WithLabelValues(operation, outcome).Inc()
}

// RecordAssistantLatency はアシスタント呼び出しのレイテンシを記録する。
func (c *Collector) RecordAssistantLatency(operation string, duration time.Duration) {
	c.assistantLatency.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordSessionsPurged は削除した期限切れセッション数を記録する。
func (c *Collector) RecordSessionsPurged(count int64) {
	c.sessionsPurged.Add(float64(count))
}

// NopCollector は何も記録しないMetricsCollector。テストやメトリクス無効時に使う。
type NopCollector struct{}

func (NopCollector) RecordHTTPStatus(int)                         {}
func (NopCollector) RecordRequestLatency(time.Duration)           {}
func (NopCollector) RecordMutation(string, string)                {}
func (NopCollector) RecordPersistenceError(string, string)        {}
func (NopCollector) RecordAssistantCall(string, string)           {}
func (NopCollector) RecordAssistantLatency(string, time.Duration) {}
func (NopCollector) RecordSessionsPurged(int64)                   {}

var (
	_ MetricsCollector = (*Collector)(nil)
	_ MetricsCollector = NopCollector{}
)

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
