// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kawase/torihiki/internal/model"
)

// MetricsCollector はメトリクス収集のインターフェース。
// ハンドラーやサービス層から利用する。
type MetricsCollector interface {
	RecordHTTPStatus(statusCode int)
	RecordRequestDuration(duration time.Duration)
	RecordDealCreated(dealType model.DealType)
	RecordDealUpdated(dealType model.DealType)
	RecordDealDeleted(dealType model.DealType)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	httpStatus      *prometheus.CounterVec
	requestDuration prometheus.Histogram
	dealsCreated    *prometheus.CounterVec
	dealsUpdated    *prometheus.CounterVec
	dealsDeleted    *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "torihiki_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		requestDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "torihiki_http_request_duration_seconds",
			Help:    "HTTPリクエストの処理時間（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		dealsCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "torihiki_deals_created_total",
			Help: "作成された案件の合計数（種別別）",
		}, []string{"deal_type"}),
		dealsUpdated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "torihiki_deals_updated_total",
			Help: "更新された案件の合計数（種別別）",
		}, []string{"deal_type"}),
		dealsDeleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "torihiki_deals_deleted_total",
			Help: "削除された案件の合計数（種別別）",
		}, []string{"deal_type"}),
	}

	reg.MustRegister(
		c.httpStatus,
		c.requestDuration,
		c.dealsCreated,
		c.dealsUpdated,
		c.dealsDeleted,
	)

	return c
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordRequestDuration はリクエストの処理時間を記録する。
func (c *Collector) RecordRequestDuration(duration time.Duration) {
	c.requestDuration.Observe(duration.Seconds())
}

// RecordDealCreated は案件作成を記録する。
func (c *Collector) RecordDealCreated(dealType model.DealType) {
	c.dealsCreated.WithLabelValues(string(dealType)).Inc()
}

// RecordDealUpdated は案件更新を記録する。
func (c *Collector) RecordDealUpdated(dealType model.DealType) {
	c.dealsUpdated.WithLabelValues(string(dealType)).Inc()
}

// RecordDealDeleted は案件削除を記録する。
func (c *Collector) RecordDealDeleted(dealType model.DealType) {
	c.dealsDeleted.WithLabelValues(string(dealType)).Inc()
}

// statusWriter はhttp.ResponseWriterをラップし、ステータスコードを捕捉する。
type statusWriter struct {
	http.ResponseWriter
	statusCode int
	written    bool
}

func (sw *statusWriter) WriteHeader(code int) {
	if !sw.written {
		sw.statusCode = code
		sw.written = true
	}
	sw.ResponseWriter.WriteHeader(code)
}

func (sw *statusWriter) Write(b []byte) (int, error) {
	if !sw.written {
		sw.statusCode = http.StatusOK
		sw.written = true
	}
	return sw.ResponseWriter.Write(b)
}

// Middleware はリクエストのステータスコードと処理時間を記録するミドルウェアを返す。
func (c *Collector) Middleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := &statusWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(sw, r)

			c.RecordHTTPStatus(sw.statusCode)
			c.RecordRequestDuration(time.Since(start))
		})
	}
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SetupMetricsRoute は/metricsエンドポイントを提供するHTTPハンドラーを返す。
// Prometheusスクレイプに対応する。
func SetupMetricsRoute(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(gatherer))
	return mux
}
