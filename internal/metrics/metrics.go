// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hitoshi/stakeboard/internal/model"
)

// Collector はPrometheusメトリクスを収集する実装。
// ハンドラー、負荷モニタ、定期ジョブのそれぞれが必要な記録メソッドだけを
// 消費側インターフェース経由で利用する。
type Collector struct {
	httpRequests     *prometheus.CounterVec
	requestLatency   prometheus.Histogram
	admissionRejects prometheus.Counter
	sessionsIssued   prometheus.Counter
	sessionsSwept    prometheus.Counter
	activeSessions   prometheus.Gauge
	stakesRecorded   prometheus.Counter
	stakesTrimmed    prometheus.Counter
	cpuRatio         prometheus.Gauge
	memRatio         prometheus.Gauge
	overloaded       prometheus.Gauge
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stakeboard_http_requests_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		requestLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "stakeboard_request_latency_seconds",
			Help:    "リクエスト処理のレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		admissionRejects: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "stakeboard_admission_rejected_total",
			Help: "過負荷ゲートで拒否したリクエストの合計数",
		}),
		sessionsIssued: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "stakeboard_sessions_issued_total",
			Help: "新規発行したセッションの合計数",
		}),
		sessionsSwept: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "stakeboard_sessions_swept_total",
			Help: "定期掃除で削除した失効セッションの合計数",
		}),
		activeSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "stakeboard_active_sessions",
			Help: "現在保持しているセッション数",
		}),
		stakesRecorded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "stakeboard_stakes_recorded_total",
			Help: "受理した賭け金記録の合計数",
		}),
		stakesTrimmed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "stakeboard_stakes_trimmed_total",
			Help: "定期トリムで削除したリーダーボード外エントリの合計数",
		}),
		cpuRatio: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "stakeboard_cpu_ratio",
			Help: "直近に観測したCPU利用率（比率）",
		}),
		memRatio: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "stakeboard_mem_ratio",
			Help: "直近に観測したメモリ利用率（比率）",
		}),
		overloaded: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "stakeboard_overloaded",
			Help: "過負荷フラグの現在値（1=過負荷）",
		}),
	}

	reg.MustRegister(
		c.httpRequests,
		c.requestLatency,
		c.admissionRejects,
		c.sessionsIssued,
		c.sessionsSwept,
		c.activeSessions,
		c.stakesRecorded,
		c.stakesTrimmed,
		c.cpuRatio,
		c.memRatio,
		c.overloaded,
	)

	return c
}

// RecordHTTPRequest はレスポンスのステータスコードと処理時間を記録する。
func (c *Collector) RecordHTTPRequest(statusCode int, duration time.Duration) {
	c.httpRequests.WithLabelValues(strconv.Itoa(statusCode)).Inc()
	c.requestLatency.Observe(duration.Seconds())
	if statusCode == http.StatusServiceUnavailable {
		c.admissionRejects.Inc()
	}
}

// RecordSessionIssued は新規セッション発行を記録する。
func (c *Collector) RecordSessionIssued() {
	c.sessionsIssued.Inc()
}

// RecordSessionsSwept は掃除で削除した失効セッション数を記録する。
func (c *Collector) RecordSessionsSwept(count int) {
	c.sessionsSwept.Add(float64(count))
}

// SetActiveSessions は現在のセッション数を記録する。
func (c *Collector) SetActiveSessions(count int) {
	c.activeSessions.Set(float64(count))
}

// RecordStake は賭け金記録の受理を記録する。
func (c *Collector) RecordStake() {
	c.stakesRecorded.Inc()
}

// RecordStakesTrimmed はトリムで削除したエントリ数を記録する。
func (c *Collector) RecordStakesTrimmed(count int) {
	c.stakesTrimmed.Add(float64(count))
}

// RecordLoadSample は負荷の観測値をゲージに反映する。
// 計測不能（負値の番兵）の場合はゲージを更新しない。
func (c *Collector) RecordLoadSample(sample model.LoadSample) {
	if sample.CPURatio >= 0 {
		c.cpuRatio.Set(sample.CPURatio)
	}
	if sample.MemoryRatio >= 0 {
		c.memRatio.Set(sample.MemoryRatio)
	}
	if sample.Overloaded {
		c.overloaded.Set(1)
	} else {
		c.overloaded.Set(0)
	}
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
