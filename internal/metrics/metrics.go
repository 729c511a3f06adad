// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PipelineCollector はパイプラインのメトリクス収集のインターフェース。
// ワーカーから利用する。
type PipelineCollector interface {
	RecordSourceSuccess(store string)
	RecordSourceFailure(store string)
	RecordRecordsAccepted(store string, count int)
	RecordRecordsRejected(store string, reason string, count int)
	RecordDealsMerged(count int)
	RecordNotificationsSent(count int)
	RecordNotificationFailures(count int)
	RecordRunDuration(duration time.Duration)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	sourceSuccess     *prometheus.CounterVec
	sourceFail        *prometheus.CounterVec
	recordsAccepted   *prometheus.CounterVec
	recordsRejected   *prometheus.CounterVec
	dealsMerged       prometheus.Gauge
	notificationsSent prometheus.Counter
	notificationsFail prometheus.Counter
	runDuration       prometheus.Histogram
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		sourceSuccess: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dealman_source_success_total",
			Help: "ソースフェッチ成功の合計数",
		}, []string{"store"}),
		sourceFail: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dealman_source_fail_total",
			Help: "ソースフェッチ失敗の合計数",
		}, []string{"store"}),
		recordsAccepted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dealman_records_accepted_total",
			Help: "正規化で受理されたレコードの合計数",
		}, []string{"store"}),
		recordsRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dealman_records_rejected_total",
			Help: "正規化で拒否されたレコードの理由別合計数",
		}, []string{"store", "reason"}),
		dealsMerged: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "dealman_catalog_deals",
			Help: "直近のマージで生成されたカタログのDeal数",
		}),
		notificationsSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dealman_notifications_sent_total",
			Help: "配信に成功した通知メールの合計数",
		}),
		notificationsFail: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dealman_notifications_fail_total",
			Help: "配信に失敗した通知メールの合計数",
		}),
		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "dealman_run_duration_seconds",
			Help:    "パイプライン1実行の所要時間（秒）",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		}),
	}

	reg.MustRegister(
		c.sourceSuccess,
		c.sourceFail,
		c.recordsAccepted,
		c.recordsRejected,
		c.dealsMerged,
		c.notificationsSent,
		c.notificationsFail,
		c.runDuration,
	)

	return c
}

// RecordSourceSuccess はソースフェッチ成功を記録する。
func (c *Collector) RecordSourceSuccess(store string) {
	c.sourceSuccess.WithLabelValues(store).Inc()
}

// RecordSourceFailure はソースフェッチ失敗を記録する。
func (c *Collector) RecordSourceFailure(store string) {
	c.sourceFail.WithLabelValues(store).Inc()
}

// RecordRecordsAccepted は受理レコード数を記録する。
func (c *Collector) RecordRecordsAccepted(store string, count int) {
	c.recordsAccepted.WithLabelValues(store).Add(float64(count))
}

// RecordRecordsRejected は拒否レコード数を理由別に記録する。
func (c *Collector) RecordRecordsRejected(store string, reason string, count int) {
	c.recordsRejected.WithLabelValues(store, reason).Add(float64(count))
}

// RecordDealsMerged はカタログのDeal数を記録する。
func (c *Collector) RecordDealsMerged(count int) {
	c.dealsMerged.Set(float64(count))
}

// RecordNotificationsSent は配信成功数を記録する。
func (c *Collector) RecordNotificationsSent(count int) {
	c.notificationsSent.Add(float64(count))
}

// RecordNotificationFailures は配信失敗数を記録する。
func (c *Collector) RecordNotificationFailures(count int) {
	c.notificationsFail.Add(float64(count))
}

// RecordRunDuration はパイプライン実行時間を記録する。
func (c *Collector) RecordRunDuration(duration time.Duration) {
	c.runDuration.Observe(duration.Seconds())
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
