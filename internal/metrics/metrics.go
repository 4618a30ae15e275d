// Package metrics はバッチ処理の Prometheus メトリクスを提供します。
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shouni/go-x-scraper/pkg/scraper"
	"github.com/shouni/go-x-scraper/pkg/types"
)

// Namespace は全メトリクスの名前空間です。
const Namespace = "xscraper"

// Metrics は scraper.Recorder を実装します。
type Metrics struct {
	registry *prometheus.Registry

	ResultsTotal  *prometheus.CounterVec
	LoginTotal    *prometheus.CounterVec
	BatchURLs     prometheus.Histogram
	FetchDuration *prometheus.HistogramVec
}

var _ scraper.Recorder = (*Metrics)(nil)

// New は専用のレジストリにメトリクスを登録して返します。Go ランタイムとプロセスの標準メトリクスも含みます。
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		ResultsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "results_total",
			Help:      "Total URLs processed, by category and outcome.",
		}, []string{"category", "outcome"}),
		LoginTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "login_total",
			Help:      "Upstream login attempts, by outcome.",
		}, []string{"outcome"}),
		BatchURLs: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "batch_urls",
			Help:      "Number of URLs per batch.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 8),
		}),
		FetchDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "fetch_duration_seconds",
			Help:      "Time spent classifying, fetching and normalizing one URL.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"category"}),
	}
}

func (m *Metrics) ObserveBatch(size int) {
	m.BatchURLs.Observe(float64(size))
}

func (m *Metrics) ObserveLogin(outcome string) {
	m.LoginTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveResult(category types.Category, outcome string, elapsed time.Duration) {
	m.ResultsTotal.WithLabelValues(category.String(), outcome).Inc()
	m.FetchDuration.WithLabelValues(category.String()).Observe(elapsed.Seconds())
}

// Handler は /metrics 用の HTTP ハンドラーを返します。
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
