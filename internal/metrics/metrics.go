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
// カタログクライアントやサービス層から利用する。
type MetricsCollector interface {
	RecordSearch()
	RecordCacheHit(kind string)
	RecordCacheMiss(kind string)
	RecordTokenFailure()
	RecordCatalogFailure(reason string)
	RecordCatalogHTTPStatus(statusCode int)
	RecordCatalogLatency(duration time.Duration)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	searchTotal    prometheus.Counter
	cacheHits      *prometheus.CounterVec
	cacheMisses    *prometheus.CounterVec
	tokenFail      prometheus.Counter
	catalogFail    *prometheus.CounterVec
	catalogStatus  *prometheus.CounterVec
	catalogLatency prometheus.Histogram
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		searchTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "setlist_catalog_search_total",
			Help: "アーティスト検索リクエストの合計数",
		}),
		cacheHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "setlist_catalog_cache_hits_total",
			Help: "カタログキャッシュヒットの合計数",
		}, []string{"kind"}),
		cacheMisses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "setlist_catalog_cache_misses_total",
			Help: "カタログキャッシュミスの合計数",
		}, []string{"kind"}),
		tokenFail: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "setlist_catalog_token_fail_total",
			Help: "アクセストークン取得失敗の合計数",
		}),
		catalogFail: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "setlist_catalog_fail_total",
			Help: "カタログAPI呼び出し失敗の合計数",
		}, []string{"reason"}),
		catalogStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "setlist_catalog_http_status_total",
			Help: "カタログAPIのHTTPステータスコード別レスポンス数",
		}, []string{"status_code"}),
		catalogLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "setlist_catalog_latency_seconds",
			Help:    "カタログAPI呼び出しのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(
		c.searchTotal,
		c.cacheHits,
		c.cacheMisses,
		c.tokenFail,
		c.catalogFail,
		c.catalogStatus,
		c.catalogLatency,
	)

	return c
}

// RecordSearch はアーティスト検索リクエストを記録する。
func (c *Collector) RecordSearch() {
	c.searchTotal.Inc()
}

// RecordCacheHit はキャッシュヒットを記録する。kindは"search"または"artist"。
func (c *Collector) RecordCacheHit(kind string) {
	c.cacheHits.WithLabelValues(kind).Inc()
}

// RecordCacheMiss はキャッシュミスを記録する。kindは"search"または"artist"。
func (c *Collector) RecordCacheMiss(kind string) {
	c.cacheMisses.WithLabelValues(kind).Inc()
}

// RecordTokenFailure はアクセストークン取得失敗を記録する。
func (c *Collector) RecordTokenFailure() {
	c.tokenFail.Inc()
}

// RecordCatalogFailure はカタログAPI呼び出し失敗を記録する。
func (c *Collector) RecordCatalogFailure(reason string) {
	c.catalogFail.WithLabelValues(reason).Inc()
}

// RecordCatalogHTTPStatus はカタログAPIのHTTPステータスコードを記録する。
func (c *Collector) RecordCatalogHTTPStatus(statusCode int) {
	c.catalogStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordCatalogLatency はカタログAPI呼び出しのレイテンシを記録する。
func (c *Collector) RecordCatalogLatency(duration time.Duration) {
	c.catalogLatency.Observe(duration.Seconds())
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// compile-time interface check
var _ MetricsCollector = (*Collector)(nil)
