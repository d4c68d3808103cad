// Package metrics は Prometheus のコレクターと /metrics ハンドラーを提供します。
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "pdfextract"

var (
	extractions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "extractions_total",
			Help:      "Total page extraction requests by result",
		},
		[]string{"result"},
	)

	pagesCopied = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pages_copied_total",
			Help:      "Total pages copied into output documents",
		},
	)

	extractionLatency = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "extraction_duration_seconds",
			Help:      "Duration of the copy and serialize step",
			Buckets:   prometheus.DefBuckets,
		},
	)

	storeEvictions = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_evictions_total",
			Help:      "Files removed from the transient store by the sweeper",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status",
		},
		[]string{"method", "route", "status"},
	)

	registerOnce sync.Once
)

// Init はコレクターを登録します。複数回呼んでも一度だけ登録されます。
func Init() {
	registerOnce.Do(func() {
		prometheus.MustRegister(extractions, pagesCopied, extractionLatency, storeEvictions, httpRequests)
	})
}

// Handler は /metrics 用の http.Handler を返します。
func Handler() http.Handler { return promhttp.Handler() }

// ObserveExtraction は抽出処理の結果を記録します。
func ObserveExtraction(result string, pages int, dur time.Duration) {
	extractions.WithLabelValues(result).Inc()
	if pages > 0 {
		pagesCopied.Add(float64(pages))
	}
	if dur > 0 {
		extractionLatency.Observe(dur.Seconds())
	}
}

// IncEvicted はスイーパーが削除したファイル数を加算します。
func IncEvicted(n int) {
	if n > 0 {
		storeEvictions.Add(float64(n))
	}
}

// GinMiddleware はルート単位のリクエスト数を数えるミドルウェアです。
func GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		httpRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
	}
}
