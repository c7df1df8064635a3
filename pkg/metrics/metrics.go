// Package metrics exposes exchange and node telemetry to Prometheus.
package metrics

import (
	"math/big"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector owns a private registry so tests and multiple nodes in one
// process do not collide on the global one. A nil *Collector is a no-op.
type Collector struct {
	registry *prometheus.Registry

	matches       *prometheus.CounterVec
	matchFailures *prometheus.CounterVec
	cancellations *prometheus.CounterVec
	volume        *prometheus.CounterVec
	txApply       prometheus.Histogram
	txResults     *prometheus.CounterVec
	mempoolSize   prometheus.Gauge
	bookSize      prometheus.Gauge
	blockHeight   prometheus.Gauge
}

func NewCollector() *Collector {
	c := &Collector{registry: prometheus.NewRegistry()}

	c.matches = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "exchange",
		Name:      "matches_total",
		Help:      "Settled matches by path and strategy",
	}, []string{"path", "strategy"})

	c.matchFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "exchange",
		Name:      "match_failures_total",
		Help:      "Rejected match attempts by error class",
	}, []string{"class"})

	c.cancellations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "exchange",
		Name:      "cancellations_total",
		Help:      "Nonce cancellations by kind",
	}, []string{"kind"})

	c.volume = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "exchange",
		Name:      "volume_wei_total",
		Help:      "Settled execution price by currency, in base units",
	}, []string{"currency"})

	c.txApply = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "node",
		Name:      "tx_apply_seconds",
		Help:      "Time to apply one transaction",
		Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 14),
	})

	c.txResults = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "node",
		Name:      "txs_total",
		Help:      "Applied transactions by type and status",
	}, []string{"type", "status"})

	c.mempoolSize = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "node",
		Name:      "mempool_size",
		Help:      "Transactions waiting in the mempool",
	})

	c.bookSize = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "node",
		Name:      "book_orders",
		Help:      "Maker orders resting in the order book",
	})

	c.blockHeight = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "node",
		Name:      "block_height",
		Help:      "Height of the last applied block",
	})

	c.registry.MustRegister(
		c.matches, c.matchFailures, c.cancellations, c.volume,
		c.txApply, c.txResults, c.mempoolSize, c.bookSize, c.blockHeight,
	)
	return c
}

func (c *Collector) Registry() *prometheus.Registry { return c.registry }

// Handler serves the collector's registry in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

func (c *Collector) ObserveMatch(path, strategy, currency string, price *big.Int) {
	if c == nil {
		return
	}
	c.matches.WithLabelValues(path, strategy).Inc()
	f, _ := new(big.Float).SetInt(price).Float64()
	c.volume.WithLabelValues(currency).Add(f)
}

func (c *Collector) ObserveMatchFailure(class string) {
	if c == nil {
		return
	}
	c.matchFailures.WithLabelValues(class).Inc()
}

func (c *Collector) ObserveCancel(kind string) {
	if c == nil {
		return
	}
	c.cancellations.WithLabelValues(kind).Inc()
}

func (c *Collector) ObserveTx(txType, status string, took time.Duration) {
	if c == nil {
		return
	}
	c.txApply.Observe(took.Seconds())
	c.txResults.WithLabelValues(txType, status).Inc()
}

func (c *Collector) SetMempoolSize(n int) {
	if c == nil {
		return
	}
	c.mempoolSize.Set(float64(n))
}

func (c *Collector) SetBookSize(n int) {
	if c == nil {
		return
	}
	c.bookSize.Set(float64(n))
}

func (c *Collector) SetBlockHeight(h uint64) {
	if c == nil {
		return
	}
	c.blockHeight.Set(float64(h))
}
