// Package metrics holds the Prometheus collectors for the storefront.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	ResultOK    = "ok"
	ResultError = "error"
)

var (
	// Registry holds the application-specific collectors.
	Registry = prometheus.NewRegistry()

	menuLoads = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bitenow",
			Name:      "menu_loads_total",
			Help:      "Menu fetches from the backend by result.",
		},
		[]string{"result"},
	)

	orders = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bitenow",
			Name:      "orders_total",
			Help:      "Order submissions by result.",
		},
		[]string{"result"},
	)

	orderDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "bitenow",
			Name:      "order_duration_seconds",
			Help:      "Duration of POST /orders round trips.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 10), // 10ms to ~5s
		},
	)
)

func init() {
	Registry.MustRegister(menuLoads, orders, orderDuration)
}

func RecordMenuLoad(err error) {
	menuLoads.WithLabelValues(result(err)).Inc()
}

func RecordOrder(err error, d time.Duration) {
	orders.WithLabelValues(result(err)).Inc()
	orderDuration.Observe(d.Seconds())
}

// Handler serves the registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

func result(err error) string {
	if err != nil {
		return ResultError
	}
	return ResultOK
}
