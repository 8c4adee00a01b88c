package rpc

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	requestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "burrow_client",
		Subsystem: "rpc",
		Name:      "requests_total",
		Help:      "Node RPC calls by node, method and outcome.",
	}, []string{"node", "method", "outcome"})

	requestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "burrow_client",
		Subsystem: "rpc",
		Name:      "request_duration_seconds",
		Help:      "Node RPC latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"node", "method"})

	nodeHeight = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "burrow_client",
		Subsystem: "rpc",
		Name:      "node_latest_height",
		Help:      "Latest block height reported by each node.",
	}, []string{"node"})
)

// Collectors returns the rpc metrics for registration by the host process.
func Collectors() []prometheus.Collector {
	return []prometheus.Collector{requestsTotal, requestDuration, nodeHeight}
}

func observe(node, method string, start time.Time, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	requestsTotal.WithLabelValues(node, method, outcome).Inc()
	requestDuration.WithLabelValues(node, method).Observe(time.Since(start).Seconds())
}
