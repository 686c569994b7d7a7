package observability

import (
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// EngineMetrics records position lifecycle activity inside the vault engine.
type EngineMetrics struct {
	operations       *prometheus.CounterVec
	liquidations     prometheus.Counter
	healthViolations prometheus.Counter
	oracleQuotes     *prometheus.CounterVec
}

// RPCMetrics records JSON-RPC server activity.
type RPCMetrics struct {
	requests  *prometheus.CounterVec
	errors    *prometheus.CounterVec
	latency   *prometheus.HistogramVec
	throttles *prometheus.CounterVec
}

var (
	engineMetricsOnce sync.Once
	engineRegistry    *EngineMetrics

	rpcMetricsOnce sync.Once
	rpcRegistry    *RPCMetrics
)

// Engine returns the lazily-initialised engine metrics registry.
func Engine() *EngineMetrics {
	engineMetricsOnce.Do(func() {
		engineRegistry = &EngineMetrics{
			operations: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "stable",
				Subsystem: "vault",
				Name:      "operations_total",
				Help:      "Total vault operations segmented by operation and outcome.",
			}, []string{"operation", "outcome"}),
			liquidations: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "stable",
				Subsystem: "vault",
				Name:      "liquidations_total",
				Help:      "Total completed liquidations.",
			}),
			healthViolations: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "stable",
				Subsystem: "vault",
				Name:      "health_violations_total",
				Help:      "Operations rejected because they would break the collateralization requirement.",
			}),
			oracleQuotes: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "stable",
				Subsystem: "oracle",
				Name:      "quotes_total",
				Help:      "Price feed reads segmented by source and outcome.",
			}, []string{"source", "outcome"}),
		}
		prometheus.MustRegister(
			engineRegistry.operations,
			engineRegistry.liquidations,
			engineRegistry.healthViolations,
			engineRegistry.oracleQuotes,
		)
	})
	return engineRegistry
}

// ObserveOperation records one vault operation attempt.
func (m *EngineMetrics) ObserveOperation(operation string, err error) {
	if m == nil {
		return
	}
	if operation == "" {
		operation = "unknown"
	}
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.operations.WithLabelValues(operation, outcome).Inc()
}

// RecordLiquidation increments the liquidation counter.
func (m *EngineMetrics) RecordLiquidation() {
	if m == nil {
		return
	}
	m.liquidations.Inc()
}

// RecordHealthViolation increments the health violation counter.
func (m *EngineMetrics) RecordHealthViolation() {
	if m == nil {
		return
	}
	m.healthViolations.Inc()
}

// RecordQuote records a price feed read for the named source.
func (m *EngineMetrics) RecordQuote(source string, err error) {
	if m == nil {
		return
	}
	if source == "" {
		source = "unknown"
	}
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.oracleQuotes.WithLabelValues(source, outcome).Inc()
}

// RPC returns the lazily-initialised JSON-RPC metrics registry.
func RPC() *RPCMetrics {
	rpcMetricsOnce.Do(func() {
		rpcRegistry = &RPCMetrics{
			requests: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "stable",
				Subsystem: "rpc",
				Name:      "requests_total",
				Help:      "Total JSON-RPC requests segmented by method and outcome.",
			}, []string{"method", "outcome"}),
			errors: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "stable",
				Subsystem: "rpc",
				Name:      "errors_total",
				Help:      "Total JSON-RPC errors segmented by method and status code.",
			}, []string{"method", "status"}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "stable",
				Subsystem: "rpc",
				Name:      "request_duration_seconds",
				Help:      "Latency distribution for JSON-RPC handlers.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"method"}),
			throttles: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "stable",
				Subsystem: "rpc",
				Name:      "throttles_total",
				Help:      "Requests rejected by rate limiting.",
			}, []string{"reason"}),
		}
		prometheus.MustRegister(
			rpcRegistry.requests,
			rpcRegistry.errors,
			rpcRegistry.latency,
			rpcRegistry.throttles,
		)
	})
	return rpcRegistry
}

// Observe records the outcome of a JSON-RPC request. The status code should be
// the HTTP status ultimately written to the response.
func (m *RPCMetrics) Observe(method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	if method == "" {
		method = "unknown"
	}
	outcome := "success"
	if status >= 400 {
		outcome = "error"
	}
	m.requests.WithLabelValues(method, outcome).Inc()
	if status >= 400 {
		m.errors.WithLabelValues(method, fmt.Sprintf("%d", status)).Inc()
	}
	m.latency.WithLabelValues(method).Observe(duration.Seconds())
}

// RecordThrottle increments the throttle counter with a stable reason string
// such as "rate_limit".
func (m *RPCMetrics) RecordThrottle(reason string) {
	if m == nil {
		return
	}
	if reason == "" {
		reason = "unspecified"
	}
	m.throttles.WithLabelValues(reason).Inc()
}
