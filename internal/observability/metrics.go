package observability

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/lzjever/escn/internal/core"
)

var (
	// escn-api metrics
	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "escn_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"route", "method", "code"})

	HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "escn_http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"route", "method"})

	ActiveRequests = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "escn_active_requests",
		Help: "Current in-flight requests",
	})

	CardsIssuedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "escn_cards_issued_total",
		Help: "Card issuance outcomes",
	}, []string{"outcome"})

	// registry client metrics
	RegistryRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "escn_registry_requests_total",
		Help: "Requests sent to the European Student Card registry",
	}, []string{"op", "code"})

	RegistryRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "escn_registry_request_duration_seconds",
		Help:    "Registry request latency",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	}, []string{"op"})

	// escn-generator metrics
	GeneratorRPCTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "escn_generator_rpc_total",
		Help: "Generate RPCs served",
	}, []string{"code"})
)

func RegisterAll(reg prometheus.Registerer) {
	reg.MustRegister(
		HTTPRequestsTotal, HTTPRequestDuration, ActiveRequests, CardsIssuedTotal,
		RegistryRequestsTotal, RegistryRequestDuration,
		GeneratorRPCTotal,
	)
}

// RegisterGenerator exposes the counters of a local generator.
func RegisterGenerator(reg prometheus.Registerer, gen *core.Generator) {
	reg.MustRegister(
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Name: "escn_generated_total",
			Help: "ESCNs minted by this process",
		}, func() float64 { return float64(gen.Stats().Generated) }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Name: "escn_clock_reseeds_total",
			Help: "Wall clock reads after the hit budget ran out",
		}, func() float64 { return float64(gen.Stats().Reseeds) }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Name: "escn_clock_adjustments_total",
			Help: "Backward wall clock jumps folded into the clock sequence",
		}, func() float64 { return float64(gen.Stats().ClockAdjustments) }),
	)
}
