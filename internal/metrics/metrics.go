// Package metrics provides the centralized Prometheus metrics registry for the pipeline.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Global registry instance
var (
	registry *prometheus.Registry
	once     sync.Once
)

// Counter metrics
var (
	ConnectorPollsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "footy_edge",
		Name:      "connector_polls_total",
		Help:      "Total number of connector poll attempts",
	}, []string{"connector", "result"})
	RecordsDedupedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "footy_edge",
		Name:      "records_deduped_total",
		Help:      "Total number of source records dropped by deduplication",
	}, []string{"connector"})
	RecordsPersistedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "footy_edge",
		Name:      "records_persisted_total",
		Help:      "Total number of source records written to the store",
	}, []string{"connector"})
	PredictionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "footy_edge",
		Name:      "predictions_total",
		Help:      "Total number of prediction requests by result",
	}, []string{"result"})
	StakeRecommendationsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "footy_edge",
		Name:      "stake_recommendations_total",
		Help:      "Total number of stake recommendations emitted",
	})
	CacheBreakerTripsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "footy_edge",
		Name:      "cache_breaker_trips_total",
		Help:      "Total number of cache circuit breaker trips",
	})
	CalibrationRefitsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "footy_edge",
		Name:      "calibration_refits_total",
		Help:      "Total number of calibration curve refits",
	}, []string{"model_id"})
)

// Gauge metrics
var (
	ConnectorHealth = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "footy_edge",
		Name:      "connector_health",
		Help:      "Connector health (1 healthy, 0.5 degraded, 0 down)",
	}, []string{"connector"})
	ConnectorSuccessRate = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "footy_edge",
		Name:      "connector_success_rate",
		Help:      "Rolling success rate per connector",
	}, []string{"connector"})
	ModelBrierScore = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "footy_edge",
		Name:      "model_brier_score",
		Help:      "Rolling Brier score per model",
	}, []string{"model_id"})
	CalibrationSampleSize = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "footy_edge",
		Name:      "calibration_sample_size",
		Help:      "Resolved samples currently in the calibration window",
	}, []string{"model_id"})
	BlendWeight = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "footy_edge",
		Name:      "blend_weight",
		Help:      "Current secondary-model blend weight",
	})
	CacheHitRatio = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "footy_edge",
		Name:      "cache_hit_ratio",
		Help:      "Snapshot cache hit ratio",
	})
)

// Histogram metrics
var (
	ConnectorPollLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "footy_edge",
		Name:      "connector_poll_latency_seconds",
		Help:      "Latency of connector poll operations in seconds",
		Buckets:   prometheus.DefBuckets,
	}, []string{"connector"})
	FeatureAssemblyDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "footy_edge",
		Name:      "feature_assembly_duration_seconds",
		Help:      "Duration of feature vector assembly in seconds",
		Buckets:   prometheus.DefBuckets,
	})
	PredictionDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "footy_edge",
		Name:      "prediction_duration_seconds",
		Help:      "End-to-end duration of prediction requests in seconds",
		Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
	})
)

// InitRegistry initializes the global Prometheus registry.
func InitRegistry() *prometheus.Registry {
	once.Do(func() {
		registry = prometheus.NewRegistry()

		registry.MustRegister(ConnectorPollsTotal)
		registry.MustRegister(RecordsDedupedTotal)
		registry.MustRegister(RecordsPersistedTotal)
		registry.MustRegister(PredictionsTotal)
		registry.MustRegister(StakeRecommendationsTotal)
		registry.MustRegister(CacheBreakerTripsTotal)
		registry.MustRegister(CalibrationRefitsTotal)

		registry.MustRegister(ConnectorHealth)
		registry.MustRegister(ConnectorSuccessRate)
		registry.MustRegister(ModelBrierScore)
		registry.MustRegister(CalibrationSampleSize)
		registry.MustRegister(BlendWeight)
		registry.MustRegister(CacheHitRatio)

		registry.MustRegister(ConnectorPollLatency)
		registry.MustRegister(FeatureAssemblyDuration)
		registry.MustRegister(PredictionDuration)
	})
	return registry
}

// Handler returns an HTTP handler for the metrics endpoint
func Handler() http.Handler {
	return promhttp.HandlerFor(InitRegistry(), promhttp.HandlerOpts{})
}
