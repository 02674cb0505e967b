// Package monitoring provides Prometheus metrics and OpenTelemetry tracing
package monitoring

import (
	"database/sql"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Metrics handles Prometheus metrics collection. It satisfies the pipeline
// metrics port, the AI client recorder and the cache lookup recorder.
type Metrics struct {
	logger   *zap.Logger
	registry *prometheus.Registry

	// HTTP metrics
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// AI provider metrics
	aiRequestsTotal   *prometheus.CounterVec
	aiRequestDuration *prometheus.HistogramVec

	// Meal pipeline metrics
	stageTotal       *prometheus.CounterVec
	stageDuration    *prometheus.HistogramVec
	creationsTotal   *prometheus.CounterVec
	creationDuration prometheus.Histogram
	listLoadsTotal   *prometheus.CounterVec
	listLoadDuration prometheus.Histogram
	eventsTotal      *prometheus.CounterVec

	cacheLookupsTotal *prometheus.CounterVec
}

// NewMetrics registers the collectors on a fresh registry
func NewMetrics(logger *zap.Logger) *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		logger:   logger.Named("metrics"),
		registry: reg,

		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status_code"},
		),
		httpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),

		aiRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ai_requests_total",
				Help: "Total number of AI requests",
			},
			[]string{"provider", "model", "status"},
		),
		aiRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ai_request_duration_seconds",
				Help:    "AI request duration in seconds",
				Buckets: []float64{0.1, 0.5, 1.0, 2.0, 5.0, 10.0, 30.0, 60.0},
			},
			[]string{"provider", "model"},
		),

		stageTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "meal_creation_stage_total",
				Help: "Meal creation stages by outcome",
			},
			[]string{"stage", "outcome"},
		),
		stageDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "meal_creation_stage_duration_seconds",
				Help:    "Meal creation stage duration in seconds",
				Buckets: []float64{0.05, 0.25, 1.0, 2.5, 5.0, 10.0, 30.0, 60.0},
			},
			[]string{"stage"},
		),
		creationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "meal_creations_total",
				Help: "Meal creations by outcome",
			},
			[]string{"outcome"},
		),
		creationDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "meal_creation_duration_seconds",
				Help:    "End to end meal creation duration in seconds",
				Buckets: []float64{1, 5, 10, 20, 30, 60, 120},
			},
		),
		listLoadsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "meal_list_loads_total",
				Help: "Meal list loads by outcome",
			},
			[]string{"outcome"},
		),
		listLoadDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "meal_list_load_duration_seconds",
				Help:    "Meal list fetch duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
		),
		eventsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "meal_domain_events_total",
				Help: "Domain events raised by meals",
			},
			[]string{"event"},
		),

		cacheLookupsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cache_lookups_total",
				Help: "Cache lookups by result",
			},
			[]string{"cache", "result"},
		),
	}
}

// Registry returns the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// RegisterDB exports connection pool statistics for db
func (m *Metrics) RegisterDB(db *sql.DB, name string) {
	if err := m.registry.Register(collectors.NewDBStatsCollector(db, name)); err != nil {
		m.logger.Warn("Failed to register database collector", zap.String("db", name), zap.Error(err))
	}
}

// ObserveHTTP records one served request
func (m *Metrics) ObserveHTTP(method, route string, status int, d time.Duration) {
	m.httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpRequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// AIRequest records one AI provider call
func (m *Metrics) AIRequest(provider, model, status string, d time.Duration) {
	m.aiRequestsTotal.WithLabelValues(provider, model, status).Inc()
	m.aiRequestDuration.WithLabelValues(provider, model).Observe(d.Seconds())
}

func (m *Metrics) ObserveStage(stage, outcome string, d time.Duration) {
	m.stageTotal.WithLabelValues(stage, outcome).Inc()
	m.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func (m *Metrics) ObserveCreation(outcome string, d time.Duration) {
	m.creationsTotal.WithLabelValues(outcome).Inc()
	m.creationDuration.Observe(d.Seconds())
}

// ObserveListLoad records a cache load. Cached loads carry no duration.
func (m *Metrics) ObserveListLoad(outcome string, d time.Duration) {
	m.listLoadsTotal.WithLabelValues(outcome).Inc()
	if outcome != "cached" {
		m.listLoadDuration.Observe(d.Seconds())
	}
}

func (m *Metrics) RecordEvent(name string) {
	m.eventsTotal.WithLabelValues(name).Inc()
}

func (m *Metrics) CacheLookup(cache, result string) {
	m.cacheLookupsTotal.WithLabelValues(cache, result).Inc()
}
