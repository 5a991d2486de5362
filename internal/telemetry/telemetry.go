// Package telemetry provides OpenTelemetry instrumentation for the
// feedback-insight service. It exports Prometheus metrics and provides
// tracing capabilities.
package telemetry

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const serviceName = "feedback-insight"

// Metrics holds all feedback-insight Prometheus metrics
type Metrics struct {
	// Classification metrics
	ItemsClassified        *prometheus.CounterVec
	ClassificationFailures prometheus.Counter
	BatchSize              prometheus.Histogram
	FeedbackTypeTotal      *prometheus.CounterVec

	// Severity metrics
	SeverityScore    *prometheus.HistogramVec
	KeywordBoostHits prometheus.Counter

	// Cluster metrics
	ClustersCreated   prometheus.Counter
	ClustersTouched   prometheus.Counter
	ActiveClusters    prometheus.Gauge
	ClusterPriority   *prometheus.CounterVec
	TrendTransitions  *prometheus.CounterVec
	AggregateSeverity prometheus.Histogram

	// Alert metrics
	AlertsSent    prometheus.Counter
	AlertsFailed  prometheus.Counter
	AlertsSkipped prometheus.Counter

	// Pipeline metrics
	PipelineRuns     *prometheus.CounterVec
	PipelineDuration prometheus.Histogram
	PendingBacklog   prometheus.Gauge
	IngestLag        prometheus.Histogram
}

// Provider wraps telemetry providers
type Provider struct {
	Tracer  trace.Tracer
	Metrics *Metrics
}

// NewProvider initializes telemetry with Prometheus metrics
func NewProvider() *Provider {
	return &Provider{
		Tracer:  otel.Tracer(serviceName),
		Metrics: initMetrics(),
	}
}

// Handler returns the Prometheus HTTP handler for /metrics endpoint
func (p *Provider) Handler() http.Handler {
	return promhttp.Handler()
}

// StartSpan starts a new trace span
func (p *Provider) StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return p.Tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

func initMetrics() *Metrics {
	m := &Metrics{}
	initClassificationMetrics(m)
	initSeverityMetrics(m)
	initClusterMetrics(m)
	initAlertMetrics(m)
	initPipelineMetrics(m)
	return m
}

func initClassificationMetrics(m *Metrics) {
	m.ItemsClassified = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "feedback_items_classified_total",
		Help: "Total feedback items successfully classified",
	}, []string{"source"})

	m.ClassificationFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "feedback_classification_failures_total",
		Help: "Total classification batches that failed outright",
	})

	m.BatchSize = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "feedback_classification_batch_size",
		Help:    "Number of items per classification batch",
		Buckets: []float64{1, 2, 5, 10},
	})

	m.FeedbackTypeTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "feedback_type_total",
		Help: "Classified items by feedback_type (bug, feature_request, complaint, praise, question, unknown)",
	}, []string{"feedback_type"})
}

func initSeverityMetrics(m *Metrics) {
	m.SeverityScore = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "feedback_normalized_severity",
		Help:    "Normalized severity scores at ingestion",
		Buckets: []float64{10, 25, 50, 75, 90, 100},
	}, []string{"source"})

	m.KeywordBoostHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "feedback_keyword_boost_hits_total",
		Help: "Items whose severity was boosted by a keyword match",
	})
}

func initClusterMetrics(m *Metrics) {
	m.ClustersCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "feedback_clusters_created_total",
		Help: "Total clusters created by assembly",
	})

	m.ClustersTouched = promauto.NewCounter(prometheus.CounterOpts{
		Name: "feedback_clusters_touched_total",
		Help: "Total clusters whose membership changed in a run",
	})

	m.ActiveClusters = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "feedback_active_clusters",
		Help: "Clusters currently in a non-terminal status",
	})

	m.ClusterPriority = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "feedback_cluster_priority_total",
		Help: "Cluster priority assignments (critical, high, medium, low)",
	}, []string{"priority"})

	m.TrendTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "feedback_cluster_trend_total",
		Help: "Trend outcomes per recompute (rising, stable, declining)",
	}, []string{"trend"})

	m.AggregateSeverity = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "feedback_cluster_aggregate_severity",
		Help:    "Aggregate severity of touched clusters",
		Buckets: []float64{10, 25, 50, 75, 90, 100},
	})
}

func initAlertMetrics(m *Metrics) {
	m.AlertsSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "feedback_alerts_sent_total",
		Help: "Total cluster alerts delivered",
	})

	m.AlertsFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "feedback_alerts_failed_total",
		Help: "Total alert deliveries that failed and will retry",
	})

	m.AlertsSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "feedback_alerts_skipped_total",
		Help: "Alert evaluations skipped by the exactly-once guard or threshold",
	})
}

func initPipelineMetrics(m *Metrics) {
	m.PipelineRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "feedback_pipeline_runs_total",
		Help: "Total analysis pipeline runs by outcome",
	}, []string{"outcome"})

	m.PipelineDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "feedback_pipeline_duration_seconds",
		Help:    "Wall time of one analysis pipeline run",
		Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
	})

	m.PendingBacklog = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "feedback_pending_backlog",
		Help: "Pending feedback items fetched by the most recent run",
	})

	m.IngestLag = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "feedback_ingest_lag_seconds",
		Help:    "Time between feedback posting and ingestion",
		Buckets: []float64{60, 300, 1800, 3600, 21600, 86400, 604800},
	})
}

// RecordClassified records a successfully classified item
func (p *Provider) RecordClassified(source, feedbackType string) {
	p.Metrics.ItemsClassified.WithLabelValues(source).Inc()
	if feedbackType == "" {
		feedbackType = "unknown"
	}
	p.Metrics.FeedbackTypeTotal.WithLabelValues(feedbackType).Inc()
}

// RecordBatch records the size of a submitted classification batch
func (p *Provider) RecordBatch(size int) {
	p.Metrics.BatchSize.Observe(float64(size))
}

// RecordClassificationFailure records a batch that failed outright
func (p *Provider) RecordClassificationFailure() {
	p.Metrics.ClassificationFailures.Inc()
}

// RecordSeverity records an ingestion-time severity score
func (p *Provider) RecordSeverity(source string, score int, boosted bool) {
	p.Metrics.SeverityScore.WithLabelValues(source).Observe(float64(score))
	if boosted {
		p.Metrics.KeywordBoostHits.Inc()
	}
}

// RecordIngestLag records the gap between posting and ingestion
func (p *Provider) RecordIngestLag(postedAt time.Time) {
	p.Metrics.IngestLag.Observe(time.Since(postedAt).Seconds())
}

// RecordAssembly records the outcome of one cluster assembly pass
func (p *Provider) RecordAssembly(created, touched int) {
	p.Metrics.ClustersCreated.Add(float64(created))
	p.Metrics.ClustersTouched.Add(float64(touched))
}

// RecordClusterState records derived metrics for a touched cluster
func (p *Provider) RecordClusterState(priority string, aggregateSeverity int, trend string) {
	p.Metrics.ClusterPriority.WithLabelValues(priority).Inc()
	p.Metrics.AggregateSeverity.Observe(float64(aggregateSeverity))
	if trend != "" {
		p.Metrics.TrendTransitions.WithLabelValues(trend).Inc()
	}
}

// RecordAlert records one alert gate decision
func (p *Provider) RecordAlert(sent bool, failed bool) {
	switch {
	case sent:
		p.Metrics.AlertsSent.Inc()
	case failed:
		p.Metrics.AlertsFailed.Inc()
	default:
		p.Metrics.AlertsSkipped.Inc()
	}
}

// RecordRun records one pipeline run and its duration
func (p *Provider) RecordRun(success bool, duration time.Duration) {
	outcome := "success"
	if !success {
		outcome = "failure"
	}
	p.Metrics.PipelineRuns.WithLabelValues(outcome).Inc()
	p.Metrics.PipelineDuration.Observe(duration.Seconds())
}

// SetPendingBacklog sets the pending item count seen by the latest run
func (p *Provider) SetPendingBacklog(count int) {
	p.Metrics.PendingBacklog.Set(float64(count))
}

// SetActiveClusters sets the current non-terminal cluster count
func (p *Provider) SetActiveClusters(count int) {
	p.Metrics.ActiveClusters.Set(float64(count))
}
