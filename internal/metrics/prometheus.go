// Package metrics exposes Prometheus instrumentation for the HTTP API and the
// causality engine.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/adr-causality-server/internal/domain"
)

// Metrics holds the collectors registered for one server instance.
type Metrics struct {
	gatherer prometheus.Gatherer

	// HTTP metrics
	httpRequestsTotal    *prometheus.CounterVec
	httpRequestDuration  *prometheus.HistogramVec
	httpRequestsInFlight prometheus.Gauge

	// Engine metrics
	assessmentsTotal   *prometheus.CounterVec
	assessmentDuration *prometheus.HistogramVec
	confidence         prometheus.Histogram
	warningsTotal      *prometheus.CounterVec
	rejectionsTotal    *prometheus.CounterVec
	reviewsTotal       *prometheus.CounterVec
}

// New registers all collectors with reg. Pass prometheus.NewRegistry() in
// tests to keep instances independent.
func New(reg *prometheus.Registry) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		gatherer: reg,

		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		httpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		httpRequestsInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed",
			},
		),

		assessmentsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "adr_assessments_total",
				Help: "Total number of causality assessments by recommendation and cache outcome",
			},
			[]string{"recommendation", "who_level", "cached"},
		),
		assessmentDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "adr_assessment_duration_seconds",
				Help:    "Causality assessment duration in seconds",
				Buckets: []float64{.0001, .0005, .001, .0025, .005, .01, .025, .05, .1},
			},
			[]string{"cached"},
		),
		confidence: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "adr_assessment_confidence",
				Help:    "Distribution of suggestion confidence percentages",
				Buckets: []float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 95},
			},
		),
		warningsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "adr_assessment_warnings_total",
				Help: "Total number of warnings attached to suggestions",
			},
			[]string{"warning"},
		),
		rejectionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "adr_case_rejections_total",
				Help: "Total number of cases rejected by validation, by field",
			},
			[]string{"field"},
		),
		reviewsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "adr_reviews_total",
				Help: "Total number of staff reviews recorded, by agreement with the suggestion",
			},
			[]string{"agreed"},
		),
	}
}

// ObserveAssessment records one completed assessment.
func (m *Metrics) ObserveAssessment(s *domain.AssessmentSuggestion, d time.Duration, cached bool) {
	label := strconv.FormatBool(cached)
	m.assessmentsTotal.WithLabelValues(
		string(s.OverallRecommendation),
		string(s.WHOResult.SuggestedLevel),
		label,
	).Inc()
	m.assessmentDuration.WithLabelValues(label).Observe(d.Seconds())
	m.confidence.Observe(float64(s.Confidence))
	for _, w := range s.Warnings {
		m.warningsTotal.WithLabelValues(w).Inc()
	}
}

// ObserveRejection records a case rejected on field.
func (m *Metrics) ObserveRejection(field string) {
	m.rejectionsTotal.WithLabelValues(field).Inc()
}

// RecordReview records a saved staff review.
func (m *Metrics) RecordReview(agreed bool) {
	m.reviewsTotal.WithLabelValues(strconv.FormatBool(agreed)).Inc()
}

// Handler returns the Prometheus metrics HTTP handler
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// Middleware creates gin HTTP metrics middleware. Paths are labelled by
// route template to bound cardinality.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		m.httpRequestsInFlight.Inc()
		defer m.httpRequestsInFlight.Dec()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		m.httpRequestsTotal.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
		m.httpRequestDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}
