// Package observe provides application-wide observability primitives for
// Diction: OpenTelemetry metrics, distributed tracing, structured logging,
// and HTTP middleware that ties them together.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is installed by [InitProvider] so that metrics can be
// scraped via the standard /metrics endpoint. A package-level default
// [Metrics] instance ([DefaultMetrics]) is provided for convenience; tests
// should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all Diction metrics.
const meterName = "github.com/MrWong99/diction"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use; the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// TranscriptionDuration tracks transcription latency. Use with attribute:
	//   attribute.String("tier", ...)
	TranscriptionDuration metric.Float64Histogram

	// AssessmentDuration tracks end-to-end assessment latency.
	AssessmentDuration metric.Float64Histogram

	// AssessmentScore records the overall score (0-100) of each assessment.
	AssessmentScore metric.Int64Histogram

	// ProviderRequests counts remote STT calls. Use with attributes:
	//   attribute.String("provider", ...), attribute.String("status", ...)
	ProviderRequests metric.Int64Counter

	// ProviderErrors counts remote STT errors. Use with attributes:
	//   attribute.String("provider", ...), attribute.String("kind", ...)
	ProviderErrors metric.Int64Counter

	// Fallbacks counts requests served by a lower tier than the preferred one.
	// Use with attributes:
	//   attribute.String("from", ...), attribute.String("to", ...)
	Fallbacks metric.Int64Counter

	// Assessments counts completed assessments. Use with attributes:
	//   attribute.String("tier", ...), attribute.String("band", ...)
	Assessments metric.Int64Counter

	// HistoryWrites counts history store writes. Use with attributes:
	//   attribute.String("backend", ...), attribute.String("status", ...)
	HistoryWrites metric.Int64Counter

	// HTTPRequestDuration tracks HTTP request processing time. Use with attributes:
	//   attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets defines histogram bucket boundaries (in seconds) for
// transcription round trips.
var latencyBuckets = []float64{
	0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30,
}

// scoreBuckets splits scores along the feedback bands.
var scoreBuckets = []float64{0, 60, 70, 80, 90, 100}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.TranscriptionDuration, err = m.Float64Histogram("diction.transcription.duration",
		metric.WithDescription("Latency of transcription by serving tier."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.AssessmentDuration, err = m.Float64Histogram("diction.assessment.duration",
		metric.WithDescription("End-to-end latency of an assessment."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.AssessmentScore, err = m.Int64Histogram("diction.assessment.score",
		metric.WithDescription("Overall pronunciation score per assessment."),
		metric.WithExplicitBucketBoundaries(scoreBuckets...),
	); err != nil {
		return nil, err
	}

	if met.ProviderRequests, err = m.Int64Counter("diction.provider.requests",
		metric.WithDescription("Total remote transcription requests by provider and status."),
	); err != nil {
		return nil, err
	}
	if met.ProviderErrors, err = m.Int64Counter("diction.provider.errors",
		metric.WithDescription("Total remote transcription errors by provider and kind."),
	); err != nil {
		return nil, err
	}
	if met.Fallbacks, err = m.Int64Counter("diction.fallbacks",
		metric.WithDescription("Total requests served by a fallback tier."),
	); err != nil {
		return nil, err
	}
	if met.Assessments, err = m.Int64Counter("diction.assessments",
		metric.WithDescription("Total completed assessments by tier and score band."),
	); err != nil {
		return nil, err
	}
	if met.HistoryWrites, err = m.Int64Counter("diction.history.writes",
		metric.WithDescription("Total history store writes by backend and status."),
	); err != nil {
		return nil, err
	}

	if met.HTTPRequestDuration, err = m.Float64Histogram("diction.http.request.duration",
		metric.WithDescription("HTTP request latency by method and path."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// defaultMetrics is the lazily-initialised package-level Metrics instance.
var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Subsequent calls return the same
// pointer. Panics if instrument creation fails (should not happen with the
// global provider).
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// Attr is a convenience alias for [attribute.String] to reduce verbosity at
// call sites.
func Attr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// RecordProviderRequest records a remote transcription request with the
// standard attribute set.
func (m *Metrics) RecordProviderRequest(ctx context.Context, provider, status string) {
	m.ProviderRequests.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("provider", provider),
			attribute.String("status", status),
		),
	)
}

// RecordProviderError records a remote transcription error.
func (m *Metrics) RecordProviderError(ctx context.Context, provider, kind string) {
	m.ProviderErrors.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("provider", provider),
			attribute.String("kind", kind),
		),
	)
}

// RecordFallback records that a request preferred tier from but was served
// by tier to.
func (m *Metrics) RecordFallback(ctx context.Context, from, to string) {
	m.Fallbacks.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("from", from),
			attribute.String("to", to),
		),
	)
}

// RecordAssessment records a completed assessment: the counter by tier and
// band plus the score histogram.
func (m *Metrics) RecordAssessment(ctx context.Context, tier, band string, score int) {
	m.Assessments.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("tier", tier),
			attribute.String("band", band),
		),
	)
	m.AssessmentScore.Record(ctx, int64(score), metric.WithAttributes(attribute.String("tier", tier)))
}

// RecordHistoryWrite records a history store write.
func (m *Metrics) RecordHistoryWrite(ctx context.Context, backend, status string) {
	m.HistoryWrites.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("backend", backend),
			attribute.String("status", status),
		),
	)
}
