// Package observe provides application-wide observability for the sahha
// server: OpenTelemetry metrics, tracing, and HTTP middleware that ties them
// together.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so metrics can be scraped
// from the standard /metrics endpoint. A package-level default [Metrics]
// instance ([DefaultMetrics]) is provided for convenience; tests should use
// [NewMetrics] with a custom [metric.MeterProvider] to avoid cross-test
// pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all sahha metrics.
const meterName = "github.com/sahhacare/sahha"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use.
type Metrics struct {
	// StageDuration tracks latency per turn pipeline stage. Use with
	// attribute.String("stage", ...) where stage is one of analyzing,
	// searching, processing, generating.
	StageDuration metric.Float64Histogram

	// SpeakDuration tracks end-to-end synthesis plus playback latency.
	// Use with attribute.String("tier", ...).
	SpeakDuration metric.Float64Histogram

	// Turns counts committed conversation turns. Use with attributes:
	//   attribute.String("role", ...), attribute.String("language", ...)
	Turns metric.Int64Counter

	// SpeechTierServed counts which synthesis tier produced audible
	// output. Use with attribute.String("tier", ...).
	SpeechTierServed metric.Int64Counter

	// Interruptions counts user barge-ins that cut off assistant speech.
	Interruptions metric.Int64Counter

	// SearchLookups counts real-time augmentation lookups. Use with
	// attribute.String("status", ...).
	SearchLookups metric.Int64Counter

	// ProviderErrors counts provider errors. Use with attributes:
	//   attribute.String("provider", ...), attribute.String("kind", ...)
	ProviderErrors metric.Int64Counter

	// ActiveSessions tracks the number of live conversation sessions.
	ActiveSessions metric.Int64UpDownCounter

	// HTTPRequestDuration tracks HTTP request processing time. Use with
	// attributes: attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets defines histogram bucket boundaries (in seconds) sized for
// conversational voice latencies.
var latencyBuckets = []float64{
	0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.StageDuration, err = m.Float64Histogram("sahha.pipeline.stage.duration",
		metric.WithDescription("Latency per response pipeline stage."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.SpeakDuration, err = m.Float64Histogram("sahha.speech.duration",
		metric.WithDescription("End-to-end synthesis and playback latency by tier."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	if met.Turns, err = m.Int64Counter("sahha.session.turns",
		metric.WithDescription("Committed conversation turns by role and language."),
	); err != nil {
		return nil, err
	}
	if met.SpeechTierServed, err = m.Int64Counter("sahha.speech.tier_served",
		metric.WithDescription("Utterances served per synthesis tier."),
	); err != nil {
		return nil, err
	}
	if met.Interruptions, err = m.Int64Counter("sahha.session.interruptions",
		metric.WithDescription("User interruptions of assistant speech."),
	); err != nil {
		return nil, err
	}
	if met.SearchLookups, err = m.Int64Counter("sahha.search.lookups",
		metric.WithDescription("Real-time augmentation lookups by status."),
	); err != nil {
		return nil, err
	}
	if met.ProviderErrors, err = m.Int64Counter("sahha.provider.errors",
		metric.WithDescription("Provider errors by provider and kind."),
	); err != nil {
		return nil, err
	}

	if met.ActiveSessions, err = m.Int64UpDownCounter("sahha.active_sessions",
		metric.WithDescription("Number of live conversation sessions."),
	); err != nil {
		return nil, err
	}

	if met.HTTPRequestDuration, err = m.Float64Histogram("sahha.http.request.duration",
		metric.WithDescription("HTTP request latency by method and path."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	return met, nil
}

var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it
// on first call using [otel.GetMeterProvider]. Panics if instrument creation
// fails (should not happen with the global provider).
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

// RecordStage records one pipeline stage duration in seconds.
func (m *Metrics) RecordStage(ctx context.Context, stage string, seconds float64) {
	m.StageDuration.Record(ctx, seconds,
		metric.WithAttributes(attribute.String("stage", stage)),
	)
}

// RecordTurn records a committed turn.
func (m *Metrics) RecordTurn(ctx context.Context, role, language string) {
	m.Turns.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("role", role),
			attribute.String("language", language),
		),
	)
}

// RecordSpeechTier records which synthesis tier served an utterance.
func (m *Metrics) RecordSpeechTier(ctx context.Context, tier string) {
	m.SpeechTierServed.Add(ctx, 1,
		metric.WithAttributes(attribute.String("tier", tier)),
	)
}

// RecordProviderError records a provider error.
func (m *Metrics) RecordProviderError(ctx context.Context, provider, kind string) {
	m.ProviderErrors.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("provider", provider),
			attribute.String("kind", kind),
		),
	)
}
