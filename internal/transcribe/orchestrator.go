package transcribe

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/MrWong99/diction/internal/observe"
	"github.com/MrWong99/diction/internal/resilience"
	"github.com/MrWong99/diction/pkg/provider/stt"
	"github.com/MrWong99/diction/pkg/types"
)

// Option configures an [Orchestrator].
type Option func(*Orchestrator)

// WithRemote registers the preferred remote tier. Without it only the
// simulated tier runs.
func WithRemote(r Strategy) Option {
	return func(o *Orchestrator) { o.remote = r }
}

// WithCircuitBreaker sets the breaker configuration applied to each tier.
func WithCircuitBreaker(cfg resilience.CircuitBreakerConfig) Option {
	return func(o *Orchestrator) { o.breaker = cfg }
}

// WithMetrics sets the metrics sink. Defaults to [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// Orchestrator serves transcription requests from the best available tier.
// It is safe for concurrent use.
type Orchestrator struct {
	remote    Strategy
	simulated Strategy
	breaker   resilience.CircuitBreakerConfig
	metrics   *observe.Metrics

	preferred string
	group     *resilience.FallbackGroup[Strategy]
}

// New creates an Orchestrator with simulated as the last-resort tier.
func New(simulated Strategy, opts ...Option) *Orchestrator {
	o := &Orchestrator{simulated: simulated}
	for _, opt := range opts {
		opt(o)
	}
	if o.metrics == nil {
		o.metrics = observe.DefaultMetrics()
	}

	// Bad input is the caller's problem, not a sign of an unhealthy tier.
	cb := o.breaker
	cb.IsFailure = func(err error) bool {
		return !errors.Is(err, ErrNoReference) &&
			!errors.Is(err, stt.ErrEmptyAudio) &&
			!errors.Is(err, context.Canceled)
	}
	cfg := resilience.FallbackConfig{CircuitBreaker: cb}

	if o.remote != nil {
		o.group = resilience.NewFallbackGroup(o.remote, o.remote.Name(), cfg)
		o.group.AddFallback(simulated.Name(), simulated)
		o.preferred = o.remote.Name()
	} else {
		o.group = resilience.NewFallbackGroup(simulated, simulated.Name(), cfg)
		o.preferred = simulated.Name()
	}
	return o
}

// Transcribe returns the transcript from the first tier that can serve req.
// Remote failures are logged and counted, never returned. The only error is
// one wrapping [resilience.ErrAllFailed], when not even a simulated
// transcript can be produced.
func (o *Orchestrator) Transcribe(ctx context.Context, req types.AssessmentRequest) (out types.TranscriptionOutcome, err error) {
	ctx, span := observe.StartSpan(ctx, "transcribe")
	defer func() { observe.EndSpan(span, err) }()

	start := time.Now()
	out, err = resilience.ExecuteWithResult(o.group, func(s Strategy) (types.TranscriptionOutcome, error) {
		return s.Transcribe(ctx, req)
	})
	if err != nil {
		return types.TranscriptionOutcome{}, fmt.Errorf("transcribe: %w", err)
	}

	o.metrics.TranscriptionDuration.Record(ctx, time.Since(start).Seconds(),
		metric.WithAttributes(attribute.String("tier", out.Tier.String())))
	span.SetAttributes(
		attribute.String("transcription.tier", out.Tier.String()),
		attribute.String("transcription.provider", out.Provider),
	)
	if out.Provider != o.preferred {
		o.metrics.RecordFallback(ctx, o.preferred, out.Provider)
		observe.Logger(ctx).Info("transcription served by fallback tier",
			"preferred", o.preferred,
			"served_by", out.Provider,
		)
	}
	return out, nil
}

// Status reports the circuit state of every tier in preference order.
func (o *Orchestrator) Status() []resilience.EntryStatus {
	return o.group.Status()
}

// HasRemote reports whether a remote tier is configured.
func (o *Orchestrator) HasRemote() bool { return o.remote != nil }

// CheckRemote returns an error when the remote tier's circuit is open. It is
// meant for readiness reporting; requests are still served by the simulated
// tier meanwhile.
func (o *Orchestrator) CheckRemote(context.Context) error {
	if o.remote == nil {
		return nil
	}
	st := o.group.Status()[0]
	if st.State == resilience.StateOpen {
		return fmt.Errorf("transcribe: %s circuit is %s", st.Name, st.State)
	}
	return nil
}
