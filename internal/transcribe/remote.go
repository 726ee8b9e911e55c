package transcribe

import (
	"context"
	"errors"
	"time"

	"github.com/MrWong99/diction/internal/observe"
	"github.com/MrWong99/diction/pkg/provider/stt"
	"github.com/MrWong99/diction/pkg/types"
)

// Compile-time assertion.
var _ Strategy = (*Remote)(nil)

// RemoteOption configures a [Remote].
type RemoteOption func(*Remote)

// WithRemoteModel overrides the model name sent with every request.
func WithRemoteModel(model string) RemoteOption {
	return func(r *Remote) { r.model = model }
}

// WithRemoteMetrics sets the metrics sink. Defaults to
// [observe.DefaultMetrics].
func WithRemoteMetrics(m *observe.Metrics) RemoteOption {
	return func(r *Remote) { r.metrics = m }
}

// Remote is the preferred tier: a batch call to an [stt.Provider].
type Remote struct {
	name     string
	provider stt.Provider
	model    string
	metrics  *observe.Metrics
}

// NewRemote wraps provider as a transcription tier. name labels the provider
// in logs and metrics (e.g. "whisper").
func NewRemote(name string, provider stt.Provider, opts ...RemoteOption) *Remote {
	r := &Remote{name: name, provider: provider}
	for _, o := range opts {
		o(r)
	}
	if r.metrics == nil {
		r.metrics = observe.DefaultMetrics()
	}
	return r
}

// Name implements [Strategy].
func (r *Remote) Name() string { return r.name }

// Tier implements [Strategy].
func (r *Remote) Tier() types.Tier { return types.TierRemote }

// Transcribe implements [Strategy]. Every failure is counted and returned so
// the orchestrator can move on to the next tier.
func (r *Remote) Transcribe(ctx context.Context, req types.AssessmentRequest) (types.TranscriptionOutcome, error) {
	start := time.Now()
	res, err := r.provider.Transcribe(ctx, stt.Request{
		Audio:    req.Audio,
		Format:   req.AudioFormat,
		Language: req.Language,
		Model:    r.model,
	})
	if err != nil {
		r.metrics.RecordProviderRequest(ctx, r.name, "error")
		r.metrics.RecordProviderError(ctx, r.name, errorKind(err))
		return types.TranscriptionOutcome{}, err
	}
	r.metrics.RecordProviderRequest(ctx, r.name, "ok")
	observe.Logger(ctx).Debug("remote transcription done",
		"provider", r.name,
		"duration", time.Since(start),
	)
	return types.TranscriptionOutcome{
		Text:     res.BestText(),
		Tier:     types.TierRemote,
		Provider: r.name,
	}, nil
}

// errorKind buckets a provider error for the errors counter.
func errorKind(err error) string {
	switch {
	case errors.Is(err, stt.ErrEmptyAudio):
		return "empty_audio"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "request"
	}
}
