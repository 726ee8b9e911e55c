// Package transcribe turns a learner recording into a transcript, degrading
// from a remote speech-to-text provider to a simulated transcript when the
// provider is unavailable.
//
// Each tier is a [Strategy]. The [Orchestrator] tries them in order through a
// resilience.FallbackGroup, so a provider that keeps failing is skipped by
// its circuit breaker instead of being retried on every request.
package transcribe

import (
	"context"
	"errors"

	"github.com/MrWong99/diction/pkg/types"
)

// ErrNoReference is returned by the simulated tier when the request carries no
// reference text to derive a transcript from.
var ErrNoReference = errors.New("transcribe: no reference text to simulate from")

// Strategy is one transcription tier.
type Strategy interface {
	// Name identifies the strategy in logs and metrics.
	Name() string

	// Tier reports which tier outcomes from this strategy are tagged with.
	Tier() types.Tier

	// Transcribe produces a transcript for req or returns an error if this
	// tier cannot serve it.
	Transcribe(ctx context.Context, req types.AssessmentRequest) (types.TranscriptionOutcome, error)
}
