package transcribe

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"

	"github.com/MrWong99/diction/internal/simulate"
	"github.com/MrWong99/diction/pkg/types"
)

// Mode selects the simulator used by [Simulated].
type Mode string

const (
	// ModeAccuracy degrades the reference at an accuracy drawn uniformly
	// from the configured range.
	ModeAccuracy Mode = "accuracy"

	// ModeEnhanced applies the language-specific error model.
	ModeEnhanced Mode = "enhanced"
)

const (
	// DefaultMinAccuracy and DefaultMaxAccuracy bound the accuracy drawn in
	// [ModeAccuracy].
	DefaultMinAccuracy = 0.70
	DefaultMaxAccuracy = 0.95
)

// Compile-time assertion.
var _ Strategy = (*Simulated)(nil)

// SimulatedOption configures a [Simulated].
type SimulatedOption func(*Simulated)

// WithMode selects the simulator. Defaults to [ModeAccuracy].
func WithMode(m Mode) SimulatedOption {
	return func(s *Simulated) { s.mode = m }
}

// WithAccuracyRange sets the range accuracies are drawn from in
// [ModeAccuracy].
func WithAccuracyRange(minAcc, maxAcc float64) SimulatedOption {
	return func(s *Simulated) {
		s.minAcc = minAcc
		s.maxAcc = maxAcc
	}
}

// WithRand sets the random source. Defaults to a randomly seeded PCG.
func WithRand(r simulate.Rand) SimulatedOption {
	return func(s *Simulated) { s.rng = r }
}

// Simulated is the last-resort tier. It derives a plausible transcript from
// the reference text, so it needs no audio but cannot serve requests without
// a reference.
type Simulated struct {
	mode   Mode
	minAcc float64
	maxAcc float64

	// mu serialises access to rng, which need not be safe for concurrent use.
	mu  sync.Mutex
	rng simulate.Rand
}

// NewSimulated creates the simulated tier.
func NewSimulated(opts ...SimulatedOption) (*Simulated, error) {
	s := &Simulated{
		mode:   ModeAccuracy,
		minAcc: DefaultMinAccuracy,
		maxAcc: DefaultMaxAccuracy,
	}
	for _, o := range opts {
		o(s)
	}
	if s.mode != ModeAccuracy && s.mode != ModeEnhanced {
		return nil, fmt.Errorf("transcribe: unknown simulation mode %q", s.mode)
	}
	if s.minAcc < 0 || s.maxAcc > 1 || s.minAcc > s.maxAcc {
		return nil, fmt.Errorf("transcribe: invalid accuracy range [%v, %v]", s.minAcc, s.maxAcc)
	}
	if s.rng == nil {
		s.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return s, nil
}

// Name implements [Strategy].
func (s *Simulated) Name() string { return "simulated" }

// Tier implements [Strategy].
func (s *Simulated) Tier() types.Tier { return types.TierSimulated }

// Transcribe implements [Strategy].
func (s *Simulated) Transcribe(_ context.Context, req types.AssessmentRequest) (types.TranscriptionOutcome, error) {
	if strings.TrimSpace(req.ReferenceText) == "" {
		return types.TranscriptionOutcome{}, ErrNoReference
	}

	s.mu.Lock()
	var text string
	switch s.mode {
	case ModeEnhanced:
		text = simulate.SimulateEnhanced(req.ReferenceText, req.Language, s.rng)
	default:
		acc := s.minAcc + (s.maxAcc-s.minAcc)*s.rng.Float64()
		text = simulate.Simulate(req.ReferenceText, acc, s.rng)
	}
	s.mu.Unlock()

	return types.TranscriptionOutcome{
		Text:     text,
		Tier:     types.TierSimulated,
		Provider: s.Name(),
	}, nil
}
