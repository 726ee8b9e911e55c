package feedback

import (
	"math/rand/v2"
	"sync"

	"github.com/MrWong99/diction/internal/align"
	"github.com/MrWong99/diction/pkg/types"
)

// Report is the synthesized feedback for one assessment.
type Report struct {
	General      []string
	Detailed     string
	Improvements []string
	CommonErrors []string
}

// Synthesizer bundles the feedback functions with a shared random source.
// It is safe for concurrent use.
type Synthesizer struct {
	mu  sync.Mutex
	rng Rand
}

// NewSynthesizer creates a Synthesizer drawing phrasing choices from r. A nil
// r selects a randomly seeded source.
func NewSynthesizer(r Rand) *Synthesizer {
	if r == nil {
		r = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Synthesizer{rng: r}
}

// Suggester returns a per-word suggestion function for tag, suitable for
// passing to the alignment functions.
func (s *Synthesizer) Suggester(tag string) align.SuggestFunc {
	return func(word string) string {
		s.mu.Lock()
		defer s.mu.Unlock()
		return WordSuggestion(word, tag, s.rng)
	}
}

// Synthesize builds the full report for an alignment with the given score.
func (s *Synthesizer) Synthesize(records []types.WordAlignmentRecord, recorded, reference string, score int, tag string) Report {
	return Report{
		General:      GeneralFeedback(score, tag),
		Detailed:     DetailedFeedback(recorded, reference, score, tag),
		Improvements: ImprovementSuggestions(records),
		CommonErrors: CommonErrors(records, tag),
	}
}
