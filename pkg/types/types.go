// Package types defines the shared types used across all Diction packages.
//
// These types form the lingua franca between the transcription providers, the
// orchestrator, the alignment engine, and the feedback synthesizer. They are
// intentionally minimal: each package defines its own domain types, but
// request-scoped values that cross package boundaries live here to avoid
// circular imports.
//
// Every value in this package is request scoped. Nothing here is shared or
// mutated after construction.
package types

import (
	"encoding/json"
	"fmt"
)

// CorrectThreshold is the similarity a recognized word must strictly exceed to
// count as correctly pronounced.
const CorrectThreshold = 0.7

// AssessmentRequest is a single learner submission.
type AssessmentRequest struct {
	// Audio is the recorded speech. May be nil when the client could not
	// capture audio; the orchestrator then goes straight to simulation.
	Audio []byte

	// AudioFormat describes Audio ("wav", "webm", "pcm16", ...). Providers use
	// it to pick a filename and content type for upload.
	AudioFormat string

	// ReferenceText is the expected utterance. Empty selects
	// transcription-only mode.
	ReferenceText string

	// Language is an "xx" or "xx-XX" tag selecting error models and feedback
	// phrasing tables.
	Language string

	// Learner is an optional opaque learner identifier used to key history.
	Learner string
}

// Tier identifies which transcription strategy produced a transcript.
type Tier int

const (
	// TierRemote means the remote transcription dependency served the request.
	TierRemote Tier = iota

	// TierSimulated means the transcript was produced by the simulator because
	// the remote dependency was unavailable.
	TierSimulated
)

// String returns the lowercase name of the tier.
func (t Tier) String() string {
	switch t {
	case TierRemote:
		return "remote"
	case TierSimulated:
		return "simulated"
	default:
		return "unknown"
	}
}

// MarshalJSON encodes the tier as its string name.
func (t Tier) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON decodes a tier from its string name.
func (t *Tier) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	tier, err := ParseTier(s)
	if err != nil {
		return err
	}
	*t = tier
	return nil
}

// ParseTier is the inverse of [Tier.String].
func ParseTier(s string) (Tier, error) {
	switch s {
	case "remote":
		return TierRemote, nil
	case "simulated":
		return TierSimulated, nil
	default:
		return 0, fmt.Errorf("types: unknown tier %q", s)
	}
}

// TranscriptionOutcome is the uniform result of the transcription stage,
// regardless of which tier served it.
type TranscriptionOutcome struct {
	// Text is the recognized (or simulated) transcript.
	Text string

	// Tier is the strategy that produced Text.
	Tier Tier

	// Provider is the configured name of the strategy (e.g. "whisper",
	// "simulated"). Informational only.
	Provider string
}

// WordAlignmentRecord is the comparison of one reference word with the
// recognized word at the same position.
type WordAlignmentRecord struct {
	ReferenceWord  string  `json:"referenceWord"`
	RecognizedWord string  `json:"recognizedWord"`
	Similarity     float64 `json:"similarity"`
	IsCorrect      bool    `json:"isCorrect"`

	// Suggestion is set only for incorrect words.
	Suggestion string `json:"suggestion,omitempty"`
}

// AssessmentResult is the full outcome of an assessment request. Its JSON
// encoding is consumed directly by UI layers.
type AssessmentResult struct {
	OverallScore           int                   `json:"overallScore"`
	Feedback               []string              `json:"feedback"`
	WordAnalysis           []WordAlignmentRecord `json:"wordAnalysis"`
	DetailedFeedback       string                `json:"detailedFeedback"`
	ImprovementSuggestions []string              `json:"improvementSuggestions"`
	CommonErrors           []string              `json:"commonErrors"`
	RecordedText           string                `json:"recordedText"`

	// Tier tells the UI whether the score was computed from a simulated
	// transcript.
	Tier Tier `json:"tier"`
}

// TranscriptionResult is the response for transcription-only requests.
type TranscriptionResult struct {
	Text     string `json:"text"`
	Tier     Tier   `json:"tier"`
	Provider string `json:"provider,omitempty"`
}
