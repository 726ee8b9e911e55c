// Package align pairs the words of a reference text with the words of a
// recognized transcript and scores each pair.
//
// Two strategies exist. [Align] pairs words strictly by position: the i-th
// reference word is compared with the i-th recognized word. It is simple and
// predictable but shifts every later comparison when the learner skips or
// inserts a word. [AlignSequence] first computes a minimum-cost word
// alignment so insertions and deletions only affect the words involved.
//
// Both produce exactly one record per reference word, so [OverallScore] is
// independent of the strategy.
package align

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/MrWong99/diction/internal/similarity"
	"github.com/MrWong99/diction/pkg/types"
)

// ErrEmptyReference is returned when the reference has no words to score.
var ErrEmptyReference = errors.New("align: reference has no words")

// SuggestFunc returns a pronunciation suggestion for an incorrectly
// recognized reference word. It may return "".
type SuggestFunc func(word string) string

// Func is the signature shared by [Align] and [AlignSequence].
type Func func(reference, recognized string, suggest SuggestFunc) []types.WordAlignmentRecord

// Mode names an alignment strategy in configuration.
type Mode string

const (
	ModePositional Mode = "positional"
	ModeSequence   Mode = "sequence"
)

// ForMode returns the alignment function for m. The empty mode selects
// [ModePositional].
func ForMode(m Mode) (Func, error) {
	switch m {
	case "", ModePositional:
		return Align, nil
	case ModeSequence:
		return AlignSequence, nil
	default:
		return nil, fmt.Errorf("align: unknown alignment mode %q", m)
	}
}

var punctuation = strings.NewReplacer(".", "", ",", "", "?", "", "!", "")

// Normalize lowercases text, strips the characters . , ? and ! and splits the
// remainder on runs of whitespace.
func Normalize(text string) []string {
	return strings.Fields(punctuation.Replace(strings.ToLower(text)))
}

// Align pairs reference and recognized words by position. Reference words
// without a counterpart are compared with the empty string. Recognized words
// beyond the reference length are ignored. suggest, when non-nil, is called
// for every incorrect record.
func Align(reference, recognized string, suggest SuggestFunc) []types.WordAlignmentRecord {
	ref := Normalize(reference)
	rec := Normalize(recognized)

	records := make([]types.WordAlignmentRecord, len(ref))
	for i, w := range ref {
		var got string
		if i < len(rec) {
			got = rec[i]
		}
		records[i] = newRecord(w, got, suggest)
	}
	return records
}

// OverallScore returns round(100 × correct / total). It returns
// [ErrEmptyReference] for an empty record list.
func OverallScore(records []types.WordAlignmentRecord) (int, error) {
	if len(records) == 0 {
		return 0, ErrEmptyReference
	}
	correct := 0
	for _, r := range records {
		if r.IsCorrect {
			correct++
		}
	}
	return int(math.Round(100 * float64(correct) / float64(len(records)))), nil
}

func newRecord(ref, got string, suggest SuggestFunc) types.WordAlignmentRecord {
	sim := similarity.Similarity(ref, got)
	r := types.WordAlignmentRecord{
		ReferenceWord:  ref,
		RecognizedWord: got,
		Similarity:     sim,
		IsCorrect:      sim > types.CorrectThreshold,
	}
	if !r.IsCorrect && suggest != nil {
		r.Suggestion = suggest(ref)
	}
	return r
}
