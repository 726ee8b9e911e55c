// Package similarity scores how close a recognized word is to its reference
// word.
//
// The primary measure is a normalized Levenshtein similarity:
//
//	similarity(a, b) = 1 - distance(a, b) / max(len(a), len(b))
//
// where lengths are counted in runes and the result is clamped to [0, 1]. An
// empty recognized word earns no credit. Two empty words are defined as
// identical (similarity 1) to avoid dividing by zero.
//
// A secondary check, [SoundsAlike], uses Double Metaphone codes to detect
// recognized words that are spelled differently but pronounced the same way.
// The feedback synthesizer uses it to phrase suggestions for near-homophones.
//
// Every function in this package is pure and safe for concurrent use.
package similarity

import (
	"unicode/utf8"

	"github.com/antzucaro/matchr"
)

// Distance returns the Levenshtein edit distance between a and b, where
// insertion, deletion, and substitution each cost 1. Runes, not bytes, are
// compared. Distance is symmetric.
func Distance(a, b string) int {
	if a == b {
		return 0
	}
	if a == "" {
		return utf8.RuneCountInString(b)
	}
	if b == "" {
		return utf8.RuneCountInString(a)
	}
	return matchr.Levenshtein(a, b)
}

// Similarity returns the normalized edit-distance similarity of a reference
// word a and a recognized word b in the range [0, 1].
func Similarity(a, b string) float64 {
	if b == "" {
		if a == "" {
			return 1
		}
		return 0
	}
	longest := max(utf8.RuneCountInString(a), utf8.RuneCountInString(b))
	s := 1 - float64(Distance(a, b))/float64(longest)
	return min(max(s, 0), 1)
}

// SoundsAlike reports whether a and b share a Double Metaphone code, i.e.
// whether they are likely pronounced the same even though they are spelled
// differently. Identical words and words without consonant codes never sound
// alike.
func SoundsAlike(a, b string) bool {
	if a == "" || b == "" || a == b {
		return false
	}
	ap, as := matchr.DoubleMetaphone(a)
	bp, bs := matchr.DoubleMetaphone(b)
	codes := make(map[string]struct{}, 2)
	for _, c := range []string{ap, as} {
		if c != "" {
			codes[c] = struct{}{}
		}
	}
	for _, c := range []string{bp, bs} {
		if _, ok := codes[c]; ok && c != "" {
			return true
		}
	}
	return false
}
