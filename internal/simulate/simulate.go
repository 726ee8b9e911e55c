// Package simulate produces plausible degraded transcripts from a reference
// text. It stands in for real speech recognition when the remote
// transcription dependency is unavailable, so that learners still receive an
// assessment.
//
// Two modes are offered:
//
//   - [Simulate] keeps each token with a fixed probability (the target
//     accuracy) and otherwise applies a single-character slip.
//   - [SimulateEnhanced] derives per-token retention from utterance and word
//     length and corrupts tokens with language-specific substitution rules,
//     followed by utterance-level drop and duplicate edits.
//
// All randomness flows through the injected [Rand], so tests can pin exact
// outputs. The rule tables are package-level and never mutated, which makes
// every function safe for concurrent use as long as each caller supplies its
// own Rand.
package simulate

import (
	"slices"
	"strings"
)

// Rand is the random source consumed by the simulator. *math/rand/v2.Rand
// satisfies it.
type Rand interface {
	// Float64 returns a pseudo-random number in [0.0, 1.0).
	Float64() float64

	// IntN returns a pseudo-random number in [0, n). n must be > 0.
	IntN(n int) int
}

const (
	// minCorruptibleRunes is the shortest token basic mode will alter.
	minCorruptibleRunes = 4

	dropProbability      = 0.15
	duplicateProbability = 0.10

	// minTokensForDrop is the number of tokens an utterance must exceed
	// before a token may be dropped.
	minTokensForDrop = 3
)

// Simulate returns a transcript derived from reference in which each
// whitespace-delimited token survives unchanged with probability accuracy.
// A token selected for corruption that is longer than three runes has one
// rune either shifted to the next code point or deleted; shorter tokens are
// left as they are.
func Simulate(reference string, accuracy float64, r Rand) string {
	tokens := strings.Fields(reference)
	out := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if r.Float64() < accuracy {
			out = append(out, tok)
			continue
		}
		out = append(out, slip(tok, r))
	}
	return strings.Join(out, " ")
}

// slip replaces or deletes a single random rune of tok.
func slip(tok string, r Rand) string {
	runes := []rune(tok)
	if len(runes) < minCorruptibleRunes {
		return tok
	}
	pos := r.IntN(len(runes))
	if r.IntN(2) == 0 {
		runes[pos]++
		return string(runes)
	}
	return string(append(runes[:pos:pos], runes[pos+1:]...))
}

// SimulateEnhanced returns a transcript derived from reference using the
// error model of language. Longer utterances and longer words are less likely
// to survive intact. After per-token corruption one token may be dropped
// (probability 0.15, only for utterances of more than three tokens) and one
// token may be duplicated in place (probability 0.10).
func SimulateEnhanced(reference, language string, r Rand) string {
	tokens := strings.Fields(reference)
	if len(tokens) == 0 {
		return ""
	}
	rules := rulesFor(language)
	base := utteranceRetention(len(tokens))

	out := make([]string, 0, len(tokens)+1)
	for _, tok := range tokens {
		if r.Float64() < tokenRetention(base, tok) {
			out = append(out, tok)
			continue
		}
		out = append(out, corrupt(tok, rules, r))
	}

	if len(out) > minTokensForDrop && r.Float64() < dropProbability {
		i := r.IntN(len(out))
		out = slices.Delete(out, i, i+1)
	}
	if len(out) > 0 && r.Float64() < duplicateProbability {
		i := r.IntN(len(out))
		out = slices.Insert(out, i+1, out[i])
	}
	return strings.Join(out, " ")
}

// utteranceRetention is the base retention probability for an utterance of n
// tokens.
func utteranceRetention(n int) float64 {
	base := 0.95 - 0.015*float64(max(0, n-5))
	return max(base, 0.70)
}

// tokenRetention lowers base for long words.
func tokenRetention(base float64, tok string) float64 {
	p := base - 0.02*float64(max(0, len([]rune(tok))-4))
	return min(max(p, 0.55), 0.98)
}

// corrupt applies one randomly chosen applicable rule to tok. The token is
// returned unchanged when no rule applies.
func corrupt(tok string, rules []rule, r Rand) string {
	lower := strings.ToLower(tok)
	applicable := make([]rule, 0, len(rules))
	for _, rl := range rules {
		if rl.applies(lower) {
			applicable = append(applicable, rl)
		}
	}
	if len(applicable) == 0 {
		return tok
	}
	return applicable[r.IntN(len(applicable))].apply(lower, r)
}
