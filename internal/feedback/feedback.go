// Package feedback turns scored word alignments into learner-facing
// feedback: general remarks, per-word suggestions, a prose summary, ranked
// improvement suggestions and common-error diagnostics.
//
// Phrasing is looked up in read-only tables keyed by the primary language
// subtag ("en", "es", "fr"). Unknown tags fall back to English. Nothing in
// this package fails: missing data degrades to generic wording.
package feedback

import (
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/MrWong99/diction/internal/align"
	"github.com/MrWong99/diction/internal/similarity"
	"github.com/MrWong99/diction/pkg/types"
)

// Rand is the random source used to pick phrasing. *math/rand/v2.Rand
// satisfies it.
type Rand interface {
	IntN(n int) int
}

// Band is a score bucket. Bands are ordered from best to worst.
type Band int

const (
	BandExcellent Band = iota
	BandVeryGood
	BandGood
	BandFair
	BandNeedsWork

	bandCount
)

// bandThresholds holds the minimum score of each band.
var bandThresholds = [bandCount]int{90, 80, 70, 60, 0}

// BandFor returns the first band whose threshold is at most score.
func BandFor(score int) Band {
	for b, threshold := range bandThresholds {
		if score >= threshold {
			return Band(b)
		}
	}
	return BandNeedsWork
}

// String returns the metric label of the band.
func (b Band) String() string {
	switch b {
	case BandExcellent:
		return "excellent"
	case BandVeryGood:
		return "very_good"
	case BandGood:
		return "good"
	case BandFair:
		return "fair"
	case BandNeedsWork:
		return "needs_work"
	default:
		return "unknown"
	}
}

var (
	vowelRe         = regexp.MustCompile(`[aeiou]`)
	consonantRunRe  = regexp.MustCompile(`[bcdfghjklmnpqrstvwxz]{2,}`)
	trailingConsRe  = regexp.MustCompile(`[bcdfghjklmnpqrstvwxz]\b`)
	doubleVowelRe   = regexp.MustCompile(`[aeiou]{2}`)
	longWordRe      = regexp.MustCompile(`\p{L}{7,}`)
	englishSoundsRe = regexp.MustCompile(`th|r|l|w`)
)

// lookup returns the phrasebook for tag and whether the language is known.
func lookup(tag string) (phrasebook, bool) {
	pb, ok := phrasebooks[primary(tag)]
	if !ok {
		return phrasebooks[defaultLanguage], false
	}
	return pb, true
}

func primary(tag string) string {
	p, _, _ := strings.Cut(tag, "-")
	return strings.ToLower(p)
}

// WordSuggestion returns a randomly chosen practice tip for word in the
// language of tag.
func WordSuggestion(word, tag string, r Rand) string {
	pb, _ := lookup(tag)
	return fmt.Sprintf(pb.wordTips[r.IntN(len(pb.wordTips))], word)
}

// GeneralFeedback returns the general remarks for score. Languages without a
// phrasebook get a shorter English list.
func GeneralFeedback(score int, tag string) []string {
	b := BandFor(score)
	pb, ok := lookup(tag)
	if !ok {
		return slices.Clone(defaultGeneral[b])
	}
	return slices.Clone(pb.general[b])
}

// DetailedFeedback returns a paragraph describing score. When the recognized
// text has a different number of words than the reference, a clause reporting
// the skipped or added words is appended.
func DetailedFeedback(recorded, reference string, score int, tag string) string {
	pb, _ := lookup(tag)
	text := fmt.Sprintf(pb.detailed[BandFor(score)], score)

	diff := len(align.Normalize(recorded)) - len(align.Normalize(reference))
	switch {
	case diff < 0:
		text += " " + plural(pb.skipped, -diff)
	case diff > 0:
		text += " " + plural(pb.added, diff)
	}
	return text
}

func plural(forms [2]string, n int) string {
	if n == 1 {
		return fmt.Sprintf(forms[0], n)
	}
	return fmt.Sprintf(forms[1], n)
}

// ImprovementSuggestions ranks what the learner should practise next.
//
// With no incorrect words it returns a single encouragement. With one to
// three it returns one tailored suggestion per incorrect word. With more it
// returns a summary, optional vowel and consonant-cluster tips, and up to two
// generic tips.
func ImprovementSuggestions(records []types.WordAlignmentRecord) []string {
	incorrect := incorrectRecords(records)
	switch {
	case len(incorrect) == 0:
		return []string{encouragement}
	case len(incorrect) <= 3:
		out := make([]string, 0, len(incorrect))
		for _, r := range incorrect {
			out = append(out, tailored(r))
		}
		return out
	}

	out := []string{fmt.Sprintf(incorrectSummary, len(incorrect))}
	var hasVowel, hasCluster bool
	for _, r := range incorrect {
		hasVowel = hasVowel || vowelRe.MatchString(r.ReferenceWord)
		hasCluster = hasCluster || consonantRunRe.MatchString(r.ReferenceWord)
	}
	if hasVowel {
		out = append(out, vowelTip)
	}
	if hasCluster {
		out = append(out, consonantTip)
	}
	return append(out, genericTips[:min(2, len(genericTips))]...)
}

// tailored builds the suggestion for one incorrect word. A record without a
// stored suggestion gets generic wording.
func tailored(r types.WordAlignmentRecord) string {
	s := r.Suggestion
	if strings.TrimSpace(s) == "" {
		s = fmt.Sprintf(genericWordTip, r.ReferenceWord)
	}
	if similarity.SoundsAlike(r.ReferenceWord, r.RecognizedWord) {
		s = fmt.Sprintf(soundsAlikePrefix, r.ReferenceWord, r.RecognizedWord) + s
	}
	return s
}

// CommonErrors diagnoses recurring error patterns across the incorrect
// words. It returns an empty list when every word was correct and at least
// one diagnostic otherwise.
func CommonErrors(records []types.WordAlignmentRecord, tag string) []string {
	incorrect := incorrectRecords(records)
	if len(incorrect) == 0 {
		return []string{}
	}
	words := make([]string, len(incorrect))
	for i, r := range incorrect {
		words[i] = r.ReferenceWord
	}
	slices.Sort(words)
	joined := strings.Join(words, " ")

	var out []string
	if trailingConsRe.MatchString(joined) {
		out = append(out, diagTrailing)
	}
	if doubleVowelRe.MatchString(joined) {
		out = append(out, diagDoubleVowel)
	}
	if longWordRe.MatchString(joined) {
		out = append(out, diagLongWords)
	}
	if primary(tag) == "en" && englishSoundsRe.MatchString(joined) {
		out = append(out, diagEnglishSounds)
	}
	if len(out) < 2 {
		out = append(out, diagRhythm)
	}
	return out
}

func incorrectRecords(records []types.WordAlignmentRecord) []types.WordAlignmentRecord {
	var out []types.WordAlignmentRecord
	for _, r := range records {
		if !r.IsCorrect {
			out = append(out, r)
		}
	}
	return out
}
