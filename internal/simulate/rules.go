package simulate

import (
	"strings"
)

// rule is a single language-specific mis-recognition pattern. Both functions
// receive the lowercased token.
type rule struct {
	name    string
	applies func(w string) bool
	apply   func(w string, r Rand) string
}

const vowels = "aeiou"

// ruleSets maps a primary language subtag to its error model. Read-only after
// package initialisation.
var ruleSets = map[string][]rule{
	"en": {
		replaceRule("th-stopping", "th", "t"),
		replaceRule("liquid-confusion", "r", "l"),
		vowelShiftRule,
		suffixRule("g-dropping", "ing", "in"),
		suffixRule("ed-devoicing", "ed", "t"),
	},
	"fr": {
		{
			name: "silent-final-consonant",
			applies: func(w string) bool {
				return len([]rune(w)) > 3 && strings.ContainsAny(lastRune(w), "stdxz")
			},
			apply: func(w string, _ Rand) string {
				runes := []rune(w)
				return string(runes[:len(runes)-1])
			},
		},
		{
			name: "u-rounding",
			applies: func(w string) bool {
				return strings.Contains(w, "u") && !strings.Contains(w, "ou")
			},
			apply: func(w string, _ Rand) string {
				return strings.Replace(w, "u", "ou", 1)
			},
		},
		replaceRule("eu-fronting", "eu", "e"),
		replaceRule("nasal-loss", "on", "o"),
	},
	"es": {
		{
			name:    "b-v-merger",
			applies: func(w string) bool { return strings.ContainsAny(w, "bv") },
			apply: func(w string, _ Rand) string {
				return strings.Map(func(c rune) rune {
					switch c {
					case 'b':
						return 'v'
					case 'v':
						return 'b'
					}
					return c
				}, w)
			},
		},
		replaceRule("yeismo", "ll", "y"),
		{
			name: "final-s-aspiration",
			applies: func(w string) bool {
				return len([]rune(w)) > 2 && strings.HasSuffix(w, "s")
			},
			apply: func(w string, _ Rand) string {
				return strings.TrimSuffix(w, "s")
			},
		},
		vowelShiftRule,
	},
}

// defaultRules is the generic error model used for languages without a
// dedicated rule set.
var defaultRules = []rule{
	{
		name: "vowel-drop",
		applies: func(w string) bool {
			return len([]rune(w)) > 3 && len(vowelPositions([]rune(w))) > 0
		},
		apply: func(w string, r Rand) string {
			runes := []rune(w)
			pos := vowelPositions(runes)
			i := pos[r.IntN(len(pos))]
			return string(append(runes[:i:i], runes[i+1:]...))
		},
	},
	{
		name: "final-consonant-drop",
		applies: func(w string) bool {
			last := lastRune(w)
			return len([]rune(w)) > 3 && last != "" && isLetter(last) && !strings.Contains(vowels, last)
		},
		apply: func(w string, _ Rand) string {
			runes := []rune(w)
			return string(runes[:len(runes)-1])
		},
	},
}

// vowelShiftRule replaces one random vowel with a different vowel.
var vowelShiftRule = rule{
	name: "vowel-shift",
	applies: func(w string) bool {
		return len(vowelPositions([]rune(w))) > 0
	},
	apply: func(w string, r Rand) string {
		runes := []rune(w)
		pos := vowelPositions(runes)
		i := pos[r.IntN(len(pos))]
		others := strings.ReplaceAll(vowels, string(runes[i]), "")
		runes[i] = rune(others[r.IntN(len(others))])
		return string(runes)
	},
}

// rulesFor returns the rule set for a language tag such as "en" or "en-US".
func rulesFor(language string) []rule {
	if rules, ok := ruleSets[PrimarySubtag(language)]; ok {
		return rules
	}
	return defaultRules
}

// PrimarySubtag returns the lowercased primary subtag of a language tag
// ("en-US" → "en").
func PrimarySubtag(language string) string {
	primary, _, _ := strings.Cut(language, "-")
	return strings.ToLower(primary)
}

func replaceRule(name, old, repl string) rule {
	return rule{
		name:    name,
		applies: func(w string) bool { return strings.Contains(w, old) },
		apply: func(w string, _ Rand) string {
			return strings.ReplaceAll(w, old, repl)
		},
	}
}

func suffixRule(name, suffix, repl string) rule {
	return rule{
		name: name,
		applies: func(w string) bool {
			return len(w) > len(suffix)+1 && strings.HasSuffix(w, suffix)
		},
		apply: func(w string, _ Rand) string {
			return strings.TrimSuffix(w, suffix) + repl
		},
	}
}

func vowelPositions(runes []rune) []int {
	var pos []int
	for i, c := range runes {
		if strings.ContainsRune(vowels, c) {
			pos = append(pos, i)
		}
	}
	return pos
}

func lastRune(w string) string {
	runes := []rune(w)
	if len(runes) == 0 {
		return ""
	}
	return string(runes[len(runes)-1])
}

func isLetter(s string) bool {
	return len(s) == 1 && s[0] >= 'a' && s[0] <= 'z'
}
