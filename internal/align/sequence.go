package align

import (
	"math"

	"github.com/MrWong99/diction/internal/similarity"
	"github.com/MrWong99/diction/pkg/types"
)

// gapCost is the cost of a skipped reference word or an extra recognized
// word. Substituting one word for another costs 1 - similarity, so it never
// exceeds a gap.
const gapCost = 1.0

// AlignSequence pairs reference and recognized words using a Wagner–Fischer
// alignment over word tokens. Skipped reference words are compared with the
// empty string and extra recognized words are dropped. Ties prefer pairing
// over skipping.
func AlignSequence(reference, recognized string, suggest SuggestFunc) []types.WordAlignmentRecord {
	ref := Normalize(reference)
	rec := Normalize(recognized)
	n, m := len(ref), len(rec)

	sub := make([][]float64, n)
	for i := range n {
		sub[i] = make([]float64, m)
		for j := range m {
			sub[i][j] = 1 - similarity.Similarity(ref[i], rec[j])
		}
	}

	dp := make([][]float64, n+1)
	for i := range dp {
		dp[i] = make([]float64, m+1)
		dp[i][0] = float64(i) * gapCost
	}
	for j := 1; j <= m; j++ {
		dp[0][j] = float64(j) * gapCost
	}
	for i := 1; i <= n; i++ {
		for j := 1; j <= m; j++ {
			dp[i][j] = min(
				dp[i-1][j-1]+sub[i-1][j-1],
				dp[i-1][j]+gapCost,
				dp[i][j-1]+gapCost,
			)
		}
	}

	// Backtrace, filling one recognized word (or "") per reference word.
	matched := make([]string, n)
	for i, j := n, m; i > 0 || j > 0; {
		switch {
		case i > 0 && j > 0 && approxEqual(dp[i][j], dp[i-1][j-1]+sub[i-1][j-1]):
			matched[i-1] = rec[j-1]
			i, j = i-1, j-1
		case i > 0 && approxEqual(dp[i][j], dp[i-1][j]+gapCost):
			i--
		default:
			j--
		}
	}

	records := make([]types.WordAlignmentRecord, n)
	for i, w := range ref {
		records[i] = newRecord(w, matched[i], suggest)
	}
	return records
}

func approxEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}
