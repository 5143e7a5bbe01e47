package commodity

import (
	"strings"

	"github.com/agext/levenshtein"
)

// partialDiscount penalizes containment matches so that a short name found
// inside a much longer query ranks below a whole-string match of the same
// quality. Keeps e.g. "Tomatoes" vs "Tomato Paste Concentrate" in the
// review band instead of auto-matching.
const partialDiscount = 0.9

// Score computes a normalized similarity between two strings in [0,1].
// Comparison is case-insensitive with surrounding whitespace stripped.
// Symmetric; returns 1.0 for identical normalized strings. The score is the
// best of three signals: sequence ratio over matching blocks, Levenshtein
// similarity, and a discounted best-window ratio of the shorter string
// against the longer.
func Score(a, b string) float64 {
	a = strings.ToLower(strings.TrimSpace(a))
	b = strings.ToLower(strings.TrimSpace(b))

	if a == b {
		return 1.0
	}
	if a == "" || b == "" {
		return 0.0
	}

	// longestMatch breaks ties by position in its first argument, so the
	// block decomposition depends on argument order. Canonicalize the pair
	// to keep the score symmetric.
	if b < a {
		a, b = b, a
	}

	best := seqRatio(a, b)

	if lev := levenshtein.Similarity(a, b, nil); lev > best {
		best = lev
	}

	if partial := partialDiscount * partialRatio(a, b); partial > best {
		best = partial
	}

	return best
}

// seqRatio is the classic sequence-matcher ratio: 2*M / (len(a)+len(b)),
// where M is the total length of the matching blocks found by recursively
// taking the longest common substring.
func seqRatio(a, b string) float64 {
	total := len(a) + len(b)
	if total == 0 {
		return 1.0
	}
	m := matchingChars(a, b)
	return 2.0 * float64(m) / float64(total)
}

// matchingChars counts characters covered by non-crossing matching blocks.
func matchingChars(a, b string) int {
	if a == "" || b == "" {
		return 0
	}
	ai, bi, size := longestMatch(a, b)
	if size == 0 {
		return 0
	}
	return size +
		matchingChars(a[:ai], b[:bi]) +
		matchingChars(a[ai+size:], b[bi+size:])
}

// longestMatch finds the longest common substring of a and b, returning its
// start offsets and length. Earliest occurrence in a wins ties.
func longestMatch(a, b string) (ai, bi, size int) {
	// lengths[j] holds the run length ending at b[j-1] for the previous row.
	lengths := make([]int, len(b)+1)
	for i := 0; i < len(a); i++ {
		// Walk b right-to-left so the row can be updated in place.
		for j := len(b); j >= 1; j-- {
			if a[i] == b[j-1] {
				run := lengths[j-1] + 1
				lengths[j] = run
				if run > size {
					size = run
					ai = i - run + 1
					bi = j - run
				}
			} else {
				lengths[j] = 0
			}
		}
	}
	return ai, bi, size
}

// partialRatio slides the shorter string across the longer and returns the
// best window ratio. Windows are fixed at the shorter string's length.
func partialRatio(a, b string) float64 {
	short, long := a, b
	if len(short) > len(long) {
		short, long = long, short
	}
	if len(short) == 0 {
		return 0.0
	}

	best := 0.0
	for i := 0; i+len(short) <= len(long); i++ {
		if r := seqRatio(short, long[i:i+len(short)]); r > best {
			best = r
			if best == 1.0 {
				break
			}
		}
	}
	return best
}
