package harmonize

import (
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
)

// StringDistance scores two cleaned names in [0, 1], where 0 means identical.
// Implementations must be symmetric and deterministic.
type StringDistance interface {
	Distance(a, b string) float64
}

// DistanceFunc adapts a plain function to StringDistance.
type DistanceFunc func(a, b string) float64

func (f DistanceFunc) Distance(a, b string) float64 { return f(a, b) }

// TokenSortDistance is the normalized Levenshtein distance, taking the better
// of the raw strings and their alphabetically sorted tokens. Word order alone
// therefore does not count as a difference.
type TokenSortDistance struct{}

func (TokenSortDistance) Distance(a, b string) float64 {
	if a == b {
		return 0
	}
	longest := max(utf8.RuneCountInString(a), utf8.RuneCountInString(b))
	if longest == 0 {
		return 0
	}
	d := levenshtein.ComputeDistance(a, b)
	if sa, sb := sortTokens(a), sortTokens(b); sa != a || sb != b {
		d = min(d, levenshtein.ComputeDistance(sa, sb))
	}
	return min(float64(d)/float64(longest), 1)
}

// LevenshteinDistance is the plain normalized edit distance.
type LevenshteinDistance struct{}

func (LevenshteinDistance) Distance(a, b string) float64 {
	longest := max(utf8.RuneCountInString(a), utf8.RuneCountInString(b))
	if longest == 0 {
		return 0
	}
	return float64(levenshtein.ComputeDistance(a, b)) / float64(longest)
}

func sortTokens(s string) string {
	tokens := strings.Fields(s)
	if len(tokens) < 2 {
		return s
	}
	slices.Sort(tokens)
	return strings.Join(tokens, " ")
}

// containsTokens reports whether needle appears in haystack as a contiguous
// run of whole tokens.
func containsTokens(haystack string, needle []string) bool {
	if len(needle) == 0 {
		return false
	}
	hay := strings.Fields(haystack)
	for i := 0; i+len(needle) <= len(hay); i++ {
		if slices.Equal(hay[i:i+len(needle)], needle) {
			return true
		}
	}
	return false
}
