package harmonize

import (
	"math"
	"strings"
	"unicode/utf8"
)

const distanceEpsilon = 1e-9

// outcome is the tier decision for one name before result assembly.
type outcome struct {
	matchType MatchType
	pos       int
	distance  float64
}

var noMatch = outcome{matchType: MatchNone, pos: -1}

// matchExact looks the cleaned name up among canonical names, then aliases.
// Among alias hits the alphabetically first raw alias wins.
func (ix *index) matchExact(cleaned string) (outcome, bool) {
	if cleaned == "" {
		return noMatch, false
	}
	if hits := ix.byName[cleaned]; len(hits) > 0 {
		return outcome{matchType: MatchExact, pos: hits[0]}, true
	}
	hits := ix.byAlias[cleaned]
	if len(hits) == 0 {
		return noMatch, false
	}
	best := hits[0]
	for _, h := range hits[1:] {
		if h.alias < best.alias {
			best = h
		}
	}
	return outcome{matchType: MatchAlias, pos: best.pos}, true
}

// matchFuzzy scores every entry. Names of at least MinNameLength runes may
// match within MaxDistance; any name may match as a partial when it is
// contained token-wise in a candidate within PartialMaxDistance. Fuzzy beats
// partial. Cost is O(entries x names x len^2) per input name.
func (ix *index) matchFuzzy(cleaned string, dist StringDistance, opts Options) outcome {
	if cleaned == "" {
		return noMatch
	}
	length := utf8.RuneCountInString(cleaned)
	tokens := strings.Fields(cleaned)
	fuzzy, partial := noMatch, noMatch

	for pos := range ix.entries {
		e := &ix.entries[pos]
		fd, pd := math.Inf(1), math.Inf(1)
		for _, name := range e.names {
			d := dist.Distance(cleaned, name)
			fd = min(fd, d)
			if d <= opts.PartialMaxDistance+distanceEpsilon && containsTokens(name, tokens) {
				pd = min(pd, d)
			}
		}
		if length >= opts.MinNameLength && fd <= opts.MaxDistance+distanceEpsilon {
			if c := (outcome{matchType: MatchFuzzy, pos: pos, distance: fd}); ix.better(c, fuzzy, length) {
				fuzzy = c
			}
		}
		if !math.IsInf(pd, 1) {
			if c := (outcome{matchType: MatchPartial, pos: pos, distance: pd}); ix.better(c, partial, length) {
				partial = c
			}
		}
	}
	if fuzzy.pos >= 0 {
		return fuzzy
	}
	return partial
}

// better orders candidates by distance, then by how close the canonical
// name length is to the input, then by index order.
func (ix *index) better(c, best outcome, length int) bool {
	if best.pos < 0 {
		return true
	}
	if c.distance != best.distance {
		return c.distance < best.distance
	}
	cl := abs(ix.entries[c.pos].nameLen - length)
	bl := abs(ix.entries[best.pos].nameLen - length)
	if cl != bl {
		return cl < bl
	}
	return c.pos < best.pos
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
