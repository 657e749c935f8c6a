package harmonize

import "math"

const (
	confidenceFloor      = 0.01
	fuzzyConfidenceCap   = 0.99
	partialConfidenceCap = 0.90
)

// Confidence maps a tier and distance to [0, 1]. Exact and alias matches are
// certain; fuzzy and partial scores fall as distance grows and stay strictly
// below 1.
func Confidence(t MatchType, distance float64) float64 {
	switch t {
	case MatchExact, MatchAlias:
		return 1
	case MatchFuzzy:
		return roundConfidence(clamp(1-distance, confidenceFloor, fuzzyConfidenceCap))
	case MatchPartial:
		return roundConfidence(clamp(1-distance, confidenceFloor, partialConfidenceCap))
	default:
		return 0
	}
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func roundConfidence(v float64) float64 {
	return math.Round(v*1e4) / 1e4
}

func assemble(n Normalized, ix *index, o outcome) MatchResult {
	r := MatchResult{
		OriginalName: n.Original,
		CleanedName:  n.Cleaned,
		MatchType:    MatchNone,
		NewName:      n.Cleaned,
		KeptOriginal: n.KeepOriginal,
	}
	if o.matchType == MatchNone || o.pos < 0 {
		return r
	}
	e := ix.entries[o.pos].entry
	name := e.CanonicalName
	r.HarmonizedName = &name
	r.HarmonizedID = e.ID
	r.MatchType = o.matchType
	r.MatchConfidence = Confidence(o.matchType, o.distance)
	r.NewName = name
	return r
}
