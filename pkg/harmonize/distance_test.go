package harmonize

import (
	"math"
	"testing"
)

func TestTokenSortDistance(t *testing.T) {
	tests := []struct {
		a, b string
		want float64
	}{
		{"mcf7", "mcf7", 0},
		{"mcf7", "mcf 7", 0.2},
		{"cisplatin", "cisplatn", 1.0 / 9},
		{"acid folinic", "folinic acid", 0},
		{"", "abc", 1},
		{"", "", 0},
		{"abc", "xyz", 1},
	}
	var d TokenSortDistance
	for _, tt := range tests {
		got := d.Distance(tt.a, tt.b)
		if math.Abs(got-tt.want) > 1e-12 {
			t.Errorf("Distance(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
		if rev := d.Distance(tt.b, tt.a); rev != got {
			t.Errorf("Distance not symmetric for %q/%q: %v vs %v", tt.a, tt.b, got, rev)
		}
	}
}

func TestLevenshteinDistanceIgnoresTokenOrder(t *testing.T) {
	var d LevenshteinDistance
	if got := d.Distance("acid folinic", "folinic acid"); got == 0 {
		t.Error("plain Levenshtein should not treat reordered tokens as identical")
	}
}

func TestContainsTokens(t *testing.T) {
	tests := []struct {
		haystack string
		needle   []string
		want     bool
	}{
		{"nci h460", []string{"h460"}, true},
		{"michigan cancer foundation 7", []string{"cancer", "foundation"}, true},
		{"michigan cancer foundation 7", []string{"foundation", "cancer"}, false},
		{"mcf7", []string{"mcf"}, false},
		{"mcf7", nil, false},
	}
	for _, tt := range tests {
		if got := containsTokens(tt.haystack, tt.needle); got != tt.want {
			t.Errorf("containsTokens(%q, %v) = %v, want %v", tt.haystack, tt.needle, got, tt.want)
		}
	}
}

func TestConfidence(t *testing.T) {
	if Confidence(MatchExact, 0) != 1 || Confidence(MatchAlias, 0) != 1 {
		t.Fatal("exact and alias matches must have confidence 1")
	}
	if Confidence(MatchNone, 0) != 0 {
		t.Fatal("none must have confidence 0")
	}
	if got := Confidence(MatchFuzzy, 0); got >= 1 {
		t.Errorf("fuzzy confidence at distance 0 = %v, want < 1", got)
	}
	if got := Confidence(MatchPartial, 0); got > partialConfidenceCap {
		t.Errorf("partial confidence = %v, want <= %v", got, partialConfidenceCap)
	}
	prev := 1.0
	for d := 0.0; d <= 1.0; d += 0.05 {
		got := Confidence(MatchFuzzy, d)
		if got > prev {
			t.Errorf("fuzzy confidence increased at distance %v: %v > %v", d, got, prev)
		}
		if got <= 0 {
			t.Errorf("fuzzy confidence at distance %v = %v, want > 0", d, got)
		}
		prev = got
	}
}
