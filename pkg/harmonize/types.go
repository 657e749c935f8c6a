// Package harmonize reconciles free-text sample and drug names against a
// canonical vocabulary.
//
// Each input name flows through a fixed pipeline: normalization, exact lookup
// on canonical names and aliases, fuzzy scoring against every candidate, and
// confidence assembly. The canonical snapshot is fetched once per call from a
// CanonicalSource and is never mutated.
package harmonize

import (
	"context"
	"fmt"
	"strings"
)

// Kind selects which vocabulary and cleaning rules a harmonization uses.
type Kind string

const (
	KindSample Kind = "sample"
	KindDrug   Kind = "drug"
)

// ParseKind accepts "sample" or "drug" in any case.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	if err := k.Validate(); err != nil {
		return "", err
	}
	return k, nil
}

// Validate reports a *ValidationError for anything but sample or drug.
func (k Kind) Validate() error {
	switch k {
	case KindSample, KindDrug:
		return nil
	default:
		return &ValidationError{Field: "kind", Message: fmt.Sprintf("must be %q or %q, got %q", KindSample, KindDrug, string(k))}
	}
}

// CanonicalEntry is one row of the authoritative vocabulary.
type CanonicalEntry struct {
	ID            string   `json:"id"`
	CanonicalName string   `json:"canonical_name"`
	Aliases       []string `json:"aliases,omitempty"`
	Project       string   `json:"project,omitempty"`
}

// CanonicalSource provides a read-only snapshot of canonical entries.
// An empty project means every project.
type CanonicalSource interface {
	FetchCanonicalEntries(ctx context.Context, kind Kind, project string) ([]CanonicalEntry, error)
}

// StaticSource is an in-memory CanonicalSource keyed by kind.
type StaticSource map[Kind][]CanonicalEntry

// FetchCanonicalEntries returns a copy of the entries for kind, filtered by project.
func (s StaticSource) FetchCanonicalEntries(_ context.Context, kind Kind, project string) ([]CanonicalEntry, error) {
	var out []CanonicalEntry
	for _, e := range s[kind] {
		if project != "" && e.Project != project {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

// MatchType labels the tier that produced a MatchResult.
type MatchType string

const (
	MatchExact   MatchType = "exact"
	MatchAlias   MatchType = "alias"
	MatchFuzzy   MatchType = "fuzzy"
	MatchPartial MatchType = "partial"
	MatchNone    MatchType = "none"
)

// MatchResult is the harmonization outcome for one input name.
type MatchResult struct {
	OriginalName    string    `json:"original_name"`
	CleanedName     string    `json:"cleaned_name"`
	HarmonizedName  *string   `json:"harmonized_name"`
	HarmonizedID    string    `json:"harmonized_id,omitempty"`
	MatchType       MatchType `json:"match_type"`
	MatchConfidence float64   `json:"match_confidence"`
	NewName         string    `json:"new_name"`
	KeptOriginal    bool      `json:"kept_original,omitempty"`
}

// Matched reports whether the result maps to a canonical entry.
func (r MatchResult) Matched() bool {
	return r.MatchType != MatchNone && r.HarmonizedName != nil
}

// Unmatched returns the results with match type none, in input order.
// Their NewName is what a caller registers as a new canonical name.
func Unmatched(results []MatchResult) []MatchResult {
	var out []MatchResult
	for _, r := range results {
		if r.MatchType == MatchNone {
			out = append(out, r)
		}
	}
	return out
}

// Summary counts results per match type.
type Summary struct {
	Total        int `json:"total"`
	Exact        int `json:"exact"`
	Alias        int `json:"alias"`
	Fuzzy        int `json:"fuzzy"`
	Partial      int `json:"partial"`
	None         int `json:"none"`
	KeptOriginal int `json:"kept_original"`
}

// Summarize tallies results by match type.
func Summarize(results []MatchResult) Summary {
	s := Summary{Total: len(results)}
	for _, r := range results {
		switch r.MatchType {
		case MatchExact:
			s.Exact++
		case MatchAlias:
			s.Alias++
		case MatchFuzzy:
			s.Fuzzy++
		case MatchPartial:
			s.Partial++
		default:
			s.None++
		}
		if r.KeptOriginal {
			s.KeptOriginal++
		}
	}
	return s
}
