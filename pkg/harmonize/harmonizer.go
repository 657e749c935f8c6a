package harmonize

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// reviewLimit caps the low-confidence rows echoed in the summary log.
const reviewLimit = 5

// Harmonizer runs the matching pipeline against a CanonicalSource.
// It holds no per-call state and may be shared between goroutines.
type Harmonizer struct {
	source      CanonicalSource
	distance    StringDistance
	logger      *slog.Logger
	normalizers map[Kind]*Normalizer
}

// Option configures a Harmonizer.
type Option func(*Harmonizer)

// WithDistance replaces the default TokenSortDistance.
func WithDistance(d StringDistance) Option {
	return func(h *Harmonizer) { h.distance = d }
}

// WithLogger sets the logger used for summaries and warnings.
func WithLogger(l *slog.Logger) Option {
	return func(h *Harmonizer) { h.logger = l }
}

// WithRules replaces the cleaning rules for both kinds.
func WithRules(rs RuleSet) Option {
	return func(h *Harmonizer) {
		h.normalizers[KindSample] = NewNormalizer(rs.Sample)
		h.normalizers[KindDrug] = NewNormalizer(rs.Drug)
	}
}

// New returns a Harmonizer reading canonical entries from source.
func New(source CanonicalSource, opts ...Option) *Harmonizer {
	rs := DefaultRuleSet()
	h := &Harmonizer{
		source:   source,
		distance: TokenSortDistance{},
		logger:   slog.Default(),
		normalizers: map[Kind]*Normalizer{
			KindSample: NewNormalizer(rs.Sample),
			KindDrug:   NewNormalizer(rs.Drug),
		},
	}
	for _, o := range opts {
		o(h)
	}
	return h
}

// Normalizer returns the normalizer used for kind.
func (h *Harmonizer) Normalizer(kind Kind) *Normalizer {
	return h.normalizers[kind]
}

// HarmonizeNames maps every name to at most one canonical entry. The result
// has one element per input, in input order; duplicates are matched
// independently. Unmatched names are reported with match type none, never as
// errors. A *ValidationError is returned for a bad kind or options, and a
// wrapped error when the canonical source fails or ctx is cancelled.
func (h *Harmonizer) HarmonizeNames(ctx context.Context, kind Kind, names []string, opts Options) ([]MatchResult, error) {
	if err := kind.Validate(); err != nil {
		return nil, err
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	normalizer := h.normalizers[kind]

	entries, err := h.source.FetchCanonicalEntries(ctx, kind, opts.Project)
	if err != nil {
		return nil, fmt.Errorf("fetch %s entries: %w", kind, err)
	}
	ix := buildIndex(entries, normalizer)
	if ix.empty() {
		h.logger.Warn("canonical vocabulary is empty, every name will be unmatched",
			"kind", kind, "project", opts.Project)
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	results := make([]MatchResult, len(names))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, name := range names {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = h.matchOne(kind, name, normalizer, ix, opts)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("harmonize %s names: %w", kind, err)
	}

	h.logSummary(kind, results)
	return results, nil
}

// matchOne never fails: a panic while scoring degrades the row to none.
func (h *Harmonizer) matchOne(kind Kind, name string, n *Normalizer, ix *index, opts Options) (r MatchResult) {
	norm := Normalized{Original: name}
	defer func() {
		if p := recover(); p != nil {
			h.logger.Error("matching failed, reporting as unmatched",
				"kind", kind, "name", name, "panic", p)
			r = assemble(norm, ix, noMatch)
		}
	}()

	norm = n.Normalize(name, opts.KeepLongNamesThreshold)

	if o, ok := ix.matchExact(norm.Cleaned); ok {
		return assemble(norm, ix, o)
	}
	if norm.KeepOriginal {
		return assemble(norm, ix, noMatch)
	}
	return assemble(norm, ix, ix.matchFuzzy(norm.Cleaned, h.distance, opts))
}

func (h *Harmonizer) logSummary(kind Kind, results []MatchResult) {
	s := Summarize(results)
	h.logger.Info("harmonization complete",
		"kind", kind,
		"total", s.Total,
		"exact", s.Exact,
		"alias", s.Alias,
		"fuzzy", s.Fuzzy,
		"partial", s.Partial,
		"none", s.None,
		"kept_original", s.KeptOriginal,
	)

	review := s.Fuzzy + s.Partial
	if review == 0 {
		return
	}
	h.logger.Warn("low-confidence mappings should be reviewed", "kind", kind, "count", review)
	shown := 0
	for _, r := range results {
		if shown == reviewLimit {
			break
		}
		if r.MatchType != MatchFuzzy && r.MatchType != MatchPartial {
			continue
		}
		h.logger.Info("review mapping",
			"original", r.OriginalName,
			"harmonized", *r.HarmonizedName,
			"match_type", r.MatchType,
			"confidence", r.MatchConfidence,
		)
		shown++
	}
}

// HarmonizeNames runs a one-off harmonization with default rules.
func HarmonizeNames(ctx context.Context, source CanonicalSource, kind Kind, names []string, opts Options) ([]MatchResult, error) {
	return New(source).HarmonizeNames(ctx, kind, names, opts)
}
