// Package api exposes harmonization over HTTP and MCP. Both transports
// dispatch to the same kit.Endpoints.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mugpeng/droma-registry/pkg/annotation"
	"github.com/mugpeng/droma-registry/pkg/harmonize"
	"github.com/mugpeng/droma-registry/pkg/kit"
	"github.com/mugpeng/droma-registry/pkg/vocab"
)

// DefaultMaxNames caps one harmonization request.
const DefaultMaxNames = 10000

// AnnotationLister serves stored annotation rows.
type AnnotationLister interface {
	Annotations(ctx context.Context, kind harmonize.Kind, f annotation.Filter) ([]annotation.Annotation, error)
}

// VocabularyLister describes the loaded vocabularies.
type VocabularyLister interface {
	List() []vocab.Info
	Count() int
	TotalEntries() int
}

// Config wires the API to its backends. Annotations and Vocabularies may be
// nil; the matching routes then answer 404.
type Config struct {
	Harmonizer   *harmonize.Harmonizer
	Annotations  AnnotationLister
	Vocabularies VocabularyLister
	Defaults     harmonize.Options
	MaxNames     int
	Timeout      time.Duration
	Logger       *slog.Logger
}

func (c Config) withDefaults() Config {
	if c.MaxNames <= 0 {
		c.MaxNames = DefaultMaxNames
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return c
}

var errNotConfigured = errors.New("not configured")

// Shared request/response types used by both HTTP and MCP transports.

type harmonizeReq struct {
	Kind  harmonize.Kind
	Names []string
	Opts  harmonize.Options
}

type harmonizeResponse struct {
	Results []harmonize.MatchResult `json:"results"`
	Summary harmonize.Summary       `json:"summary"`
}

type annotationsReq struct {
	Kind   harmonize.Kind
	Filter annotation.Filter
}

type annotationsResponse struct {
	Annotations []annotation.Annotation `json:"annotations"`
	Count       int                     `json:"count"`
}

type vocabsResponse struct {
	Vocabularies []vocab.Info `json:"vocabularies"`
}

type endpoints struct {
	harmonize   kit.Endpoint
	annotations kit.Endpoint
	vocabs      kit.Endpoint
}

func newEndpoints(cfg Config) endpoints {
	wrap := func(name string, e kit.Endpoint) kit.Endpoint {
		return kit.Chain(kit.Logging(cfg.Logger, name), kit.Timeout(cfg.Timeout))(e)
	}
	return endpoints{
		harmonize:   wrap("harmonize", harmonizeEndpoint(cfg.Harmonizer, cfg.MaxNames)),
		annotations: wrap("annotations", annotationsEndpoint(cfg.Annotations)),
		vocabs:      wrap("vocabularies", vocabsEndpoint(cfg.Vocabularies)),
	}
}

func harmonizeEndpoint(h *harmonize.Harmonizer, maxNames int) kit.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req := request.(*harmonizeReq)
		if len(req.Names) > maxNames {
			return nil, &harmonize.ValidationError{
				Field:   "names",
				Message: fmt.Sprintf("too many names (max %d, got %d)", maxNames, len(req.Names)),
			}
		}
		results, err := h.HarmonizeNames(ctx, req.Kind, req.Names, req.Opts)
		if err != nil {
			return nil, err
		}
		return harmonizeResponse{Results: results, Summary: harmonize.Summarize(results)}, nil
	}
}

func annotationsEndpoint(store AnnotationLister) kit.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		if store == nil {
			return nil, fmt.Errorf("annotation store: %w", errNotConfigured)
		}
		req := request.(*annotationsReq)
		if err := req.Kind.Validate(); err != nil {
			return nil, err
		}
		rows, err := store.Annotations(ctx, req.Kind, req.Filter)
		if err != nil {
			return nil, err
		}
		if rows == nil {
			rows = []annotation.Annotation{}
		}
		return annotationsResponse{Annotations: rows, Count: len(rows)}, nil
	}
}

func vocabsEndpoint(reg VocabularyLister) kit.Endpoint {
	return func(_ context.Context, _ any) (any, error) {
		if reg == nil {
			return vocabsResponse{Vocabularies: []vocab.Info{}}, nil
		}
		return vocabsResponse{Vocabularies: reg.List()}, nil
	}
}
