package api

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/mugpeng/droma-registry/pkg/annotation"
	"github.com/mugpeng/droma-registry/pkg/harmonize"
	"github.com/mugpeng/droma-registry/pkg/kit"
)

// NewMCPServer returns an MCP server exposing the harmonization tools.
func NewMCPServer(cfg Config, version string) *server.MCPServer {
	srv := server.NewMCPServer("droma-registry", version, server.WithToolCapabilities(true))
	RegisterMCPTools(srv, cfg)
	return srv
}

// RegisterMCPTools registers harmonize_names, list_annotations and
// list_vocabularies on srv.
func RegisterMCPTools(srv *server.MCPServer, cfg Config) {
	cfg = cfg.withDefaults()
	e := newEndpoints(cfg)

	kit.RegisterMCPTool(srv, harmonizeTool(), e.harmonize, decodeHarmonize(cfg.Defaults))
	kit.RegisterMCPTool(srv, annotationsTool(), e.annotations, decodeAnnotations)
	kit.RegisterMCPTool(srv, vocabsTool(), e.vocabs, func(mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		return &kit.MCPDecodeResult{}, nil
	})
}

func harmonizeTool() mcp.Tool {
	return mcp.NewTool("harmonize_names",
		mcp.WithDescription("Map free-text cell line, sample or drug names to canonical DROMA names. "+
			"Returns one result per name with match type (exact, alias, fuzzy, partial, none) and confidence."),
		mcp.WithString("kind", mcp.Required(), mcp.Enum("sample", "drug"), mcp.Description("Vocabulary to match against")),
		mcp.WithArray("names", mcp.Required(), mcp.Items(map[string]any{"type": "string"}),
			mcp.Description("Names to harmonize, in order")),
		mcp.WithString("project", mcp.Description("Restrict candidates to one project (e.g. gCSI)")),
		mcp.WithNumber("max_distance", mcp.Description("Largest accepted fuzzy distance, 0 to 1 (default 0.2)")),
		mcp.WithNumber("min_name_length", mcp.Description("Shorter names only match by containment (default 5)")),
		mcp.WithNumber("keep_long_names_threshold",
			mcp.Description("Drug names longer than this are only matched exactly; 0 disables (default 17)")),
		mcp.WithNumber("partial_max_distance", mcp.Description("Largest accepted containment distance, 0 to 1 (default 0.5)")),
	)
}

func decodeHarmonize(defaults harmonize.Options) kit.MCPDecoder {
	return func(req mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		args := req.GetArguments()
		kindStr, _ := args["kind"].(string)
		kind, err := harmonize.ParseKind(kindStr)
		if err != nil {
			return nil, err
		}
		names, err := stringList(args["names"])
		if err != nil {
			return nil, fmt.Errorf("names: %w", err)
		}

		opts := defaults
		if v, ok := args["project"].(string); ok {
			opts.Project = strings.TrimSpace(v)
		}
		if v, ok := args["max_distance"].(float64); ok {
			opts.MaxDistance = v
		}
		if v, ok := args["min_name_length"].(float64); ok {
			opts.MinNameLength = int(v)
		}
		if v, ok := args["keep_long_names_threshold"].(float64); ok {
			opts.KeepLongNamesThreshold = int(v)
		}
		if v, ok := args["partial_max_distance"].(float64); ok {
			opts.PartialMaxDistance = v
		}
		return &kit.MCPDecodeResult{Request: &harmonizeReq{Kind: kind, Names: names, Opts: opts}}, nil
	}
}

func annotationsTool() mcp.Tool {
	return mcp.NewTool("list_annotations",
		mcp.WithDescription("List stored DROMA sample or drug annotations, optionally filtered."),
		mcp.WithString("kind", mcp.Required(), mcp.Enum("sample", "drug")),
		mcp.WithString("projects", mcp.Description("Comma-separated project filter")),
		mcp.WithString("ids", mcp.Description("Comma-separated sample or drug names")),
		mcp.WithString("data_types", mcp.Description("Comma-separated data types (samples only), e.g. CellLine,PDX")),
		mcp.WithString("tumor_types", mcp.Description("Comma-separated tumor types (samples only)")),
		mcp.WithNumber("limit", mcp.Description("Maximum rows to return")),
	)
}

func decodeAnnotations(req mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
	args := req.GetArguments()
	kindStr, _ := args["kind"].(string)
	kind, err := harmonize.ParseKind(kindStr)
	if err != nil {
		return nil, err
	}
	str := func(k string) annotation.OneOrMany[string] {
		v, _ := args[k].(string)
		return splitParam(v)
	}
	f := annotation.Filter{
		Projects:   str("projects"),
		IDs:        str("ids"),
		DataTypes:  str("data_types"),
		TumorTypes: str("tumor_types"),
	}
	if v, ok := args["limit"].(float64); ok {
		f.Limit = int(v)
	}
	return &kit.MCPDecodeResult{Request: &annotationsReq{Kind: kind, Filter: f}}, nil
}

func vocabsTool() mcp.Tool {
	return mcp.NewTool("list_vocabularies",
		mcp.WithDescription("List loaded canonical vocabularies with kind, version, source and entry count."),
	)
}

// stringList accepts a JSON array of strings, or a single string holding one
// name per line. Blank lines inside the string are kept as empty names.
func stringList(v any) ([]string, error) {
	switch t := v.(type) {
	case []any:
		out := make([]string, 0, len(t))
		for i, item := range t {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("item %d is %T, want string", i, item)
			}
			out = append(out, s)
		}
		return out, nil
	case []string:
		return t, nil
	case string:
		t = strings.TrimRight(t, " \t\r\n")
		if t == "" {
			return []string{}, nil
		}
		lines := strings.Split(t, "\n")
		out := make([]string, len(lines))
		for i, line := range lines {
			out[i] = strings.TrimSpace(line)
		}
		return out, nil
	case nil:
		return nil, errors.New("missing")
	default:
		return nil, fmt.Errorf("unsupported type %T", v)
	}
}
