package kit

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// MCPDecodeResult holds the decoded endpoint request.
type MCPDecodeResult struct {
	Request any
}

// MCPDecoder extracts the typed request from MCP tool arguments.
type MCPDecoder func(mcp.CallToolRequest) (*MCPDecodeResult, error)

// MCPToolHandler adapts an Endpoint to an MCP tool handler. Decode and
// endpoint failures become tool errors, not protocol errors.
func MCPToolHandler(endpoint Endpoint, decode MCPDecoder) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		decoded, err := decode(req)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err)), nil
		}
		ctx = WithRequestID(WithTransport(ctx, "mcp"), uuid.NewString())

		resp, err := endpoint(ctx, decoded.Request)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		data, err := json.Marshal(resp)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("marshal: %v", err)), nil
		}
		return mcp.NewToolResultText(string(data)), nil
	}
}

// RegisterMCPTool registers an Endpoint as an MCP tool on the given server.
func RegisterMCPTool(srv *server.MCPServer, tool mcp.Tool, endpoint Endpoint, decode MCPDecoder) {
	srv.AddTool(tool, MCPToolHandler(endpoint, decode))
}
