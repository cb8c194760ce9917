package checker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/steamcheck/checker/internal/remote"
)

// endpoint is a tool implementation over a decoded request.
type endpoint func(ctx context.Context, req any) (any, error)

// registerTool adds tool to srv. decode extracts the typed request from the
// call arguments; the endpoint's response is returned as JSON text.
// Failures are reported as tool errors, not protocol errors.
func registerTool(srv *mcp.Server, tool *mcp.Tool, ep endpoint, decode func(*mcp.CallToolRequest) (any, error)) {
	srv.AddTool(tool, func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		decoded, err := decode(req)
		if err != nil {
			var res mcp.CallToolResult
			res.SetError(fmt.Errorf("invalid arguments: %w", err))
			return &res, nil
		}

		resp, err := ep(ctx, decoded)
		if err != nil {
			var res mcp.CallToolResult
			res.SetError(errors.New(err.Error()))
			return &res, nil
		}

		data, err := json.Marshal(resp)
		if err != nil {
			var res mcp.CallToolResult
			res.SetError(fmt.Errorf("marshal: %w", err))
			return &res, nil
		}
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
		}, nil
	})
}

// decodeInto unmarshals the call arguments into a fresh T. Missing
// arguments decode as the zero value.
func decodeInto[T any](req *mcp.CallToolRequest) (any, error) {
	var r T
	if len(req.Params.Arguments) > 0 {
		if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
			return nil, err
		}
	}
	return &r, nil
}

// inputSchema builds a JSON Schema object with type "object".
func inputSchema(properties map[string]any, required []string) map[string]any {
	s := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}

// RegisterMCP registers the steamcheck tools on an MCP server.
func (c *Checker) RegisterMCP(srv *mcp.Server) {
	c.registerHighlightTool(srv)
	c.registerRemoveGameDataTool(srv)
	c.registerSetIdentityTool(srv)
	c.registerIdentityTool(srv)
}

type highlightRequest struct {
	Path string `json:"path"`
	HTML string `json:"html"`
}

func (c *Checker) registerHighlightTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "steamcheck_highlight",
		Description: "Mark the owned and wishlisted games of an HTML page. Returns the session report and the marked HTML.",
		InputSchema: inputSchema(map[string]any{
			"path": map[string]any{"type": "string", "description": "Page path matched against the selector patterns (e.g. /store)"},
			"html": map[string]any{"type": "string", "description": "Page HTML"},
		}, []string{"path", "html"}),
	}
	ep := func(ctx context.Context, req any) (any, error) {
		r := req.(*highlightRequest)
		return c.HighlightHTML(ctx, r.Path, r.HTML)
	}
	registerTool(srv, tool, ep, decodeInto[highlightRequest])
}

type emptyRequest struct{}

func (c *Checker) registerRemoveGameDataTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "steamcheck_remove_game_data",
		Description: "Remove every cached game name set. The saved identity is kept.",
		InputSchema: inputSchema(map[string]any{}, nil),
	}
	ep := func(ctx context.Context, _ any) (any, error) {
		msg, err := c.RemoveGameData(ctx)
		if err != nil {
			return nil, err
		}
		return map[string]string{"message": msg}, nil
	}
	registerTool(srv, tool, ep, decodeInto[emptyRequest])
}

func (c *Checker) registerSetIdentityTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "steamcheck_set_identity",
		Description: "Save the Steam account whose library is checked, then remove the cached game data.",
		InputSchema: inputSchema(map[string]any{
			"steamid": map[string]any{"type": "string", "description": "SteamID64 or vanity name"},
			"id64":    map[string]any{"type": "boolean", "description": "True when steamid is a 64-bit numeric id"},
		}, []string{"steamid"}),
	}
	ep := func(ctx context.Context, req any) (any, error) {
		r := req.(*remote.Identity)
		if err := c.SetIdentity(ctx, *r); err != nil {
			return nil, err
		}
		return map[string]string{"message": "Identity saved"}, nil
	}
	registerTool(srv, tool, ep, decodeInto[remote.Identity])
}

func (c *Checker) registerIdentityTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "steamcheck_identity",
		Description: "Show the saved Steam account.",
		InputSchema: inputSchema(map[string]any{}, nil),
	}
	ep := func(ctx context.Context, _ any) (any, error) {
		id, reason, err := c.Identity(ctx)
		if err != nil {
			return nil, err
		}
		return identityResponse{Identity: id, Reason: reason}, nil
	}
	registerTool(srv, tool, ep, decodeInto[emptyRequest])
}

type identityResponse struct {
	remote.Identity
	Reason string `json:"reason,omitempty"`
}
