package checker

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/steamcheck/checker/internal/store"
)

var testImpl = &mcp.Implementation{Name: "steamcheck-test", Version: "0.1.0"}

// mcpSession registers the tools of c and returns a connected client
// session that can call them end-to-end.
func mcpSession(t *testing.T, c *Checker) *mcp.ClientSession {
	t.Helper()
	srv := mcp.NewServer(testImpl, nil)
	c.RegisterMCP(srv)

	serverT, clientT := mcp.NewInMemoryTransports()
	ctx := context.Background()

	go func() {
		_ = srv.Run(ctx, serverT)
	}()

	client := mcp.NewClient(testImpl, nil)
	session, err := client.Connect(ctx, clientT, nil)
	if err != nil {
		t.Fatalf("client connect: %v", err)
	}
	t.Cleanup(func() { session.Close() })
	return session
}

// callTool invokes a tool and returns the JSON text from the first TextContent.
func callTool(t *testing.T, session *mcp.ClientSession, name string, args any) string {
	t.Helper()
	result, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      name,
		Arguments: args,
	})
	if err != nil {
		t.Fatalf("CallTool(%s): %v", name, err)
	}
	if err := result.GetError(); err != nil {
		t.Fatalf("CallTool(%s) tool error: %v", name, err)
	}
	if len(result.Content) == 0 {
		t.Fatalf("CallTool(%s): empty content", name)
	}
	tc, ok := result.Content[0].(*mcp.TextContent)
	if !ok {
		t.Fatalf("CallTool(%s): expected TextContent, got %T", name, result.Content[0])
	}
	return tc.Text
}

func TestMCP_SetIdentityAndHighlight(t *testing.T) {
	c := testChecker(t, halfLifeLibrary, nil)
	session := mcpSession(t, c)

	text := callTool(t, session, "steamcheck_set_identity", map[string]any{
		"steamid": "76561197960287930",
		"id64":    true,
	})
	if !strings.Contains(text, "Identity saved") {
		t.Errorf("set identity: %s", text)
	}

	text = callTool(t, session, "steamcheck_identity", map[string]any{})
	var id identityResponse
	if err := json.Unmarshal([]byte(text), &id); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if id.SteamID != "76561197960287930" || !id.ID64 || id.Reason != "" {
		t.Errorf("identity: %+v", id)
	}

	text = callTool(t, session, "steamcheck_highlight", map[string]any{
		"path": "/store",
		"html": storePage,
	})
	var res HighlightResult
	if err := json.Unmarshal([]byte(text), &res); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if res.Report.Inert || res.Report.Owned != 1 || len(res.Report.Candidates) != 2 {
		t.Errorf("report: %+v", res.Report)
	}
	if !strings.Contains(res.HTML, "steamchecker-ownedGame") {
		t.Errorf("html not marked: %s", res.HTML)
	}
}

func TestMCP_RemoveGameData(t *testing.T) {
	st := store.OpenMemory(t)
	c := testChecker(t, halfLifeLibrary, st)
	session := mcpSession(t, c)
	ctx := context.Background()
	_ = st.Set(ctx, map[string]any{store.KeyOwnedHash: 3, store.KeyNumGames: 2})

	text := callTool(t, session, "steamcheck_remove_game_data", map[string]any{})
	var out map[string]string
	if err := json.Unmarshal([]byte(text), &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out["message"] != GameDataRemoved {
		t.Errorf("message: %q", out["message"])
	}
	if keys, _ := st.Keys(ctx); len(keys) != 0 {
		t.Errorf("keys: %v", keys)
	}
}

func TestMCP_HighlightInvalid(t *testing.T) {
	c := testChecker(t, halfLifeLibrary, nil)
	session := mcpSession(t, c)

	result, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      "steamcheck_highlight",
		Arguments: map[string]any{"path": "", "html": "<p></p>"},
	})
	if err != nil {
		t.Fatalf("CallTool: %v", err)
	}
	if !result.IsError {
		t.Error("expected a tool error for an empty path")
	}
}
