package mcpserver

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/Alpaca542/Launch-Hacks-4-sub000/pkg/graph"
	"github.com/Alpaca542/Launch-Hacks-4-sub000/pkg/tools"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) (*Server, *graph.Model) {
	t.Helper()
	model := graph.NewModel([]graph.Node{{ID: "root", Type: graph.NodeTypeEditable}}, nil)
	registry := tools.NewRegistry()
	require.NoError(t, tools.RegisterCanvasTools(registry, tools.NewCanvas(model, "b", nil)))
	return New(tools.NewExecutor(registry), model), model
}

func findTool(t *testing.T, s *Server, name string) server.ServerTool {
	t.Helper()
	for _, st := range s.Tools() {
		if st.Tool.Name == name {
			return st
		}
	}
	t.Fatalf("tool %s not registered", name)
	return server.ServerTool{}
}

func callTool(t *testing.T, s *Server, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args

	res, err := findTool(t, s, name).Handler(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, res)
	return res
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, res.Content)
	text, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content")
	return text.Text
}

func TestToolDefinitions(t *testing.T) {
	s, _ := newTestServer(t)
	require.Len(t, s.Tools(), 4)

	knowledge := findTool(t, s, tools.CreateKnowledgeNode).Tool
	assert.ElementsMatch(t, []string{"title", "description"}, knowledge.InputSchema.Required)
	assert.Contains(t, knowledge.InputSchema.Properties, "layout")
	assert.Contains(t, knowledge.InputSchema.Properties, "position")

	layout := knowledge.InputSchema.Properties["layout"].(map[string]any)
	assert.Equal(t, "number", layout["type"])

	conceptMap := findTool(t, s, tools.CreateConceptMap).Tool
	assert.NotContains(t, conceptMap.InputSchema.Properties, "layout")
	assert.NotEmpty(t, conceptMap.Description)

	assert.NotNil(t, s.MCPServer())
}

func TestCallCreatesNode(t *testing.T) {
	s, model := newTestServer(t)

	res := callTool(t, s, tools.CreateFlowchart, map[string]any{
		"title":        "Release",
		"description":  "build, tag, ship",
		"parentNodeId": "root",
	})
	assert.False(t, res.IsError)
	assert.Contains(t, resultText(t, res), "flowchart")

	snap := model.Snapshot()
	require.Len(t, snap.Nodes, 2)
	assert.Equal(t, tools.LayoutFlowchart, snap.Nodes[1].Data.Layout)
	require.Len(t, snap.Edges, 1)
}

func TestCallReportsErrorsAsToolResults(t *testing.T) {
	s, model := newTestServer(t)

	res := callTool(t, s, tools.CreateConceptMap, map[string]any{"description": "no title"})
	assert.True(t, res.IsError)
	assert.Contains(t, resultText(t, res), "title")

	res = callTool(t, s, tools.CreateConceptMap, map[string]any{"title": "x", "description": "", "parentNodeId": "ghost"})
	assert.True(t, res.IsError)

	nodes, _ := model.Len()
	assert.Equal(t, 1, nodes)
}

func TestGetBoard(t *testing.T) {
	s, _ := newTestServer(t)
	callTool(t, s, tools.CreateKnowledgeNode, map[string]any{"title": "K", "description": "d"})

	var snap graph.Snapshot
	require.NoError(t, json.Unmarshal([]byte(resultText(t, callTool(t, s, GetBoardTool, nil))), &snap))
	assert.Len(t, snap.Nodes, 2)
	assert.Equal(t, "K", snap.Nodes[1].Data.Label)
}
