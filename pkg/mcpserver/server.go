// Package mcpserver exposes the canvas tools over the Model Context Protocol,
// so external agents can draw on a board with the same validation and
// placement rules as the chat session.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"slices"

	"github.com/Alpaca542/Launch-Hacks-4-sub000/pkg/chat"
	"github.com/Alpaca542/Launch-Hacks-4-sub000/pkg/graph"
	"github.com/Alpaca542/Launch-Hacks-4-sub000/pkg/logger"
	"github.com/Alpaca542/Launch-Hacks-4-sub000/pkg/tools"
	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

var log = logger.WithComponent("mcp")

// Version is reported to MCP clients.
var Version = "dev"

// GetBoardTool returns the live board as JSON.
const GetBoardTool = "get_board"

// Server adapts a tool executor to MCP.
type Server struct {
	executor *tools.Executor
	model    *graph.Model
	tools    []server.ServerTool
}

// New builds one MCP tool per registered canvas tool plus get_board.
func New(executor *tools.Executor, model *graph.Model) *Server {
	s := &Server{executor: executor, model: model}
	for _, spec := range executor.Registry().Specs() {
		s.tools = append(s.tools, server.ServerTool{
			Tool:    toolFromSpec(spec),
			Handler: s.callHandler(spec.Function.Name),
		})
	}
	s.tools = append(s.tools, server.ServerTool{
		Tool: mcp.NewTool(GetBoardTool,
			mcp.WithDescription("Return every node and edge currently on the board as JSON"),
		),
		Handler: s.handleGetBoard,
	})
	return s
}

// Tools returns the MCP tool definitions with their handlers.
func (s *Server) Tools() []server.ServerTool {
	return s.tools
}

// MCPServer creates the protocol server with every tool registered.
func (s *Server) MCPServer() *server.MCPServer {
	srv := server.NewMCPServer(
		"canvas",
		Version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(instructions),
	)
	srv.AddTools(s.tools...)
	return srv
}

// ServeStdio serves MCP on stdin/stdout until the client disconnects.
func (s *Server) ServeStdio() error {
	log.Info("serving %d tools over stdio", len(s.tools))
	return server.ServeStdio(s.MCPServer())
}

const instructions = "Canvas tools add nodes to a visual board. " +
	"Call get_board first to learn existing node ids, then pass one as parentNodeId to link a new node to it. " +
	"Nodes are placed automatically unless create_knowledge_node is given a position."

func (s *Server) callHandler(name string) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, err := json.Marshal(req.GetArguments())
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err)), nil
		}

		call := chat.NewToolCall("mcp_"+uuid.NewString(), name, string(args))
		status, err := s.executor.Execute(ctx, call)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(status), nil
	}
}

func (s *Server) handleGetBoard(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(s.model.Snapshot(), "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to encode board: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// toolFromSpec maps a JSON-schema function spec onto mcp-go tool options.
func toolFromSpec(spec chat.ToolSpec) mcp.Tool {
	opts := []mcp.ToolOption{mcp.WithDescription(spec.Function.Description)}

	props, _ := spec.Function.Parameters["properties"].(map[string]any)
	required := map[string]bool{}
	for _, name := range stringList(spec.Function.Parameters["required"]) {
		required[name] = true
	}

	for _, name := range slices.Sorted(maps.Keys(props)) {
		prop, _ := props[name].(map[string]any)
		var popts []mcp.PropertyOption
		if desc, ok := prop["description"].(string); ok {
			popts = append(popts, mcp.Description(desc))
		}
		if required[name] {
			popts = append(popts, mcp.Required())
		}

		switch prop["type"] {
		case "integer", "number":
			if minimum, ok := prop["minimum"].(int); ok {
				popts = append(popts, mcp.Min(float64(minimum)))
			}
			opts = append(opts, mcp.WithNumber(name, popts...))
		case "object":
			if nested, ok := prop["properties"].(map[string]any); ok {
				popts = append(popts, mcp.Properties(nested))
			}
			opts = append(opts, mcp.WithObject(name, popts...))
		case "boolean":
			opts = append(opts, mcp.WithBoolean(name, popts...))
		default:
			opts = append(opts, mcp.WithString(name, popts...))
		}
	}
	return mcp.NewTool(spec.Function.Name, opts...)
}

func stringList(v any) []string {
	switch l := v.(type) {
	case []string:
		return l
	case []any:
		out := make([]string, 0, len(l))
		for _, s := range l {
			if str, ok := s.(string); ok {
				out = append(out, str)
			}
		}
		return out
	}
	return nil
}
