package tools

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/Alpaca542/Launch-Hacks-4-sub000/pkg/chat"
	"github.com/Alpaca542/Launch-Hacks-4-sub000/pkg/graph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type echoHandler struct{ name string }

func (h echoHandler) Name() string { return h.name }
func (h echoHandler) Spec() chat.ToolSpec {
	return chat.NewFunctionSpec(h.name, "echo", map[string]any{"type": "object"})
}
func (h echoHandler) Handle(_ context.Context, args string) (string, error) { return args, nil }

func TestRegistryRegisterAndGet(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(echoHandler{name: "b"}))
	require.NoError(t, r.Register(echoHandler{name: "a"}))

	err := r.Register(echoHandler{name: "a"})
	assert.ErrorIs(t, err, ErrToolExists)
	assert.Error(t, r.Register(nil))

	h, err := r.Get("a")
	require.NoError(t, err)
	assert.Equal(t, "a", h.Name())

	_, err = r.Get("zzz")
	var unknown *UnknownToolError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "zzz", unknown.Name)

	assert.Equal(t, []string{"b", "a"}, r.Names())
}

func TestRegistryConcurrentAccess(t *testing.T) {
	r := NewRegistry()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			_ = r.Register(echoHandler{name: fmt.Sprintf("tool-%d", i)})
		}(i)
		go func() {
			defer wg.Done()
			_ = r.Specs()
		}()
	}
	wg.Wait()
	assert.Len(t, r.Names(), 20)
}

func TestCanvasToolSpecs(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, RegisterCanvasTools(r, NewCanvas(graph.NewModel(nil, nil), "b", nil)))

	specs := r.Specs()
	require.Len(t, specs, 3)
	assert.Equal(t, CreateKnowledgeNode, specs[0].Function.Name)
	assert.Equal(t, CreateConceptMap, specs[1].Function.Name)
	assert.Equal(t, CreateFlowchart, specs[2].Function.Name)

	props := specs[0].Function.Parameters["properties"].(map[string]any)
	assert.Contains(t, props, "layout")
	assert.Contains(t, props, "position")
	assert.Contains(t, props, "parentNodeId")

	props = specs[1].Function.Parameters["properties"].(map[string]any)
	assert.NotContains(t, props, "layout")
	assert.Equal(t, []string{"title", "description"}, specs[1].Function.Parameters["required"])

	llmTools := r.LLMTools()
	require.Len(t, llmTools, 3)
	assert.Equal(t, "function", llmTools[2].Type)
	assert.Equal(t, CreateFlowchart, llmTools[2].Function.Name)
	assert.NotNil(t, llmTools[2].Function.Parameters)
}

func TestErrorMessagesAndUnwrap(t *testing.T) {
	cause := errors.New("unexpected end of JSON input")
	argErr := &ToolArgumentError{Tool: "create_flowchart", Message: "arguments are not valid JSON", Cause: cause}
	assert.Equal(t, "create_flowchart: invalid arguments: arguments are not valid JSON: unexpected end of JSON input", argErr.Error())
	assert.ErrorIs(t, argErr, cause)

	execErr := &ExecutionError{Tool: "create_flowchart", Operation: "insert node", Cause: graph.ErrStaleTurn}
	assert.ErrorIs(t, execErr, graph.ErrStaleTurn)
	assert.Contains(t, execErr.Error(), "insert node failed")

	assert.False(t, IsUnknownTool(argErr))
	assert.True(t, IsArgumentError(fmt.Errorf("wrapped: %w", argErr)))
}

func TestExecutorConvertsExecutionErrors(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(failingHandler{}))

	status, err := NewExecutor(r).Execute(context.Background(), chat.NewToolCall("c", "broken", "{}"))
	require.NoError(t, err)
	assert.Contains(t, status, "failed")
	assert.Contains(t, status, "disk full")
}

type failingHandler struct{}

func (failingHandler) Name() string        { return "broken" }
func (failingHandler) Spec() chat.ToolSpec { return chat.ToolSpec{} }
func (failingHandler) Handle(context.Context, string) (string, error) {
	return "", &ExecutionError{Tool: "broken", Operation: "save", Cause: errors.New("disk full")}
}
