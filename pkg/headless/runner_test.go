package headless

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/Alpaca542/Launch-Hacks-4-sub000/pkg/board"
	"github.com/Alpaca542/Launch-Hacks-4-sub000/pkg/config"
	"github.com/Alpaca542/Launch-Hacks-4-sub000/pkg/controllers"
	"github.com/Alpaca542/Launch-Hacks-4-sub000/pkg/graph"
	"github.com/Alpaca542/Launch-Hacks-4-sub000/pkg/testutil"
	"github.com/Alpaca542/Launch-Hacks-4-sub000/pkg/tokens"
	"github.com/Alpaca542/Launch-Hacks-4-sub000/pkg/tools"
	"github.com/Alpaca542/Launch-Hacks-4-sub000/pkg/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	return &config.Config{
		Provider:  "http",
		Streaming: true,
		Endpoint:  config.EndpointConfig{URL: "http://localhost:0", Model: "test-model"},
		Tools:     config.ToolsConfig{Enabled: true, ToolChoice: "auto"},
		Board:     config.BoardConfig{ID: "notes", Store: "memory"},
	}
}

func seededStore(t *testing.T) *board.MemoryStore {
	t.Helper()
	store := board.NewMemoryStore()
	require.NoError(t, store.SaveNodes(context.Background(), "notes", []graph.Node{{ID: "root", Type: graph.NodeTypeEditable}}))
	return store
}

func TestRunnerCreatesAndPersistsNode(t *testing.T) {
	store := seededStore(t)
	ft := testutil.NewFakeTransport(
		testutil.ChunkFrame("Mapping it out."),
		testutil.ToolCallFrame("call_1", tools.CreateConceptMap, `{"title":"Go","description":"a language","parentNodeId":"root"}`),
		testutil.CompleteFrame("Mapping it out."),
	)
	var out bytes.Buffer

	runner, err := NewRunner(context.Background(), testConfig(),
		WithCounter(&tokens.Counter{}), WithTransport(ft), WithStore(store), WithOutput(NewOutputTo(&out, false)), WithVerbose(true))
	require.NoError(t, err)

	res, err := runner.Run(context.Background(), "explain go")
	require.NoError(t, err)
	assert.Equal(t, controllers.TurnCompleted, res.State)
	assert.Equal(t, "Mapping it out.", res.Text)
	require.Len(t, res.ToolCalls, 1)

	sent, received := runner.Tokens()
	assert.Positive(t, sent)
	assert.Positive(t, received)

	text := out.String()
	assert.Contains(t, text, "[Tokens - Sent:")
	assert.Contains(t, text, "Mapping it out.")
	assert.Contains(t, text, tools.CreateConceptMap)
	assert.Contains(t, text, `"title": "Go"`)

	history := runner.Chat().GetHistory()
	require.Len(t, history, 4, "system, user, assistant, tool result")

	requests := ft.Requests()
	require.Len(t, requests, 1)
	assert.Len(t, requests[0].Tools, 3)
	assert.Equal(t, "auto", requests[0].ToolChoice)

	require.NoError(t, runner.Cleanup())

	stored, err := store.LoadBoard(context.Background(), "notes")
	require.NoError(t, err)
	require.Len(t, stored.Nodes, 2)
	assert.Equal(t, "Go", stored.Nodes[1].Data.Label)
	require.Len(t, stored.Edges, 1)
	assert.Equal(t, "root", stored.Edges[0].Source)
}

func TestRunnerWithoutTools(t *testing.T) {
	cfg := testConfig()
	cfg.Tools.Enabled = false
	ft := testutil.NewFakeTransport(testutil.CompleteFrame("plain answer"))

	runner, err := NewRunner(context.Background(), cfg,
		WithCounter(&tokens.Counter{}), WithTransport(ft), WithStore(board.NewMemoryStore()), WithOutput(NewOutputTo(&bytes.Buffer{}, false)))
	require.NoError(t, err)
	defer runner.Cleanup()

	_, err = runner.Run(context.Background(), "hi")
	require.NoError(t, err)

	requests := ft.Requests()
	require.Len(t, requests, 1)
	assert.Empty(t, requests[0].Tools)
	assert.Empty(t, requests[0].ToolChoice)
}

func TestRunnerReportsFailures(t *testing.T) {
	var out bytes.Buffer
	ft := testutil.NewFakeTransport(testutil.ChunkFrame("partial"), testutil.ErrorFrame("overloaded"))

	runner, err := NewRunner(context.Background(), testConfig(),
		WithCounter(&tokens.Counter{}), WithTransport(ft), WithStore(seededStore(t)), WithOutput(NewOutputTo(&out, false)))
	require.NoError(t, err)
	defer runner.Cleanup()

	res, err := runner.Run(context.Background(), "hi")
	require.Error(t, err)
	var serverErr *controllers.ServerError
	require.ErrorAs(t, err, &serverErr)
	assert.Equal(t, "overloaded", serverErr.Message)
	assert.Equal(t, "partial", res.Text)
	assert.Contains(t, out.String(), "Generation error")

	_, err = runner.Run(context.Background(), "")
	assert.ErrorIs(t, err, ErrEmptyPrompt)
}

func TestRunHeadlessEmptyPrompt(t *testing.T) {
	err := RunHeadless(context.Background(), testConfig(), "")
	assert.ErrorIs(t, err, ErrEmptyPrompt)
}

func TestNewTransport(t *testing.T) {
	tests := []struct {
		name     string
		provider string
		apiKey   string
		wantErr  bool
		check    func(t *testing.T, tr transport.Transport)
	}{
		{
			name:     "http",
			provider: "http",
			check: func(t *testing.T, tr transport.Transport) {
				assert.IsType(t, &transport.HTTPTransport{}, tr)
			},
		},
		{
			name:     "openai",
			provider: "langchain-openai",
			apiKey:   "sk-test",
			check: func(t *testing.T, tr transport.Transport) {
				assert.IsType(t, &transport.LangChainTransport{}, tr)
			},
		},
		{
			name:     "ollama",
			provider: "langchain-ollama",
			check: func(t *testing.T, tr transport.Transport) {
				assert.IsType(t, &transport.LangChainTransport{}, tr)
			},
		},
		{name: "unknown", provider: "carrier-pigeon", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			cfg.Provider = tt.provider
			cfg.Endpoint.APIKey = tt.apiKey

			tr, err := NewTransport(cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			tt.check(t, tr)
		})
	}
}

func TestOpenStore(t *testing.T) {
	store, err := OpenStore(config.BoardConfig{Store: "memory"})
	require.NoError(t, err)
	assert.IsType(t, &board.MemoryStore{}, store)

	dir := filepath.Join(t.TempDir(), "data")
	store, err = OpenStore(config.BoardConfig{Store: "sqlite", DataDir: dir})
	require.NoError(t, err)
	assert.IsType(t, &board.SQLiteStore{}, store)
	assert.FileExists(t, filepath.Join(dir, board.DBFileName))
	require.NoError(t, store.Close())

	_, err = OpenStore(config.BoardConfig{Store: "mongo"})
	assert.Error(t, err)
}

func TestWorkspaceUsesLayoutConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Layout = config.LayoutConfig{Default: tools.LayoutFlowchart, BaseOffset: 50, SearchRadius: 10}

	ws, err := OpenWorkspace(context.Background(), cfg, seededStore(t))
	require.NoError(t, err)
	defer ws.Close()

	assert.Equal(t, "notes", ws.BoardID)
	assert.Equal(t, tools.LayoutFlowchart, ws.Canvas.DefaultLayout)
	assert.Equal(t, 50.0, ws.Canvas.Positioner.BaseOffset)
	assert.Equal(t, 10.0, ws.Canvas.Positioner.SearchRadius)
	assert.Equal(t, graph.DefaultJitter, ws.Canvas.Positioner.Jitter)

	nodes, _ := ws.Model.Len()
	assert.Equal(t, 1, nodes)
}

func TestOutputJSON(t *testing.T) {
	var plain bytes.Buffer
	require.NoError(t, NewOutputTo(&plain, false).JSON(map[string]int{"a": 1}))
	assert.Equal(t, "{\n  \"a\": 1\n}\n", plain.String())

	var colored bytes.Buffer
	require.NoError(t, NewOutputTo(&colored, true).JSON(map[string]int{"a": 1}))
	assert.Contains(t, colored.String(), "\x1b[")
}
