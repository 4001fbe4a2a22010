package headless

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/Alpaca542/Launch-Hacks-4-sub000/pkg/board"
	"github.com/Alpaca542/Launch-Hacks-4-sub000/pkg/chat"
	"github.com/Alpaca542/Launch-Hacks-4-sub000/pkg/config"
	"github.com/Alpaca542/Launch-Hacks-4-sub000/pkg/controllers"
	"github.com/Alpaca542/Launch-Hacks-4-sub000/pkg/logger"
	"github.com/Alpaca542/Launch-Hacks-4-sub000/pkg/tokens"
	"github.com/Alpaca542/Launch-Hacks-4-sub000/pkg/transport"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
)

var log = logger.WithComponent("headless")

// SystemPrompt steers the model towards the canvas tools.
const SystemPrompt = `You help the user build a visual canvas of notes.
When an idea deserves its own card, call one of the node tools: create_knowledge_node for a single note, create_concept_map for a hub of related ideas, create_flowchart for a process.
Pass parentNodeId to attach the new node to an existing one. Keep replies short.`

// ErrEmptyPrompt rejects a headless run with nothing to send.
var ErrEmptyPrompt = errors.New("prompt cannot be empty in headless mode")

// Runner runs chat turns against a board without a UI.
type Runner struct {
	cfg       *config.Config
	workspace *Workspace
	chat      *controllers.ChatController
	output    *Output
	counter   *tokens.Counter
	verbose   bool

	tokensSent int
	tokensRecv int
}

type runnerOptions struct {
	transport transport.Transport
	store     board.Store
	output    *Output
	counter   *tokens.Counter
	verbose   bool
}

// Option configures a Runner.
type Option func(*runnerOptions)

// WithTransport replaces the transport built from config.
func WithTransport(t transport.Transport) Option {
	return func(o *runnerOptions) { o.transport = t }
}

// WithStore replaces the board store built from config.
func WithStore(s board.Store) Option {
	return func(o *runnerOptions) { o.store = s }
}

func WithOutput(out *Output) Option {
	return func(o *runnerOptions) { o.output = out }
}

// WithCounter replaces the token counter built for the configured model.
func WithCounter(c *tokens.Counter) Option {
	return func(o *runnerOptions) { o.counter = c }
}

// WithVerbose prints the arguments of every tool call.
func WithVerbose(v bool) Option {
	return func(o *runnerOptions) { o.verbose = v }
}

// NewRunner wires the board, tools, transport and controllers described by cfg.
func NewRunner(ctx context.Context, cfg *config.Config, opts ...Option) (*Runner, error) {
	o := &runnerOptions{}
	for _, opt := range opts {
		opt(o)
	}
	if o.output == nil {
		o.output = NewOutput()
	}
	if o.counter == nil {
		o.counter = tokens.NewCounter(cfg.Endpoint.Model)
	}

	t := o.transport
	if t == nil {
		var err error
		if t, err = NewTransport(cfg); err != nil {
			return nil, err
		}
	}

	store := o.store
	if store == nil {
		var err error
		if store, err = OpenStore(cfg.Board); err != nil {
			return nil, fmt.Errorf("failed to open board store: %w", err)
		}
	}

	ws, err := OpenWorkspace(ctx, cfg, store)
	if err != nil {
		store.Close()
		return nil, err
	}

	session := controllers.NewSessionController(t,
		controllers.WithExecutor(ws.Executor),
		controllers.WithStreaming(cfg.Streaming),
		controllers.WithFlushInterval(cfg.Stream.FlushInterval),
	)
	cc := controllers.NewChatControllerWithSystem(session, cfg.Endpoint.Model, SystemPrompt)
	if cfg.Tools.Enabled {
		cc.SetTools(ws.Executor.Registry().Specs(), cfg.Tools.ToolChoice)
	}

	return &Runner{
		cfg:       cfg,
		workspace: ws,
		chat:      cc,
		output:    o.output,
		counter:   o.counter,
		verbose:   o.verbose,
	}, nil
}

// NewTransport builds the transport named by cfg.Provider.
func NewTransport(cfg *config.Config) (transport.Transport, error) {
	ep := cfg.Endpoint
	client := &http.Client{Timeout: ep.Timeout}

	switch cfg.Provider {
	case "", "http":
		return transport.NewHTTPTransport(ep.URL, ep.APIKey, ep.Model, ep.Timeout), nil
	case "langchain-openai":
		opts := []openai.Option{openai.WithHTTPClient(client), openai.WithModel(ep.Model)}
		if ep.APIKey != "" {
			opts = append(opts, openai.WithToken(ep.APIKey))
		}
		if ep.URL != "" {
			opts = append(opts, openai.WithBaseURL(ep.URL))
		}
		llm, err := openai.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create OpenAI client: %w", err)
		}
		return transport.NewLangChainTransport(llm, ep.Model), nil
	case "langchain-ollama":
		opts := []ollama.Option{ollama.WithHTTPClient(client), ollama.WithModel(ep.Model)}
		if ep.URL != "" {
			opts = append(opts, ollama.WithServerURL(ep.URL))
		}
		llm, err := ollama.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create Ollama client: %w", err)
		}
		return transport.NewLangChainTransport(llm, ep.Model), nil
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Provider)
	}
}

// Run sends one prompt, prints the streamed reply and the tool outcomes, and
// returns once every tool call of the turn has finished.
func (r *Runner) Run(ctx context.Context, prompt string) (controllers.Result, error) {
	if prompt == "" {
		return controllers.Result{}, ErrEmptyPrompt
	}
	sent := r.counter.CountMessages(append(r.chat.GetHistory(), chat.NewUserMessage(prompt)))
	log.Debug("user prompt: %s (tokens: %d)", prompt, sent)

	res, outcomes, err := r.chat.SendUserMessage(ctx, prompt, r.output.Chunk)
	for _, o := range outcomes {
		if r.verbose {
			r.printArguments(o.Call.Function.Arguments)
		}
		r.output.ToolOutcome(o)
	}
	if err != nil {
		r.output.Error(fmt.Sprintf("Generation error: %v", err))
		return res, err
	}

	recv := r.counter.CountMessage(chat.NewAssistantMessageWithToolCalls(res.Text, res.ToolCalls))
	r.tokensSent += sent
	r.tokensRecv += recv

	r.output.Summary(res)
	r.output.Tokens(r.tokensSent, r.tokensRecv)
	log.Debug("turn %d complete: %d tool calls, finish %s", res.Token, len(res.ToolCalls), res.FinishReason)
	return res, nil
}

func (r *Runner) printArguments(arguments string) {
	var v any
	if err := json.Unmarshal([]byte(arguments), &v); err != nil {
		r.output.Chunk(arguments + "\n")
		return
	}
	if err := r.output.JSON(v); err != nil {
		log.Warn("could not print arguments: %v", err)
	}
}

// Workspace returns the open board.
func (r *Runner) Workspace() *Workspace {
	return r.workspace
}

// Tokens returns the tokens sent and received so far.
func (r *Runner) Tokens() (sent, received int) {
	return r.tokensSent, r.tokensRecv
}

func (r *Runner) Chat() *controllers.ChatController {
	return r.chat
}

// Cleanup revokes any running turn and closes the board.
func (r *Runner) Cleanup() error {
	r.chat.Session().Invalidate()
	r.chat.Session().Wait()
	if err := r.workspace.Close(); err != nil {
		return fmt.Errorf("failed to close board: %w", err)
	}
	return nil
}
