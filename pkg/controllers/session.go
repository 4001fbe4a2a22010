package controllers

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Alpaca542/Launch-Hacks-4-sub000/pkg/chat"
	"github.com/Alpaca542/Launch-Hacks-4-sub000/pkg/graph"
	"github.com/Alpaca542/Launch-Hacks-4-sub000/pkg/logger"
	"github.com/Alpaca542/Launch-Hacks-4-sub000/pkg/stream"
	"github.com/Alpaca542/Launch-Hacks-4-sub000/pkg/tools"
	"github.com/Alpaca542/Launch-Hacks-4-sub000/pkg/transport"
	"github.com/sourcegraph/conc"
	"github.com/sourcegraph/conc/panics"
)

var log = logger.WithComponent("session")

// DefaultFlushInterval bounds how often OnChunk fires under a fast stream.
const DefaultFlushInterval = 16 * time.Millisecond

// ToolDispatcher executes one assembled tool call.
type ToolDispatcher func(ctx context.Context, call chat.ToolCall) (string, error)

// RunRequest describes one user turn.
type RunRequest struct {
	Message    string
	History    []chat.Message
	Tools      []chat.ToolSpec
	ToolChoice string
	Model      string

	// OnChunk receives text as it arrives, coalesced per flush interval.
	OnChunk func(delta string)
	// OnToolCall overrides the session's dispatcher for this turn.
	OnToolCall ToolDispatcher
}

// TurnStats describes how a turn's stream was consumed.
type TurnStats struct {
	Frames     int
	Decoded    int64
	Dropped    int64
	Chunks     int
	Deliveries int
	Duration   time.Duration
}

// Result is what a turn produced. On failure it still carries the partial
// text and every tool call already dispatched.
type Result struct {
	Token        uint64
	Text         string
	ToolCalls    []chat.ToolCall
	FinishReason string
	State        TurnState
	Stats        TurnStats
}

// ToolOutcome is the settled result of one dispatched call.
type ToolOutcome struct {
	Token     uint64
	Call      chat.ToolCall
	Status    string
	Err       error
	Discarded bool
}

// turn tracks one Run and the tool executions it started.
type turn struct {
	token  uint64
	ctx    context.Context // tool context; outlives Run until invalidated
	cancel context.CancelFunc
	stop   context.CancelFunc // ends the stream read
	wg     conc.WaitGroup
	calls  atomic.Int64 // dispatched calls not yet settled

	// guarded by SessionController.mu
	finished bool
	revoked  bool

	mu       sync.Mutex
	outcomes []ToolOutcome
}

func (t *turn) record(o ToolOutcome) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.outcomes = append(t.outcomes, o)
}

func (t *turn) revoke() {
	t.revoked = true
	t.cancel()
	t.stop()
}

// settled reports whether a finished turn has no tool call left running.
func (t *turn) settled() bool {
	return t.finished && t.calls.Load() == 0
}

// SessionController runs turns against a transport, one at a time.
type SessionController struct {
	transport     transport.Transport
	dispatch      ToolDispatcher
	streaming     bool
	flushInterval time.Duration

	mu    sync.Mutex
	state TurnState
	token uint64
	turns []*turn
}

// Option configures a SessionController.
type Option func(*SessionController)

// WithExecutor dispatches tool calls through e.
func WithExecutor(e *tools.Executor) Option {
	return func(c *SessionController) { c.dispatch = e.Execute }
}

// WithDispatcher dispatches tool calls through fn.
func WithDispatcher(fn ToolDispatcher) Option {
	return func(c *SessionController) { c.dispatch = fn }
}

// WithStreaming selects the streaming or the single-reply path.
func WithStreaming(enabled bool) Option {
	return func(c *SessionController) { c.streaming = enabled }
}

// WithFlushInterval sets the OnChunk coalescing window. Zero or less
// forwards every chunk as it arrives.
func WithFlushInterval(d time.Duration) Option {
	return func(c *SessionController) { c.flushInterval = d }
}

func NewSessionController(t transport.Transport, opts ...Option) *SessionController {
	c := &SessionController{
		transport:     t,
		streaming:     true,
		flushInterval: DefaultFlushInterval,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State returns the state of the latest turn.
func (c *SessionController) State() TurnState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Token returns the current session token.
func (c *SessionController) Token() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token
}

func (c *SessionController) current(token uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token == token
}

func (c *SessionController) setState(s TurnState) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = s
}

// Invalidate revokes every turn started so far. A running stream stops, and
// tool calls that have not yet applied their effects are discarded.
func (c *SessionController) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token++
	for _, t := range c.turns {
		t.revoke()
	}
	log.Debug("session invalidated, token now %d", c.token)
}

// Wait blocks until the tool calls of every turn whose Run has returned have
// settled, and returns their outcomes in completion order per turn. A turn
// still running stays tracked, so Invalidate can still revoke it.
func (c *SessionController) Wait() []ToolOutcome {
	c.mu.Lock()
	var done, running []*turn
	for _, t := range c.turns {
		if t.finished {
			done = append(done, t)
		} else {
			running = append(running, t)
		}
	}
	c.turns = running
	c.mu.Unlock()

	var out []ToolOutcome
	for _, t := range done {
		t.wg.Wait()
		t.mu.Lock()
		out = append(out, t.outcomes...)
		t.mu.Unlock()
	}
	return out
}

// begin claims the session for a new turn.
func (c *SessionController) begin(ctx context.Context) (*turn, context.Context, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.InFlight() {
		return nil, nil, ErrTurnInFlight
	}

	c.token++
	kept := c.turns[:0]
	for _, prev := range c.turns {
		if !prev.revoked {
			prev.revoke()
		}
		// Superseded turns with nothing left running are forgotten, outcomes included.
		if !prev.settled() {
			kept = append(kept, prev)
		}
	}
	c.turns = kept

	toolCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	streamCtx, stop := context.WithCancel(ctx)
	t := &turn{token: c.token, ctx: toolCtx, cancel: cancel, stop: stop}
	c.turns = append(c.turns, t)
	c.state = TurnSending
	return t, streamCtx, nil
}

// end records the final state of t and releases the session.
func (c *SessionController) end(t *turn, s TurnState) {
	c.mu.Lock()
	defer c.mu.Unlock()
	t.finished = true
	c.state = s
}

// Run executes one turn and returns once the response is complete. Tool
// calls run concurrently with the read loop and may still be executing when
// Run returns; use Wait to join them.
func (c *SessionController) Run(ctx context.Context, req RunRequest) (res Result, err error) {
	if strings.TrimSpace(req.Message) == "" {
		return Result{}, ErrEmptyMessage
	}

	t, streamCtx, err := c.begin(ctx)
	if err != nil {
		log.Warn("rejecting turn: %v", err)
		return Result{}, err
	}
	defer t.stop()

	ended := false
	defer func() {
		if !ended {
			// A panic in OnChunk or the transport must not leave the session held.
			c.end(t, TurnFailed)
		}
	}()

	r := &runner{
		c:        c,
		t:        t,
		req:      req,
		dispatch: req.OnToolCall,
		started:  time.Now(),
		decoder:  stream.NewDecoder(),
		asm:      stream.NewToolCallAssembler(),
		ids:      make(map[string]string),
		open:     make(map[string]int),
	}
	if r.dispatch == nil {
		r.dispatch = c.dispatch
	}

	tr := transport.Request{
		Message:          req.Message,
		Messages:         req.History,
		Model:            req.Model,
		Tools:            req.Tools,
		AcceptsStreaming: c.streaming,
	}
	if len(req.Tools) > 0 {
		tr.ToolChoice = req.ToolChoice
	}

	log.Info("turn %d started (streaming=%t, tools=%d)", t.token, c.streaming, len(req.Tools))
	if c.streaming {
		err = r.stream(streamCtx, tr)
	} else {
		err = r.once(streamCtx, tr)
	}
	res, err = r.finish(err)
	ended = true
	return res, err
}

// runner holds the per-turn read state. It is only touched by Run's goroutine.
type runner struct {
	c        *SessionController
	t        *turn
	req      RunRequest
	dispatch ToolDispatcher
	started  time.Time

	decoder *stream.Decoder
	asm     *stream.ToolCallAssembler

	text     strings.Builder
	pending  strings.Builder
	calls    []chat.ToolCall
	ids      map[string]string // forwarded call id -> content key
	open     map[string]int    // forwarded calls per content key not yet matched by Complete
	reason   string
	stats    TurnStats
	complete bool
}

func (r *runner) stream(ctx context.Context, req transport.Request) error {
	s, err := r.c.transport.Open(ctx, req)
	if err != nil {
		return err
	}
	defer s.Close()

	r.c.setState(TurnStreaming)

	var tick <-chan time.Time
	if r.c.flushInterval > 0 {
		ticker := time.NewTicker(r.c.flushInterval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case f, ok := <-s.Frames:
			if !ok {
				return r.interrupted(ctx)
			}
			if f.Err != nil {
				if ctxErr := r.interrupted(ctx); ctxErr != nil {
					return ctxErr
				}
				return f.Err
			}
			r.stats.Frames++
			ev, ok := r.decoder.Decode(f.Data)
			if !ok {
				continue
			}
			done, err := r.handle(ev)
			if done || err != nil {
				return err
			}
		case <-tick:
			r.flush()
		case <-ctx.Done():
			return r.interrupted(ctx)
		}
	}
}

// interrupted maps an ended context to the error the turn should fail with.
func (r *runner) interrupted(ctx context.Context) error {
	if ctx.Err() == nil {
		return nil
	}
	if !r.c.current(r.t.token) {
		return ErrTurnInvalidated
	}
	return ctx.Err()
}

func (r *runner) handle(ev stream.Event) (bool, error) {
	switch e := ev.(type) {
	case stream.TextChunk:
		r.appendText(e.Content)
		if r.c.flushInterval <= 0 {
			r.flush()
		}
	case stream.Complete:
		r.completeWith(e.Response, e.ToolCalls, e.FinishReason)
		return true, nil
	case stream.ErrorEvent:
		return true, &ServerError{Message: e.Message}
	default:
		if call, ok := r.asm.Observe(ev); ok {
			r.forward(call)
		}
	}
	return false, nil
}

func (r *runner) once(ctx context.Context, req transport.Request) error {
	res, err := r.c.transport.OpenOnce(ctx, req)
	if err != nil {
		if ctxErr := r.interrupted(ctx); ctxErr != nil {
			return ctxErr
		}
		return err
	}
	r.completeWith(res.Response, res.ToolCalls, res.FinishReason)
	return nil
}

func (r *runner) appendText(s string) {
	if s == "" {
		return
	}
	r.stats.Chunks++
	r.text.WriteString(s)
	r.pending.WriteString(s)
}

func (r *runner) flush() {
	if r.pending.Len() == 0 {
		return
	}
	delta := r.pending.String()
	r.pending.Reset()
	if r.req.OnChunk != nil {
		r.stats.Deliveries++
		r.req.OnChunk(delta)
	}
}

// completeWith settles the turn from a complete frame or single reply. Calls
// it lists that were never forwarded are dispatched now, after the ones
// already forwarded. Each forwarded call absorbs at most one entry: first by
// id, then by name and arguments for entries with an unknown or missing id.
func (r *runner) completeWith(response string, calls []chat.ToolCall, reason string) {
	if r.text.Len() == 0 {
		r.appendText(response)
	}

	matched := make([]bool, len(calls))
	byID := make(map[string]bool)
	for i, call := range calls {
		key, ok := r.ids[call.ID]
		if call.ID == "" || !ok || byID[call.ID] {
			continue
		}
		byID[call.ID] = true
		matched[i] = true
		r.open[key]--
	}
	for i, call := range calls {
		if matched[i] {
			continue
		}
		key := contentKey(call)
		if r.open[key] > 0 {
			r.open[key]--
			continue
		}
		if _, taken := r.ids[call.ID]; call.ID == "" || taken {
			call.ID = r.newID()
		}
		r.forward(call)
	}
	if reason == "" {
		reason = "stop"
	}
	r.reason = reason
	r.complete = true
}

// newID returns an id no call of this turn uses. It shares the assembler's
// sequence so streamed and completed calls without ids never collide.
func (r *runner) newID() string {
	for {
		id := r.asm.SyntheticID()
		if _, taken := r.ids[id]; !taken {
			return id
		}
	}
}

// contentKey identifies a call by what it does, for complete frames that
// omit or renumber ids.
func contentKey(call chat.ToolCall) string {
	return call.Function.Name + "\x00" + call.Function.Arguments
}

// forward dispatches call without waiting for it.
func (r *runner) forward(call chat.ToolCall) {
	key := contentKey(call)
	if _, dup := r.ids[call.ID]; call.ID == "" || dup {
		call.ID = r.newID()
	}
	r.ids[call.ID] = key
	r.open[key]++
	r.calls = append(r.calls, call)

	t, dispatch := r.t, r.dispatch
	if dispatch == nil {
		log.Debug("turn %d: no dispatcher for %s", t.token, call.Function.Name)
		return
	}
	if !r.c.current(t.token) {
		t.record(ToolOutcome{Token: t.token, Call: call, Status: tools.StatusDiscarded, Discarded: true})
		return
	}

	t.calls.Add(1)
	t.wg.Go(func() {
		defer t.calls.Add(-1)
		var status string
		var err error

		var pc panics.Catcher
		pc.Try(func() { status, err = dispatch(t.ctx, call) })
		if rec := pc.Recovered(); rec != nil {
			err = rec.AsError()
		}

		outcome := ToolOutcome{Token: t.token, Call: call, Status: status, Err: err}
		outcome.Discarded = status == tools.StatusDiscarded || errors.Is(err, graph.ErrStaleTurn)
		if err != nil {
			log.Warn("turn %d: tool call %s (%s) failed: %v", t.token, call.ID, call.Function.Name, err)
		}
		t.record(outcome)
	})
}

func (r *runner) finish(err error) (Result, error) {
	r.flush()

	decoded, dropped := r.decoder.Stats()
	r.stats.Decoded, r.stats.Dropped = decoded, dropped
	r.stats.Duration = time.Since(r.started)

	res := Result{
		Token:        r.t.token,
		Text:         r.text.String(),
		ToolCalls:    r.calls,
		FinishReason: r.reason,
	}

	if pending := r.asm.Pending(); len(pending) > 0 {
		log.Warn("turn %d ended with %d unfinished tool calls", r.t.token, len(pending))
	}

	if err == nil && !r.complete {
		res.FinishReason = "eof"
	}

	if err != nil {
		res.State = TurnFailed
		if res.FinishReason == "" {
			res.FinishReason = "error"
		}
		log.Error("turn %d failed after %d frames: %v", r.t.token, r.stats.Frames, err)
	} else {
		res.State = TurnCompleted
		log.Info("turn %d completed: %d chars, %d tool calls, %d dropped frames",
			r.t.token, len(res.Text), len(res.ToolCalls), dropped)
	}
	res.Stats = r.stats

	r.c.end(r.t, res.State)
	return res, err
}
