package board

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Alpaca542/Launch-Hacks-4-sub000/pkg/graph"
	"github.com/Alpaca542/Launch-Hacks-4-sub000/pkg/logger"
)

var log = logger.WithComponent("board")

// DefaultDebounce is the write window used when none is configured.
const DefaultDebounce = 750 * time.Millisecond

const writeTimeout = 10 * time.Second

// SnapshotFunc returns the graph state to persist. It is called when the
// write actually happens, so the latest state wins.
type SnapshotFunc func() graph.Snapshot

type pendingWrite struct {
	timer  *time.Timer
	source SnapshotFunc
}

// Persister coalesces graph changes into at most one store write per board per window.
// The first Schedule for a board opens the window; later calls inside it only
// replace the snapshot source.
type Persister struct {
	store   Store
	delay   time.Duration
	OnError func(boardID string, err error)
	OnSaved func(boardID string)

	mu      sync.Mutex
	pending map[string]*pendingWrite
	closed  bool
	wg      sync.WaitGroup
	writes  atomic.Int64
}

// NewPersister creates a debounced writer over store
func NewPersister(store Store, delay time.Duration) *Persister {
	if delay <= 0 {
		delay = DefaultDebounce
	}
	return &Persister{
		store:   store,
		delay:   delay,
		pending: make(map[string]*pendingWrite),
	}
}

// Schedule arranges for source to be written to boardID after the debounce window.
func (p *Persister) Schedule(boardID string, source SnapshotFunc) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return
	}
	if pw, ok := p.pending[boardID]; ok {
		pw.source = source
		return
	}

	pw := &pendingWrite{source: source}
	p.wg.Add(1)
	pw.timer = time.AfterFunc(p.delay, func() { p.fire(boardID, pw) })
	p.pending[boardID] = pw
}

func (p *Persister) fire(boardID string, pw *pendingWrite) {
	defer p.wg.Done()

	p.mu.Lock()
	if p.pending[boardID] == pw {
		delete(p.pending, boardID)
	}
	source := pw.source
	p.mu.Unlock()

	p.write(boardID, source)
}

// Flush writes every pending board now and waits for in-flight writes.
func (p *Persister) Flush() {
	p.mu.Lock()
	due := make(map[string]SnapshotFunc)
	for id, pw := range p.pending {
		if pw.timer.Stop() {
			due[id] = pw.source
			delete(p.pending, id)
			p.wg.Done()
		}
	}
	p.mu.Unlock()

	for id, source := range due {
		p.write(id, source)
	}
	p.wg.Wait()
}

// Close flushes and stops accepting new work.
func (p *Persister) Close() {
	p.Flush()
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
}

// Writes returns how many snapshot writes have completed.
func (p *Persister) Writes() int64 {
	return p.writes.Load()
}

func (p *Persister) write(boardID string, source SnapshotFunc) {
	snap := source()

	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	err := p.store.SaveNodes(ctx, boardID, snap.Nodes)
	if err == nil {
		err = p.store.SaveEdges(ctx, boardID, snap.Edges)
	}
	if err != nil {
		log.Error("failed to persist board %s: %v", boardID, err)
		if p.OnError != nil {
			p.OnError(boardID, err)
		}
		return
	}

	p.writes.Add(1)
	if p.OnSaved != nil {
		p.OnSaved(boardID)
	}
	log.Debug("persisted board %s (%d nodes, %d edges)", boardID, len(snap.Nodes), len(snap.Edges))
}
