package board

import (
	"context"
	"errors"
	"time"

	"github.com/Alpaca542/Launch-Hacks-4-sub000/pkg/graph"
	"github.com/patrickmn/go-cache"
)

// Loader reads boards through a cache owned by the caller, so a session can
// reopen the same board without hitting the store again.
type Loader struct {
	store Store
	cache *cache.Cache
}

// NewCache builds a board cache with the given time-to-live.
func NewCache(ttl time.Duration) *cache.Cache {
	return cache.New(ttl, 2*ttl)
}

// NewLoader creates a loader over store using c
func NewLoader(store Store, c *cache.Cache) *Loader {
	return &Loader{store: store, cache: c}
}

// Load returns the board, or an empty board when it does not exist yet.
func (l *Loader) Load(ctx context.Context, boardID string) (Board, error) {
	if cached, ok := l.cache.Get(boardID); ok {
		return cached.(Board), nil
	}

	b, err := l.store.LoadBoard(ctx, boardID)
	if errors.Is(err, ErrBoardNotFound) {
		return Board{ID: boardID}, nil
	}
	if err != nil {
		return Board{}, err
	}

	l.cache.SetDefault(boardID, b)
	return b, nil
}

// Model loads a board and seeds a live graph model from it.
func (l *Loader) Model(ctx context.Context, boardID string) (*graph.Model, error) {
	b, err := l.Load(ctx, boardID)
	if err != nil {
		return nil, err
	}
	return graph.NewModel(b.Nodes, b.Edges), nil
}

// Invalidate drops a cached board, typically after it was written.
func (l *Loader) Invalidate(boardID string) {
	l.cache.Delete(boardID)
}
