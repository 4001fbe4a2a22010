package board

import (
	"context"
	"sync"

	"github.com/Alpaca542/Launch-Hacks-4-sub000/pkg/graph"
)

// MemoryStore keeps boards in process memory.
type MemoryStore struct {
	mu     sync.RWMutex
	boards map[string]*Board
	writes int
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{boards: make(map[string]*Board)}
}

func (s *MemoryStore) SaveNodes(ctx context.Context, boardID string, nodes []graph.Node) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	b := s.boardLocked(boardID)
	b.Nodes = append([]graph.Node(nil), nodes...)
	s.writes++
	return nil
}

func (s *MemoryStore) SaveEdges(ctx context.Context, boardID string, edges []graph.Edge) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	b := s.boardLocked(boardID)
	b.Edges = append([]graph.Edge(nil), edges...)
	s.writes++
	return nil
}

func (s *MemoryStore) LoadBoard(ctx context.Context, boardID string) (Board, error) {
	if err := ctx.Err(); err != nil {
		return Board{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.boards[boardID]
	if !ok {
		return Board{}, ErrBoardNotFound
	}
	return Board{
		ID:    b.ID,
		Nodes: append([]graph.Node(nil), b.Nodes...),
		Edges: append([]graph.Edge(nil), b.Edges...),
	}, nil
}

// Writes counts SaveNodes and SaveEdges calls.
func (s *MemoryStore) Writes() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.writes
}

func (s *MemoryStore) Close() error {
	return nil
}

func (s *MemoryStore) boardLocked(id string) *Board {
	b, ok := s.boards[id]
	if !ok {
		b = &Board{ID: id}
		s.boards[id] = b
	}
	return b
}
