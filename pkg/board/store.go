// Package board persists canvas boards: the nodes and edges a user sees.
//
// The pipeline only ever writes whole snapshots. SaveNodes and SaveEdges
// replace the stored lists for a board, which makes repeated debounced
// writes idempotent.
package board

import (
	"context"
	"errors"

	"github.com/Alpaca542/Launch-Hacks-4-sub000/pkg/graph"
)

// ErrBoardNotFound is returned by LoadBoard for an unknown board id.
var ErrBoardNotFound = errors.New("board: not found")

// Board is one stored canvas.
type Board struct {
	ID    string       `json:"id"`
	Nodes []graph.Node `json:"nodes"`
	Edges []graph.Edge `json:"edges"`
}

// Store is the document store collaborator.
type Store interface {
	SaveNodes(ctx context.Context, boardID string, nodes []graph.Node) error
	SaveEdges(ctx context.Context, boardID string, edges []graph.Edge) error
	LoadBoard(ctx context.Context, boardID string) (Board, error)
	Close() error
}
