package graph

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// NodeTypeEditable is the node type the canvas renders as a draggable, editable card.
const NodeTypeEditable = "draggableEditable"

var (
	// ErrStaleTurn is returned when a mutation belongs to a turn that has been superseded.
	ErrStaleTurn = errors.New("graph: turn is no longer current")
	// ErrUnknownNode is returned when an edge or parent references a node that does not exist.
	ErrUnknownNode = errors.New("graph: unknown node")
	// ErrDuplicateNode is returned when a node id is already present.
	ErrDuplicateNode = errors.New("graph: duplicate node id")
)

type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// NodeData is the payload rendered on a canvas card.
type NodeData struct {
	Label       string `json:"label"`
	Description string `json:"description,omitempty"`
	Layout      int    `json:"layout"`
	ParentID    string `json:"parentId,omitempty"`
}

type Node struct {
	ID       string   `json:"id"`
	Type     string   `json:"type"`
	Position Position `json:"position"`
	Data     NodeData `json:"data"`
}

type Edge struct {
	ID     string `json:"id"`
	Source string `json:"source"`
	Target string `json:"target"`
}

// Snapshot is an immutable copy of the graph at one instant.
type Snapshot struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// Node looks up a node by id.
func (s Snapshot) Node(id string) (Node, bool) {
	for _, n := range s.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return Node{}, false
}

// Positions lists every node position in insertion order.
func (s Snapshot) Positions() []Position {
	out := make([]Position, len(s.Nodes))
	for i, n := range s.Nodes {
		out[i] = n.Position
	}
	return out
}

// Plan builds a node and an optional edge against the current graph. It runs
// under the model lock, so it must not call back into the model.
type Plan func(current Snapshot) (Node, *Edge, error)

// Model is the live, append-only node/edge graph shared by every tool dispatch.
type Model struct {
	mu    sync.RWMutex
	nodes []Node
	edges []Edge
	index map[string]int
}

// NewModel creates a model seeded with existing nodes and edges
func NewModel(nodes []Node, edges []Edge) *Model {
	m := &Model{index: make(map[string]int)}
	for _, n := range nodes {
		m.index[n.ID] = len(m.nodes)
		m.nodes = append(m.nodes, n)
	}
	m.edges = append(m.edges, edges...)
	return m
}

// AppendNode adds a node
func (m *Model) AppendNode(n Node) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.appendNodeLocked(n)
}

// AppendEdge adds an edge between two existing nodes
func (m *Model) AppendEdge(e Edge) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.appendEdgeLocked(e)
}

// Insert applies a plan atomically. The context is checked under the lock, so
// once a turn is cancelled none of its pending inserts can land.
func (m *Model) Insert(ctx context.Context, plan Plan) (Node, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if ctx.Err() != nil {
		return Node{}, ErrStaleTurn
	}

	node, edge, err := plan(m.snapshotLocked())
	if err != nil {
		return Node{}, err
	}

	if edge != nil {
		if err := m.checkEdgeLocked(*edge, node.ID); err != nil {
			return Node{}, err
		}
	}
	if err := m.appendNodeLocked(node); err != nil {
		return Node{}, err
	}
	if edge != nil {
		m.edges = append(m.edges, *edge)
	}
	return node, nil
}

// Snapshot returns a copy of the graph
func (m *Model) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshotLocked()
}

// Node looks up a node by id
func (m *Model) Node(id string) (Node, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	i, ok := m.index[id]
	if !ok {
		return Node{}, false
	}
	return m.nodes[i], true
}

// Len returns the node and edge counts
func (m *Model) Len() (nodes, edges int) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.nodes), len(m.edges)
}

func (m *Model) snapshotLocked() Snapshot {
	snap := Snapshot{
		Nodes: make([]Node, len(m.nodes)),
		Edges: make([]Edge, len(m.edges)),
	}
	copy(snap.Nodes, m.nodes)
	copy(snap.Edges, m.edges)
	return snap
}

func (m *Model) appendNodeLocked(n Node) error {
	if _, exists := m.index[n.ID]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateNode, n.ID)
	}
	m.index[n.ID] = len(m.nodes)
	m.nodes = append(m.nodes, n)
	return nil
}

func (m *Model) appendEdgeLocked(e Edge) error {
	if err := m.checkEdgeLocked(e, ""); err != nil {
		return err
	}
	m.edges = append(m.edges, e)
	return nil
}

// checkEdgeLocked verifies both endpoints exist. pending names a node that is
// about to be inserted alongside the edge.
func (m *Model) checkEdgeLocked(e Edge, pending string) error {
	for _, id := range []string{e.Source, e.Target} {
		if id == pending {
			continue
		}
		if _, ok := m.index[id]; !ok {
			return fmt.Errorf("%w: %s", ErrUnknownNode, id)
		}
	}
	return nil
}
