package graph

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedSource struct {
	values []float64
	i      int
}

func (s *scriptedSource) Float64() float64 {
	v := s.values[s.i%len(s.values)]
	s.i++
	return v
}

func TestPlaceFirstFreeDirection(t *testing.T) {
	p := NewPositioner()

	got := p.Place(Position{}, nil)
	assert.InDelta(t, 200, got.X, 1e-9)
	assert.InDelta(t, 0, got.Y, 1e-9)

	got = p.Place(Position{X: 10, Y: 10}, []Position{{X: 210, Y: 10}})
	assert.InDelta(t, 10+200*math.Cos(math.Pi/4), got.X, 1e-9)
	assert.InDelta(t, 10+200*math.Sin(math.Pi/4), got.Y, 1e-9)
}

func TestPlaceFallsBackToRandomDirection(t *testing.T) {
	p := NewPositioner()
	p.Rand = &scriptedSource{values: []float64{0.25, 0.5}}

	var blocked []Position
	for step := 0; step < 8; step++ {
		blocked = append(blocked, offset(Position{}, float64(step)*math.Pi/4, 200))
	}

	got := p.Place(Position{}, blocked)
	assert.InDelta(t, 0, got.X, 1e-9)
	assert.InDelta(t, 250, got.Y, 1e-9)
}

func TestPlaceNeverCrowdsWhenADirectionIsFree(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	p := NewPositioner()
	p.Rand = rng

	for trial := 0; trial < 200; trial++ {
		parent := Position{X: rng.Float64()*800 - 400, Y: rng.Float64()*800 - 400}
		existing := make([]Position, rng.IntN(12))
		for i := range existing {
			existing[i] = Position{X: rng.Float64()*1200 - 600, Y: rng.Float64()*1200 - 600}
		}

		got := p.Place(parent, existing)

		onRing := math.Abs(distance(got, parent)-p.BaseOffset) < 1e-6
		anyFree := false
		for step := 0; step < 8; step++ {
			if p.clear(offset(parent, float64(step)*math.Pi/4, p.BaseOffset), existing) {
				anyFree = true
				break
			}
		}
		if !anyFree {
			continue
		}
		require.True(t, onRing)
		for _, e := range existing {
			assert.GreaterOrEqual(t, distance(got, e), p.SearchRadius)
		}
	}
}

func TestModelAppendAndSnapshot(t *testing.T) {
	m := NewModel([]Node{{ID: "root", Type: NodeTypeEditable}}, nil)

	require.NoError(t, m.AppendNode(Node{ID: "child"}))
	require.NoError(t, m.AppendEdge(Edge{ID: "e1", Source: "root", Target: "child"}))

	err := m.AppendEdge(Edge{ID: "e2", Source: "root", Target: "ghost"})
	assert.ErrorIs(t, err, ErrUnknownNode)

	err = m.AppendNode(Node{ID: "child"})
	assert.ErrorIs(t, err, ErrDuplicateNode)

	snap := m.Snapshot()
	require.Len(t, snap.Nodes, 2)
	require.Len(t, snap.Edges, 1)

	snap.Nodes[0].ID = "mutated"
	_, ok := m.Node("root")
	assert.True(t, ok, "snapshot must be a copy")

	n, e := m.Len()
	assert.Equal(t, 2, n)
	assert.Equal(t, 1, e)
}

func TestModelInsertWithEdge(t *testing.T) {
	m := NewModel([]Node{{ID: "parent", Position: Position{X: 5}}}, nil)

	node, err := m.Insert(context.Background(), func(cur Snapshot) (Node, *Edge, error) {
		parent, ok := cur.Node("parent")
		require.True(t, ok)
		n := Node{ID: "child", Position: Position{X: parent.Position.X + 1}}
		return n, &Edge{ID: "e", Source: "parent", Target: "child"}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 6.0, node.Position.X)

	snap := m.Snapshot()
	assert.Len(t, snap.Nodes, 2)
	assert.Equal(t, []Edge{{ID: "e", Source: "parent", Target: "child"}}, snap.Edges)
}

func TestModelInsertRejectsCancelledTurn(t *testing.T) {
	m := NewModel(nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	_, err := m.Insert(ctx, func(Snapshot) (Node, *Edge, error) {
		called = true
		return Node{ID: "x"}, nil, nil
	})
	assert.ErrorIs(t, err, ErrStaleTurn)
	assert.False(t, called)

	n, _ := m.Len()
	assert.Zero(t, n)
}

func TestModelInsertIsAtomic(t *testing.T) {
	m := NewModel(nil, nil)

	_, err := m.Insert(context.Background(), func(Snapshot) (Node, *Edge, error) {
		return Node{ID: "orphan"}, &Edge{ID: "e", Source: "missing", Target: "orphan"}, nil
	})
	assert.ErrorIs(t, err, ErrUnknownNode)

	planErr := errors.New("bad plan")
	_, err = m.Insert(context.Background(), func(Snapshot) (Node, *Edge, error) {
		return Node{}, nil, planErr
	})
	assert.ErrorIs(t, err, planErr)

	n, e := m.Len()
	assert.Zero(t, n)
	assert.Zero(t, e)
}

func TestModelConcurrentInserts(t *testing.T) {
	m := NewModel([]Node{{ID: "root"}}, nil)
	p := NewPositioner()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := m.Insert(context.Background(), func(cur Snapshot) (Node, *Edge, error) {
				id := string(rune('a' + i))
				pos := p.Place(Position{}, cur.Positions())
				return Node{ID: id, Position: pos}, &Edge{ID: "e" + id, Source: "root", Target: id}, nil
			})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	snap := m.Snapshot()
	assert.Len(t, snap.Nodes, 9)
	assert.Len(t, snap.Edges, 8)
}
