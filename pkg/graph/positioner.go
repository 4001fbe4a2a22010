package graph

import (
	"math"
	"math/rand/v2"
)

const (
	DefaultBaseOffset   = 200.0
	DefaultSearchRadius = 150.0
	DefaultJitter       = 100.0
)

// RandomSource supplies values in [0, 1). *rand.Rand satisfies it.
type RandomSource interface {
	Float64() float64
}

type globalSource struct{}

func (globalSource) Float64() float64 { return rand.Float64() }

// Positioner picks a free spot for a new node around its parent.
type Positioner struct {
	BaseOffset   float64
	SearchRadius float64
	Jitter       float64
	Rand         RandomSource
}

// NewPositioner returns a positioner with the default geometry
func NewPositioner() *Positioner {
	return &Positioner{
		BaseOffset:   DefaultBaseOffset,
		SearchRadius: DefaultSearchRadius,
		Jitter:       DefaultJitter,
		Rand:         globalSource{},
	}
}

// Place tries eight compass directions at BaseOffset from parent and returns
// the first one at least SearchRadius away from every existing node. When all
// eight collide it falls back to a random direction at BaseOffset plus up to
// Jitter.
func (p *Positioner) Place(parent Position, existing []Position) Position {
	for step := 0; step < 8; step++ {
		angle := float64(step) * math.Pi / 4
		candidate := offset(parent, angle, p.BaseOffset)
		if p.clear(candidate, existing) {
			return candidate
		}
	}

	src := p.Rand
	if src == nil {
		src = globalSource{}
	}
	angle := src.Float64() * 2 * math.Pi
	distance := p.BaseOffset + src.Float64()*p.Jitter
	return offset(parent, angle, distance)
}

func (p *Positioner) clear(candidate Position, existing []Position) bool {
	for _, e := range existing {
		if distance(candidate, e) < p.SearchRadius {
			return false
		}
	}
	return true
}

func offset(from Position, angle, dist float64) Position {
	return Position{
		X: from.X + dist*math.Cos(angle),
		Y: from.Y + dist*math.Sin(angle),
	}
}

func distance(a, b Position) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}
