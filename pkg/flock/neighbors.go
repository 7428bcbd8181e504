package flock

import (
	"math"
	"slices"
)

// NeighborIndex answers "which agents are within R of agent i" against one
// snapshot of positions. Implementations must return identical sets so they can
// be swapped without changing the simulation.
type NeighborIndex interface {
	// Name identifies the index in logs.
	Name() string
	// Build indexes the positions of agents. It is called once per pass, before
	// any QueryInto, and positions must not change until the next Build.
	Build(agents []Agent)
	// QueryInto appends to dst the indices j != i with distance(i, j) < radius in
	// ascending order and returns the extended slice. It only reads shared state
	// so concurrent queries are safe.
	QueryInto(dst []int, agents []Agent, i int, radius float64) []int
}

// AllPairs is the exhaustive O(n²) index. Build is a no-op.
type AllPairs struct{}

func (AllPairs) Name() string { return string(IndexAllPairs) }

func (AllPairs) Build([]Agent) {}

func (AllPairs) QueryInto(dst []int, agents []Agent, i int, radius float64) []int {
	me := agents[i].Pos
	radiusSq := radius * radius
	for j := range agents {
		if j == i {
			continue
		}
		if me.DistanceSquaredTo(agents[j].Pos) < radiusSq {
			dst = append(dst, j)
		}
	}
	return dst
}

type gridKey struct {
	x, y int
}

// Grid is a uniform spatial hash. With a cell size of at least the query radius
// only the 3x3 block around the agent's cell is scanned.
type Grid struct {
	cellSize float64
	cells    map[gridKey][]int
}

// NewGrid creates a grid with the given cell size, clamped to a minimum of 1.
func NewGrid(cellSize float64) *Grid {
	return &Grid{
		cellSize: math.Max(cellSize, 1),
		cells:    make(map[gridKey][]int),
	}
}

func (g *Grid) Name() string { return string(IndexGrid) }

// Build rehashes every agent. Cells occupied on the previous build are
// truncated so their backing arrays are reused; cells that stayed empty for a
// whole build are dropped, which keeps the map bounded as the flock wanders.
func (g *Grid) Build(agents []Agent) {
	for k, cell := range g.cells {
		if len(cell) == 0 {
			delete(g.cells, k)
			continue
		}
		g.cells[k] = cell[:0]
	}
	for i, a := range agents {
		key := g.keyOf(a.Pos.X, a.Pos.Y)
		g.cells[key] = append(g.cells[key], i)
	}
}

func (g *Grid) QueryInto(dst []int, agents []Agent, i int, radius float64) []int {
	me := agents[i].Pos
	radiusSq := radius * radius
	center := g.keyOf(me.X, me.Y)
	reach := max(1, int(math.Ceil(radius/g.cellSize)))

	start := len(dst)
	for x := center.x - reach; x <= center.x+reach; x++ {
		for y := center.y - reach; y <= center.y+reach; y++ {
			for _, j := range g.cells[gridKey{x: x, y: y}] {
				if j == i {
					continue
				}
				if me.DistanceSquaredTo(agents[j].Pos) < radiusSq {
					dst = append(dst, j)
				}
			}
		}
	}
	// index order keeps the float sums identical to AllPairs
	slices.Sort(dst[start:])
	return dst
}

func (g *Grid) keyOf(x, y float64) gridKey {
	return gridKey{
		x: int(math.Floor(x / g.cellSize)),
		y: int(math.Floor(y / g.cellSize)),
	}
}
