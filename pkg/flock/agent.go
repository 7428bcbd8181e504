package flock

import (
	"fmt"
	"iter"
	"runtime"

	"github.com/lao-tseu-is-alive/go-flock-simulation/pkg/geometry"
	"github.com/tochemey/goakt/v3/log"
)

// Group tags the scout sub-populations.
type Group uint8

const (
	GroupNone Group = iota
	GroupScoutA
	GroupScoutB
)

func (g Group) String() string {
	switch g {
	case GroupNone:
		return "none"
	case GroupScoutA:
		return "scout-a"
	case GroupScoutB:
		return "scout-b"
	default:
		return fmt.Sprintf("group(%d)", uint8(g))
	}
}

// Target is the horizontal velocity a scout is nudged toward: +1 for scout A,
// -1 for scout B and 0 for everybody else.
func (g Group) Target() float64 {
	switch g {
	case GroupScoutA:
		return 1
	case GroupScoutB:
		return -1
	default:
		return 0
	}
}

// IsScout reports whether the group receives the bias pass.
func (g Group) IsScout() bool {
	return g == GroupScoutA || g == GroupScoutB
}

// Agent is one boid. Its identity is its index in the Store.
type Agent struct {
	Pos   geometry.Vector2D
	Vel   geometry.Vector2D
	Group Group
	Bias  float64 // scout bias strength, zero for GroupNone

	// heading used when the velocity collapses to zero
	heading float64
}

// Speed returns |Vel|.
func (a Agent) Speed() float64 {
	return a.Vel.Len()
}

// Heading returns the direction of travel in radians. A stationary agent
// reports the heading it will leave along.
func (a Agent) Heading() float64 {
	if a.Vel.IsZero() {
		return a.heading
	}
	return a.Vel.Angle()
}

// Store is the fixed-size arena holding every agent plus the buffers the
// pipeline reuses between passes. It is not safe for concurrent use: the host
// calls RunBehaviorPass and Advance from a single goroutine.
type Store struct {
	cfg    Config
	agents []Agent
	width  float64
	height float64

	// pipeline buffers, sized once at construction
	snapshot []Agent
	deltas   []geometry.Vector2D
	scratch  [][]int
	index    NeighborIndex
	workers  int

	passes uint64
	ticks  uint64
	logger log.Logger
}

// Option customizes store construction.
type Option func(*options)

type options struct {
	seed   uint64
	seeded bool
	logger log.Logger
	index  NeighborIndex
}

// WithSeed makes spawn placement and group assignment reproducible.
func WithSeed(seed uint64) Option {
	return func(o *options) {
		o.seed = seed
		o.seeded = true
	}
}

// WithLogger routes construction messages to logger. The default discards them.
func WithLogger(logger log.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithNeighborIndex overrides the index selected by Config.NeighborIndex.
func WithNeighborIndex(index NeighborIndex) Option {
	return func(o *options) {
		o.index = index
	}
}

// FromAgents builds a store around an explicit population, for scripted hosts and
// tests. Agents are copied. Scout biases are normalized to the configured mode.
func FromAgents(width, height float64, cfg Config, agents []Agent, opts ...Option) (*Store, error) {
	if len(agents) == 0 {
		return nil, fmt.Errorf("%w: population must be > 0, got 0", ErrInvalidConfig)
	}
	o, err := buildOptions(width, height, cfg, opts)
	if err != nil {
		return nil, err
	}
	s := newStore(width, height, cfg, o, len(agents))
	copy(s.agents, agents)
	for i := range s.agents {
		s.agents[i].Bias = initialBias(cfg, s.agents[i].Group, s.agents[i].Bias)
	}
	return s, nil
}

func buildOptions(width, height float64, cfg Config, opts []Option) (*options, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if !finite(width) || !finite(height) || width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: world dimensions must be > 0, got %vx%v", ErrInvalidConfig, width, height)
	}
	if width <= cfg.BoidSize || height <= cfg.BoidSize {
		return nil, fmt.Errorf("%w: world %vx%v is not larger than boidSize %v",
			ErrInvalidConfig, width, height, cfg.BoidSize)
	}
	o := &options{logger: log.DiscardLogger}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

func newStore(width, height float64, cfg Config, o *options, n int) *Store {
	workers := cfg.Workers
	if workers == 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	workers = min(workers, n)

	index := o.index
	if index == nil {
		index = newIndex(cfg)
	}

	scratch := make([][]int, workers)
	for i := range scratch {
		scratch[i] = make([]int, 0, 32)
	}

	s := &Store{
		cfg:      cfg,
		agents:   make([]Agent, n),
		width:    width,
		height:   height,
		snapshot: make([]Agent, n),
		deltas:   make([]geometry.Vector2D, n),
		scratch:  scratch,
		index:    index,
		workers:  workers,
		logger:   o.logger,
	}
	for _, w := range cfg.TurnPolicyWarnings() {
		s.logger.Warnf("boundary turn policy: %s", w)
	}
	return s
}

func newIndex(cfg Config) NeighborIndex {
	if cfg.NeighborIndex == IndexAllPairs {
		return AllPairs{}
	}
	return NewGrid(max(cfg.VisualRange, cfg.ProjectedRange))
}

// initialBias returns the starting bias strength for an agent of group g.
func initialBias(cfg Config, g Group, current float64) float64 {
	if !g.IsScout() {
		return 0
	}
	if cfg.BiasMode == BiasFixed {
		return cfg.BiasValue
	}
	if current == 0 {
		current = cfg.BiasValue
	}
	return min(cfg.MaxBias, max(cfg.BiasIncrement, current))
}

// Config returns the configuration the store was built with.
func (s *Store) Config() Config { return s.cfg }

// Len returns the population size, fixed for the life of the store.
func (s *Store) Len() int { return len(s.agents) }

// World returns the dimensions used by the last pass.
func (s *Store) World() (width, height float64) { return s.width, s.height }

// Passes counts completed behavior passes.
func (s *Store) Passes() uint64 { return s.passes }

// Ticks counts integrator substeps applied so far.
func (s *Store) Ticks() uint64 { return s.ticks }

// At returns agent i. An index outside the arena means a caller broke the
// fixed-population invariant, so it panics.
func (s *Store) At(i int) Agent {
	return *s.agentAt(i)
}

func (s *Store) agentAt(i int) *Agent {
	if i < 0 || i >= len(s.agents) {
		panic(fmt.Sprintf("flock: agent %d not found in store of %d agents", i, len(s.agents)))
	}
	return &s.agents[i]
}

// All iterates over the agents in index order. The yielded values are copies.
func (s *Store) All() iter.Seq2[int, Agent] {
	return func(yield func(int, Agent) bool) {
		for i, a := range s.agents {
			if !yield(i, a) {
				return
			}
		}
	}
}

// CopyInto appends every agent to dst and returns the extended slice.
func (s *Store) CopyInto(dst []Agent) []Agent {
	return append(dst, s.agents...)
}
