package flock

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/lao-tseu-is-alive/go-flock-simulation/pkg/geometry"
)

const tolerance = 1e-9

func mustFromAgents(t *testing.T, width, height float64, cfg Config, agents []Agent) *Store {
	t.Helper()
	s, err := FromAgents(width, height, cfg, agents)
	if err != nil {
		t.Fatalf("FromAgents() error = %v", err)
	}
	return s
}

func TestSeparation_PushesApart(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ProjectedRange = 8
	cfg.AvoidFactor = 0.05

	s := mustFromAgents(t, 100, 100, cfg, []Agent{
		{Pos: geometry.Vector2D{X: 0, Y: 0}},
		{Pos: geometry.Vector2D{X: 5, Y: 0}},
	})
	s.index.Build(s.agents)
	s.separation()

	want := []geometry.Vector2D{{X: -0.25, Y: 0}, {X: 0.25, Y: 0}}
	for i, w := range want {
		if got := s.At(i).Vel; !got.EqWithin(w, 1e-12) {
			t.Errorf("agent %d velocity = %v; want %v", i, got, w)
		}
	}
}

func TestSeparation_IgnoresAgentsOutsideProjectedRange(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ProjectedRange = 8

	s := mustFromAgents(t, 100, 100, cfg, []Agent{
		{Pos: geometry.Vector2D{X: 0, Y: 0}, Vel: geometry.Vector2D{X: 1, Y: 0}},
		{Pos: geometry.Vector2D{X: 8, Y: 0}},
	})
	s.index.Build(s.agents)
	s.separation()

	if got := s.At(0).Vel; !got.Eq(geometry.Vector2D{X: 1, Y: 0}) {
		t.Errorf("velocity = %v; want (1, 0), a neighbor at exactly the range is not close", got)
	}
}

func TestAlignmentAndCohesion_IsolatedAgentUnchanged(t *testing.T) {
	cfg := DefaultConfig()
	agents := []Agent{
		{Pos: geometry.Vector2D{X: 50, Y: 50}, Vel: geometry.Vector2D{X: 1, Y: 2}},
		{Pos: geometry.Vector2D{X: 500, Y: 500}, Vel: geometry.Vector2D{X: -3, Y: 0}},
	}
	s := mustFromAgents(t, 1000, 1000, cfg, agents)
	s.index.Build(s.agents)
	s.alignment()
	s.cohesion()

	for i, a := range agents {
		if got := s.At(i).Vel; got != a.Vel {
			t.Errorf("agent %d velocity = %v; want unchanged %v", i, got, a.Vel)
		}
	}
}

func TestAlignment_ReadsSnapshotOnly(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MatchingFactor = 0.5

	s := mustFromAgents(t, 100, 100, cfg, []Agent{
		{Pos: geometry.Vector2D{X: 0, Y: 0}, Vel: geometry.Vector2D{X: 0, Y: 0}},
		{Pos: geometry.Vector2D{X: 5, Y: 0}, Vel: geometry.Vector2D{X: 2, Y: 0}},
	})
	s.index.Build(s.agents)
	s.alignment()

	// agent 1 must see agent 0's velocity from before the pass (0), not the
	// already updated (1) which would give 1.5
	want := geometry.Vector2D{X: 1, Y: 0}
	for i := range 2 {
		if got := s.At(i).Vel; !got.Eq(want) {
			t.Errorf("agent %d velocity = %v; want %v", i, got, want)
		}
	}
}

func TestCohesion_PullsTowardCentroid(t *testing.T) {
	cfg := DefaultConfig()
	cfg.CenteringFactor = 0.1

	s := mustFromAgents(t, 100, 100, cfg, []Agent{
		{Pos: geometry.Vector2D{X: 0, Y: 0}},
		{Pos: geometry.Vector2D{X: 10, Y: 0}},
		{Pos: geometry.Vector2D{X: 0, Y: 10}},
	})
	s.index.Build(s.agents)
	s.cohesion()

	want := geometry.Vector2D{X: 0.5, Y: 0.5}
	if got := s.At(0).Vel; !got.EqWithin(want, 1e-12) {
		t.Errorf("agent 0 velocity = %v; want %v", got, want)
	}
}

func TestTurnAtBoundary(t *testing.T) {
	cfg := DefaultConfig() // boidSize 32, margin 100, turnFactor 0.2
	// inner box before turning is [116, 884] x [116, 584]
	tests := []struct {
		name string
		pos  geometry.Vector2D
		want geometry.Vector2D
	}{
		{"Center untouched", geometry.Vector2D{X: 500, Y: 300}, geometry.Vector2D{X: 0, Y: 0}},
		{"Left edge", geometry.Vector2D{X: 20, Y: 300}, geometry.Vector2D{X: 0.2, Y: 0}},
		{"Right edge", geometry.Vector2D{X: 890, Y: 300}, geometry.Vector2D{X: -0.2, Y: 0}},
		{"Low y", geometry.Vector2D{X: 500, Y: 100}, geometry.Vector2D{X: 0, Y: 0.2}},
		{"High y corner", geometry.Vector2D{X: 890, Y: 590}, geometry.Vector2D{X: -0.2, Y: -0.2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := mustFromAgents(t, 1000, 700, cfg, []Agent{{Pos: tt.pos}})
			s.turnAtBoundary()
			if got := s.At(0).Vel; !got.Eq(tt.want) {
				t.Errorf("velocity at %v = %v; want %v", tt.pos, got, tt.want)
			}
		})
	}

	t.Run("Clamp policy does not steer", func(t *testing.T) {
		clamp := cfg
		clamp.Boundary = BoundaryClamp
		s := mustFromAgents(t, 1000, 700, clamp, []Agent{{Pos: geometry.Vector2D{X: 20, Y: 20}}})
		s.turnAtBoundary()
		if got := s.At(0).Vel; !got.Eq(geometry.Zero) {
			t.Errorf("velocity = %v; want (0, 0)", got)
		}
	})
}

func TestSteerScouts_Fixed(t *testing.T) {
	cfg := DefaultConfig() // fixed bias 0.001
	s := mustFromAgents(t, 100, 100, cfg, []Agent{
		{Vel: geometry.Vector2D{X: 2, Y: 1}, Group: GroupScoutB},
		{Vel: geometry.Vector2D{X: 2, Y: 1}, Group: GroupScoutA},
		{Vel: geometry.Vector2D{X: 2, Y: 1}, Group: GroupNone},
	})
	s.steerScouts()

	want := []float64{0.999*2 - 0.001, 0.999*2 + 0.001, 2}
	for i, w := range want {
		a := s.At(i)
		if !floatNear(a.Vel.X, w) || a.Vel.Y != 1 {
			t.Errorf("agent %d (%s) velocity = %v; want (%v, 1)", i, a.Group, a.Vel, w)
		}
	}
	if got := s.At(0).Bias; got != cfg.BiasValue {
		t.Errorf("fixed bias changed to %v; want %v", got, cfg.BiasValue)
	}
}

func TestSteerScouts_AdaptiveRelaxesWhileFighting(t *testing.T) {
	cfg := DefaultConfig()
	cfg.BiasMode = BiasAdaptive
	cfg.BiasValue = 0.01
	cfg.BiasIncrement = 0.01
	cfg.MaxBias = 0.5

	s := mustFromAgents(t, 100, 100, cfg, []Agent{
		{Vel: geometry.Vector2D{X: -2, Y: 0}, Group: GroupScoutA, Bias: 0.05},
		{Vel: geometry.Vector2D{X: -2, Y: 0}, Group: GroupScoutA, Bias: 0.01},
	})
	s.steerScouts()

	if got := s.At(0).Bias; !floatNear(got, 0.04) {
		t.Errorf("bias = %v; want 0.04", got)
	}
	if got := s.At(1).Bias; got != cfg.BiasIncrement {
		t.Errorf("bias = %v; want floor %v", got, cfg.BiasIncrement)
	}
}

func TestRunBehaviorPass_AdaptiveBiasConverges(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Boundary = BoundaryClamp
	cfg.BiasMode = BiasAdaptive
	cfg.BiasValue = 0.01
	cfg.BiasIncrement = 0.01
	cfg.MaxBias = 0.5
	cfg.MinSpeed = 0
	cfg.MaxSpeed = 10

	s := mustFromAgents(t, 1000, 1000, cfg, []Agent{
		{Pos: geometry.Vector2D{X: 500, Y: 500}, Vel: geometry.Vector2D{X: 2, Y: 1}, Group: GroupScoutA},
	})

	prev := s.At(0).Bias
	for pass := range 200 {
		s.RunBehaviorPass(1000, 1000)
		a := s.At(0)
		if a.Bias < prev {
			t.Fatalf("pass %d: bias decreased from %v to %v", pass, prev, a.Bias)
		}
		if a.Vel.X <= 0 {
			t.Fatalf("pass %d: velocity.x = %v; want > 0", pass, a.Vel.X)
		}
		prev = a.Bias
	}

	a := s.At(0)
	if a.Bias != cfg.MaxBias {
		t.Errorf("bias = %v; want %v", a.Bias, cfg.MaxBias)
	}
	if !floatNear(a.Vel.X, 1) {
		t.Errorf("velocity.x = %v; want 1", a.Vel.X)
	}
}

func TestRunBehaviorPass_SpeedBound(t *testing.T) {
	for _, policy := range []BoundaryPolicy{BoundaryTurn, BoundaryClamp} {
		t.Run(string(policy), func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Boundary = policy
			s, err := Initialize(300, 800, 600, cfg, WithSeed(7))
			if err != nil {
				t.Fatalf("Initialize() error = %v", err)
			}

			for frame := range 100 {
				s.RunBehaviorPass(800, 600)
				for i, a := range s.All() {
					if speed := a.Speed(); speed < cfg.MinSpeed-tolerance || speed > cfg.MaxSpeed+tolerance {
						t.Fatalf("frame %d agent %d: speed %v outside [%v, %v]", frame, i, speed, cfg.MinSpeed, cfg.MaxSpeed)
					}
				}
				s.Advance(2)
			}
		})
	}
}

func TestRunBehaviorPass_ZeroVelocityFallback(t *testing.T) {
	cfg := DefaultConfig()
	s := mustFromAgents(t, 1000, 1000, cfg, []Agent{{Pos: geometry.Vector2D{X: 500, Y: 500}}})
	s.RunBehaviorPass(1000, 1000)

	want := geometry.Vector2D{X: cfg.MinSpeed, Y: 0}
	if got := s.At(0).Vel; !got.Eq(want) {
		t.Errorf("velocity = %v; want fallback %v", got, want)
	}
}

func TestRunBehaviorPass_OrderIndependence(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Boundary = BoundaryClamp
	cfg.Workers = 1
	const width, height = 400.0, 300.0

	s, err := Initialize(150, width, height, cfg, WithSeed(11))
	if err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	for range 3 {
		s.RunBehaviorPass(width, height)
		s.Advance(1)
	}

	agents := s.CopyInto(nil)
	perm := rand.New(rand.NewPCG(1, 2)).Perm(len(agents))
	permuted := make([]Agent, len(agents))
	for k, from := range perm {
		permuted[k] = agents[from]
	}
	p := mustFromAgents(t, width, height, cfg, permuted)

	s.RunBehaviorPass(width, height)
	p.RunBehaviorPass(width, height)

	for k, from := range perm {
		got, want := p.At(k).Vel, s.At(from).Vel
		if !got.EqWithin(want, tolerance) {
			t.Errorf("agent %d (permuted to %d): velocity %v; want %v", from, k, got, want)
		}
	}
}

func TestRunBehaviorPass_ParallelMatchesSerial(t *testing.T) {
	serialCfg := DefaultConfig()
	serialCfg.Workers = 1
	parallelCfg := serialCfg
	parallelCfg.Workers = 4

	serial, err := Initialize(500, 600, 600, serialCfg, WithSeed(3))
	if err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	parallel, err := Initialize(500, 600, 600, parallelCfg, WithSeed(3))
	if err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}

	for range 20 {
		serial.RunBehaviorPass(600, 600)
		parallel.RunBehaviorPass(600, 600)
		serial.Advance(2)
		parallel.Advance(2)
	}
	for i := range serial.Len() {
		if got, want := parallel.At(i), serial.At(i); got != want {
			t.Fatalf("agent %d: parallel %+v; serial %+v", i, got, want)
		}
	}
}

func TestRunBehaviorPass_KeepsWorldOnInvalidDimensions(t *testing.T) {
	s := mustFromAgents(t, 800, 600, DefaultConfig(), []Agent{{Pos: geometry.Vector2D{X: 400, Y: 300}}})
	s.RunBehaviorPass(0, -1)
	if w, h := s.World(); w != 800 || h != 600 {
		t.Errorf("World() = %vx%v; want 800x600", w, h)
	}
	s.RunBehaviorPass(1024, 768)
	if w, h := s.World(); w != 1024 || h != 768 {
		t.Errorf("World() = %vx%v; want 1024x768", w, h)
	}
	if got := s.Passes(); got != 2 {
		t.Errorf("Passes() = %d; want 2", got)
	}
}

func floatNear(a, b float64) bool {
	return math.Abs(a-b) < 1e-6
}

func BenchmarkRunBehaviorPass(b *testing.B) {
	for _, kind := range []IndexKind{IndexGrid, IndexAllPairs} {
		b.Run(string(kind), func(b *testing.B) {
			cfg := DefaultConfig()
			cfg.NeighborIndex = kind
			s, err := Initialize(1000, 1280, 720, cfg, WithSeed(1))
			if err != nil {
				b.Fatal(err)
			}
			b.ResetTimer()
			for range b.N {
				s.RunBehaviorPass(1280, 720)
				s.Advance(2)
			}
		})
	}
}
