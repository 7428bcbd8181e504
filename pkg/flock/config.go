package flock

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidConfig is wrapped by every construction-time validation failure.
var ErrInvalidConfig = errors.New("invalid flock configuration")

// BoundaryPolicy selects how agents are kept inside the world.
type BoundaryPolicy string

const (
	// BoundaryTurn steers agents inward once they are within Margin of an edge.
	BoundaryTurn BoundaryPolicy = "turn"
	// BoundaryClamp pins positions to the inset world box after every substep.
	BoundaryClamp BoundaryPolicy = "clamp"
)

// BiasMode selects how the scout bias strength evolves.
type BiasMode string

const (
	BiasFixed    BiasMode = "fixed"
	BiasAdaptive BiasMode = "adaptive"
)

// IndexKind names a NeighborIndex implementation.
type IndexKind string

const (
	IndexAllPairs IndexKind = "all-pairs"
	IndexGrid     IndexKind = "grid"
)

// Config holds the behavior constants of the flock.
// Ranges are in world units, speeds in world units per tick.
type Config struct {
	BoidSize float64 `json:"boidSize" yaml:"boidSize"` // visual size; positions are inset by half of it

	VisualRange    float64 `json:"visualRange" yaml:"visualRange"`       // alignment and cohesion radius
	ProjectedRange float64 `json:"projectedRange" yaml:"projectedRange"` // separation radius

	TurnFactor      float64 `json:"turnFactor" yaml:"turnFactor"`
	AvoidFactor     float64 `json:"avoidFactor" yaml:"avoidFactor"`
	MatchingFactor  float64 `json:"matchingFactor" yaml:"matchingFactor"`
	CenteringFactor float64 `json:"centeringFactor" yaml:"centeringFactor"`

	MinSpeed float64 `json:"minSpeed" yaml:"minSpeed"`
	MaxSpeed float64 `json:"maxSpeed" yaml:"maxSpeed"`
	Margin   float64 `json:"margin" yaml:"margin"`

	Boundary BoundaryPolicy `json:"boundaryPolicy" yaml:"boundaryPolicy"`

	BiasMode      BiasMode `json:"biasMode" yaml:"biasMode"`
	ScoutFraction float64  `json:"scoutFraction" yaml:"scoutFraction"`
	BiasValue     float64  `json:"biasValue" yaml:"biasValue"` // fixed strength, or the adaptive starting point
	MaxBias       float64  `json:"maxBias" yaml:"maxBias"`
	BiasIncrement float64  `json:"biasIncrement" yaml:"biasIncrement"` // adaptive step, also the adaptive floor

	TickRate    float64 `json:"tickRate" yaml:"tickRate"`       // integrator substeps per second
	MaxSubsteps int     `json:"maxSubsteps" yaml:"maxSubsteps"` // catch-up cap per frame

	Workers       int       `json:"workers" yaml:"workers"` // 0 means GOMAXPROCS
	NeighborIndex IndexKind `json:"neighborIndex" yaml:"neighborIndex"`
}

// DefaultConfig returns the tuning the simulation ships with.
func DefaultConfig() Config {
	return Config{
		BoidSize:        32,
		VisualRange:     16,
		ProjectedRange:  9,
		TurnFactor:      0.2,
		AvoidFactor:     0.05,
		MatchingFactor:  0.05,
		CenteringFactor: 0.0005,
		MinSpeed:        3,
		MaxSpeed:        6,
		Margin:          100,
		Boundary:        BoundaryTurn,
		BiasMode:        BiasFixed,
		ScoutFraction:   0.12,
		BiasValue:       0.001,
		MaxBias:         0.01,
		BiasIncrement:   0.00004,
		TickRate:        120,
		MaxSubsteps:     8,
		Workers:         0,
		NeighborIndex:   IndexGrid,
	}
}

// Validate reports every field that would break the pipeline invariants.
// The returned error wraps ErrInvalidConfig.
func (c Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalidConfig}, args...)...))
		}
	}

	check(finite(c.BoidSize) && c.BoidSize >= 0, "boidSize must be >= 0, got %v", c.BoidSize)
	check(finite(c.VisualRange) && c.VisualRange > 0, "visualRange must be > 0, got %v", c.VisualRange)
	check(finite(c.ProjectedRange) && c.ProjectedRange > 0, "projectedRange must be > 0, got %v", c.ProjectedRange)
	check(c.ProjectedRange <= c.VisualRange, "projectedRange (%v) must not exceed visualRange (%v)", c.ProjectedRange, c.VisualRange)

	for _, f := range []struct {
		name string
		v    float64
	}{
		{"turnFactor", c.TurnFactor},
		{"avoidFactor", c.AvoidFactor},
		{"matchingFactor", c.MatchingFactor},
		{"centeringFactor", c.CenteringFactor},
		{"margin", c.Margin},
	} {
		check(finite(f.v) && f.v >= 0, "%s must be >= 0, got %v", f.name, f.v)
	}

	check(finite(c.MinSpeed) && c.MinSpeed >= 0, "minSpeed must be >= 0, got %v", c.MinSpeed)
	check(finite(c.MaxSpeed) && c.MaxSpeed > 0, "maxSpeed must be > 0, got %v", c.MaxSpeed)
	check(c.MinSpeed <= c.MaxSpeed, "minSpeed (%v) must not exceed maxSpeed (%v)", c.MinSpeed, c.MaxSpeed)

	check(c.Boundary == BoundaryTurn || c.Boundary == BoundaryClamp, "unknown boundaryPolicy %q", c.Boundary)
	check(c.BiasMode == BiasFixed || c.BiasMode == BiasAdaptive, "unknown biasMode %q", c.BiasMode)
	check(c.ScoutFraction >= 0 && c.ScoutFraction <= 1, "scoutFraction must be within [0, 1], got %v", c.ScoutFraction)
	check(c.BiasIncrement >= 0, "biasIncrement must be >= 0, got %v", c.BiasIncrement)
	if c.BiasMode == BiasAdaptive {
		check(c.BiasIncrement > 0, "biasIncrement must be > 0 in adaptive mode, got %v", c.BiasIncrement)
	}
	check(c.MaxBias >= c.BiasIncrement && c.MaxBias <= 1,
		"maxBias must be within [biasIncrement, 1], got %v", c.MaxBias)
	// scout bias lives in [biasIncrement, maxBias] in both modes
	check(c.BiasValue >= c.BiasIncrement && c.BiasValue <= c.MaxBias,
		"biasValue must be within [biasIncrement (%v), maxBias (%v)], got %v", c.BiasIncrement, c.MaxBias, c.BiasValue)

	check(finite(c.TickRate) && c.TickRate > 0, "tickRate must be > 0, got %v", c.TickRate)
	check(c.MaxSubsteps >= 1, "maxSubsteps must be >= 1, got %d", c.MaxSubsteps)
	check(c.Workers >= 0, "workers must be >= 0, got %d", c.Workers)
	check(c.NeighborIndex == IndexAllPairs || c.NeighborIndex == IndexGrid, "unknown neighborIndex %q", c.NeighborIndex)

	return errors.Join(errs...)
}

// TurnPolicyWarnings lists the reasons the turn policy may let agents leave the
// world with this tuning. The turn policy only steers, so containment depends on
// Margin covering the distance an agent travels while turning around, with up to
// MaxSubsteps integrator ticks per behavior pass. It returns nil for the clamp
// policy.
func (c Config) TurnPolicyWarnings() []string {
	if c.Boundary != BoundaryTurn {
		return nil
	}
	var warnings []string
	if c.TurnFactor == 0 {
		return append(warnings, "turnFactor is 0: agents are never steered back inside the world")
	}
	if c.MinSpeed > 0 {
		warnings = append(warnings, fmt.Sprintf(
			"minSpeed %.2f > 0: the speed clamp restores a head-on velocity every pass, so an agent flying straight at a wall never turns back",
			c.MinSpeed))
	}
	substeps := float64(max(c.MaxSubsteps, 1))
	if perPass := substeps * c.MaxSpeed; c.Margin <= perPass {
		warnings = append(warnings, fmt.Sprintf(
			"margin %.2f does not exceed one pass's maximum displacement %.2f (%d substeps at maxSpeed)",
			c.Margin, perPass, c.MaxSubsteps))
	}
	if stopping := c.turningDistance(); c.Margin < stopping {
		warnings = append(warnings, fmt.Sprintf(
			"margin %.2f is shorter than the turning distance %.2f at maxSpeed with %d substeps per pass",
			c.Margin, stopping, c.MaxSubsteps))
	}
	return warnings
}

// turningDistance is how far a full-speed outward agent travels before
// TurnFactor per pass cancels its velocity: passes see speeds v, v-t, v-2t...
// and each pass moves the agent MaxSubsteps times.
func (c Config) turningDistance() float64 {
	v, t := c.MaxSpeed, c.TurnFactor
	passes := math.Ceil(v / t)
	perTick := passes*v - t*passes*(passes-1)/2
	return float64(max(c.MaxSubsteps, 1)) * perTick
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
