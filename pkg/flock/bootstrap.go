package flock

import (
	"fmt"
	"math"
	"math/rand/v2"
)

// Initialize spawns population agents in a width x height world.
//
// Positions are uniform over the world inset by half the boid size, velocities
// start at zero, and a ScoutFraction share of the agents joins scout A or scout B
// with equal probability. Pass WithSeed for a reproducible population.
func Initialize(population int, width, height float64, cfg Config, opts ...Option) (*Store, error) {
	if population <= 0 {
		return nil, fmt.Errorf("%w: population must be > 0, got %d", ErrInvalidConfig, population)
	}
	o, err := buildOptions(width, height, cfg, opts)
	if err != nil {
		return nil, err
	}
	if !o.seeded {
		o.seed = rand.Uint64()
	}
	rng := rand.New(rand.NewPCG(o.seed, o.seed^0x9e3779b97f4a7c15))

	s := newStore(width, height, cfg, o, population)
	half := cfg.BoidSize / 2
	var scoutsA, scoutsB int
	for i := range s.agents {
		a := &s.agents[i]
		a.Pos.X = half + rng.Float64()*(width-cfg.BoidSize)
		a.Pos.Y = half + rng.Float64()*(height-cfg.BoidSize)
		a.heading = rng.Float64() * 2 * math.Pi

		if rng.Float64() < cfg.ScoutFraction {
			if rng.Float64() < 0.5 {
				a.Group = GroupScoutA
				scoutsA++
			} else {
				a.Group = GroupScoutB
				scoutsB++
			}
		}
		a.Bias = initialBias(cfg, a.Group, 0)
	}

	s.logger.Infof("flock spawned: %d agents (%d scout A, %d scout B) in %.0fx%.0f, seed=%d, index=%s, workers=%d",
		population, scoutsA, scoutsB, width, height, o.seed, s.index.Name(), s.workers)
	return s, nil
}
