package flock

import (
	"fmt"
	"time"
)

// Advance applies substeps integrator ticks: Pos += Vel for every agent.
//
// Velocity is a displacement per tick and is not scaled by elapsed time, so the
// apparent speed on screen follows the tick rate. Under the clamp policy each
// position is pinned to the inset world box after every tick.
func (s *Store) Advance(substeps int) {
	if substeps < 0 {
		panic(fmt.Sprintf("flock: negative substep count %d", substeps))
	}
	clamp := s.cfg.Boundary == BoundaryClamp
	lo, hi := s.insetBounds()

	for range substeps {
		for i := range s.agents {
			a := &s.agents[i]
			a.Pos = a.Pos.Add(a.Vel)
			if clamp {
				a.Pos = a.Pos.Clamp(lo, hi)
			}
		}
	}
	s.ticks += uint64(substeps)
}

// Clock converts the real time elapsed between frames into a number of fixed
// integrator ticks. Leftover time below one tick carries over to the next frame;
// backlog beyond MaxSubsteps is dropped so a slow host never spirals.
type Clock struct {
	step        time.Duration
	maxSubsteps int
	backlog     time.Duration
	dropped     uint64
}

// NewClock returns a clock ticking tickRate times per second that never asks
// for more than maxSubsteps ticks in one frame.
func NewClock(tickRate float64, maxSubsteps int) (*Clock, error) {
	if !finite(tickRate) || tickRate <= 0 {
		return nil, fmt.Errorf("%w: tickRate must be > 0, got %v", ErrInvalidConfig, tickRate)
	}
	step := time.Duration(float64(time.Second) / tickRate)
	if step <= 0 {
		return nil, fmt.Errorf("%w: tickRate %v is too high", ErrInvalidConfig, tickRate)
	}
	if maxSubsteps < 1 {
		return nil, fmt.Errorf("%w: maxSubsteps must be >= 1, got %d", ErrInvalidConfig, maxSubsteps)
	}
	return &Clock{step: step, maxSubsteps: maxSubsteps}, nil
}

// Step is the duration of one tick.
func (c *Clock) Step() time.Duration { return c.step }

// Substeps adds elapsed to the backlog and returns how many whole ticks to run.
func (c *Clock) Substeps(elapsed time.Duration) int {
	if elapsed > 0 {
		c.backlog += elapsed
	}
	n := int(c.backlog / c.step)
	if n > c.maxSubsteps {
		c.dropped += uint64(n - c.maxSubsteps)
		c.backlog %= c.step
		return c.maxSubsteps
	}
	c.backlog -= time.Duration(n) * c.step
	return n
}

// Backlog is the real time not yet converted into ticks.
func (c *Clock) Backlog() time.Duration { return c.backlog }

// Dropped counts ticks discarded by the catch-up cap since the clock started.
func (c *Clock) Dropped() uint64 { return c.dropped }
