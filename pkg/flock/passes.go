package flock

import (
	"github.com/lao-tseu-is-alive/go-flock-simulation/pkg/geometry"
)

// deltaFunc computes the velocity change of agent i from the pass snapshot and
// the indices of its neighbors. It must only read snap.
type deltaFunc func(snap []Agent, i int, near []int) geometry.Vector2D

// separation pushes an agent away from everybody inside ProjectedRange,
// proportionally to each displacement.
func (s *Store) separation() {
	factor := s.cfg.AvoidFactor
	s.neighborPass(s.cfg.ProjectedRange, func(snap []Agent, i int, near []int) geometry.Vector2D {
		var closeBy geometry.Vector2D
		me := snap[i].Pos
		for _, j := range near {
			closeBy = closeBy.Add(me.Sub(snap[j].Pos))
		}
		return closeBy.Mul(factor)
	})
}

// alignment moves an agent's velocity toward the mean velocity of its visible
// neighbors.
func (s *Store) alignment() {
	factor := s.cfg.MatchingFactor
	s.neighborPass(s.cfg.VisualRange, func(snap []Agent, i int, near []int) geometry.Vector2D {
		if len(near) == 0 {
			return geometry.Zero
		}
		var sum geometry.Vector2D
		for _, j := range near {
			sum = sum.Add(snap[j].Vel)
		}
		avg := sum.Mul(1 / float64(len(near)))
		return avg.Sub(snap[i].Vel).Mul(factor)
	})
}

// cohesion steers an agent toward the centroid of its visible neighbors.
func (s *Store) cohesion() {
	factor := s.cfg.CenteringFactor
	s.neighborPass(s.cfg.VisualRange, func(snap []Agent, i int, near []int) geometry.Vector2D {
		if len(near) == 0 {
			return geometry.Zero
		}
		var sum geometry.Vector2D
		for _, j := range near {
			sum = sum.Add(snap[j].Pos)
		}
		centroid := sum.Mul(1 / float64(len(near)))
		return centroid.Sub(snap[i].Pos).Mul(factor)
	})
}

// turnAtBoundary adds TurnFactor toward the inside to every velocity component
// whose position is within Margin of the inset world edge. Only the turn policy
// acts here; the clamp policy is applied by the integrator.
func (s *Store) turnAtBoundary() {
	if s.cfg.Boundary != BoundaryTurn {
		return
	}
	lo, hi := s.insetBounds()
	left, right := lo.X+s.cfg.Margin, hi.X-s.cfg.Margin
	bottom, top := lo.Y+s.cfg.Margin, hi.Y-s.cfg.Margin
	turn := s.cfg.TurnFactor

	for i := range s.agents {
		a := &s.agents[i]
		if a.Pos.X < left {
			a.Vel.X += turn
		} else if a.Pos.X > right {
			a.Vel.X -= turn
		}
		if a.Pos.Y < bottom {
			a.Vel.Y += turn
		} else if a.Pos.Y > top {
			a.Vel.Y -= turn
		}
	}
}

// steerScouts blends each scout's horizontal velocity toward its group target.
// In adaptive mode the blend strength grows while the scout already heads the
// right way and relaxes, down to BiasIncrement, while it does not.
func (s *Store) steerScouts() {
	adaptive := s.cfg.BiasMode == BiasAdaptive
	step, ceiling := s.cfg.BiasIncrement, s.cfg.MaxBias

	for i := range s.agents {
		a := &s.agents[i]
		target := a.Group.Target()
		if target == 0 {
			continue
		}
		if adaptive {
			if a.Vel.X*target > 0 {
				a.Bias = min(ceiling, a.Bias+step)
			} else {
				a.Bias = max(step, a.Bias-step)
			}
		}
		a.Vel = a.Vel.Lerp(geometry.NewVector(target, a.Vel.Y), a.Bias)
	}
}

// limitSpeeds rescales velocities into [MinSpeed, MaxSpeed] keeping their
// direction. A zero velocity has no direction, so the agent gets MinSpeed along
// its fallback heading.
func (s *Store) limitSpeeds() {
	lo, hi := s.cfg.MinSpeed, s.cfg.MaxSpeed
	for i := range s.agents {
		a := &s.agents[i]
		speed := a.Vel.Len()
		switch {
		case speed > hi:
			a.Vel, _ = a.Vel.WithLen(hi)
		case speed < lo:
			if v, ok := a.Vel.WithLen(lo); ok {
				a.Vel = v
			} else {
				a.Vel = geometry.NewVectorPolar(lo, a.heading)
			}
		}
	}
}

// insetBounds is the box an agent's center may occupy without its sprite
// crossing the world edge.
func (s *Store) insetBounds() (lo, hi geometry.Vector2D) {
	half := s.cfg.BoidSize / 2
	return geometry.NewVector(half, half), geometry.NewVector(s.width-half, s.height-half)
}
