package flock

import (
	"fmt"
	"sync"
)

// parallelThreshold is the population below which neighbor passes stay on the
// calling goroutine. Under it the goroutine fan-out costs more than it saves.
const parallelThreshold = 64

// RunBehaviorPass updates every velocity once: separation, alignment, cohesion,
// boundary turning, scout bias and speed clamp, in that order, each pass reading
// the output of the previous one. width and height are the current world size
// supplied by the host; non-positive values keep the previous size.
func (s *Store) RunBehaviorPass(width, height float64) {
	if width > 0 && height > 0 {
		s.width, s.height = width, height
	}

	// positions are frozen for the whole pass, so one index serves every query
	s.index.Build(s.agents)

	s.separation()
	s.alignment()
	s.cohesion()
	s.turnAtBoundary()
	s.steerScouts()
	s.limitSpeeds()
	s.passes++
}

// neighborPass runs fn for every agent against a snapshot taken at the start of
// the pass, then commits all deltas at once. No agent can observe a velocity
// written during the same pass, which makes the result independent of the
// order agents are visited in.
func (s *Store) neighborPass(radius float64, fn deltaFunc) {
	copy(s.snapshot, s.agents)

	n := len(s.snapshot)
	if s.workers <= 1 || n < parallelThreshold {
		s.computeChunk(0, n, 0, radius, fn)
	} else {
		chunkSize := (n + s.workers - 1) / s.workers
		var wg sync.WaitGroup
		for w := 0; w < s.workers; w++ {
			start := w * chunkSize
			end := min(start+chunkSize, n)
			if start >= end {
				break
			}
			wg.Go(func() {
				s.computeChunk(start, end, w, radius, fn)
			})
		}
		wg.Wait()
	}

	s.commit()
}

// computeChunk fills deltas[i0:i1]. Each chunk owns its delta slots and its
// scratch buffer, so chunks never write shared memory.
func (s *Store) computeChunk(i0, i1, worker int, radius float64, fn deltaFunc) {
	near := s.scratch[worker]
	for i := i0; i < i1; i++ {
		near = s.index.QueryInto(near[:0], s.snapshot, i, radius)
		s.deltas[i] = fn(s.snapshot, i, near)
	}
	s.scratch[worker] = near
}

func (s *Store) commit() {
	if len(s.deltas) != len(s.agents) {
		panic(fmt.Sprintf("flock: %d deltas computed for %d agents", len(s.deltas), len(s.agents)))
	}
	for i, d := range s.deltas {
		a := s.agentAt(i)
		a.Vel = a.Vel.Add(d)
	}
}
