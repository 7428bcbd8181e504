// Package telemetry measures flock-level statistics and records them to CSV or
// SQLite for offline analysis of headless runs.
package telemetry

import (
	"math"

	"github.com/lao-tseu-is-alive/go-flock-simulation/pkg/flock"
	"github.com/lao-tseu-is-alive/go-flock-simulation/pkg/geometry"
	"gonum.org/v1/gonum/stat"
)

// Sample is one telemetry record.
type Sample struct {
	RunID    string `csv:"run_id"`
	Frame    uint64 `csv:"frame"`
	Ticks    uint64 `csv:"ticks"`
	Substeps int    `csv:"substeps"`
	Dropped  uint64 `csv:"dropped"`

	Agents       int     `csv:"agents"`
	MeanSpeed    float64 `csv:"mean_speed"`
	StdDevSpeed  float64 `csv:"stddev_speed"`
	Polarization float64 `csv:"polarization"` // 1 when every agent heads the same way
	CentroidX    float64 `csv:"centroid_x"`
	CentroidY    float64 `csv:"centroid_y"`
	Spread       float64 `csv:"spread"` // mean distance to the centroid

	ScoutsA   int     `csv:"scouts_a"`
	ScoutsB   int     `csv:"scouts_b"`
	MeanBiasA float64 `csv:"mean_bias_a"`
	MeanBiasB float64 `csv:"mean_bias_b"`

	PassMillis float64 `csv:"pass_ms"`
}

// Measure computes the population statistics of agents. The run bookkeeping
// fields (RunID, Frame, Ticks, Substeps, Dropped, PassMillis) are left for the
// caller.
func Measure(agents []flock.Agent) Sample {
	s := Sample{Agents: len(agents)}
	if len(agents) == 0 {
		return s
	}

	speeds := make([]float64, len(agents))
	xs := make([]float64, len(agents))
	ys := make([]float64, len(agents))
	var biasA, biasB []float64
	var heading geometry.Vector2D
	moving := 0

	for i, a := range agents {
		speeds[i] = a.Speed()
		xs[i], ys[i] = a.Pos.X, a.Pos.Y
		if !a.Vel.IsZero() {
			heading = heading.Add(a.Vel.Normalize())
			moving++
		}
		switch a.Group {
		case flock.GroupScoutA:
			biasA = append(biasA, a.Bias)
		case flock.GroupScoutB:
			biasB = append(biasB, a.Bias)
		}
	}

	if len(speeds) > 1 {
		s.MeanSpeed, s.StdDevSpeed = stat.MeanStdDev(speeds, nil)
	} else {
		s.MeanSpeed = speeds[0]
	}
	if moving > 0 {
		s.Polarization = heading.Len() / float64(moving)
	}

	s.CentroidX, s.CentroidY = stat.Mean(xs, nil), stat.Mean(ys, nil)
	centroid := geometry.Vector2D{X: s.CentroidX, Y: s.CentroidY}
	dist := make([]float64, len(agents))
	for i, a := range agents {
		dist[i] = a.Pos.DistanceTo(centroid)
	}
	s.Spread = stat.Mean(dist, nil)

	s.ScoutsA, s.ScoutsB = len(biasA), len(biasB)
	s.MeanBiasA, s.MeanBiasB = meanOrZero(biasA), meanOrZero(biasB)
	return s
}

func meanOrZero(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	m := stat.Mean(x, nil)
	if math.IsNaN(m) {
		return 0
	}
	return m
}
