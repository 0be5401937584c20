// Package analysis probes the intrinsic dynamics of trained networks.
package analysis

import (
	"math"

	"github.com/san-kum/ringsim/internal/ctrnn"
)

// DriftResult holds the decoded heading of a network rolled forward
// without angular-velocity input.
type DriftResult struct {
	Headings []float64
	// Rate is the mean absolute heading change per step once the
	// transient has passed, in radians.
	Rate float64
	// Final is the absolute deviation from the initial heading at the
	// last step.
	Final float64
}

// Drift holds the network at a fixed heading cue with zero angular
// velocity and measures how far the decoded heading wanders. A well
// trained network holds its estimate; a leaky one drifts toward an
// attractor state.
func Drift(net *ctrnn.Network, theta0 float64, steps, transient int) (*DriftResult, error) {
	seq := make([][]float64, steps)
	for t := range seq {
		seq[t] = []float64{math.Sin(theta0), math.Cos(theta0), 0}
	}

	y, _, err := net.Forward([][][]float64{seq})
	if err != nil {
		return nil, err
	}

	res := &DriftResult{Headings: make([]float64, steps)}
	for t, out := range y[0] {
		res.Headings[t] = math.Atan2(out[0], out[1])
	}

	sum := 0.0
	count := 0
	for t := transient + 1; t < steps; t++ {
		sum += math.Abs(wrapAngle(res.Headings[t] - res.Headings[t-1]))
		count++
	}
	if count > 0 {
		res.Rate = sum / float64(count)
	}
	if steps > 0 {
		res.Final = math.Abs(wrapAngle(res.Headings[steps-1] - theta0))
	}
	return res, nil
}

// Separation rolls two copies of the network from nearby heading cues
// and tracks how their decoded headings converge or diverge, in the
// spirit of a largest-Lyapunov estimate. A negative value means the
// representations collapse together.
func Separation(net *ctrnn.Network, theta0, perturbation float64, steps int) (float64, error) {
	if perturbation == 0 || steps < 2 {
		return 0, nil
	}

	a, err := Drift(net, theta0, steps, 0)
	if err != nil {
		return 0, err
	}
	b, err := Drift(net, theta0+perturbation, steps, 0)
	if err != nil {
		return 0, err
	}

	d0 := math.Abs(perturbation)
	sumLog := 0.0
	count := 0
	for t := 0; t < steps; t++ {
		sep := math.Abs(wrapAngle(b.Headings[t] - a.Headings[t]))
		if sep > 0 {
			sumLog += math.Log(sep / d0)
			count++
		}
	}
	if count == 0 {
		return 0, nil
	}
	return sumLog / float64(count), nil
}

func wrapAngle(a float64) float64 {
	a = math.Mod(a+math.Pi, 2*math.Pi)
	if a < 0 {
		a += 2 * math.Pi
	}
	return a - math.Pi
}
