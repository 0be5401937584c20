// Package metrics evaluates trained networks on generated trajectories.
package metrics

import (
	"math"
)

// Metric accumulates a per-timestep observation over one or more
// sequences. Observe receives the predicted output, the target output
// and the firing rates at a single timestep.
type Metric interface {
	Name() string
	Observe(pred, target, rates []float64)
	Value() float64
	Reset()
}

// HeadingError is the mean absolute angular error between the heading
// decoded from the prediction and the target heading, in radians.
// Headings are decoded as atan2(sin, cos) and differences wrapped to
// [-pi, pi].
type HeadingError struct {
	name    string
	sum     float64
	samples int
}

func NewHeadingError() *HeadingError {
	return &HeadingError{name: "heading_error"}
}

func (h *HeadingError) Name() string { return h.name }

func (h *HeadingError) Observe(pred, target, rates []float64) {
	if len(pred) < 2 || len(target) < 2 {
		return
	}
	predicted := math.Atan2(pred[0], pred[1])
	actual := math.Atan2(target[0], target[1])
	h.sum += math.Abs(wrapAngle(predicted - actual))
	h.samples++
}

func (h *HeadingError) Value() float64 {
	if h.samples == 0 {
		return 0
	}
	return h.sum / float64(h.samples)
}

func (h *HeadingError) Reset() {
	h.sum = 0
	h.samples = 0
}

// RateActivity is the mean squared firing rate, the quantity the
// training regularizer penalizes.
type RateActivity struct {
	name    string
	sum     float64
	samples int
}

func NewRateActivity() *RateActivity {
	return &RateActivity{name: "rate_activity"}
}

func (r *RateActivity) Name() string { return r.name }

func (r *RateActivity) Observe(pred, target, rates []float64) {
	for _, v := range rates {
		r.sum += v * v
		r.samples++
	}
}

func (r *RateActivity) Value() float64 {
	if r.samples == 0 {
		return 0
	}
	return r.sum / float64(r.samples)
}

func (r *RateActivity) Reset() {
	r.sum = 0
	r.samples = 0
}

// OutputNorm tracks the mean L2 norm of the prediction. A healthy
// path integrator stays near 1, the radius of the unit circle the
// (sin, cos) targets live on.
type OutputNorm struct {
	name    string
	sum     float64
	samples int
}

func NewOutputNorm() *OutputNorm {
	return &OutputNorm{name: "output_norm"}
}

func (o *OutputNorm) Name() string { return o.name }

func (o *OutputNorm) Observe(pred, target, rates []float64) {
	sum := 0.0
	for _, v := range pred {
		sum += v * v
	}
	o.sum += math.Sqrt(sum)
	o.samples++
}

func (o *OutputNorm) Value() float64 {
	if o.samples == 0 {
		return 0
	}
	return o.sum / float64(o.samples)
}

func (o *OutputNorm) Reset() {
	o.sum = 0
	o.samples = 0
}

// ObserveAll feeds every timestep of a batch rollout through each metric.
func ObserveAll(ms []Metric, y, targets, rates [][][]float64) {
	for i := range y {
		for t := range y[i] {
			for _, m := range ms {
				m.Observe(y[i][t], targets[i][t], rates[i][t])
			}
		}
	}
}

// Collect reads every metric into a name-keyed map.
func Collect(ms []Metric) map[string]float64 {
	out := make(map[string]float64, len(ms))
	for _, m := range ms {
		out[m.Name()] = m.Value()
	}
	return out
}

func wrapAngle(a float64) float64 {
	for a > math.Pi {
		a -= 2 * math.Pi
	}
	for a < -math.Pi {
		a += 2 * math.Pi
	}
	return a
}
