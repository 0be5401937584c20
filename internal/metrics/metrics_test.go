package metrics

import (
	"math"
	"testing"
)

func TestHeadingError(t *testing.T) {
	m := NewHeadingError()

	// Perfect prediction: zero error.
	a := 1.2
	m.Observe([]float64{math.Sin(a), math.Cos(a)}, []float64{math.Sin(a), math.Cos(a)}, nil)
	if got := m.Value(); math.Abs(got) > 1e-12 {
		t.Errorf("perfect prediction error = %f, want 0", got)
	}

	m.Reset()

	// Quarter turn off: pi/2 error.
	m.Observe([]float64{math.Sin(a + math.Pi/2), math.Cos(a + math.Pi/2)},
		[]float64{math.Sin(a), math.Cos(a)}, nil)
	if got := m.Value(); math.Abs(got-math.Pi/2) > 1e-12 {
		t.Errorf("quarter-turn error = %f, want %f", got, math.Pi/2)
	}
}

func TestHeadingErrorWrapsAround(t *testing.T) {
	m := NewHeadingError()

	// Headings 0.1 and 2pi-0.1 are 0.2 apart, not 2pi-0.2.
	m.Observe([]float64{math.Sin(0.1), math.Cos(0.1)},
		[]float64{math.Sin(2*math.Pi - 0.1), math.Cos(2*math.Pi - 0.1)}, nil)
	if got := m.Value(); math.Abs(got-0.2) > 1e-9 {
		t.Errorf("wrapped error = %f, want 0.2", got)
	}
}

func TestHeadingErrorAverages(t *testing.T) {
	m := NewHeadingError()
	a := 0.5
	m.Observe([]float64{math.Sin(a), math.Cos(a)}, []float64{math.Sin(a), math.Cos(a)}, nil)
	m.Observe([]float64{math.Sin(a + 0.4), math.Cos(a + 0.4)}, []float64{math.Sin(a), math.Cos(a)}, nil)
	if got := m.Value(); math.Abs(got-0.2) > 1e-9 {
		t.Errorf("mean error = %f, want 0.2", got)
	}
}

func TestRateActivity(t *testing.T) {
	m := NewRateActivity()
	if got := m.Value(); got != 0 {
		t.Errorf("empty metric = %f, want 0", got)
	}

	m.Observe(nil, nil, []float64{0.5, 0.5})
	m.Observe(nil, nil, []float64{1, 0})
	// (0.25 + 0.25 + 1 + 0) / 4 = 0.375
	if got := m.Value(); math.Abs(got-0.375) > 1e-12 {
		t.Errorf("rate activity = %f, want 0.375", got)
	}

	m.Reset()
	if got := m.Value(); got != 0 {
		t.Errorf("after reset = %f, want 0", got)
	}
}

func TestOutputNorm(t *testing.T) {
	m := NewOutputNorm()
	m.Observe([]float64{3, 4}, nil, nil)
	if got := m.Value(); math.Abs(got-5) > 1e-12 {
		t.Errorf("norm = %f, want 5", got)
	}
}

func TestObserveAllAndCollect(t *testing.T) {
	he := NewHeadingError()
	ra := NewRateActivity()
	ms := []Metric{he, ra}

	a := 0.7
	y := [][][]float64{{{math.Sin(a), math.Cos(a)}, {math.Sin(a), math.Cos(a)}}}
	targets := [][][]float64{{{math.Sin(a), math.Cos(a)}, {math.Sin(a), math.Cos(a)}}}
	rates := [][][]float64{{{0.5}, {0.5}}}

	ObserveAll(ms, y, targets, rates)

	got := Collect(ms)
	if len(got) != 2 {
		t.Fatalf("collected %d metrics, want 2", len(got))
	}
	if got["heading_error"] != 0 {
		t.Errorf("heading_error = %f, want 0", got["heading_error"])
	}
	if math.Abs(got["rate_activity"]-0.25) > 1e-12 {
		t.Errorf("rate_activity = %f, want 0.25", got["rate_activity"])
	}
}
