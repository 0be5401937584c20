package analysis

import (
	"math"
	"math/rand"
	"testing"

	"github.com/san-kum/ringsim/internal/ctrnn"
)

func quietConfig(hidden int) ctrnn.Config {
	return ctrnn.Config{
		HiddenSize: hidden,
		InputSize:  3,
		OutputSize: 2,
		Tau:        0.1,
		Sigma:      0,
	}
}

func zeroNetwork(t *testing.T, hidden int) *ctrnn.Network {
	t.Helper()
	cfg := quietConfig(hidden)
	net, err := ctrnn.NewFromParams(cfg,
		make([]float64, hidden*cfg.InputSize),
		make([]float64, hidden*hidden),
		make([]float64, hidden),
		make([]float64, cfg.OutputSize*hidden),
		rand.New(rand.NewSource(1)),
	)
	if err != nil {
		t.Fatalf("build network: %v", err)
	}
	return net
}

func TestDriftZeroNetwork(t *testing.T) {
	net := zeroNetwork(t, 8)
	theta0 := 1.5

	res, err := Drift(net, theta0, 50, 10)
	if err != nil {
		t.Fatalf("drift failed: %v", err)
	}

	if len(res.Headings) != 50 {
		t.Fatalf("got %d headings, want 50", len(res.Headings))
	}
	// Zero weights decode to atan2(0, 0) = 0 at every step.
	for i, h := range res.Headings {
		if h != 0 {
			t.Fatalf("heading[%d] = %f, want 0", i, h)
		}
	}
	if res.Rate != 0 {
		t.Errorf("rate = %f, want 0", res.Rate)
	}
	if math.Abs(res.Final-theta0) > 1e-12 {
		t.Errorf("final deviation = %f, want %f", res.Final, theta0)
	}
}

func TestDriftDeterministicWithoutNoise(t *testing.T) {
	cfg := quietConfig(16)
	net, err := ctrnn.New(cfg, rand.New(rand.NewSource(7)))
	if err != nil {
		t.Fatalf("build network: %v", err)
	}

	a, err := Drift(net, 0.3, 40, 5)
	if err != nil {
		t.Fatalf("drift failed: %v", err)
	}
	b, err := Drift(net, 0.3, 40, 5)
	if err != nil {
		t.Fatalf("drift failed: %v", err)
	}

	for i := range a.Headings {
		if a.Headings[i] != b.Headings[i] {
			t.Fatalf("heading[%d] differs between identical runs", i)
		}
	}
}

func TestSeparation(t *testing.T) {
	net := zeroNetwork(t, 8)

	// Identical decoded headings give zero separation everywhere.
	got, err := Separation(net, 1.0, 0.01, 30)
	if err != nil {
		t.Fatalf("separation failed: %v", err)
	}
	if got != 0 {
		t.Errorf("separation = %f, want 0", got)
	}

	// Degenerate arguments short-circuit.
	if got, _ := Separation(net, 1.0, 0, 30); got != 0 {
		t.Errorf("zero perturbation gave %f", got)
	}
	if got, _ := Separation(net, 1.0, 0.01, 1); got != 0 {
		t.Errorf("single step gave %f", got)
	}
}

func TestSeparationContracts(t *testing.T) {
	cfg := quietConfig(16)
	net, err := ctrnn.New(cfg, rand.New(rand.NewSource(3)))
	if err != nil {
		t.Fatalf("build network: %v", err)
	}

	got, err := Separation(net, 0.5, 0.05, 60)
	if err != nil {
		t.Fatalf("separation failed: %v", err)
	}
	if math.IsNaN(got) || math.IsInf(got, 0) {
		t.Fatalf("separation = %f", got)
	}
}
