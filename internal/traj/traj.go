package traj

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
)

// ErrInvalidLength indicates a requested sequence length below 1.
var ErrInvalidLength = errors.New("traj: sequence length must be >= 1")

// Config carries the trajectory hyperparameters. Tau is the timestep
// scale applied to the angular velocity; Momentum smooths consecutive
// velocities; PZero is the probability of an exact-zero raw draw.
type Config struct {
	Tau      float64
	Sigma    float64
	Momentum float64
	PZero    float64
}

func (c Config) Validate() error {
	if c.Tau <= 0 {
		return fmt.Errorf("traj: tau must be positive, got %f", c.Tau)
	}
	if c.Sigma < 0 {
		return fmt.Errorf("traj: sigma must be non-negative, got %f", c.Sigma)
	}
	if c.PZero < 0 || c.PZero > 1 {
		return fmt.Errorf("traj: p_zero must be in [0,1], got %f", c.PZero)
	}
	return nil
}

// Trajectory is one generated sample. Immutable once generated.
type Trajectory struct {
	Theta0 float64
	AV     []float64 // angular velocity per step, AV[0] == 0
	Theta  []float64 // heading per step, Theta[0] == Theta0
}

// Generator produces trajectories from an injected random source.
// It is not safe for concurrent use; give each goroutine its own.
type Generator struct {
	cfg Config
	rng *rand.Rand
}

func NewGenerator(cfg Config, rng *rand.Rand) (*Generator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Generator{cfg: cfg, rng: rng}, nil
}

func (g *Generator) Config() Config { return g.cfg }

// Generate draws one trajectory of the given length.
func (g *Generator) Generate(seqLen int) (*Trajectory, error) {
	if seqLen < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidLength, seqLen)
	}

	tr := &Trajectory{
		Theta0: g.rng.Float64() * 2 * math.Pi,
		AV:     make([]float64, seqLen),
		Theta:  make([]float64, seqLen),
	}
	tr.Theta[0] = tr.Theta0

	for t := 1; t < seqLen; t++ {
		raw := 0.0
		if g.rng.Float64() >= g.cfg.PZero {
			raw = g.rng.NormFloat64() * g.cfg.Sigma
		}
		tr.AV[t] = raw + g.cfg.Momentum*tr.AV[t-1]
		tr.Theta[t] = tr.Theta[t-1] + tr.AV[t]*g.cfg.Tau
	}

	return tr, nil
}

// Input is the network input sequence: (sin θ0, cos θ0, av[t]) per step.
// The first two components are constant across the sequence.
func (tr *Trajectory) Input() [][]float64 {
	s0, c0 := math.Sin(tr.Theta0), math.Cos(tr.Theta0)
	in := make([][]float64, len(tr.AV))
	for t, av := range tr.AV {
		in[t] = []float64{s0, c0, av}
	}
	return in
}

// Target is the supervision sequence: (sin θ[t], cos θ[t]) per step.
func (tr *Trajectory) Target() [][]float64 {
	tgt := make([][]float64, len(tr.Theta))
	for t, th := range tr.Theta {
		tgt[t] = []float64{math.Sin(th), math.Cos(th)}
	}
	return tgt
}

// GenerateBatch draws n independent trajectories and stacks their
// inputs and targets into batch-major tensors.
func (g *Generator) GenerateBatch(n, seqLen int) (inputs, targets [][][]float64, err error) {
	inputs = make([][][]float64, n)
	targets = make([][][]float64, n)
	for i := 0; i < n; i++ {
		tr, err := g.Generate(seqLen)
		if err != nil {
			return nil, nil, err
		}
		inputs[i] = tr.Input()
		targets[i] = tr.Target()
	}
	return inputs, targets, nil
}
