package ctrnn

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/ringsim/internal/compute"
)

// Config carries the network hyperparameters. Tau is the membrane time
// constant; the Euler step size is Tau/10. Sigma scales the state noise:
// each unit receives independent N(0, (Sigma*0.1)^2) noise per step, and
// Sigma == 0 disables noise entirely, making Forward deterministic.
type Config struct {
	HiddenSize int
	InputSize  int
	OutputSize int
	Tau        float64
	Sigma      float64
	Device     string
}

func (c Config) Validate() error {
	if c.HiddenSize < 1 || c.InputSize < 1 || c.OutputSize < 1 {
		return fmt.Errorf("%w: sizes must be positive (hidden=%d input=%d output=%d)",
			ErrInvalidConfig, c.HiddenSize, c.InputSize, c.OutputSize)
	}
	if c.Tau <= 0 {
		return fmt.Errorf("%w: tau must be positive, got %f", ErrInvalidConfig, c.Tau)
	}
	if c.Sigma < 0 {
		return fmt.Errorf("%w: sigma must be non-negative, got %f", ErrInvalidConfig, c.Sigma)
	}
	return nil
}

// Network holds the learnable parameters of the leaky-integrator RNN.
// Mask is fixed for the lifetime of the network; the optimizer mutates
// the remaining parameters in place between forward passes.
type Network struct {
	Win  *mat.Dense    // hidden × input
	Wrec *mat.Dense    // hidden × hidden
	Mask *mat.Dense    // hidden × hidden, zero diagonal, non-trainable
	Bias *mat.VecDense // hidden
	Wout *mat.Dense    // output × hidden, no additive bias

	cfg     Config
	backend compute.Backend
	rng     *rand.Rand
}

// Rollout is the full record of one forward pass. X holds the hidden
// state at the start of each step (the state the step's rate was read
// from), which the trainer's backward pass needs.
type Rollout struct {
	Y [][][]float64 // batch × T × output
	R [][][]float64 // batch × T × hidden
	X [][][]float64 // batch × T × hidden
}

// New builds a network with small random Win/Wrec/Wout and zero bias,
// drawn from rng. The same rng later feeds the per-step state noise.
func New(cfg Config, rng *rand.Rand) (*Network, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	backend, err := compute.Select(cfg.Device)
	if err != nil {
		return nil, err
	}

	n := &Network{
		Win:     mat.NewDense(cfg.HiddenSize, cfg.InputSize, nil),
		Wrec:    mat.NewDense(cfg.HiddenSize, cfg.HiddenSize, nil),
		Mask:    selfConnectionMask(cfg.HiddenSize),
		Bias:    mat.NewVecDense(cfg.HiddenSize, nil),
		Wout:    mat.NewDense(cfg.OutputSize, cfg.HiddenSize, nil),
		cfg:     cfg,
		backend: backend,
		rng:     rng,
	}

	randomize(n.Win, rng, 1/math.Sqrt(float64(cfg.InputSize)))
	randomize(n.Wrec, rng, 1/math.Sqrt(float64(cfg.HiddenSize)))
	randomize(n.Wout, rng, 1/math.Sqrt(float64(cfg.HiddenSize)))

	return n, nil
}

// NewFromParams rebuilds a network from flattened row-major parameter
// data, e.g. a stored checkpoint. The mask is reconstructed, never
// persisted.
func NewFromParams(cfg Config, win, wrec, bias, wout []float64, rng *rand.Rand) (*Network, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	backend, err := compute.Select(cfg.Device)
	if err != nil {
		return nil, err
	}
	h, in, out := cfg.HiddenSize, cfg.InputSize, cfg.OutputSize
	if len(win) != h*in || len(wrec) != h*h || len(bias) != h || len(wout) != out*h {
		return nil, fmt.Errorf("%w: parameter data does not match sizes", ErrShapeMismatch)
	}
	return &Network{
		Win:     mat.NewDense(h, in, append([]float64(nil), win...)),
		Wrec:    mat.NewDense(h, h, append([]float64(nil), wrec...)),
		Mask:    selfConnectionMask(h),
		Bias:    mat.NewVecDense(h, append([]float64(nil), bias...)),
		Wout:    mat.NewDense(out, h, append([]float64(nil), wout...)),
		cfg:     cfg,
		backend: backend,
		rng:     rng,
	}, nil
}

func randomize(m *mat.Dense, rng *rand.Rand, scale float64) {
	data := m.RawMatrix().Data
	for i := range data {
		data[i] = rng.NormFloat64() * scale
	}
}

// selfConnectionMask is all ones off-diagonal, zero on the diagonal.
func selfConnectionMask(h int) *mat.Dense {
	m := mat.NewDense(h, h, nil)
	for i := 0; i < h; i++ {
		for j := 0; j < h; j++ {
			if i != j {
				m.Set(i, j, 1)
			}
		}
	}
	return m
}

func (n *Network) Config() Config { return n.cfg }

// EffectiveRecurrent returns Wrec ⊙ Mask, the recurrent weights actually
// applied during integration. Its diagonal is zero for any Wrec content.
func (n *Network) EffectiveRecurrent() *mat.Dense {
	eff := mat.NewDense(n.cfg.HiddenSize, n.cfg.HiddenSize, nil)
	eff.MulElem(n.Wrec, n.Mask)
	return eff
}

// Forward integrates every sequence in u and returns the output and
// firing-rate traces for all timesteps.
func (n *Network) Forward(u [][][]float64) (y, rTrace [][][]float64, err error) {
	roll, err := n.Unroll(u)
	if err != nil {
		return nil, nil, err
	}
	return roll.Y, roll.R, nil
}

// Unroll is Forward plus the per-step hidden states needed for
// backpropagation through time.
func (n *Network) Unroll(u [][][]float64) (*Rollout, error) {
	if err := n.checkShape(u); err != nil {
		return nil, err
	}

	batch := len(u)
	roll := &Rollout{
		Y: make([][][]float64, batch),
		R: make([][][]float64, batch),
		X: make([][][]float64, batch),
	}

	// Noise seeds are drawn serially up front so results do not depend
	// on which backend evaluates the batch.
	var seeds []int64
	if n.cfg.Sigma > 0 {
		seeds = make([]int64, batch)
		for i := range seeds {
			seeds[i] = n.rng.Int63()
		}
	}

	eff := n.EffectiveRecurrent()

	n.backend.ForEach(batch, func(i int) {
		var noise *rand.Rand
		if seeds != nil {
			noise = rand.New(rand.NewSource(seeds[i]))
		}
		roll.Y[i], roll.R[i], roll.X[i] = n.unrollSeq(u[i], eff, noise)
	})

	return roll, nil
}

// unrollSeq runs the Euler integration over one sequence. The state
// starts at zero; time is strictly sequential.
func (n *Network) unrollSeq(seq [][]float64, eff *mat.Dense, noise *rand.Rand) (ys, rs, xs [][]float64) {
	h := n.cfg.HiddenSize
	steps := len(seq)
	dt := n.cfg.Tau / 10
	noiseStd := n.cfg.Sigma * 0.1

	ys = make([][]float64, steps)
	rs = make([][]float64, steps)
	xs = make([][]float64, steps)

	x := mat.NewVecDense(h, nil)
	r := mat.NewVecDense(h, nil)
	rec := mat.NewVecDense(h, nil)
	in := mat.NewVecDense(h, nil)
	dx := mat.NewVecDense(h, nil)
	yv := mat.NewVecDense(n.cfg.OutputSize, nil)

	for t := 0; t < steps; t++ {
		xs[t] = append([]float64(nil), x.RawVector().Data...)

		for i := 0; i < h; i++ {
			r.SetVec(i, rate(x.AtVec(i)))
		}
		rs[t] = append([]float64(nil), r.RawVector().Data...)

		// Output reads the rate before this step's state update.
		yv.MulVec(n.Wout, r)
		ys[t] = append([]float64(nil), yv.RawVector().Data...)

		rec.MulVec(eff, r)
		in.MulVec(n.Win, mat.NewVecDense(len(seq[t]), seq[t]))

		for i := 0; i < h; i++ {
			d := (-x.AtVec(i) + rec.AtVec(i) + in.AtVec(i) + n.Bias.AtVec(i)) / n.cfg.Tau
			if noise != nil {
				d += noise.NormFloat64() * noiseStd
			}
			dx.SetVec(i, d)
		}
		x.AddScaledVec(x, dt, dx)
	}

	return ys, rs, xs
}

// rate is the firing-rate nonlinearity: bounded by tanh, then rectified.
func rate(x float64) float64 {
	return math.Max(0, math.Tanh(x))
}

// rateDeriv is d rate/dx, zero where the rectifier is closed.
func rateDeriv(x float64) float64 {
	if x <= 0 {
		return 0
	}
	th := math.Tanh(x)
	return 1 - th*th
}

// RateDeriv exposes the nonlinearity derivative for the trainer.
func RateDeriv(x float64) float64 { return rateDeriv(x) }

// Rate exposes the firing-rate nonlinearity.
func Rate(x float64) float64 { return rate(x) }

func (n *Network) checkShape(u [][][]float64) error {
	if len(u) == 0 {
		return ErrEmptyBatch
	}
	steps := len(u[0])
	if steps == 0 {
		return ErrEmptyBatch
	}
	for i, seq := range u {
		if len(seq) != steps {
			return fmt.Errorf("%w: sequence %d has %d steps, sequence 0 has %d",
				ErrShapeMismatch, i, len(seq), steps)
		}
		for t, step := range seq {
			if len(step) != n.cfg.InputSize {
				return &ShapeError{Seq: i, Step: t, Want: n.cfg.InputSize, Got: len(step)}
			}
		}
	}
	return nil
}
