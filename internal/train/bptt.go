package train

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/ringsim/internal/ctrnn"
)

// Gradients accumulates the loss gradient for every trainable parameter.
type Gradients struct {
	Win  *mat.Dense
	Wrec *mat.Dense
	Wout *mat.Dense
	Bias *mat.VecDense
}

func NewGradients(cfg ctrnn.Config) *Gradients {
	return &Gradients{
		Win:  mat.NewDense(cfg.HiddenSize, cfg.InputSize, nil),
		Wrec: mat.NewDense(cfg.HiddenSize, cfg.HiddenSize, nil),
		Wout: mat.NewDense(cfg.OutputSize, cfg.HiddenSize, nil),
		Bias: mat.NewVecDense(cfg.HiddenSize, nil),
	}
}

// Norm is the global L2 norm over all parameter gradients.
func (g *Gradients) Norm() float64 {
	sum := 0.0
	for _, data := range g.flat() {
		for _, v := range data {
			sum += v * v
		}
	}
	return math.Sqrt(sum)
}

// Scale multiplies every gradient entry by f.
func (g *Gradients) Scale(f float64) {
	for _, data := range g.flat() {
		for i := range data {
			data[i] *= f
		}
	}
}

func (g *Gradients) flat() [][]float64 {
	return [][]float64{
		g.Win.RawMatrix().Data,
		g.Wrec.RawMatrix().Data,
		g.Wout.RawMatrix().Data,
		g.Bias.RawVector().Data,
	}
}

// Loss evaluates the composite objective over a rollout:
// MSE over outputs plus lambda times the mean squared firing rate.
func Loss(roll *ctrnn.Rollout, targets [][][]float64, lambda float64) (float64, error) {
	if err := checkTargets(roll, targets); err != nil {
		return 0, err
	}

	var mse, reg float64
	var nOut, nRate int
	for i := range roll.Y {
		for t := range roll.Y[i] {
			for j, y := range roll.Y[i][t] {
				d := y - targets[i][t][j]
				mse += d * d
				nOut++
			}
			for _, r := range roll.R[i][t] {
				reg += r * r
				nRate++
			}
		}
	}
	return mse/float64(nOut) + lambda*reg/float64(nRate), nil
}

// Backward computes dLoss/dParams for the rollout produced by
// Network.Unroll on u. The derivation follows the forward update
// exactly: the output at step t reads the pre-update rate, so its
// gradient enters at x[t], while the drive terms of step t propagate
// through x[t+1].
func Backward(net *ctrnn.Network, u, targets [][][]float64, roll *ctrnn.Rollout, lambda float64) (*Gradients, error) {
	if err := checkTargets(roll, targets); err != nil {
		return nil, err
	}

	cfg := net.Config()
	h := cfg.HiddenSize
	batch := len(roll.Y)
	steps := len(roll.Y[0])

	grads := NewGradients(cfg)

	// The Euler step is x' = (1-alpha)*x + alpha*(drive) + noise,
	// with alpha = dt/tau = 1/10 for dt = tau/10.
	alpha := (cfg.Tau / 10) / cfg.Tau
	decay := 1 - alpha

	coefOut := 2 / float64(batch*steps*cfg.OutputSize)
	coefReg := 2 * lambda / float64(batch*steps*h)

	eff := net.EffectiveRecurrent()
	effT := eff.T()
	woutT := net.Wout.T()

	gy := mat.NewVecDense(cfg.OutputSize, nil)
	gr := mat.NewVecDense(h, nil)
	tmp := mat.NewVecDense(h, nil)
	gx := mat.NewVecDense(h, nil) // dLoss/dx at the step being processed

	for i := 0; i < batch; i++ {
		gx.Zero()

		for t := steps - 1; t >= 0; t-- {
			rVec := mat.NewVecDense(h, roll.R[i][t])
			uVec := mat.NewVecDense(cfg.InputSize, u[i][t])

			// Entering the loop, gx holds dLoss/dx[t+1]; the drive of
			// step t (rec, input, bias) reaches the loss through it.
			grads.Wrec.RankOne(grads.Wrec, alpha, gx, rVec)
			grads.Win.RankOne(grads.Win, alpha, gx, uVec)
			grads.Bias.AddScaledVec(grads.Bias, alpha, gx)

			for j := 0; j < cfg.OutputSize; j++ {
				gy.SetVec(j, coefOut*(roll.Y[i][t][j]-targets[i][t][j]))
			}
			grads.Wout.RankOne(grads.Wout, 1, gy, rVec)

			// dLoss/dr[t]: output readout, rate regularizer, and the
			// recurrent drive feeding x[t+1].
			gr.MulVec(woutT, gy)
			gr.AddScaledVec(gr, coefReg, rVec)
			tmp.MulVec(effT, gx)
			gr.AddScaledVec(gr, alpha, tmp)

			// dLoss/dx[t] = decay*dLoss/dx[t+1] + dr/dx * dLoss/dr[t].
			for j := 0; j < h; j++ {
				gx.SetVec(j, decay*gx.AtVec(j)+gr.AtVec(j)*ctrnn.RateDeriv(roll.X[i][t][j]))
			}
		}
	}

	// The mask is not trainable; gradient cannot leak onto the diagonal.
	grads.Wrec.MulElem(grads.Wrec, net.Mask)

	return grads, nil
}

func checkTargets(roll *ctrnn.Rollout, targets [][][]float64) error {
	if len(targets) != len(roll.Y) {
		return fmt.Errorf("%w: %d target sequences for %d output sequences",
			ctrnn.ErrShapeMismatch, len(targets), len(roll.Y))
	}
	for i := range targets {
		if len(targets[i]) != len(roll.Y[i]) {
			return fmt.Errorf("%w: target sequence %d has %d steps, output has %d",
				ctrnn.ErrShapeMismatch, i, len(targets[i]), len(roll.Y[i]))
		}
		for t := range targets[i] {
			if len(targets[i][t]) != len(roll.Y[i][t]) {
				return fmt.Errorf("%w: target %d step %d has %d values, output has %d",
					ctrnn.ErrShapeMismatch, i, t, len(targets[i][t]), len(roll.Y[i][t]))
			}
		}
	}
	return nil
}
