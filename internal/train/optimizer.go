package train

import (
	"github.com/san-kum/ringsim/internal/ctrnn"
)

// SGD is stochastic gradient descent with classical momentum. Velocities
// are allocated lazily on the first step.
type SGD struct {
	learningRate float64
	momentum     float64

	velocities [][]float64
}

func NewSGD(learningRate, momentum float64) *SGD {
	return &SGD{learningRate: learningRate, momentum: momentum}
}

// Step applies one in-place parameter update. The mask matrix is never
// touched: the gradient it would need is zeroed in Backward.
func (o *SGD) Step(net *ctrnn.Network, grads *Gradients) {
	params := [][]float64{
		net.Win.RawMatrix().Data,
		net.Wrec.RawMatrix().Data,
		net.Wout.RawMatrix().Data,
		net.Bias.RawVector().Data,
	}
	gs := grads.flat()

	if o.velocities == nil {
		o.velocities = make([][]float64, len(params))
		for k := range params {
			o.velocities[k] = make([]float64, len(params[k]))
		}
	}

	for k := range params {
		p, g, v := params[k], gs[k], o.velocities[k]
		for i := range p {
			v[i] = o.momentum*v[i] - o.learningRate*g[i]
			p[i] += v[i]
		}
	}
}
