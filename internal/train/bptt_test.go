package train

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/san-kum/ringsim/internal/ctrnn"
)

func testNetwork(t *testing.T, seed int64) *ctrnn.Network {
	t.Helper()
	cfg := ctrnn.Config{HiddenSize: 4, InputSize: 3, OutputSize: 2, Tau: 0.1, Sigma: 0}
	net, err := ctrnn.New(cfg, rand.New(rand.NewSource(seed)))
	if err != nil {
		t.Fatalf("new network failed: %v", err)
	}
	return net
}

func randomBatch(rng *rand.Rand, batch, steps, inputSize, outputSize int) (inputs, targets [][][]float64) {
	inputs = make([][][]float64, batch)
	targets = make([][][]float64, batch)
	for i := range inputs {
		inputs[i] = make([][]float64, steps)
		targets[i] = make([][]float64, steps)
		for t := range inputs[i] {
			inputs[i][t] = make([]float64, inputSize)
			for j := range inputs[i][t] {
				inputs[i][t][j] = rng.NormFloat64()
			}
			angle := rng.Float64() * 2 * math.Pi
			targets[i][t] = make([]float64, outputSize)
			targets[i][t][0] = math.Sin(angle)
			targets[i][t][1] = math.Cos(angle)
		}
	}
	return inputs, targets
}

func TestLossMatchesDefinition(t *testing.T) {
	roll := &ctrnn.Rollout{
		Y: [][][]float64{{{1, 0}, {0, 2}}},
		R: [][][]float64{{{0.5, 0.5}, {1, 0}}},
	}
	targets := [][][]float64{{{0, 0}, {0, 0}}}

	// MSE = (1 + 0 + 0 + 4) / 4 = 1.25
	// mean(r^2) = (0.25 + 0.25 + 1 + 0) / 4 = 0.375
	lambda := 2.0
	got, err := Loss(roll, targets, lambda)
	if err != nil {
		t.Fatalf("loss failed: %v", err)
	}
	want := 1.25 + lambda*0.375
	if math.Abs(got-want) > 1e-12 {
		t.Errorf("loss = %f, want %f", got, want)
	}
}

func TestLossTargetShapeError(t *testing.T) {
	roll := &ctrnn.Rollout{
		Y: [][][]float64{{{1, 0}}},
		R: [][][]float64{{{0, 0}}},
	}

	cases := [][][][]float64{
		{},                 // wrong batch size
		{{{0, 0}, {0, 0}}}, // wrong step count
		{{{0}}},            // wrong output width
	}
	for i, targets := range cases {
		if _, err := Loss(roll, targets, 0.1); !errors.Is(err, ctrnn.ErrShapeMismatch) {
			t.Errorf("case %d: expected ErrShapeMismatch, got %v", i, err)
		}
	}
}

// TestBackwardNumerical checks every analytic parameter gradient
// against a central finite difference of the loss.
func TestBackwardNumerical(t *testing.T) {
	net := testNetwork(t, 21)
	rng := rand.New(rand.NewSource(22))
	inputs, targets := randomBatch(rng, 2, 5, 3, 2)
	const lambda = 0.01

	lossAt := func() float64 {
		roll, err := net.Unroll(inputs)
		if err != nil {
			t.Fatalf("unroll failed: %v", err)
		}
		loss, err := Loss(roll, targets, lambda)
		if err != nil {
			t.Fatalf("loss failed: %v", err)
		}
		return loss
	}

	roll, err := net.Unroll(inputs)
	if err != nil {
		t.Fatalf("unroll failed: %v", err)
	}
	grads, err := Backward(net, inputs, targets, roll, lambda)
	if err != nil {
		t.Fatalf("backward failed: %v", err)
	}

	check := func(name string, param, grad []float64) {
		const eps = 1e-6
		for i := range param {
			orig := param[i]
			param[i] = orig + eps
			plus := lossAt()
			param[i] = orig - eps
			minus := lossAt()
			param[i] = orig

			numerical := (plus - minus) / (2 * eps)
			analytic := grad[i]
			tol := 1e-7 + 1e-4*math.Max(math.Abs(numerical), math.Abs(analytic))
			if math.Abs(numerical-analytic) > tol {
				t.Errorf("%s[%d]: analytic %.10f vs numerical %.10f", name, i, analytic, numerical)
			}
		}
	}

	check("Win", net.Win.RawMatrix().Data, grads.Win.RawMatrix().Data)
	check("Wrec", net.Wrec.RawMatrix().Data, grads.Wrec.RawMatrix().Data)
	check("Wout", net.Wout.RawMatrix().Data, grads.Wout.RawMatrix().Data)
	check("Bias", net.Bias.RawVector().Data, grads.Bias.RawVector().Data)
}

func TestBackwardMasksDiagonal(t *testing.T) {
	net := testNetwork(t, 23)
	rng := rand.New(rand.NewSource(24))
	inputs, targets := randomBatch(rng, 3, 8, 3, 2)

	roll, err := net.Unroll(inputs)
	if err != nil {
		t.Fatalf("unroll failed: %v", err)
	}
	grads, err := Backward(net, inputs, targets, roll, 0.1)
	if err != nil {
		t.Fatalf("backward failed: %v", err)
	}

	h := net.Config().HiddenSize
	for i := 0; i < h; i++ {
		if grads.Wrec.At(i, i) != 0 {
			t.Errorf("gradient leaked onto Wrec diagonal at [%d][%d]: %f", i, i, grads.Wrec.At(i, i))
		}
	}
}

func TestGradientsNormScale(t *testing.T) {
	cfg := ctrnn.Config{HiddenSize: 2, InputSize: 1, OutputSize: 1, Tau: 0.1}
	g := NewGradients(cfg)
	g.Win.Set(0, 0, 3)
	g.Bias.SetVec(1, 4)

	if got := g.Norm(); math.Abs(got-5) > 1e-12 {
		t.Errorf("norm = %f, want 5", got)
	}

	g.Scale(0.5)
	if got := g.Win.At(0, 0); got != 1.5 {
		t.Errorf("scaled Win[0][0] = %f, want 1.5", got)
	}
	if got := g.Norm(); math.Abs(got-2.5) > 1e-12 {
		t.Errorf("norm after scale = %f, want 2.5", got)
	}
}
