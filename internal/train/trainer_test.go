package train

import (
	"context"
	"errors"
	"io"
	"math"
	"math/rand"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/san-kum/ringsim/internal/ctrnn"
	"github.com/san-kum/ringsim/internal/traj"
)

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func testSetup(t *testing.T) (*ctrnn.Network, *traj.Generator) {
	t.Helper()
	rng := rand.New(rand.NewSource(99))

	net, err := ctrnn.New(ctrnn.Config{
		HiddenSize: 24,
		InputSize:  3,
		OutputSize: 2,
		Tau:        0.1,
		Sigma:      0.1,
	}, rng)
	if err != nil {
		t.Fatalf("new network failed: %v", err)
	}

	gen, err := traj.NewGenerator(traj.Config{
		Tau:      0.1,
		Sigma:    0.1,
		Momentum: 0.8,
		PZero:    0.5,
	}, rng)
	if err != nil {
		t.Fatalf("new generator failed: %v", err)
	}

	return net, gen
}

func TestConfigValidate(t *testing.T) {
	base := Config{Epochs: 10, BatchSize: 4, SeqLen: 10, LearningRate: 0.01}
	if err := base.Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	bad := []Config{
		{Epochs: 0, BatchSize: 4, SeqLen: 10, LearningRate: 0.01},
		{Epochs: 10, BatchSize: 0, SeqLen: 10, LearningRate: 0.01},
		{Epochs: 10, BatchSize: 4, SeqLen: 0, LearningRate: 0.01},
		{Epochs: 10, BatchSize: 4, SeqLen: 10, LearningRate: 0},
	}
	for i, cfg := range bad {
		if err := cfg.Validate(); err == nil {
			t.Errorf("config %d: expected validation error", i)
		}
	}
}

func TestTrainingReducesLoss(t *testing.T) {
	cfg := Config{
		Epochs:       150,
		BatchSize:    8,
		SeqLen:       20,
		LearningRate: 0.05,
		Momentum:     0.9,
		RegLambda:    0.001,
		ClipNorm:     1.0,
	}
	net, gen := testSetup(t)

	trainer, err := New(net, gen, cfg, quietLogger())
	if err != nil {
		t.Fatalf("new trainer failed: %v", err)
	}

	history, err := trainer.Run(context.Background())
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if len(history.Losses) != cfg.Epochs {
		t.Fatalf("recorded %d losses, want %d", len(history.Losses), cfg.Epochs)
	}

	early := mean(history.Losses[:10])
	late := mean(history.Losses[len(history.Losses)-10:])
	if late >= early {
		t.Errorf("loss did not decrease: first-10 mean %.6f, last-10 mean %.6f", early, late)
	}
}

func mean(xs []float64) float64 {
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func TestTrainerEpochCallback(t *testing.T) {
	cfg := Config{
		Epochs:       5,
		BatchSize:    2,
		SeqLen:       10,
		LearningRate: 0.01,
		RegLambda:    0.001,
	}
	net, gen := testSetup(t)

	trainer, err := New(net, gen, cfg, quietLogger())
	if err != nil {
		t.Fatalf("new trainer failed: %v", err)
	}

	var seen []int
	trainer.OnEpoch(func(e Epoch) {
		seen = append(seen, e.Index)
		if math.IsNaN(e.Loss) {
			t.Errorf("epoch %d reported NaN loss", e.Index)
		}
	})

	if _, err := trainer.Run(context.Background()); err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if len(seen) != cfg.Epochs {
		t.Fatalf("callback fired %d times, want %d", len(seen), cfg.Epochs)
	}
	for i, idx := range seen {
		if idx != i {
			t.Errorf("callback order: got %d at position %d", idx, i)
		}
	}
}

func TestTrainerCancellation(t *testing.T) {
	cfg := Config{
		Epochs:       100000,
		BatchSize:    2,
		SeqLen:       10,
		LearningRate: 0.01,
	}
	net, gen := testSetup(t)

	trainer, err := New(net, gen, cfg, quietLogger())
	if err != nil {
		t.Fatalf("new trainer failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	trainer.OnEpoch(func(e Epoch) {
		if e.Index == 3 {
			cancel()
		}
	})

	history, err := trainer.Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(history.Losses) < 4 || len(history.Losses) > 5 {
		t.Errorf("recorded %d losses around cancellation, want about 4", len(history.Losses))
	}
}

func TestSGDMomentumUpdate(t *testing.T) {
	cfg := ctrnn.Config{HiddenSize: 2, InputSize: 3, OutputSize: 2, Tau: 0.1}
	net, err := ctrnn.NewFromParams(cfg,
		make([]float64, 6), make([]float64, 4), make([]float64, 2), make([]float64, 4),
		rand.New(rand.NewSource(1)))
	if err != nil {
		t.Fatalf("new failed: %v", err)
	}

	grads := NewGradients(cfg)
	grads.Win.Set(0, 0, 1.0)

	opt := NewSGD(0.1, 0.5)

	// v1 = -lr*g = -0.1, p = -0.1
	opt.Step(net, grads)
	if got := net.Win.At(0, 0); math.Abs(got-(-0.1)) > 1e-12 {
		t.Fatalf("after step 1: Win[0][0] = %f, want -0.1", got)
	}

	// v2 = 0.5*v1 - lr*g = -0.15, p = -0.25
	opt.Step(net, grads)
	if got := net.Win.At(0, 0); math.Abs(got-(-0.25)) > 1e-12 {
		t.Fatalf("after step 2: Win[0][0] = %f, want -0.25", got)
	}

	// Untouched parameters stay zero.
	if got := net.Win.At(1, 2); got != 0 {
		t.Errorf("Win[1][2] = %f, want 0", got)
	}
	if got := net.Bias.AtVec(0); got != 0 {
		t.Errorf("Bias[0] = %f, want 0", got)
	}
}
