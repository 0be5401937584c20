package train

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/san-kum/ringsim/internal/ctrnn"
	"github.com/san-kum/ringsim/internal/traj"
)

// Config carries the training hyperparameters.
type Config struct {
	Epochs       int
	BatchSize    int
	SeqLen       int
	LearningRate float64
	Momentum     float64
	RegLambda    float64
	ClipNorm     float64 // 0 disables gradient clipping
}

func (c Config) Validate() error {
	if c.Epochs < 1 {
		return fmt.Errorf("train: epochs must be >= 1, got %d", c.Epochs)
	}
	if c.BatchSize < 1 {
		return fmt.Errorf("train: batch size must be >= 1, got %d", c.BatchSize)
	}
	if c.SeqLen < 1 {
		return fmt.Errorf("train: seq_len must be >= 1, got %d", c.SeqLen)
	}
	if c.LearningRate <= 0 {
		return fmt.Errorf("train: learning rate must be positive, got %f", c.LearningRate)
	}
	return nil
}

// Epoch is the progress report emitted after each training step.
type Epoch struct {
	Index    int
	Loss     float64
	GradNorm float64
	Elapsed  time.Duration
}

// History records the loss curve of a completed run.
type History struct {
	Losses []float64
}

// Trainer draws a fresh trajectory batch per epoch, runs the network
// forward, backpropagates the composite loss and updates parameters.
type Trainer struct {
	net     *ctrnn.Network
	gen     *traj.Generator
	opt     *SGD
	cfg     Config
	log     *logrus.Logger
	onEpoch func(Epoch)
}

func New(net *ctrnn.Network, gen *traj.Generator, cfg Config, log *logrus.Logger) (*Trainer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = logrus.New()
	}
	return &Trainer{
		net: net,
		gen: gen,
		opt: NewSGD(cfg.LearningRate, cfg.Momentum),
		cfg: cfg,
		log: log,
	}, nil
}

// OnEpoch registers a callback invoked after every epoch, before the
// next batch is drawn. Used by the live view.
func (t *Trainer) OnEpoch(fn func(Epoch)) { t.onEpoch = fn }

// Run executes the training loop until the configured epoch count or
// ctx is cancelled. A cancelled run returns the history so far along
// with the context error.
func (t *Trainer) Run(ctx context.Context) (*History, error) {
	history := &History{Losses: make([]float64, 0, t.cfg.Epochs)}

	t.log.WithFields(logrus.Fields{
		"epochs":     t.cfg.Epochs,
		"batch_size": t.cfg.BatchSize,
		"seq_len":    t.cfg.SeqLen,
		"lr":         t.cfg.LearningRate,
		"reg_lambda": t.cfg.RegLambda,
	}).Info("training started")

	start := time.Now()

	for epoch := 0; epoch < t.cfg.Epochs; epoch++ {
		select {
		case <-ctx.Done():
			return history, ctx.Err()
		default:
		}

		loss, gradNorm, err := t.step()
		if err != nil {
			return history, fmt.Errorf("epoch %d: %w", epoch, err)
		}
		history.Losses = append(history.Losses, loss)

		report := Epoch{Index: epoch, Loss: loss, GradNorm: gradNorm, Elapsed: time.Since(start)}
		if t.onEpoch != nil {
			t.onEpoch(report)
		}
		if epoch%50 == 0 || epoch == t.cfg.Epochs-1 {
			t.log.WithFields(logrus.Fields{
				"epoch":     epoch,
				"loss":      loss,
				"grad_norm": gradNorm,
			}).Info("epoch complete")
		}
	}

	t.log.WithFields(logrus.Fields{
		"final_loss": history.Losses[len(history.Losses)-1],
		"elapsed":    time.Since(start),
	}).Info("training finished")

	return history, nil
}

// step runs one forward/backward/update cycle on a fresh batch.
func (t *Trainer) step() (loss, gradNorm float64, err error) {
	inputs, targets, err := t.gen.GenerateBatch(t.cfg.BatchSize, t.cfg.SeqLen)
	if err != nil {
		return 0, 0, err
	}

	roll, err := t.net.Unroll(inputs)
	if err != nil {
		return 0, 0, err
	}

	loss, err = Loss(roll, targets, t.cfg.RegLambda)
	if err != nil {
		return 0, 0, err
	}

	grads, err := Backward(t.net, inputs, targets, roll, t.cfg.RegLambda)
	if err != nil {
		return 0, 0, err
	}

	gradNorm = grads.Norm()
	if t.cfg.ClipNorm > 0 && gradNorm > t.cfg.ClipNorm {
		grads.Scale(t.cfg.ClipNorm / gradNorm)
	}

	t.opt.Step(t.net, grads)

	return loss, gradNorm, nil
}
