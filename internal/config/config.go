// Package config loads and saves run configuration as YAML. One Config
// value carries every hyperparameter and is handed to the trajectory
// generator, the network and the trainer at construction.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/ringsim/internal/ctrnn"
	"github.com/san-kum/ringsim/internal/traj"
	"github.com/san-kum/ringsim/internal/train"
)

const (
	DefaultHiddenSize   = 100
	DefaultInputSize    = 3
	DefaultOutputSize   = 2
	DefaultTau          = 0.1
	DefaultSigma        = 0.1
	DefaultMomentum     = 0.8
	DefaultPZero        = 0.5
	DefaultSeqLen       = 100
	DefaultBatchSize    = 16
	DefaultEpochs       = 500
	DefaultLearningRate = 0.01
	DefaultOptMomentum  = 0.9
	DefaultRegLambda    = 0.001
	DefaultClipNorm     = 1.0
)

type Config struct {
	Network NetworkConfig `yaml:"network"`
	Traj    TrajConfig    `yaml:"trajectory"`
	Train   TrainConfig   `yaml:"training"`
	Seed    int64         `yaml:"seed"`
	Device  string        `yaml:"device"`
}

type NetworkConfig struct {
	HiddenSize int     `yaml:"hidden_size"`
	InputSize  int     `yaml:"input_size"`
	OutputSize int     `yaml:"output_size"`
	Tau        float64 `yaml:"tau"`
	Sigma      float64 `yaml:"sigma"`
}

type TrajConfig struct {
	Momentum float64 `yaml:"momentum"`
	PZero    float64 `yaml:"p_zero"`
	SeqLen   int     `yaml:"seq_len"`
}

type TrainConfig struct {
	Epochs       int     `yaml:"epochs"`
	BatchSize    int     `yaml:"batch_size"`
	LearningRate float64 `yaml:"learning_rate"`
	Momentum     float64 `yaml:"momentum"`
	RegLambda    float64 `yaml:"reg_lambda"`
	ClipNorm     float64 `yaml:"clip_norm"`
}

func DefaultConfig() *Config {
	return &Config{
		Network: NetworkConfig{
			HiddenSize: DefaultHiddenSize,
			InputSize:  DefaultInputSize,
			OutputSize: DefaultOutputSize,
			Tau:        DefaultTau,
			Sigma:      DefaultSigma,
		},
		Traj: TrajConfig{
			Momentum: DefaultMomentum,
			PZero:    DefaultPZero,
			SeqLen:   DefaultSeqLen,
		},
		Train: TrainConfig{
			Epochs:       DefaultEpochs,
			BatchSize:    DefaultBatchSize,
			LearningRate: DefaultLearningRate,
			Momentum:     DefaultOptMomentum,
			RegLambda:    DefaultRegLambda,
			ClipNorm:     DefaultClipNorm,
		},
		Device: "cpu",
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// NetworkConfig maps the YAML view onto the simulator's configuration.
func (c *Config) NetworkConfig() ctrnn.Config {
	return ctrnn.Config{
		HiddenSize: c.Network.HiddenSize,
		InputSize:  c.Network.InputSize,
		OutputSize: c.Network.OutputSize,
		Tau:        c.Network.Tau,
		Sigma:      c.Network.Sigma,
		Device:     c.Device,
	}
}

// TrajConfig maps the YAML view onto the generator's configuration.
// Tau and Sigma are shared with the network.
func (c *Config) TrajConfig() traj.Config {
	return traj.Config{
		Tau:      c.Network.Tau,
		Sigma:    c.Network.Sigma,
		Momentum: c.Traj.Momentum,
		PZero:    c.Traj.PZero,
	}
}

// TrainConfig maps the YAML view onto the trainer's configuration.
func (c *Config) TrainConfig() train.Config {
	return train.Config{
		Epochs:       c.Train.Epochs,
		BatchSize:    c.Train.BatchSize,
		SeqLen:       c.Traj.SeqLen,
		LearningRate: c.Train.LearningRate,
		Momentum:     c.Train.Momentum,
		RegLambda:    c.Train.RegLambda,
		ClipNorm:     c.Train.ClipNorm,
	}
}
