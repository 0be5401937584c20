package config

// Presets are named starting points for common experiments.
var Presets = map[string]*Config{
	// Tiny network for quick smoke runs.
	"small": {
		Network: NetworkConfig{HiddenSize: 16, InputSize: 3, OutputSize: 2, Tau: 0.1, Sigma: 0.1},
		Traj:    TrajConfig{Momentum: 0.8, PZero: 0.5, SeqLen: 25},
		Train: TrainConfig{Epochs: 100, BatchSize: 8, LearningRate: 0.01,
			Momentum: 0.9, RegLambda: 0.001, ClipNorm: 1.0},
		Device: "cpu",
	},
	// Long sequences with sparse turning, the hard integration regime.
	"sparse": {
		Network: NetworkConfig{HiddenSize: 100, InputSize: 3, OutputSize: 2, Tau: 0.1, Sigma: 0.1},
		Traj:    TrajConfig{Momentum: 0.8, PZero: 0.9, SeqLen: 250},
		Train: TrainConfig{Epochs: 1000, BatchSize: 16, LearningRate: 0.005,
			Momentum: 0.9, RegLambda: 0.001, ClipNorm: 1.0},
		Device: "parallel",
	},
	// Gentle turning and weak state noise; converges fast.
	"gentle": {
		Network: NetworkConfig{HiddenSize: 64, InputSize: 3, OutputSize: 2, Tau: 0.1, Sigma: 0.05},
		Traj:    TrajConfig{Momentum: 0.5, PZero: 0.3, SeqLen: 50},
		Train: TrainConfig{Epochs: 300, BatchSize: 16, LearningRate: 0.01,
			Momentum: 0.9, RegLambda: 0.0005, ClipNorm: 1.0},
		Device: "cpu",
	},
}

func GetPreset(name string) *Config {
	return Presets[name]
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	return names
}
