package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand"
	"os"
	"text/tabwriter"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/guptarohit/asciigraph"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/san-kum/ringsim/internal/analysis"
	"github.com/san-kum/ringsim/internal/config"
	"github.com/san-kum/ringsim/internal/ctrnn"
	"github.com/san-kum/ringsim/internal/export"
	"github.com/san-kum/ringsim/internal/metrics"
	"github.com/san-kum/ringsim/internal/optim"
	"github.com/san-kum/ringsim/internal/storage"
	"github.com/san-kum/ringsim/internal/traj"
	"github.com/san-kum/ringsim/internal/train"
	"github.com/san-kum/ringsim/internal/tui"
	"github.com/san-kum/ringsim/internal/viz"
)

var (
	dataDir    string
	configFile string
	preset     string
	seed       int64
	device     string

	hiddenSize int
	seqLen     int
	epochs     int
	batchSize  int
	lr         float64
	regLambda  float64
	sigma      float64
	momentum   float64
	pZero      float64
	tau        float64

	watch     bool
	evalBatch int
	svgPath   string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "ringsim",
		Short: "path-integration RNN training lab",
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".ringsim", "data directory")

	trainCmd := &cobra.Command{
		Use:   "train",
		Short: "train a network on generated trajectories",
		RunE:  runTrain,
	}
	trainCmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	trainCmd.Flags().StringVar(&preset, "preset", "", "use preset configuration")
	trainCmd.Flags().Int64Var(&seed, "seed", time.Now().UnixNano(), "random seed")
	trainCmd.Flags().StringVar(&device, "device", "cpu", "execution device (cpu, parallel)")
	trainCmd.Flags().IntVar(&hiddenSize, "hidden", config.DefaultHiddenSize, "hidden units")
	trainCmd.Flags().IntVar(&seqLen, "seq-len", config.DefaultSeqLen, "trajectory length")
	trainCmd.Flags().IntVar(&epochs, "epochs", config.DefaultEpochs, "training epochs")
	trainCmd.Flags().IntVar(&batchSize, "batch", config.DefaultBatchSize, "batch size")
	trainCmd.Flags().Float64Var(&lr, "lr", config.DefaultLearningRate, "learning rate")
	trainCmd.Flags().Float64Var(&regLambda, "reg-lambda", config.DefaultRegLambda, "rate regularization weight")
	trainCmd.Flags().Float64Var(&sigma, "sigma", config.DefaultSigma, "noise scale")
	trainCmd.Flags().Float64Var(&momentum, "momentum", config.DefaultMomentum, "angular velocity momentum")
	trainCmd.Flags().Float64Var(&pZero, "p-zero", config.DefaultPZero, "zero-inflation probability")
	trainCmd.Flags().Float64Var(&tau, "tau", config.DefaultTau, "membrane time constant")
	trainCmd.Flags().BoolVar(&watch, "watch", false, "live terminal view of training")

	generateCmd := &cobra.Command{
		Use:   "generate",
		Short: "sample a trajectory and plot it",
		RunE:  runGenerate,
	}
	generateCmd.Flags().Int64Var(&seed, "seed", time.Now().UnixNano(), "random seed")
	generateCmd.Flags().IntVar(&seqLen, "seq-len", config.DefaultSeqLen, "trajectory length")
	generateCmd.Flags().Float64Var(&sigma, "sigma", config.DefaultSigma, "noise scale")
	generateCmd.Flags().Float64Var(&momentum, "momentum", config.DefaultMomentum, "angular velocity momentum")
	generateCmd.Flags().Float64Var(&pZero, "p-zero", config.DefaultPZero, "zero-inflation probability")
	generateCmd.Flags().Float64Var(&tau, "tau", config.DefaultTau, "timestep scale")

	evalCmd := &cobra.Command{
		Use:   "eval [run_id]",
		Short: "evaluate a trained run on fresh trajectories",
		Args:  cobra.ExactArgs(1),
		RunE:  runEval,
	}
	evalCmd.Flags().Int64Var(&seed, "seed", time.Now().UnixNano(), "random seed")
	evalCmd.Flags().IntVar(&evalBatch, "batch", 32, "evaluation batch size")
	evalCmd.Flags().IntVar(&seqLen, "seq-len", config.DefaultSeqLen, "trajectory length")
	evalCmd.Flags().Float64Var(&momentum, "momentum", config.DefaultMomentum, "angular velocity momentum")
	evalCmd.Flags().Float64Var(&pZero, "p-zero", config.DefaultPZero, "zero-inflation probability")

	traceCmd := &cobra.Command{
		Use:   "trace [run_id]",
		Short: "plot decoded vs true heading on a fresh trajectory",
		Args:  cobra.ExactArgs(1),
		RunE:  runTrace,
	}
	traceCmd.Flags().Int64Var(&seed, "seed", time.Now().UnixNano(), "random seed")
	traceCmd.Flags().IntVar(&seqLen, "seq-len", config.DefaultSeqLen, "trajectory length")
	traceCmd.Flags().Float64Var(&momentum, "momentum", config.DefaultMomentum, "angular velocity momentum")
	traceCmd.Flags().Float64Var(&pZero, "p-zero", config.DefaultPZero, "zero-inflation probability")
	traceCmd.Flags().StringVar(&svgPath, "svg", "", "also write the trace as an SVG file")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot a run's loss curve",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "export run metadata as JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportRun,
	}

	sweepCmd := &cobra.Command{
		Use:   "sweep",
		Short: "grid-search learning rate and regularization",
		RunE:  runSweep,
	}
	sweepCmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	sweepCmd.Flags().StringVar(&preset, "preset", "", "use preset configuration")
	sweepCmd.Flags().Int64Var(&seed, "seed", time.Now().UnixNano(), "random seed")
	sweepCmd.Flags().IntVar(&epochs, "epochs", 100, "training epochs per grid point")
	sweepCmd.Flags().IntVar(&seqLen, "seq-len", config.DefaultSeqLen, "trajectory length")
	sweepCmd.Flags().IntVar(&batchSize, "batch", config.DefaultBatchSize, "batch size")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list preset configurations",
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, name := range config.ListPresets() {
				fmt.Println(name)
			}
			return nil
		},
	}

	rootCmd.AddCommand(trainCmd, generateCmd, evalCmd, traceCmd, listCmd, plotCmd, exportCmd, sweepCmd, presetsCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// resolveConfig merges preset, config file and explicitly set flags,
// in that order of increasing precedence.
func resolveConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()

	if preset != "" {
		p := config.GetPreset(preset)
		if p == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
		}
		*cfg = *p
	}

	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}

	if cmd.Flags().Changed("hidden") {
		cfg.Network.HiddenSize = hiddenSize
	}
	if cmd.Flags().Changed("tau") {
		cfg.Network.Tau = tau
	}
	if cmd.Flags().Changed("sigma") {
		cfg.Network.Sigma = sigma
	}
	if cmd.Flags().Changed("momentum") {
		cfg.Traj.Momentum = momentum
	}
	if cmd.Flags().Changed("p-zero") {
		cfg.Traj.PZero = pZero
	}
	if cmd.Flags().Changed("seq-len") {
		cfg.Traj.SeqLen = seqLen
	}
	if cmd.Flags().Changed("epochs") {
		cfg.Train.Epochs = epochs
	}
	if cmd.Flags().Changed("batch") {
		cfg.Train.BatchSize = batchSize
	}
	if cmd.Flags().Changed("lr") {
		cfg.Train.LearningRate = lr
	}
	if cmd.Flags().Changed("reg-lambda") {
		cfg.Train.RegLambda = regLambda
	}
	if cmd.Flags().Changed("device") {
		cfg.Device = device
	}
	if cmd.Flags().Changed("seed") || cfg.Seed == 0 {
		cfg.Seed = seed
	}

	return cfg, nil
}

func runTrain(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}

	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}

	rng := rand.New(rand.NewSource(cfg.Seed))

	gen, err := traj.NewGenerator(cfg.TrajConfig(), rng)
	if err != nil {
		return err
	}
	net, err := ctrnn.New(cfg.NetworkConfig(), rng)
	if err != nil {
		return err
	}

	log := logrus.New()
	trainer, err := train.New(net, gen, cfg.TrainConfig(), log)
	if err != nil {
		return err
	}

	var history *train.History
	if watch {
		history, err = trainWatched(trainer, log, cfg.Train.Epochs)
	} else {
		history, err = trainer.Run(context.Background())
	}
	if history == nil || len(history.Losses) == 0 {
		if err != nil {
			return err
		}
		return fmt.Errorf("no epochs completed")
	}

	results, evalErr := evaluate(net, gen, cfg.Train.BatchSize, cfg.Traj.SeqLen)
	if evalErr != nil {
		return evalErr
	}

	meta := storage.RunMetadata{
		Seed:       cfg.Seed,
		HiddenSize: cfg.Network.HiddenSize,
		SeqLen:     cfg.Traj.SeqLen,
		Epochs:     len(history.Losses),
		FinalLoss:  history.Losses[len(history.Losses)-1],
		Metrics:    results,
	}
	runID, err := st.Save(meta, history.Losses, net)
	if err != nil {
		return err
	}

	fmt.Printf("run id: %s\n", runID)
	fmt.Printf("final loss: %.6f\n", meta.FinalLoss)
	fmt.Println("\nmetrics:")
	for name, val := range results {
		fmt.Printf("  %s: %.6f\n", name, val)
	}

	return nil
}

// trainWatched runs training in the background while a bubbletea
// program shows progress. Quitting the view cancels training; the
// partial history is still saved.
func trainWatched(trainer *train.Trainer, log *logrus.Logger, totalEpochs int) (*train.History, error) {
	log.SetOutput(io.Discard)

	updates := make(chan tea.Msg, 64)
	send := func(msg tea.Msg) {
		// Dropped frames are fine; nothing drains the channel once the
		// view has quit.
		select {
		case updates <- msg:
		default:
		}
	}
	trainer.OnEpoch(func(e train.Epoch) {
		send(tui.EpochMsg{Index: e.Index, Loss: e.Loss, GradNorm: e.GradNorm, Elapsed: e.Elapsed})
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	type outcome struct {
		history *train.History
		err     error
	}
	done := make(chan outcome, 1)

	go func() {
		history, err := trainer.Run(ctx)
		send(tui.DoneMsg{Err: err})
		done <- outcome{history, err}
	}()

	p := tea.NewProgram(tui.New(totalEpochs, updates))
	if _, err := p.Run(); err != nil {
		cancel()
		out := <-done
		return out.history, err
	}
	cancel()

	out := <-done
	if errors.Is(out.err, context.Canceled) {
		return out.history, nil
	}
	return out.history, out.err
}

func evaluate(net *ctrnn.Network, gen *traj.Generator, batch, seqLen int) (map[string]float64, error) {
	inputs, targets, err := gen.GenerateBatch(batch, seqLen)
	if err != nil {
		return nil, err
	}

	y, rates, err := net.Forward(inputs)
	if err != nil {
		return nil, err
	}

	ms := []metrics.Metric{
		metrics.NewHeadingError(),
		metrics.NewRateActivity(),
		metrics.NewOutputNorm(),
	}
	metrics.ObserveAll(ms, y, targets, rates)
	return metrics.Collect(ms), nil
}

// runSweep trains a fresh network at every grid point with the same
// seed and reports the point with the lowest final loss.
func runSweep(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	cfg.Train.Epochs = epochs

	log := logrus.New()
	log.SetOutput(io.Discard)

	run := func(ctx context.Context, params map[string]float64) (float64, error) {
		pointCfg := *cfg
		pointCfg.Train.LearningRate = params["lr"]
		pointCfg.Train.RegLambda = params["reg_lambda"]

		rng := rand.New(rand.NewSource(pointCfg.Seed))

		gen, err := traj.NewGenerator(pointCfg.TrajConfig(), rng)
		if err != nil {
			return 0, err
		}
		net, err := ctrnn.New(pointCfg.NetworkConfig(), rng)
		if err != nil {
			return 0, err
		}

		trainer, err := train.New(net, gen, pointCfg.TrainConfig(), log)
		if err != nil {
			return 0, err
		}

		history, err := trainer.Run(ctx)
		if err != nil {
			return 0, err
		}

		loss := history.Losses[len(history.Losses)-1]
		fmt.Printf("lr=%.4f reg_lambda=%.5f  loss=%.6f\n", params["lr"], params["reg_lambda"], loss)
		return loss, nil
	}

	gs := optim.NewGridSearch(
		[]string{"lr", "reg_lambda"},
		[][]float64{
			{0.001, 0.005, 0.01, 0.05},
			{0.0001, 0.001, 0.01},
		},
	)

	best, score, err := gs.Search(cmd.Context(), run)
	if err != nil {
		return err
	}
	if best == nil {
		return fmt.Errorf("no grid point completed")
	}

	fmt.Printf("\nbest: lr=%.4f reg_lambda=%.5f  loss=%.6f\n", best["lr"], best["reg_lambda"], score)
	return nil
}

func runGenerate(cmd *cobra.Command, args []string) error {
	cfg := traj.Config{Tau: tau, Sigma: sigma, Momentum: momentum, PZero: pZero}

	gen, err := traj.NewGenerator(cfg, rand.New(rand.NewSource(seed)))
	if err != nil {
		return err
	}

	tr, err := gen.Generate(seqLen)
	if err != nil {
		return err
	}

	fmt.Printf("theta0: %.4f rad\n\n", tr.Theta0)

	fmt.Println(asciigraph.Plot(tr.Theta,
		asciigraph.Height(10),
		asciigraph.Width(80),
		asciigraph.Caption("heading (rad)"),
	))
	fmt.Println()
	fmt.Println(asciigraph.Plot(tr.AV,
		asciigraph.Height(10),
		asciigraph.Width(80),
		asciigraph.Caption("angular velocity"),
	))

	return nil
}

func runEval(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	rng := rand.New(rand.NewSource(seed))

	net, err := st.LoadNetwork(runID, rng)
	if err != nil {
		return err
	}

	netCfg := net.Config()
	gen, err := traj.NewGenerator(traj.Config{
		Tau:      netCfg.Tau,
		Sigma:    netCfg.Sigma,
		Momentum: momentum,
		PZero:    pZero,
	}, rng)
	if err != nil {
		return err
	}

	results, err := evaluate(net, gen, evalBatch, seqLen)
	if err != nil {
		return err
	}

	fmt.Printf("run: %s\n\nmetrics:\n", runID)
	for name, val := range results {
		fmt.Printf("  %s: %.6f\n", name, val)
	}

	return nil
}

func runTrace(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	rng := rand.New(rand.NewSource(seed))

	net, err := st.LoadNetwork(runID, rng)
	if err != nil {
		return err
	}

	netCfg := net.Config()
	gen, err := traj.NewGenerator(traj.Config{
		Tau:      netCfg.Tau,
		Sigma:    netCfg.Sigma,
		Momentum: momentum,
		PZero:    pZero,
	}, rng)
	if err != nil {
		return err
	}

	tr, err := gen.Generate(seqLen)
	if err != nil {
		return err
	}

	y, _, err := net.Forward([][][]float64{tr.Input()})
	if err != nil {
		return err
	}

	pred := make([]float64, seqLen)
	for t, out := range y[0] {
		pred[t] = math.Atan2(out[0], out[1])
	}

	canvas := viz.HeadingTrace(pred, tr.Theta, 80, 15)
	fmt.Println(canvas.String())
	fmt.Println("decoded vs true heading (rad, wrapped)")

	fmt.Println()
	fmt.Println(viz.RingTrace(y[0], 16).String())
	fmt.Println("network output on the unit ring")

	drift, err := analysis.Drift(net, tr.Theta0, seqLen, seqLen/5)
	if err != nil {
		return err
	}
	fmt.Printf("\nzero-input drift: %.5f rad/step, total %.4f rad over %d steps\n",
		drift.Rate, drift.Final, seqLen)

	sep, err := analysis.Separation(net, tr.Theta0, 0.05, seqLen)
	if err != nil {
		return err
	}
	fmt.Printf("cue separation exponent: %.4f\n", sep)

	if svgPath != "" {
		if err := export.WriteSVG(canvas, svgPath, 4); err != nil {
			return err
		}
		fmt.Printf("wrote %s\n", svgPath)
	}

	return nil
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTIME\tHIDDEN\tSEQ\tEPOCHS\tLOSS")

	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%.6f\n",
			run.ID,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.HiddenSize,
			run.SeqLen,
			run.Epochs,
			run.FinalLoss,
		)
	}

	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}

	losses, err := st.LoadLosses(runID)
	if err != nil {
		return err
	}
	if len(losses) == 0 {
		return fmt.Errorf("no data to plot")
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("epochs: %d\n\n", len(losses))

	fmt.Println(asciigraph.Plot(losses,
		asciigraph.Height(15),
		asciigraph.Width(80),
		asciigraph.Caption("training loss"),
	))

	return nil
}

func exportRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(meta)
}
