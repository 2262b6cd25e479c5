package main

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	dataDir string

	output          string
	noHeader        bool
	delimiter       string
	recordDelimiter string
	weightColumn    int

	seed                    uint64
	nIters                  int
	warmupIters             int
	rate                    float64
	finalRate               float64
	inertiaMultiplier       float64
	centralForce            float64
	sameParticleForce       float64
	retain                  int
	squeezeRampupRate       float64
	squeezeRampupIters      int
	squeezeFinalForce       float64
	squeezeFinalInitialRate float64
	squeezeFinalIters       int
	normalize               bool
	workers                 int

	saveEvery   int
	snapshotDir string
	configFile  string
	preset      string
	record      bool
	metricsFile string
	debug       bool
)

// main registers the dimreduce commands and exits with status 1 on error.
func main() {
	rootCmd := &cobra.Command{
		Use:   "dimreduce",
		Short: "reduce CSV rows to a few coordinates with a particle simulation",
		Long: `dimreduce embeds every row of a CSV table into a small number of new
coordinates in [0,1]. Rows repel each other in proportion to how different
their selected columns are, are pulled toward 0.5, and surplus coordinates
can be squeezed flat at the end. The coordinates are prepended to the
original records.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".dimreduce", "data directory for recorded runs")

	runCmd := &cobra.Command{
		Use:   "run <columns> <n_out_coords> [path]",
		Short: "compute coordinates and write the augmented CSV",
		Example: `  dimreduce run 2:5 2 points.csv -o out.csv
  dimreduce run 3,4,10:5:100 3 -S 2 < big.csv`,
		Args: cobra.RangeArgs(2, 3),
		RunE: runReduce,
	}
	addRunFlags(runCmd)

	liveCmd := &cobra.Command{
		Use:   "live <columns> <n_out_coords> [path]",
		Short: "like run, with a live terminal view of the simulation",
		Args:  cobra.RangeArgs(2, 3),
		RunE:  runLive,
	}
	addRunFlags(liveCmd)

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list recorded runs",
		RunE:  listRuns,
	}

	showCmd := &cobra.Command{
		Use:   "show [run_id]",
		Short: "print run metadata",
		Args:  cobra.ExactArgs(1),
		RunE:  showRun,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot force and rate history of a run",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list available presets",
		Args:  cobra.NoArgs,
		RunE:  listPresets,
	}

	rootCmd.AddCommand(runCmd, liveCmd, listCmd, showCmd, plotCmd, presetsCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func addRunFlags(cmd *cobra.Command) {
	f := cmd.Flags()

	f.StringVarP(&output, "output", "o", "", "write the result here instead of stdout")
	f.BoolVar(&noHeader, "no-header", false, "first line of the CSV is data, not headers")
	f.StringVar(&delimiter, "delimiter", ",", "field delimiter (one ASCII character)")
	f.StringVar(&recordDelimiter, "record-delimiter", "", "record delimiter (one ASCII character, default newline)")
	f.IntVarP(&weightColumn, "weight", "w", 0, "column holding particle weights (1-based)")

	f.Uint64Var(&seed, "random-seed", 1, "seed for the initial particle positions")
	f.IntVarP(&nIters, "n-iters", "n", 100, "main iterations; each is quadratic in the row count")
	f.IntVar(&warmupIters, "warmup-iterations", 0, "iterations ramping the rate up (default n-iters/2)")
	f.Float64VarP(&rate, "rate", "r", 0.01, "distance the most pushed coordinate moves per iteration")
	f.Float64VarP(&finalRate, "final-rate", "R", 0, "rate at the end of annealing (default 0.02*rate)")
	f.Float64Var(&inertiaMultiplier, "inertia-multiplier", 0.9, "fraction of the previous movement carried over")
	f.Float64VarP(&centralForce, "central-force", "c", 20, "pull toward 0.5, relative to the average affinity")
	f.Float64VarP(&sameParticleForce, "same-particle-force", "F", 0.2, "repulsion added between every pair, even identical rows")
	f.IntVarP(&retain, "retain", "S", 0, "coordinates kept after squeezing (default all)")
	f.Float64Var(&squeezeRampupRate, "squeeze-rampup-rate", 0, "rate while squeeze force ramps up (default 0.2*rate)")
	f.IntVar(&squeezeRampupIters, "squeeze-rampup-iters", 0, "rampup iterations per squeezed coordinate (default n-iters)")
	f.Float64VarP(&squeezeFinalForce, "squeeze-final-force", "C", 0, "relative central force on squeezed coordinates (default 10*central-force)")
	f.Float64Var(&squeezeFinalInitialRate, "squeeze-final-initial-rate", 0, "rate at the start of the final squeeze (default squeeze-rampup-rate)")
	f.IntVar(&squeezeFinalIters, "squeeze-final-iters", 0, "final squeeze iterations (default n-iters)")
	f.BoolVar(&normalize, "normalize", false, "centre and scale input columns before computing affinities")
	f.IntVar(&workers, "workers", 0, "goroutines per step (default GOMAXPROCS)")

	f.IntVar(&saveEvery, "save-each-n-iters", 0, "write intermediate coordinates every n iterations")
	f.StringVar(&snapshotDir, "snapshot-dir", ".", "directory for intermediate snapshots")
	f.StringVar(&configFile, "config", "", "config file path (yaml)")
	f.StringVar(&preset, "preset", "", "use preset configuration")
	f.BoolVar(&record, "record", false, "record the run under --data")
	f.StringVar(&metricsFile, "metrics-file", "", "write Prometheus metrics to this file")
	f.BoolVar(&debug, "debug", false, "log algorithm parameters and per-step movement")
}
