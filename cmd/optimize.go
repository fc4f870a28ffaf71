package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/powersim/powersim/pkg/chart"
	"github.com/powersim/powersim/pkg/config"
	"github.com/powersim/powersim/pkg/logging"
	"github.com/powersim/powersim/pkg/metrics"
	"github.com/powersim/powersim/pkg/optimizer"
	"github.com/powersim/powersim/pkg/penalty"
	"github.com/powersim/powersim/pkg/simulation"
)

var (
	schedule        string
	showEvaluations bool
)

var optimizeCmd = &cobra.Command{
	Use:   "optimize",
	Short: "Search for the pre-warm count with the lowest penalty",
	Long: `Runs a golden-section search over the number of servers that are on at
time zero. Every candidate is scored by simulating the configured
repetitions and penalizing temperature, utilization and response time.

With --schedule the calibration is repeated on a cron schedule until the
process is interrupted.`,
	RunE: runOptimize,
}

func init() {
	optimizeCmd.Flags().StringVar(&schedule, "schedule", "", "Re-run the calibration on this cron schedule, e.g. \"@every 1h\"")
	optimizeCmd.Flags().BoolVar(&showEvaluations, "evaluations", true, "Show every penalty evaluation")
	rootCmd.AddCommand(optimizeCmd)
}

func runOptimize(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	log := logging.FromContext(ctx)

	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}

	recorder, err := startMetrics(ctx)
	if err != nil {
		return err
	}

	c := &calibration{
		config:   cfg,
		recorder: recorder,
		opts:     simulationOptions(cmd),
		memoize:  seeded(cmd),
		out:      cmd.OutOrStdout(),
	}

	if schedule == "" {
		return c.run(ctx)
	}

	scheduler := cron.New(
		cron.WithLogger(log),
		cron.WithChain(cron.SkipIfStillRunning(log)),
	)
	if _, err := scheduler.AddFunc(schedule, func() {
		if err := c.run(ctx); err != nil {
			log.Error(err, "Calibration failed")
		}
	}); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", schedule, err)
	}

	log.Info("Scheduled calibration", "schedule", schedule)
	scheduler.Start()
	<-ctx.Done()
	<-scheduler.Stop().Done()
	log.Info("Calibration scheduler stopped")
	return nil
}

// calibration is one configured optimizer run
type calibration struct {
	config   *config.Config
	recorder *metrics.Recorder
	opts     []simulation.Option
	memoize  bool
	out      io.Writer
}

func (c *calibration) run(ctx context.Context) error {
	log := logging.FromContext(ctx)
	scorer := penalty.NewScorer(c.config, c.recorder, c.opts...)

	var evals []*penalty.Evaluation
	objective := func(ctx context.Context, x int) (float64, error) {
		ev, err := scorer.Evaluate(ctx, x)
		if err != nil {
			return 0, err
		}
		evals = append(evals, ev)
		return ev.Total, nil
	}

	// Seeded runs are deterministic per pre-warm count, so repeated points
	// need not be simulated again.
	var f optimizer.Objective = objective
	if c.memoize {
		f = optimizer.Memoize(objective)
	}

	opt := c.config.Optimizer
	gss := optimizer.New(optimizer.Config{
		Lower:         opt.Lower,
		Upper:         opt.Upper,
		Tolerance:     opt.Tolerance,
		MaxIterations: opt.MaxIterations,
	}, c.recorder)

	log.Info("Starting calibration", "lower", opt.Lower, "upper", opt.Upper, "tolerance", opt.Tolerance)
	res, err := gss.Minimize(ctx, f)
	if err != nil {
		return fmt.Errorf("calibration failed: %w", err)
	}

	best, fbest := res.Best()
	log.Info("Calibration finished",
		"bestPreWarm", best, "penalty", fbest, "iterations", res.Iterations, "converged", res.Converged)

	chartGen := chart.NewGenerator()
	fmt.Fprintln(c.out, chartGen.GenerateOptimizerTrace(res))
	if showEvaluations {
		fmt.Fprintln(c.out, chartGen.GeneratePenaltyTable(evals))
	}
	return nil
}
