package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/powersim/powersim/pkg/chart"
	"github.com/powersim/powersim/pkg/logging"
	"github.com/powersim/powersim/pkg/simulation"
)

var (
	showChart        bool
	showTimeline     bool
	timelineLimit    int
	showEventSummary bool
	showServers      bool
	confidence       float64
	accuracy         int
	preWarm          int
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run the configured repetitions and print a report",
	RunE:  runSimulate,
}

func init() {
	addSimulateFlags(simulateCmd)
	rootCmd.AddCommand(simulateCmd)
}

func addSimulateFlags(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&showChart, "chart", true, "Plot the average number of jobs in system for the first repetition")
	cmd.Flags().BoolVarP(&showTimeline, "timeline", "t", false, "Show detailed timeline of events")
	cmd.Flags().IntVarP(&timelineLimit, "timeline-limit", "l", 50, "Limit number of timeline events to display")
	cmd.Flags().BoolVarP(&showEventSummary, "summary", "s", true, "Show event summary")
	cmd.Flags().BoolVar(&showServers, "servers", false, "Dump every server of every repetition")
	cmd.Flags().Float64Var(&confidence, "confidence", 0.95, "Confidence level of the reported intervals")
	cmd.Flags().IntVar(&accuracy, "accuracy", 4, "Decimal places in the summary")
	cmd.Flags().IntVar(&preWarm, "pre-warm", 0, "Servers on at time zero (overrides the configuration)")
}

func runSimulate(cmd *cobra.Command, args []string) error {
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

	trace := cfg.Simulation.Trace || showChart || showTimeline || showEventSummary
	opts := append(simulationOptions(cmd), simulation.WithRecorder(recorder), simulation.WithTrace(trace))
	if cmd.Flags().Changed("pre-warm") {
		opts = append(opts, simulation.WithPreWarm(preWarm))
	}

	sim := simulation.NewSimulator(cfg, opts...)
	log.Info("Running simulation",
		"servers", cfg.Simulation.NumServers,
		"lambda", cfg.Simulation.Lambda(),
		"mu", cfg.Simulation.ServiceRate,
		"duration", cfg.Simulation.Duration,
		"repetitions", cfg.Simulation.Repetitions,
		"preWarm", sim.PreWarm())

	res, err := sim.Run(ctx)
	if err != nil {
		return fmt.Errorf("simulation failed: %w", err)
	}

	out := cmd.OutOrStdout()
	chartGen := chart.NewGenerator()
	reps := res.Repetitions()

	var events, warnings []simulation.Event
	for _, rep := range reps {
		events = append(events, rep.Events...)
		for _, event := range rep.Events {
			if event.IsWarning {
				warnings = append(warnings, event)
			}
		}
	}

	if showChart && len(reps) > 0 {
		fmt.Fprintln(out, chartGen.GenerateJobsChart(reps[0].TimePoints))
	}

	fmt.Fprintln(out, chartGen.GenerateRunSummary(res, accuracy))
	fmt.Fprintln(out, chartGen.GenerateConfidenceSummary(res, confidence, accuracy))

	if showServers {
		fmt.Fprintln(out, chartGen.GenerateServerDump(res))
	}

	if showEventSummary {
		fmt.Fprintln(out, chartGen.GenerateEventSummary(events))
	}

	if trace {
		fmt.Fprintln(out, chartGen.GenerateWarnings(warnings))
	}

	if showTimeline && len(reps) > 0 {
		fmt.Fprintln(out, chartGen.GenerateDetailedTimeline(reps[0].Events, timelineLimit))
	}

	return nil
}
