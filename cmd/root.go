package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/powersim/powersim/pkg/config"
	"github.com/powersim/powersim/pkg/logging"
	"github.com/powersim/powersim/pkg/metrics"
	"github.com/powersim/powersim/pkg/simulation"
)

var (
	configFile  string
	logLevel    string
	devLog      bool
	metricsAddr string
	seed        int64
)

var rootCmd = &cobra.Command{
	Use:   "powersim",
	Short: "Server farm power and heat simulator",
	Long: `A CLI tool that simulates a farm of servers with dynamic shutdown.

Jobs arrive as a Poisson process and are routed to the server with the
shortest queue. Idle servers switch off and are woken up on demand. The
simulator reports throughput, jobs in system, utilization, energy and
temperature, and can calibrate how many servers to keep pre-warmed with a
golden-section search over a penalty score.`,
	SilenceUsage:      true,
	PersistentPreRunE: setupLogging,
	RunE:              runSimulate,
}

// Execute runs the root command until it finishes or the process is
// interrupted
func Execute() error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Path to configuration file (built-in defaults when empty)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level: error, warn, info, debug or trace")
	rootCmd.PersistentFlags().BoolVar(&devLog, "dev-log", false, "Use human readable development logging")
	rootCmd.PersistentFlags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address, e.g. :2112")
	rootCmd.PersistentFlags().Int64Var(&seed, "seed", 0, "Seed the random streams for reproducible runs")

	addSimulateFlags(rootCmd)
}

func setupLogging(cmd *cobra.Command, args []string) error {
	log, err := logging.New(logLevel, devLog)
	if err != nil {
		return err
	}
	cmd.SetContext(logging.IntoContext(cmd.Context(), log))
	return nil
}

func loadConfig(ctx context.Context) (*config.Config, error) {
	log := logging.FromContext(ctx)
	if configFile == "" {
		log.V(logging.DEBUG).Info("No configuration file given, using defaults")
		return config.Default(), nil
	}

	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	log.Info("Loaded configuration", "file", configFile)
	return cfg, nil
}

// simulationOptions returns the options shared by every command
func simulationOptions(cmd *cobra.Command) []simulation.Option {
	var opts []simulation.Option
	if seeded(cmd) {
		opts = append(opts, simulation.WithSeed(seed))
	}
	return opts
}

func seeded(cmd *cobra.Command) bool {
	return cmd.Flags().Changed("seed")
}

// startMetrics registers the recorder on a fresh registry and serves it until
// ctx is done. Without --metrics-addr the recorder is nil.
func startMetrics(ctx context.Context) (*metrics.Recorder, error) {
	if metricsAddr == "" {
		return nil, nil
	}
	log := logging.FromContext(ctx)

	registry := prometheus.NewRegistry()
	recorder, err := metrics.NewRecorder(registry)
	if err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	server := &http.Server{
		Addr:              metricsAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error(err, "Metrics server stopped", "addr", metricsAddr)
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	log.Info("Serving metrics", "addr", metricsAddr)
	return recorder, nil
}
