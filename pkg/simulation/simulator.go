package simulation

import (
	"context"
	"fmt"
	"time"

	"github.com/go-logr/logr"
	"golang.org/x/sync/errgroup"

	"github.com/powersim/powersim/pkg/config"
	"github.com/powersim/powersim/pkg/logging"
	"github.com/powersim/powersim/pkg/metrics"
)

// Simulator runs batches of independent repetitions of the dispatch model
type Simulator struct {
	config   *config.Config
	preWarm  int
	workers  int
	samplers SamplerFactory
	seed     *int64
	log      *logr.Logger
	recorder *metrics.Recorder
	trace    bool
}

// Option customizes a Simulator
type Option func(*Simulator)

// WithPreWarm overrides the number of servers on at time zero.
func WithPreWarm(n int) Option {
	return func(s *Simulator) {
		s.preWarm = n
	}
}

// WithWorkers bounds how many repetitions run concurrently.
func WithWorkers(n int) Option {
	return func(s *Simulator) {
		s.workers = n
	}
}

// WithSamplerFactory injects the per-repetition random inputs.
func WithSamplerFactory(f SamplerFactory) Option {
	return func(s *Simulator) {
		s.samplers = f
	}
}

// WithSeed makes every repetition reproducible. Repetition i uses seed+i.
func WithSeed(seed int64) Option {
	return func(s *Simulator) {
		s.seed = &seed
	}
}

// WithLogger sets the logger instead of taking it from the context.
func WithLogger(log logr.Logger) Option {
	return func(s *Simulator) {
		s.log = &log
	}
}

// WithRecorder reports repetitions to a metrics recorder.
func WithRecorder(r *metrics.Recorder) Option {
	return func(s *Simulator) {
		s.recorder = r
	}
}

// WithTrace records time points and events for every repetition.
func WithTrace(trace bool) Option {
	return func(s *Simulator) {
		s.trace = trace
	}
}

// NewSimulator creates a new simulator
func NewSimulator(cfg *config.Config, opts ...Option) *Simulator {
	s := &Simulator{
		config:  cfg,
		preWarm: cfg.Simulation.PreWarmCount(),
		workers: cfg.Simulation.Workers,
		trace:   cfg.Simulation.Trace,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.preWarm = config.ClampPreWarm(s.preWarm, cfg.Simulation.NumServers)
	if s.workers < 1 {
		s.workers = 1
	}
	if s.samplers == nil {
		par := SamplerParamsFrom(cfg.Simulation)
		if s.seed != nil {
			s.samplers = SeededSamplers(par, *s.seed)
		} else {
			s.samplers = EntropySamplers(par)
		}
	}
	return s
}

// SamplerParamsFrom maps simulation configuration onto sampler parameters
func SamplerParamsFrom(sim config.Simulation) SamplerParams {
	return SamplerParams{
		ArrivalRate: sim.Lambda(),
		ServiceRate: sim.ServiceRate,
		NumServers:  sim.NumServers,
		MaxMIPS:     sim.MaxMIPS,
		Wiggle:      sim.MIPSWiggle,
	}
}

// PreWarm is the number of servers on at the start of each repetition
func (s *Simulator) PreWarm() int {
	return s.preWarm
}

// Run executes every configured repetition. Repetitions share nothing, so
// up to the configured number of workers run at once; results are stored by
// repetition index. A cancelled context aborts the batch and no result is
// returned.
func (s *Simulator) Run(ctx context.Context) (*Result, error) {
	log := s.logger(ctx)
	n := s.config.Simulation.Repetitions
	reps := make([]RepetitionResult, n)

	log.V(logging.DEBUG).Info("Starting simulation",
		"repetitions", n, "servers", s.config.Simulation.NumServers, "preWarm", s.preWarm, "workers", s.workers)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i := 0; i < n; i++ {
		if gctx.Err() != nil {
			break
		}
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			rep, err := s.runRepetition(gctx, log, i)
			if err != nil {
				return err
			}
			reps[i] = *rep
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("simulation aborted: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("simulation aborted: %w", err)
	}

	return &Result{preWarm: s.preWarm, repetitions: reps}, nil
}

// RunRepetition runs repetition rep on its own
func (s *Simulator) RunRepetition(ctx context.Context, rep int) (*RepetitionResult, error) {
	return s.runRepetition(ctx, s.logger(ctx), rep)
}

func (s *Simulator) runRepetition(ctx context.Context, log logr.Logger, index int) (*RepetitionResult, error) {
	start := time.Now()
	r := newRepetition(index, s.config, s.preWarm, s.samplers(index), log, s.trace)
	if err := r.run(ctx); err != nil {
		return nil, fmt.Errorf("repetition %d: %w", index, err)
	}
	res := r.result()
	s.recorder.ObserveRepetition(time.Since(start), res.RandomRoutes, res.WakeUps)

	log.V(logging.DEBUG).Info("Repetition finished",
		"repetition", index, "arrivals", res.Arrivals, "departures", res.Departures,
		"throughput", res.Throughput, "avgJobsInSystem", res.AvgJobsInSystem, "randomRoutes", res.RandomRoutes)
	return &res, nil
}

func (s *Simulator) logger(ctx context.Context) logr.Logger {
	if s.log != nil {
		return *s.log
	}
	return logging.FromContext(ctx)
}
