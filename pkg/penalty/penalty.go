package penalty

import (
	"context"
	"fmt"

	"github.com/powersim/powersim/pkg/config"
	"github.com/powersim/powersim/pkg/logging"
	"github.com/powersim/powersim/pkg/metrics"
	"github.com/powersim/powersim/pkg/simulation"
	"github.com/powersim/powersim/pkg/stats"
)

// Breakdown splits a penalty score into its parts. Hard is the amount by
// which fleet maxima exceed the limits, Soft the amount by which individual
// servers exceed their fleet mean. A server can contribute to both.
type Breakdown struct {
	Hard  float64
	Soft  float64
	Total float64

	TempBreaches     int
	UtilBreaches     int
	ResponseBreaches int

	// Power is tracked against Limits.MaxPower but never penalized.
	PeakEnergy    float64
	PowerBreaches int
}

// Compute reduces a simulation result to a penalty score.
func Compute(res *simulation.Result, limits config.Limits) Breakdown {
	var b Breakdown

	temps := res.MaxTemps()
	utils := res.Utilizations()
	responses := res.ResponseTimes()
	energy := res.EnergyConsumption()

	for i := range temps {
		if excess := stats.Max(temps[i]) - limits.MaxTemperature; excess > 0 {
			b.Hard += excess
			b.TempBreaches++
		}
		if excess := stats.Max(utils[i]) - limits.MaxUtilization; excess > 0 {
			b.Hard += excess
			b.UtilBreaches++
		}
		if excess := stats.Max(responses[i]) - limits.MaxResponseTime; excess > 0 {
			b.Hard += excess
			b.ResponseBreaches++
		}

		peak := stats.Max(energy[i])
		if peak > b.PeakEnergy {
			b.PeakEnergy = peak
		}
		if limits.MaxPower > 0 && peak > limits.MaxPower {
			b.PowerBreaches++
		}

		b.Soft += aboveMean(temps[i]) + aboveMean(energy[i]) + aboveMean(utils[i]) + aboveMean(responses[i])
	}

	b.Total = b.Hard + b.Soft
	return b
}

// aboveMean sums how far each value lies above the mean of values.
func aboveMean(values []float64) float64 {
	mean := stats.Mean(values)
	sum := 0.0
	for _, v := range values {
		if v > mean {
			sum += v - mean
		}
	}
	return sum
}

// Evaluation is one scored batch of repetitions
type Evaluation struct {
	PreWarm int
	Breakdown
	Result *simulation.Result
}

// Scorer runs the simulator for a candidate pre-warm count and scores it
type Scorer struct {
	config   *config.Config
	recorder *metrics.Recorder
	opts     []simulation.Option
}

// NewScorer creates a scorer. When the optimizer section sets its own
// repetition count it replaces the simulation one.
func NewScorer(cfg *config.Config, recorder *metrics.Recorder, opts ...simulation.Option) *Scorer {
	c := *cfg
	if c.Optimizer.Repetitions > 0 {
		c.Simulation.Repetitions = c.Optimizer.Repetitions
	}
	return &Scorer{config: &c, recorder: recorder, opts: opts}
}

// Evaluate runs one batch with preWarm servers on at time zero
func (s *Scorer) Evaluate(ctx context.Context, preWarm int) (*Evaluation, error) {
	log := logging.FromContext(ctx).WithValues("preWarm", preWarm)

	opts := append([]simulation.Option{simulation.WithRecorder(s.recorder)}, s.opts...)
	opts = append(opts, simulation.WithPreWarm(preWarm))
	res, err := simulation.NewSimulator(s.config, opts...).Run(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate pre-warm %d: %w", preWarm, err)
	}

	b := Compute(res, s.config.Limits)
	s.recorder.ObservePenalty(preWarm, b.Total)

	for _, rep := range res.Repetitions() {
		log.V(logging.TRACE).Info("Repetition dump",
			"repetition", rep.Index+1,
			"avgUtilization", stats.Mean(column(rep, func(st simulation.ServerStats) float64 { return st.AvgUtilization })),
			"avgEnergy", stats.Mean(column(rep, func(st simulation.ServerStats) float64 { return st.EnergyConsumed })),
			"avgResponseTime", stats.Mean(column(rep, func(st simulation.ServerStats) float64 { return st.AvgResponseTime })))
	}
	log.V(logging.DEBUG).Info("Penalty evaluated", "penalty", b.Total, "hard", b.Hard, "soft", b.Soft)

	return &Evaluation{PreWarm: preWarm, Breakdown: b, Result: res}, nil
}

// Score is Evaluate reduced to the total penalty
func (s *Scorer) Score(ctx context.Context, preWarm int) (float64, error) {
	ev, err := s.Evaluate(ctx, preWarm)
	if err != nil {
		return 0, err
	}
	return ev.Total, nil
}

func column(rep simulation.RepetitionResult, f func(simulation.ServerStats) float64) []float64 {
	out := make([]float64, len(rep.Servers))
	for i, st := range rep.Servers {
		out[i] = f(st)
	}
	return out
}
