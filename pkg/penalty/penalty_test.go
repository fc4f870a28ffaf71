package penalty

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/powersim/powersim/pkg/config"
	"github.com/powersim/powersim/pkg/metrics"
	"github.com/powersim/powersim/pkg/simulation"
)

var limits = config.Limits{MaxTemperature: 70, MaxUtilization: 1, MaxResponseTime: 5}

func server(temp, util, energy, rt float64) simulation.ServerStats {
	return simulation.ServerStats{MaxTemp: temp, AvgUtilization: util, EnergyConsumed: energy, AvgResponseTime: rt}
}

func result(reps ...[]simulation.ServerStats) *simulation.Result {
	out := make([]simulation.RepetitionResult, len(reps))
	for i, servers := range reps {
		out[i] = simulation.RepetitionResult{Index: i, Servers: servers}
	}
	return simulation.NewResult(1, out)
}

func TestComputeZeroWhenBalancedAndWithinLimits(t *testing.T) {
	res := result(
		[]simulation.ServerStats{server(60, 0.5, 100, 2), server(60, 0.5, 100, 2)},
		[]simulation.ServerStats{server(55, 0.3, 80, 1), server(55, 0.3, 80, 1)},
	)
	b := Compute(res, limits)
	require.Equal(t, 0.0, b.Total)
	require.Equal(t, 0, b.TempBreaches+b.UtilBreaches+b.ResponseBreaches)
}

func TestComputeHardLimitAddsExcess(t *testing.T) {
	res := result([]simulation.ServerStats{server(80, 0.5, 100, 7), server(80, 0.5, 100, 7)})
	b := Compute(res, limits)
	require.InDelta(t, 10+2, b.Hard, 1e-12)
	require.Equal(t, 0.0, b.Soft)
	require.Equal(t, 1, b.TempBreaches)
	require.Equal(t, 1, b.ResponseBreaches)
	require.Equal(t, 0, b.UtilBreaches)
}

func TestComputeSoftPenaltyAboveMean(t *testing.T) {
	res := result([]simulation.ServerStats{server(60, 0.2, 100, 1), server(60, 0.4, 140, 3)})
	b := Compute(res, limits)
	require.Equal(t, 0.0, b.Hard)
	// util 0.1 + energy 20 + response time 1
	require.InDelta(t, 21.1, b.Soft, 1e-9)
	require.InDelta(t, b.Soft, b.Total, 1e-12)
}

func TestComputePowerIsNotPenalized(t *testing.T) {
	l := limits
	l.MaxPower = 50
	res := result([]simulation.ServerStats{server(60, 0.5, 1000, 2), server(60, 0.5, 1000, 2)})
	b := Compute(res, l)
	require.Equal(t, 0.0, b.Total)
	require.Equal(t, 1, b.PowerBreaches)
	require.Equal(t, 1000.0, b.PeakEnergy)
}

func TestComputeMonotonicInBreach(t *testing.T) {
	prev := -1.0
	for temp := 60.0; temp <= 100; temp += 2.5 {
		res := result([]simulation.ServerStats{
			server(temp, 0.5, 100, 2),
			server(60, 0.5, 100, 2),
			server(60, 0.5, 100, 2),
		})
		total := Compute(res, limits).Total
		require.GreaterOrEqual(t, total, prev, "temp %v", temp)
		prev = total
	}
	require.Positive(t, prev)
}

func TestComputeEmptyResult(t *testing.T) {
	require.Equal(t, Breakdown{}, Compute(simulation.NewResult(0, nil), limits))
	b := Compute(result([]simulation.ServerStats{}), limits)
	require.Equal(t, 0.0, b.Total)
}

type constSampler struct{}

func (constSampler) Interarrival() float64 { return 1 }
func (constSampler) ServiceTime() float64 { return 0.5 }
func (constSampler) JobMIPS() float64 { return 1250000 }
func (constSampler) Pick(n int) int { return 0 }

func TestScorerEvaluate(t *testing.T) {
	cfg := config.Default()
	cfg.Simulation.NumServers = 2
	cfg.Simulation.Duration = 10
	cfg.Simulation.Repetitions = 2
	cfg.Optimizer.Upper = 2
	cfg.Optimizer.Repetitions = 3

	recorder, err := metrics.NewRecorder(prometheus.NewRegistry())
	require.NoError(t, err)

	scorer := NewScorer(cfg, recorder, simulation.WithSamplerFactory(func(int) simulation.Sampler {
		return constSampler{}
	}))
	ev, err := scorer.Evaluate(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, 1, ev.PreWarm)
	require.Equal(t, 3, ev.Result.NumRepetitions())
	require.Equal(t, 1, ev.Result.PreWarm())
	require.GreaterOrEqual(t, ev.Total, 0.0)
	require.InDelta(t, ev.Hard+ev.Soft, ev.Total, 1e-12)

	score, err := scorer.Score(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, ev.Total, score)

	// the caller's config is left untouched
	require.Equal(t, 2, cfg.Simulation.Repetitions)
}

func TestScorerCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewScorer(config.Default(), nil).Score(ctx, 3)
	require.ErrorIs(t, err, context.Canceled)
}
