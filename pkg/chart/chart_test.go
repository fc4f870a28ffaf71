package chart

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/powersim/powersim/pkg/optimizer"
	"github.com/powersim/powersim/pkg/penalty"
	"github.com/powersim/powersim/pkg/simulation"
)

func testResult() *simulation.Result {
	return simulation.NewResult(2, []simulation.RepetitionResult{
		{
			Index:           0,
			Throughput:      1.5,
			AvgJobsInSystem: 2,
			Servers: []simulation.ServerStats{
				{ID: 0, AvgUtilization: 0.5, EnergyConsumed: 10, MaxTemp: 60, AvgResponseTime: 1, JobsProcessed: 3},
				{ID: 1, AvgUtilization: 0.3, EnergyConsumed: 8, MaxTemp: 52, AvgResponseTime: 2, JobsProcessed: 2},
			},
		},
		{
			Index:           1,
			Throughput:      2.5,
			AvgJobsInSystem: 4,
			Servers: []simulation.ServerStats{
				{ID: 0, AvgUtilization: 0.7, EnergyConsumed: 12, MaxTemp: 68, AvgResponseTime: 1.5, JobsProcessed: 4},
				{ID: 1, AvgUtilization: 0.1, EnergyConsumed: 4, MaxTemp: 44, AvgResponseTime: 0.5, JobsProcessed: 1},
			},
		},
	})
}

func TestGenerateJobsChart(t *testing.T) {
	g := NewGenerator()
	require.Equal(t, "No data to display", g.GenerateJobsChart(nil))

	points := []simulation.TimePoint{
		{Time: 1, AvgJobsInSystem: 1, JobsInSystem: 1},
		{Time: 2, AvgJobsInSystem: 2, JobsInSystem: 3},
		{Time: 4, AvgJobsInSystem: 1.5, JobsInSystem: 0},
	}
	out := g.GenerateJobsChart(points)
	require.Contains(t, out, "Average Jobs In System Over Time")
	require.Contains(t, out, "   2.00 |")
	require.Contains(t, out, "█")
	// quarter labels of a run ending at t=4
	require.Contains(t, out, "0.0")
	require.Contains(t, out, "3.0")
}

func TestGenerateRunSummary(t *testing.T) {
	out := NewGenerator().GenerateRunSummary(testResult(), 2)
	require.Contains(t, out, "Repetitions: 2")
	require.Contains(t, out, "Pre-warmed servers: 2")
	require.Contains(t, out, "Throughput: [1.50, 2.50]")
	require.Contains(t, out, "Throughput Average: 2.00")
	require.Contains(t, out, "Average Average Number of Jobs in System: 3.00")
}

func TestGenerateServerDump(t *testing.T) {
	out := NewGenerator().GenerateServerDump(testResult())
	require.Equal(t, 2, strings.Count(out, "Log dump for rep"))
	require.Contains(t, out, "Log dump for rep 2")
	require.Contains(t, out, "Avg avg utils: 0.4000")
	require.Contains(t, out, "Avg power consumed: 9.00")
}

func TestGenerateConfidenceSummary(t *testing.T) {
	out := NewGenerator().GenerateConfidenceSummary(testResult(), 0.95, 2)
	require.Contains(t, out, "Confidence Intervals (95%)")
	require.Contains(t, out, "Throughput")
	require.Contains(t, out, "Fleet peak temperature")
	require.Contains(t, out, "CI: [")
}

func TestGenerateEventSummaryAndWarnings(t *testing.T) {
	events := []simulation.Event{
		{Time: 0, Type: simulation.EventTypeArrival},
		{Time: 1, Type: simulation.EventTypeWakeUp},
		{Time: 2, Type: simulation.EventTypeRandomRoute, Message: "all servers saturated", IsWarning: true},
		{Time: 3, Type: simulation.EventTypeDeparture},
		{Time: 3, Type: simulation.EventTypeShutdown},
	}
	g := NewGenerator()

	summary := g.GenerateEventSummary(events)
	require.Contains(t, summary, "Total Events: 5")
	require.Contains(t, summary, "Random Routes: 1")
	require.Contains(t, summary, "Servers Turned Off: 1")

	require.Contains(t, g.GenerateWarnings(nil), "No warnings!")
	warnings := g.GenerateWarnings(events[2:3])
	require.Contains(t, warnings, "all servers saturated")
	require.Contains(t, warnings, "Total Warnings: 1")

	timeline := g.GenerateDetailedTimeline(events, 2)
	require.Contains(t, timeline, "showing first 2 events")
	require.Contains(t, timeline, "... and 3 more events")
}

func TestGenerateOptimizerTrace(t *testing.T) {
	res := &optimizer.Result{
		A: 3, B: 5, X1: 3, X2: 4, FX1: 12, FX2: 7.5,
		Iterations: 6, Converged: true,
		Trace: []optimizer.Iteration{{Iteration: 1, X1: 10, X2: 16, FX1: 40, FX2: 80, Width: 24}},
	}
	g := NewGenerator()
	out := g.GenerateOptimizerTrace(res)
	require.Contains(t, out, "FINAL DUMP")
	require.Contains(t, out, "Converged after 6 iterations")
	require.Contains(t, out, "Best pre-warm count: 4 (penalty 7.50)")

	res.Converged = false
	require.Contains(t, g.GenerateOptimizerTrace(res), "NO convergence after 6 iterations")
}

func TestGeneratePenaltyTableSorts(t *testing.T) {
	g := NewGenerator()
	require.Contains(t, g.GeneratePenaltyTable(nil), "No evaluations!")

	out := g.GeneratePenaltyTable([]*penalty.Evaluation{
		{PreWarm: 9, Breakdown: penalty.Breakdown{Total: 3}},
		{PreWarm: 2, Breakdown: penalty.Breakdown{Total: 5}},
	})
	require.Less(t, strings.Index(out, "       2 "), strings.Index(out, "       9 "))
}
