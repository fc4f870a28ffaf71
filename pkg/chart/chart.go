package chart

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/powersim/powersim/pkg/optimizer"
	"github.com/powersim/powersim/pkg/penalty"
	"github.com/powersim/powersim/pkg/simulation"
	"github.com/powersim/powersim/pkg/stats"
)

const (
	chartWidth  = 80
	chartHeight = 20
)

// Generator generates ASCII reports from simulation and optimizer results
type Generator struct {
	width  int
	height int
}

// NewGenerator creates a new chart generator
func NewGenerator() *Generator {
	return &Generator{
		width:  chartWidth,
		height: chartHeight,
	}
}

func (g *Generator) header(sb *strings.Builder, title string) {
	sb.WriteString("\n")
	sb.WriteString(title)
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", g.width))
	sb.WriteString("\n\n")
}

// GenerateJobsChart plots the running average of jobs in system over time
func (g *Generator) GenerateJobsChart(timePoints []simulation.TimePoint) string {
	if len(timePoints) == 0 {
		return "No data to display"
	}

	var sb strings.Builder
	g.header(&sb, "Average Jobs In System Over Time")

	maxAvg := 0.0
	for _, tp := range timePoints {
		maxAvg = math.Max(maxAvg, tp.AvgJobsInSystem)
	}
	if maxAvg == 0 {
		maxAvg = 1
	}

	plotWidth := g.width - 10
	columns := make([]float64, plotWidth)
	for x := range columns {
		pointIndex := int(float64(x) / float64(plotWidth) * float64(len(timePoints)))
		if pointIndex >= len(timePoints) {
			pointIndex = len(timePoints) - 1
		}
		columns[x] = timePoints[pointIndex].AvgJobsInSystem
	}

	// Build the chart from top to bottom
	for row := g.height; row >= 1; row-- {
		level := maxAvg * float64(row) / float64(g.height)
		sb.WriteString(fmt.Sprintf("%7.2f |", level))
		for _, v := range columns {
			if v >= level-maxAvg/float64(2*g.height) {
				sb.WriteString("█")
			} else {
				sb.WriteString(" ")
			}
		}
		sb.WriteString("\n")
	}

	// X-axis
	sb.WriteString("        +")
	sb.WriteString(strings.Repeat("-", plotWidth))
	sb.WriteString("\n")

	// X-axis labels at each quarter of the run
	labelLine := []rune(strings.Repeat(" ", plotWidth))
	endTime := timePoints[len(timePoints)-1].Time
	for q := 0; q < 4; q++ {
		position := q * plotWidth / 4
		marker := fmt.Sprintf("%.1f", endTime*float64(q)/4)
		for i, ch := range marker {
			if position+i < plotWidth {
				labelLine[position+i] = ch
			}
		}
	}
	sb.WriteString("         ")
	sb.WriteString(string(labelLine))
	sb.WriteString("\n\n")

	return sb.String()
}

// GenerateRunSummary lists throughput and average jobs per repetition
func (g *Generator) GenerateRunSummary(res *simulation.Result, accuracy int) string {
	var sb strings.Builder
	g.header(&sb, "Run Summary")

	throughput := res.Throughput()
	avgJobs := res.AvgJobsInSystem()

	sb.WriteString(fmt.Sprintf("Repetitions: %d\n", res.NumRepetitions()))
	sb.WriteString(fmt.Sprintf("Pre-warmed servers: %d\n", res.PreWarm()))
	sb.WriteString(fmt.Sprintf("Throughput: %s\n", formatList(throughput, accuracy)))
	sb.WriteString(fmt.Sprintf("Avg # Jobs in System: %s\n", formatList(avgJobs, accuracy)))
	sb.WriteString(fmt.Sprintf("Throughput Average: %.*f\n", accuracy, stats.Mean(throughput)))
	sb.WriteString(fmt.Sprintf("Average Average Number of Jobs in System: %.*f\n", accuracy, stats.Mean(avgJobs)))
	sb.WriteString("\n")

	return sb.String()
}

// GenerateServerDump prints every server of every repetition
func (g *Generator) GenerateServerDump(res *simulation.Result) string {
	var sb strings.Builder
	g.header(&sb, "Server Dump")

	utils := res.Utilizations()
	energy := res.EnergyConsumption()
	responses := res.ResponseTimes()

	for i, rep := range res.Repetitions() {
		sb.WriteString(strings.Repeat("*", g.width/2))
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("Log dump for rep %d\n", i+1))
		sb.WriteString(fmt.Sprintf("Avg avg utils: %.4f\n", stats.Mean(utils[i])))
		sb.WriteString(fmt.Sprintf("Avg power consumed: %.2f\n", stats.Mean(energy[i])))
		sb.WriteString(fmt.Sprintf("Avg Response Time: %.4f\n", stats.Mean(responses[i])))
		for _, s := range rep.Servers {
			sb.WriteString(fmt.Sprintf("Server %3d  Util: %.2f  Max temp: %6.2f  Consumed: %10.2f  RT: %.4f  Jobs: %d\n",
				s.ID, s.AvgUtilization, s.MaxTemp, s.EnergyConsumed, s.AvgResponseTime, s.JobsProcessed))
		}
	}
	sb.WriteString("\n")

	return sb.String()
}

// GenerateConfidenceSummary prints mean and confidence interval of the
// repetition-level metrics
func (g *Generator) GenerateConfidenceSummary(res *simulation.Result, confidence float64, accuracy int) string {
	var sb strings.Builder
	g.header(&sb, fmt.Sprintf("Confidence Intervals (%.0f%%)", confidence*100))

	rows := []struct {
		name string
		data []float64
	}{
		{"Throughput", res.Throughput()},
		{"Avg jobs in system", res.AvgJobsInSystem()},
		{"Fleet avg utilization", rowMeans(res.Utilizations())},
		{"Fleet avg energy", rowMeans(res.EnergyConsumption())},
		{"Fleet peak temperature", rowMaxes(res.MaxTemps())},
		{"Fleet avg response time", rowMeans(res.ResponseTimes())},
	}
	for _, row := range rows {
		iv := stats.MeanConfidenceInterval(row.data, confidence)
		sb.WriteString(fmt.Sprintf("%-24s %.*f  CI: [%.*f, %.*f]\n",
			row.name, accuracy, iv.Mean, accuracy, iv.Lower, accuracy, iv.Upper))
	}
	sb.WriteString("\n")

	return sb.String()
}

// GenerateEventSummary generates a summary of events
func (g *Generator) GenerateEventSummary(events []simulation.Event) string {
	var sb strings.Builder
	g.header(&sb, "Event Summary")

	// Group events by type
	eventsByType := make(map[simulation.EventType]int)
	for _, event := range events {
		eventsByType[event.Type]++
	}

	sb.WriteString(fmt.Sprintf("Total Events: %d\n", len(events)))
	sb.WriteString(fmt.Sprintf("  - Arrivals: %d\n", eventsByType[simulation.EventTypeArrival]))
	sb.WriteString(fmt.Sprintf("  - Departures: %d\n", eventsByType[simulation.EventTypeDeparture]))
	sb.WriteString(fmt.Sprintf("  - Servers Turned On: %d\n", eventsByType[simulation.EventTypeWakeUp]))
	sb.WriteString(fmt.Sprintf("  - Servers Turned Off: %d\n", eventsByType[simulation.EventTypeShutdown]))
	sb.WriteString(fmt.Sprintf("  - Random Routes: %d\n", eventsByType[simulation.EventTypeRandomRoute]))
	sb.WriteString("\n")

	return sb.String()
}

// GenerateWarnings generates a list of warnings
func (g *Generator) GenerateWarnings(warnings []simulation.Event) string {
	var sb strings.Builder
	g.header(&sb, "Warnings")

	if len(warnings) == 0 {
		sb.WriteString("No warnings!\n")
		return sb.String()
	}

	for _, warning := range warnings {
		sb.WriteString(fmt.Sprintf("[t=%10.4f] %s\n", warning.Time, warning.Message))
	}

	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("Total Warnings: %d\n", len(warnings)))
	sb.WriteString("\n")

	return sb.String()
}

// GenerateDetailedTimeline generates a detailed timeline of events
func (g *Generator) GenerateDetailedTimeline(events []simulation.Event, limit int) string {
	var sb strings.Builder

	title := "Detailed Timeline"
	if limit > 0 && limit < len(events) {
		title += fmt.Sprintf(" (showing first %d events)", limit)
	}
	g.header(&sb, title)

	displayCount := len(events)
	if limit > 0 && limit < displayCount {
		displayCount = limit
	}

	for i := 0; i < displayCount; i++ {
		event := events[i]

		typeIcon := " "
		switch event.Type {
		case simulation.EventTypeArrival:
			typeIcon = "+"
		case simulation.EventTypeDeparture:
			typeIcon = "-"
		case simulation.EventTypeWakeUp:
			typeIcon = "^"
		case simulation.EventTypeShutdown:
			typeIcon = "v"
		case simulation.EventTypeRandomRoute:
			typeIcon = "!"
		}

		sb.WriteString(fmt.Sprintf("[t=%10.4f] %s [%d] %s\n",
			event.Time,
			typeIcon,
			event.JobsInSystem,
			event.Message))
	}

	if limit > 0 && limit < len(events) {
		sb.WriteString(fmt.Sprintf("\n... and %d more events\n", len(events)-limit))
	}

	sb.WriteString("\n")

	return sb.String()
}

// GenerateOptimizerTrace prints the search table and the final bracket
func (g *Generator) GenerateOptimizerTrace(res *optimizer.Result) string {
	var sb strings.Builder
	g.header(&sb, "Golden-Section Search")

	sb.WriteString(fmt.Sprintf("%5s %6s %6s %14s %14s %8s\n", "iter", "x1", "x2", "fx1", "fx2", "b-a"))
	for _, it := range res.Trace {
		sb.WriteString(fmt.Sprintf("%5d %6d %6d %14.2f %14.2f %8.2f\n", it.Iteration, it.X1, it.X2, it.FX1, it.FX2, it.Width))
	}

	best, fbest := res.Best()
	sb.WriteString("\n----------FINAL DUMP-----------\n")
	sb.WriteString(fmt.Sprintf(" x1 = %d\n", res.X1))
	sb.WriteString(fmt.Sprintf("fx1 = %.2f\n", res.FX1))
	sb.WriteString(fmt.Sprintf(" x2 = %d\n", res.X2))
	sb.WriteString(fmt.Sprintf("fx2 = %.2f\n", res.FX2))
	sb.WriteString(fmt.Sprintf("  a = %d\n", res.A))
	sb.WriteString(fmt.Sprintf("  b = %d\n", res.B))
	if res.Converged {
		sb.WriteString(fmt.Sprintf("Converged after %d iterations...\n", res.Iterations))
	} else {
		sb.WriteString(fmt.Sprintf("NO convergence after %d iterations...\n", res.Iterations))
	}
	sb.WriteString(fmt.Sprintf("Best pre-warm count: %d (penalty %.2f)\n", best, fbest))
	sb.WriteString("--------------------------------\n\n")

	return sb.String()
}

// GeneratePenaltyTable lists every evaluation ordered by pre-warm count
func (g *Generator) GeneratePenaltyTable(evals []*penalty.Evaluation) string {
	var sb strings.Builder
	g.header(&sb, "Penalty Evaluations")

	if len(evals) == 0 {
		sb.WriteString("No evaluations!\n")
		return sb.String()
	}

	sorted := append([]*penalty.Evaluation(nil), evals...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].PreWarm < sorted[j].PreWarm
	})

	sb.WriteString(fmt.Sprintf("%8s %12s %12s %12s %6s %6s %6s %12s\n",
		"preWarm", "total", "hard", "soft", "temp!", "util!", "rt!", "peakEnergy"))
	for _, ev := range sorted {
		sb.WriteString(fmt.Sprintf("%8d %12.2f %12.2f %12.2f %6d %6d %6d %12.2f\n",
			ev.PreWarm, ev.Total, ev.Hard, ev.Soft, ev.TempBreaches, ev.UtilBreaches, ev.ResponseBreaches, ev.PeakEnergy))
	}
	sb.WriteString("\n")

	return sb.String()
}

func formatList(values []float64, accuracy int) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = fmt.Sprintf("%.*f", accuracy, v)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func rowMeans(rows [][]float64) []float64 {
	out := make([]float64, len(rows))
	for i, r := range rows {
		out[i] = stats.Mean(r)
	}
	return out
}

func rowMaxes(rows [][]float64) []float64 {
	out := make([]float64, len(rows))
	for i, r := range rows {
		out[i] = stats.Max(r)
	}
	return out
}
