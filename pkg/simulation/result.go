package simulation

import "github.com/powersim/powersim/pkg/stats"

// ServerStats summarizes one server at the end of a repetition
type ServerStats struct {
	ID              int
	AvgUtilization  float64
	EnergyConsumed  float64
	MaxTemp         float64
	AvgResponseTime float64
	JobsProcessed   int
	QueueLength     int
}

// RepetitionResult holds the statistics of one repetition
type RepetitionResult struct {
	Index           int
	PreWarm         int
	Throughput      float64
	AvgJobsInSystem float64
	Arrivals        int
	Departures      int
	JobsInSystem    int
	RandomRoutes    int
	WakeUps         int
	EndTime         float64
	Servers         []ServerStats

	// Only filled when tracing.
	TimePoints []TimePoint
	Events     []Event
}

// Result is the outcome of a batch of repetitions, in repetition order.
// Accessors return copies.
type Result struct {
	preWarm     int
	repetitions []RepetitionResult
}

// NewResult builds a Result from already computed repetitions.
func NewResult(preWarm int, reps []RepetitionResult) *Result {
	return &Result{preWarm: preWarm, repetitions: cloneRepetitions(reps)}
}

func (r *Result) PreWarm() int {
	return r.preWarm
}

func (r *Result) NumRepetitions() int {
	return len(r.repetitions)
}

// Repetitions returns the per-repetition results.
func (r *Result) Repetitions() []RepetitionResult {
	return cloneRepetitions(r.repetitions)
}

// Throughput returns departures per time unit for each repetition.
func (r *Result) Throughput() []float64 {
	return r.perRepetition(func(rep RepetitionResult) float64 { return rep.Throughput })
}

// AvgJobsInSystem returns the time-average number of jobs for each repetition.
func (r *Result) AvgJobsInSystem() []float64 {
	return r.perRepetition(func(rep RepetitionResult) float64 { return rep.AvgJobsInSystem })
}

// Utilizations returns [repetition][server] average utilization.
func (r *Result) Utilizations() [][]float64 {
	return r.perServer(func(s ServerStats) float64 { return s.AvgUtilization })
}

// EnergyConsumption returns [repetition][server] total energy.
func (r *Result) EnergyConsumption() [][]float64 {
	return r.perServer(func(s ServerStats) float64 { return s.EnergyConsumed })
}

// MaxTemps returns [repetition][server] peak temperature.
func (r *Result) MaxTemps() [][]float64 {
	return r.perServer(func(s ServerStats) float64 { return s.MaxTemp })
}

// ResponseTimes returns [repetition][server] average response time.
func (r *Result) ResponseTimes() [][]float64 {
	return r.perServer(func(s ServerStats) float64 { return s.AvgResponseTime })
}

// MeanThroughput is the throughput averaged over repetitions.
func (r *Result) MeanThroughput() float64 {
	return stats.Mean(r.Throughput())
}

// MeanJobsInSystem is the average number of jobs averaged over repetitions.
func (r *Result) MeanJobsInSystem() float64 {
	return stats.Mean(r.AvgJobsInSystem())
}

func (r *Result) perRepetition(f func(RepetitionResult) float64) []float64 {
	out := make([]float64, len(r.repetitions))
	for i, rep := range r.repetitions {
		out[i] = f(rep)
	}
	return out
}

func (r *Result) perServer(f func(ServerStats) float64) [][]float64 {
	out := make([][]float64, len(r.repetitions))
	for i, rep := range r.repetitions {
		row := make([]float64, len(rep.Servers))
		for j, s := range rep.Servers {
			row[j] = f(s)
		}
		out[i] = row
	}
	return out
}

func cloneRepetitions(reps []RepetitionResult) []RepetitionResult {
	if reps == nil {
		return nil
	}
	out := make([]RepetitionResult, len(reps))
	for i, rep := range reps {
		rep.Servers = append([]ServerStats(nil), rep.Servers...)
		rep.TimePoints = append([]TimePoint(nil), rep.TimePoints...)
		rep.Events = append([]Event(nil), rep.Events...)
		out[i] = rep
	}
	return out
}
