package metrics

import (
	"fmt"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "powersim"

// Recorder emits simulation and calibration metrics. A nil *Recorder is
// valid and records nothing.
type Recorder struct {
	repetitions        prometheus.Counter
	repetitionDuration prometheus.Histogram
	randomRoutes       prometheus.Counter
	wakeUps            prometheus.Counter
	evaluations        prometheus.Counter
	lastPenalty        *prometheus.GaugeVec
	bracketWidth       prometheus.Gauge
	iterations         prometheus.Gauge
}

// NewRecorder creates the collectors and registers them with registry.
func NewRecorder(registry prometheus.Registerer) (*Recorder, error) {
	r := &Recorder{
		repetitions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "repetitions_total",
			Help:      "Total number of completed simulation repetitions",
		}),
		repetitionDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "repetition_duration_seconds",
			Help:      "Wall-clock time spent running one repetition",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
		}),
		randomRoutes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "random_routes_total",
			Help:      "Jobs routed at random because every server was on and saturated",
		}),
		wakeUps: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "server_wakeups_total",
			Help:      "Servers turned on by the router",
		}),
		evaluations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "penalty_evaluations_total",
			Help:      "Total number of penalty function evaluations",
		}),
		lastPenalty: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "penalty_score",
			Help:      "Most recent penalty score for each pre-warm count",
		}, []string{"pre_warm"}),
		bracketWidth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "gss_bracket_width",
			Help:      "Current width of the golden-section search bracket",
		}),
		iterations: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "gss_iterations",
			Help:      "Iterations performed by the current golden-section search",
		}),
	}

	for name, c := range map[string]prometheus.Collector{
		"repetitions":        r.repetitions,
		"repetitionDuration": r.repetitionDuration,
		"randomRoutes":       r.randomRoutes,
		"wakeUps":            r.wakeUps,
		"evaluations":        r.evaluations,
		"lastPenalty":        r.lastPenalty,
		"bracketWidth":       r.bracketWidth,
		"iterations":         r.iterations,
	} {
		if err := registry.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register %s metric: %w", name, err)
		}
	}
	return r, nil
}

// ObserveRepetition records one finished repetition.
func (r *Recorder) ObserveRepetition(elapsed time.Duration, randomRoutes, wakeUps int) {
	if r == nil {
		return
	}
	r.repetitions.Inc()
	r.repetitionDuration.Observe(elapsed.Seconds())
	r.randomRoutes.Add(float64(randomRoutes))
	r.wakeUps.Add(float64(wakeUps))
}

// ObservePenalty records one penalty evaluation.
func (r *Recorder) ObservePenalty(preWarm int, penalty float64) {
	if r == nil {
		return
	}
	r.evaluations.Inc()
	r.lastPenalty.WithLabelValues(strconv.Itoa(preWarm)).Set(penalty)
}

// ObserveIteration records the optimizer state after an iteration.
func (r *Recorder) ObserveIteration(iteration int, width float64) {
	if r == nil {
		return
	}
	r.iterations.Set(float64(iteration))
	r.bracketWidth.Set(width)
}
