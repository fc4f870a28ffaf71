package simulation

import (
	"context"
	"fmt"

	"github.com/go-logr/logr"
	"github.com/markphelps/optional"

	"github.com/powersim/powersim/pkg/config"
	"github.com/powersim/powersim/pkg/logging"
)

// cancelCheckInterval is how many events run between context checks.
const cancelCheckInterval = 4096

// repetition is the state of one simulated run from time zero to the
// configured duration. It owns its server pool and sampler.
type repetition struct {
	index     int
	duration  float64
	threshold float64
	preWarm   int
	servers   []*Server
	sampler   Sampler
	log       logr.Logger
	trace     bool

	currentTime       float64
	timeToNextArrival float64
	numJobsInSystem   int
	numArrivals       int
	numDepartures     int
	avgJobsInSystem   float64
	randomRoutes      int
	wakeUps           int

	timePoints []TimePoint
	events     []Event
}

func newRepetition(index int, cfg *config.Config, preWarm int, sampler Sampler, log logr.Logger, trace bool) *repetition {
	sim := cfg.Simulation
	threshold := sim.UtilizationThreshold
	if threshold <= 0 {
		threshold = DefaultUtilizationThreshold
	}
	return &repetition{
		index:     index,
		duration:  sim.Duration,
		threshold: threshold,
		preWarm:   preWarm,
		servers:   newServerPool(sim.NumServers, preWarm, sim.ServerCapacityMIPS, cfg.Power, cfg.Heat),
		sampler:   sampler,
		log:       log,
		trace:     trace,
	}
}

func (r *repetition) run(ctx context.Context) error {
	r.timeToNextArrival = r.sampler.Interarrival()
	steps := 0
	for r.currentTime < r.duration {
		steps++
		if steps%cancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		r.step()
	}
	return nil
}

// step processes exactly one event.
func (r *repetition) step() {
	if r.numJobsInSystem == 0 {
		// Nothing to depart, only an arrival can happen.
		r.bootstrapArrival()
	} else {
		idx, next := r.nextDeparture()
		if d, err := next.Get(); err != nil || r.timeToNextArrival < d {
			r.arrival()
		} else {
			r.departure(idx, d)
		}
	}

	if r.trace {
		r.timePoints = append(r.timePoints, TimePoint{
			Time:            r.currentTime,
			AvgJobsInSystem: r.avgJobsInSystem,
			JobsInSystem:    r.numJobsInSystem,
		})
	}
}

func (r *repetition) bootstrapArrival() {
	elapsed := r.timeToNextArrival
	r.updateAverage(elapsed)
	r.currentTime += elapsed
	r.numArrivals++

	// The first job goes to a random server as is; only the router turns
	// servers on.
	idx := r.sampler.Pick(len(r.servers))
	r.admit(idx, r.sampler.ServiceTime(), r.sampler.JobMIPS())
	r.timeToNextArrival = r.sampler.Interarrival()
}

func (r *repetition) arrival() {
	elapsed := r.timeToNextArrival
	r.updateAverage(elapsed)
	r.currentTime += elapsed
	r.advanceServers(elapsed)
	r.numArrivals++

	processingTime, mips := r.sampler.ServiceTime(), r.sampler.JobMIPS()
	idx, decision := Route(r.servers, r.threshold, r.sampler.Pick)
	switch decision {
	case RouteWakeUp:
		r.wakeUps++
		r.addEvent(EventTypeWakeUp, idx, fmt.Sprintf("Server %d turned on", idx), false)
	case RouteRandom:
		r.randomRoutes++
		r.log.Info("Every server is on and saturated, routing at random",
			"anomaly", "random-route", "repetition", r.index, "time", r.currentTime, "server", idx)
		r.addEvent(EventTypeRandomRoute, idx, fmt.Sprintf("Job routed at random to server %d", idx), true)
	}
	r.admit(idx, processingTime, mips)
	r.timeToNextArrival = r.sampler.Interarrival()
}

func (r *repetition) departure(idx int, elapsed float64) {
	r.updateAverage(elapsed)
	r.currentTime += elapsed
	r.timeToNextArrival -= elapsed
	r.advanceServers(elapsed)
	r.numDepartures++
	r.numJobsInSystem--

	s := r.servers[idx]
	s.DepartHead(r.currentTime)
	r.addEvent(EventTypeDeparture, idx, fmt.Sprintf("Job departed server %d", idx), false)
	if !s.on {
		r.addEvent(EventTypeShutdown, idx, fmt.Sprintf("Server %d emptied and turned off", idx), false)
	}
}

func (r *repetition) admit(idx int, processingTime, mips float64) {
	if !r.servers[idx].AddArrival(r.currentTime, processingTime, mips) {
		r.log.V(logging.DEBUG).Info("Rejected job without service time", "repetition", r.index, "processingTime", processingTime)
		return
	}
	r.numJobsInSystem++
	r.addEvent(EventTypeArrival, idx, fmt.Sprintf("Job assigned to server %d", idx), false)
}

func (r *repetition) advanceServers(elapsed float64) {
	for _, s := range r.servers {
		s.Advance(elapsed)
	}
}

// nextDeparture returns the server with the earliest departure, first wins
// ties. Idle servers never win.
func (r *repetition) nextDeparture() (int, optional.Float64) {
	idx := -1
	var best optional.Float64
	for i, s := range r.servers {
		d, err := s.NextDeparture().Get()
		if err != nil {
			continue
		}
		if b, err := best.Get(); err != nil || d < b {
			idx, best = i, optional.NewFloat64(d)
		}
	}
	return idx, best
}

// updateAverage folds the next step of length t2 into the time-weighted
// average of jobs in system.
func (r *repetition) updateAverage(t2 float64) {
	t1 := r.currentTime
	if t1+t2 <= 0 {
		return
	}
	r.avgJobsInSystem = r.avgJobsInSystem*t1/(t1+t2) + float64(r.numJobsInSystem)*t2/(t1+t2)
}

func (r *repetition) addEvent(typ EventType, serverID int, msg string, warning bool) {
	if !r.trace {
		return
	}
	r.events = append(r.events, Event{
		Time:         r.currentTime,
		Type:         typ,
		ServerID:     serverID,
		JobsInSystem: r.numJobsInSystem,
		Message:      msg,
		IsWarning:    warning,
	})
}

func (r *repetition) result() RepetitionResult {
	throughput := 0.0
	if r.currentTime > 0 {
		throughput = float64(r.numDepartures) / r.currentTime
	}
	servers := make([]ServerStats, len(r.servers))
	for i, s := range r.servers {
		servers[i] = s.stats()
	}
	return RepetitionResult{
		Index:           r.index,
		PreWarm:         r.preWarm,
		Throughput:      throughput,
		AvgJobsInSystem: r.avgJobsInSystem,
		Arrivals:        r.numArrivals,
		Departures:      r.numDepartures,
		JobsInSystem:    r.numJobsInSystem,
		RandomRoutes:    r.randomRoutes,
		WakeUps:         r.wakeUps,
		EndTime:         r.currentTime,
		Servers:         servers,
		TimePoints:      r.timePoints,
		Events:          r.events,
	}
}
