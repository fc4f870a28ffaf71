package simulation

import (
	"fmt"

	"github.com/markphelps/optional"

	"github.com/powersim/powersim/pkg/energy"
	"github.com/powersim/powersim/pkg/stats"
)

// Server is one machine of the fleet. Only the head of its FIFO queue is in
// service; utilization, heat and energy derive from that job alone.
type Server struct {
	id          int
	capacity    float64
	power       energy.PowerModel
	heat        energy.HeatModel
	queue       []*Job
	finished    []*Job
	utilHistory []float64

	busy           bool
	on             bool
	util           float64
	energyConsumed float64
	maxTemp        float64
}

func newServer(id int, capacityMIPS float64, power energy.PowerModel, heat energy.HeatModel) *Server {
	return &Server{
		id:       id,
		capacity: capacityMIPS,
		power:    power,
		heat:     heat,
	}
}

// newServerPool builds a fleet with IDs 0..n-1 and the first preWarm servers on.
func newServerPool(n, preWarm int, capacityMIPS float64, power energy.PowerModel, heat energy.HeatModel) []*Server {
	servers := make([]*Server, n)
	for i := range servers {
		servers[i] = newServer(i, capacityMIPS, power, heat)
		servers[i].on = i < preWarm
	}
	return servers
}

func (s *Server) String() string {
	return fmt.Sprintf("server %d: on=%t busy=%t q=%d util=%.2f energy=%.2f maxTemp=%.2f",
		s.id, s.on, s.busy, len(s.queue), s.util, s.energyConsumed, s.maxTemp)
}

// AddArrival appends a job to the tail of the queue. Jobs without positive
// processing time are rejected.
func (s *Server) AddArrival(time, processingTime, mips float64) bool {
	if processingTime <= 0 {
		return false
	}
	s.queue = append(s.queue, newJob(time, processingTime, mips))
	s.busy = true
	return true
}

// Advance serves the head job for elapsed time units.
func (s *Server) Advance(elapsed float64) {
	if len(s.queue) == 0 {
		return
	}
	head := s.queue[0]
	head.ProcessingTime -= elapsed
	s.util = head.RequiredMIPS / s.capacity
	if t := s.heat.Temperature(s.util); t > s.maxTemp {
		s.maxTemp = t
	}
	s.energyConsumed += s.power.Consumed(s.util, elapsed)
}

// DepartHead completes the head job at time. A server left with an empty
// queue powers off.
func (s *Server) DepartHead(time float64) {
	if len(s.queue) > 0 {
		head := s.queue[0]
		head.finish(time)
		s.queue[0] = nil
		s.queue = s.queue[1:]
		s.finished = append(s.finished, head)
		s.utilHistory = append(s.utilHistory, s.util)
	}
	if len(s.queue) == 0 {
		s.util = 0
		s.busy = false
		s.on = false
	}
}

// NextDeparture is the remaining time of the head job, absent when idle.
func (s *Server) NextDeparture() optional.Float64 {
	if len(s.queue) == 0 {
		return optional.Float64{}
	}
	return optional.NewFloat64(s.queue[0].ProcessingTime)
}

func (s *Server) ID() int { return s.id }
func (s *Server) IsOn() bool { return s.on }
func (s *Server) IsBusy() bool { return s.busy }
func (s *Server) Util() float64 { return s.util }
func (s *Server) QueueLength() int { return len(s.queue) }
func (s *Server) JobsProcessed() int { return len(s.finished) }
func (s *Server) EnergyConsumed() float64 { return s.energyConsumed }
func (s *Server) MaxTemp() float64 { return s.maxTemp }

// FinishedJobs returns the completed jobs in departure order.
func (s *Server) FinishedJobs() []*Job {
	return s.finished
}

// TurnOn powers the server up.
func (s *Server) TurnOn() {
	s.on = true
}

// AvgUtilization is the mean of the utilization sampled at each departure.
func (s *Server) AvgUtilization() float64 {
	return stats.Average(s.utilHistory)
}

// AvgResponseTime is the mean response time of finished jobs, 0 if none.
func (s *Server) AvgResponseTime() float64 {
	if len(s.finished) == 0 {
		return 0
	}
	sum := 0.0
	for _, j := range s.finished {
		sum += j.ResponseTime()
	}
	return sum / float64(len(s.finished))
}

func (s *Server) stats() ServerStats {
	return ServerStats{
		ID:              s.id,
		AvgUtilization:  s.AvgUtilization(),
		EnergyConsumed:  s.energyConsumed,
		MaxTemp:         s.maxTemp,
		AvgResponseTime: s.AvgResponseTime(),
		JobsProcessed:   len(s.finished),
		QueueLength:     len(s.queue),
	}
}
