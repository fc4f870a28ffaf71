package simulation

// DefaultUtilizationThreshold takes a server out of the shortest-queue
// candidates once its utilization reaches it.
const DefaultUtilizationThreshold = 0.9

// Decision says which rule of the dispatch policy placed a job.
type Decision int

const (
	RouteShortestQueue Decision = iota
	RouteWakeUp
	RouteRandom
)

func (d Decision) String() string {
	switch d {
	case RouteShortestQueue:
		return "shortest-queue"
	case RouteWakeUp:
		return "wake-up"
	case RouteRandom:
		return "random"
	}
	return "unknown"
}

// Route picks the server for a new job:
//  1. the on server under threshold with the shortest queue (first on ties),
//  2. otherwise the first off server, which is turned on,
//  3. otherwise a uniformly random server.
func Route(servers []*Server, threshold float64, pick func(n int) int) (int, Decision) {
	chosen := -1
	for i, s := range servers {
		if !s.on || s.util >= threshold {
			continue
		}
		if chosen < 0 || len(s.queue) < len(servers[chosen].queue) {
			chosen = i
		}
	}
	if chosen >= 0 {
		return chosen, RouteShortestQueue
	}

	for i, s := range servers {
		if !s.on {
			s.TurnOn()
			return i, RouteWakeUp
		}
	}

	return pick(len(servers)), RouteRandom
}
