package simulation

// EventType defines the type of event in the simulation
type EventType string

const (
	EventTypeArrival     EventType = "arrival"
	EventTypeDeparture   EventType = "departure"
	EventTypeWakeUp      EventType = "wake-up"
	EventTypeShutdown    EventType = "shutdown"
	EventTypeRandomRoute EventType = "random-route"
)

// Event represents a point-in-time event in a traced repetition
type Event struct {
	Time         float64
	Type         EventType
	ServerID     int
	JobsInSystem int
	Message      string
	IsWarning    bool
}

// TimePoint represents the state right after an event
type TimePoint struct {
	Time            float64
	AvgJobsInSystem float64
	JobsInSystem    int
}
