package config

import (
	"math"

	"github.com/powersim/powersim/pkg/energy"
)

// Config represents the entire configuration for a simulation or calibration run
type Config struct {
	Simulation Simulation        `yaml:"simulation"`
	Power      energy.PowerModel `yaml:"power"`
	Heat       energy.HeatModel  `yaml:"heat"`
	Limits     Limits            `yaml:"limits"`
	Optimizer  Optimizer         `yaml:"optimizer"`
}

// Simulation holds the parameters of the discrete-event engine
type Simulation struct {
	// ArrivalRate is lambda. When zero it is derived from DesiredUtilization.
	ArrivalRate        float64 `yaml:"arrivalRate,omitempty"`
	DesiredUtilization float64 `yaml:"desiredUtilization,omitempty"`
	ServiceRate        float64 `yaml:"serviceRate"`
	NumServers         int     `yaml:"numServers"`
	Duration           float64 `yaml:"duration"`
	Repetitions        int     `yaml:"repetitions"`

	// MaxMIPS caps generated job sizes; ServerCapacityMIPS divides them into a utilization.
	MaxMIPS            float64 `yaml:"maxMIPS"`
	ServerCapacityMIPS float64 `yaml:"serverCapacityMIPS"`

	// PreWarm is the number of servers on at time zero. When unset it is
	// derived from Aggressiveness as a fraction of the fleet.
	PreWarm        *int    `yaml:"preWarm,omitempty"`
	Aggressiveness float64 `yaml:"aggressiveness,omitempty"`

	UtilizationThreshold float64 `yaml:"utilizationThreshold"`
	MIPSWiggle           float64 `yaml:"mipsWiggle"`

	// Workers bounds how many repetitions run at once.
	Workers int  `yaml:"workers"`
	Trace   bool `yaml:"trace,omitempty"`
}

// Limits are the hard thresholds used by the penalty scorer
type Limits struct {
	MaxTemperature  float64 `yaml:"maxTemperature"`
	MaxUtilization  float64 `yaml:"maxUtilization"`
	MaxResponseTime float64 `yaml:"maxResponseTime"`
	// MaxPower is reported alongside the other limits but never penalized.
	MaxPower        float64 `yaml:"maxPower,omitempty"`
}

// Optimizer configures the golden-section search over the pre-warm count
type Optimizer struct {
	Lower         int     `yaml:"lower"`
	Upper         int     `yaml:"upper"`
	Tolerance     float64 `yaml:"tolerance"`
	MaxIterations int     `yaml:"maxIterations"`
	// Repetitions overrides Simulation.Repetitions for each penalty evaluation.
	Repetitions   int     `yaml:"repetitions,omitempty"`
}

// Lambda returns the effective arrival rate
func (s Simulation) Lambda() float64 {
	if s.ArrivalRate > 0 {
		return s.ArrivalRate
	}
	return s.DesiredUtilization * float64(s.NumServers) * s.ServiceRate
}

// PreWarmCount returns the effective number of servers on at time zero,
// clamped to the fleet size
func (s Simulation) PreWarmCount() int {
	n := 0
	if s.PreWarm != nil {
		n = *s.PreWarm
	} else {
		n = int(math.Ceil(s.Aggressiveness * float64(s.NumServers)))
	}
	return ClampPreWarm(n, s.NumServers)
}

// OfferedUtilization is lambda / (mu * servers)
func (s Simulation) OfferedUtilization() float64 {
	if s.ServiceRate <= 0 || s.NumServers <= 0 {
		return 0
	}
	return s.Lambda() / (s.ServiceRate * float64(s.NumServers))
}

// ClampPreWarm bounds a pre-warm count to [0, numServers]
func ClampPreWarm(n, numServers int) int {
	if n < 0 {
		return 0
	}
	if n > numServers {
		return numServers
	}
	return n
}

// IntPtr is a helper for optional integer fields
func IntPtr(v int) *int {
	return &v
}
