package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/powersim/powersim/pkg/energy"
)

// ErrInvalid is wrapped by every validation failure
var ErrInvalid = errors.New("invalid configuration")

// Default returns the calibration defaults: 25 servers at 55% offered
// utilization, 15% of the fleet pre-warmed, searched over [1, 25].
func Default() *Config {
	return &Config{
		Simulation: Simulation{
			DesiredUtilization:   0.55,
			ServiceRate:          1,
			NumServers:           25,
			Duration:             100,
			Repetitions:          5,
			MaxMIPS:              2500000,
			ServerCapacityMIPS:   2500000,
			Aggressiveness:       0.15,
			UtilizationThreshold: 0.9,
			MIPSWiggle:           0.40,
			Workers:              1,
		},
		Power: energy.DefaultPowerModel(),
		Heat:  energy.DefaultHeatModel(),
		Limits: Limits{
			MaxTemperature:  70,
			MaxUtilization:  1.0,
			MaxResponseTime: 5.0,
		},
		Optimizer: Optimizer{
			Lower:         1,
			Upper:         25,
			Tolerance:     2,
			MaxIterations: 100,
		},
	}
}

// LoadConfig loads and parses the configuration file on top of Default
func LoadConfig(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML configuration on top of Default and validates it
func Parse(data []byte) (*Config, error) {
	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := Validate(config); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks a configuration, wrapping ErrInvalid on failure
func Validate(config *Config) error {
	if err := validateConfig(config); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return nil
}

// validateConfig validates the configuration
func validateConfig(config *Config) error {
	sim := config.Simulation

	if sim.NumServers <= 0 {
		return fmt.Errorf("numServers must be greater than 0")
	}

	if sim.ServiceRate <= 0 {
		return fmt.Errorf("serviceRate must be greater than 0")
	}

	if sim.Lambda() <= 0 {
		return fmt.Errorf("arrivalRate or desiredUtilization must be greater than 0")
	}

	if sim.Duration <= 0 {
		return fmt.Errorf("duration must be greater than 0")
	}

	if sim.Repetitions <= 0 {
		return fmt.Errorf("repetitions must be greater than 0")
	}

	if sim.MaxMIPS <= 0 {
		return fmt.Errorf("maxMIPS must be greater than 0")
	}

	if sim.ServerCapacityMIPS <= 0 {
		return fmt.Errorf("serverCapacityMIPS must be greater than 0")
	}

	if sim.MaxMIPS > sim.ServerCapacityMIPS {
		return fmt.Errorf("maxMIPS (%g) must not exceed serverCapacityMIPS (%g)", sim.MaxMIPS, sim.ServerCapacityMIPS)
	}

	if sim.PreWarm != nil && (*sim.PreWarm < 0 || *sim.PreWarm > sim.NumServers) {
		return fmt.Errorf("preWarm must be between 0 and numServers (%d)", sim.NumServers)
	}

	if sim.Aggressiveness < 0 || sim.Aggressiveness > 1 {
		return fmt.Errorf("aggressiveness must be between 0 and 1")
	}

	if sim.UtilizationThreshold <= 0 {
		return fmt.Errorf("utilizationThreshold must be greater than 0")
	}

	if sim.MIPSWiggle < 0 || sim.MIPSWiggle > 1 {
		return fmt.Errorf("mipsWiggle must be between 0 and 1")
	}

	if sim.Workers < 0 {
		return fmt.Errorf("workers must not be negative")
	}

	if config.Power.Idle < 0 || config.Power.Linear < 0 {
		return fmt.Errorf("power model coefficients must not be negative")
	}

	if config.Heat.Linear < 0 {
		return fmt.Errorf("heat model linear coefficient must not be negative")
	}

	opt := config.Optimizer

	if opt.Lower < 0 || opt.Upper < opt.Lower {
		return fmt.Errorf("optimizer bounds must satisfy 0 <= lower <= upper")
	}

	if opt.Upper > sim.NumServers {
		return fmt.Errorf("optimizer upper bound %d exceeds numServers %d", opt.Upper, sim.NumServers)
	}

	if opt.Tolerance < 0 {
		return fmt.Errorf("optimizer tolerance must not be negative")
	}

	if opt.MaxIterations <= 0 {
		return fmt.Errorf("optimizer maxIterations must be greater than 0")
	}

	if opt.Repetitions < 0 {
		return fmt.Errorf("optimizer repetitions must not be negative")
	}

	return nil
}
