package energy

// PowerModel is a linear power draw model. Idle is the draw of a powered
// server doing nothing and Linear the extra draw at full utilization.
type PowerModel struct {
	Idle   float64 `yaml:"idle"`
	Linear float64 `yaml:"linear"`
}

// HeatModel maps utilization to an instantaneous temperature.
type HeatModel struct {
	Idle   float64 `yaml:"idle"`
	Linear float64 `yaml:"linear"`
}

// DefaultPowerModel returns the 100W idle / 200W peak model.
func DefaultPowerModel() PowerModel {
	return PowerModel{Idle: 100, Linear: 100}
}

// DefaultHeatModel returns the 40 idle / 80 peak temperature model.
func DefaultHeatModel() HeatModel {
	return HeatModel{Idle: 40, Linear: 40}
}

// Consumed returns the energy used at the given utilization over elapsed time.
func (m PowerModel) Consumed(util, elapsed float64) float64 {
	return (m.Idle + m.Linear*util) * elapsed
}

// Peak returns the draw at full utilization.
func (m PowerModel) Peak() float64 {
	return m.Idle + m.Linear
}

// Temperature returns the temperature reached at the given utilization.
func (m HeatModel) Temperature(util float64) float64 {
	return m.Idle + m.Linear*util
}
