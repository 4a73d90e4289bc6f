package sim

import "fmt"

// SpikeWindow gives the per-minute chance of an appliance event starting
// while the hour of day is in [FromHour, ToHour).
type SpikeWindow struct {
	FromHour    float64 `mapstructure:"from_hour"`
	ToHour      float64 `mapstructure:"to_hour"`
	Probability float64 `mapstructure:"probability"`
}

// Tuning holds the plausibility constants of the physical model.
type Tuning struct {
	SolarEfficiency         float64
	SolarNoiseSigma         float64
	ConsumptionNoiseSigma   float64
	MinConsumptionKwh       float64
	SpikeWindows            []SpikeWindow
	SpikeDefaultProbability float64
	SpikeMinKwhPerMin       float64
	SpikeMaxKwhPerMin       float64
	SpikeMinMinutes         int
	SpikeMaxMinutes         int
}

// DefaultSpikeWindows is two to five appliance events per simulated day,
// most of them during the rush hours. Windows are matched in order.
func DefaultSpikeWindows() []SpikeWindow {
	return []SpikeWindow{
		{FromHour: 7, ToHour: 9, Probability: 0.005},
		{FromHour: 9, ToHour: 18, Probability: 0.002},
		{FromHour: 18, ToHour: 22, Probability: 0.006},
		{FromHour: 6, ToHour: 7, Probability: 0.001},
	}
}

const DefaultSpikeProbability = 0.0005

func DefaultTuning() Tuning {
	return Tuning{
		SolarEfficiency:         0.6,
		SolarNoiseSigma:         0.15,
		ConsumptionNoiseSigma:   0.002,
		MinConsumptionKwh:       0.001,
		SpikeWindows:            DefaultSpikeWindows(),
		SpikeDefaultProbability: DefaultSpikeProbability,
		SpikeMinKwhPerMin:       0.033,
		SpikeMaxKwhPerMin:       0.083,
		SpikeMinMinutes:         20,
		SpikeMaxMinutes:         90,
	}
}

func (tuning Tuning) Validate() error {
	for i, window := range tuning.SpikeWindows {
		if window.FromHour >= window.ToHour {
			return fmt.Errorf("spike window %d: from_hour %.2f must be before to_hour %.2f", i, window.FromHour, window.ToHour)
		}
		if window.Probability < 0 || window.Probability > 1 {
			return fmt.Errorf("spike window %d: probability %f outside [0,1]", i, window.Probability)
		}
	}
	if tuning.SpikeDefaultProbability < 0 || tuning.SpikeDefaultProbability > 1 {
		return fmt.Errorf("default spike probability %f outside [0,1]", tuning.SpikeDefaultProbability)
	}
	if tuning.SpikeMinMinutes < 1 || tuning.SpikeMaxMinutes < tuning.SpikeMinMinutes {
		return fmt.Errorf("invalid spike duration range [%d, %d]", tuning.SpikeMinMinutes, tuning.SpikeMaxMinutes)
	}
	if tuning.SpikeMinKwhPerMin < 0 || tuning.SpikeMaxKwhPerMin < tuning.SpikeMinKwhPerMin {
		return fmt.Errorf("invalid spike drain range [%f, %f]", tuning.SpikeMinKwhPerMin, tuning.SpikeMaxKwhPerMin)
	}
	if tuning.MinConsumptionKwh <= 0 {
		return fmt.Errorf("minimum consumption must be positive, got %f", tuning.MinConsumptionKwh)
	}
	return nil
}

func (tuning Tuning) SpikeProbability(hour float64) float64 {
	for _, window := range tuning.SpikeWindows {
		if hour >= window.FromHour && hour < window.ToHour {
			return window.Probability
		}
	}
	return tuning.SpikeDefaultProbability
}

// BaseConsumptionRate is the unscaled per-minute draw for the hour of day.
func BaseConsumptionRate(hour float64) float64 {
	switch {
	case hour >= 7 && hour < 9: // morning rush
		return 0.040
	case hour >= 18 && hour < 22: // evening rush
		return 0.050
	case hour >= 22 || hour < 6: // night
		return 0.012
	default:
		return 0.022
	}
}

func isDaylight(hour float64) bool {
	return hour >= 6 && hour <= 18
}
