package model

// SiteProfile is the static description of one building. It is built from
// configuration at startup and never mutated afterwards.
type SiteProfile struct {
	Id                    string
	Category              string
	PeakSolarKw           float64
	BatteryCapacityKwh    float64
	BatteryStartKwh       float64
	ConsumptionMultiplier float64
}

// SimulationState is the mutable physical state of one building. Only the
// agent that owns it may read or write it.
type SimulationState struct {
	Minute           int64
	BatteryKwh       float64
	SpikeMinutesLeft int
	SpikeKwhPerMin   float64
}

func (state *SimulationState) SpikeActive() bool {
	return state.SpikeMinutesLeft > 0
}
