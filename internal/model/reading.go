package model

import "math"

// TelemetryReading is emitted by an agent once per tick. Field names on the
// wire follow the collector's /update contract.
type TelemetryReading struct {
	SiteId          string  `json:"building_id"`
	SiteCategory    string  `json:"building_type"`
	Minute          int64   `json:"sim_minute"`
	HourOfDay       float64 `json:"hour_of_day"`
	SolarKw         float64 `json:"solar_kw"`
	BaseKwh         float64 `json:"base_kwh"`
	SpikeKwh        float64 `json:"spike_kwh"`
	TotalDrainedKwh float64 `json:"total_drained_kwh"`
	BatteryKwh      float64 `json:"battery_kwh"`
	BatteryCapacity float64 `json:"battery_cap"`
	IsDeficit       bool    `json:"is_deficit"`
	SpikeActive     bool    `json:"spike_active"`
	SpikeMinsLeft   int     `json:"spike_mins_left"`
}

// SolarGainedKwh converts the hourly solar rate into the one-minute increment.
func (reading TelemetryReading) SolarGainedKwh() float64 {
	return reading.SolarKw / 60.0
}

// NetFlowKwh is positive on surplus, negative on deficit.
func (reading TelemetryReading) NetFlowKwh() float64 {
	return reading.SolarGainedKwh() - reading.TotalDrainedKwh
}

// TimeEncoding returns the cyclical (sin, cos) encoding of the hour of day,
// so that 23:59 sits next to 00:00.
func (reading TelemetryReading) TimeEncoding() (float64, float64) {
	angle := 2 * math.Pi * reading.HourOfDay / 24
	return math.Sin(angle), math.Cos(angle)
}
