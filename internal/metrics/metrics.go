package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TicksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "yantra_sim_ticks_total",
		Help: "Simulated minutes advanced per building.",
	}, []string{"site"})

	DeficitTicksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "yantra_sim_deficit_ticks_total",
		Help: "Simulated minutes that ended in deficit per building.",
	}, []string{"site"})

	BatteryLevelKwh = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "yantra_sim_battery_level_kwh",
		Help: "Battery charge after the latest tick.",
	}, []string{"site"})

	AgentCrashesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "yantra_sim_agent_crashes_total",
		Help: "Simulation units stopped by an unexpected fault.",
	}, []string{"site"})

	DeliveriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "yantra_telemetry_deliveries_total",
		Help: "Telemetry push attempts per endpoint and outcome.",
	}, []string{"endpoint", "outcome"})

	RoundsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "yantra_fedavg_rounds_total",
		Help: "Aggregation rounds per outcome.",
	}, []string{"outcome"})

	RoundParticipants = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "yantra_fedavg_round_participants",
		Help: "Participants of the latest completed round.",
	})

	CollectorReadingsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "yantra_collector_readings_total",
		Help: "Readings accepted by the collector per building and source.",
	}, []string{"site", "source"})
)

// Delivery outcomes
const (
	OutcomeDelivered = "delivered"
	OutcomeFailed    = "failed"
)

// Round outcomes
const (
	OutcomeCompleted    = "completed"
	OutcomeInsufficient = "insufficient"
	OutcomeFailedRound  = "failed"
	OutcomeSkipped      = "skipped"
)
