package sim

import (
	"math"
	"math/rand/v2"

	"github.com/Mithilesh-1311/YANTRA/internal/common"
	"github.com/Mithilesh-1311/YANTRA/internal/model"
	"gonum.org/v1/gonum/stat/distuv"
)

// Agent advances one building by one simulated minute per Step. It is not
// safe for concurrent use; the scheduler gives every agent its own goroutine.
type Agent struct {
	profile model.SiteProfile
	state   model.SimulationState
	tuning  Tuning

	rng        *rand.Rand
	solarNoise distuv.Normal
	baseNoise  distuv.Normal
	spikeDrain distuv.Uniform
}

func NewAgent(profile model.SiteProfile, tuning Tuning, seed uint64) *Agent {
	src := rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)

	return &Agent{
		profile: profile,
		state: model.SimulationState{
			BatteryKwh: clamp(profile.BatteryStartKwh, 0, profile.BatteryCapacityKwh),
		},
		tuning:     tuning,
		rng:        rand.New(src),
		solarNoise: distuv.Normal{Mu: 0, Sigma: tuning.SolarNoiseSigma, Src: src},
		baseNoise:  distuv.Normal{Mu: 0, Sigma: tuning.ConsumptionNoiseSigma, Src: src},
		spikeDrain: distuv.Uniform{Min: tuning.SpikeMinKwhPerMin, Max: tuning.SpikeMaxKwhPerMin, Src: src},
	}
}

func (agent *Agent) Profile() model.SiteProfile {
	return agent.profile
}

// State returns a copy of the current physical state
func (agent *Agent) State() model.SimulationState {
	return agent.state
}

// Step advances the state by exactly one minute and returns the reading for it.
func (agent *Agent) Step() model.TelemetryReading {
	hour := common.HourOfDay(agent.state.Minute)
	solar := agent.solarKw(hour)
	base := agent.baseConsumptionKwh(hour)

	if !agent.state.SpikeActive() && agent.spikeStarts(hour) {
		agent.state.SpikeKwhPerMin = agent.spikeDrain.Rand()
		agent.state.SpikeMinutesLeft = agent.tuning.SpikeMinMinutes +
			agent.rng.IntN(agent.tuning.SpikeMaxMinutes-agent.tuning.SpikeMinMinutes+1)
	}

	spike := 0.0
	if agent.state.SpikeActive() {
		spike = agent.state.SpikeKwhPerMin
		agent.state.SpikeMinutesLeft--
		if agent.state.SpikeMinutesLeft == 0 {
			agent.state.SpikeKwhPerMin = 0
		}
	}

	solarGained := solar / 60.0
	totalDrained := base + spike
	agent.state.BatteryKwh = clamp(agent.state.BatteryKwh+solarGained-totalDrained, 0, agent.profile.BatteryCapacityKwh)

	reading := model.TelemetryReading{
		SiteId:          agent.profile.Id,
		SiteCategory:    agent.profile.Category,
		Minute:          agent.state.Minute,
		HourOfDay:       hour,
		SolarKw:         solar,
		BaseKwh:         base,
		SpikeKwh:        spike,
		TotalDrainedKwh: totalDrained,
		BatteryKwh:      agent.state.BatteryKwh,
		BatteryCapacity: agent.profile.BatteryCapacityKwh,
		IsDeficit:       agent.state.BatteryKwh == 0 && totalDrained > solarGained,
		SpikeActive:     agent.state.SpikeActive(),
		SpikeMinsLeft:   agent.state.SpikeMinutesLeft,
	}

	agent.state.Minute++

	return reading
}

// solarKw is a half-sine over the daylight window, in kW.
func (agent *Agent) solarKw(hour float64) float64 {
	if !isDaylight(hour) {
		return 0.0
	}
	curve := agent.profile.PeakSolarKw * agent.tuning.SolarEfficiency * math.Sin(math.Pi*(hour-6)/12)
	return math.Max(0.0, curve+agent.solarNoise.Rand())
}

// baseConsumptionKwh is the regular per-minute draw, never zero.
func (agent *Agent) baseConsumptionKwh(hour float64) float64 {
	base := BaseConsumptionRate(hour) * agent.profile.ConsumptionMultiplier
	return math.Max(agent.tuning.MinConsumptionKwh, base+agent.baseNoise.Rand())
}

func (agent *Agent) spikeStarts(hour float64) bool {
	p := agent.tuning.SpikeProbability(hour)
	if p <= 0 {
		return false
	}
	return distuv.Bernoulli{P: p, Src: agent.rng}.Rand() == 1
}

func clamp(value float64, low float64, high float64) float64 {
	return math.Max(low, math.Min(high, value))
}
