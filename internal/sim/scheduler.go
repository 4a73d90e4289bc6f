package sim

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/Mithilesh-1311/YANTRA/internal/common"
	"github.com/Mithilesh-1311/YANTRA/internal/events"
	"github.com/Mithilesh-1311/YANTRA/internal/metrics"
	"github.com/Mithilesh-1311/YANTRA/internal/model"
	"github.com/hashicorp/go-hclog"
)

// IReadingHandler consumes the reading of every tick, e.g. the CSV recorder
// or the telemetry broadcaster.
type IReadingHandler interface {
	Name() string
	HandleReading(ctx context.Context, reading model.TelemetryReading) error
}

// Scheduler runs every agent in its own supervised goroutine at a common
// cadence. A fault in one unit stops that unit only.
type Scheduler struct {
	agents       []*Agent
	handlers     []IReadingHandler
	tickInterval time.Duration
	maxTicks     int64
	eventBus     *events.EventBus
	logger       hclog.Logger
}

// NewScheduler creates the scheduler. maxTicks <= 0 runs until ctx is done.
func NewScheduler(agents []*Agent, handlers []IReadingHandler, tickInterval time.Duration, maxTicks int64,
	eventBus *events.EventBus, logger hclog.Logger) *Scheduler {
	return &Scheduler{
		agents:       agents,
		handlers:     handlers,
		tickInterval: tickInterval,
		maxTicks:     maxTicks,
		eventBus:     eventBus,
		logger:       logger.Named("scheduler"),
	}
}

// Run starts all units and blocks until every one of them has exited.
func (scheduler *Scheduler) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for _, agent := range scheduler.agents {
		wg.Add(1)
		go func(agent *Agent) {
			defer wg.Done()
			scheduler.supervise(ctx, agent)
		}(agent)

		profile := agent.Profile()
		scheduler.logger.Info(fmt.Sprintf("Started %s - %s (solar=%.1fkW bat=%.1fkWh x%.1f consumption)", profile.Id,
			profile.Category, profile.PeakSolarKw, profile.BatteryCapacityKwh, profile.ConsumptionMultiplier))
	}
	wg.Wait()
}

func (scheduler *Scheduler) supervise(ctx context.Context, agent *Agent) {
	siteId := agent.Profile().Id
	logger := scheduler.logger.With("site", siteId)

	ticks, err := scheduler.runAgent(ctx, agent, logger)

	reason := common.AGENT_STOP_REASON_DONE
	switch {
	case err != nil:
		reason = common.AGENT_STOP_REASON_CRASHED
		metrics.AgentCrashesTotal.WithLabelValues(siteId).Inc()
		logger.Error("simulation unit crashed", "ticks", ticks, "error", err)
	case ctx.Err() != nil:
		reason = common.AGENT_STOP_REASON_CANCELLED
		logger.Info("simulation unit stopped", "ticks", ticks)
	default:
		logger.Info("simulation unit finished", "ticks", ticks)
	}

	if scheduler.eventBus != nil {
		scheduler.eventBus.Publish(events.Event{
			Type: common.AGENT_STOPPED_EVENT_TYPE,
			Data: events.AgentStoppedEvent{SiteId: siteId, Reason: reason, Ticks: ticks, Err: err},
		})
	}
}

func (scheduler *Scheduler) runAgent(ctx context.Context, agent *Agent, logger hclog.Logger) (ticks int64, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic at tick %d: %v\n%s", ticks, r, debug.Stack())
		}
	}()

	siteId := agent.Profile().Id
	spiking := false
	for scheduler.maxTicks <= 0 || ticks < scheduler.maxTicks {
		if ctx.Err() != nil {
			return ticks, nil
		}

		reading := agent.Step()
		ticks++

		metrics.TicksTotal.WithLabelValues(siteId).Inc()
		metrics.BatteryLevelKwh.WithLabelValues(siteId).Set(reading.BatteryKwh)
		if reading.IsDeficit {
			metrics.DeficitTicksTotal.WithLabelValues(siteId).Inc()
		}
		logReading(logger, reading)
		if reading.SpikeKwh > 0 && !spiking {
			logger.Debug(fmt.Sprintf("appliance on - drains %.4f kWh/min (%.1fkW) for %d simulated minutes",
				reading.SpikeKwh, reading.SpikeKwh*60, reading.SpikeMinsLeft+1))
		} else if spiking && !reading.SpikeActive {
			logger.Debug("appliance off - event ended")
		}
		spiking = reading.SpikeActive

		for _, handler := range scheduler.handlers {
			if err := handler.HandleReading(ctx, reading); err != nil {
				logger.Warn("reading handler failed", "handler", handler.Name(), "minute", reading.Minute, "error", err)
			}
		}

		if scheduler.tickInterval > 0 {
			select {
			case <-ctx.Done():
				return ticks, nil
			case <-time.After(scheduler.tickInterval):
			}
		}
	}

	return ticks, nil
}

func logReading(logger hclog.Logger, reading model.TelemetryReading) {
	if !logger.IsTrace() {
		return
	}
	status := "SURPLUS"
	if reading.IsDeficit {
		status = "DEFICIT"
	}
	logger.Trace(fmt.Sprintf("min=%5d hr=%5.2f solar=%.4fkWh base=%.4fkWh spike=%.3f bat=%6.4f %s",
		reading.Minute, reading.HourOfDay, reading.SolarGainedKwh(), reading.BaseKwh, reading.SpikeKwh,
		reading.BatteryKwh, status), "spike_left", reading.SpikeMinsLeft)
}
