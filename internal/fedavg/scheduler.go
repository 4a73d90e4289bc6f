package fedavg

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Mithilesh-1311/YANTRA/internal/common"
	"github.com/Mithilesh-1311/YANTRA/internal/events"
	"github.com/Mithilesh-1311/YANTRA/internal/metrics"
	"github.com/Mithilesh-1311/YANTRA/internal/model"
	"github.com/hashicorp/go-hclog"
	"github.com/robfig/cron/v3"
	"golang.org/x/sync/singleflight"
)

// IRound is anything that performs one aggregation round.
type IRound interface {
	Run(ctx context.Context) (*model.AggregationRecord, error)
}

// RoundScheduler runs a round once or on a fixed interval. Rounds never
// overlap: a caller arriving while a round is in flight shares its result,
// and a cron tick that fires during a round is skipped.
type RoundScheduler struct {
	round    IRound
	group    singleflight.Group
	eventBus *events.EventBus
	logger   hclog.Logger
}

func NewRoundScheduler(round IRound, eventBus *events.EventBus, logger hclog.Logger) *RoundScheduler {
	return &RoundScheduler{
		round:    round,
		eventBus: eventBus,
		logger:   logger.Named("rounds"),
	}
}

func (scheduler *RoundScheduler) RunOnce(ctx context.Context) (*model.AggregationRecord, error) {
	result, err, shared := scheduler.group.Do("round", func() (interface{}, error) {
		return scheduler.runRound(ctx)
	})
	if shared {
		scheduler.logger.Debug("joined a round already in progress")
	}

	record, _ := result.(*model.AggregationRecord)
	return record, err
}

func (scheduler *RoundScheduler) runRound(ctx context.Context) (*model.AggregationRecord, error) {
	scheduler.logger.Info("Starting FedAvg round")
	record, err := scheduler.round.Run(ctx)

	switch {
	case err == nil:
		metrics.RoundsTotal.WithLabelValues(metrics.OutcomeCompleted).Inc()
		metrics.RoundParticipants.Set(float64(len(record.Participants)))
	case errors.Is(err, ErrInsufficientParticipants):
		metrics.RoundsTotal.WithLabelValues(metrics.OutcomeInsufficient).Inc()
	default:
		metrics.RoundsTotal.WithLabelValues(metrics.OutcomeFailedRound).Inc()
		scheduler.logger.Error("round failed", "error", err)
	}

	if scheduler.eventBus != nil {
		scheduler.eventBus.Publish(events.Event{
			Type: common.ROUND_FINISHED_EVENT_TYPE,
			Data: events.RoundFinishedEvent{Record: record, Err: err},
		})
	}

	return record, err
}

// Watch runs a round every interval until ctx is done. The first round fires
// one interval after the call. A failed or aborted round does not stop the
// schedule.
func (scheduler *RoundScheduler) Watch(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("invalid round interval: %s", interval)
	}

	logger := cronLogger{logger: scheduler.logger.Named("cron")}
	cronScheduler := cron.New(
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)
	cronScheduler.Schedule(cron.Every(interval), cron.FuncJob(func() {
		scheduler.RunOnce(ctx)
	}))

	scheduler.logger.Info(fmt.Sprintf("Watching: one round every %s", interval))
	cronScheduler.Start()

	<-ctx.Done()
	<-cronScheduler.Stop().Done()

	scheduler.logger.Info("Stopped watching")
	return nil
}

// cronLogger feeds cron's logging into hclog.
type cronLogger struct {
	logger hclog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	if msg == "skip" {
		metrics.RoundsTotal.WithLabelValues(metrics.OutcomeSkipped).Inc()
		l.logger.Warn("previous round still running, skipping this tick")
		return
	}
	l.logger.Trace(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error(msg, append(keysAndValues, "error", err)...)
}
