package fedavg

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Mithilesh-1311/YANTRA/internal/common"
	"github.com/Mithilesh-1311/YANTRA/internal/events"
	"github.com/Mithilesh-1311/YANTRA/internal/model"
	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRound struct {
	calls   atomic.Int32
	running atomic.Int32
	overlap atomic.Bool
	delay   time.Duration
	err     error
}

func (round *stubRound) Run(context.Context) (*model.AggregationRecord, error) {
	if round.running.Add(1) > 1 {
		round.overlap.Store(true)
	}
	defer round.running.Add(-1)

	n := round.calls.Add(1)
	time.Sleep(round.delay)
	if round.err != nil {
		return nil, round.err
	}
	return &model.AggregationRecord{Round: int(n), Participants: []string{"B1", "B2"}}, nil
}

func TestRunOnceNeverOverlaps(t *testing.T) {
	round := &stubRound{delay: 100 * time.Millisecond}
	scheduler := NewRoundScheduler(round, nil, hclog.NewNullLogger())

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			record, err := scheduler.RunOnce(context.Background())
			assert.NoError(t, err)
			assert.NotNil(t, record)
		}()
	}
	wg.Wait()

	assert.False(t, round.overlap.Load())
	assert.Less(t, round.calls.Load(), int32(5))
}

func TestRunOncePublishesResult(t *testing.T) {
	bus := events.NewEventBus()
	finished := make(chan events.Event, 1)
	bus.Subscribe(common.ROUND_FINISHED_EVENT_TYPE, finished)

	scheduler := NewRoundScheduler(&stubRound{err: ErrInsufficientParticipants}, bus, hclog.NewNullLogger())
	record, err := scheduler.RunOnce(context.Background())
	assert.ErrorIs(t, err, ErrInsufficientParticipants)
	assert.Nil(t, record)

	require.Len(t, finished, 1)
	data := (<-finished).Data.(events.RoundFinishedEvent)
	assert.Nil(t, data.Record)
	assert.ErrorIs(t, data.Err, ErrInsufficientParticipants)
}

func TestWatchKeepsGoingAfterAbortedRounds(t *testing.T) {
	round := &stubRound{err: ErrInsufficientParticipants}
	scheduler := NewRoundScheduler(round, nil, hclog.NewNullLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 2500*time.Millisecond)
	defer cancel()

	require.NoError(t, scheduler.Watch(ctx, time.Second))
	assert.GreaterOrEqual(t, round.calls.Load(), int32(2))
}

func TestWatchRejectsInvalidInterval(t *testing.T) {
	scheduler := NewRoundScheduler(&stubRound{}, nil, hclog.NewNullLogger())
	assert.Error(t, scheduler.Watch(context.Background(), 0))
}
