package collector

import (
	"fmt"
	"sync"
	"testing"

	"github.com/Mithilesh-1311/YANTRA/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func reading(siteId string, minute int64) model.TelemetryReading {
	return model.TelemetryReading{SiteId: siteId, Minute: minute}
}

func TestStoreKeepsBoundedHistory(t *testing.T) {
	store := NewStore(120)
	for minute := int64(0); minute < 300; minute++ {
		store.Add(reading("B1", minute))
	}

	history := store.History("B1")
	require.Len(t, history, 120)
	assert.Equal(t, int64(180), history[0].Minute)
	assert.Equal(t, int64(299), history[119].Minute)

	latest, ok := store.Latest("B1")
	require.True(t, ok)
	assert.Equal(t, int64(299), latest.Minute)
}

func TestStoreBeforeWrap(t *testing.T) {
	store := NewStore(5)
	store.Add(reading("B1", 0))
	store.Add(reading("B1", 1))

	history := store.History("B1")
	require.Len(t, history, 2)
	assert.Equal(t, int64(0), history[0].Minute)

	assert.Nil(t, store.History("B9"))
	_, ok := store.Latest("B9")
	assert.False(t, ok)
}

func TestStoreSnapshotIsCopy(t *testing.T) {
	store := NewStore(3)
	store.Add(reading("B1", 0))
	store.Add(reading("B2", 0))

	snapshot := store.Snapshot()
	snapshot.History["B1"][0].Minute = 99
	store.Add(reading("B1", 1))

	assert.Equal(t, int64(0), store.History("B1")[0].Minute)
	assert.Len(t, snapshot.History["B1"], 1)
	assert.Len(t, snapshot.Latest, 2)
}

func TestStoreConcurrentAccess(t *testing.T) {
	store := NewStore(50)

	var wg sync.WaitGroup
	for site := 1; site <= 5; site++ {
		wg.Add(2)
		siteId := fmt.Sprintf("B%d", site)
		go func() {
			defer wg.Done()
			for minute := int64(0); minute < 200; minute++ {
				store.Add(reading(siteId, minute))
			}
		}()
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				store.Snapshot()
				store.History(siteId)
			}
		}()
	}
	wg.Wait()

	snapshot := store.Snapshot()
	require.Len(t, snapshot.History, 5)
	for siteId, history := range snapshot.History {
		assert.Len(t, history, 50, siteId)
		assert.Equal(t, int64(199), snapshot.Latest[siteId].Minute)
	}
}

func TestDecodeReading(t *testing.T) {
	decoded, err := DecodeReading([]byte(`{"building_id":"B3","sim_minute":12,"is_deficit":true}`))
	require.NoError(t, err)
	assert.Equal(t, "B3", decoded.SiteId)
	assert.Equal(t, int64(12), decoded.Minute)
	assert.True(t, decoded.IsDeficit)

	_, err = DecodeReading([]byte(`{"sim_minute":12}`))
	assert.ErrorContains(t, err, "building_id")

	_, err = DecodeReading([]byte(`not json`))
	assert.Error(t, err)
}
