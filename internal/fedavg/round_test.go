package fedavg

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/Mithilesh-1311/YANTRA/internal/common"
	"github.com/Mithilesh-1311/YANTRA/internal/model"
	"github.com/Mithilesh-1311/YANTRA/internal/modelstore"
	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	dir      string
	store    *modelstore.FileStore
	auditLog *modelstore.FileAuditLog
}

func newFixture(t *testing.T) *fixture {
	dir := t.TempDir()
	store, err := modelstore.NewFileStore(filepath.Join(dir, "models"))
	require.NoError(t, err)
	auditLog, err := modelstore.NewFileAuditLog(filepath.Join(dir, "models", common.AUDIT_LOG_FILE_NAME))
	require.NoError(t, err)
	return &fixture{dir: dir, store: store, auditLog: auditLog}
}

func (f *fixture) save(t *testing.T, siteId string, samples int64, values ...float64) {
	require.NoError(t, f.store.Save(context.Background(), siteId, &model.ModelSnapshot{
		SampleCount: samples,
		Tensors:     []model.Tensor{{Shape: []int{len(values)}, Values: values}},
	}))
}

func (f *fixture) load(t *testing.T, name string) *model.ModelSnapshot {
	snapshot, err := f.store.Load(context.Background(), name)
	require.NoError(t, err)
	return snapshot
}

func (f *fixture) round(siteIds ...string) *Round {
	return NewRound(f.store, f.auditLog, siteIds, SnapshotWeightSource{}, common.MIN_PARTICIPANTS,
		hclog.NewNullLogger())
}

func readAll(t *testing.T, dir string) map[string][]byte {
	contents := map[string][]byte{}
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, entry := range entries {
		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		require.NoError(t, err)
		contents[entry.Name()] = data
	}
	return contents
}

func TestComputeWeightsSumToOne(t *testing.T) {
	weights, total, err := ComputeWeights(map[string]int64{"B1": 7, "B2": 13, "B3": 1, "B4": 1439, "B5": 250})
	require.NoError(t, err)
	assert.Equal(t, int64(1710), total)

	sum := 0.0
	for _, weight := range weights {
		sum += weight
	}
	assert.InDelta(t, 1.0, sum, 1e-9)
}

func TestComputeWeightsRejectsEmptyTotals(t *testing.T) {
	_, _, err := ComputeWeights(map[string]int64{"B1": 0, "B2": 0})
	assert.ErrorIs(t, err, ErrZeroTotalWeight)

	_, _, err = ComputeWeights(map[string]int64{"B1": -1, "B2": 3})
	assert.ErrorIs(t, err, ErrNegativeSampleCount)
}

func TestRoundWeightedAverage(t *testing.T) {
	f := newFixture(t)
	f.save(t, "B1", 10, 2.0)
	f.save(t, "B2", 30, 4.0)

	record, err := f.round("B1", "B2").Run(context.Background())
	require.NoError(t, err)

	global := f.load(t, common.GLOBAL_SNAPSHOT_NAME)
	assert.InDelta(t, 3.5, global.Tensors[0].Values[0], 1e-12)
	assert.Equal(t, int64(40), global.SampleCount)

	b1 := f.load(t, "B1")
	b2 := f.load(t, "B2")
	assert.InDelta(t, 3.5, b1.Tensors[0].Values[0], 1e-12)
	assert.InDelta(t, 3.5, b2.Tensors[0].Values[0], 1e-12)
	assert.Equal(t, int64(10), b1.SampleCount)
	assert.Equal(t, int64(30), b2.SampleCount)

	assert.Equal(t, 1, record.Round)
	assert.Equal(t, []string{"B1", "B2"}, record.Participants)
	assert.Equal(t, int64(40), record.TotalSamples)
	assert.InDelta(t, 0.25, record.Weights["B1"], 1e-12)
	assert.InDelta(t, 0.75, record.Weights["B2"], 1e-12)
	assert.NotEmpty(t, record.Id)

	history, err := f.auditLog.History(context.Background())
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, record.Id, history[0].Id)
}

func TestRoundMultiTensorAverage(t *testing.T) {
	f := newFixture(t)
	for siteId, samples := range map[string]int64{"B1": 1, "B2": 1, "B3": 2} {
		scale := float64(samples)
		if siteId == "B2" {
			scale = 3
		}
		require.NoError(t, f.store.Save(context.Background(), siteId, &model.ModelSnapshot{
			SampleCount: samples,
			Tensors: []model.Tensor{
				{Shape: []int{2, 2}, Values: []float64{scale, scale, scale, scale}},
				{Shape: []int{1}, Values: []float64{-scale}},
			},
		}))
	}

	_, err := f.round("B1", "B2", "B3").Run(context.Background())
	require.NoError(t, err)

	// (1*1 + 1*3 + 2*2) / 4
	global := f.load(t, common.GLOBAL_SNAPSHOT_NAME)
	require.Len(t, global.Tensors, 2)
	assert.Equal(t, []int{2, 2}, global.Tensors[0].Shape)
	for _, value := range global.Tensors[0].Values {
		assert.InDelta(t, 2.0, value, 1e-12)
	}
	assert.InDelta(t, -2.0, global.Tensors[1].Values[0], 1e-12)
}

func TestRoundWithTooFewSnapshotsChangesNothing(t *testing.T) {
	for _, present := range [][]string{{}, {"B1"}} {
		f := newFixture(t)
		for _, siteId := range present {
			f.save(t, siteId, 10, 2.0)
		}
		before := readAll(t, filepath.Join(f.dir, "models"))

		record, err := f.round("B1", "B2", "B3").Run(context.Background())
		assert.ErrorIs(t, err, ErrInsufficientParticipants)
		assert.Nil(t, record)

		assert.Equal(t, before, readAll(t, filepath.Join(f.dir, "models")))
		assert.NoFileExists(t, filepath.Join(f.dir, "models", common.AUDIT_LOG_FILE_NAME))
	}
}

func TestRoundShapeMismatchChangesNothing(t *testing.T) {
	f := newFixture(t)
	f.save(t, "B1", 10, 1.0, 2.0)
	f.save(t, "B2", 10, 1.0)
	before := readAll(t, filepath.Join(f.dir, "models"))

	_, err := f.round("B1", "B2").Run(context.Background())
	assert.ErrorIs(t, err, ErrShapeMismatch)
	assert.Equal(t, before, readAll(t, filepath.Join(f.dir, "models")))
}

func TestRoundSkipsMissingAndCorruptSnapshots(t *testing.T) {
	f := newFixture(t)
	f.save(t, "B1", 10, 2.0)
	f.save(t, "B3", 30, 4.0)
	require.NoError(t, os.WriteFile(f.store.Path("B4"), []byte("garbage"), 0644))

	record, err := f.round("B1", "B2", "B3", "B4").Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"B1", "B3"}, record.Participants)
	assert.NotContains(t, record.Weights, "B2")
	assert.NotContains(t, record.Weights, "B4")

	data, err := os.ReadFile(f.store.Path("B4"))
	require.NoError(t, err)
	assert.Equal(t, "garbage", string(data))
}

func TestRoundRerunAveragesAgain(t *testing.T) {
	f := newFixture(t)
	f.save(t, "B1", 10, 2.0)
	f.save(t, "B2", 30, 4.0)

	round := f.round("B1", "B2")
	_, err := round.Run(context.Background())
	require.NoError(t, err)
	second, err := round.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, second.Round)
	assert.InDelta(t, 3.5, f.load(t, common.GLOBAL_SNAPSHOT_NAME).Tensors[0].Values[0], 1e-12)

	history, err := f.auditLog.History(context.Background())
	require.NoError(t, err)
	assert.Len(t, history, 2)
}

func TestRoundZeroSamplesAborts(t *testing.T) {
	f := newFixture(t)
	f.save(t, "B1", 0, 2.0)
	f.save(t, "B2", 0, 4.0)
	before := readAll(t, filepath.Join(f.dir, "models"))

	_, err := f.round("B1", "B2").Run(context.Background())
	assert.ErrorIs(t, err, ErrZeroTotalWeight)
	assert.Equal(t, before, readAll(t, filepath.Join(f.dir, "models")))
}

func TestRoundTimeseriesWeights(t *testing.T) {
	f := newFixture(t)
	dataDir := filepath.Join(f.dir, "data")
	require.NoError(t, os.MkdirAll(dataDir, 0777))
	require.NoError(t, os.WriteFile(common.GetTimeseriesPath(dataDir, "B1"), []byte("h\n1\n2\n3\n"), 0644))

	f.save(t, "B1", 100, 2.0)
	f.save(t, "B2", 100, 6.0)

	round := NewRound(f.store, f.auditLog, []string{"B1", "B2"}, NewTimeseriesWeightSource(dataDir), 0,
		hclog.NewNullLogger())
	record, err := round.Run(context.Background())
	require.NoError(t, err)

	// B1 has three recorded rows, B2 has no file and counts as one.
	assert.Equal(t, map[string]int64{"B1": 3, "B2": 1}, record.SampleCounts)
	assert.InDelta(t, 3.0, f.load(t, common.GLOBAL_SNAPSHOT_NAME).Tensors[0].Values[0], 1e-12)
	assert.Equal(t, int64(100), f.load(t, "B1").SampleCount)
}

func TestRoundCancelledBeforeWriting(t *testing.T) {
	f := newFixture(t)
	f.save(t, "B1", 10, 2.0)
	f.save(t, "B2", 30, 4.0)
	before := readAll(t, filepath.Join(f.dir, "models"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.round("B1", "B2").Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, before, readAll(t, filepath.Join(f.dir, "models")))
}
