package telemetry

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/Mithilesh-1311/YANTRA/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readRows(t *testing.T, path string) [][]string {
	file, err := os.Open(path)
	require.NoError(t, err)
	defer file.Close()

	rows, err := csv.NewReader(file).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestRecorderWritesHeaderOnce(t *testing.T) {
	dir := t.TempDir()

	recorder, err := NewRecorder(dir)
	require.NoError(t, err)

	reading := sampleReading()
	for i := 0; i < 3; i++ {
		reading.Minute = int64(i)
		require.NoError(t, recorder.Record(reading))
	}
	require.NoError(t, recorder.Close())

	recorder, err = NewRecorder(dir)
	require.NoError(t, err)
	reading.Minute = 3
	reading.IsDeficit = true
	require.NoError(t, recorder.Record(reading))
	require.NoError(t, recorder.Close())

	rows := readRows(t, common.GetTimeseriesPath(dir, "B1"))
	require.Len(t, rows, 5)
	assert.Equal(t, TimeseriesHeader, rows[0])
	assert.Equal(t, "0", rows[1][0])
	assert.Equal(t, "3", rows[4][0])
	assert.Equal(t, "0", rows[1][8])
	assert.Equal(t, "1", rows[4][8])

	count, err := CountRecords(common.GetTimeseriesPath(dir, "B1"))
	require.NoError(t, err)
	assert.Equal(t, int64(4), count)
}

func TestRecorderRowValues(t *testing.T) {
	dir := t.TempDir()
	recorder, err := NewRecorder(dir)
	require.NoError(t, err)
	defer recorder.Close()

	reading := sampleReading()
	require.NoError(t, recorder.Record(reading))

	rows := readRows(t, common.GetTimeseriesPath(dir, "B1"))
	require.Len(t, rows, 2)
	row := rows[1]
	assert.Equal(t, "481", row[0])
	assert.Equal(t, "8.0200", row[1])
	assert.Equal(t, "0.020000", row[2])
	assert.Equal(t, "0.050000", row[3])
	assert.Equal(t, "4.2000", row[4])
	assert.Equal(t, "-0.030000", row[5])
}

func TestRecorderKeepsSitesApart(t *testing.T) {
	dir := t.TempDir()
	recorder, err := NewRecorder(dir)
	require.NoError(t, err)

	first := sampleReading()
	second := sampleReading()
	second.SiteId = "B2"
	require.NoError(t, recorder.Record(first))
	require.NoError(t, recorder.Record(second))
	require.NoError(t, recorder.Record(second))
	require.NoError(t, recorder.Close())

	assert.Len(t, readRows(t, common.GetTimeseriesPath(dir, "B1")), 2)
	assert.Len(t, readRows(t, common.GetTimeseriesPath(dir, "B2")), 3)
}

func TestCountRecords(t *testing.T) {
	dir := t.TempDir()

	_, err := CountRecords(filepath.Join(dir, "missing.csv"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	path := filepath.Join(dir, "partial.csv")
	require.NoError(t, os.WriteFile(path, []byte("a,b\n1,2\n3,4"), 0644))
	count, err := CountRecords(path)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	empty := filepath.Join(dir, "empty.csv")
	require.NoError(t, os.WriteFile(empty, nil, 0644))
	count, err = CountRecords(empty)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}
