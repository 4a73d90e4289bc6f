package fedavg

import (
	"context"
	"errors"
	"os"

	"github.com/Mithilesh-1311/YANTRA/internal/common"
	"github.com/Mithilesh-1311/YANTRA/internal/model"
	"github.com/Mithilesh-1311/YANTRA/internal/telemetry"
)

// IWeightSource decides how many samples a participant contributes.
type IWeightSource interface {
	SampleCount(ctx context.Context, siteId string, snapshot *model.ModelSnapshot) (int64, error)
}

// SnapshotWeightSource trusts the sample count stored in the snapshot.
type SnapshotWeightSource struct{}

func (SnapshotWeightSource) SampleCount(_ context.Context, _ string, snapshot *model.ModelSnapshot) (int64, error) {
	return snapshot.SampleCount, nil
}

// TimeseriesWeightSource counts the rows of the site's recorded time series.
// A site without a file yet counts as one sample.
type TimeseriesWeightSource struct {
	dataDir string
}

func NewTimeseriesWeightSource(dataDir string) *TimeseriesWeightSource {
	return &TimeseriesWeightSource{dataDir: dataDir}
}

func (source *TimeseriesWeightSource) SampleCount(_ context.Context, siteId string, _ *model.ModelSnapshot) (int64, error) {
	rows, err := telemetry.CountRecords(common.GetTimeseriesPath(source.dataDir, siteId))
	if errors.Is(err, os.ErrNotExist) {
		return 1, nil
	}
	if err != nil {
		return 0, err
	}
	return rows, nil
}

// ComputeWeights normalises sample counts so that the weights of all
// participants sum to one.
func ComputeWeights(sampleCounts map[string]int64) (map[string]float64, int64, error) {
	var total int64
	for _, count := range sampleCounts {
		if count < 0 {
			return nil, 0, ErrNegativeSampleCount
		}
		total += count
	}
	if total == 0 {
		return nil, 0, ErrZeroTotalWeight
	}

	weights := make(map[string]float64, len(sampleCounts))
	for siteId, count := range sampleCounts {
		weights[siteId] = float64(count) / float64(total)
	}
	return weights, total, nil
}
