package fedavg

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/Mithilesh-1311/YANTRA/internal/common"
	"github.com/Mithilesh-1311/YANTRA/internal/model"
	"github.com/Mithilesh-1311/YANTRA/internal/modelstore"
	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"
	"gonum.org/v1/gonum/floats"
)

var (
	ErrInsufficientParticipants = errors.New("not enough participants")
	ErrShapeMismatch            = errors.New("participant snapshots differ in shape")
	ErrZeroTotalWeight          = errors.New("participants hold no samples")
	ErrNegativeSampleCount      = errors.New("negative sample count")
)

type participant struct {
	siteId      string
	snapshot    *model.ModelSnapshot
	sampleCount int64
}

// Round is one Federated Averaging pass over the configured sites.
type Round struct {
	store           modelstore.IModelStore
	auditLog        modelstore.IAuditLog
	siteIds         []string
	weightSource    IWeightSource
	minParticipants int
	logger          hclog.Logger
}

func NewRound(store modelstore.IModelStore, auditLog modelstore.IAuditLog, siteIds []string, weightSource IWeightSource,
	minParticipants int, logger hclog.Logger) *Round {
	if minParticipants < common.MIN_PARTICIPANTS {
		minParticipants = common.MIN_PARTICIPANTS
	}
	if weightSource == nil {
		weightSource = SnapshotWeightSource{}
	}

	return &Round{
		store:           store,
		auditLog:        auditLog,
		siteIds:         siteIds,
		weightSource:    weightSource,
		minParticipants: minParticipants,
		logger:          logger.Named("round"),
	}
}

// Run aggregates every loadable snapshot into a new global model, writes it
// back to each participant and to the global snapshot, and appends the audit
// record. Nothing is written unless all checks pass.
func (round *Round) Run(ctx context.Context) (*model.AggregationRecord, error) {
	participants := round.loadParticipants(ctx)
	if len(participants) < round.minParticipants {
		round.logger.Warn(fmt.Sprintf("Need at least %d models, found %d. Skipping round.", round.minParticipants,
			len(participants)))
		return nil, fmt.Errorf("%w: have %d, need %d", ErrInsufficientParticipants, len(participants),
			round.minParticipants)
	}

	sampleCounts := make(map[string]int64, len(participants))
	siteIds := make([]string, 0, len(participants))
	for _, p := range participants {
		sampleCounts[p.siteId] = p.sampleCount
		siteIds = append(siteIds, p.siteId)
	}

	weights, total, err := ComputeWeights(sampleCounts)
	if err != nil {
		return nil, err
	}

	if err := checkShapes(participants); err != nil {
		return nil, err
	}

	global := weightedSum(participants, weights)
	global.SampleCount = total

	history, err := round.auditLog.History(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read audit log: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	for _, p := range participants {
		updated := &model.ModelSnapshot{
			SampleCount: p.snapshot.SampleCount,
			Tensors:     cloneTensors(global.Tensors),
		}
		if err := round.store.Save(ctx, p.siteId, updated); err != nil {
			return nil, fmt.Errorf("failed to save model of %s: %w", p.siteId, err)
		}
	}
	if err := round.store.Save(ctx, common.GLOBAL_SNAPSHOT_NAME, global); err != nil {
		return nil, fmt.Errorf("failed to save global model: %w", err)
	}

	record := model.AggregationRecord{
		Id:           uuid.NewString(),
		Round:        len(history) + 1,
		Timestamp:    time.Now().UTC(),
		Participants: siteIds,
		SampleCounts: sampleCounts,
		Weights:      weights,
		TotalSamples: total,
	}
	if err := round.auditLog.Append(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to append audit record: %w", err)
	}

	for _, siteId := range siteIds {
		round.logger.Info(fmt.Sprintf("  %s: %d samples -> weight %.3f", siteId, sampleCounts[siteId], weights[siteId]))
	}
	round.logger.Info(fmt.Sprintf("Round %d complete: global model from %d sites, %d samples", record.Round,
		len(siteIds), total))

	return &record, nil
}

func (round *Round) loadParticipants(ctx context.Context) []participant {
	participants := make([]participant, 0, len(round.siteIds))
	for _, siteId := range round.siteIds {
		snapshot, err := round.store.Load(ctx, siteId)
		if errors.Is(err, modelstore.ErrSnapshotNotFound) {
			round.logger.Warn("no model yet, skipping", "site", siteId)
			continue
		}
		if err != nil {
			round.logger.Warn("unreadable model, skipping", "site", siteId, "error", err)
			continue
		}

		sampleCount, err := round.weightSource.SampleCount(ctx, siteId, snapshot)
		if err != nil {
			round.logger.Warn("failed to determine sample count, skipping", "site", siteId, "error", err)
			continue
		}

		participants = append(participants, participant{siteId: siteId, snapshot: snapshot, sampleCount: sampleCount})
	}
	return participants
}

func checkShapes(participants []participant) error {
	reference := participants[0]
	for _, p := range participants[1:] {
		if !reference.snapshot.SameShape(p.snapshot) {
			return fmt.Errorf("%w: %s and %s", ErrShapeMismatch, reference.siteId, p.siteId)
		}
	}
	return nil
}

// weightedSum expects participants of equal shape.
func weightedSum(participants []participant, weights map[string]float64) *model.ModelSnapshot {
	reference := participants[0].snapshot
	tensors := make([]model.Tensor, len(reference.Tensors))
	for i, tensor := range reference.Tensors {
		sum := make([]float64, len(tensor.Values))
		for _, p := range participants {
			floats.AddScaled(sum, weights[p.siteId], p.snapshot.Tensors[i].Values)
		}
		tensors[i] = model.Tensor{Shape: slices.Clone(tensor.Shape), Values: sum}
	}
	return &model.ModelSnapshot{Tensors: tensors}
}

func cloneTensors(tensors []model.Tensor) []model.Tensor {
	cloned := make([]model.Tensor, len(tensors))
	for i, tensor := range tensors {
		cloned[i] = model.Tensor{Shape: slices.Clone(tensor.Shape), Values: slices.Clone(tensor.Values)}
	}
	return cloned
}
