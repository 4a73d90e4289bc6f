package modelstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Mithilesh-1311/YANTRA/internal/model"
)

var ErrSnapshotNotFound = errors.New("snapshot not found")

// IModelStore keeps one snapshot per name: a site id or the global model.
type IModelStore interface {
	Load(ctx context.Context, name string) (*model.ModelSnapshot, error)
	Save(ctx context.Context, name string, snapshot *model.ModelSnapshot) error
}

// IAuditLog is the append-only history of aggregation rounds.
type IAuditLog interface {
	History(ctx context.Context) ([]model.AggregationRecord, error)
	Append(ctx context.Context, record model.AggregationRecord) error
}

func decodeSnapshot(name string, data []byte) (*model.ModelSnapshot, error) {
	snapshot := &model.ModelSnapshot{}
	if err := json.Unmarshal(data, snapshot); err != nil {
		return nil, fmt.Errorf("corrupt snapshot %s: %w", name, err)
	}
	if err := snapshot.Validate(); err != nil {
		return nil, fmt.Errorf("corrupt snapshot %s: %w", name, err)
	}
	return snapshot, nil
}

func encodeSnapshot(snapshot *model.ModelSnapshot) ([]byte, error) {
	if err := snapshot.Validate(); err != nil {
		return nil, err
	}
	return json.Marshal(snapshot)
}
