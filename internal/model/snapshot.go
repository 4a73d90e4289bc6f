package model

import (
	"fmt"
	"slices"
	"time"
)

// Tensor is one parameter block of a model, stored flat in row-major order.
type Tensor struct {
	Shape  []int     `json:"shape"`
	Values []float64 `json:"values"`
}

// Size is the number of elements implied by the shape.
func (tensor Tensor) Size() int {
	size := 1
	for _, dim := range tensor.Shape {
		size *= dim
	}
	return size
}

// ModelSnapshot is an opaque ordered parameter list plus the number of
// samples it was trained on. Aggregation never looks past this.
type ModelSnapshot struct {
	SampleCount int64    `json:"sample_count"`
	Tensors     []Tensor `json:"tensors"`
}

// Validate checks that every tensor holds as many values as its shape claims.
func (snapshot *ModelSnapshot) Validate() error {
	if snapshot.SampleCount < 0 {
		return fmt.Errorf("negative sample count: %d", snapshot.SampleCount)
	}
	for i, tensor := range snapshot.Tensors {
		if len(tensor.Values) != tensor.Size() {
			return fmt.Errorf("tensor %d: shape %v expects %d values, got %d", i, tensor.Shape,
				tensor.Size(), len(tensor.Values))
		}
	}
	return nil
}

// SameShape reports whether both snapshots have the same tensor count and
// the same dimensions tensor by tensor.
func (snapshot *ModelSnapshot) SameShape(other *ModelSnapshot) bool {
	if len(snapshot.Tensors) != len(other.Tensors) {
		return false
	}
	for i := range snapshot.Tensors {
		if !slices.Equal(snapshot.Tensors[i].Shape, other.Tensors[i].Shape) {
			return false
		}
	}
	return true
}

// AggregationRecord is one entry of the append-only FedAvg audit log.
type AggregationRecord struct {
	Id           string             `json:"id"`
	Round        int                `json:"round"`
	Timestamp    time.Time          `json:"timestamp"`
	Participants []string           `json:"buildings"`
	SampleCounts map[string]int64   `json:"data_sizes"`
	Weights      map[string]float64 `json:"weights"`
	TotalSamples int64              `json:"total_rows"`
}
