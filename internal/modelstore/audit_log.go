package modelstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/Mithilesh-1311/YANTRA/internal/model"
)

// FileAuditLog stores the round history as a single JSON array that is
// rewritten on every append.
type FileAuditLog struct {
	path string
	mu   sync.Mutex
}

func NewFileAuditLog(path string) (*FileAuditLog, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0777); err != nil {
		return nil, fmt.Errorf("creating audit log directory: %w", err)
	}
	return &FileAuditLog{path: path}, nil
}

func (auditLog *FileAuditLog) History(_ context.Context) ([]model.AggregationRecord, error) {
	auditLog.mu.Lock()
	defer auditLog.mu.Unlock()

	return auditLog.read()
}

func (auditLog *FileAuditLog) Append(_ context.Context, record model.AggregationRecord) error {
	auditLog.mu.Lock()
	defer auditLog.mu.Unlock()

	history, err := auditLog.read()
	if err != nil {
		return err
	}
	history = append(history, record)

	data, err := json.MarshalIndent(history, "", "  ")
	if err != nil {
		return err
	}
	return writeFileAtomic(auditLog.path, data)
}

func (auditLog *FileAuditLog) read() ([]model.AggregationRecord, error) {
	data, err := os.ReadFile(auditLog.path)
	if errors.Is(err, os.ErrNotExist) {
		return []model.AggregationRecord{}, nil
	}
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return []model.AggregationRecord{}, nil
	}

	var history []model.AggregationRecord
	if err := json.Unmarshal(data, &history); err != nil {
		return nil, fmt.Errorf("corrupt audit log %s: %w", auditLog.path, err)
	}
	return history, nil
}
