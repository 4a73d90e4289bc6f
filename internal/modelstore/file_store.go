package modelstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Mithilesh-1311/YANTRA/internal/common"
	"github.com/Mithilesh-1311/YANTRA/internal/model"
)

// FileStore keeps snapshots as <dir>/<name>_model.json.
type FileStore struct {
	dir string
}

func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0777); err != nil {
		return nil, fmt.Errorf("creating model directory: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func (store *FileStore) Path(name string) string {
	return filepath.Join(store.dir, common.GetSnapshotFileName(name))
}

func (store *FileStore) Load(_ context.Context, name string) (*model.ModelSnapshot, error) {
	data, err := os.ReadFile(store.Path(name))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrSnapshotNotFound, name)
	}
	if err != nil {
		return nil, err
	}
	return decodeSnapshot(name, data)
}

func (store *FileStore) Save(_ context.Context, name string, snapshot *model.ModelSnapshot) error {
	data, err := encodeSnapshot(snapshot)
	if err != nil {
		return fmt.Errorf("refusing to save %s: %w", name, err)
	}
	return writeFileAtomic(store.Path(name), data)
}

// writeFileAtomic never leaves a half-written file at path: readers see
// either the previous content or the new one.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}
