package modelstore

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/Mithilesh-1311/YANTRA/internal/common"
	"github.com/Mithilesh-1311/YANTRA/internal/model"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Secure    bool
}

// MinioStore keeps snapshots as objects named <name>_model.json in one bucket.
type MinioStore struct {
	client *minio.Client
	bucket string
}

// NewMinioStore creates the bucket when it does not exist yet.
func NewMinioStore(ctx context.Context, config MinioConfig) (*MinioStore, error) {
	client, err := minio.New(config.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(config.AccessKey, config.SecretKey, ""),
		Secure: config.Secure,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, config.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket %s: %w", config.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, config.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket %s: %w", config.Bucket, err)
		}
	}

	return &MinioStore{client: client, bucket: config.Bucket}, nil
}

func objectName(name string) string {
	return common.GetSnapshotFileName(name)
}

func (store *MinioStore) Load(ctx context.Context, name string) (*model.ModelSnapshot, error) {
	object, err := store.client.GetObject(ctx, store.bucket, objectName(name), minio.GetObjectOptions{})
	if err != nil {
		return nil, translateMinioError(name, err)
	}
	defer object.Close()

	data, err := io.ReadAll(object)
	if err != nil {
		return nil, translateMinioError(name, err)
	}
	return decodeSnapshot(name, data)
}

func (store *MinioStore) Save(ctx context.Context, name string, snapshot *model.ModelSnapshot) error {
	data, err := encodeSnapshot(snapshot)
	if err != nil {
		return fmt.Errorf("refusing to save %s: %w", name, err)
	}

	_, err = store.client.PutObject(ctx, store.bucket, objectName(name), bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: "application/json"})
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", name, err)
	}
	return nil
}

func translateMinioError(name string, err error) error {
	if minio.ToErrorResponse(err).Code == "NoSuchKey" {
		return fmt.Errorf("%w: %s", ErrSnapshotNotFound, name)
	}
	return fmt.Errorf("failed to get %s: %w", name, err)
}
