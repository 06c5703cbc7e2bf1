package storage

import (
	"context"
	"io"

	"github.com/cockroachdb/errors"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinIOConfig configures a MinIO (or other S3-compatible) connection.
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

type MinIOClient struct {
	client *minio.Client
	bucket string
}

var _ ObjectStore = (*MinIOClient)(nil)

func NewMinIOClient(ctx context.Context, cfg MinIOConfig) (*MinIOClient, error) {
	if cfg.Endpoint == "" {
		cfg.Endpoint = "localhost:9000"
	}
	if cfg.Bucket == "" {
		return nil, errors.New("minio: bucket is required")
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create MinIO client")
	}

	// Results are written by the workers; a missing bucket is a
	// misconfiguration rather than something to create here.
	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, errors.Wrap(err, "failed to check bucket")
	}
	if !exists {
		return nil, wrap("minio", "New", cfg.Bucket, "", ErrBucketNotFound, nil)
	}

	return &MinIOClient{
		client: client,
		bucket: cfg.Bucket,
	}, nil
}

// List walks every object under prefix.
func (m *MinIOClient) List(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	var out []ObjectInfo
	for obj := range m.client.ListObjects(ctx, m.bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	}) {
		if obj.Err != nil {
			return nil, m.wrapError("List", "", obj.Err)
		}
		out = append(out, ObjectInfo{
			Key:          obj.Key,
			Size:         obj.Size,
			LastModified: obj.LastModified,
			ContentType:  obj.ContentType,
		})
	}
	return out, nil
}

// Get downloads the whole object.
func (m *MinIOClient) Get(ctx context.Context, objectName string) ([]byte, error) {
	object, err := m.client.GetObject(ctx, m.bucket, objectName, minio.GetObjectOptions{})
	if err != nil {
		return nil, m.wrapError("Get", objectName, err)
	}
	defer object.Close()

	// GetObject is lazy; missing keys surface on the first read.
	data, err := io.ReadAll(object)
	if err != nil {
		return nil, m.wrapError("Get", objectName, err)
	}
	return data, nil
}

func (m *MinIOClient) Close() error {
	return nil
}

func (m *MinIOClient) wrapError(op, key string, err error) error {
	return wrap("minio", op, m.bucket, key, err, classifyMinIO(err))
}

func classifyMinIO(err error) error {
	switch minio.ToErrorResponse(err).Code {
	case "NoSuchKey", "NotFound":
		return ErrNotFound
	case "NoSuchBucket":
		return ErrBucketNotFound
	case "AccessDenied", "InvalidAccessKeyId", "SignatureDoesNotMatch":
		return ErrAccessDenied
	case "SlowDown", "ServiceUnavailable", "InternalError":
		return ErrUnavailable
	}
	return nil
}
