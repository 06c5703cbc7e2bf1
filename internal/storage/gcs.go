package storage

import (
	"context"
	"errors"
	"io"

	gcs "cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// GCSStore reads results from a Google Cloud Storage bucket.
type GCSStore struct {
	client *gcs.Client
	bucket string
}

var _ ObjectStore = (*GCSStore)(nil)

func NewGCSStore(ctx context.Context, bucket string, opts ...option.ClientOption) (*GCSStore, error) {
	if bucket == "" {
		return nil, errors.New("gcs: bucket is required")
	}
	client, err := gcs.NewClient(ctx, opts...)
	if err != nil {
		return nil, wrap("gcs", "New", bucket, "", err, nil)
	}
	return &GCSStore{client: client, bucket: bucket}, nil
}

func (g *GCSStore) List(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	it := g.client.Bucket(g.bucket).Objects(ctx, &gcs.Query{Prefix: prefix})

	var out []ObjectInfo
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			return out, nil
		}
		if err != nil {
			return nil, g.wrapError("List", "", err)
		}
		out = append(out, ObjectInfo{
			Key:          attrs.Name,
			Size:         attrs.Size,
			LastModified: attrs.Updated,
			ContentType:  attrs.ContentType,
		})
	}
}

func (g *GCSStore) Get(ctx context.Context, key string) ([]byte, error) {
	r, err := g.client.Bucket(g.bucket).Object(key).NewReader(ctx)
	if err != nil {
		return nil, g.wrapError("Get", key, err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, g.wrapError("Get", key, err)
	}
	return data, nil
}

func (g *GCSStore) Close() error {
	return g.client.Close()
}

func (g *GCSStore) wrapError(op, key string, err error) error {
	return wrap("gcs", op, g.bucket, key, err, classifyGCS(err))
}

func classifyGCS(err error) error {
	switch {
	case errors.Is(err, gcs.ErrObjectNotExist):
		return ErrNotFound
	case errors.Is(err, gcs.ErrBucketNotExist):
		return ErrBucketNotFound
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Code == 404:
			return ErrNotFound
		case apiErr.Code == 401 || apiErr.Code == 403:
			return ErrAccessDenied
		case apiErr.Code == 429 || apiErr.Code >= 500:
			return ErrUnavailable
		}
	}
	return nil
}
