package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"testing"
	"time"

	gcs "cloud.google.com/go/storage"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/cockroachdb/errors"
	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"
)

// mockAPIError implements smithy.APIError for testing error code mapping.
type mockAPIError struct {
	code    string
	message string
}

func (e *mockAPIError) Error() string                 { return fmt.Sprintf("%s: %s", e.code, e.message) }
func (e *mockAPIError) ErrorCode() string             { return e.code }
func (e *mockAPIError) ErrorMessage() string          { return e.message }
func (e *mockAPIError) ErrorFault() smithy.ErrorFault { return smithy.FaultUnknown }

var _ smithy.APIError = (*mockAPIError)(nil)

// fakeS3 serves ListObjectsV2 from fixed pages and GetObject from a map.
type fakeS3 struct {
	pages   []*s3.ListObjectsV2Output
	objects map[string][]byte
	tokens  []string
	err     error
}

func (f *fakeS3) ListObjectsV2(_ context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.tokens = append(f.tokens, aws.ToString(in.ContinuationToken))
	page := f.pages[0]
	f.pages = f.pages[1:]
	return page, nil
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	data, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func TestMemory(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	ts := time.Date(2025, 8, 13, 0, 0, 0, 0, time.UTC)
	m.Put("alice/b.csv", []byte("b"), ts)
	m.Put("alice/a.csv", []byte("a"), ts)
	m.Put("bob/c.csv", []byte("c"), ts)

	objs, err := m.List(ctx, "alice/")
	require.NoError(t, err)
	require.Len(t, objs, 2)
	assert.Equal(t, "alice/a.csv", objs[0].Key)
	assert.Equal(t, "alice/b.csv", objs[1].Key)
	assert.Equal(t, int64(1), objs[0].Size)
	assert.Equal(t, ts, objs[0].LastModified)

	data, err := m.Get(ctx, "bob/c.csv")
	require.NoError(t, err)
	assert.Equal(t, []byte("c"), data)

	_, err = m.Get(ctx, "bob/missing.csv")
	assert.True(t, IsNotFound(err))
}

func TestError_Format(t *testing.T) {
	err := &Error{Op: "Get", Backend: "s3", Bucket: "b", Key: "k", Err: ErrNotFound}
	assert.Equal(t, "s3 Get: b/k: object not found", err.Error())

	err = &Error{Op: "List", Backend: "gcs", Bucket: "b", Err: ErrAccessDenied}
	assert.Equal(t, "gcs List: b: access denied", err.Error())
}

func TestWrap_MarksKind(t *testing.T) {
	sdkErr := errors.New("NoSuchKey: gone")
	err := wrap("s3", "Get", "b", "k", sdkErr, ErrNotFound)

	assert.True(t, errors.Is(err, ErrNotFound))
	assert.True(t, errors.Is(err, sdkErr))

	var se *Error
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "Get", se.Op)
}

func TestS3Config_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  S3Config
		wantErr string
	}{
		{"empty bucket", S3Config{}, "bucket name is required"},
		{"minimal", S3Config{Bucket: "b"}, ""},
		{"explicit creds", S3Config{Bucket: "b", AccessKeyID: "AKIA", SecretAccessKey: "secret"}, ""},
		{"access key only", S3Config{Bucket: "b", AccessKeyID: "AKIA"}, "must be provided together"},
		{"secret only", S3Config{Bucket: "b", SecretAccessKey: "secret"}, "must be provided together"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestClassifyS3(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"typed no such key", &types.NoSuchKey{}, ErrNotFound},
		{"typed not found", &types.NotFound{}, ErrNotFound},
		{"typed no such bucket", &types.NoSuchBucket{}, ErrBucketNotFound},
		{"api access denied", &mockAPIError{code: "AccessDenied"}, ErrAccessDenied},
		{"api bad signature", &mockAPIError{code: "SignatureDoesNotMatch"}, ErrAccessDenied},
		{"api slow down", &mockAPIError{code: "SlowDown"}, ErrUnavailable},
		{"api unknown code", &mockAPIError{code: "Teapot"}, nil},
		{"plain error", errors.New("boom"), nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, classifyS3(tt.err))
		})
	}
}

func TestS3Store_ListPages(t *testing.T) {
	ts := time.Date(2025, 8, 13, 9, 0, 0, 0, time.UTC)
	fake := &fakeS3{pages: []*s3.ListObjectsV2Output{
		{
			Contents:              []types.Object{{Key: aws.String("alice/a.csv"), Size: aws.Int64(3), LastModified: &ts}},
			IsTruncated:           aws.Bool(true),
			NextContinuationToken: aws.String("page-2"),
		},
		{
			Contents:    []types.Object{{Key: aws.String("alice/b.csv"), Size: aws.Int64(5)}},
			IsTruncated: aws.Bool(false),
		},
	}}
	store := &S3Store{client: fake, bucket: "results"}

	objs, err := store.List(context.Background(), "alice/")
	require.NoError(t, err)
	require.Len(t, objs, 2)
	assert.Equal(t, "alice/a.csv", objs[0].Key)
	assert.Equal(t, ts, objs[0].LastModified)
	assert.Equal(t, int64(5), objs[1].Size)
	assert.Equal(t, []string{"", "page-2"}, fake.tokens)
}

func TestS3Store_ListError(t *testing.T) {
	store := &S3Store{client: &fakeS3{err: &mockAPIError{code: "AccessDenied"}}, bucket: "results"}
	_, err := store.List(context.Background(), "alice/")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrAccessDenied))
}

func TestS3Store_Get(t *testing.T) {
	store := &S3Store{client: &fakeS3{objects: map[string][]byte{"alice/a.csv": []byte("x,y\n")}}, bucket: "results"}

	data, err := store.Get(context.Background(), "alice/a.csv")
	require.NoError(t, err)
	assert.Equal(t, []byte("x,y\n"), data)

	_, err = store.Get(context.Background(), "alice/none.csv")
	assert.True(t, IsNotFound(err))
}

func TestClassifyMinIO(t *testing.T) {
	assert.Equal(t, ErrNotFound, classifyMinIO(minio.ErrorResponse{Code: "NoSuchKey"}))
	assert.Equal(t, ErrBucketNotFound, classifyMinIO(minio.ErrorResponse{Code: "NoSuchBucket"}))
	assert.Equal(t, ErrAccessDenied, classifyMinIO(minio.ErrorResponse{Code: "AccessDenied"}))
	assert.Equal(t, ErrUnavailable, classifyMinIO(minio.ErrorResponse{Code: "SlowDown"}))
	assert.Nil(t, classifyMinIO(errors.New("connection reset")))
}

func TestClassifyGCS(t *testing.T) {
	assert.Equal(t, ErrNotFound, classifyGCS(gcs.ErrObjectNotExist))
	assert.Equal(t, ErrBucketNotFound, classifyGCS(gcs.ErrBucketNotExist))
	assert.Equal(t, ErrNotFound, classifyGCS(&googleapi.Error{Code: 404}))
	assert.Equal(t, ErrAccessDenied, classifyGCS(&googleapi.Error{Code: 403}))
	assert.Equal(t, ErrUnavailable, classifyGCS(&googleapi.Error{Code: 503}))
	assert.Nil(t, classifyGCS(errors.New("eof")))
}
