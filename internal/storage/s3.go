package storage

import (
	"context"
	"errors"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

// S3Config configures an S3 or S3-compatible store.
//
// Credentials follow the AWS default chain unless AccessKeyID and
// SecretAccessKey are both set. Endpoint and ForcePathStyle are for
// S3-compatible services.
type S3Config struct {
	Bucket          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	ForcePathStyle  bool
}

// DefaultAWSRegion applies when nothing else resolves a region for AWS.
const DefaultAWSRegion = "us-east-1"

// Validate checks required fields.
func (c *S3Config) Validate() error {
	if c.Bucket == "" {
		return &ConfigError{Field: "Bucket", Message: "bucket name is required"}
	}
	if (c.AccessKeyID != "") != (c.SecretAccessKey != "") {
		return &ConfigError{
			Field:   "AccessKeyID/SecretAccessKey",
			Message: "both access key ID and secret access key must be provided together",
		}
	}
	return nil
}

// ConfigError reports an invalid S3Config field.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "s3 config: " + e.Field + ": " + e.Message
}

// s3API is the subset of *s3.Client used here.
type s3API interface {
	ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

type S3Store struct {
	client s3API
	bucket string
}

var _ ObjectStore = (*S3Store)(nil)

func NewS3Store(ctx context.Context, cfg S3Config) (*S3Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var opts []func(*config.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, config.WithRegion(cfg.Region))
	}
	if cfg.AccessKeyID != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, wrap("s3", "New", cfg.Bucket, "", err, nil)
	}
	if awsCfg.Region == "" && cfg.Endpoint == "" {
		awsCfg.Region = DefaultAWSRegion
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.ForcePathStyle
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})

	return &S3Store{client: client, bucket: cfg.Bucket}, nil
}

// List follows continuation tokens until the listing is exhausted.
func (s *S3Store) List(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	input := &s3.ListObjectsV2Input{Bucket: aws.String(s.bucket)}
	if prefix != "" {
		input.Prefix = aws.String(prefix)
	}

	var out []ObjectInfo
	for {
		page, err := s.client.ListObjectsV2(ctx, input)
		if err != nil {
			return nil, s.wrapError("List", "", err)
		}
		for _, obj := range page.Contents {
			out = append(out, ObjectInfo{
				Key:          aws.ToString(obj.Key),
				Size:         aws.ToInt64(obj.Size),
				LastModified: aws.ToTime(obj.LastModified),
			})
		}
		if !aws.ToBool(page.IsTruncated) || page.NextContinuationToken == nil {
			return out, nil
		}
		input.ContinuationToken = page.NextContinuationToken
	}
}

func (s *S3Store) Get(ctx context.Context, key string) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, s.wrapError("Get", key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, s.wrapError("Get", key, err)
	}
	return data, nil
}

func (s *S3Store) Close() error {
	return nil
}

func (s *S3Store) wrapError(op, key string, err error) error {
	return wrap("s3", op, s.bucket, key, err, classifyS3(err))
}

func classifyS3(err error) error {
	var noSuchKey *types.NoSuchKey
	var notFound *types.NotFound
	var noSuchBucket *types.NoSuchBucket
	switch {
	case errors.As(err, &noSuchKey), errors.As(err, &notFound):
		return ErrNotFound
	case errors.As(err, &noSuchBucket):
		return ErrBucketNotFound
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return ErrNotFound
		case "NoSuchBucket":
			return ErrBucketNotFound
		case "AccessDenied", "Forbidden", "InvalidAccessKeyId", "SignatureDoesNotMatch":
			return ErrAccessDenied
		case "SlowDown", "Throttling", "ServiceUnavailable", "InternalError":
			return ErrUnavailable
		}
	}
	return nil
}
