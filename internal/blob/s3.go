package blob

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	aws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

// S3 implements Store using an S3-compatible backend (AWS S3 or MinIO).
// Minimal surface area: single bucket, keys map to object keys directly.
// The object ETag doubles as the version token; conditional writes use
// If-Match / If-None-Match preconditions so a concurrent writer surfaces as
// ErrVersionConflict instead of a silent overwrite.
type S3 struct {
	client *s3.Client
	bucket string
}

// S3Config holds explicit construction parameters (mostly for tests). For
// prod we rely primarily on environment variables.
type S3Config struct {
	Region          string
	Bucket          string
	Endpoint        string // optional; if set enables custom endpoint (e.g. MinIO)
	AccessKeyID     string // optional (falls back to default credentials chain)
	SecretAccessKey string // optional
	SessionToken    string // optional
	PathStyle       bool
}

// Environment variables:
//   DATALOGGER_BLOB_DRIVER=s3
//   DATALOGGER_BLOB_S3_BUCKET=<bucket> (required)
//   DATALOGGER_BLOB_S3_REGION=<region> (default us-east-1)
//   DATALOGGER_BLOB_S3_ENDPOINT=<url> (optional, for MinIO)
//   DATALOGGER_BLOB_S3_PATH_STYLE=true|false (default false)
//   AWS_ACCESS_KEY_ID / AWS_SECRET_ACCESS_KEY / AWS_SESSION_TOKEN (optional)

// NewS3 creates an S3 blob store from S3Config.
func NewS3(ctx context.Context, cfg S3Config) (*S3, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket required")
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if cfg.AccessKeyID != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, cfg.SessionToken)))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, err
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.PathStyle {
			o.UsePathStyle = true
		}
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	return &S3{client: client, bucket: cfg.Bucket}, nil
}

// OpenS3FromEnv constructs an S3 store from process environment.
func OpenS3FromEnv(ctx context.Context) (*S3, error) {
	bucket := os.Getenv("DATALOGGER_BLOB_S3_BUCKET")
	if bucket == "" {
		return nil, fmt.Errorf("DATALOGGER_BLOB_S3_BUCKET required for s3 driver")
	}
	cfg := S3Config{
		Bucket:    bucket,
		Region:    os.Getenv("DATALOGGER_BLOB_S3_REGION"),
		Endpoint:  os.Getenv("DATALOGGER_BLOB_S3_ENDPOINT"),
		PathStyle: strings.EqualFold(os.Getenv("DATALOGGER_BLOB_S3_PATH_STYLE"), "true"),
	}
	return NewS3(ctx, cfg)
}

// Driver returns the blob driver identifier.
func (s *S3) Driver() Driver { return DriverS3 }

// Exists reports whether key has been written.
func (s *S3) Exists(ctx context.Context, key string) (bool, error) {
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{Bucket: &s.bucket, Key: &key})
	if err != nil {
		if isS3NotFound(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Read returns the object content with its ETag as the version token.
func (s *S3) Read(ctx context.Context, key string) ([]byte, Info, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{Bucket: &s.bucket, Key: &key})
	if err != nil {
		if isS3NotFound(err) {
			return nil, Info{}, fmt.Errorf("read %s: %w", key, ErrNotFound)
		}
		return nil, Info{}, err
	}
	defer func() { _ = out.Body.Close() }()
	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, Info{}, err
	}
	info := Info{
		Key:          key,
		Size:         int64(len(data)),
		ContentType:  aws.ToString(out.ContentType),
		Version:      strings.Trim(aws.ToString(out.ETag), "\""),
		LastModified: aws.ToTime(out.LastModified),
	}
	return data, info, nil
}

// Write stores data under key. ExpectedVersion maps onto S3 preconditions:
// empty string -> If-None-Match: *, otherwise If-Match: <etag>.
func (s *S3) Write(ctx context.Context, key string, data []byte, opts WriteOptions) (Info, error) {
	input := &s3.PutObjectInput{Bucket: &s.bucket, Key: &key, Body: bytes.NewReader(data)}
	if opts.ContentType != "" {
		input.ContentType = &opts.ContentType
	}
	if opts.ExpectedVersion != nil {
		if *opts.ExpectedVersion == "" {
			input.IfNoneMatch = aws.String("*")
		} else {
			input.IfMatch = aws.String(*opts.ExpectedVersion)
		}
	}
	out, err := s.client.PutObject(ctx, input)
	if err != nil {
		if isS3Precondition(err) {
			return Info{}, fmt.Errorf("write %s: %w", key, ErrVersionConflict)
		}
		return Info{}, err
	}
	return Info{
		Key:          key,
		Size:         int64(len(data)),
		ContentType:  opts.ContentType,
		Version:      strings.Trim(aws.ToString(out.ETag), "\""),
		LastModified: time.Now().UTC(),
	}, nil
}

func isS3NotFound(err error) bool {
	var nf *types.NotFound
	if errors.As(err, &nf) {
		return true
	}
	var nk *types.NoSuchKey
	if errors.As(err, &nk) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		code := apiErr.ErrorCode()
		return code == "NotFound" || code == "NoSuchKey"
	}
	return false
}

func isS3Precondition(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "PreconditionFailed", "ConditionalRequestConflict":
			return true
		}
	}
	return false
}
