// Amazon S3 backend for PageKeep.
//
// The S3 store keeps all blobs in a single bucket under an optional key
// prefix. Objects are private, keys are deterministic (no random suffixes),
// and overwrites are allowed, so the same book id always maps to the same
// object. Direct-upload grants are issued as presigned PUT URLs scoped to a
// single key and content type.
//
// Credentials are resolved via the standard AWS credential chain
// (env vars, ~/.aws/credentials, IAM role, etc.) unless static credentials
// are configured.
package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/pagekeep/pagekeep/internal/config"
)

// S3API defines the subset of the AWS S3 client interface that the store
// uses. This allows mocking in tests.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
}

// S3Presigner defines the presigning operations the store uses for
// direct-upload grants. Satisfied by *s3.PresignClient.
type S3Presigner interface {
	PresignPutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// S3Store implements the Store interface on top of an Amazon S3 bucket
// (or any S3-compatible endpoint such as MinIO).
type S3Store struct {
	// Bucket is the S3 bucket name.
	Bucket string
	// Prefix is the key prefix for all objects in the bucket.
	Prefix string
	// client is the AWS S3 client (satisfying the S3API interface).
	client S3API
	// presigner issues presigned PUT URLs for direct uploads.
	presigner S3Presigner
}

// NewS3Store creates an S3Store from configuration. It initializes the AWS
// SDK client using the default credential chain, with optional overrides for
// custom endpoint, path-style addressing, and static credentials, then
// verifies the bucket is accessible.
func NewS3Store(ctx context.Context, cfg config.S3Config) (*S3Store, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}

	var loadOpts []func(*awsconfig.LoadOptions) error
	loadOpts = append(loadOpts, awsconfig.WithRegion(cfg.Region))

	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}

	var s3Opts []func(*s3.Options)
	if cfg.EndpointURL != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.EndpointURL)
		})
	}
	if cfg.UsePathStyle {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.UsePathStyle = true
		})
	}

	client := s3.NewFromConfig(awsCfg, s3Opts...)

	s := &S3Store{
		Bucket:    cfg.Bucket,
		Prefix:    cfg.Prefix,
		client:    client,
		presigner: s3.NewPresignClient(client),
	}

	// Verify the bucket is accessible.
	if _, err := client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(cfg.Bucket)}); err != nil {
		return nil, fmt.Errorf("cannot access S3 bucket %q: %w", cfg.Bucket, err)
	}

	slog.Info("S3 store initialized", "bucket", cfg.Bucket, "region", cfg.Region, "prefix", cfg.Prefix)
	return s, nil
}

// NewS3StoreWithClient creates an S3Store with pre-configured clients.
// This is primarily used for testing with mocks.
func NewS3StoreWithClient(bucket, prefix string, client S3API, presigner S3Presigner) *S3Store {
	return &S3Store{
		Bucket:    bucket,
		Prefix:    prefix,
		client:    client,
		presigner: presigner,
	}
}

// objectKey maps a store key to the full S3 object key.
func (s *S3Store) objectKey(key string) string {
	return s.Prefix + key
}

// location returns the canonical location string for a key.
func (s *S3Store) location(key string) string {
	return "s3://" + s.Bucket + "/" + s.objectKey(key)
}

// Put uploads blob data to the bucket. S3 object writes are atomic: a failed
// upload never leaves a readable object at the key.
func (s *S3Store) Put(ctx context.Context, key string, reader io.Reader, size int64, contentType string) (string, error) {
	input := &s3.PutObjectInput{
		Bucket:      aws.String(s.Bucket),
		Key:         aws.String(s.objectKey(key)),
		Body:        reader,
		ContentType: aws.String(contentType),
	}
	if size >= 0 {
		input.ContentLength = aws.Int64(size)
	}

	if _, err := s.client.PutObject(ctx, input); err != nil {
		return "", fmt.Errorf("uploading to S3 %q: %w", key, err)
	}

	return s.location(key), nil
}

// Get retrieves blob data from the bucket. The returned body streams from S3
// without buffering the whole object.
func (s *S3Store) Get(ctx context.Context, key string) (*Object, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(s.objectKey(key)),
	})
	if err != nil {
		if isS3NotFound(err) {
			return nil, fmt.Errorf("%q: %w", key, ErrNotExist)
		}
		return nil, fmt.Errorf("downloading from S3 %q: %w", key, err)
	}

	return &Object{
		Body:        out.Body,
		Size:        aws.ToInt64(out.ContentLength),
		ContentType: aws.ToString(out.ContentType),
	}, nil
}

// Delete removes the object from the bucket. S3 DeleteObject succeeds on
// missing keys, which gives the idempotency the Store contract requires.
func (s *S3Store) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(s.objectKey(key)),
	})
	if err != nil {
		return fmt.Errorf("deleting from S3 %q: %w", key, err)
	}
	return nil
}

// Exists checks whether an object is stored at the key via HeadObject.
func (s *S3Store) Exists(ctx context.Context, key string) (bool, error) {
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(s.objectKey(key)),
	})
	if err != nil {
		if isS3NotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("checking S3 object %q: %w", key, err)
	}
	return true, nil
}

// IssueUploadGrant returns a presigned PUT URL for direct client upload.
// The signature covers the key and the Content-Type header, so the grant
// cannot be replayed against a different key or file type.
func (s *S3Store) IssueUploadGrant(ctx context.Context, key, contentType string, ttl time.Duration) (*UploadGrant, error) {
	req, err := s.presigner.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.Bucket),
		Key:         aws.String(s.objectKey(key)),
		ContentType: aws.String(contentType),
	}, func(o *s3.PresignOptions) {
		o.Expires = ttl
	})
	if err != nil {
		return nil, fmt.Errorf("presigning S3 upload for %q: %w", key, err)
	}

	headers := map[string]string{"Content-Type": contentType}
	for name, values := range req.SignedHeader {
		if len(values) > 0 {
			headers[name] = values[0]
		}
	}

	return &UploadGrant{
		URL:       req.URL,
		Method:    req.Method,
		Headers:   headers,
		Location:  s.location(key),
		ExpiresAt: time.Now().Add(ttl).UTC(),
	}, nil
}

// isS3NotFound reports whether err indicates a missing object.
func isS3NotFound(err error) bool {
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &noSuchKey) {
		return true
	}
	var notFound *types.NotFound
	if errors.As(err, &notFound) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		code := apiErr.ErrorCode()
		return code == "NoSuchKey" || code == "NotFound"
	}
	return false
}
