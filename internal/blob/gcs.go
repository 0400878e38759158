// Google Cloud Storage backend for PageKeep.
//
// The GCS store keeps all blobs in a single bucket under an optional object
// prefix. GCS writes commit on Close, so a failed upload never leaves a
// readable object at the key. Direct-upload grants are issued as V4 signed
// PUT URLs scoped to a single object and content type.
//
// Credentials are resolved via Application Default Credentials
// (GOOGLE_APPLICATION_CREDENTIALS, gcloud auth, metadata server).
package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	gcs "cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/pagekeep/pagekeep/internal/config"
)

// GCSAPI defines the subset of the GCS client interface that the store uses.
// This allows mocking in tests.
type GCSAPI interface {
	// NewWriter returns a writer for the given object. The write becomes
	// visible only when Close returns nil.
	NewWriter(ctx context.Context, object, contentType string) io.WriteCloser
	// NewReader returns a reader for the given object along with its size and
	// content type. Returns an error wrapping ErrNotExist when the object is
	// missing.
	NewReader(ctx context.Context, object string) (io.ReadCloser, int64, string, error)
	// Delete deletes the given object.
	Delete(ctx context.Context, object string) error
	// Exists checks whether the given object exists.
	Exists(ctx context.Context, object string) (bool, error)
	// SignedPutURL returns a V4 signed URL authorizing a PUT of the given
	// object with exactly the given content type until expires.
	SignedPutURL(object, contentType string, expires time.Time) (string, error)
}

// realGCSClient wraps the official GCS client to satisfy GCSAPI.
type realGCSClient struct {
	client      *gcs.Client
	bucket      string
	signerEmail string
	signerKey   []byte
}

func (c *realGCSClient) NewWriter(ctx context.Context, object, contentType string) io.WriteCloser {
	w := c.client.Bucket(c.bucket).Object(object).NewWriter(ctx)
	w.ContentType = contentType
	return w
}

func (c *realGCSClient) NewReader(ctx context.Context, object string) (io.ReadCloser, int64, string, error) {
	r, err := c.client.Bucket(c.bucket).Object(object).NewReader(ctx)
	if err != nil {
		if errors.Is(err, gcs.ErrObjectNotExist) {
			return nil, 0, "", fmt.Errorf("%q: %w", object, ErrNotExist)
		}
		return nil, 0, "", err
	}
	return r, r.Attrs.Size, r.Attrs.ContentType, nil
}

func (c *realGCSClient) Delete(ctx context.Context, object string) error {
	return c.client.Bucket(c.bucket).Object(object).Delete(ctx)
}

func (c *realGCSClient) Exists(ctx context.Context, object string) (bool, error) {
	_, err := c.client.Bucket(c.bucket).Object(object).Attrs(ctx)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, gcs.ErrObjectNotExist) {
		return false, nil
	}
	return false, err
}

func (c *realGCSClient) SignedPutURL(object, contentType string, expires time.Time) (string, error) {
	opts := &gcs.SignedURLOptions{
		Scheme:      gcs.SigningSchemeV4,
		Method:      "PUT",
		ContentType: contentType,
		Expires:     expires,
	}
	if c.signerEmail != "" {
		opts.GoogleAccessID = c.signerEmail
		opts.PrivateKey = c.signerKey
	}
	return c.client.Bucket(c.bucket).SignedURL(object, opts)
}

// GCSStore implements the Store interface on top of a Google Cloud Storage
// bucket.
type GCSStore struct {
	// Bucket is the GCS bucket name.
	Bucket string
	// Prefix is the object prefix for all blobs in the bucket.
	Prefix string
	// client is the GCS client (satisfying the GCSAPI interface).
	client GCSAPI
}

// NewGCSStore creates a GCSStore from configuration using Application
// Default Credentials, with an optional endpoint override for emulators.
func NewGCSStore(ctx context.Context, cfg config.GCSConfig) (*GCSStore, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("gcs bucket is required")
	}

	var clientOpts []option.ClientOption
	if cfg.EndpointURL != "" {
		clientOpts = append(clientOpts, option.WithEndpoint(cfg.EndpointURL), option.WithoutAuthentication())
	}

	client, err := gcs.NewClient(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("creating GCS client: %w", err)
	}

	real := &realGCSClient{
		client:      client,
		bucket:      cfg.Bucket,
		signerEmail: cfg.SignerEmail,
	}
	if cfg.SignerKeyFile != "" {
		key, err := os.ReadFile(cfg.SignerKeyFile)
		if err != nil {
			return nil, fmt.Errorf("reading GCS signer key file: %w", err)
		}
		real.signerKey = key
	}

	slog.Info("GCS store initialized", "bucket", cfg.Bucket, "prefix", cfg.Prefix)
	return &GCSStore{Bucket: cfg.Bucket, Prefix: cfg.Prefix, client: real}, nil
}

// NewGCSStoreWithClient creates a GCSStore with a pre-configured client.
// This is primarily used for testing with mocks.
func NewGCSStoreWithClient(bucket, prefix string, client GCSAPI) *GCSStore {
	return &GCSStore{Bucket: bucket, Prefix: prefix, client: client}
}

// objectName maps a store key to the full GCS object name.
func (s *GCSStore) objectName(key string) string {
	return s.Prefix + key
}

// location returns the canonical location string for a key.
func (s *GCSStore) location(key string) string {
	return "gs://" + s.Bucket + "/" + s.objectName(key)
}

// Put streams blob data to the bucket. The object becomes visible only when
// the writer closes cleanly.
func (s *GCSStore) Put(ctx context.Context, key string, reader io.Reader, size int64, contentType string) (string, error) {
	w := s.client.NewWriter(ctx, s.objectName(key), contentType)
	if _, err := io.Copy(w, reader); err != nil {
		w.Close()
		return "", fmt.Errorf("uploading to GCS %q: %w", key, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("finalizing GCS upload %q: %w", key, err)
	}
	return s.location(key), nil
}

// Get retrieves blob data from the bucket as a stream.
func (s *GCSStore) Get(ctx context.Context, key string) (*Object, error) {
	body, size, contentType, err := s.client.NewReader(ctx, s.objectName(key))
	if err != nil {
		if errors.Is(err, ErrNotExist) {
			return nil, err
		}
		return nil, fmt.Errorf("downloading from GCS %q: %w", key, err)
	}
	return &Object{Body: body, Size: size, ContentType: contentType}, nil
}

// Delete removes the object from the bucket. Missing objects are not an
// error, per the Store contract.
func (s *GCSStore) Delete(ctx context.Context, key string) error {
	err := s.client.Delete(ctx, s.objectName(key))
	if err != nil && !errors.Is(err, gcs.ErrObjectNotExist) {
		return fmt.Errorf("deleting from GCS %q: %w", key, err)
	}
	return nil
}

// Exists checks whether an object is stored at the key.
func (s *GCSStore) Exists(ctx context.Context, key string) (bool, error) {
	ok, err := s.client.Exists(ctx, s.objectName(key))
	if err != nil {
		return false, fmt.Errorf("checking GCS object %q: %w", key, err)
	}
	return ok, nil
}

// IssueUploadGrant returns a V4 signed PUT URL for direct client upload.
func (s *GCSStore) IssueUploadGrant(ctx context.Context, key, contentType string, ttl time.Duration) (*UploadGrant, error) {
	expires := time.Now().Add(ttl).UTC()
	url, err := s.client.SignedPutURL(s.objectName(key), contentType, expires)
	if err != nil {
		return nil, fmt.Errorf("signing GCS upload URL for %q: %w", key, err)
	}
	return &UploadGrant{
		URL:       url,
		Method:    "PUT",
		Headers:   map[string]string{"Content-Type": contentType},
		Location:  s.location(key),
		ExpiresAt: expires,
	}, nil
}
