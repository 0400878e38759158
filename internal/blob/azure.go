// Azure Blob Storage backend for PageKeep.
//
// The Azure store keeps all blobs in a single container under an optional
// name prefix. Block blob uploads commit atomically, so a failed upload never
// leaves a readable blob at the key. Direct-upload grants are issued as blob
// SAS URLs, which requires shared-key authentication; with AAD credentials
// the backend still serves reads and writes but cannot issue grants.
package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/pagekeep/pagekeep/internal/config"
)

// AzureBlobAPI defines the subset of the Azure Blob Storage client interface
// that the store uses. This allows mocking in tests.
type AzureBlobAPI interface {
	// Upload streams data to a block blob, overwriting if it already exists.
	Upload(ctx context.Context, blobName string, reader io.Reader, contentType string) error
	// Download opens a blob's content stream along with its size and content
	// type. Returns an error wrapping ErrNotExist when the blob is missing.
	Download(ctx context.Context, blobName string) (io.ReadCloser, int64, string, error)
	// Delete deletes a blob. Deleting a missing blob is not an error.
	Delete(ctx context.Context, blobName string) error
	// Exists checks whether a blob exists.
	Exists(ctx context.Context, blobName string) (bool, error)
	// SignedPutURL returns a SAS URL authorizing a PUT of the given blob
	// until expires. Returns an error when the client cannot sign.
	SignedPutURL(blobName string, expires time.Time) (string, error)
}

// AzureStore implements the Store interface on top of an Azure Blob Storage
// container.
type AzureStore struct {
	// Container is the blob container name.
	Container string
	// AccountURL is the storage account URL.
	AccountURL string
	// Prefix is the blob name prefix for all blobs in the container.
	Prefix string
	// client is the Azure Blob client (satisfying the AzureBlobAPI interface).
	client AzureBlobAPI
}

// NewAzureStore creates an AzureStore from configuration. Shared-key
// credentials are used when an account key is configured; otherwise the
// client authenticates via DefaultAzureCredential.
func NewAzureStore(ctx context.Context, cfg config.AzureConfig) (*AzureStore, error) {
	if cfg.Container == "" {
		return nil, fmt.Errorf("azure container is required")
	}
	accountURL := cfg.AccountURL
	if accountURL == "" {
		if cfg.Account == "" {
			return nil, fmt.Errorf("azure account or account_url is required")
		}
		accountURL = fmt.Sprintf("https://%s.blob.core.windows.net", cfg.Account)
	}

	client, err := newRealAzureClient(accountURL, cfg.Account, cfg.AccountKey, cfg.Container)
	if err != nil {
		return nil, fmt.Errorf("creating Azure client: %w", err)
	}

	s := &AzureStore{
		Container:  cfg.Container,
		AccountURL: accountURL,
		Prefix:     cfg.Prefix,
		client:     client,
	}

	// Verify the container is reachable.
	if _, err := s.client.Exists(ctx, s.Prefix+"library.json"); err != nil {
		return nil, fmt.Errorf("cannot access Azure container %q: %w", cfg.Container, err)
	}

	slog.Info("Azure store initialized", "container", cfg.Container, "account", accountURL, "prefix", cfg.Prefix)
	return s, nil
}

// NewAzureStoreWithClient creates an AzureStore with a pre-configured client.
// This is primarily used for testing with mocks.
func NewAzureStoreWithClient(container, accountURL, prefix string, client AzureBlobAPI) *AzureStore {
	return &AzureStore{
		Container:  container,
		AccountURL: accountURL,
		Prefix:     prefix,
		client:     client,
	}
}

// blobName maps a store key to the full Azure blob name.
func (s *AzureStore) blobName(key string) string {
	return s.Prefix + key
}

// location returns the canonical location string for a key.
func (s *AzureStore) location(key string) string {
	return s.AccountURL + "/" + s.Container + "/" + s.blobName(key)
}

// Put streams blob data to the container.
func (s *AzureStore) Put(ctx context.Context, key string, reader io.Reader, size int64, contentType string) (string, error) {
	if err := s.client.Upload(ctx, s.blobName(key), reader, contentType); err != nil {
		return "", fmt.Errorf("uploading to Azure %q: %w", key, err)
	}
	return s.location(key), nil
}

// Get retrieves blob data from the container as a stream.
func (s *AzureStore) Get(ctx context.Context, key string) (*Object, error) {
	body, size, contentType, err := s.client.Download(ctx, s.blobName(key))
	if err != nil {
		if errors.Is(err, ErrNotExist) {
			return nil, err
		}
		return nil, fmt.Errorf("downloading from Azure %q: %w", key, err)
	}
	return &Object{Body: body, Size: size, ContentType: contentType}, nil
}

// Delete removes the blob from the container. Idempotent.
func (s *AzureStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Delete(ctx, s.blobName(key)); err != nil {
		return fmt.Errorf("deleting from Azure %q: %w", key, err)
	}
	return nil
}

// Exists checks whether a blob is stored at the key.
func (s *AzureStore) Exists(ctx context.Context, key string) (bool, error) {
	ok, err := s.client.Exists(ctx, s.blobName(key))
	if err != nil {
		return false, fmt.Errorf("checking Azure blob %q: %w", key, err)
	}
	return ok, nil
}

// IssueUploadGrant returns a blob SAS URL for direct client upload. The SAS
// is scoped to create/write on exactly one blob name.
func (s *AzureStore) IssueUploadGrant(ctx context.Context, key, contentType string, ttl time.Duration) (*UploadGrant, error) {
	expires := time.Now().Add(ttl).UTC()
	url, err := s.client.SignedPutURL(s.blobName(key), expires)
	if err != nil {
		return nil, fmt.Errorf("signing Azure upload URL for %q: %w", key, err)
	}
	return &UploadGrant{
		URL:    url,
		Method: "PUT",
		Headers: map[string]string{
			"Content-Type":   contentType,
			"x-ms-blob-type": "BlockBlob",
		},
		Location:  s.location(key),
		ExpiresAt: expires,
	}, nil
}
