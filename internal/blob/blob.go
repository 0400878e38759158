// Package blob defines the interface and implementations for PageKeep's
// blob storage layer.
package blob

import (
	"context"
	"errors"
	"io"
	"time"
)

// ErrNotExist is returned by Get when no blob is stored at the given key.
// Callers distinguish it from transient I/O failures with errors.Is.
var ErrNotExist = errors.New("blob does not exist")

// Object is a stored blob opened for reading. The caller is responsible for
// closing Body. Body streams from the backend; it is never a full in-memory
// copy for backends that support streaming reads.
type Object struct {
	Body        io.ReadCloser
	Size        int64
	ContentType string
}

// Store defines the interface for reading and writing raw blob data.
// Implementations provide the underlying storage mechanism (local filesystem,
// remote object storage). All methods must be safe for concurrent use.
//
// Keys are slash-separated relative paths (e.g. "books/<id>.pdf",
// "library.json"). The same key always maps to the same stored object:
// writes overwrite, and no implementation may append randomized suffixes.
type Store interface {
	// Put writes the data from the reader to the backend at the given key,
	// overwriting any existing blob. It returns a backend-specific location
	// string for the stored blob (filesystem path or object URL).
	//
	// A Put that fails partway must not leave a readable blob at the key:
	// implementations either write atomically or clean up on failure.
	Put(ctx context.Context, key string, reader io.Reader, size int64, contentType string) (location string, err error)

	// Get opens the blob at the given key for reading. Returns ErrNotExist
	// (possibly wrapped) when no blob is stored at the key.
	Get(ctx context.Context, key string) (*Object, error)

	// Delete removes the blob at the given key. Idempotent: deleting a
	// missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Exists reports whether a blob is stored at the given key.
	Exists(ctx context.Context, key string) (bool, error)
}

// UploadGrant authorizes a client to upload one blob directly to the storage
// backend, bypassing the application server. The client issues an HTTP
// request with the given method, URL, and headers, and the raw file bytes as
// the body.
type UploadGrant struct {
	// URL is the pre-authorized upload URL.
	URL string `json:"url"`
	// Method is the HTTP method to use (always "PUT" for current backends).
	Method string `json:"method"`
	// Headers must be sent verbatim with the upload request.
	Headers map[string]string `json:"headers,omitempty"`
	// Location is where the blob will be addressable after the upload, in the
	// same form Put returns. Clients pass it back on confirm.
	Location string `json:"location"`
	// ExpiresAt is when the grant stops being accepted by the backend.
	ExpiresAt time.Time `json:"expiresAt"`
}

// GrantIssuer is implemented by backends that support direct client uploads.
// The grant is scoped to exactly one key and content type; the backend
// rejects uploads that do not match.
type GrantIssuer interface {
	IssueUploadGrant(ctx context.Context, key, contentType string, ttl time.Duration) (*UploadGrant, error)
}
