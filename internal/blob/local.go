package blob

import (
	"context"
	"fmt"
	"io"
	"mime"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/pagekeep/pagekeep/internal/uid"
)

// LocalStore implements the Store interface using the local filesystem.
// Blobs are stored as files under a fixed data directory, with the key used
// as the relative path (so "books/<id>.pdf" lands at
// <data-dir>/books/<id>.pdf and "library.json" at <data-dir>/library.json).
type LocalStore struct {
	// DataDir is the base directory under which all blobs are stored.
	DataDir string
}

// NewLocalStore creates a LocalStore rooted at the given directory. It
// creates the data directory and the temp directory if they do not exist.
func NewLocalStore(dataDir string) (*LocalStore, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory %q: %w", dataDir, err)
	}
	// Create the .tmp directory for atomic writes.
	tmpDir := filepath.Join(dataDir, ".tmp")
	if err := os.MkdirAll(tmpDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating temp directory %q: %w", tmpDir, err)
	}
	return &LocalStore{DataDir: dataDir}, nil
}

// CleanTempFiles removes all files in the .tmp directory. This is called on
// startup. Any temp files left behind indicate incomplete writes from a
// previous crash; none of them are referenced by the index.
func (s *LocalStore) CleanTempFiles() error {
	tmpDir := filepath.Join(s.DataDir, ".tmp")
	entries, err := os.ReadDir(tmpDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading temp directory: %w", err)
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			os.Remove(filepath.Join(tmpDir, entry.Name()))
		}
	}
	return nil
}

// blobPath returns the full filesystem path for a key.
func (s *LocalStore) blobPath(key string) string {
	return filepath.Join(s.DataDir, filepath.FromSlash(key))
}

// tempPath returns a unique temporary file path in the .tmp directory.
func (s *LocalStore) tempPath() string {
	return filepath.Join(s.DataDir, ".tmp", "tmp-"+uid.New())
}

// Put writes blob data to a file using the atomic write pattern: write to a
// temp file, fsync, rename. A failed write never leaves a partial blob at the
// final path, so the index can never end up referencing one.
func (s *LocalStore) Put(ctx context.Context, key string, reader io.Reader, size int64, contentType string) (string, error) {
	blobPath := s.blobPath(key)

	if err := os.MkdirAll(filepath.Dir(blobPath), 0o755); err != nil {
		return "", fmt.Errorf("creating parent directories for %q: %w", key, err)
	}

	tmpPath := s.tempPath()
	tmpFile, err := os.Create(tmpPath)
	if err != nil {
		return "", fmt.Errorf("creating temp file: %w", err)
	}

	if _, err := io.Copy(tmpFile, reader); err != nil {
		tmpFile.Close()
		os.Remove(tmpPath)
		return "", fmt.Errorf("writing blob data: %w", err)
	}

	// Fsync before rename to guarantee durability.
	if err := tmpFile.Sync(); err != nil {
		tmpFile.Close()
		os.Remove(tmpPath)
		return "", fmt.Errorf("syncing temp file: %w", err)
	}

	if err := tmpFile.Close(); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("closing temp file: %w", err)
	}

	if err := os.Rename(tmpPath, blobPath); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("renaming temp file to final path: %w", err)
	}

	return blobPath, nil
}

// Get opens the blob file for reading. The content type is inferred from the
// key extension since the filesystem stores no metadata alongside the bytes.
func (s *LocalStore) Get(ctx context.Context, key string) (*Object, error) {
	blobPath := s.blobPath(key)

	file, err := os.Open(blobPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%q: %w", key, ErrNotExist)
		}
		return nil, fmt.Errorf("opening blob file %q: %w", key, err)
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("stat blob file %q: %w", key, err)
	}

	return &Object{
		Body:        file,
		Size:        info.Size(),
		ContentType: contentTypeForKey(key),
	}, nil
}

// Delete removes the blob file. Idempotent: deleting a non-existent file is
// not an error. Empty parent directories are cleaned up to the data root.
func (s *LocalStore) Delete(ctx context.Context, key string) error {
	blobPath := s.blobPath(key)

	err := os.Remove(blobPath)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing blob file %q: %w", key, err)
	}

	dir := filepath.Dir(blobPath)
	root := filepath.Clean(s.DataDir)
	for dir != root && strings.HasPrefix(dir, root) {
		if err := os.Remove(dir); err != nil {
			// Directory not empty or other error: stop climbing.
			break
		}
		dir = filepath.Dir(dir)
	}

	return nil
}

// Exists checks whether a blob file exists on the local filesystem.
func (s *LocalStore) Exists(ctx context.Context, key string) (bool, error) {
	info, err := os.Stat(s.blobPath(key))
	if err == nil {
		return !info.IsDir(), nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, fmt.Errorf("checking blob existence %q: %w", key, err)
}

// contentTypeForKey infers a content type from the key's file extension,
// defaulting to application/octet-stream.
func contentTypeForKey(key string) string {
	if ct := mime.TypeByExtension(path.Ext(key)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
