package library

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/pagekeep/pagekeep/internal/blob"
)

// Index persists the Library as a single JSON document in the same blob
// store that holds book content.
//
// Reads fail open: a missing, unreadable, or malformed index yields an empty
// library rather than an error, because the index is derived state and the
// blobs remain the recoverable source of truth. Writes overwrite the whole
// document, last write wins; there is no merging of concurrent writers.
type Index struct {
	store blob.Store
}

// NewIndex creates an Index backed by the given store.
func NewIndex(store blob.Store) *Index {
	return &Index{store: store}
}

// Load reads and parses the index document. It never fails: any read or
// parse problem is reported as an empty library.
func (ix *Index) Load(ctx context.Context) *Library {
	obj, err := ix.store.Get(ctx, IndexKey)
	if err != nil {
		if !errors.Is(err, blob.ErrNotExist) {
			slog.Warn("Index unreadable, treating as empty", "error", err)
		}
		return &Library{}
	}
	defer obj.Body.Close()

	data, err := io.ReadAll(obj.Body)
	if err != nil {
		slog.Warn("Index read failed, treating as empty", "error", err)
		return &Library{}
	}

	var lib Library
	if err := json.Unmarshal(data, &lib); err != nil {
		slog.Warn("Index malformed, treating as empty", "error", err)
		return &Library{}
	}
	return &lib
}

// Save serializes the full library and overwrites the index document.
func (ix *Index) Save(ctx context.Context, lib *Library) error {
	data, err := json.MarshalIndent(lib, "", "  ")
	if err != nil {
		return fmt.Errorf("serializing index: %w", err)
	}
	if _, err := ix.store.Put(ctx, IndexKey, bytes.NewReader(data), int64(len(data)), "application/json"); err != nil {
		return fmt.Errorf("writing index: %w", err)
	}
	return nil
}
