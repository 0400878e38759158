package library

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/pagekeep/pagekeep/internal/blob"
)

func TestIndexLoadMissing(t *testing.T) {
	idx := NewIndex(blob.NewMemoryStore())

	lib := idx.Load(context.Background())
	if lib == nil {
		t.Fatal("Load returned nil")
	}
	if len(lib.Books) != 0 {
		t.Errorf("expected empty library, got %d books", len(lib.Books))
	}
}

func TestIndexLoadMalformed(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"truncated json", `{"books": [`},
		{"not json", "<html>gateway timeout</html>"},
		{"wrong shape", `{"books": "nope"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := blob.NewMemoryStore()
			_, err := store.Put(context.Background(), IndexKey, strings.NewReader(tt.body), int64(len(tt.body)), "application/json")
			if err != nil {
				t.Fatal(err)
			}

			lib := NewIndex(store).Load(context.Background())
			if len(lib.Books) != 0 {
				t.Errorf("expected empty library for malformed index, got %d books", len(lib.Books))
			}
		})
	}
}

func TestIndexRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := blob.NewMemoryStore()
	idx := NewIndex(store)

	lib := &Library{Books: []Book{
		{ID: "a1", Title: "First", AddedAt: 1700000000000, PDFLocation: "mem://books/a1.pdf"},
		{ID: "b2", Title: "Second", AddedAt: 1700000001000, PDFLocation: "mem://books/b2.pdf", CoverLocation: "mem://books/b2.jpg"},
	}}
	if err := idx.Save(ctx, lib); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got := idx.Load(ctx)
	if len(got.Books) != 2 {
		t.Fatalf("expected 2 books, got %d", len(got.Books))
	}
	if got.Books[0] != lib.Books[0] || got.Books[1] != lib.Books[1] {
		t.Errorf("round trip mismatch: %+v", got.Books)
	}

	obj, err := store.Get(ctx, IndexKey)
	if err != nil {
		t.Fatalf("Get index: %v", err)
	}
	defer obj.Body.Close()
	if obj.ContentType != "application/json" {
		t.Errorf("index content type = %q", obj.ContentType)
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(obj.Body); err != nil {
		t.Fatal(err)
	}
	if !bytes.Contains(buf.Bytes(), []byte(`"coverLocation"`)) {
		t.Error("expected coverLocation field in stored index")
	}
	if bytes.Contains(buf.Bytes(), []byte(`"coverLocation": ""`)) {
		t.Error("empty coverLocation should be omitted")
	}
}

func TestLibraryFind(t *testing.T) {
	lib := &Library{Books: []Book{{ID: "a"}, {ID: "b"}}}
	if i := lib.Find("b"); i != 1 {
		t.Errorf("Find(b) = %d, want 1", i)
	}
	if i := lib.Find("missing"); i != -1 {
		t.Errorf("Find(missing) = %d, want -1", i)
	}
}
