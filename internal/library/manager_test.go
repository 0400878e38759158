package library

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/pagekeep/pagekeep/internal/apierr"
	"github.com/pagekeep/pagekeep/internal/blob"
	"github.com/pagekeep/pagekeep/internal/uid"
)

// flakyStore wraps a real store and fails Put for selected keys.
type flakyStore struct {
	blob.Store
	failPuts map[string]error
}

func (s *flakyStore) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error) {
	for suffix, err := range s.failPuts {
		if strings.HasSuffix(key, suffix) {
			return "", err
		}
	}
	return s.Store.Put(ctx, key, r, size, contentType)
}

func newTestManager() (*Manager, *blob.MemoryStore) {
	store := blob.NewMemoryStore()
	return NewManager(store), store
}

func readAll(t *testing.T, obj *blob.Object) []byte {
	t.Helper()
	defer obj.Body.Close()
	data, err := io.ReadAll(obj.Body)
	if err != nil {
		t.Fatalf("reading object: %v", err)
	}
	return data
}

func TestCreateAndFetch(t *testing.T) {
	ctx := context.Background()
	mgr, _ := newTestManager()
	pdf := []byte("%PDF-1.4 fake content")
	cover := []byte{0xFF, 0xD8, 0xFF, 0xE0}

	before := time.Now().UnixMilli()
	book, err := mgr.Create(ctx, "My Report.pdf", bytes.NewReader(pdf), int64(len(pdf)), cover)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	after := time.Now().UnixMilli()

	if book.Title != "My Report" {
		t.Errorf("title = %q, want %q", book.Title, "My Report")
	}
	if !uid.Valid(book.ID) {
		t.Errorf("id %q is not a valid identifier", book.ID)
	}
	if book.AddedAt < before || book.AddedAt > after {
		t.Errorf("addedAt %d outside [%d, %d]", book.AddedAt, before, after)
	}
	if book.PDFLocation == "" || book.CoverLocation == "" {
		t.Errorf("missing locations: %+v", book)
	}

	got, obj, err := mgr.FetchPDF(ctx, book.ID)
	if err != nil {
		t.Fatalf("FetchPDF: %v", err)
	}
	if got.ID != book.ID {
		t.Errorf("fetched id = %q, want %q", got.ID, book.ID)
	}
	if data := readAll(t, obj); !bytes.Equal(data, pdf) {
		t.Errorf("pdf content mismatch: got %d bytes", len(data))
	}

	_, cobj, err := mgr.FetchCover(ctx, book.ID)
	if err != nil {
		t.Fatalf("FetchCover: %v", err)
	}
	if data := readAll(t, cobj); !bytes.Equal(data, cover) {
		t.Error("cover content mismatch")
	}
}

func TestCreateWithoutCover(t *testing.T) {
	ctx := context.Background()
	mgr, _ := newTestManager()

	book, err := mgr.Create(ctx, "plain.pdf", strings.NewReader("doc"), 3, nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if book.CoverLocation != "" {
		t.Errorf("unexpected cover location %q", book.CoverLocation)
	}

	_, _, err = mgr.FetchCover(ctx, book.ID)
	if !errors.Is(err, apierr.ErrCoverNotFound) {
		t.Errorf("FetchCover = %v, want ErrCoverNotFound", err)
	}
}

func TestCreateCoverWriteFailureTolerated(t *testing.T) {
	ctx := context.Background()
	mem := blob.NewMemoryStore()
	store := &flakyStore{Store: mem, failPuts: map[string]error{".jpg": errors.New("backend down")}}
	mgr := NewManager(store)

	book, err := mgr.Create(ctx, "resilient.pdf", strings.NewReader("doc"), 3, []byte{0xFF, 0xD8})
	if err != nil {
		t.Fatalf("Create should tolerate cover failure, got %v", err)
	}
	if book.CoverLocation != "" {
		t.Errorf("cover location should be empty after failed write, got %q", book.CoverLocation)
	}

	books := mgr.List(ctx)
	if len(books) != 1 || books[0].CoverLocation != "" {
		t.Errorf("listed book should be coverless: %+v", books)
	}
}

func TestCreatePDFWriteFailureAborts(t *testing.T) {
	ctx := context.Background()
	mem := blob.NewMemoryStore()
	store := &flakyStore{Store: mem, failPuts: map[string]error{".pdf": errors.New("backend down")}}
	mgr := NewManager(store)

	if _, err := mgr.Create(ctx, "doomed.pdf", strings.NewReader("doc"), 3, nil); err == nil {
		t.Fatal("Create should fail when the pdf write fails")
	}
	if got := mgr.List(ctx); len(got) != 0 {
		t.Errorf("index should be unchanged after aborted create, got %d books", len(got))
	}
	if mem.Len() != 0 {
		t.Errorf("no blobs should remain, got %d", mem.Len())
	}
}

func TestListMultiple(t *testing.T) {
	ctx := context.Background()
	mgr, _ := newTestManager()

	a, err := mgr.Create(ctx, "a.pdf", strings.NewReader("a"), 1, nil)
	if err != nil {
		t.Fatal(err)
	}
	b, err := mgr.Create(ctx, "b.pdf", strings.NewReader("b"), 1, nil)
	if err != nil {
		t.Fatal(err)
	}
	if a.ID == b.ID {
		t.Fatalf("duplicate id %q", a.ID)
	}

	books := mgr.List(ctx)
	if len(books) != 2 {
		t.Fatalf("expected 2 books, got %d", len(books))
	}
	if books[0].ID != a.ID || books[1].ID != b.ID {
		t.Errorf("list order mismatch: %+v", books)
	}
}

func TestRemove(t *testing.T) {
	ctx := context.Background()
	mgr, mem := newTestManager()

	book, err := mgr.Create(ctx, "gone.pdf", strings.NewReader("doc"), 3, []byte{0xFF, 0xD8})
	if err != nil {
		t.Fatal(err)
	}

	if err := mgr.Remove(ctx, book.ID); err != nil {
		t.Fatalf("Remove: %v", err)
	}

	if got := mgr.List(ctx); len(got) != 0 {
		t.Errorf("book still listed after removal: %+v", got)
	}
	if _, _, err := mgr.FetchPDF(ctx, book.ID); !errors.Is(err, apierr.ErrNotFound) {
		t.Errorf("FetchPDF after removal = %v, want ErrNotFound", err)
	}
	// Only the index document should remain.
	if mem.Len() != 1 {
		t.Errorf("expected 1 remaining blob (index), got %d", mem.Len())
	}
}

func TestRemoveUnknown(t *testing.T) {
	mgr, _ := newTestManager()
	if err := mgr.Remove(context.Background(), uid.New()); !errors.Is(err, apierr.ErrNotFound) {
		t.Errorf("Remove unknown = %v, want ErrNotFound", err)
	}
}

func TestFetchUnknown(t *testing.T) {
	mgr, _ := newTestManager()
	if _, _, err := mgr.FetchPDF(context.Background(), "nope"); !errors.Is(err, apierr.ErrNotFound) {
		t.Errorf("FetchPDF = %v, want ErrNotFound", err)
	}
	if _, _, err := mgr.FetchCover(context.Background(), "nope"); !errors.Is(err, apierr.ErrNotFound) {
		t.Errorf("FetchCover = %v, want ErrNotFound", err)
	}
}

func TestFetchIndexedButMissingBlob(t *testing.T) {
	ctx := context.Background()
	mgr, mem := newTestManager()

	book, err := mgr.Create(ctx, "vanishing.pdf", strings.NewReader("doc"), 3, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := mem.Delete(ctx, PDFKey(book.ID)); err != nil {
		t.Fatal(err)
	}

	if _, _, err := mgr.FetchPDF(ctx, book.ID); !errors.Is(err, apierr.ErrNotFound) {
		t.Errorf("FetchPDF with missing blob = %v, want ErrNotFound", err)
	}
	// The rest of the library still works.
	if got := mgr.List(ctx); len(got) != 1 {
		t.Errorf("listing should still include the degraded entry, got %d", len(got))
	}
}

func TestReserveConfirm(t *testing.T) {
	ctx := context.Background()
	mgr, _ := newTestManager()

	res := mgr.Reserve("Thesis Draft.pdf")
	if res.Title != "Thesis Draft" {
		t.Errorf("reserved title = %q", res.Title)
	}
	if !uid.Valid(res.ID) {
		t.Errorf("reserved id %q is not valid", res.ID)
	}
	if res.PDFKey != PDFKey(res.ID) || res.CoverKey != CoverKey(res.ID) {
		t.Errorf("reserved keys mismatch: %+v", res)
	}

	// Nothing persisted until confirm.
	if got := mgr.List(ctx); len(got) != 0 {
		t.Fatalf("reservation should not be listed, got %d books", len(got))
	}

	book, err := mgr.Confirm(ctx, res.ID, "Final Title", "s3://bucket/"+res.PDFKey, "")
	if err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	if book.Title != "Final Title" {
		t.Errorf("confirmed title = %q, client title should win", book.Title)
	}
	if book.AddedAt == 0 {
		t.Error("addedAt should be set at confirm time")
	}

	books := mgr.List(ctx)
	if len(books) != 1 || books[0].ID != res.ID {
		t.Errorf("confirmed book not listed: %+v", books)
	}
}

func TestConfirmRequiresFields(t *testing.T) {
	mgr, _ := newTestManager()
	tests := []struct {
		name                    string
		id, title, pdfLocation string
	}{
		{"missing id", "", "Title", "s3://b/k"},
		{"missing title", "some-id", "", "s3://b/k"},
		{"missing location", "some-id", "Title", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := mgr.Confirm(context.Background(), tt.id, tt.title, tt.pdfLocation, "")
			var apiErr *apierr.APIError
			if !errors.As(err, &apiErr) || apiErr.HTTPStatus != 400 {
				t.Errorf("Confirm = %v, want validation error", err)
			}
		})
	}
}
