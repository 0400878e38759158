package library

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/pagekeep/pagekeep/internal/apierr"
	"github.com/pagekeep/pagekeep/internal/blob"
	"github.com/pagekeep/pagekeep/internal/metrics"
	"github.com/pagekeep/pagekeep/internal/uid"
)

// Manager orchestrates the blob store and the index so that a book's
// metadata entry and its backing files are created and removed together,
// best-effort.
//
// Every operation is an independent, unsynchronized read-modify-write of the
// whole index: two concurrent creates can race and the second index write
// wins, orphaning the first book's blobs (present in storage, absent from
// the index). Accepted under the single-user usage assumption.
type Manager struct {
	store blob.Store
	index *Index
	// now is replaceable in tests.
	now func() time.Time
}

// NewManager creates a Manager over the given blob store.
func NewManager(store blob.Store) *Manager {
	return &Manager{
		store: store,
		index: NewIndex(store),
		now:   time.Now,
	}
}

// Reservation is a pre-allocated identifier plus the deterministic target
// keys a client must upload to. Nothing is persisted for a reservation; it
// is a pure function of a freshly generated id.
type Reservation struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	PDFKey   string `json:"pdfKey"`
	CoverKey string `json:"coverKey"`
}

// List returns the index contents. Never fails; index problems surface as an
// empty library.
func (m *Manager) List(ctx context.Context) []Book {
	return m.index.Load(ctx).Books
}

// Create stores a new book from the small-file upload path: it writes the
// PDF blob, conditionally writes the cover blob, appends a record to the
// index, and persists the index.
//
// A PDF write failure aborts the whole operation with no index entry. A
// cover write failure is tolerated: the book is created without a cover.
func (m *Manager) Create(ctx context.Context, filename string, pdf io.Reader, pdfSize int64, cover []byte) (*Book, error) {
	id := uid.New()
	title := DeriveTitle(filename)

	pdfLocation, err := m.store.Put(ctx, PDFKey(id), pdf, pdfSize, "application/pdf")
	if err != nil {
		return nil, fmt.Errorf("storing pdf for %q: %w", id, err)
	}

	book := Book{
		ID:          id,
		Title:       title,
		AddedAt:     m.now().UnixMilli(),
		PDFLocation: pdfLocation,
	}

	if len(cover) > 0 {
		coverLocation, err := m.store.Put(ctx, CoverKey(id), bytes.NewReader(cover), int64(len(cover)), "image/jpeg")
		if err != nil {
			// Covers are best-effort: the book still succeeds without one.
			slog.Warn("Cover write failed, creating book without cover", "id", id, "error", err)
		} else {
			book.CoverLocation = coverLocation
		}
	}

	lib := m.index.Load(ctx)
	lib.Books = append(lib.Books, book)
	if err := m.index.Save(ctx, lib); err != nil {
		// The PDF blob stays behind as an orphan; blobs are the recoverable
		// source of truth, so it is not deleted here.
		return nil, fmt.Errorf("registering book %q: %w", id, err)
	}

	metrics.BooksCreated.WithLabelValues("direct").Inc()
	return &book, nil
}

// Reserve allocates an id and target keys for a direct-to-backend upload.
// Nothing is persisted until Confirm.
func (m *Manager) Reserve(filename string) Reservation {
	id := uid.New()
	return Reservation{
		ID:       id,
		Title:    DeriveTitle(filename),
		PDFKey:   PDFKey(id),
		CoverKey: CoverKey(id),
	}
}

// Confirm registers a book whose content the client already uploaded
// directly to the backend. It appends the record exactly as Create does but
// performs no blob writes, and it does not verify that content actually
// exists at the claimed locations: confirm is a trust boundary, bounded only
// by the upload grant's key pattern check.
func (m *Manager) Confirm(ctx context.Context, id, title, pdfLocation, coverLocation string) (*Book, error) {
	if id == "" || title == "" || pdfLocation == "" {
		return nil, apierr.ErrValidation.WithMessage("id, title and pdfLocation are required")
	}

	book := Book{
		ID:            id,
		Title:         title,
		AddedAt:       m.now().UnixMilli(),
		PDFLocation:   pdfLocation,
		CoverLocation: coverLocation,
	}

	lib := m.index.Load(ctx)
	lib.Books = append(lib.Books, book)
	if err := m.index.Save(ctx, lib); err != nil {
		return nil, fmt.Errorf("registering book %q: %w", id, err)
	}

	metrics.BooksCreated.WithLabelValues("reserved").Inc()
	return &book, nil
}

// FetchPDF resolves the book by id and opens its document content. Returns
// apierr.ErrNotFound when the id is absent from the index, and also when the
// blob is missing despite being indexed (degraded but tolerated state that
// fails per-book, not globally).
func (m *Manager) FetchPDF(ctx context.Context, id string) (*Book, *blob.Object, error) {
	lib := m.index.Load(ctx)
	i := lib.Find(id)
	if i < 0 {
		return nil, nil, apierr.ErrNotFound
	}
	book := lib.Books[i]

	obj, err := m.store.Get(ctx, PDFKey(id))
	if err != nil {
		if errors.Is(err, blob.ErrNotExist) {
			return nil, nil, apierr.ErrNotFound
		}
		return nil, nil, fmt.Errorf("fetching pdf for %q: %w", id, err)
	}
	return &book, obj, nil
}

// FetchCover resolves the book by id and opens its cover thumbnail.
func (m *Manager) FetchCover(ctx context.Context, id string) (*Book, *blob.Object, error) {
	lib := m.index.Load(ctx)
	i := lib.Find(id)
	if i < 0 {
		return nil, nil, apierr.ErrNotFound
	}
	book := lib.Books[i]
	if book.CoverLocation == "" {
		return nil, nil, apierr.ErrCoverNotFound
	}

	obj, err := m.store.Get(ctx, CoverKey(id))
	if err != nil {
		if errors.Is(err, blob.ErrNotExist) {
			return nil, nil, apierr.ErrCoverNotFound
		}
		return nil, nil, fmt.Errorf("fetching cover for %q: %w", id, err)
	}
	return &book, obj, nil
}

// Remove deletes a book: best-effort deletes of the PDF and (if present)
// cover blobs, then removal of the index entry. Individual blob deletion
// failures never block removing the entry. Removing an unknown id reports
// apierr.ErrNotFound so callers can distinguish "already gone" from "gone".
func (m *Manager) Remove(ctx context.Context, id string) error {
	lib := m.index.Load(ctx)
	i := lib.Find(id)
	if i < 0 {
		return apierr.ErrNotFound
	}
	book := lib.Books[i]

	if err := m.store.Delete(ctx, PDFKey(id)); err != nil {
		slog.Warn("PDF delete failed during removal", "id", id, "error", err)
	}
	if book.CoverLocation != "" {
		if err := m.store.Delete(ctx, CoverKey(id)); err != nil {
			slog.Warn("Cover delete failed during removal", "id", id, "error", err)
		}
	}

	lib.Books = append(lib.Books[:i], lib.Books[i+1:]...)
	if err := m.index.Save(ctx, lib); err != nil {
		return fmt.Errorf("unregistering book %q: %w", id, err)
	}

	metrics.BooksDeleted.Inc()
	return nil
}
