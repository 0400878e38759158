package handlers

import (
	"encoding/base64"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pagekeep/pagekeep/internal/apierr"
	"github.com/pagekeep/pagekeep/internal/blob"
	"github.com/pagekeep/pagekeep/internal/library"
)

// dataURLRegex strips the prefix of a base64 image data URL, the form in
// which browser clients submit rendered first-page covers.
var dataURLRegex = regexp.MustCompile(`^data:image/\w+;base64,`)

// BookHandler contains handlers for the book library API.
type BookHandler struct {
	mgr           *library.Manager
	store         blob.Store
	maxUploadSize int64
	grantTTL      time.Duration
}

// NewBookHandler creates a BookHandler with the given dependencies.
func NewBookHandler(mgr *library.Manager, store blob.Store, maxUploadSize int64, grantTTL time.Duration) *BookHandler {
	return &BookHandler{
		mgr:           mgr,
		store:         store,
		maxUploadSize: maxUploadSize,
		grantTTL:      grantTTL,
	}
}

// bookResponse is the wire representation of a book.
type bookResponse struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	AddedAt int64  `json:"addedAt"`
	// CoverRef is a reference the caller can resolve later for the cover
	// image, not pre-fetched content. Empty when the book has no cover.
	CoverRef string `json:"coverRef,omitempty"`
}

// toBookResponse derives the wire representation, annotating the record with
// its cover-access reference.
func toBookResponse(b library.Book) bookResponse {
	resp := bookResponse{
		ID:      b.ID,
		Title:   b.Title,
		AddedAt: b.AddedAt,
	}
	if b.CoverLocation != "" {
		resp.CoverRef = "/books/" + b.ID + "/cover"
	}
	return resp
}

// ListBooks handles GET /books and returns the library index contents.
func (h *BookHandler) ListBooks(w http.ResponseWriter, r *http.Request) {
	books := h.mgr.List(r.Context())
	resp := make([]bookResponse, 0, len(books))
	for _, b := range books {
		resp = append(resp, toBookResponse(b))
	}
	writeJSON(w, http.StatusOK, resp)
}

// CreateBook handles POST /books, the small-file upload path: the PDF bytes
// (and optional cover) travel through the server in one multipart request.
func (h *BookHandler) CreateBook(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, apierr.ErrValidation.WithMessage("a PDF file is required"))
		return
	}
	defer file.Close()

	if !isPDF(header.Header.Get("Content-Type"), header.Filename) {
		writeError(w, apierr.ErrValidation.WithMessage("only PDF files are accepted"))
		return
	}

	cover := extractCover(r)

	book, err := h.mgr.Create(r.Context(), header.Filename, file, header.Size, cover)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toBookResponse(*book))
}

// DeleteBook handles DELETE /books/{id}.
func (h *BookHandler) DeleteBook(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.mgr.Remove(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// isPDF accepts an upload when either the declared content type or the
// filename extension identifies it as a PDF.
func isPDF(contentType, filename string) bool {
	if strings.Contains(strings.ToLower(contentType), "pdf") {
		return true
	}
	return strings.HasSuffix(strings.ToLower(filename), ".pdf")
}

// extractCover pulls optional cover bytes from the request: either a "cover"
// file part, or a "cover" form value holding a base64 image data URL.
// Malformed covers are dropped, never an error: covers are best-effort.
func extractCover(r *http.Request) []byte {
	if file, _, err := r.FormFile("cover"); err == nil {
		defer file.Close()
		if data, err := io.ReadAll(file); err == nil {
			return data
		}
		return nil
	}

	value := r.FormValue("cover")
	if loc := dataURLRegex.FindString(value); loc != "" {
		if data, err := base64.StdEncoding.DecodeString(value[len(loc):]); err == nil {
			return data
		}
	}
	return nil
}
