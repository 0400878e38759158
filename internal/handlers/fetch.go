package handlers

import (
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

// GetFile handles GET /books/{id}/file and streams the document content.
// The stream is forwarded without buffering the whole object so large PDFs
// do not pressure server memory.
func (h *BookHandler) GetFile(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	book, obj, err := h.mgr.FetchPDF(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	defer obj.Body.Close()

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("inline", map[string]string{
		"filename": book.Title + ".pdf",
	}))
	if obj.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(obj.Size, 10))
	}

	if _, err := io.Copy(w, obj.Body); err != nil {
		// Headers are already out; nothing to send the client but a log.
		slog.Error("Streaming pdf failed", "id", id, "error", err)
	}
}

// GetCover handles GET /books/{id}/cover and streams the cover thumbnail.
// Covers are immutable per id, so they are served cacheable for a day.
func (h *BookHandler) GetCover(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	_, obj, err := h.mgr.FetchCover(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	defer obj.Body.Close()

	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", "public, max-age=86400")
	if obj.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(obj.Size, 10))
	}

	if _, err := io.Copy(w, obj.Body); err != nil {
		slog.Error("Streaming cover failed", "id", id, "error", err)
	}
}
