package handlers

import (
	"net/http"

	"github.com/pagekeep/pagekeep/internal/apierr"
	"github.com/pagekeep/pagekeep/internal/blob"
	"github.com/pagekeep/pagekeep/internal/library"
	"github.com/pagekeep/pagekeep/internal/metrics"
)

// reserveRequest is the body of POST /books/reserve.
type reserveRequest struct {
	Filename string `json:"filename"`
}

// confirmRequest is the body of POST /books/confirm.
type confirmRequest struct {
	ID            string `json:"id"`
	Title         string `json:"title"`
	PDFLocation   string `json:"pdfLocation"`
	CoverLocation string `json:"coverLocation"`
}

// grantRequest is the body of POST /books/grant.
type grantRequest struct {
	Key         string `json:"key"`
	ContentType string `json:"contentType"`
}

// ReserveUpload handles POST /books/reserve: phase one of the two-phase
// upload. It allocates an id and deterministic target keys; nothing is
// persisted until the client confirms.
func (h *BookHandler) ReserveUpload(w http.ResponseWriter, r *http.Request) {
	var req reserveRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Filename == "" {
		req.Filename = "document.pdf"
	}

	writeJSON(w, http.StatusOK, h.mgr.Reserve(req.Filename))
}

// ConfirmUpload handles POST /books/confirm: phase two of the two-phase
// upload. The client already placed bytes at the claimed locations via an
// authorized direct upload; this registers them in the index.
func (h *BookHandler) ConfirmUpload(w http.ResponseWriter, r *http.Request) {
	var req confirmRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	book, err := h.mgr.Confirm(r.Context(), req.ID, req.Title, req.PDFLocation, req.CoverLocation)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, book)
}

// GrantUpload handles POST /books/grant: it validates the requested target
// key against the reservation namespace and, on remote backends, issues a
// direct-upload grant scoped to that key and its content type. The key
// pattern check is the sole gate preventing a client from overwriting
// arbitrary keys.
func (h *BookHandler) GrantUpload(w http.ResponseWriter, r *http.Request) {
	var req grantRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	contentType, ok := library.ValidateUploadKey(req.Key)
	if !ok {
		writeError(w, apierr.ErrInvalidUploadKey)
		return
	}
	if req.ContentType != "" && req.ContentType != contentType {
		writeError(w, apierr.ErrValidation.WithMessage("content type does not match the requested key"))
		return
	}

	issuer, ok := h.store.(blob.GrantIssuer)
	if !ok {
		writeError(w, apierr.ErrGrantUnsupported)
		return
	}

	grant, err := issuer.IssueUploadGrant(r.Context(), req.Key, contentType, h.grantTTL)
	if err != nil {
		writeError(w, err)
		return
	}

	metrics.UploadGrantsIssued.Inc()
	writeJSON(w, http.StatusOK, grant)
}
