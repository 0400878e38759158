// Package library implements PageKeep's document library: the persisted
// index of books and the manager that keeps index entries and blob content
// consistent.
package library

// Book is the metadata record for one stored document. It is the only
// persisted entity. ID and AddedAt are immutable once created; the record is
// never partially updated, only created and deleted.
type Book struct {
	// ID is an opaque unique identifier, the join key between the index
	// entry and the blob keys.
	ID string `json:"id"`
	// Title is derived from the uploaded filename. Non-empty once created.
	Title string `json:"title"`
	// AddedAt is the creation timestamp in milliseconds since epoch.
	AddedAt int64 `json:"addedAt"`
	// PDFLocation is the backend-specific pointer to the document content.
	PDFLocation string `json:"pdfLocation"`
	// CoverLocation points at the JPEG thumbnail. Empty means "no cover
	// available", which is a normal state, not an error.
	CoverLocation string `json:"coverLocation,omitempty"`
}

// Library is the persisted collection of all Book records, serialized as a
// single JSON document. Insertion order is preserved but carries no semantic
// meaning.
type Library struct {
	Books []Book `json:"books"`
}

// Find returns the index of the book with the given id, or -1.
func (l *Library) Find(id string) int {
	for i := range l.Books {
		if l.Books[i].ID == id {
			return i
		}
	}
	return -1
}
