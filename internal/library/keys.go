package library

import (
	"regexp"
	"strings"
)

// IndexKey is the blob key of the serialized library index.
const IndexKey = "library.json"

// uploadKeyRegex is the sole access-control gate for direct uploads: a grant
// is only issued for keys of the form books/<uuid>.pdf or books/<uuid>.jpg.
// The uuid hex is matched case-insensitively.
var uploadKeyRegex = regexp.MustCompile(`^books/[a-fA-F0-9-]{36}\.(pdf|jpg)$`)

// pdfSuffixRegex strips a trailing .pdf extension, case-insensitively.
var pdfSuffixRegex = regexp.MustCompile(`(?i)\.pdf$`)

// PDFKey returns the deterministic blob key for a book's document content.
// The same id always maps to the same key; this is what makes blobs
// addressable by id alone.
func PDFKey(id string) string {
	return "books/" + id + ".pdf"
}

// CoverKey returns the deterministic blob key for a book's cover thumbnail.
func CoverKey(id string) string {
	return "books/" + id + ".jpg"
}

// ValidateUploadKey checks a requested direct-upload key against the
// reservation namespace and returns the content type the upload must carry.
// Returns ok=false for any key outside books/<uuid>.(pdf|jpg).
func ValidateUploadKey(key string) (contentType string, ok bool) {
	m := uploadKeyRegex.FindStringSubmatch(key)
	if m == nil {
		return "", false
	}
	if m[1] == "pdf" {
		return "application/pdf", true
	}
	return "image/jpeg", true
}

// DeriveTitle derives a human-readable book title from an uploaded filename:
// the .pdf extension is stripped case-insensitively and the result trimmed.
// Falls back to a generic label when nothing is left.
func DeriveTitle(filename string) string {
	title := strings.TrimSpace(pdfSuffixRegex.ReplaceAllString(filename, ""))
	if title == "" {
		return "Untitled"
	}
	return title
}
