// Package handlers implements HTTP request handlers for the PageKeep book API.
package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/pagekeep/pagekeep/internal/apierr"
)

// errorBody is the JSON envelope for error responses.
type errorBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// writeJSON serializes v as the response body with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Encoding response failed", "error", err)
	}
}

// writeError maps an error to its API response. *apierr.APIError values are
// written as-is; anything else is a storage failure: logged server-side with
// the real cause, reported to the caller with a generic message.
func writeError(w http.ResponseWriter, err error) {
	var apiErr *apierr.APIError
	if !errors.As(err, &apiErr) {
		slog.Error("Storage failure", "error", err)
		apiErr = apierr.ErrStorage
	}

	var body errorBody
	body.Error.Code = apiErr.Code
	body.Error.Message = apiErr.Message
	writeJSON(w, apiErr.HTTPStatus, body)
}

// decodeJSON parses the request body into v, returning a validation error on
// malformed input.
func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return apierr.ErrValidation.WithMessage("invalid JSON request body")
	}
	return nil
}
