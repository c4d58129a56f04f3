package httpapi

import (
	"encoding/json"
	"net/http"

	"aihostd/internal/capability"
	"aihostd/internal/lifecycle"
	"aihostd/pkg/types"
)

// HTTPError allows services to provide an HTTP status code for an error.
type HTTPError interface {
	error
	StatusCode() int
}

// writeJSONError writes a consistent JSON error payload.
func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(types.ErrorResponse{Error: msg, Code: status})
}

// statusForError maps well-known service errors to HTTP status codes.
func statusForError(err error) int {
	switch {
	case capability.IsNotReady(err):
		return http.StatusConflict
	case capability.IsModelNotFound(err):
		return http.StatusNotFound
	case lifecycle.IsNotLoaded(err):
		return http.StatusConflict
	case lifecycle.IsLoadFailed(err):
		return http.StatusInternalServerError
	}
	if he, ok := err.(HTTPError); ok {
		return he.StatusCode()
	}
	return http.StatusInternalServerError
}
