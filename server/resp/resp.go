package resp

import (
	"encoding/json"
	"fmt"
	"net/http"
)

type ErrorResponse struct {
	Error       string `json:"error"`
	Description string `json:"description"`
	Details     any    `json:"details,omitempty"`
}

func WriteOK(w http.ResponseWriter, object any) {
	writeResp(w, http.StatusOK, object)
}

func WriteNoContent(w http.ResponseWriter) {
	writeResp(w, http.StatusNoContent, nil)
}

// WriteCreated writes a 201 with an optional Location header and body.
func WriteCreated(w http.ResponseWriter, location string, object any) {
	if location != "" {
		w.Header().Add("Location", location)
	}

	writeResp(w, http.StatusCreated, object)
}

func WriteUnauthorized(w http.ResponseWriter, description string) {
	writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", description, nil)
}

func WriteForbidden(w http.ResponseWriter, description string) {
	writeError(w, http.StatusForbidden, "FORBIDDEN", description, nil)
}

func WriteValidationError(w http.ResponseWriter, description string) {
	writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", description, nil)
}

func WriteNotFound(w http.ResponseWriter, description string) {
	writeError(w, http.StatusNotFound, "NOT_FOUND", description, nil)
}

func WriteConflict(w http.ResponseWriter, description string) {
	writeError(w, http.StatusConflict, "CONFLICT", description, nil)
}

func WriteUnsupportedMediaType(w http.ResponseWriter, description string) {
	writeError(w, http.StatusUnsupportedMediaType, "UNSUPPORTED_MEDIA_TYPE", description, nil)
}

func WriteTooManyRequests(w http.ResponseWriter, description string) {
	writeError(w, http.StatusTooManyRequests, "RATE_LIMITED", description, nil)
}

func WriteInternalServerError(w http.ResponseWriter, description string) {
	writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", description, nil)
}

// WriteError writes an arbitrary coded error, with optional details (e.g. per-file upload errors).
func WriteError(w http.ResponseWriter, status int, code string, description string, details any) {
	writeError(w, status, code, description, details)
}

// WriteJSON writes object with an explicit status, for endpoints whose body shape is
// fixed by their clients.
func WriteJSON(w http.ResponseWriter, status int, object any) {
	writeResp(w, status, object)
}

func writeError(w http.ResponseWriter, status int, code string, description string, details any) {
	writeResp(w, status, ErrorResponse{
		Error:       code,
		Description: description,
		Details:     details,
	})
}

func writeResp(w http.ResponseWriter, status int, object any) {
	haveObject := object != nil

	if haveObject {
		w.Header().Set("Content-Type", "application/json")
	}

	w.WriteHeader(status)

	if haveObject {
		err := json.NewEncoder(w).Encode(object)
		if err != nil {
			http.Error(w, fmt.Sprintf("Failed to write standard HTTP response: %v", err), http.StatusInternalServerError)
		}
	}
}
