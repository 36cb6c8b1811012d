package util

import (
	"fmt"
	"mime"
	"net/http"
	"slices"

	"github.com/hsarchitect/folio/server/resp"
)

func RequireJSONOrFormContentType(w http.ResponseWriter, r *http.Request) (string, bool) {
	return requireValidContentType(w, r, []string{"application/json", "application/x-www-form-urlencoded"})
}

func RequireJSONContentType(w http.ResponseWriter, r *http.Request) (string, bool) {
	return requireValidContentType(w, r, []string{"application/json"})
}

func RequireMultipartContentType(w http.ResponseWriter, r *http.Request) (string, bool) {
	return requireValidContentType(w, r, []string{"multipart/form-data"})
}

func ExtractMediaType(w http.ResponseWriter, r *http.Request) (string, map[string]string, bool) {
	ct := r.Header.Get("Content-Type")
	if ct == "" {
		resp.WriteUnsupportedMediaType(w, "Content-Type must be specified")
		return "", nil, false
	}

	mediaType, params, err := mime.ParseMediaType(ct)
	if err != nil {
		resp.WriteUnsupportedMediaType(w, fmt.Sprintf("Invalid Content-Type: %v", err))
		return "", nil, false
	}

	return mediaType, params, true
}

func requireValidContentType(w http.ResponseWriter, r *http.Request, valid []string) (string, bool) {
	mediaType, _, ok := ExtractMediaType(w, r)
	if !ok {
		return "", false
	}

	if !slices.Contains(valid, mediaType) {
		resp.WriteUnsupportedMediaType(w, fmt.Sprintf("Invalid Content-Type: only %v allowed", valid))
		return mediaType, false
	}

	return mediaType, true
}
