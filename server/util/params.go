package util

import (
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
)

// IDParam parses a positive integer route parameter.
func IDParam(r *http.Request, name string) (int64, bool) {
	raw := strings.TrimSpace(chi.URLParam(r, name))
	if raw == "" {
		return 0, false
	}

	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}

	return id, true
}

// QueryInt parses an optional positive integer query parameter. ok is false only
// when the parameter is present and malformed.
func QueryInt(r *http.Request, name string) (value int64, present bool, ok bool) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return 0, false, true
	}

	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v <= 0 {
		return 0, true, false
	}

	return v, true, true
}

// ClientIP returns the request's remote address without the port. RealIP middleware
// has already rewritten RemoteAddr from forwarding headers when present.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return strings.Trim(r.RemoteAddr, "[]")
	}

	return host
}
