package body

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/hsarchitect/folio/config"
	"github.com/hsarchitect/folio/server/resp"
	"github.com/hsarchitect/folio/server/util"
)

// Fields is a decoded JSON object or urlencoded form. Form values arrive as strings
// (or []any for repeated keys); JSON values keep their decoded types.
type Fields map[string]any

// Read parses a JSON or urlencoded request body. An empty body without a content type
// yields empty Fields. Writes an error response and returns false on failure.
func Read(cfg *config.Config, w http.ResponseWriter, r *http.Request) (Fields, bool) {
	if r.ContentLength == 0 && r.Header.Get("Content-Type") == "" {
		return Fields{}, true
	}

	contentType, ok := util.RequireJSONOrFormContentType(w, r)
	if !ok {
		return nil, false
	}

	limit := int64(cfg.Server.Limits.MaxJsonBody)
	switch contentType {
	case "application/json":
		return readJSON(limit, w, r)
	case "application/x-www-form-urlencoded":
		return readFormURLEncoded(limit, w, r)
	}

	return nil, false
}

func readJSON(limit int64, w http.ResponseWriter, r *http.Request) (Fields, bool) {
	out := make(Fields)

	r.Body = http.MaxBytesReader(w, r.Body, limit)
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(&out); err != nil {
		writeReadError(w, err, "Invalid JSON body")
		return nil, false
	}

	return out, true
}

func readFormURLEncoded(limit int64, w http.ResponseWriter, r *http.Request) (Fields, bool) {
	out := make(Fields)

	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := r.ParseForm(); err != nil {
		writeReadError(w, err, fmt.Sprintf("Invalid form body: %v", err))
		return nil, false
	}

	for key, values := range r.PostForm {
		key = strings.TrimSuffix(key, "[]")
		switch len(values) {
		case 0:
			continue
		case 1:
			out[key] = values[0]
		default:
			arr := make([]any, len(values))
			for i, v := range values {
				arr[i] = v
			}
			out[key] = arr
		}
	}

	return out, true
}

func writeReadError(w http.ResponseWriter, err error, description string) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		resp.WriteError(w, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "Request body too large", nil)
		return
	}
	resp.WriteValidationError(w, description)
}

// Has reports whether the key is present, even when its value is null.
func (f Fields) Has(key string) bool {
	_, ok := f[key]
	return ok
}

// String returns the value as a string. Numbers and booleans are formatted.
func (f Fields) String(key string) (string, bool) {
	switch v := f[key].(type) {
	case string:
		return v, true
	case json.Number:
		return v.String(), true
	case bool:
		return strconv.FormatBool(v), true
	case []any:
		if len(v) > 0 {
			if s, ok := v[0].(string); ok {
				return s, true
			}
		}
	}
	return "", false
}

// Trimmed returns the trimmed string value, or "" when absent.
func (f Fields) Trimmed(key string) string {
	s, _ := f.String(key)
	return strings.TrimSpace(s)
}

// NullableString returns nil for null or empty-after-trim values. ok is false when
// the value is present but not a string.
func (f Fields) NullableString(key string) (*string, bool) {
	v, present := f[key]
	if !present || v == nil {
		return nil, true
	}

	s, ok := f.String(key)
	if !ok {
		return nil, false
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, true
	}
	return &s, true
}

// Int returns the value as an integer. Strings holding integers are accepted.
func (f Fields) Int(key string) (int64, bool) {
	switch v := f[key].(type) {
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return i, true
		}
		if fl, err := v.Float64(); err == nil && fl == math.Trunc(fl) {
			return int64(fl), true
		}
	case float64:
		if v == math.Trunc(v) {
			return int64(v), true
		}
	case string:
		if i, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64); err == nil {
			return i, true
		}
	}
	return 0, false
}

// IntOrZero coerces the value to an integer, falling back to zero.
func (f Fields) IntOrZero(key string) int64 {
	i, _ := f.Int(key)
	return i
}

// NullableInt returns nil for null or empty values. ok is false when the value is
// present but not an integer.
func (f Fields) NullableInt(key string) (*int64, bool) {
	v, present := f[key]
	if !present || v == nil {
		return nil, true
	}
	if s, isString := v.(string); isString && strings.TrimSpace(s) == "" {
		return nil, true
	}

	i, ok := f.Int(key)
	if !ok {
		return nil, false
	}
	return &i, true
}

// IntSlice returns a list of integers from a JSON array or repeated form key.
func (f Fields) IntSlice(key string) ([]int64, bool) {
	raw, present := f[key]
	if !present || raw == nil {
		return nil, true
	}

	var items []any
	switch v := raw.(type) {
	case []any:
		items = v
	default:
		items = []any{v}
	}

	out := make([]int64, 0, len(items))
	for i := range items {
		n, ok := Fields{"v": items[i]}.Int("v")
		if !ok {
			return nil, false
		}
		out = append(out, n)
	}
	return out, true
}
