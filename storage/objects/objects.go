package objects

import (
	"context"
	"errors"
	"io"
	"path"
	"strings"
)

var (
	ErrInvalidKey = errors.New("invalid object key")
	ErrExists     = errors.New("object already exists")
)

// Store is a key-addressed blob store with public URLs. Put must honour ctx
// cancellation. Remove is best effort: it attempts every key and returns the
// joined failures, which callers log rather than surface.
type Store interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Remove(ctx context.Context, keys []string) error
	PublicURL(key string) string
	Check(ctx context.Context) error
}

// CleanKey normalizes an object key and rejects keys that would escape the bucket root.
func CleanKey(key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" || strings.Contains(key, "\\") {
		return "", ErrInvalidKey
	}

	cleaned := path.Clean("/" + key)[1:]
	if cleaned == "" || cleaned != strings.TrimPrefix(key, "/") {
		return "", ErrInvalidKey
	}

	return cleaned, nil
}

// JoinURL appends key to base with exactly one separating slash.
func JoinURL(base, key string) string {
	if base == "" {
		return "/" + strings.TrimPrefix(key, "/")
	}

	return strings.TrimSuffix(base, "/") + "/" + strings.TrimPrefix(key, "/")
}
