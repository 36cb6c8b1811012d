package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/hsarchitect/folio/config"
	"github.com/hsarchitect/folio/storage/objects"
)

// Store writes objects below a local directory. Intended for development.
type Store struct {
	basePath  string
	publicURL string
}

func NewStore(cfg *config.Media) (*Store, error) {
	if cfg == nil || cfg.Filesystem == nil {
		return nil, fmt.Errorf("filesystem media config is nil")
	}

	if err := os.MkdirAll(cfg.Filesystem.Path, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}

	return &Store{
		basePath:  cfg.Filesystem.Path,
		publicURL: cfg.PublicBaseUrl,
	}, nil
}

func (s *Store) path(key string) (string, error) {
	key, err := objects.CleanKey(key)
	if err != nil {
		return "", err
	}

	return filepath.Join(s.basePath, filepath.FromSlash(key)), nil
}

// Put writes r to the key's path. Existing objects are never overwritten.
func (s *Store) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	absPath, err := s.path(key)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(absPath), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	f, err := os.OpenFile(absPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return fmt.Errorf("%w: %s", objects.ErrExists, key)
		}
		return fmt.Errorf("failed to create file: %w", err)
	}

	_, err = io.Copy(f, &ctxReader{ctx: ctx, r: r})
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(absPath)
		return fmt.Errorf("failed to write file: %w", err)
	}

	return nil
}

// Remove deletes each key; missing files count as removed.
func (s *Store) Remove(ctx context.Context, keys []string) error {
	var errs []error
	for _, key := range keys {
		if key == "" {
			continue
		}

		absPath, err := s.path(key)
		if err != nil {
			errs = append(errs, fmt.Errorf("%q: %w", key, err))
			continue
		}

		if err := os.Remove(absPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, fmt.Errorf("failed to remove %q: %w", key, err))
		}
	}

	return errors.Join(errs...)
}

func (s *Store) PublicURL(key string) string {
	return objects.JoinURL(s.publicURL, key)
}

func (s *Store) Check(context.Context) error {
	info, err := os.Stat(s.basePath)
	if err != nil {
		return fmt.Errorf("media directory unavailable: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("media path %q is not a directory", s.basePath)
	}

	return nil
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}

	return c.r.Read(p)
}
