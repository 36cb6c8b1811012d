package objects

import (
	"context"
	"io"
)

// NoopStore accepts and discards every object. Useful when no bucket is configured.
type NoopStore struct {
	BaseURL string
}

func (s *NoopStore) Put(_ context.Context, _ string, r io.Reader, _ int64, _ string) error {
	_, err := io.Copy(io.Discard, r)
	return err
}

func (s *NoopStore) Remove(context.Context, []string) error { return nil }

func (s *NoopStore) PublicURL(key string) string { return JoinURL(s.BaseURL, key) }

func (s *NoopStore) Check(context.Context) error { return nil }
