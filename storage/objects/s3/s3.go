package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/hsarchitect/folio/config"
	"github.com/hsarchitect/folio/storage/objects"
)

// Uploaded objects are never rewritten under the same key.
const immutableCacheControl = "public, max-age=31536000, immutable"

type s3Client interface {
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	RemoveObject(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error
}

var newMinioClient = func(endpoint string, opts *minio.Options) (s3Client, error) {
	return minio.New(endpoint, opts)
}

// Store keeps objects in S3 or any compatible service (R2, MinIO, the Supabase S3 gateway).
type Store struct {
	client         s3Client
	bucket         string
	publicBase     string
	forcePathStyle bool
	endpointHost   string
	secure         bool
	region         string
}

func NewStore(cfg *config.Media) (*Store, error) {
	if cfg == nil || cfg.S3 == nil {
		return nil, fmt.Errorf("s3 media config is nil")
	}

	s3cfg := cfg.S3
	region := strings.TrimSpace(s3cfg.Region)
	if strings.EqualFold(region, "auto") {
		region = ""
	}

	endpointHost := strings.TrimSpace(s3cfg.Endpoint)
	if endpointHost == "" {
		if region == "" {
			endpointHost = "s3.amazonaws.com"
		} else {
			endpointHost = fmt.Sprintf("s3.%s.amazonaws.com", region)
		}
	} else if parsed, err := url.Parse(endpointHost); err == nil && parsed.Host != "" {
		endpointHost = parsed.Host
	}

	lookup := minio.BucketLookupAuto
	if s3cfg.ForcePathStyle {
		lookup = minio.BucketLookupPath
	}

	client, err := newMinioClient(endpointHost, &minio.Options{
		Creds:        credentials.NewStaticV4(s3cfg.AccessKeyId, s3cfg.SecretKeyId, ""),
		Secure:       !s3cfg.DisableSSL,
		Region:       region,
		BucketLookup: lookup,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create s3 client: %w", err)
	}

	store := &Store{
		client:         client,
		bucket:         s3cfg.Bucket,
		publicBase:     strings.TrimSuffix(cfg.PublicBaseUrl, "/"),
		forcePathStyle: s3cfg.ForcePathStyle,
		endpointHost:   endpointHost,
		secure:         !s3cfg.DisableSSL,
		region:         s3cfg.Region,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := store.Check(ctx); err != nil {
		return nil, err
	}

	return store, nil
}

// Check verifies that the bucket exists and is reachable with the configured credentials.
func (s *Store) Check(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("failed to verify s3 bucket %q: %w", s.bucket, err)
	}

	if !exists {
		return fmt.Errorf("s3 bucket %q does not exist or is not accessible", s.bucket)
	}

	return nil
}

func (s *Store) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	key, err := objects.CleanKey(key)
	if err != nil {
		return err
	}

	opts := minio.PutObjectOptions{
		ContentType:  contentType,
		CacheControl: immutableCacheControl,
	}

	if _, err := s.client.PutObject(ctx, s.bucket, key, r, size, opts); err != nil {
		return fmt.Errorf("upload %q to s3 failed: %w", key, err)
	}

	return nil
}

func (s *Store) Remove(ctx context.Context, keys []string) error {
	var errs []error
	for _, key := range keys {
		if key == "" {
			continue
		}

		if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
			errs = append(errs, fmt.Errorf("delete %q from s3 failed: %w", key, err))
		}
	}

	return errors.Join(errs...)
}

func (s *Store) PublicURL(key string) string {
	if s.publicBase != "" {
		return objects.JoinURL(s.publicBase, key)
	}

	scheme := "https"
	if !s.secure {
		scheme = "http"
	}

	if s.forcePathStyle {
		return fmt.Sprintf("%s://%s/%s/%s", scheme, s.endpointHost, s.bucket, key)
	}

	return fmt.Sprintf("%s://%s.%s/%s", scheme, s.bucket, s.endpointHost, key)
}
