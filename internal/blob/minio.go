// Package blob stores uploaded images in an S3-compatible object store.
package blob

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const (
	// KeyPrefix is the directory all image objects are stored under.
	KeyPrefix = "images"

	// DefaultMaxSize caps uploads at 10 MiB.
	DefaultMaxSize = 10 << 20

	// DefaultDownloadExpiry is how long a presigned download URL stays valid.
	DefaultDownloadExpiry = 7 * 24 * time.Hour
)

var unsafeNameChars = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// Config holds connection settings for the object store.
type Config struct {
	Endpoint       string // host:port or full URL
	AccessKey      string
	SecretKey      string
	Bucket         string
	Region         string
	UseSSL         bool
	PublicBaseURL  string        // Base for public object URLs; defaults to endpoint/bucket
	MaxSize        int64         // Upload limit in bytes; 0 uses DefaultMaxSize
	DownloadExpiry time.Duration // 0 uses DefaultDownloadExpiry
}

// MinioStore uploads images to MinIO or any S3-compatible provider.
type MinioStore struct {
	client         *minio.Client
	bucket         string
	publicBase     string
	maxSize        int64
	downloadExpiry time.Duration
	logger         *slog.Logger
}

// NewMinioStore connects to the object store and creates the bucket if it
// does not exist yet.
func NewMinioStore(ctx context.Context, cfg Config, logger *slog.Logger) (*MinioStore, error) {
	if logger == nil {
		logger = slog.Default()
	}

	endpoint := cfg.Endpoint
	// Accept endpoints given with a scheme
	if u, err := url.Parse(endpoint); err == nil && u.Host != "" {
		endpoint = u.Host
		if u.Scheme == "https" {
			cfg.UseSSL = true
		}
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s: %w", cfg.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{Region: cfg.Region}); err != nil {
			return nil, fmt.Errorf("create bucket %s: %w", cfg.Bucket, err)
		}
		logger.Info("Created bucket", "bucket", cfg.Bucket)
	}

	publicBase := cfg.PublicBaseURL
	if publicBase == "" {
		scheme := "http"
		if cfg.UseSSL {
			scheme = "https"
		}
		publicBase = fmt.Sprintf("%s://%s/%s", scheme, endpoint, cfg.Bucket)
	}

	maxSize := cfg.MaxSize
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	expiry := cfg.DownloadExpiry
	if expiry <= 0 {
		expiry = DefaultDownloadExpiry
	}

	return &MinioStore{
		client:         client,
		bucket:         cfg.Bucket,
		publicBase:     strings.TrimRight(publicBase, "/"),
		maxSize:        maxSize,
		downloadExpiry: expiry,
		logger:         logger,
	}, nil
}

// Upload validates the file, stores it under a fresh unique key and returns
// its descriptor.
func (s *MinioStore) Upload(ctx context.Context, file File) (*StoredObject, error) {
	contentType, err := Validate(file, s.maxSize)
	if err != nil {
		return nil, err
	}

	key := NewPathname(file.Name, uuid.New())
	size := int64(len(file.Data))

	_, err = s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(file.Data), size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return nil, fmt.Errorf("put object %q: %w", key, err)
	}

	params := url.Values{}
	params.Set("response-content-disposition", fmt.Sprintf("attachment; filename=%q", path.Base(key)))
	downloadURL, err := s.client.PresignedGetObject(ctx, s.bucket, key, s.downloadExpiry, params)
	if err != nil {
		return nil, fmt.Errorf("presign download for %q: %w", key, err)
	}

	s.logger.Debug("Stored object", "pathname", key, "size", size, "content_type", contentType)

	return &StoredObject{
		URL:         s.PublicURL(key),
		DownloadURL: downloadURL.String(),
		Pathname:    key,
		Size:        size,
		ContentType: contentType,
	}, nil
}

// PublicURL returns the browser-accessible URL for pathname.
func (s *MinioStore) PublicURL(pathname string) string {
	return s.publicBase + "/" + pathname
}

// Health verifies the bucket is reachable.
func (s *MinioStore) Health(ctx context.Context) error {
	if _, err := s.client.BucketExists(ctx, s.bucket); err != nil {
		return fmt.Errorf("object store health check failed: %w", err)
	}
	return nil
}

// Validate checks size limits and sniffs the content type of file.
// The sniffed type wins over the client-reported one; the result must be an image.
func Validate(file File, maxSize int64) (string, error) {
	if len(file.Data) == 0 {
		return "", ErrEmptyFile
	}
	if maxSize > 0 && int64(len(file.Data)) > maxSize {
		return "", fmt.Errorf("%w: %d bytes, limit %d", ErrFileTooLarge, len(file.Data), maxSize)
	}

	detected := mimetype.Detect(file.Data)
	contentType := detected.String()
	if !strings.HasPrefix(contentType, "image/") {
		return "", fmt.Errorf("%w: detected %s (reported %q)", ErrNotAnImage, contentType, file.ContentType)
	}
	return contentType, nil
}

// NewPathname builds the object key for an upload: images/<id>-<safe name>.
func NewPathname(name string, id uuid.UUID) string {
	base := path.Base(strings.ReplaceAll(name, "\\", "/"))
	safe := strings.Trim(unsafeNameChars.ReplaceAllString(base, "-"), "-.")
	if safe == "" {
		safe = "image"
	}
	return path.Join(KeyPrefix, id.String()+"-"+safe)
}
