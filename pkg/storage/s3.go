package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"
	"sync"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"
)

// S3Config configures a client for any S3-compatible object store (MinIO,
// AWS S3, and friends).
type S3Config struct {
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	UseSSL          bool
	Region          string
	Bucket          string
}

// S3Client implements BlobClient over an S3-compatible object store.
type S3Client struct {
	client *minio.Client
	bucket string
	region string
	logger *zap.Logger

	mu         sync.Mutex
	bucketInit bool
}

var _ BlobClient = (*S3Client)(nil)

// NewS3Client creates an object storage client with static V4 credentials.
func NewS3Client(cfg S3Config, logger *zap.Logger) (*S3Client, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("endpoint is required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket is required")
	}
	if cfg.AccessKeyID == "" || cfg.SecretAccessKey == "" {
		return nil, fmt.Errorf("access key and secret key are required")
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create object storage client: %w", err)
	}

	return &S3Client{
		client: client,
		bucket: cfg.Bucket,
		region: cfg.Region,
		logger: logger,
	}, nil
}

// Upload writes data under key in the configured bucket and returns the
// object URL.
func (c *S3Client) Upload(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	if err := c.ensureBucket(ctx); err != nil {
		return "", err
	}
	if contentType == "" {
		contentType = defaultContentType
	}

	_, err := c.client.PutObject(ctx, c.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		c.logger.Error("Failed to upload object",
			zap.String("bucket", c.bucket),
			zap.String("key", key),
			zap.Int("size_bytes", len(data)),
			zap.Error(err))
		return "", fmt.Errorf("object upload failed: %w", err)
	}

	c.logger.Debug("Uploaded object",
		zap.String("bucket", c.bucket),
		zap.String("key", key),
		zap.Int("size_bytes", len(data)))

	endpoint := strings.TrimRight(c.client.EndpointURL().String(), "/")
	return fmt.Sprintf("%s/%s/%s", endpoint, c.bucket, key), nil
}

// Download fetches object contents. The reference may be a bare key or a
// full object URL as returned by Upload.
func (c *S3Client) Download(ctx context.Context, reference string) ([]byte, error) {
	key, err := c.extractKey(reference)
	if err != nil {
		return nil, err
	}

	obj, err := c.client.GetObject(ctx, c.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch object: %w", err)
	}
	defer obj.Close()

	// GetObject is lazy; Stat surfaces missing-object errors before the read.
	if _, err := obj.Stat(); err != nil {
		return nil, fmt.Errorf("failed to fetch object: %w", err)
	}

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, fmt.Errorf("failed to read object data: %w", err)
	}

	return data, nil
}

func (c *S3Client) ensureBucket(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.bucketInit {
		return nil
	}

	exists, err := c.client.BucketExists(ctx, c.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket %s: %w", c.bucket, err)
	}
	if !exists {
		if err := c.client.MakeBucket(ctx, c.bucket, minio.MakeBucketOptions{Region: c.region}); err != nil {
			return fmt.Errorf("failed to create bucket %s: %w", c.bucket, err)
		}
		c.logger.Info("Created bucket", zap.String("bucket", c.bucket))
	}

	c.bucketInit = true
	return nil
}

func (c *S3Client) extractKey(reference string) (string, error) {
	ref := strings.TrimSpace(reference)
	if ref == "" {
		return "", fmt.Errorf("object reference is required")
	}

	if u, err := url.Parse(ref); err == nil && u.Host != "" {
		ref = u.Path
	}

	ref = strings.TrimPrefix(ref, "/")
	ref = strings.TrimPrefix(ref, c.bucket+"/")

	if ref == "" {
		return "", fmt.Errorf("object key is empty")
	}

	return ref, nil
}
