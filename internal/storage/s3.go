package storage

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"
)

// S3API is the subset of the S3 client used by S3Backend.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3Config holds bucket settings for S3Backend.
type S3Config struct {
	Bucket string

	// PublicURL is the base URL objects are served from. When empty,
	// URLs are built from Endpoint (path style) or the AWS virtual host.
	PublicURL string

	Endpoint     string
	Region       string
	UsePathStyle bool
}

// S3Backend stores media in an S3-compatible bucket.
type S3Backend struct {
	client S3API
	cfg    S3Config
	logger zerolog.Logger
}

// NewS3Client creates an S3 client for cfg, honouring a custom endpoint
// (MinIO, LocalStack) and path-style addressing.
func NewS3Client(awsCfg aws.Config, cfg S3Config) *s3.Client {
	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})
}

// NewS3Backend creates a backend on client.
func NewS3Backend(client S3API, cfg S3Config, logger zerolog.Logger) *S3Backend {
	return &S3Backend{
		client: client,
		cfg:    cfg,
		logger: logger.With().Str("component", "storage").Str("backend", "s3").Str("bucket", cfg.Bucket).Logger(),
	}
}

// Put uploads the object.
func (b *S3Backend) Put(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error {
	if err := ValidateKey(key); err != nil {
		return err
	}

	input := &s3.PutObjectInput{
		Bucket: aws.String(b.cfg.Bucket),
		Key:    aws.String(key),
		Body:   reader,
	}
	if size >= 0 {
		input.ContentLength = aws.Int64(size)
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}

	if _, err := b.client.PutObject(ctx, input); err != nil {
		return fmt.Errorf("failed to upload %s: %w", key, err)
	}

	b.logger.Debug().Str("key", key).Int64("size", size).Msg("stored media object")
	return nil
}

// Delete removes the object. S3 reports success for missing keys.
func (b *S3Backend) Delete(ctx context.Context, key string) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	_, err := b.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(b.cfg.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

// URL returns the public URL of key.
func (b *S3Backend) URL(key string) string {
	switch {
	case b.cfg.PublicURL != "":
		return strings.TrimSuffix(b.cfg.PublicURL, "/") + "/" + key
	case b.cfg.Endpoint != "":
		return strings.TrimSuffix(b.cfg.Endpoint, "/") + "/" + b.cfg.Bucket + "/" + key
	default:
		return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", b.cfg.Bucket, b.cfg.Region, key)
	}
}

var _ Backend = (*S3Backend)(nil)
