package minio

import (
	"context"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"
)

// Client is a bucket-scoped wrapper around the MinIO SDK
type Client struct {
	client *minio.Client
	config *Config
	logger *zap.Logger
}

// NewClient creates a new object store client
func NewClient(cfg *Config, logger *zap.Logger) (*Client, error) {
	if cfg == nil {
		return nil, ErrInvalidArgument
	}

	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, WrapErrorWithMessage("NewClient", err, "invalid configuration")
	}

	opts := &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, cfg.SessionToken),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	}

	switch cfg.BucketLookup {
	case BucketLookupDNS:
		opts.BucketLookup = minio.BucketLookupDNS
	case BucketLookupPath:
		opts.BucketLookup = minio.BucketLookupPath
	default:
		opts.BucketLookup = minio.BucketLookupAuto
	}

	mc, err := minio.New(cfg.Endpoint, opts)
	if err != nil {
		return nil, WrapErrorWithMessage("NewClient", err, "failed to create minio client")
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	logger.Info("minio client initialized successfully",
		zap.String("endpoint", cfg.Endpoint),
		zap.String("region", cfg.Region),
		zap.String("bucket", cfg.Bucket),
		zap.Bool("use_ssl", cfg.UseSSL),
	)

	return &Client{client: mc, config: cfg, logger: logger}, nil
}

// Bucket returns the configured bucket name
func (c *Client) Bucket() string {
	return c.config.Bucket
}

// Ping checks that the bucket is reachable
func (c *Client) Ping(ctx context.Context) error {
	ok, err := c.client.BucketExists(ctx, c.config.Bucket)
	if err != nil {
		return WrapErrorWithMessage("Ping", err, "failed to connect to object store")
	}
	if !ok {
		return WrapError("Ping", ErrBucketNotFound, c.config.Bucket, "")
	}
	return nil
}

// EnsureBucket creates the bucket when missing and CreateBucket is enabled
func (c *Client) EnsureBucket(ctx context.Context) error {
	ok, err := c.client.BucketExists(ctx, c.config.Bucket)
	if err != nil {
		return WrapError("EnsureBucket", err, c.config.Bucket, "")
	}
	if ok {
		return nil
	}
	if !c.config.CreateBucket {
		return WrapError("EnsureBucket", ErrBucketNotFound, c.config.Bucket, "")
	}

	err = c.client.MakeBucket(ctx, c.config.Bucket, minio.MakeBucketOptions{Region: c.config.Region})
	if err != nil && !IsBucketAlreadyExists(err) {
		return WrapError("EnsureBucket", err, c.config.Bucket, "")
	}

	c.logger.Info("bucket created", zap.String("bucket", c.config.Bucket))
	return nil
}
