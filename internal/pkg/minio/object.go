package minio

import (
	"context"
	"io"
	"time"

	"github.com/minio/minio-go/v7"
	"go.uber.org/zap"
)

// ObjectInfo describes a stored object
type ObjectInfo struct {
	Key          string
	Size         int64
	ContentType  string
	ETag         string
	LastModified time.Time
}

func fromMinio(info minio.ObjectInfo) ObjectInfo {
	return ObjectInfo{
		Key:          info.Key,
		Size:         info.Size,
		ContentType:  info.ContentType,
		ETag:         info.ETag,
		LastModified: info.LastModified,
	}
}

// notFound normalizes SDK "no such key" responses to ErrObjectNotFound
func (c *Client) notFound(op, key string, err error) error {
	if IsNotFound(err) {
		return WrapError(op, ErrObjectNotFound, c.config.Bucket, key)
	}
	return WrapError(op, err, c.config.Bucket, key)
}

// PutObject uploads an object; size -1 streams with unknown length
func (c *Client) PutObject(ctx context.Context, key string, reader io.Reader, size int64, contentType string) (ObjectInfo, error) {
	if err := ValidateObjectName(key); err != nil {
		return ObjectInfo{}, WrapError("PutObject", ErrInvalidObjectName, c.config.Bucket, key)
	}

	info, err := c.client.PutObject(ctx, c.config.Bucket, key, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return ObjectInfo{}, WrapError("PutObject", err, c.config.Bucket, key)
	}

	c.logger.Info("object uploaded successfully",
		zap.String("bucket", c.config.Bucket),
		zap.String("object", key),
		zap.Int64("size", info.Size),
	)

	return ObjectInfo{
		Key:          info.Key,
		Size:         info.Size,
		ContentType:  contentType,
		ETag:         info.ETag,
		LastModified: info.LastModified,
	}, nil
}

// StatObject returns object metadata without reading the body
func (c *Client) StatObject(ctx context.Context, key string) (ObjectInfo, error) {
	if err := ValidateObjectName(key); err != nil {
		return ObjectInfo{}, WrapError("StatObject", ErrInvalidObjectName, c.config.Bucket, key)
	}

	info, err := c.client.StatObject(ctx, c.config.Bucket, key, minio.StatObjectOptions{})
	if err != nil {
		return ObjectInfo{}, c.notFound("StatObject", key, err)
	}
	return fromMinio(info), nil
}

// GetObject opens an object for reading. The caller must close the returned reader.
func (c *Client) GetObject(ctx context.Context, key string) (io.ReadCloser, ObjectInfo, error) {
	if err := ValidateObjectName(key); err != nil {
		return nil, ObjectInfo{}, WrapError("GetObject", ErrInvalidObjectName, c.config.Bucket, key)
	}

	obj, err := c.client.GetObject(ctx, c.config.Bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, ObjectInfo{}, c.notFound("GetObject", key, err)
	}

	// GetObject is lazy; Stat forces the request so a missing key surfaces here.
	info, err := obj.Stat()
	if err != nil {
		obj.Close()
		return nil, ObjectInfo{}, c.notFound("GetObject", key, err)
	}
	return obj, fromMinio(info), nil
}

// ListObjects lists every object under prefix
func (c *Client) ListObjects(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	var out []ObjectInfo
	for info := range c.client.ListObjects(ctx, c.config.Bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	}) {
		if info.Err != nil {
			return nil, WrapError("ListObjects", info.Err, c.config.Bucket, prefix)
		}
		out = append(out, fromMinio(info))
	}
	return out, nil
}
