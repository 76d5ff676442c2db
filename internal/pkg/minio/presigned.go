package minio

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"go.uber.org/zap"
)

// PresignedGetObject returns a GET URL valid for expiry. When downloadName is
// set the response is served as an attachment with that filename.
func (c *Client) PresignedGetObject(ctx context.Context, key string, expiry time.Duration, downloadName string) (*url.URL, error) {
	if err := ValidateObjectName(key); err != nil {
		return nil, WrapError("PresignedGetObject", ErrInvalidObjectName, c.config.Bucket, key)
	}
	if expiry <= 0 || expiry > 7*24*time.Hour {
		return nil, WrapErrorWithMessage("PresignedGetObject", ErrInvalidArgument, "expiry must be between 1s and 7 days")
	}

	params := url.Values{}
	if downloadName != "" {
		params.Set("response-content-disposition", fmt.Sprintf("attachment; filename=%q", downloadName))
	}

	u, err := c.client.PresignedGetObject(ctx, c.config.Bucket, key, expiry, params)
	if err != nil {
		return nil, WrapError("PresignedGetObject", err, c.config.Bucket, key)
	}

	c.logger.Debug("presigned GET URL generated",
		zap.String("bucket", c.config.Bucket),
		zap.String("object", key),
		zap.Duration("expiry", expiry),
	)
	return u, nil
}
