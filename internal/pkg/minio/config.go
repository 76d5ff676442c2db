package minio

import (
	"errors"
	"time"
)

// BucketLookupType represents the type of bucket lookup
type BucketLookupType string

const (
	BucketLookupAuto BucketLookupType = "auto"
	BucketLookupDNS  BucketLookupType = "dns"
	BucketLookupPath BucketLookupType = "path"
)

// Config represents the configuration for the object store client.
// Any S3-compatible endpoint works (MinIO, R2, S3).
type Config struct {
	Endpoint        string           `mapstructure:"endpoint"`
	AccessKeyID     string           `mapstructure:"accesskeyid"`
	SecretAccessKey string           `mapstructure:"secretaccesskey"`
	SessionToken    string           `mapstructure:"sessiontoken"`
	Region          string           `mapstructure:"region"`
	UseSSL          bool             `mapstructure:"usessl"`
	BucketLookup    BucketLookupType `mapstructure:"bucketlookup"`

	// Bucket holds every file that download codes point at
	Bucket string `mapstructure:"bucket"`
	// CreateBucket creates Bucket on startup when it is missing
	CreateBucket bool `mapstructure:"createbucket"`

	RequestTimeout time.Duration `mapstructure:"requesttimeout"`
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Endpoint == "" {
		return errors.New("minio: endpoint is required")
	}
	if c.AccessKeyID == "" {
		return errors.New("minio: access key ID is required")
	}
	if c.SecretAccessKey == "" {
		return errors.New("minio: secret access key is required")
	}
	if err := ValidateBucketName(c.Bucket); err != nil {
		return errors.New("minio: " + err.Error())
	}

	switch c.BucketLookup {
	case "", BucketLookupAuto, BucketLookupDNS, BucketLookupPath:
		return nil
	default:
		return errors.New("minio: invalid bucket lookup type")
	}
}

// SetDefaults sets default values for unspecified configuration fields
func (c *Config) SetDefaults() {
	if c.BucketLookup == "" {
		c.BucketLookup = BucketLookupAuto
	}
	if c.RequestTimeout == 0 {
		c.RequestTimeout = 30 * time.Second
	}
}
