package minio

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var bucketNameRegex = regexp.MustCompile(`^[a-z0-9][a-z0-9.\-]{1,61}[a-z0-9]$`)

// ValidateBucketName validates a bucket name according to S3 naming rules
func ValidateBucketName(bucketName string) error {
	if bucketName == "" {
		return fmt.Errorf("bucket name cannot be empty")
	}
	if !bucketNameRegex.MatchString(bucketName) {
		return fmt.Errorf("bucket name must be 3-63 lowercase letters, numbers, dots or hyphens")
	}
	if strings.Contains(bucketName, "..") {
		return fmt.Errorf("bucket name cannot contain consecutive dots")
	}
	return nil
}

// ValidateObjectName validates an object key
func ValidateObjectName(objectName string) error {
	if objectName == "" {
		return fmt.Errorf("object name cannot be empty")
	}
	if len(objectName) > 1024 {
		return fmt.Errorf("object name cannot exceed 1024 characters")
	}
	if strings.Contains(objectName, "\x00") {
		return fmt.Errorf("object name cannot contain null bytes")
	}
	return nil
}

// SanitizeObjectName strips path separators and control characters from an
// uploaded filename so it can be embedded in an object key
func SanitizeObjectName(name string) string {
	name = strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return -1
		}
		if r == '/' || r == '\\' {
			return '_'
		}
		return r
	}, name)
	return strings.Trim(strings.TrimSpace(name), ".")
}

// FormatBytes formats a size as "1.5 MB", two decimals at most
func FormatBytes(bytes int64) string {
	if bytes <= 0 {
		return "0 B"
	}

	const unit = 1024
	units := []string{"B", "KB", "MB", "GB", "TB"}

	value := float64(bytes)
	i := 0
	for value >= unit && i < len(units)-1 {
		value /= unit
		i++
	}
	return trimDecimals(value) + " " + units[i]
}

func trimDecimals(v float64) string {
	s := strconv.FormatFloat(v, 'f', 2, 64)
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}
