package internal

import (
	"fmt"
	"strings"
)

// IsS3URI returns true if text starts with s3://.
func IsS3URI(text string) bool {
	return strings.HasPrefix(text, "s3://")
}

// ParseS3URI parses S3 URIs in format s3://bucket/key.
//
// Both bucket and key must be non-empty. Bucket names are not validated.
func ParseS3URI(text string) (bucket, key string, err error) {
	if !IsS3URI(text) {
		return "", "", fmt.Errorf(`"%s" does not start with s3://`, text)
	}

	bucket, key, _ = strings.Cut(strings.TrimPrefix(text, "s3://"), "/")
	if bucket == "" || key == "" {
		return "", "", fmt.Errorf(`"%s" is not in format s3://bucket/key`, text)
	}

	return
}
