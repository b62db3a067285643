// Package storage deletes photo image blobs from object storage. Images are
// referenced by the URL stored on the photo record, so every backend resolves
// a URL back to an object key before acting on it.
package storage

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ErrForeignURL is returned for URLs that do not point into the bucket
var ErrForeignURL = errors.New("url does not reference the configured bucket")

// ImageStore removes image objects
type ImageStore interface {
	DeleteByURL(ctx context.Context, rawURL string) error
}

// KeyFromURL extracts the object key from a stored image URL. Supported
// forms: s3://bucket/key, virtual-hosted (https://bucket.host/key),
// path-style (https://host/bucket/key) and Firebase-style download URLs
// (.../b/bucket/o/<escaped key>).
func KeyFromURL(rawURL, bucket string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("failed to parse image url: %w", err)
	}

	path := strings.TrimPrefix(u.EscapedPath(), "/")

	var key string
	switch {
	case u.Scheme == "s3":
		if u.Host != bucket {
			return "", ErrForeignURL
		}
		key = path

	case strings.HasPrefix(u.Host, bucket+"."):
		key = path

	case strings.HasPrefix(path, "v0/b/"+bucket+"/o/"):
		key = strings.TrimPrefix(path, "v0/b/"+bucket+"/o/")

	case strings.HasPrefix(path, bucket+"/"):
		key = strings.TrimPrefix(path, bucket+"/")

	default:
		return "", ErrForeignURL
	}

	key, err = url.PathUnescape(key)
	if err != nil {
		return "", fmt.Errorf("failed to unescape object key: %w", err)
	}
	if key == "" {
		return "", fmt.Errorf("image url has no object key")
	}
	return key, nil
}
