package storage

import (
	"context"
	"errors"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrNotConfigured is returned by handlers when no object store is wired.
var ErrNotConfigured = errors.New("storage service not configured")

type ObjectInfo struct {
	Key          string
	Size         int64
	LastModified *time.Time
}

// PutOptions conveys object metadata for uploads.
type PutOptions struct {
	ContentType  string
	CacheControl string
}

// Service stores listing images in remote object storage.
type Service interface {
	PutObject(ctx context.Context, key string, body io.Reader, opts PutOptions) (string, error)
	ListObjects(ctx context.Context, prefix string) ([]ObjectInfo, error)
	DeleteObject(ctx context.Context, key string) error
	ObjectURL(key string) string
	KeyPrefix() string
	// KeyFromURL maps a URL produced by ObjectURL back to its key. It reports
	// false for URLs this store did not produce.
	KeyFromURL(url string) (string, bool)
}

// NewImageKey builds a collision free object key that keeps the original
// file extension so browsers and CDNs infer the content type.
func NewImageKey(prefix, filename string, now time.Time) string {
	ext := strings.ToLower(path.Ext(filename))
	name := uuid.NewString() + ext
	return path.Join(strings.Trim(prefix, "/"), now.UTC().Format("2006/01"), name)
}
