// package blobstore stores uploaded media files and serves them back by name.
//
// Files are keyed by their base filename. Writing an existing name replaces it.
package blobstore

import (
	"context"
	"fmt"
	"io"
	"mime"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/desertthunder/mdx/internal/shared"
)

// ServePrefix is the HTTP path under which stored files are served.
const ServePrefix = "/downloads/"

// Info describes a stored file.
type Info struct {
	Name        string
	Size        int64
	ContentType string
	ModTime     time.Time
}

// Store persists named blobs.
type Store interface {
	// Put writes r under name, replacing any existing blob. size may be -1 when unknown.
	Put(ctx context.Context, name string, r io.Reader, size int64) error

	// Open returns a reader for name. A missing blob yields [shared.ErrNotFound].
	Open(ctx context.Context, name string) (io.ReadCloser, Info, error)

	// Remove deletes name. Removing a missing blob is not an error.
	Remove(ctx context.Context, name string) error

	// Name returns the backend name (e.g., "local", "minio")
	Name() string
}

// New builds the store selected by cfg.Backend.
func New(ctx context.Context, cfg shared.StorageConfig) (Store, error) {
	switch cfg.Backend {
	case "", "local":
		return NewLocalStore(cfg.Dir)
	case "minio":
		m := cfg.Minio
		return NewMinioStore(ctx, m.Endpoint, m.AccessKey, m.SecretKey, m.Bucket, m.UseSSL)
	default:
		return nil, fmt.Errorf("%w: unknown storage backend %q", shared.ErrInvalidConfig, cfg.Backend)
	}
}

// CleanName reduces a client-supplied filename to a safe base name.
//
// Both "/" and "\" are treated as separators so "..\x.mp3" and "a/b.mp3" keep only the last element.
func CleanName(name string) (string, error) {
	name = strings.ReplaceAll(strings.TrimSpace(name), "\\", "/")
	base := path.Base(name)

	switch base {
	case "", ".", "..", "/":
		return "", fmt.Errorf("%w: invalid filename %q", shared.ErrInvalidArgument, name)
	}
	return base, nil
}

// ServePath returns the URL path a stored name is served from.
func ServePath(name string) string {
	return ServePrefix + name
}

var mediaTypes = map[string]string{
	".mp3": "audio/mpeg",
	".wav": "audio/wav",
	".ogg": "audio/ogg",
	".mp4": "video/mp4",
	".avi": "video/x-msvideo",
	".mov": "video/quicktime",
}

// ContentType guesses a MIME type from the file extension.
func ContentType(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if ct, ok := mediaTypes[ext]; ok {
		return ct
	}
	if ct := mime.TypeByExtension(ext); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
