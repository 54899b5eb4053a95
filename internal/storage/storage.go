package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/ikkim/tshirt-backend/config"
)

// FileStore saves uploaded files under relative paths such as
// "decals/cat_1a2b3c4d.png" and turns those paths into public URLs.
type FileStore interface {
	// Save writes r under name and returns the relative path actually used
	Save(ctx context.Context, name, contentType string, r io.Reader) (string, error)
	Exists(ctx context.Context, name string) (bool, error)
	URL(name string) string
	// Path is the inverse of URL: it maps a URL this store handed out back
	// to its relative path. ok is false for anything else.
	Path(url string) (name string, ok bool)
}

// ImageTypes are the decal formats accepted by DetectImage
var ImageTypes = []string{"image/jpeg", "image/png", "image/gif", "image/bmp"}

// DetectImage sniffs the leading bytes of an upload. It returns the detected
// MIME type and file extension, or ok=false when the content is not one of
// ImageTypes.
func DetectImage(head []byte) (contentType, ext string, ok bool) {
	detected := mimetype.Detect(head)
	for _, allowed := range ImageTypes {
		if detected.Is(allowed) {
			return allowed, detected.Extension(), true
		}
	}
	return detected.String(), detected.Extension(), false
}

// New builds the backend selected by cfg.Backend
func New(cfg *config.StorageConfig) (FileStore, error) {
	switch cfg.Backend {
	case "local":
		return NewLocalStorage(cfg.MediaRoot, cfg.MediaURL)
	case "s3":
		return NewS3Storage(cfg.S3.Region, cfg.S3.Bucket, cfg.S3.AccessKeyID, cfg.S3.SecretAccessKey, cfg.S3.BaseURL), nil
	default:
		return nil, fmt.Errorf("unsupported storage backend %q", cfg.Backend)
	}
}

// isExternal reports whether ref is already a full or rooted URL rather than
// a path relative to a store
func isExternal(ref string) bool {
	return strings.Contains(ref, "://") || strings.HasPrefix(ref, "/")
}

// trimBase strips base from ref and cleans what is left
func trimBase(ref, base string) (string, bool) {
	if base == "" || !strings.HasPrefix(ref, base) {
		return "", false
	}
	rest := strings.TrimPrefix(ref, base)
	if i := strings.IndexAny(rest, "?#"); i >= 0 {
		rest = rest[:i]
	}
	name, err := cleanName(rest)
	if err != nil {
		return "", false
	}
	return name, true
}

// cleanName rejects absolute and parent-escaping paths
func cleanName(name string) (string, error) {
	cleaned := path.Clean("/" + strings.ReplaceAll(name, "\\", "/"))
	cleaned = strings.TrimPrefix(cleaned, "/")
	if cleaned == "" || cleaned == "." {
		return "", fmt.Errorf("invalid file name %q", name)
	}
	return cleaned, nil
}
