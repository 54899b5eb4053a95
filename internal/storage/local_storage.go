package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/ikkim/tshirt-backend/pkg/logger"
)

// LocalStorage writes files under a media root that the router serves at baseURL
type LocalStorage struct {
	root    string
	baseURL string
}

func NewLocalStorage(root, baseURL string) (*LocalStorage, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create media root: %w", err)
	}
	if baseURL == "" {
		baseURL = "/media/"
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	return &LocalStorage{root: root, baseURL: baseURL}, nil
}

// Root is the directory served under the media URL
func (s *LocalStorage) Root() string {
	return s.root
}

// Save refuses to overwrite; callers pick collision-safe names
func (s *LocalStorage) Save(ctx context.Context, name, contentType string, r io.Reader) (string, error) {
	rel, err := cleanName(name)
	if err != nil {
		return "", err
	}
	full := filepath.Join(s.root, filepath.FromSlash(rel))

	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", fmt.Errorf("failed to create upload directory: %w", err)
	}

	f, err := os.OpenFile(full, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(full)
		return "", fmt.Errorf("failed to write file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(full)
		return "", fmt.Errorf("failed to write file: %w", err)
	}

	logger.Debug("File saved to local storage", map[string]interface{}{
		"path":         rel,
		"content_type": contentType,
	})
	return rel, nil
}

func (s *LocalStorage) Exists(ctx context.Context, name string) (bool, error) {
	if isExternal(name) {
		return false, nil
	}
	rel, err := cleanName(name)
	if err != nil {
		return false, nil
	}
	info, err := os.Stat(filepath.Join(s.root, filepath.FromSlash(rel)))
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return !info.IsDir(), nil
}

// URL leaves external references untouched
func (s *LocalStorage) URL(name string) string {
	if name == "" || isExternal(name) {
		return name
	}
	return s.baseURL + name
}

func (s *LocalStorage) Path(url string) (string, bool) {
	return trimBase(url, s.baseURL)
}
