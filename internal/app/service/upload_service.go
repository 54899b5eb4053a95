package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/ikkim/tshirt-backend/internal/storage"
	"github.com/ikkim/tshirt-backend/pkg/logger"
)

const (
	decalFolder     = "decals"
	maxBaseNameLen  = 50
	defaultBaseName = "decal"
)

var (
	ErrNoFile          = errors.New("no file uploaded")
	ErrInvalidFileType = errors.New("invalid file type")
	ErrFileTooLarge    = errors.New("file too large")
)

var unsafeNameChars = regexp.MustCompile(`[^A-Za-z0-9_-]+`)

type UploadResult struct {
	Path string `json:"path"`
	URL  string `json:"file_url"`
}

type UploadService interface {
	UploadDecal(ctx context.Context, file *multipart.FileHeader) (*UploadResult, error)
}

type uploadService struct {
	files    storage.FileStore
	maxBytes int64
}

func NewUploadService(files storage.FileStore, maxBytes int64) UploadService {
	return &uploadService{files: files, maxBytes: maxBytes}
}

func (s *uploadService) UploadDecal(ctx context.Context, file *multipart.FileHeader) (*UploadResult, error) {
	if file == nil {
		return nil, ErrNoFile
	}
	if s.maxBytes > 0 && file.Size > s.maxBytes {
		logger.Warn("Decal upload rejected: too large", map[string]interface{}{
			"filename": file.Filename,
			"size":     file.Size,
		})
		return nil, ErrFileTooLarge
	}

	src, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()

	content, err := readLimited(src, s.maxBytes)
	if err != nil {
		return nil, err
	}

	contentType, ext, ok := storage.DetectImage(content)
	if !ok {
		logger.Warn("Decal upload rejected: not an image", map[string]interface{}{
			"filename":      file.Filename,
			"detected_type": contentType,
		})
		return nil, ErrInvalidFileType
	}

	name := path.Join(decalFolder, decalFileName(file.Filename, ext))
	saved, err := s.files.Save(ctx, name, contentType, bytes.NewReader(content))
	if err != nil {
		logger.Error("Failed to store decal", err, map[string]interface{}{
			"name": name,
		})
		return nil, err
	}

	result := &UploadResult{Path: saved, URL: s.files.URL(saved)}
	logger.Info("Decal uploaded", map[string]interface{}{
		"path":         saved,
		"content_type": contentType,
		"size":         len(content),
	})
	return result, nil
}

func readLimited(r io.Reader, maxBytes int64) ([]byte, error) {
	if maxBytes <= 0 {
		return io.ReadAll(r)
	}
	content, err := io.ReadAll(io.LimitReader(r, maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if int64(len(content)) > maxBytes {
		return nil, ErrFileTooLarge
	}
	return content, nil
}

// decalFileName builds "<base>_<8 hex><ext>" from the client's file name.
// The extension follows the sniffed type, not the client's claim.
func decalFileName(original, ext string) string {
	base := strings.TrimSuffix(filepath.Base(original), filepath.Ext(original))
	base = strings.Trim(unsafeNameChars.ReplaceAllString(base, "_"), "_")
	if base == "" || base == "." {
		base = defaultBaseName
	}
	if len(base) > maxBaseNameLen {
		base = base[:maxBaseNameLen]
	}
	return fmt.Sprintf("%s_%s%s", base, uuid.NewString()[:8], ext)
}
