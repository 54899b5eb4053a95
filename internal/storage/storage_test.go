package storage

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/ikkim/tshirt-backend/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	pngHeader  = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")
	gifHeader  = []byte("GIF89a\x01\x00\x01\x00\x00\x00\x00")
	jpegHeader = []byte("\xff\xd8\xff\xe0\x00\x10JFIF\x00\x01\x01\x00\x00\x01\x00\x01\x00\x00")
	bmpHeader  = []byte("BM\x3a\x00\x00\x00\x00\x00\x00\x00\x36\x00\x00\x00\x28\x00\x00\x00")
)

func TestDetectImage(t *testing.T) {
	tests := []struct {
		name     string
		head     []byte
		wantType string
		wantOK   bool
	}{
		{name: "PNG", head: pngHeader, wantType: "image/png", wantOK: true},
		{name: "GIF", head: gifHeader, wantType: "image/gif", wantOK: true},
		{name: "JPEG", head: jpegHeader, wantType: "image/jpeg", wantOK: true},
		{name: "BMP", head: bmpHeader, wantType: "image/bmp", wantOK: true},
		{name: "Plain text", head: []byte("hello, this is not an image"), wantOK: false},
		{name: "PDF", head: []byte("%PDF-1.4\n%\xe2\xe3\xcf\xd3\n"), wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			contentType, ext, ok := DetectImage(tt.head)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.wantType, contentType)
				assert.NotEmpty(t, ext)
			}
		})
	}
}

func TestLocalStorage_SaveExistsURL(t *testing.T) {
	root := t.TempDir()
	store, err := NewLocalStorage(root, "/media")
	require.NoError(t, err)
	ctx := context.Background()

	saved, err := store.Save(ctx, "decals/cat.png", "image/png", bytes.NewReader(pngHeader))
	require.NoError(t, err)
	assert.Equal(t, "decals/cat.png", saved)

	content, err := os.ReadFile(filepath.Join(root, "decals", "cat.png"))
	require.NoError(t, err)
	assert.Equal(t, pngHeader, content)

	exists, err := store.Exists(ctx, "decals/cat.png")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = store.Exists(ctx, "decals/dog.png")
	require.NoError(t, err)
	assert.False(t, exists)

	assert.Equal(t, "/media/decals/cat.png", store.URL("decals/cat.png"))
	assert.Equal(t, "", store.URL(""))
}

func TestLocalStorage_NoOverwrite(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir(), "/media/")
	require.NoError(t, err)
	ctx := context.Background()

	_, err = store.Save(ctx, "decals/a.png", "image/png", bytes.NewReader(pngHeader))
	require.NoError(t, err)
	_, err = store.Save(ctx, "decals/a.png", "image/png", bytes.NewReader(gifHeader))
	assert.Error(t, err)
}

func TestLocalStorage_StaysInsideRoot(t *testing.T) {
	root := t.TempDir()
	store, err := NewLocalStorage(filepath.Join(root, "media"), "/media/")
	require.NoError(t, err)

	saved, err := store.Save(context.Background(), "../../escape.png", "image/png", bytes.NewReader(pngHeader))
	require.NoError(t, err)
	assert.Equal(t, "escape.png", saved)

	_, err = os.Stat(filepath.Join(root, "media", "escape.png"))
	assert.NoError(t, err)
}

func TestNew(t *testing.T) {
	store, err := New(&config.StorageConfig{Backend: "local", MediaRoot: t.TempDir(), MediaURL: "/media/"})
	require.NoError(t, err)
	assert.IsType(t, &LocalStorage{}, store)

	store, err = New(&config.StorageConfig{
		Backend: "s3",
		S3:      config.S3Config{Region: "eu-west-1", Bucket: "b", AccessKeyID: "k", SecretAccessKey: "s", BaseURL: "https://cdn.example.com/"},
	})
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/decals/x.png", store.URL("decals/x.png"))

	_, err = New(&config.StorageConfig{Backend: "ftp"})
	assert.Error(t, err)
}

func TestLocalStorage_PathInvertsURL(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir(), "/media/")
	require.NoError(t, err)

	name, ok := store.Path(store.URL("decals/cat_1a2b3c4d.png"))
	assert.True(t, ok)
	assert.Equal(t, "decals/cat_1a2b3c4d.png", name)

	tests := []struct {
		name     string
		url      string
		wantName string
		wantOK   bool
	}{
		{name: "Query string dropped", url: "/media/decals/a.png?v=2", wantName: "decals/a.png", wantOK: true},
		{name: "Escape cleaned", url: "/media/../secret.png", wantName: "secret.png", wantOK: true},
		{name: "Bare prefix", url: "/media/", wantOK: false},
		{name: "Other mount", url: "/static/a.png", wantOK: false},
		{name: "Relative", url: "decals/a.png", wantOK: false},
		{name: "Remote", url: "https://cdn.example.com/decals/a.png", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := store.Path(tt.url)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantName, got)
		})
	}

	assert.Equal(t, "https://cdn.example.com/a.png", store.URL("https://cdn.example.com/a.png"))
	assert.Equal(t, "/static/a.png", store.URL("/static/a.png"))

	exists, err := store.Exists(context.Background(), "https://cdn.example.com/a.png")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestS3Storage_PathInvertsURL(t *testing.T) {
	withCDN := NewS3Storage("eu-west-1", "tshirt-uploads", "key", "secret", "https://cdn.example.com/")
	bucketOnly := NewS3Storage("eu-west-1", "tshirt-uploads", "key", "secret", "")

	for _, store := range []*S3Storage{withCDN, bucketOnly} {
		url := store.URL("decals/cat_1a2b3c4d.png")
		name, ok := store.Path(url)
		assert.True(t, ok, url)
		assert.Equal(t, "decals/cat_1a2b3c4d.png", name)
		assert.Equal(t, url, store.URL(store.URL("decals/cat_1a2b3c4d.png")), "URL must not prefix twice")
	}

	assert.Equal(t, "https://cdn.example.com/decals/a.png", withCDN.URL("decals/a.png"))
	assert.Equal(t, "https://tshirt-uploads.s3.eu-west-1.amazonaws.com/decals/a.png", bucketOnly.URL("decals/a.png"))

	name, ok := withCDN.Path("https://tshirt-uploads.s3.eu-west-1.amazonaws.com/decals/a.png")
	assert.True(t, ok, "direct bucket URLs are still ours")
	assert.Equal(t, "decals/a.png", name)

	_, ok = withCDN.Path("https://elsewhere.example.org/decals/a.png")
	assert.False(t, ok)
	_, ok = withCDN.Path("/media/decals/a.png")
	assert.False(t, ok)
}
