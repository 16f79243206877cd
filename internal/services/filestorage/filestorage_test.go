package filestorage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/glyphworks/ocr-server/internal/config"
)

func newLocalStorage(t *testing.T) *LocalFileStorage {
	t.Helper()

	base := t.TempDir()
	cfg := &config.Config{
		Host:      "127.0.0.1",
		Port:      8711,
		AssetsDir: filepath.Join(base, "assets"),
		TempDir:   filepath.Join(base, "temp"),
	}

	storage, err := NewLocalFileStorage(cfg)
	require.NoError(t, err)

	return storage
}

func TestLocalUpload(t *testing.T) {
	storage := newLocalStorage(t)

	url, err := storage.Upload(NewFileInfo("ab12", ".jpg", []byte("overlay bytes"), false))
	require.NoError(t, err)
	require.Equal(t, "http://127.0.0.1:8711/file/ab12.jpg", url)

	content, err := os.ReadFile(filepath.Join(storage.assetsDir, "ab12.jpg"))
	require.NoError(t, err)
	require.Equal(t, []byte("overlay bytes"), content)
}

func TestLocalUploadTemp(t *testing.T) {
	storage := newLocalStorage(t)

	_, err := storage.Upload(NewFileInfo("scratch", ".md", []byte("# markdown"), true))
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(storage.tempDir, "scratch.md"))
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(storage.assetsDir, "scratch.md"))
	require.True(t, os.IsNotExist(err))
}

func TestLocalUploadMultiple(t *testing.T) {
	storage := newLocalStorage(t)

	urls, err := storage.UploadMultiple([]FileInfo{
		NewFileInfo("one", ".md", []byte("first"), false),
		NewFileInfo("two", ".md", []byte("second"), false),
	})
	require.NoError(t, err)
	require.Len(t, urls, 2)

	for _, name := range []string{"one.md", "two.md"} {
		_, err := os.Stat(filepath.Join(storage.assetsDir, name))
		require.NoError(t, err)
	}
}

func TestLocalGetFile(t *testing.T) {
	storage := newLocalStorage(t)

	_, err := storage.Upload(NewFileInfo("ab12", ".jpg", []byte("overlay bytes"), false))
	require.NoError(t, err)

	file, err := storage.GetFile("ab12.jpg")
	require.NoError(t, err)
	require.Equal(t, "ab12", file.Name)
	require.Equal(t, ".jpg", file.Extension)
	require.Equal(t, []byte("overlay bytes"), file.Content)

	_, err = storage.GetFile("missing.jpg")
	require.Error(t, err)
}

func TestLocalResolveFile(t *testing.T) {
	storage := newLocalStorage(t)

	_, err := storage.Upload(NewFileInfo("asset", ".png", []byte("a"), false))
	require.NoError(t, err)
	_, err = storage.Upload(NewFileInfo("tmp", ".png", []byte("t"), true))
	require.NoError(t, err)

	path, err := storage.ResolveFile("asset.png", "", false)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(storage.assetsDir, "asset.png"), path)

	path, err = storage.ResolveFile("tmp.png", "", true)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(storage.tempDir, "tmp.png"), path)

	_, err = storage.ResolveFile("missing.png", "", false)
	require.True(t, os.IsNotExist(err))
}

func TestLocalResolveFileStripsPath(t *testing.T) {
	storage := newLocalStorage(t)

	_, err := storage.Upload(NewFileInfo("asset", ".png", []byte("a"), false))
	require.NoError(t, err)

	path, err := storage.ResolveFile("../../asset.png", "", false)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(storage.assetsDir, "asset.png"), path)
}

func TestNewFileStorage(t *testing.T) {
	cfg := &config.Config{Filesystem: "local"}

	storage, err := NewFileStorage(cfg)
	require.NoError(t, err)
	require.IsType(t, &LocalFileStorage{}, storage)

	_, err = NewFileStorage(&config.Config{Filesystem: "floppy"})
	require.ErrorContains(t, err, "unsupported filesystem type")
}

func TestS3ObjectURL(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.S3Config
		want string
	}{
		{
			name: "public url wins",
			cfg: config.S3Config{
				PublicUrl: "https://cdn.example.com/",
				Bucket:    "glyph",
				Region:    "nyc3",
			},
			want: "https://cdn.example.com/ocr/ab12.jpg",
		},
		{
			name: "digitalocean spaces",
			cfg: config.S3Config{
				EndpointUrl: "https://nyc3.digitaloceanspaces.com",
				Bucket:      "glyph",
				Region:      "nyc3",
			},
			want: "https://glyph.nyc3.digitaloceanspaces.com/ocr/ab12.jpg",
		},
		{
			name: "aws default",
			cfg: config.S3Config{
				Bucket: "glyph",
				Region: "us-east-1",
			},
			want: "https://glyph.s3.us-east-1.amazonaws.com/ocr/ab12.jpg",
		},
		{
			name: "custom endpoint",
			cfg: config.S3Config{
				EndpointUrl: "http://localhost:9000",
				Bucket:      "glyph",
			},
			want: "http://localhost:9000/glyph/ocr/ab12.jpg",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			storage := &S3FileStorage{cfg: &tt.cfg}
			require.Equal(t, tt.want, storage.objectURL("ocr/ab12.jpg"))
		})
	}
}
