package filestorage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/glyphworks/ocr-server/internal/config"
)

type LocalFileStorage struct {
	assetsDir string
	tempDir   string
	baseURL   string
}

func NewLocalFileStorage(cfg *config.Config) (*LocalFileStorage, error) {
	return &LocalFileStorage{
		assetsDir: cfg.AssetsDir,
		tempDir:   cfg.TempDir,
		baseURL:   fmt.Sprintf("http://%s:%d", cfg.Host, cfg.Port),
	}, nil
}

// Upload writes the file under the assets dir (or the temp dir for
// temp files) and returns the URL it will be served from.
func (s *LocalFileStorage) Upload(file FileInfo) (string, error) {
	var dir string
	if file.IsTemp {
		dir = s.tempDir
	} else {
		dir = s.assetsDir
	}

	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return "", err
	}

	filename := file.Name + file.Extension
	dest := filepath.Join(dir, filename)
	if err := os.WriteFile(dest, file.Content, 0644); err != nil {
		return "", err
	}

	return fmt.Sprintf("%s/file/%s", s.baseURL, filename), nil
}

func (s *LocalFileStorage) UploadMultiple(files []FileInfo) ([]string, error) {
	var uploadedFiles []string
	for _, file := range files {
		destination, err := s.Upload(file)
		if err != nil {
			return nil, err
		}

		uploadedFiles = append(uploadedFiles, destination)
	}

	return uploadedFiles, nil
}

func (s *LocalFileStorage) GetFile(filename string) (*FileInfo, error) {
	path, err := s.ResolveFile(filename, "", false)
	if err != nil {
		return nil, err
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	ext := filepath.Ext(filename)
	name := strings.TrimSuffix(filename, ext)

	return &FileInfo{
		Name:      name,
		Extension: ext,
		Content:   content,
		IsTemp:    false,
	}, nil
}

// ResolveFile maps a filename to its absolute path on disk without
// reading it. Filenames are reduced to their base name so callers
// cannot escape the storage directories.
func (s *LocalFileStorage) ResolveFile(filename string, subfolder string, isTemp bool) (string, error) {
	var dir string
	if isTemp {
		dir = s.tempDir
	} else {
		dir = s.assetsDir
	}

	path := filepath.Join(dir, subfolder, filepath.Base(filename))
	if _, err := os.Stat(path); err != nil {
		return "", err
	}

	return path, nil
}
