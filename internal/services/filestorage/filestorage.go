package filestorage

import (
	"fmt"
	"strings"

	"github.com/glyphworks/ocr-server/internal/config"
)

// FileInfo describes a file to be stored or one read back from storage.
// Name is the bare filename without extension, Extension includes the
// leading dot. Temp files live in a separate folder and may be cleaned
// up at any time.
type FileInfo struct {
	Name      string
	Extension string
	Content   []byte
	IsTemp    bool
}

func NewFileInfo(name string, extension string, content []byte, isTemp bool) FileInfo {
	return FileInfo{
		Name:      name,
		Extension: extension,
		Content:   content,
		IsTemp:    isTemp,
	}
}

// FileStorage persists OCR artifacts (overlay renders, markup dumps,
// uploaded source images) and serves them back by filename.
type FileStorage interface {
	Upload(file FileInfo) (string, error)
	UploadMultiple(files []FileInfo) ([]string, error)
	GetFile(filename string) (*FileInfo, error)
	ResolveFile(filename string, subfolder string, isTemp bool) (string, error)
}

func NewFileStorage(cfg *config.Config) (FileStorage, error) {
	switch strings.ToLower(cfg.Filesystem) {
	case config.FilesystemLocal:
		return NewLocalFileStorage(cfg)
	case config.FilesystemS3:
		return NewS3FileStorage(cfg)
	default:
		return nil, fmt.Errorf("unsupported filesystem type: %s", cfg.Filesystem)
	}
}
