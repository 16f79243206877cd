package fileuploader

import (
	"github.com/gammazero/workerpool"

	"github.com/glyphworks/ocr-server/internal/services/filestorage"
	"github.com/glyphworks/ocr-server/internal/utils/hashutil"
	"github.com/glyphworks/ocr-server/pkg/logger"
)

// Uploader pushes artifacts to file storage from a bounded worker pool
// so OCR handlers never block on storage latency. Results come back on
// the caller's channel; a failed upload sends an empty URL.
type Uploader struct {
	wp          *workerpool.WorkerPool
	filestorage filestorage.FileStorage
}

func NewFileUploader(filestorage filestorage.FileStorage, maxWorkers int) *Uploader {
	wp := workerpool.New(maxWorkers)

	return &Uploader{
		wp:          wp,
		filestorage: filestorage,
	}
}

// Stop waits for queued uploads to finish, then releases the pool.
func (u *Uploader) Stop() {
	u.wp.StopWait()
}

func (u *Uploader) Upload(file filestorage.FileInfo, response chan string) {
	u.wp.Submit(func() {
		u.upload(file, response)
	})
}

// UploadBytes stores raw content under its blake3 digest, so identical
// artifacts share a name and re-uploads are harmless.
func (u *Uploader) UploadBytes(file []byte, extension string, isTemp bool, response chan string) {
	fileHash := hashutil.Blake3Hash(file)
	fileInfo := filestorage.FileInfo{
		Name:      fileHash,
		Extension: extension,
		Content:   file,
		IsTemp:    isTemp,
	}

	u.Upload(fileInfo, response)
}

func (u *Uploader) upload(file filestorage.FileInfo, response chan string) {
	if u.filestorage == nil {
		response <- ""
		return
	}

	url, err := u.filestorage.Upload(file)
	if err != nil {
		logger.Error("Failed to upload file", "name", file.Name, "error", err)
		response <- ""
		return
	}

	response <- url
}
