package api

import (
	"io"
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"
	"github.com/glyphworks/ocr-server/internal/app"
	"github.com/glyphworks/ocr-server/internal/config"
	"github.com/glyphworks/ocr-server/internal/services/filestorage"
	"github.com/glyphworks/ocr-server/internal/utils/imageutil"
)

// previewQuality is the JPEG quality used when re-encoding downscaled
// previews served through the max_dim query parameter.
const previewQuality = 90

func UploadFile(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "failed to parse request body"})
		return
	}

	content, err := file.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "failed to open file"})
		return
	}
	defer content.Close()

	fileBytes, err := io.ReadAll(content)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "failed to read file"})
		return
	}

	url := make(chan string)
	app := c.MustGet("app").(*app.App)
	app.Uploader().UploadBytes(fileBytes, filepath.Ext(file.Filename), false, url)

	uploaded := <-url
	if uploaded == "" {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "failed to store file"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"data": map[string]string{
			"url": uploaded,
		},
	})
}

func GetFile(c *gin.Context) {
	filename := c.Param("filename")
	app := c.MustGet("app").(*app.App)

	maxDim := 0
	if raw := c.Query("max_dim"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"message": "max_dim must be a positive integer"})
			return
		}
		maxDim = parsed
	}

	storage, err := filestorage.NewFileStorage(app.Config())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": err.Error()})
		return
	}

	// Local files are served straight from disk unless a preview size
	// was requested.
	if app.Config().Filesystem == config.FilesystemLocal && maxDim == 0 {
		path, err := storage.ResolveFile(filename, "", false)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"message": "file not found"})
			return
		}

		c.File(path)
		return
	}

	file, err := storage.GetFile(filename)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"message": "file not found"})
		return
	}

	content := file.Content
	if maxDim > 0 {
		if scaled, ok := downscalePreview(content, maxDim); ok {
			content = scaled
		}
	}

	mimeType := mimetype.Detect(content).String()
	c.Data(http.StatusOK, mimeType, content)
}

// downscalePreview re-encodes an image so its longer side fits within
// maxDim. Content that does not decode as an image is left untouched.
func downscalePreview(content []byte, maxDim int) ([]byte, bool) {
	img, _, err := imageutil.Decode(content)
	if err != nil {
		return nil, false
	}

	scaled := imageutil.DownscaleToFit(img, maxDim)
	encoded, err := imageutil.EncodeJPEG(scaled, previewQuality)
	if err != nil {
		return nil, false
	}

	return encoded, true
}
