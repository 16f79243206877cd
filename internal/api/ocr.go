package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/glyphworks/ocr-server/internal/app"
	"github.com/glyphworks/ocr-server/internal/ocr/engine"
	"github.com/glyphworks/ocr-server/internal/services/recognition"
	"github.com/glyphworks/ocr-server/internal/types"
)

// RecognizeImage runs OCR on a multipart-uploaded image and answers
// synchronously once inference finishes.
func RecognizeImage(c *gin.Context) {
	var params types.OCRParamsRequest
	if err := c.ShouldBind(&params); err != nil {
		c.JSON(http.StatusBadRequest, types.OCRResponse{Error: "failed to parse request body"})
		return
	}

	file, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, types.OCRResponse{Error: "an image file is required"})
		return
	}

	content, err := file.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, types.OCRResponse{Error: "failed to open image file"})
		return
	}
	defer content.Close()

	imageData, err := io.ReadAll(content)
	if err != nil {
		c.JSON(http.StatusBadRequest, types.OCRResponse{Error: "failed to read image file"})
		return
	}

	app := c.MustGet("app").(*app.App)
	result, err := recognition.ProcessImage(c.Request.Context(), app, imageData, file.Filename, &params)
	respondOCR(c, result, err)
}

// RecognizeBase64 runs OCR on an image submitted inline as base64,
// bound from a JSON or msgpack body.
func RecognizeBase64(c *gin.Context) {
	var request types.OCRBase64Request
	contentType := c.ContentType()
	if contentType == "" {
		contentType = "application/json" // Default to JSON
	}

	switch contentType {
	case "application/msgpack":
		if err := c.ShouldBindWith(&request, binding.MsgPack); err != nil {
			c.JSON(http.StatusBadRequest, types.OCRResponse{Error: "failed to parse msgpack request body"})
			return
		}
	case "application/json":
		if err := c.ShouldBindWith(&request, binding.JSON); err != nil {
			c.JSON(http.StatusBadRequest, types.OCRResponse{Error: "failed to parse json request body"})
			return
		}
	default:
		c.JSON(http.StatusBadRequest, types.OCRResponse{Error: "unsupported content type: " + contentType})
		return
	}

	if request.ImageBase64 == "" {
		c.JSON(http.StatusBadRequest, types.OCRResponse{Error: "image_base64 is required"})
		return
	}

	imageData, err := recognition.DecodeBase64Image(request.ImageBase64)
	if err != nil {
		c.JSON(http.StatusBadRequest, types.OCRResponse{Error: "failed to decode base64 image"})
		return
	}

	app := c.MustGet("app").(*app.App)
	result, err := recognition.ProcessImage(c.Request.Context(), app, imageData, request.Filename, &request.OCRParamsRequest)
	respondOCR(c, result, err)
}

func respondOCR(c *gin.Context, result *types.OCRResult, err error) {
	if err != nil {
		c.JSON(ocrStatus(err), types.OCRResponse{Error: err.Error()})
		return
	}

	c.JSON(http.StatusOK, types.OCRResponse{Success: true, Data: result})
}

// ocrStatus sorts recognition failures into client mistakes, a missing
// or unloadable model, and everything else.
func ocrStatus(err error) int {
	switch {
	case errors.Is(err, recognition.ErrInvalidImage),
		errors.Is(err, recognition.ErrInvalidPrompt),
		errors.Is(err, recognition.ErrPromptRejected),
		errors.Is(err, recognition.ErrNoImage):
		return http.StatusBadRequest
	case errors.Is(err, recognition.ErrEngineUnavailable),
		errors.Is(err, engine.ErrModelLoad):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
