package api

import (
	"bytes"
	"database/sql"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/glyphworks/ocr-server/internal/app"
	"github.com/glyphworks/ocr-server/internal/db/models"
	"github.com/google/uuid"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// markdown renders recognized text for the HTML endpoint. The model
// emits GitHub flavored tables, so GFM stays on.
var markdown = goldmark.New(
	goldmark.WithExtensions(
		extension.GFM,
	),
)

type DocumentResponse struct {
	ID             string    `json:"id"`
	JobID          string    `json:"job_id,omitempty"`
	Filename       string    `json:"filename,omitempty"`
	Task           string    `json:"task"`
	ResolutionMode string    `json:"resolution_mode"`
	Text           string    `json:"text,omitempty"`
	HasGrounding   bool      `json:"has_grounding"`
	BoxCount       int       `json:"box_count"`
	InferenceTime  float64   `json:"inference_time"`
	NumTokens      int       `json:"num_tokens"`
	TextURL        string    `json:"text_url,omitempty"`
	OverlayURL     string    `json:"overlay_url,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

func GetDocument(c *gin.Context) {
	doc, ok := lookupDocument(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": toDocumentResponse(doc)})
}

// GetDocumentHTML serves the recognized markdown rendered as HTML, for
// previewing a document in a browser.
func GetDocumentHTML(c *gin.Context) {
	doc, ok := lookupDocument(c)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := markdown.Convert([]byte(doc.CleanText), &buf); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "failed to render document"})
		return
	}

	c.Data(http.StatusOK, "text/html; charset=utf-8", buf.Bytes())
}

func lookupDocument(c *gin.Context) (*models.Document, bool) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid document id"})
		return nil, false
	}

	app := c.MustGet("app").(*app.App)
	doc, err := app.DocumentRepository.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"message": "document not found"})
			return nil, false
		}

		c.JSON(http.StatusInternalServerError, gin.H{"message": err.Error()})
		return nil, false
	}

	return doc, true
}

func toDocumentResponse(doc *models.Document) DocumentResponse {
	resp := DocumentResponse{
		ID:             doc.ID.String(),
		Filename:       doc.Filename,
		Task:           doc.Task,
		ResolutionMode: doc.ResolutionMode,
		Text:           doc.CleanText,
		HasGrounding:   doc.HasGrounding,
		BoxCount:       doc.BoxCount,
		InferenceTime:  doc.InferenceTime,
		NumTokens:      doc.NumTokens,
		TextURL:        doc.TextURL,
		OverlayURL:     doc.OverlayURL,
		CreatedAt:      doc.CreatedAt.Time,
	}
	if doc.JobID != uuid.Nil {
		resp.JobID = doc.JobID.String()
	}

	return resp
}
