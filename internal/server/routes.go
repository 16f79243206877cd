package server

import (
	"github.com/glyphworks/ocr-server/internal/api"
	"github.com/glyphworks/ocr-server/internal/api/middleware"
	"github.com/glyphworks/ocr-server/internal/app"
	"github.com/gin-gonic/gin"
)

func (s *Server) SetupRoutes(app *app.App) {
	// Health check endpoint
	s.ginEngine.GET("/healthz", handlerWrapper(app, api.HealthCheck))

	// Not an API, just a simple file server endpoint
	s.ginEngine.GET("/file/:filename", handlerWrapper(app, api.GetFile))

	apiV1 := s.ginEngine.Group("/api/v1")

	// Authentication middleware
	apiV1.Use(handlerWrapper(app, middleware.AuthenticationMiddleware))

	apiV1.GET("/tasks", handlerWrapper(app, api.ListTasks))
	apiV1.GET("/resolutions", handlerWrapper(app, api.ListResolutionModes))

	apiV1.GET("/model", handlerWrapper(app, api.GetModelStatus))
	apiV1.POST("/model/load", handlerWrapper(app, api.LoadModel))
	apiV1.POST("/model/unload", handlerWrapper(app, api.UnloadModel))

	apiV1.POST("/ocr", handlerWrapper(app, api.RecognizeImage))
	apiV1.POST("/ocr/base64", handlerWrapper(app, api.RecognizeBase64))

	apiV1.POST("/upload", handlerWrapper(app, api.UploadFile))

	apiV1.GET("/documents/:id", handlerWrapper(app, api.GetDocument))
	apiV1.GET("/documents/:id/html", handlerWrapper(app, api.GetDocumentHTML))

	apiV1.POST("/jobs", handlerWrapper(app, api.SubmitJob))
	apiV1.GET("/jobs/:id", handlerWrapper(app, api.GetJob))
	apiV1.GET("/jobs/:id/status", handlerWrapper(app, api.GetJobStatus))
	apiV1.GET("/jobs/:id/stream", handlerWrapper(app, api.StreamJob))
}

func handlerWrapper(app *app.App, f func(c *gin.Context)) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		ctx.Set("app", app)
		f(ctx)
	}
}
