package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/glyphworks/ocr-server/internal/app"
	"github.com/glyphworks/ocr-server/internal/ocr/engine"
	"github.com/glyphworks/ocr-server/internal/ocr/prompt"
	"github.com/glyphworks/ocr-server/internal/ocr/resolution"
)

// HealthCheck reports liveness plus the model lifecycle state so a load
// balancer can route around instances still warming up.
func HealthCheck(c *gin.Context) {
	app := c.MustGet("app").(*app.App)

	state := engine.StateUnloaded
	if eng := app.Engine(); eng != nil {
		state = eng.State()
	}

	c.JSON(http.StatusOK, gin.H{
		"status":      "ok",
		"model":       app.Config().Model.ID,
		"model_state": state,
		"timestamp":   time.Now().UTC().Format(time.RFC3339),
	})
}

func GetModelStatus(c *gin.Context) {
	app := c.MustGet("app").(*app.App)

	state := engine.StateUnloaded
	runtimeUp := false
	if eng := app.Engine(); eng != nil {
		state = eng.State()
		runtimeUp = true
	}

	c.JSON(http.StatusOK, gin.H{
		"model":             app.Config().Model.ID,
		"state":             state,
		"runtime_connected": runtimeUp,
	})
}

// LoadModel loads the model weights into the runtime. Loading is lazy
// otherwise; this endpoint lets operators warm an instance up front.
func LoadModel(c *gin.Context) {
	app := c.MustGet("app").(*app.App)

	eng := app.Engine()
	if eng == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"message": "model runtime is not available"})
		return
	}

	if err := eng.Load(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"message": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok", "state": eng.State()})
}

func UnloadModel(c *gin.Context) {
	app := c.MustGet("app").(*app.App)

	eng := app.Engine()
	if eng == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"message": "model runtime is not available"})
		return
	}

	if err := eng.Unload(c.Request.Context()); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok", "state": eng.State()})
}

// ListTasks enumerates the recognition tasks clients may request.
func ListTasks(c *gin.Context) {
	names := prompt.Tasks()

	tasks := make([]gin.H, 0, len(names))
	for _, task := range names {
		tasks = append(tasks, gin.H{
			"name":        task,
			"description": prompt.Describe(task),
		})
	}

	c.JSON(http.StatusOK, gin.H{"data": tasks})
}

// ListResolutionModes enumerates the supported resolution modes with
// their sizing parameters.
func ListResolutionModes(c *gin.Context) {
	all := resolution.Modes()

	out := make([]gin.H, 0, len(all))
	for _, mode := range all {
		out = append(out, gin.H{
			"name":        mode.Name,
			"description": mode.Description,
			"base_size":   mode.Params.BaseSize,
			"image_size":  mode.Params.ImageSize,
			"crop_mode":   mode.Params.CropMode,
		})
	}

	c.JSON(http.StatusOK, gin.H{"data": out})
}
