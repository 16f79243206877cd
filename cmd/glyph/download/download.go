package download

import (
	"fmt"

	"github.com/glyphworks/ocr-server/internal/config"
	"github.com/glyphworks/ocr-server/internal/services/model_downloader"
	"github.com/glyphworks/ocr-server/pkg/logger"

	"github.com/spf13/cobra"
)

var Cmd = &cobra.Command{
	Use:   "download [model]",
	Short: "Download model weights into the models directory",
	Long: "Download model weights into the models directory. The model may be a " +
		"Hugging Face repo id, a direct URL or a local file path; it defaults to " +
		"the configured model id.",
	Args: cobra.MaximumNArgs(1),
	RunE: runDownload,
}

func runDownload(cmd *cobra.Command, args []string) error {
	cfg := config.MustGetConfig()

	model := cfg.Model.ID
	if len(args) > 0 {
		model = args[0]
	}
	if model == "" {
		return fmt.Errorf("no model specified and no model id configured")
	}

	log, err := logger.NewLogger(cfg)
	if err != nil {
		return err
	}

	manager, err := model_downloader.NewModelDownloaderManager(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to initialize model downloader: %w", err)
	}

	if err := manager.EnsureDownloaded(model); err != nil {
		return err
	}

	fmt.Printf("model %s is ready in %s\n", model, cfg.ModelsDir)
	return nil
}
