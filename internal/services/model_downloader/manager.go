package model_downloader

import (
	"fmt"

	"github.com/cozy-creator/hf-hub/hub"
	"go.uber.org/zap"

	"github.com/glyphworks/ocr-server/internal/config"
)

// ModelDownloaderManager fetches OCR model weights into the models dir
// and answers whether they are already present. It understands hub repo
// ids, direct URLs and local files.
type ModelDownloaderManager struct {
	hubClient *hub.Client
	modelsDir string
	hfToken   string
	logger    *zap.Logger
}

func NewModelDownloaderManager(cfg *config.Config, logger *zap.Logger) (*ModelDownloaderManager, error) {
	hubClient := hub.DefaultClient()
	if cfg.ModelsDir != "" {
		hubClient.CacheDir = cfg.ModelsDir
	}

	return &ModelDownloaderManager{
		hubClient: hubClient,
		modelsDir: cfg.ModelsDir,
		hfToken:   cfg.HFToken,
		logger:    logger.Named("model_downloader"),
	}, nil
}

// EnsureDownloaded downloads the model unless its weights are already
// complete on disk.
func (m *ModelDownloaderManager) EnsureDownloaded(model string) error {
	downloaded, err := m.IsDownloaded(model)
	if err != nil {
		return fmt.Errorf("failed to check if model %s is downloaded: %w", model, err)
	}

	if downloaded {
		m.logger.Info("Model already downloaded", zap.String("model", model))
		return nil
	}

	m.logger.Info("Downloading model", zap.String("model", model))
	if err := m.Download(model); err != nil {
		return fmt.Errorf("failed to download model %s: %w", model, err)
	}

	return nil
}

func (m *ModelDownloaderManager) Download(model string) error {
	source, err := ParseModelSource(model)
	if err != nil {
		return fmt.Errorf("failed to parse model source: %w", err)
	}

	switch source.Type {
	case SourceTypeHuggingface:
		return m.downloadHuggingFace(source.Location)
	case SourceTypeDirect:
		return m.downloadDirect(source)
	case SourceTypeFile:
		return m.verifyLocalFile(source.Location)
	default:
		return fmt.Errorf("unsupported source type: %s", source.Type)
	}
}

func (m *ModelDownloaderManager) IsDownloaded(model string) (bool, error) {
	source, err := ParseModelSource(model)
	if err != nil {
		return false, fmt.Errorf("failed to parse model source: %w", err)
	}

	switch source.Type {
	case SourceTypeHuggingface:
		return isRepoDownloaded(m.hubClient, source.Location), nil
	case SourceTypeFile:
		return m.verifyFile(source.Location) == nil, nil
	case SourceTypeDirect:
		return m.isAnyValidModelInDir(m.cachePathFor(source)), nil
	default:
		return false, fmt.Errorf("unsupported source type: %s", source.Type)
	}
}
