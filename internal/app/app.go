package app

import (
	"context"
	"fmt"
	"time"

	"github.com/uptrace/bun"
	"go.uber.org/zap"

	"github.com/glyphworks/ocr-server/internal/config"
	"github.com/glyphworks/ocr-server/internal/db"
	"github.com/glyphworks/ocr-server/internal/db/drivers"
	"github.com/glyphworks/ocr-server/internal/db/repository"
	"github.com/glyphworks/ocr-server/internal/mq"
	"github.com/glyphworks/ocr-server/internal/ocr/engine"
	"github.com/glyphworks/ocr-server/internal/runtime"
	"github.com/glyphworks/ocr-server/internal/services/filestorage"
	"github.com/glyphworks/ocr-server/internal/services/fileuploader"
	"github.com/glyphworks/ocr-server/internal/services/promptfilter"
	"github.com/glyphworks/ocr-server/pkg/logger"
	"github.com/glyphworks/ocr-server/pkg/tcpclient"
)

// The model runtime is a local sidecar; it is never dialed across hosts.
const runtimeHost = "127.0.0.1"

type App struct {
	mq           mq.MQ
	db           *bun.DB
	config       *config.Config
	ctx          context.Context
	cancelFunc   context.CancelFunc
	fileuploader *fileuploader.Uploader
	engine       *engine.Engine
	runtime      *runtime.Client

	SafetyFilter *promptfilter.SafetyFilter
	Logger       *zap.Logger

	APIKeyRepository   repository.IAPIKeyRepository
	EventRepository    repository.IEventRepository
	DocumentRepository repository.IDocumentRepository
	JobRepository      repository.IJobRepository
}

// Option funcs used to initialize the App struct
type OptionFunc func(app *App) error

func WithDB(driver drivers.Driver) OptionFunc {
	return func(app *App) error {
		app.db = driver.GetDB()
		return nil
	}
}

func WithLogger(logger *zap.Logger) OptionFunc {
	return func(app *App) error {
		app.Logger = logger
		return nil
	}
}

func WithMQ() OptionFunc {
	return func(app *App) error {
		mq, err := mq.NewMQ(app.config)
		if err != nil {
			return err
		}
		app.mq = mq
		return nil
	}
}

func WithDBInitialization() OptionFunc {
	return func(app *App) error {
		dbConn, err := db.NewConnection(app.ctx, app.config)
		if err != nil {
			return err
		}
		app.db = dbConn.GetDB()

		if err := db.CreateTables(app.ctx, app.db); err != nil {
			return err
		}

		app.APIKeyRepository = repository.NewAPIKeyRepository(app.db)
		app.EventRepository = repository.NewEventRepository(app.db)
		app.DocumentRepository = repository.NewDocumentRepository(app.db)
		app.JobRepository = repository.NewJobRepository(app.db)

		return nil
	}
}

func WithFileUploader() OptionFunc {
	return func(app *App) error {
		filestorage, err := filestorage.NewFileStorage(app.Config())
		if err != nil {
			return err
		}
		app.fileuploader = fileuploader.NewFileUploader(filestorage, 10)
		return nil
	}
}

func WithSafetyFilter() OptionFunc {
	return func(app *App) error {
		if app.config.OpenAI == nil || app.config.OpenAI.APIKey == "" {
			return fmt.Errorf("openAI API key is not set. Cannot enable safety filter")
		}

		filter, err := promptfilter.NewSafetyFilter(app.config.OpenAI.APIKey)
		if err != nil {
			return err
		}

		app.SafetyFilter = filter
		return nil
	}
}

// WithEngineRuntime wires the inference engine on top of a caller-supplied
// runtime instead of dialing the TCP sidecar.
func WithEngineRuntime(rt engine.Runtime) OptionFunc {
	return func(app *App) error {
		app.engine = engine.NewEngine(rt, app.config.TempDir)
		return nil
	}
}

// WithEngine dials the model runtime and wires the inference engine on
// top of it. The runtime must already be listening; run starts it first
// when runtime.autostart is set.
func WithEngine() OptionFunc {
	return func(app *App) error {
		cfg := app.config

		addr := fmt.Sprintf("%s:%d", runtimeHost, cfg.Runtime.TcpPort)
		timeout := time.Duration(cfg.Runtime.Timeout) * time.Second

		tcp, err := tcpclient.NewTCPClient(addr, timeout, 1,
			tcpclient.WithLogger(app.Logger.Named("tcpclient")))
		if err != nil {
			return fmt.Errorf("failed to connect to model runtime at %s: %w", addr, err)
		}

		app.runtime = runtime.NewClient(tcp, cfg.Model.ID)
		app.engine = engine.NewEngine(app.runtime, cfg.TempDir)

		return nil
	}
}

func NewApp(config *config.Config, options ...OptionFunc) (*App, error) {
	log, err := logger.InitLogger(config)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())

	app := &App{
		ctx:        ctx,
		config:     config,
		Logger:     log,
		cancelFunc: cancel,
	}

	// Apply all options
	for _, opt := range options {
		if err := opt(app); err != nil {
			// Continue even if some options fail
			app.Logger.Error("failed to apply option", zap.Error(err))
		}
	}

	return app, nil
}

func (app *App) Close() {
	app.cancelFunc()

	if app.fileuploader != nil {
		app.fileuploader.Stop()
	}

	if app.mq != nil {
		app.mq.Close()
	}

	if app.runtime != nil {
		app.runtime.Close()
	}

	app.Logger.Sync()
}

func (app *App) Config() *config.Config {
	return app.config
}

func (app *App) Context() context.Context {
	return app.ctx
}

func (app *App) MQ() mq.MQ {
	return app.mq
}

func (app *App) DB() *bun.DB {
	return app.db
}

func (app *App) Uploader() *fileuploader.Uploader {
	return app.fileuploader
}

// Engine returns the inference engine, or nil when the model runtime
// was unreachable at startup.
func (app *App) Engine() *engine.Engine {
	return app.engine
}
