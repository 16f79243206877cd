package run

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/glyphworks/ocr-server/internal/app"
	"github.com/glyphworks/ocr-server/internal/config"
	"github.com/glyphworks/ocr-server/internal/runtime"
	"github.com/glyphworks/ocr-server/internal/server"
	"github.com/glyphworks/ocr-server/internal/services/model_downloader"
	"github.com/glyphworks/ocr-server/internal/services/recognition"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// readyTimeout bounds how long startup waits for an autostarted runtime to
// accept connections before giving up.
const readyTimeout = 2 * time.Minute

var Cmd = &cobra.Command{
	Use:   "run",
	Short: "Start the glyph OCR server",
	RunE:  runApp,
}

func init() {
	flags := Cmd.Flags()

	flags.Int("port", config.DefaultPort, "Port to run the server on")
	flags.String("host", "0.0.0.0", "Host to run the server on")
	flags.String("environment", "development", "Environment configuration")
	flags.Bool("disable-auth", false, "Disable authentication when receiving requests")
	flags.String("filesystem-type", "local", "Filesystem type: 'local' or 's3'")
	flags.String("public-dir", "", "Path where static files should be served from. Relative paths are relative to the current working directory, not the location of the glyph executable.")
	flags.String("model", config.DefaultModelID, "Model the runtime should serve")

	flags.String("db-driver", "sqlite", "Database driver: 'sqlite', 'libsql' or 'pg'")
	flags.String("db-dsn", "", "Database DSN (Connection URL or Path)")
	flags.String("pulsar-url", "", "URL of the pulsar broker. Example: pulsar+ssl://my-cluster.streamnative.cloud:6651")

	flags.Int("runtime-port", config.DefaultTcpPort, "TCP port the model runtime listens on")
	flags.Bool("runtime-autostart", false, "Launch the model runtime as a child process")
	flags.String("runtime-command", "", "Command used to launch the model runtime")

	flags.String("s3-access-key", "", "S3 access key")
	flags.String("s3-secret-key", "", "S3 secret key")
	flags.String("s3-region-name", "", "S3 region name")
	flags.String("s3-bucket-name", "", "S3 bucket name")
	flags.String("s3-folder", "", "S3 folder")
	flags.String("s3-public-url", "", "Public URL for S3 files")
	flags.String("s3-endpoint-url", "", "S3 endpoint URL")

	viper.BindPFlags(flags)

	// Keys that do not match their flag name verbatim.
	viper.BindPFlag("disable_auth", flags.Lookup("disable-auth"))
	viper.BindPFlag("filesystem_type", flags.Lookup("filesystem-type"))
	viper.BindPFlag("public_dir", flags.Lookup("public-dir"))
	viper.BindPFlag("model.id", flags.Lookup("model"))
	viper.BindPFlag("db.driver", flags.Lookup("db-driver"))
	viper.BindPFlag("db.dsn", flags.Lookup("db-dsn"))
	viper.BindPFlag("pulsar.url", flags.Lookup("pulsar-url"))
	viper.BindPFlag("runtime.tcp_port", flags.Lookup("runtime-port"))
	viper.BindPFlag("runtime.autostart", flags.Lookup("runtime-autostart"))
	viper.BindPFlag("runtime.command", flags.Lookup("runtime-command"))
	viper.BindPFlag("s3.access_key", flags.Lookup("s3-access-key"))
	viper.BindPFlag("s3.secret_key", flags.Lookup("s3-secret-key"))
	viper.BindPFlag("s3.region_name", flags.Lookup("s3-region-name"))
	viper.BindPFlag("s3.bucket_name", flags.Lookup("s3-bucket-name"))
	viper.BindPFlag("s3.folder", flags.Lookup("s3-folder"))
	viper.BindPFlag("s3.public_url", flags.Lookup("s3-public-url"))
	viper.BindPFlag("s3.endpoint_url", flags.Lookup("s3-endpoint-url"))

	bindEnvs()
}

func bindEnvs() {
	// Core settings (will use GLYPH_ prefix)
	// Example: GLYPH_PORT
	viper.BindEnv("port")
	viper.BindEnv("host")
	viper.BindEnv("environment")
	viper.BindEnv("disable_auth")
	viper.BindEnv("filesystem_type")
	viper.BindEnv("public_dir")
	viper.BindEnv("model.id")

	viper.BindEnv("db.driver")
	viper.BindEnv("db.dsn")
	viper.BindEnv("pulsar.url")

	viper.BindEnv("runtime.tcp_port")
	viper.BindEnv("runtime.autostart")
	viper.BindEnv("runtime.command")

	// S3 environment bindings (will automatically use GLYPH_ prefix)
	// example: GLYPH_S3_ACCESS_KEY
	viper.BindEnv("s3.access_key")
	viper.BindEnv("s3.secret_key")
	viper.BindEnv("s3.region_name")
	viper.BindEnv("s3.bucket_name")
	viper.BindEnv("s3.folder")
	viper.BindEnv("s3.public_url")
	viper.BindEnv("s3.endpoint_url")

	// External API services (does NOT use GLYPH_ prefix)
	viper.BindEnv("openai.api_key", "OPENAI_API_KEY")
	viper.BindEnv("hf_token", "HF_TOKEN")
}

func runApp(_ *cobra.Command, _ []string) error {
	cfg := config.MustGetConfig()

	errc := make(chan error, 3)
	signalc := make(chan os.Signal, 1)
	signal.Notify(signalc, os.Interrupt, syscall.SIGTERM)

	proc, err := startRuntime(cfg)
	if err != nil {
		return err
	}
	if proc != nil {
		defer proc.Stop()
	}

	glyphApp, err := createApp(cfg)
	if err != nil {
		return err
	}
	defer glyphApp.Close()

	ctx := glyphApp.Context()

	go func() {
		if err := warmupModel(glyphApp); err != nil {
			errc <- err
		}
	}()

	go func() {
		if err := recognition.RunProcessor(glyphApp); err != nil {
			errc <- err
		}
	}()

	srv, err := runServer(glyphApp, errc)
	if err != nil {
		return err
	}

	var procDone <-chan struct{}
	if proc != nil {
		procDone = proc.Done()
	}

	select {
	case err := <-errc:
		srv.Stop(ctx)
		return err
	case <-procDone:
		srv.Stop(ctx)
		if err := proc.Err(); err != nil {
			return fmt.Errorf("model runtime exited: %w", err)
		}

		return errors.New("model runtime exited before shutdown")
	case <-signalc:
		return srv.Stop(ctx)
	}
}

// startRuntime launches the Python sidecar when autostart is on and waits
// for it to accept connections, so the engine can dial it right away.
func startRuntime(cfg *config.Config) (*runtime.Process, error) {
	if !cfg.Runtime.Autostart {
		return nil, nil
	}

	proc, err := runtime.StartProcess(context.Background(), cfg)
	if err != nil {
		return nil, err
	}

	addr := fmt.Sprintf("127.0.0.1:%d", cfg.Runtime.TcpPort)
	if err := runtime.WaitReady(context.Background(), addr, readyTimeout); err != nil {
		proc.Stop()
		return nil, err
	}

	return proc, nil
}

func createApp(cfg *config.Config) (*app.App, error) {
	options := []app.OptionFunc{
		app.WithDBInitialization(),
		app.WithMQ(),
		app.WithFileUploader(),
		app.WithEngine(),
	}
	if cfg.OpenAI != nil && cfg.OpenAI.APIKey != "" {
		options = append(options, app.WithSafetyFilter())
	}

	return app.NewApp(cfg, options...)
}

// warmupModel makes sure the configured model's weights are on disk before
// the first request needs them.
func warmupModel(glyphApp *app.App) error {
	downloader, err := model_downloader.NewModelDownloaderManager(glyphApp.Config(), glyphApp.Logger)
	if err != nil {
		return err
	}

	if err := downloader.EnsureDownloaded(glyphApp.Config().Model.ID); err != nil {
		return fmt.Errorf("model warmup failed: %w", err)
	}

	return nil
}

func runServer(glyphApp *app.App, errc chan<- error) (*server.Server, error) {
	srv, err := server.NewServer(glyphApp.Config())
	if err != nil {
		return nil, err
	}

	srv.SetupRoutes(glyphApp)

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()

	return srv, nil
}
