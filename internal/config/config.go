package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/glyphworks/ocr-server/internal/templates"
	"github.com/glyphworks/ocr-server/internal/utils/pathutil"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	FilesystemLocal = "local"
	FilesystemS3    = "s3"
)

type Config struct {
	Port        int    `mapstructure:"port"`
	Host        string `mapstructure:"host"`
	Environment string `mapstructure:"environment"`
	HomeDir     string `mapstructure:"home_dir"`
	AssetsDir   string `mapstructure:"assets_dir"`
	ModelsDir   string `mapstructure:"models_dir"`
	TempDir     string `mapstructure:"temp_dir"`
	PublicDir   string `mapstructure:"public_dir"`
	Filesystem  string `mapstructure:"filesystem_type"`
	DisableAuth bool   `mapstructure:"disable_auth"`
	HFToken     string `mapstructure:"hf_token"`

	Model   ModelConfig   `mapstructure:"model"`
	Runtime RuntimeConfig `mapstructure:"runtime"`
	DB      DBConfig      `mapstructure:"db"`
	S3      *S3Config     `mapstructure:"s3"`
	Pulsar  *PulsarConfig `mapstructure:"pulsar"`
	OpenAI  *OpenAIConfig `mapstructure:"openai"`
}

type ModelConfig struct {
	ID string `mapstructure:"id"`
}

// RuntimeConfig describes how to reach (and optionally supervise) the
// Python inference runtime that glyph talks to over TCP.
type RuntimeConfig struct {
	TcpPort   int    `mapstructure:"tcp_port"`
	Timeout   int    `mapstructure:"timeout"`
	Autostart bool   `mapstructure:"autostart"`
	Command   string `mapstructure:"command"`
}

type DBConfig struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

type S3Config struct {
	Folder      string `mapstructure:"folder"`
	Region      string `mapstructure:"region_name"`
	Bucket      string `mapstructure:"bucket_name"`
	AccessKey   string `mapstructure:"access_key"`
	SecretKey   string `mapstructure:"secret_key"`
	PublicUrl   string `mapstructure:"public_url"`
	EndpointUrl string `mapstructure:"endpoint_url"`
}

type PulsarConfig struct {
	URL string `mapstructure:"url"`
}

type OpenAIConfig struct {
	APIKey string `mapstructure:"api_key"`
}

var config *Config

// LoadEnvAndConfigFiles resolves the glyph home directory, writes starter
// .env and config.yaml files on first run, loads both, and unmarshals the
// merged settings into the package-level config.
func LoadEnvAndConfigFiles() error {
	homeDir, err := getHomeDir()
	if err != nil {
		return err
	}

	if err := createHomeDirs(homeDir); err != nil {
		return err
	}

	assetsDir, err := getSubDir(homeDir, "assets_dir", "assets")
	if err != nil {
		return err
	}

	modelsDir, err := getSubDir(homeDir, "models_dir", "models")
	if err != nil {
		return err
	}

	tempDir, err := getSubDir(homeDir, "temp_dir", "temp")
	if err != nil {
		return err
	}

	viper.Set("home_dir", homeDir)
	viper.Set("assets_dir", assetsDir)
	viper.Set("models_dir", modelsDir)
	viper.Set("temp_dir", tempDir)

	setDefaults(homeDir)

	envFile := viper.GetString("env_file")
	if envFile == "" {
		envFile = filepath.Join(homeDir, ".env")
	}

	configFile := viper.GetString("config_file")
	if configFile == "" {
		configFile = filepath.Join(homeDir, "config.yaml")
	}

	if _, err := os.Stat(envFile); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to stat .env file: %w", err)
		}

		if err := templates.WriteEnv(envFile); err != nil {
			return fmt.Errorf("failed to create .env file: %w", err)
		}
	}

	if err := godotenv.Load(envFile); err != nil {
		return fmt.Errorf("failed to load env file: %w", err)
	}

	if _, err := os.Stat(configFile); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to stat config file: %w", err)
		}

		if err := templates.WriteConfig(configFile); err != nil {
			return fmt.Errorf("failed to create config file: %w", err)
		}
	}

	// Honor the conventional unprefixed variables for external services.
	viper.BindEnv("hf_token", "HF_TOKEN")
	viper.BindEnv("openai.api_key", "OPENAI_API_KEY")

	viper.SetConfigFile(configFile)
	return loadConfig()
}

func loadConfig() error {
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			return fmt.Errorf("error reading config: %w", err)
		}
	}

	config = &Config{}
	if err := viper.Unmarshal(config); err != nil {
		return fmt.Errorf("error unmarshalling config: %w", err)
	}

	return nil
}

func setDefaults(homeDir string) {
	viper.SetDefault("port", DefaultPort)
	viper.SetDefault("host", "0.0.0.0")
	viper.SetDefault("environment", "development")
	viper.SetDefault("public_dir", "./web")
	viper.SetDefault("filesystem_type", FilesystemLocal)
	viper.SetDefault("model.id", DefaultModelID)
	viper.SetDefault("runtime.tcp_port", DefaultTcpPort)
	viper.SetDefault("runtime.timeout", DefaultRuntimeTimeout)
	viper.SetDefault("db.driver", "sqlite")
	viper.SetDefault("db.dsn", "file:"+filepath.Join(homeDir, "data", "glyph.db"))
}

// GetConfig returns the loaded config, or nil if LoadEnvAndConfigFiles has
// not run yet.
func GetConfig() *Config {
	return config
}

func MustGetConfig() *Config {
	if config == nil {
		panic("config accessed before it was loaded")
	}

	return config
}

// Returns the glyph home directory path. It is resolved from the following
// sources in order:
// 1. The `home_dir` flag from viper.
// 2. The `GLYPH_HOME` environment variable.
// 3. The default home directory.
func getHomeDir() (string, error) {
	homeDir := viper.GetString("home_dir")
	if homeDir == "" {
		homeDir = os.Getenv("GLYPH_HOME")
		if homeDir == "" {
			homeDir = DefaultHomeDir
		}
	}

	homeDir, err := pathutil.ExpandPath(homeDir)
	if err != nil {
		return "", fmt.Errorf("failed to expand home path: %w", err)
	}

	return homeDir, nil
}

func getSubDir(homeDir string, key string, name string) (string, error) {
	if homeDir == "" {
		return "", ErrHomeDirNotSet
	}

	dir := viper.GetString(key)
	if dir == "" {
		dir = filepath.Join(homeDir, name)
	}

	dir, err := pathutil.ExpandPath(dir)
	if err != nil {
		return "", ErrHomeDirExpandFailed
	}

	return dir, nil
}

func createHomeDirs(homeDir string) error {
	if err := os.MkdirAll(homeDir, os.ModePerm); err != nil {
		return fmt.Errorf("failed to create home directory: %w", err)
	}

	for _, subdir := range []string{"assets", "models", "temp", "data"} {
		dir := filepath.Join(homeDir, subdir)
		if err := os.MkdirAll(dir, os.ModePerm); err != nil {
			return fmt.Errorf("failed to create %s directory: %w", subdir, err)
		}
	}

	return nil
}
