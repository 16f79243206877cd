package cmd

import (
	"fmt"
	"os"
	"strings"

	// Subcommands
	apikey "github.com/glyphworks/ocr-server/cmd/glyph/apikey"
	db "github.com/glyphworks/ocr-server/cmd/glyph/db"
	download "github.com/glyphworks/ocr-server/cmd/glyph/download"
	run "github.com/glyphworks/ocr-server/cmd/glyph/run"
	"github.com/glyphworks/ocr-server/internal/config"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const glyphPrefix = "GLYPH"

var Cmd = &cobra.Command{
	Use:   "glyph",
	Short: "Glyphworks OCR server CLI",
	Long:  "A self-hosted OCR service that turns document images into grounded markdown with the DeepSeek-OCR model",

	// Runs before this command and any subcommands
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Set global viper options
		viper.SetEnvPrefix(glyphPrefix)
		viper.SetEnvKeyReplacer(strings.NewReplacer(
			`-`, `_`, // convert hyphens to underscores
			`.`, `_`, // convert dots to underscores
		))
		viper.AutomaticEnv()

		// Bind all flags from the current command and persistent parent flags
		if err := viper.BindPFlags(cmd.Flags()); err != nil {
			return err
		}

		if err := viper.BindPFlags(cmd.PersistentFlags()); err != nil {
			return err
		}

		// Load config and env files
		return config.LoadEnvAndConfigFiles()
	},
}

func Execute() {
	if err := Cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	pflags := Cmd.PersistentFlags()

	pflags.String("glyph-home", "", "Path to the glyph home directory")
	pflags.String("config-file", "", "Path to the config file")
	pflags.String("env-file", "", "Path to the env file")

	// Bind flags to viper
	viper.BindPFlag("home_dir", pflags.Lookup("glyph-home"))
	viper.BindPFlag("config_file", pflags.Lookup("config-file"))
	viper.BindPFlag("env_file", pflags.Lookup("env-file"))

	// Add subcommands
	Cmd.AddCommand(run.Cmd, download.Cmd, db.Cmd, apikey.Cmd)
	Cmd.CompletionOptions.HiddenDefaultCmd = true
}
