// Package cmd implements the CLI commands using the cobra framework.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"otus.dev/agent/internal/config"
	"otus.dev/agent/internal/log"
	"otus.dev/agent/internal/wire/schema"
)

// schemaPath is the protocol schema file, shared by every subcommand that
// needs to decode or encode messages. Falls back to the config file's
// "schema" key when left empty on the command line.
var schemaPath string

// configPath is the optional YAML configuration file (§ ambient config).
var configPath string

// loadedConfig is populated by rootCmd's PersistentPreRunE before any
// subcommand runs, and supplies the logging settings and the fallback
// schema path; subcommand settings come from their own flags.
var loadedConfig *config.GlobalConfig

// loadedSchema is populated by rootCmd's PersistentPreRunE once the schema
// flag has been parsed, so subcommands can assume it's ready.
var loadedSchema *schema.Schema

// rootCmd is the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "otus",
	Short: "Capture, decode, and replay a declaratively-schema'd TCP protocol",
	Long: `otus captures live TCP traffic for a schema-described binary protocol, decodes
it into structured messages, and can later replay a captured log back against
a target host at the original (or rescaled) pace.`,
	Version: "0.1.0",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		loadedConfig = cfg
		initLogger(cfg)

		if cmd.Name() == "validate" {
			return nil
		}
		if schemaPath == "" {
			schemaPath = cfg.Schema
		}
		if schemaPath == "" {
			return fmt.Errorf("a protocol schema is required (-p/--protocol)")
		}
		s, err := schema.Load(schemaPath)
		if err != nil {
			return fmt.Errorf("failed to load schema %s: %w", schemaPath, err)
		}
		loadedSchema = s
		return nil
	},
}

// Execute adds all child commands to the root command and runs it. Called
// once by main.main().
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&schemaPath, "protocol", "p", "",
		"protocol schema file (JSON)")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "",
		"configuration file (YAML)")

	rootCmd.AddCommand(captureCmd)
	rootCmd.AddCommand(replayCmd)
	rootCmd.AddCommand(validateCmd)
}

func initLogger(cfg *config.GlobalConfig) {
	logCfg := &log.LoggerConfig{
		Pattern: cfg.Log.Pattern,
		Time:    cfg.Log.Time,
		Level:   cfg.Log.Level,
	}
	if cfg.Log.File != "" {
		logCfg.File = &log.FileAppenderOpt{
			Filename:   cfg.Log.File,
			MaxSize:    100,
			MaxBackups: 5,
			MaxAge:     28,
			Compress:   true,
		}
	}
	log.Init(logCfg)
}

func exitWithError(msg string, err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s: %v\n", msg, err)
	} else {
		fmt.Fprintf(os.Stderr, "Error: %s\n", msg)
	}
	os.Exit(1)
}
