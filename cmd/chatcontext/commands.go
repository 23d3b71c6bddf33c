package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dshills/chatcontext-mcp/internal/config"
	"github.com/dshills/chatcontext-mcp/internal/logging"
	"github.com/dshills/chatcontext-mcp/internal/storage"
)

var errNoFiles = errors.New("no chat logs given: pass file paths or set data.files in the config")

// app carries what every subcommand needs once flags are parsed
type app struct {
	configPath string
	logLevel   string

	config *config.Config
	logger *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "chatcontext",
		Short: "Search and summarize team chat logs over MCP",
		Long: `chatcontext indexes exported team chat logs into overlapping time windows,
embeds them for semantic search and serves them to AI assistants over the
Model Context Protocol.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"chatcontext MCP Server\nVersion: {{.Version}}\nBuild Time: %s\nBuild Mode: %s\nSQLite Driver: %s\n",
		buildTime, storage.BuildMode, storage.DriverName))

	rootCmd.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "path to a YAML config file")
	rootCmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "override the configured log level")

	rootCmd.AddCommand(
		newServeCmd(a),
		newAnalyzeCmd(a),
		newCultureCmd(a),
		newAskCmd(a),
		newSamplesCmd(a),
	)
	return rootCmd
}

// load reads the config and builds the logger
func (a *app) load() error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		if !logging.ValidLevel(a.logLevel) {
			return fmt.Errorf("invalid --log-level %q", a.logLevel)
		}
		cfg.Log.Level = a.logLevel
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}

	a.config = cfg
	a.logger = logger
	return nil
}

// files returns args, or the configured data files when no args were given
func (a *app) files(args []string) ([]string, error) {
	if len(args) > 0 {
		return args, nil
	}
	if len(a.config.Data.Files) > 0 {
		return a.config.Data.Files, nil
	}
	return nil, errNoFiles
}
