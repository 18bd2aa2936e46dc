package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/teemow/inboxassist/internal/app"
	"github.com/teemow/inboxassist/internal/config"
	"github.com/teemow/inboxassist/internal/logging"
)

// globalFlags are the persistent flags of the root command.
type globalFlags struct {
	configPath string
	debug      bool
}

var globals globalFlags

// rootCmd represents the base command for the inboxassist application
var rootCmd = &cobra.Command{
	Use:   "inboxassist",
	Short: "LLM assistant for emails and appointments",
	Long: `inboxassist runs language model actions against an email or appointment:
analysis, summaries, replies, translations, calendar extraction and custom
prompts. Generated replies are put into a reply draft instead of being sent.

Items come from .eml files, an IMAP mailbox, Gmail or Google Calendar.

It can run as:
  - A command line tool
  - An MCP (Model Context Protocol) server for AI assistants`,
	SilenceUsage: true,
}

// version will be set by main
var version = "dev"

// SetVersion sets the version for the root command
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// Execute is the main entry point for the CLI application
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "inboxassist version %s\n" .Version}}`)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	cancel()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&globals.configPath, "config", "", "Config file (default: "+config.DefaultPath()+")")
	rootCmd.PersistentFlags().BoolVar(&globals.debug, "debug", false, "Enable debug logging, including inference request diagnostics")

	for _, c := range newActionCmds() {
		rootCmd.AddCommand(c)
	}
	rootCmd.AddCommand(newReplyCmd())
	rootCmd.AddCommand(newModelsCmd())
	rootCmd.AddCommand(newModelInfoCmd())
	rootCmd.AddCommand(newHealthCmd())
	rootCmd.AddCommand(newGenerateCmd())
	rootCmd.AddCommand(newAuthCmd())
	rootCmd.AddCommand(newCredentialCmd())
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newGenerateDocsCmd())
	rootCmd.AddCommand(newVersionCmd())
}

// loadConfig reads the configuration named by --config and applies the
// global flags and mutators to it.
func loadConfig(mutators ...func(*config.Config)) (*config.Config, error) {
	cfg, err := config.Load(globals.configPath)
	if err != nil {
		return nil, err
	}
	if globals.debug {
		cfg.Server.Debug = true
	}
	for _, m := range mutators {
		m(cfg)
	}
	return cfg, nil
}

// newApp loads the configuration and builds the application context. The
// caller closes the returned App.
func newApp(cmd *cobra.Command, opts []app.Option, mutators ...func(*config.Config)) (*app.App, error) {
	cfg, err := loadConfig(mutators...)
	if err != nil {
		return nil, err
	}

	logger := logging.NewCLILogger(cmd.ErrOrStderr(), cfg.Server.Debug)
	slog.SetDefault(logger)
	if cfg.File != "" {
		logger.Debug("configuration loaded", slog.String("file", cfg.File))
	}

	a, err := app.New(cmd.Context(), cfg, append([]app.Option{app.WithLogger(logger)}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize: %w", err)
	}
	return a, nil
}

// closeApp shuts a down, logging instead of failing the command.
func closeApp(a *app.App) {
	if err := a.Close(context.Background()); err != nil {
		a.Logger.Warn("shutdown failed", logging.Err(err))
	}
}
