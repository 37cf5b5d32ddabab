// Package cli wires configuration, logging and the chat UI behind cobra
// commands.
package cli

import (
	"database/sql"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"ollamachat/internal/config"
	"ollamachat/internal/db"
	"ollamachat/internal/directory"
	"ollamachat/internal/logging"
	"ollamachat/internal/models"
	"ollamachat/internal/session"
	"ollamachat/internal/socket"
	"ollamachat/internal/ui"
)

// Version is set at build time with -ldflags "-X ollamachat/internal/cli.Version=...".
var Version = "dev"

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "ollamachat",
	Short: "Terminal chat client for a local Ollama bridge",
	Long: `ollamachat talks to a local chat bridge: it lists the installed models,
opens a websocket to the one you pick and renders streamed replies as
markdown.

Configuration is read from, in increasing priority:
  1. built-in defaults
  2. ./ollamachat.yaml or <user config dir>/ollamachat/ollamachat.yaml
     (or the file given with --config)
  3. OLLAMACHAT_* environment variables, e.g. OLLAMACHAT_SERVER_URL
  4. command line flags`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runChat,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ./ollamachat.yaml)")
	rootCmd.PersistentFlags().String("server", "", "bridge base URL (default http://localhost:8000)")
	rootCmd.PersistentFlags().String("log-level", "", "log level: trace, debug, info, warn, error, disabled")
	rootCmd.PersistentFlags().String("log-file", "", "log file path")
	rootCmd.PersistentFlags().String("archive", "", "sqlite file for the local transcript archive, \"default\" for the user config dir (disabled when empty)")

	rootCmd.Flags().String("model", "", "model to select at startup")
	rootCmd.Flags().String("style", "", "markdown style: auto, dark, light, notty or a glamour JSON path")

	rootCmd.AddCommand(modelsCmd)
	rootCmd.AddCommand(transcriptCmd)
	rootCmd.AddCommand(versionCmd)
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// setup loads configuration and opens the log file for cmd.
func setup(cmd *cobra.Command) (*config.Config, zerolog.Logger, io.Closer, error) {
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return nil, zerolog.Nop(), nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, closer, err := logging.New(cfg.Log.File, cfg.Log.Level)
	if err != nil {
		return nil, zerolog.Nop(), nil, err
	}
	logger.Info().
		Str("command", cmd.Name()).
		Str("server", cfg.Server.URL).
		Str("version", Version).
		Msg("Starting")
	return cfg, logger, closer, nil
}

func newDirectory(cfg *config.Config, logger zerolog.Logger) *directory.Client {
	return directory.New(cfg.Server.URL,
		directory.WithTimeout(cfg.Server.Timeout),
		directory.WithLogger(logger),
	)
}

func openArchive(cfg *config.Config) (*sql.DB, error) {
	if !cfg.Archive.Enabled() {
		return nil, nil
	}
	return db.Open(cfg.Archive.Path)
}

func runChat(cmd *cobra.Command, args []string) error {
	cfg, logger, closer, err := setup(cmd)
	if err != nil {
		return err
	}
	defer closer.Close()

	archive, err := openArchive(cfg)
	if err != nil {
		return fmt.Errorf("failed to open transcript archive: %w", err)
	}

	dialer := socket.NewDialer(logger)
	dialer.HandshakeTimeout = cfg.Server.Timeout

	p, m := ui.NewProgram(ui.Config{
		Directory:   newDirectory(cfg, logger),
		Dialer:      session.NewSocketDialer(cfg.Server.URL, dialer),
		Archive:     archive,
		Logger:      logger,
		RenderStyle: cfg.Render.Style,
		ServerURL:   cfg.Server.URL,
		Model:       models.ModelID(cfg.Model),
	})
	defer func() {
		if err := m.Close(); err != nil {
			logger.Warn().Err(err).Msg("Close failed")
		}
	}()

	if _, err := p.Run(); err != nil {
		logger.Error().Err(err).Msg("Program exited with error")
		return err
	}
	logger.Info().Msg("Exiting")
	return nil
}
