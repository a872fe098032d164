package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/adalundhe/voiceguard/core/config"
	"github.com/adalundhe/voiceguard/core/storage"
)

var (
	logLevel  string
	logFormat string
	verbose   bool

	appConfig *config.Config
	logger    = slog.Default()
)

var rootCmd = &cobra.Command{
	Use:   "voiceguard",
	Short: "VoiceGuard - 보이스피싱 예방 훈련",
	Long: `VoiceGuard is a voice-phishing prevention trainer. A role-play agent
acts as the scammer, every reply is checked for leaked personal
information and a guardian agent steps in when something dangerous was
said.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format (text, json)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "shorthand for --log-level debug")
}

func Execute() error {
	return rootCmd.Execute()
}

// setup loads the layered configuration. applyConfig subscribes to the
// manager so every load republishes the config and the logger.
func setup(cmd *cobra.Command, _ []string) error {
	dirs, err := storage.ResolveDirs()
	if err != nil {
		return fmt.Errorf("resolving directories: %w", err)
	}
	mgr := config.NewManager(dirs)

	var applyErr error
	mgr.OnChange(func(cfg *config.Config) {
		applyErr = applyConfig(cmd.ErrOrStderr(), cfg)
	})
	if err := mgr.Load(); err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	return applyErr
}

// applyConfig installs cfg and a logger built from its log section.
// Command-line flags override the file.
func applyConfig(w io.Writer, cfg *config.Config) error {
	level := cfg.Log.Level
	if logLevel != "" {
		level = logLevel
	}
	if verbose {
		level = "debug"
	}
	format := cfg.Log.Format
	if logFormat != "" {
		format = logFormat
	}

	l, err := newLogger(w, level, format)
	if err != nil {
		return err
	}
	appConfig = cfg
	logger = l
	slog.SetDefault(l)
	return nil
}

func newLogger(w io.Writer, level, format string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.ToLower(level))); err != nil {
		return nil, fmt.Errorf("invalid log level %q", level)
	}
	opts := &slog.HandlerOptions{Level: lvl}

	switch strings.ToLower(format) {
	case "", "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("invalid log format %q (valid: text, json)", format)
	}
}

// currentConfig is the loaded configuration, or the defaults when a
// command runs without setup.
func currentConfig() *config.Config {
	if appConfig == nil {
		return config.DefaultConfig()
	}
	return appConfig
}
