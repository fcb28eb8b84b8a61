package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	applog "telegram-export-converter/internal/log"
	"telegram-export-converter/internal/pkg/config"
)

// app хранит общее состояние подкоманд: конфигурацию и логгер,
// инициализируемые перед запуском любой из них.
type app struct {
	cfgFile  string
	logLevel string
	cfg      *config.Config
	log      *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "converter",
		Short: "Convert Telegram Desktop HTML exports into result.json-compatible JSON",
		Long: `Converter turns the HTML pages of a Telegram Desktop chat export
(messages.html, messages2.html, ...) into JSON documents that follow the
schema of the native JSON export, and merges them into a single log.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd)
		},
	}

	rootCmd.PersistentFlags().StringVar(&a.cfgFile, "config", config.DefaultConfigFile, "config file")
	rootCmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level override (debug, info, warn, error)")

	rootCmd.AddCommand(newConvertCmd(a), newMergeCmd(a), newSendersCmd(a))
	return rootCmd
}

func (a *app) init(cmd *cobra.Command) error {
	cfg, err := config.LoadConfig(a.cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if a.logLevel != "" {
		cfg.Logging.Level = a.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	a.cfg = cfg
	a.log = applog.NewLogger(cmd.ErrOrStderr(), cfg.Logging.Level, cfg.Logging.Format)
	slog.SetDefault(a.log)
	return nil
}
