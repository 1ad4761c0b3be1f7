package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/quailyquaily/opguard/internal/pathutil"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// errNotAllowed makes the process exit with status 2 without printing an
// error; the decision has already been rendered.
var errNotAllowed = errors.New("operation not allowed")

func main() {
	if err := newRootCmd().Execute(); err != nil {
		if errors.Is(err, errNotAllowed) {
			os.Exit(2)
		}
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var cfgFile string

	root := &cobra.Command{
		Use:           "opguard",
		Short:         "Advisory safety gate for agent shell commands and file edits",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return initConfig(cfgFile)
		},
	}

	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ~/.opguard/config.yaml)")
	root.PersistentFlags().String("session", "", "session id stamped on audit entries")
	root.PersistentFlags().String("log-level", "", "log level: debug|info|warn|error")
	root.PersistentFlags().String("log-format", "", "log format: text|json")
	_ = viper.BindPFlag("session_id", root.PersistentFlags().Lookup("session"))
	_ = viper.BindPFlag("log.level", root.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("log.format", root.PersistentFlags().Lookup("log-format"))

	root.AddCommand(
		newCheckCmd(),
		newEditCmd(),
		newLogCmd(),
		newAuditCmd(),
		newConfirmCmd(),
		newRulesCmd(),
	)
	return root
}

func initConfig(cfgFile string) error {
	setDefaults()

	viper.SetEnvPrefix("OPGUARD")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if cfgFile != "" {
		viper.SetConfigFile(pathutil.ExpandHomePath(cfgFile))
		if err := viper.ReadInConfig(); err != nil {
			return fmt.Errorf("read config: %w", err)
		}
		return nil
	}

	if dir := pathutil.StateDir(); dir != "" {
		viper.AddConfigPath(dir)
	}
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("read config: %w", err)
		}
	}
	return nil
}

func loggerFromViper() *slog.Logger {
	var level slog.Level
	switch strings.ToLower(strings.TrimSpace(viper.GetString("log.level"))) {
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	var h slog.Handler
	if strings.EqualFold(strings.TrimSpace(viper.GetString("log.format")), "json") {
		h = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		h = slog.NewTextHandler(os.Stderr, opts)
	}
	return slog.New(h)
}
