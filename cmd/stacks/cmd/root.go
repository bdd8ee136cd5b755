package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/aweris/stacks"
)

var rootCmd = &cobra.Command{
	Use:   "stacks",
	Short: "Layered file namespace CLI",
	Long: `Browse and read a namespace stacked from directories and archives.

Roots are given with --root (repeatable) or the "roots" config key. Later
roots override earlier ones. Archives inside roots can be traversed like
directories, e.g. "packs/base.zip/ui/theme.yaml".`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ~/.config/stacks/config.yaml)")
	rootCmd.PersistentFlags().StringSlice("root", nil, "root directory or archive (repeatable, later wins)")
	rootCmd.PersistentFlags().Bool("archives", true, "traverse archives as directories")
	rootCmd.PersistentFlags().String("log-level", "warn", "log level (debug, info, warn, error)")

	viper.BindPFlag("roots", rootCmd.PersistentFlags().Lookup("root"))
	viper.BindPFlag("archives", rootCmd.PersistentFlags().Lookup("archives"))
	viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
}

func initConfig() {
	if cfg := rootCmd.PersistentFlags().Lookup("config").Value.String(); cfg != "" {
		viper.SetConfigFile(cfg)
	} else {
		viper.AddConfigPath(configDir())
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("STACKS")
	viper.AutomaticEnv()
	viper.SetDefault("archives", true)
	viper.SetDefault("log_level", "warn")

	viper.ReadInConfig()
}

func configDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "stacks")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".config", "stacks")
	}
	return ".stacks"
}

func newLogger() *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(viper.GetString("log_level"))); err != nil {
		level = slog.LevelWarn
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// openLibrary builds a library over the configured roots. Directory roots
// are watched when watch is set.
func openLibrary(watch bool) (*stacks.Library, error) {
	roots := viper.GetStringSlice("roots")
	if len(roots) == 0 {
		return nil, errors.New("no roots configured: pass --root or set roots in the config file")
	}

	logger := newLogger()

	stores := make([]stacks.Store, 0, len(roots))
	for _, root := range roots {
		s, err := stacks.OpenPath(root, stacks.WithWatch(watch), stacks.WithLogger(logger))
		if err != nil {
			for _, opened := range stores {
				opened.Close()
			}
			return nil, fmt.Errorf("open root %s: %w", root, err)
		}
		logger.Debug("root opened", "root", root)
		stores = append(stores, s)
	}

	opts := []stacks.Option{stacks.WithStores(stores...)}
	if viper.GetBool("archives") {
		opts = append(opts, stacks.WithDefaultFactories())
	}
	return stacks.New(opts...)
}

func closeLibrary(lib *stacks.Library, err *error) {
	if cerr := lib.Close(); cerr != nil && *err == nil {
		*err = cerr
	}
}
