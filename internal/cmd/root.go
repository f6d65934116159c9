package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/yuzeguitarist/qrcard/internal/app"
	"github.com/yuzeguitarist/qrcard/internal/config"
	"github.com/yuzeguitarist/qrcard/internal/state"
)

var (
	dataDir    string
	configPath string

	rootCmd = &cobra.Command{
		Use:           "qrcard",
		Short:         "qrcard - QR code generator for ID cards with photo upload (single binary)",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, app.Color("error:", "1;31"), err)
		os.Exit(1)
	}
}

func defaultDataDir() string {
	if v := os.Getenv("QRCARD_DATA_DIR"); v != "" {
		return v
	}
	return app.DefaultDataDir
}

func paths() app.Paths { return app.Paths{DataDir: dataDir} }

func configFile() string {
	if configPath != "" {
		return configPath
	}
	return paths().Config()
}

// loadConfig reads the config file, applies QRCARD_* overrides and validates.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configFile(), dataDir)
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnv(os.Getenv)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

func loadState(cfg *config.Config) (*state.State, error) {
	st, err := state.LoadOrInit(cfg.Paths())
	if err != nil {
		return nil, fmt.Errorf("failed to load state: %w", err)
	}
	return st, nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", defaultDataDir(), "data directory (state, uploads, index, certs)")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default <data-dir>/config.yaml)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(encodeCmd)
	rootCmd.AddCommand(decodeCmd)
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(photosCmd)
	rootCmd.AddCommand(adminCmd)
	rootCmd.AddCommand(certCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}
