package main

import (
	"fmt"
	"log/slog"
	"os"

	"tessera-hq/meshlens/pkg/cli"
	"tessera-hq/meshlens/pkg/config"
	"tessera-hq/meshlens/pkg/telemetry/logging"
)

// loadConfigOrDefault loads the configuration file named by the --config
// flag, applying environment overrides. When the flag is left at its
// default and no config.yaml exists, built-in defaults are used so the
// CLI works with nothing but source-directory flags.
func loadConfigOrDefault() (*config.Config, error) {
	if _, err := os.Stat(cfgFile); err != nil {
		if os.IsNotExist(err) && !rootCmd.PersistentFlags().Changed("config") {
			return config.NewDefault(), nil
		}
		return nil, cli.NewConfigError("", fmt.Sprintf("failed to read config %s: %v", cfgFile, err))
	}

	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return nil, cli.NewConfigError("", fmt.Sprintf("failed to load config: %v", err))
	}
	return cfg, nil
}

// buildLogger constructs the process logger from the telemetry config.
// The --verbose flag forces debug level regardless of configuration.
func buildLogger(cfg *config.Config) (*slog.Logger, error) {
	logCfg := cfg.Telemetry.Logging
	if verbose {
		logCfg.Level = "debug"
	}
	logger, err := logging.New(logCfg, os.Stderr)
	if err != nil {
		return nil, cli.NewConfigError("telemetry.logging", err.Error())
	}
	slog.SetDefault(logger)
	return logger, nil
}

// applySourceFlags copies non-empty source-directory flag values into cfg.
func applySourceFlags(cfg *config.Config, controlDir, dataDir, trafficDir string) {
	if controlDir != "" {
		cfg.Sources.ControlDir = controlDir
	}
	if dataDir != "" {
		cfg.Sources.DataDir = dataDir
	}
	if trafficDir != "" {
		cfg.Sources.TrafficDir = trafficDir
	}
}
