package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"tessera-hq/meshlens/pkg/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a configuration file",
	Long: `Load the configuration file, apply environment overrides, and report
every validation problem found.

Examples:
  # Validate the default config.yaml
  meshlens validate

  # Validate a specific file
  meshlens validate --config /etc/meshlens/config.yaml`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		var verr *config.ValidationError
		if errors.As(err, &verr) {
			fmt.Printf("✗ Configuration invalid (%d problems):\n", len(verr.Errors))
			for _, fe := range verr.Errors {
				fmt.Printf("  - %s: %s\n", fe.Field, fe.Message)
			}
			return fmt.Errorf("configuration invalid")
		}
		return err
	}

	fmt.Println("✓ Configuration valid")
	fmt.Printf("  control dir:  %s\n", cfg.Sources.ControlDir)
	fmt.Printf("  data dir:     %s\n", cfg.Sources.DataDir)
	if cfg.Sources.TrafficDir != "" {
		fmt.Printf("  traffic dir:  %s\n", cfg.Sources.TrafficDir)
	}
	if cfg.History.Enabled {
		fmt.Printf("  history:      %s\n", cfg.History.Path)
	}
	if cfg.Telemetry.Metrics.Enabled {
		fmt.Printf("  metrics:      %s\n", cfg.Telemetry.Metrics.ListenAddress)
	}
	return nil
}
