// Package config provides configuration management for MeshLens.
//
// This package handles loading, validating, and managing configuration from
// YAML files with environment variable overrides. It provides a type-safe
// configuration system with validation and sensible defaults.
//
// # Configuration Loading
//
// Configuration can be loaded in two ways:
//
//  1. From a YAML file only:
//     cfg, err := config.LoadConfig("config.yaml")
//
//  2. From a YAML file with environment variable overrides:
//     cfg, err := config.LoadConfigWithEnvOverrides("config.yaml")
//
// When no file is given, NewDefault returns a fully defaulted configuration.
//
// # Environment Variable Overrides
//
// Environment variables follow the naming convention MESHLENS_SECTION_FIELD.
// For example:
//
//   - MESHLENS_SOURCES_CONTROL_DIR overrides sources.control_dir
//   - MESHLENS_COMPARATOR_MARGIN overrides comparator.margin
//   - MESHLENS_TELEMETRY_LOGGING_LEVEL overrides telemetry.logging.level
//
// Environment variables always take precedence over file-based configuration.
//
// # Configuration Precedence
//
// Configuration values are applied in the following order (later overrides earlier):
//
//  1. Default values (defined in defaults.go)
//  2. Values from YAML file
//  3. Environment variable overrides
//  4. Validation (fails fast if invalid)
//
// # Example Configuration
//
// Here is a minimal configuration file:
//
//	sources:
//	  control_dir: "./manifests"
//	  data_dir: "./dumps"
//	  traffic_dir: "./traffic"
//
//	comparator:
//	  split_tolerance: 0.1
//	  confidence: 1.96
//	  margin: 0.05
//
//	history:
//	  enabled: true
//	  path: "data/meshlens.db"
//
//	telemetry:
//	  logging:
//	    level: "info"
//	    format: "json"
package config
