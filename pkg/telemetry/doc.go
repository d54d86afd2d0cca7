// Package telemetry groups the observability subsystems of MeshLens.
//
// Subpackages:
//
//   - logging: structured log/slog loggers configured from the telemetry
//     configuration section
//   - metrics: Prometheus metrics for the audit pipeline
package telemetry
