// Package logging constructs the structured loggers used across MeshLens.
//
// Loggers are standard log/slog loggers configured from the telemetry
// section of the configuration file. JSON and text handlers are supported;
// output goes to stderr by default so machine-readable audit reports can
// own stdout.
//
// Context helpers attach per-run fields (run ID, plane) so every record
// emitted during an audit can be correlated:
//
//	ctx = logging.WithRunID(ctx, report.RunID)
//	logger.With(logging.ContextFields(ctx)...).Info("audit complete")
package logging
