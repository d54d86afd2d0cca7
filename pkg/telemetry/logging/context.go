package logging

import "context"

// Context keys for common log fields.
type contextKey string

const (
	// RunIDKey is the context key for audit run IDs.
	RunIDKey contextKey = "run_id"

	// PlaneKey is the context key for the plane being processed.
	PlaneKey contextKey = "plane"
)

// WithRunID adds an audit run ID to the context.
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, RunIDKey, runID)
}

// GetRunID retrieves the audit run ID from the context.
func GetRunID(ctx context.Context) string {
	if runID, ok := ctx.Value(RunIDKey).(string); ok {
		return runID
	}
	return ""
}

// WithPlane adds the plane name to the context.
func WithPlane(ctx context.Context, plane string) context.Context {
	return context.WithValue(ctx, PlaneKey, plane)
}

// GetPlane retrieves the plane name from the context.
func GetPlane(ctx context.Context) string {
	if plane, ok := ctx.Value(PlaneKey).(string); ok {
		return plane
	}
	return ""
}

// ContextFields extracts common fields from context for logging.
// Returns a slice of key-value pairs suitable for logger.With().
func ContextFields(ctx context.Context) []any {
	var fields []any

	if runID := GetRunID(ctx); runID != "" {
		fields = append(fields, "run_id", runID)
	}
	if plane := GetPlane(ctx); plane != "" {
		fields = append(fields, "plane", plane)
	}

	return fields
}
