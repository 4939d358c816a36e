package logging

import (
	"context"
	"log/slog"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldRunID is the standardized structured logging key for sync run identifiers.
	FieldRunID = "run_id"
	// FieldWorker is the standardized structured logging key for worker numbers.
	FieldWorker = "worker"
	// FieldEntityID is the standardized structured logging key for entity RUTs.
	FieldEntityID = "entity_id"
	// FieldPeriod is the standardized structured logging key for reporting periods.
	FieldPeriod = "period"
	// FieldLocation is the standardized structured logging key for entity storage directories.
	FieldLocation = "location"
)

type contextKey int

const (
	runIDKey contextKey = iota
	workerKey
	entityKey
)

// WithRunID attaches a sync run identifier to ctx.
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDKey, runID)
}

// WithWorker attaches a worker number to ctx.
func WithWorker(ctx context.Context, worker int) context.Context {
	return context.WithValue(ctx, workerKey, worker)
}

// WithEntity attaches the entity RUT being processed to ctx.
func WithEntity(ctx context.Context, rut string) context.Context {
	return context.WithValue(ctx, entityKey, rut)
}

// RunIDFromContext returns the run identifier attached with WithRunID.
func RunIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(runIDKey).(string)
	return id
}

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 3)
	if id, ok := ctx.Value(runIDKey).(string); ok && id != "" {
		fields = append(fields, slog.String(FieldRunID, id))
	}
	if worker, ok := ctx.Value(workerKey).(int); ok {
		fields = append(fields, slog.Int(FieldWorker, worker))
	}
	if rut, ok := ctx.Value(entityKey).(string); ok && rut != "" {
		fields = append(fields, slog.String(FieldEntityID, rut))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(Args(fields...)...)
}
