package logging

import (
	"context"
	"log/slog"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldStep is the standardized structured logging key for pipeline step names.
	FieldStep = "step"
	// FieldWorkflow is the standardized structured logging key for workflow names.
	FieldWorkflow = "workflow"
	// FieldRunID is the standardized structured logging key for run correlation identifiers.
	FieldRunID = "run_id"
	// FieldEventType is the standardized structured logging key for event markers.
	FieldEventType = "event_type"
	// FieldErrorHint is the standardized structured logging key for remediation hints.
	FieldErrorHint = "error_hint"
)

type contextKey string

const (
	stepKey     contextKey = "step"
	workflowKey contextKey = "workflow"
	runIDKey    contextKey = "run_id"
)

// WithStep annotates context with the pipeline step name.
func WithStep(ctx context.Context, step string) context.Context {
	if step == "" {
		return ctx
	}
	return context.WithValue(ctx, stepKey, step)
}

// StepFromContext returns the step name if present.
func StepFromContext(ctx context.Context) (string, bool) {
	if str, ok := ctx.Value(stepKey).(string); ok && str != "" {
		return str, true
	}
	return "", false
}

// WithWorkflow annotates context with the selected workflow name.
func WithWorkflow(ctx context.Context, workflow string) context.Context {
	if workflow == "" {
		return ctx
	}
	return context.WithValue(ctx, workflowKey, workflow)
}

// WorkflowFromContext returns the workflow name if present.
func WorkflowFromContext(ctx context.Context) (string, bool) {
	if str, ok := ctx.Value(workflowKey).(string); ok && str != "" {
		return str, true
	}
	return "", false
}

// WithRunID annotates context with the run correlation identifier.
func WithRunID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, runIDKey, id)
}

// RunIDFromContext returns the run correlation identifier if present.
func RunIDFromContext(ctx context.Context) (string, bool) {
	if str, ok := ctx.Value(runIDKey).(string); ok && str != "" {
		return str, true
	}
	return "", false
}

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 3)
	if id, ok := RunIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldRunID, id))
	}
	if wf, ok := WorkflowFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldWorkflow, wf))
	}
	if step, ok := StepFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldStep, step))
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
	return logger.With(attrsToArgs(fields)...)
}
