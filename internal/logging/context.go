package logging

import (
	"context"
	"log/slog"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldAnnotationID is the standardized structured logging key for annotation identifiers.
	FieldAnnotationID = "annotation_id"
	// FieldSpeakerID is the standardized structured logging key for speaker identifiers.
	FieldSpeakerID = "speaker_id"
	// FieldLevelID is the standardized structured logging key for annotation level identifiers.
	FieldLevelID = "level_id"
	// FieldCorpus is the standardized structured logging key for repository names.
	FieldCorpus = "corpus"
	// FieldCorrelationID is the standardized structured logging key for batch correlation identifiers.
	FieldCorrelationID = "correlation_id"
	// FieldEventType classifies warnings and errors for filtering.
	FieldEventType = "event_type"
	// FieldErrorHint carries a short remediation hint.
	FieldErrorHint = "error_hint"
)

type contextKey int

const (
	annotationIDKey contextKey = iota
	speakerIDKey
	levelIDKey
	correlationIDKey
)

// WithAnnotationID returns a context carrying an annotation ID for logging.
func WithAnnotationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, annotationIDKey, id)
}

// WithSpeakerID returns a context carrying a speaker ID for logging.
func WithSpeakerID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, speakerIDKey, id)
}

// WithLevelID returns a context carrying a level ID for logging.
func WithLevelID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, levelIDKey, id)
}

// WithCorrelationID returns a context carrying a correlation ID for logging.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationIDKey, id)
}

// CorrelationIDFromContext returns the correlation ID stored in ctx.
func CorrelationIDFromContext(ctx context.Context) (string, bool) {
	return stringFromContext(ctx, correlationIDKey)
}

func stringFromContext(ctx context.Context, key contextKey) (string, bool) {
	if ctx == nil {
		return "", false
	}
	v, ok := ctx.Value(key).(string)
	return v, ok && v != ""
}

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 4)
	for _, f := range []struct {
		key   contextKey
		field string
	}{
		{annotationIDKey, FieldAnnotationID},
		{speakerIDKey, FieldSpeakerID},
		{levelIDKey, FieldLevelID},
		{correlationIDKey, FieldCorrelationID},
	} {
		if v, ok := stringFromContext(ctx, f.key); ok {
			fields = append(fields, slog.String(f.field, v))
		}
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
