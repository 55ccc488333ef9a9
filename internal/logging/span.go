package logging

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Span represents a logical unit of work tied to a request trace.
type Span struct {
	name   string
	logger *zerolog.Logger
	start  time.Time
}

// StartSpan derives a child span from the provided context, enriching the logger
// with tracing metadata. It returns the derived context and the span handle.
func StartSpan(ctx context.Context, name string) (context.Context, *Span) {
	if ctx == nil {
		ctx = context.Background()
	}

	traceID := TraceIDFromContext(ctx)
	if traceID == "" {
		traceID = uuid.NewString()
		ctx = WithTraceID(ctx, traceID)
	}

	parentSpanID := SpanIDFromContext(ctx)
	spanID := uuid.NewString()

	// Span loggers derive from the request logger so nested spans do not
	// repeat their ancestors' fields.
	lc := requestLogger(ctx).With().
		Str("trace_id", traceID).
		Str("span_id", spanID).
		Str("span_name", name)
	if parentSpanID != "" {
		lc = lc.Str("parent_span_id", parentSpanID)
	}
	logger := lc.Logger()

	ctx = context.WithValue(ctx, spanLogKey, &logger)
	ctx = WithSpanID(ctx, spanID)

	return ctx, &Span{name: name, logger: &logger, start: time.Now()}
}

// End finalizes the span and emits a completion log entry.
func (s *Span) End() {
	if s == nil {
		return
	}
	s.logger.Debug().Dur("duration", time.Since(s.start)).Msg("span completed")
}
