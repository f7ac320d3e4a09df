package engine

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// tracerName identifies this package's spans in exported traces.
const tracerName = "github.com/tabsentry/engine/internal/engine"

// startRunSpan opens the top-level span for one rule run. The caller must
// End() the returned span.
func startRunSpan(ctx context.Context, ruleID string, triggerKind string, dryRun bool) (context.Context, trace.Span) {
	tracer := otel.Tracer(tracerName)
	return tracer.Start(ctx, "engine.run_rule", trace.WithAttributes(
		attribute.String("tabsentry.rule_id", ruleID),
		attribute.String("tabsentry.trigger", triggerKind),
		attribute.Bool("tabsentry.dry_run", dryRun),
	))
}

func startChildSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, name)
}
