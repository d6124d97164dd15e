package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Operation tracks one request from start to response: its span and
// request metrics.
type Operation struct {
	Action    string
	RequestID string
	StartTime time.Time
	Metrics   *Metrics

	span trace.Span
}

type operationKey struct{}

// StartOperation starts a span named "sidecar.<action>" and stores the
// operation in the returned context. A nil metrics skips metric recording.
func StartOperation(ctx context.Context, action, requestID string, metrics *Metrics) (context.Context, *Operation) {
	ctx, span := StartSpan(ctx, "sidecar."+action)
	span.SetAttributes(
		attribute.String(AttrAction, action),
		attribute.String(AttrRequestID, requestID),
	)
	op := &Operation{
		Action:    action,
		RequestID: requestID,
		StartTime: time.Now(),
		Metrics:   metrics,
		span:      span,
	}
	return context.WithValue(ctx, operationKey{}, op), op
}

// OperationFromContext returns the operation in ctx, or nil.
func OperationFromContext(ctx context.Context) *Operation {
	if op, ok := ctx.Value(operationKey{}).(*Operation); ok {
		return op
	}
	return nil
}

// End closes the span and records the request metric. status is "ok" or
// "error"; err, when set, is recorded on the span.
func (o *Operation) End(ctx context.Context, status string, err error) {
	duration := o.Duration()
	if err != nil {
		SetSpanError(trace.ContextWithSpan(ctx, o.span), err)
	}
	o.span.SetAttributes(
		attribute.String(AttrStatus, status),
		attribute.Int64(AttrDurationMs, duration.Milliseconds()),
	)
	o.span.End()

	if o.Metrics != nil {
		o.Metrics.RecordRequest(ctx, o.Action, status, duration)
	}
}

// Duration returns the elapsed time since the operation started.
func (o *Operation) Duration() time.Duration {
	return time.Since(o.StartTime)
}
