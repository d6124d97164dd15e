// Package observability provides OpenTelemetry tracing and metrics for the
// sidecar.
//
// Export over OTLP/HTTP is opt-in through Config.Endpoint. Without it the
// global no-op providers are used and spans and metrics cost nothing.
//
//	shutdown, err := observability.Setup(ctx, cfg.Telemetry, observability.Resource{ServiceName: "whisper-sidecar"})
//	defer shutdown(ctx)
//
//	ctx, op := observability.StartOperation(ctx, "transcribe", requestID, metrics)
//	defer op.End(ctx, "ok", nil)
package observability
