package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/kbukum/whisper-sidecar/logger"
)

// InitMeter initializes the OpenTelemetry meter provider.
// Returns a MeterProvider that should be shut down on application exit.
func InitMeter(ctx context.Context, cfg Config, res Resource) (*sdkmetric.MeterProvider, error) {
	opts := []otlpmetrichttp.Option{
		otlpmetrichttp.WithEndpoint(cfg.Endpoint),
	}
	if cfg.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}

	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating metric exporter: %w", err)
	}

	r, err := newResource(res)
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	readerOpts := []sdkmetric.PeriodicReaderOption{}
	if cfg.Interval > 0 {
		readerOpts = append(readerOpts, sdkmetric.WithInterval(cfg.Interval))
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, readerOpts...)),
		sdkmetric.WithResource(r),
	)

	otel.SetMeterProvider(mp)

	logger.Info("meter initialized", logger.Fields(
		"service", res.ServiceName,
		"endpoint", cfg.Endpoint,
		"interval", cfg.Interval.String(),
	))

	return mp, nil
}

// Meter returns a named meter from the global provider.
func Meter(name string) metric.Meter {
	return otel.Meter(name)
}

// Metrics holds the sidecar's metric instruments.
type Metrics struct {
	requestTotal          metric.Int64Counter
	requestDuration       metric.Float64Histogram
	errorTotal            metric.Int64Counter
	modelLoadTotal        metric.Int64Counter
	transcriptionDuration metric.Float64Histogram
	segmentTotal          metric.Int64Counter
}

// NewMetrics creates metric instruments on the given meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	requestTotal, err := meter.Int64Counter("sidecar.requests",
		metric.WithDescription("Total number of request lines handled"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating sidecar.requests counter: %w", err)
	}

	requestDuration, err := meter.Float64Histogram("sidecar.request.duration",
		metric.WithDescription("Duration of requests in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating sidecar.request.duration histogram: %w", err)
	}

	errorTotal, err := meter.Int64Counter("sidecar.errors",
		metric.WithDescription("Total error responses by code and component"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating sidecar.errors counter: %w", err)
	}

	modelLoadTotal, err := meter.Int64Counter("whisper.model.loads",
		metric.WithDescription("Model worker constructions by model and status"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating whisper.model.loads counter: %w", err)
	}

	transcriptionDuration, err := meter.Float64Histogram("whisper.transcription.duration",
		metric.WithDescription("Duration of transcriptions in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating whisper.transcription.duration histogram: %w", err)
	}

	segmentTotal, err := meter.Int64Counter("whisper.segments",
		metric.WithDescription("Total transcript segments produced"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating whisper.segments counter: %w", err)
	}

	return &Metrics{
		requestTotal:          requestTotal,
		requestDuration:       requestDuration,
		errorTotal:            errorTotal,
		modelLoadTotal:        modelLoadTotal,
		transcriptionDuration: transcriptionDuration,
		segmentTotal:          segmentTotal,
	}, nil
}

// RecordRequest records one handled request line.
func (m *Metrics) RecordRequest(ctx context.Context, action, status string, duration time.Duration) {
	m.requestTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("action", action),
		attribute.String("status", status),
	))
	m.requestDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("action", action),
	))
}

// RecordError records an error response by code and component.
func (m *Metrics) RecordError(ctx context.Context, code, component string) {
	m.errorTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("code", code),
		attribute.String("component", component),
	))
}

// RecordModelLoad records a model worker construction attempt.
func (m *Metrics) RecordModelLoad(ctx context.Context, model, status string) {
	m.modelLoadTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("model", model),
		attribute.String("status", status),
	))
}

// RecordTranscription records a finished transcription and its segment count.
func (m *Metrics) RecordTranscription(ctx context.Context, model, mode, status string, duration time.Duration, segments int) {
	attrs := metric.WithAttributes(
		attribute.String("model", model),
		attribute.String("mode", mode),
		attribute.String("status", status),
	)
	m.transcriptionDuration.Record(ctx, duration.Seconds(), attrs)
	if segments > 0 {
		m.segmentTotal.Add(ctx, int64(segments), metric.WithAttributes(
			attribute.String("model", model),
		))
	}
}
