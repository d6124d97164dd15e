package observability

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"
)

// Config configures telemetry export. Export is enabled only when an
// endpoint is set; otherwise the global no-op providers stay in place.
type Config struct {
	// Endpoint is the OTLP HTTP endpoint host:port (e.g., "localhost:4318").
	Endpoint string `yaml:"endpoint" mapstructure:"endpoint"`
	// Insecure allows plain HTTP (for development).
	Insecure bool `yaml:"insecure" mapstructure:"insecure"`
	// Interval is the metric export interval.
	Interval time.Duration `yaml:"interval" mapstructure:"interval"`
	// SampleRate is the trace sampling rate (0.0 to 1.0). Zero means 1.0.
	SampleRate float64 `yaml:"sample_rate" mapstructure:"sample_rate"`
}

// ApplyDefaults fills unset fields.
func (c *Config) ApplyDefaults() {
	if c.Interval <= 0 {
		c.Interval = 15 * time.Second
	}
	if c.SampleRate <= 0 {
		c.SampleRate = 1.0
	}
}

// Enabled reports whether telemetry should be exported.
func (c *Config) Enabled() bool {
	return c.Endpoint != ""
}

// Resource identifies the service in exported telemetry.
type Resource struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
}

// ShutdownFunc flushes and stops the telemetry providers.
type ShutdownFunc func(ctx context.Context) error

// Setup initializes tracing and metrics export. When cfg is not enabled it
// does nothing and returns a no-op shutdown.
func Setup(ctx context.Context, cfg Config, res Resource) (ShutdownFunc, error) {
	if !cfg.Enabled() {
		return func(context.Context) error { return nil }, nil
	}
	cfg.ApplyDefaults()

	tp, err := InitTracer(ctx, cfg, res)
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}
	mp, err := InitMeter(ctx, cfg, res)
	if err != nil {
		_ = tp.Shutdown(ctx)
		return nil, fmt.Errorf("init meter: %w", err)
	}

	return func(ctx context.Context) error {
		return stderrors.Join(mp.Shutdown(ctx), tp.Shutdown(ctx))
	}, nil
}
