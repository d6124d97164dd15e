// Package models owns the transcriber capability and the cache of loaded
// models.
package models

import (
	"context"
	"time"

	"github.com/kbukum/whisper-sidecar/errors"
	"github.com/kbukum/whisper-sidecar/logger"
	"github.com/kbukum/whisper-sidecar/observability"
	"github.com/kbukum/whisper-sidecar/provider"
	"github.com/kbukum/whisper-sidecar/transcription"
)

// Provider hands out loaded models by size.
//
// Cache policy is retain-all: a model stays loaded from first use until
// Close, except that a model whose worker died is replaced on next use.
type Provider struct {
	capability Capability
	catalog    *Catalog
	cache      *provider.Registry[transcription.Model]
	metrics    *observability.Metrics
	log        *logger.Logger
}

// Option configures a Provider.
type Option func(*Provider)

// WithMetrics records model loads on m.
func WithMetrics(m *observability.Metrics) Option {
	return func(p *Provider) { p.metrics = m }
}

// WithLogger sets the provider's logger.
func WithLogger(l *logger.Logger) Option {
	return func(p *Provider) { p.log = l }
}

// NewProvider creates a Provider over capability. catalog may be nil, in
// which case sizes are passed to the capability unresolved.
func NewProvider(capability Capability, catalog *Catalog, opts ...Option) *Provider {
	p := &Provider{
		capability: capability,
		catalog:    catalog,
		log:        logger.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.log = p.log.WithComponent("models")
	if p.catalog == nil {
		p.catalog = NewCatalog("", p.log)
	}
	p.cache = transcription.NewRegistry(p.construct)
	return p
}

// EnsureCapability verifies the transcriber runtime is usable. If it is
// not, one install attempt is made when an installer is configured,
// followed by one more check. There is no further retry.
func (p *Provider) EnsureCapability(ctx context.Context) error {
	checkErr := p.capability.Check(ctx)
	if checkErr == nil {
		p.log.Info("Whisper available")
		return nil
	}

	if !p.capability.CanInstall() {
		p.log.Error(DependencyName+" not available and no install command configured",
			logger.ErrorFields("check", checkErr))
		return errors.DependencyUnavailable(DependencyName, checkErr)
	}

	p.log.Warn(DependencyName+" not found, installing...", logger.ErrorFields("check", checkErr))
	if err := p.capability.Install(ctx); err != nil {
		p.log.Error("Failed to install "+DependencyName, logger.ErrorFields("install", err))
		return errors.DependencyUnavailable(DependencyName, err)
	}
	if err := p.capability.Check(ctx); err != nil {
		p.log.Error(DependencyName+" still not available after install", logger.ErrorFields("check", err))
		return errors.DependencyUnavailable(DependencyName, err)
	}
	p.log.Info(DependencyName + " installed successfully")
	return nil
}

// Load returns the model for size, loading it on first use. A failed load
// is not cached and its error carries the runtime's message.
func (p *Provider) Load(ctx context.Context, size string) (transcription.Model, error) {
	m, _, err := p.cache.GetOrCreate(ctx, size)
	if err != nil {
		return nil, errors.ModelLoadFailed(size, err)
	}
	return m, nil
}

// Loaded returns the sizes currently loaded.
func (p *Provider) Loaded() []string {
	return p.cache.List()
}

// Catalog returns the model catalog.
func (p *Provider) Catalog() *Catalog {
	return p.catalog
}

// Close unloads every model.
func (p *Provider) Close(ctx context.Context) error {
	loaded := p.Loaded()
	err := p.cache.Close(ctx)
	if len(loaded) > 0 {
		p.log.Info("unloaded models", logger.Fields("models", loaded))
	}
	return err
}

func (p *Provider) construct(ctx context.Context, size string) (transcription.Model, error) {
	ref := p.catalog.Resolve(size)
	p.log.Info("Loading Whisper model: "+size+" from "+ref, logger.Fields(logger.FieldModel, size))

	start := time.Now()
	m, err := p.capability.Load(ctx, size, ref)
	status := "ok"
	if err != nil {
		status = "error"
	}
	if p.metrics != nil {
		p.metrics.RecordModelLoad(ctx, size, status)
	}
	if err != nil {
		p.log.Error("model load failed", logger.MergeWithError(logger.Fields(logger.FieldModel, size), err))
		return nil, err
	}
	fields := logger.DurationFields("load_model", time.Since(start))
	fields[logger.FieldModel] = size
	p.log.Info("model loaded", fields)
	return m, nil
}
