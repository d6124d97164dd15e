package models

import (
	"context"

	"github.com/kbukum/whisper-sidecar/transcription"
	"github.com/kbukum/whisper-sidecar/transcription/whisper"
)

// DependencyName names the transcriber runtime in dependency errors.
const DependencyName = "faster-whisper"

// Capability is the transcriber runtime: something that can be probed,
// provisioned at most once, and asked to load models.
type Capability interface {
	// Check reports whether the runtime can be loaded.
	Check(ctx context.Context) error
	// CanInstall reports whether an install attempt is possible.
	CanInstall() bool
	// Install provisions the runtime.
	Install(ctx context.Context) error
	// Load constructs the model called name from ref.
	Load(ctx context.Context, name, ref string) (transcription.Model, error)
}

// WhisperCapability adapts a whisper worker driver to Capability.
func WhisperCapability(d *whisper.Driver) Capability {
	return driverCapability{d}
}

type driverCapability struct {
	*whisper.Driver
}

func (c driverCapability) Load(ctx context.Context, name, ref string) (transcription.Model, error) {
	m, err := c.Driver.Load(ctx, name, ref)
	if err != nil {
		return nil, err
	}
	return m, nil
}
