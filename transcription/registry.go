package transcription

import "github.com/kbukum/whisper-sidecar/provider"

// NewRegistry creates a model cache keyed by model size, filled by factory.
func NewRegistry(factory provider.Factory[Model]) *provider.Registry[Model] {
	return provider.NewRegistry(factory)
}
