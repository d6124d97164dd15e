package transcription

import (
	"context"

	"github.com/kbukum/whisper-sidecar/provider"
)

// Model is a loaded transcription model, ready to transcribe files.
type Model interface {
	provider.Provider // embeds Name() and IsAvailable()

	// Transcribe runs the model over the audio file at audioPath.
	// The caller must Close the returned Result's Segments.
	Transcribe(ctx context.Context, audioPath string, opts Options) (*Result, error)
}
