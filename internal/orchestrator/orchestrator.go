// Package orchestrator turns transcription requests into transcripts:
// model resolution, audio staging, invocation and aggregation.
package orchestrator

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/kbukum/whisper-sidecar/audio"
	"github.com/kbukum/whisper-sidecar/errors"
	"github.com/kbukum/whisper-sidecar/logger"
	"github.com/kbukum/whisper-sidecar/observability"
	"github.com/kbukum/whisper-sidecar/transcription"
	"github.com/kbukum/whisper-sidecar/util"
)

const (
	stagingPattern = "whisper-*.wav"
	previewLength  = 50
)

// ModelSource resolves a model size to a loaded model.
type ModelSource interface {
	Load(ctx context.Context, size string) (transcription.Model, error)
}

// Result is a successful transcription.
type Result struct {
	Text                string
	Language            string
	LanguageProbability float64
	Segments            int
	Model               string
	Duration            float64
}

// Orchestrator runs transcriptions against models from a ModelSource.
type Orchestrator struct {
	models     ModelSource
	stagingDir string
	metrics    *observability.Metrics
	log        *logger.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithStagingDir sets where raw audio bytes are staged. Empty means the
// system temp directory.
func WithStagingDir(dir string) Option {
	return func(o *Orchestrator) { o.stagingDir = dir }
}

// WithMetrics records transcriptions on m.
func WithMetrics(m *observability.Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// WithLogger sets the orchestrator's logger.
func WithLogger(l *logger.Logger) Option {
	return func(o *Orchestrator) { o.log = l }
}

// New creates an Orchestrator.
func New(models ModelSource, opts ...Option) *Orchestrator {
	o := &Orchestrator{models: models, log: logger.Nop()}
	for _, opt := range opts {
		opt(o)
	}
	o.log = o.log.WithComponent("orchestrator")
	return o
}

// TranscribeBytes stages data verbatim as a temporary .wav file and
// transcribes it with default decoding parameters. The staged file is
// removed whatever the outcome.
func (o *Orchestrator) TranscribeBytes(ctx context.Context, data []byte, size string) (*Result, error) {
	log := o.log.WithContext(ctx)

	model, err := o.models.Load(ctx, size)
	if err != nil {
		log.Error("Transcription error", logger.MergeWithError(logger.Fields(logger.FieldModel, size), err))
		return nil, err
	}

	path, err := o.stage(data)
	if err != nil {
		log.Error("Transcription error", logger.ErrorFields("stage_audio", err))
		return nil, errors.Internal(err)
	}
	defer o.removeStaged(log, path)

	return o.run(ctx, log, model, size, path, transcription.DefaultOptions(), "bytes")
}

// TranscribeFile transcribes the caller's file at path with greedy
// decoding, voice-activity filtering off and word timestamps off. The file
// is never modified or removed.
func (o *Orchestrator) TranscribeFile(ctx context.Context, path, size string) (*Result, error) {
	log := o.log.WithContext(ctx)

	model, err := o.models.Load(ctx, size)
	if err != nil {
		log.Error("File transcription error", logger.MergeWithError(logger.Fields(logger.FieldModel, size), err))
		return nil, err
	}

	if _, err := os.Stat(path); err != nil {
		return nil, errors.AudioNotFound(path)
	}

	if info, err := audio.InspectWAV(path); err != nil {
		log.Warn("Could not read WAV file info", logger.MergeWithError(logger.Fields(logger.FieldPath, path), err))
	} else {
		log.Info("WAV file info: "+info.String(), logger.Fields(logger.FieldPath, path))
	}

	return o.run(ctx, log, model, size, path, transcription.DebugOptions(), "file")
}

func (o *Orchestrator) run(ctx context.Context, log *logger.Logger, model transcription.Model, size, path string, opts transcription.Options, mode string) (*Result, error) {
	log.Info("Transcribing audio file: "+path, logger.Fields(logger.FieldModel, size))
	start := time.Now()

	transcript, err := o.transcribe(ctx, model, path, opts)
	if o.metrics != nil {
		status, segments := "ok", 0
		if err != nil {
			status = "error"
		} else {
			segments = transcript.SegmentCount
		}
		o.metrics.RecordTranscription(ctx, size, mode, status, time.Since(start), segments)
	}
	if err != nil {
		log.Error("Transcription error", logger.MergeWithError(logger.Fields(
			logger.FieldModel, size,
			logger.FieldPath, path,
		), err))
		return nil, errors.TranscriptionFailed(err)
	}

	fields := logger.DurationFields("transcribe", time.Since(start))
	fields["segments"] = transcript.SegmentCount
	log.Info(fmt.Sprintf("Transcription successful: '%s'", util.Truncate(transcript.Text, previewLength)), fields)

	return &Result{
		Text:                transcript.Text,
		Language:            transcript.Language,
		LanguageProbability: transcript.LanguageProbability,
		Segments:            transcript.SegmentCount,
		Model:               size,
		Duration:            transcript.Duration,
	}, nil
}

func (o *Orchestrator) transcribe(ctx context.Context, model transcription.Model, path string, opts transcription.Options) (*transcription.Transcript, error) {
	res, err := model.Transcribe(ctx, path, opts)
	if err != nil {
		return nil, err
	}
	return transcription.Aggregate(ctx, res)
}

// stage writes data to a fresh temporary file.
func (o *Orchestrator) stage(data []byte) (string, error) {
	f, err := os.CreateTemp(o.stagingDir, stagingPattern)
	if err != nil {
		return "", fmt.Errorf("create staging file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("write staging file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("close staging file: %w", err)
	}
	return f.Name(), nil
}

// removeStaged deletes a staged file. Failures are logged and never
// affect the request's outcome.
func (o *Orchestrator) removeStaged(log *logger.Logger, path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		log.Warn("failed to remove staged audio", logger.MergeWithError(logger.Fields(logger.FieldPath, path), err))
	}
}
