package whisper

import (
	"github.com/kbukum/whisper-sidecar/transcription"
)

// Worker events, one JSON object per stdout line.
const (
	eventReady   = "ready"
	eventInfo    = "info"
	eventSegment = "segment"
	eventDone    = "done"
	eventError   = "error"
)

// workerRequest is one line on the worker's stdin.
type workerRequest struct {
	Audio string `json:"audio"`
	transcription.Options
}

// workerEvent is one line on the worker's stdout. Fields are populated
// according to Event.
type workerEvent struct {
	Event string `json:"event"`
	Error string `json:"error,omitempty"`

	Language            string  `json:"language,omitempty"`
	LanguageProbability float64 `json:"language_probability,omitempty"`
	Duration            float64 `json:"duration,omitempty"`

	ID    int     `json:"id,omitempty"`
	Start float64 `json:"start,omitempty"`
	End   float64 `json:"end,omitempty"`
	Text  string  `json:"text,omitempty"`
}

func (e workerEvent) info() transcription.Info {
	return transcription.Info{
		Language:            e.Language,
		LanguageProbability: e.LanguageProbability,
		Duration:            e.Duration,
	}
}

func (e workerEvent) segment() transcription.Segment {
	return transcription.Segment{ID: e.ID, Start: e.Start, End: e.End, Text: e.Text}
}

// WorkerError is a failure reported by the worker itself. Its message is
// the worker's, unchanged.
type WorkerError struct {
	Message string
}

func (e *WorkerError) Error() string { return e.Message }
