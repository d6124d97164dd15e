package transcription

import (
	"github.com/kbukum/whisper-sidecar/provider"
	"github.com/kbukum/whisper-sidecar/util"
)

// Segment represents a time-aligned portion of a transcript.
type Segment struct {
	// ID is the segment's position as numbered by the transcriber.
	ID int `json:"id"`
	// Start is the segment start time in seconds.
	Start float64 `json:"start"`
	// End is the segment end time in seconds.
	End float64 `json:"end"`
	// Text is the transcribed text for this segment, including any
	// leading whitespace the transcriber produced.
	Text string `json:"text"`
}

// Info describes the audio as detected by the transcriber.
type Info struct {
	// Language is the detected language code (e.g. "en").
	Language string `json:"language"`
	// LanguageProbability is the detection confidence in [0, 1].
	LanguageProbability float64 `json:"language_probability"`
	// Duration is the audio duration in seconds.
	Duration float64 `json:"duration"`
}

// Options are decoding parameters. A nil or empty field leaves the
// transcriber's default in place.
type Options struct {
	BeamSize       *int   `json:"beam_size,omitempty"`
	VADFilter      *bool  `json:"vad_filter,omitempty"`
	WordTimestamps *bool  `json:"word_timestamps,omitempty"`
	Language       string `json:"language,omitempty"`
}

// DefaultOptions leaves every decoding parameter at the transcriber default.
func DefaultOptions() Options {
	return Options{}
}

// DebugOptions selects greedy decoding with voice-activity filtering and
// word timestamps off, for fast and predictable runs on known files.
func DebugOptions() Options {
	return Options{
		BeamSize:       util.Ptr(1),
		VADFilter:      util.Ptr(false),
		WordTimestamps: util.Ptr(false),
	}
}

// Result is what a transcriber returns: detection info available up
// front and a lazy, finite, single-pass sequence of segments.
type Result struct {
	Info     Info
	Segments provider.Iterator[Segment]
}

// Transcript is a fully consumed Result.
type Transcript struct {
	Text                string
	Language            string
	LanguageProbability float64
	SegmentCount        int
	Duration            float64
}
