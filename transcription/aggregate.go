package transcription

import (
	"context"
	"strings"
)

// Aggregate consumes every segment of res and builds the transcript.
// Segment texts are concatenated with no separator and only the ends of the
// concatenation are trimmed, so whitespace inside it is preserved. The
// segment sequence is closed before returning.
func Aggregate(ctx context.Context, res *Result) (_ *Transcript, err error) {
	defer func() {
		if cerr := res.Segments.Close(); err == nil && cerr != nil {
			err = cerr
		}
	}()

	var b strings.Builder
	count := 0
	for {
		seg, ok, err := res.Segments.Next(ctx)
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		b.WriteString(seg.Text)
		count++
	}

	return &Transcript{
		Text:                strings.TrimSpace(b.String()),
		Language:            res.Info.Language,
		LanguageProbability: res.Info.LanguageProbability,
		SegmentCount:        count,
		Duration:            res.Info.Duration,
	}, nil
}
