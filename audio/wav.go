// Package audio inspects audio files handed to the transcriber.
package audio

import (
	"fmt"
	"os"
	"time"

	"github.com/go-audio/wav"
)

// WAVInfo is the header summary of a PCM WAV file.
type WAVInfo struct {
	Frames     int64
	SampleRate int
	Channels   int
	BitDepth   int
	Duration   time.Duration
}

// String formats the summary the way the sidecar logs it.
func (i WAVInfo) String() string {
	return fmt.Sprintf("%d frames, %dHz, %d channels, %.2fs",
		i.Frames, i.SampleRate, i.Channels, i.Duration.Seconds())
}

// InspectWAV reads the header of the WAV file at path. It does not decode
// samples.
func InspectWAV(path string) (*WAVInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	d := wav.NewDecoder(f)
	d.ReadInfo()
	if err := d.Err(); err != nil {
		return nil, fmt.Errorf("read wav header: %w", err)
	}
	if d.NumChans == 0 || d.BitDepth == 0 || d.SampleRate == 0 {
		return nil, fmt.Errorf("not a PCM wav file: %s", path)
	}
	if err := d.FwdToPCM(); err != nil {
		return nil, fmt.Errorf("locate wav data: %w", err)
	}

	frameSize := int64(d.NumChans) * int64(d.BitDepth) / 8
	if frameSize == 0 {
		return nil, fmt.Errorf("invalid wav frame size in %s", path)
	}
	frames := d.PCMLen() / frameSize
	return &WAVInfo{
		Frames:     frames,
		SampleRate: int(d.SampleRate),
		Channels:   int(d.NumChans),
		BitDepth:   int(d.BitDepth),
		Duration:   time.Duration(float64(frames) / float64(d.SampleRate) * float64(time.Second)),
	}, nil
}
