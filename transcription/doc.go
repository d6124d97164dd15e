// Package transcription defines the contract between the sidecar and a
// speech-to-text backend: a loaded Model, decoding Options, the lazy
// Result it produces and Aggregate, which folds a Result into a Transcript.
//
// # Backends
//
//   - transcription/whisper: a long-lived whisper worker process per model
//
// # Usage
//
//	res, err := model.Transcribe(ctx, "/tmp/audio.wav", transcription.DefaultOptions())
//	if err != nil { ... }
//	transcript, err := transcription.Aggregate(ctx, res)
package transcription
