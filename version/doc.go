// Package version exposes build information for --version output and the
// startup log line.
//
// Values are set at compile time via -ldflags:
//
//	go build -ldflags "-X github.com/kbukum/whisper-sidecar/version.Version=1.0.0"
package version
