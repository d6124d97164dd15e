// Package logger provides structured diagnostic logging using zerolog.
//
// All output goes to stderr. The sidecar's stdout is the response channel
// and must only ever carry protocol lines, so there is no stdout option.
//
// # Configuration
//
//	logging:
//	  level: "info"
//	  format: "console"
//
// # Usage
//
//	log := logger.Get("orchestrator")
//	log.Info("transcribing", logger.Fields("path", path))
package logger
