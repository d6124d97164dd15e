// Package validation validates decoded requests and configuration.
//
// Struct tag validation (go-playground/validator) is used for request
// payloads; the programmatic Validator collects errors for config sections.
//
// # Struct Tag Validation
//
//	type TranscribeFile struct {
//	    AudioFile string `json:"audio_file" validate:"required"`
//	    Model     string `json:"model" validate:"oneof=tiny base small medium large"`
//	}
//	err := validation.Validate(req)
//
// # Programmatic Validation
//
//	v := validation.New()
//	v.Required("whisper.command", cfg.Command)
//	err := v.Validate()
package validation
