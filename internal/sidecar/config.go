package sidecar

import (
	"fmt"

	"github.com/kbukum/whisper-sidecar/config"
	"github.com/kbukum/whisper-sidecar/observability"
	"github.com/kbukum/whisper-sidecar/transcription/whisper"
	"github.com/kbukum/whisper-sidecar/util"
)

// ServiceName is the default service name. Its first three letters form
// the console log tag.
const ServiceName = "whisper-sidecar"

// Sections are the config keys bound from nested environment variables,
// e.g. WHISPER_COMMAND to whisper.command.
var Sections = []string{"whisper", "models", "staging", "telemetry"}

// Config is the sidecar's full configuration.
type Config struct {
	config.ServiceConfig `yaml:",inline" mapstructure:",squash"`

	Whisper   whisper.Config       `yaml:"whisper" mapstructure:"whisper"`
	Models    ModelsConfig         `yaml:"models" mapstructure:"models"`
	Staging   StagingConfig        `yaml:"staging" mapstructure:"staging"`
	Telemetry observability.Config `yaml:"telemetry" mapstructure:"telemetry"`
}

// ModelsConfig locates offline model files.
type ModelsConfig struct {
	// Dir holds <size>, <size>.bin or <size>.pt files and an optional
	// manifest.json. Empty means every model is fetched by the worker.
	Dir string `yaml:"dir" mapstructure:"dir"`
}

// StagingConfig controls where inline audio is written before transcription.
type StagingConfig struct {
	// Dir is the staging directory. Empty means the system temp directory.
	Dir string `yaml:"dir" mapstructure:"dir"`
}

// ApplyDefaults fills unset fields.
func (c *Config) ApplyDefaults() {
	c.Name = util.Coalesce(c.Name, ServiceName)
	c.ServiceConfig.ApplyDefaults()
	c.Whisper.ApplyDefaults()
	c.Telemetry.ApplyDefaults()
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if err := c.ServiceConfig.Validate(); err != nil {
		return err
	}
	if err := c.Whisper.Validate(); err != nil {
		return fmt.Errorf("config.whisper: %w", err)
	}
	if c.Telemetry.SampleRate > 1 {
		return fmt.Errorf("config.telemetry.sample_rate must be between 0 and 1 (got: %v)", c.Telemetry.SampleRate)
	}
	return nil
}
