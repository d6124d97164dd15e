package bootstrap

import (
	"github.com/kbukum/whisper-sidecar/config"
)

// Config is satisfied by any struct embedding config.ServiceConfig whose
// ApplyDefaults and Validate cover its own sections as well:
//
//	type Config struct {
//	    config.ServiceConfig `yaml:",inline" mapstructure:",squash"`
//	    Whisper whisper.Config `yaml:"whisper" mapstructure:"whisper"`
//	}
type Config interface {
	GetServiceConfig() *config.ServiceConfig
	ApplyDefaults()
	Validate() error
}
