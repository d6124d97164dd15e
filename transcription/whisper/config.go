package whisper

import (
	"time"

	"github.com/kbukum/whisper-sidecar/validation"
)

const (
	// ProviderName identifies the whisper backend in logs.
	ProviderName = "whisper"

	// Device is the execution device every worker is pinned to.
	Device = "cpu"
	// ComputeType is the weight quantization every worker uses.
	ComputeType = "int8"

	defaultCommand         = "whisper-worker"
	defaultCheckTimeout    = 30 * time.Second
	defaultInstallTimeout  = 15 * time.Minute
	defaultStopGracePeriod = 5 * time.Second
)

// Config configures how whisper workers are launched.
type Config struct {
	// Command is the worker executable.
	Command string `yaml:"command" mapstructure:"command"`
	// Args are passed before the worker flags, e.g. a script path.
	Args []string `yaml:"args" mapstructure:"args"`
	// Env is additional environment for the worker (key=value).
	Env []string `yaml:"env" mapstructure:"env"`
	// DownloadRoot is where the worker caches downloaded models.
	DownloadRoot string `yaml:"download_root" mapstructure:"download_root"`
	// InstallCommand provisions the worker when the capability check fails.
	// Empty disables the install attempt.
	InstallCommand []string `yaml:"install_command" mapstructure:"install_command"`
	// StartTimeout bounds model loading, which may include a download.
	// Zero waits indefinitely.
	StartTimeout time.Duration `yaml:"start_timeout" mapstructure:"start_timeout"`
	// CheckTimeout bounds the capability probe.
	CheckTimeout time.Duration `yaml:"check_timeout" mapstructure:"check_timeout"`
	// InstallTimeout bounds the install command.
	InstallTimeout time.Duration `yaml:"install_timeout" mapstructure:"install_timeout"`
	// StopGracePeriod is how long a worker gets at each shutdown step.
	StopGracePeriod time.Duration `yaml:"stop_grace_period" mapstructure:"stop_grace_period"`
}

// ApplyDefaults fills unset fields.
func (c *Config) ApplyDefaults() {
	if c.Command == "" {
		c.Command = defaultCommand
	}
	if c.CheckTimeout <= 0 {
		c.CheckTimeout = defaultCheckTimeout
	}
	if c.InstallTimeout <= 0 {
		c.InstallTimeout = defaultInstallTimeout
	}
	if c.StopGracePeriod <= 0 {
		c.StopGracePeriod = defaultStopGracePeriod
	}
}

// Validate checks the configuration after defaults are applied.
func (c *Config) Validate() error {
	v := validation.New()
	v.Required("whisper.command", c.Command)
	if len(c.InstallCommand) > 0 {
		v.Required("whisper.install_command[0]", c.InstallCommand[0])
	}
	v.Custom(c.StartTimeout >= 0, "whisper.start_timeout", "must not be negative")
	v.Custom(c.CheckTimeout > 0, "whisper.check_timeout", "must be positive")
	return v.Validate()
}
