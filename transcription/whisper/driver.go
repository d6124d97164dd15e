package whisper

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kbukum/whisper-sidecar/logger"
	"github.com/kbukum/whisper-sidecar/process"
)

// ErrNoInstaller is returned by Install when no install command is configured.
var ErrNoInstaller = errors.New("whisper: no install command configured")

// Driver launches and probes whisper workers.
type Driver struct {
	cfg Config
	log *logger.Logger
}

// NewDriver creates a Driver. Worker stderr and install output are logged
// through log, so they end up on the sidecar's stderr.
func NewDriver(cfg Config, log *logger.Logger) *Driver {
	cfg.ApplyDefaults()
	if log == nil {
		log = logger.Nop()
	}
	log = log.WithComponent(ProviderName)
	return &Driver{cfg: cfg, log: log}
}

// Check probes whether the worker can be launched at all.
func (d *Driver) Check(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, d.cfg.CheckTimeout)
	defer cancel()

	args := append(append([]string{}, d.cfg.Args...), "--check")
	res, err := process.Run(ctx, process.Command{
		Binary:      d.cfg.Command,
		Args:        args,
		Env:         d.cfg.Env,
		Stderr:      d.log.Writer(),
		GracePeriod: d.cfg.StopGracePeriod,
	})
	if err != nil {
		if res != nil {
			if tail := lastLine(res.Stderr); tail != "" {
				return fmt.Errorf("%s --check: %s", d.cfg.Command, tail)
			}
		}
		return fmt.Errorf("%s --check: %w", d.cfg.Command, err)
	}
	return nil
}

// CanInstall reports whether an install command is configured.
func (d *Driver) CanInstall() bool {
	return len(d.cfg.InstallCommand) > 0
}

// Install runs the configured install command once. All of its output is
// redirected to the log so nothing reaches the protocol stream.
func (d *Driver) Install(ctx context.Context) error {
	if len(d.cfg.InstallCommand) == 0 {
		return ErrNoInstaller
	}
	ctx, cancel := context.WithTimeout(ctx, d.cfg.InstallTimeout)
	defer cancel()

	_, err := process.Run(ctx, process.Command{
		Binary:      d.cfg.InstallCommand[0],
		Args:        d.cfg.InstallCommand[1:],
		Stdout:      d.log.Writer(),
		Stderr:      d.log.Writer(),
		GracePeriod: d.cfg.StopGracePeriod,
	})
	if err != nil {
		return fmt.Errorf("install: %w", err)
	}
	return nil
}

// Load starts a worker for the model named name, loading it from ref (a
// size name or a local model path), and waits until it reports ready.
func (d *Driver) Load(ctx context.Context, name, ref string) (*Model, error) {
	args := append([]string{}, d.cfg.Args...)
	args = append(args,
		"--model", ref,
		"--device", Device,
		"--compute-type", ComputeType,
	)
	if d.cfg.DownloadRoot != "" {
		args = append(args, "--download-root", d.cfg.DownloadRoot)
	}

	proc, err := process.Start(process.Command{
		Binary:      d.cfg.Command,
		Args:        args,
		Env:         d.cfg.Env,
		Stderr:      d.log.Writer(),
		GracePeriod: d.cfg.StopGracePeriod,
	})
	if err != nil {
		return nil, err
	}

	m := newModel(name, proc, d.cfg.StopGracePeriod, d.log.WithFields(logger.Fields(logger.FieldModel, name)))
	if err := m.awaitReady(ctx, d.cfg.StartTimeout); err != nil {
		_ = proc.Stop()
		return nil, err
	}
	d.log.Debug("whisper worker ready", logger.Fields(
		logger.FieldModel, name,
		"ref", ref,
		"pid", proc.Pid(),
	))
	return m, nil
}

func lastLine(b []byte) string {
	b = bytes.TrimSpace(b)
	if i := bytes.LastIndexByte(b, '\n'); i >= 0 {
		b = b[i+1:]
	}
	return string(bytes.TrimSpace(b))
}

// waitTimer returns a channel that fires after d. A non-positive d
// returns a nil channel, which never fires.
func waitTimer(d time.Duration) (<-chan time.Time, func()) {
	if d <= 0 {
		return nil, func() {}
	}
	t := time.NewTimer(d)
	return t.C, func() { t.Stop() }
}
