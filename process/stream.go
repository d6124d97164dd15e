package process

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"
)

// Process is a long-lived subprocess driven over its standard streams.
// It is not bound to any context: callers end it with Stop.
type Process struct {
	// Stdin writes to the process's standard input.
	Stdin io.WriteCloser
	// Stdout reads the process's standard output. It reaches EOF once every
	// holder of the write end has exited.
	Stdout io.ReadCloser

	cmd         *exec.Cmd
	gracePeriod time.Duration
	done        chan struct{}
	waitErr     error
	stopOnce    sync.Once
	stopErr     error
}

// Start launches cmd in its own process group and returns once it is
// running. Command.Stdin and Command.Stdout are ignored.
func Start(cmd Command) (*Process, error) {
	if cmd.Binary == "" {
		return nil, fmt.Errorf("process: binary is required")
	}

	c := exec.Command(cmd.Binary, cmd.Args...) //nolint:gosec // dynamic args are the purpose of this package
	c.Dir = cmd.Dir
	c.Env = mergeEnv(cmd.Env)
	c.Stderr = cmd.Stderr
	c.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	c.WaitDelay = cmd.gracePeriod()

	stdin, err := c.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("process: stdin pipe: %w", err)
	}

	// An os.Pipe rather than StdoutPipe: Wait must not close the read end
	// while buffered output is still unread.
	stdoutR, stdoutW, err := os.Pipe()
	if err != nil {
		_ = stdin.Close()
		return nil, fmt.Errorf("process: stdout pipe: %w", err)
	}
	c.Stdout = stdoutW

	if err := c.Start(); err != nil {
		_ = stdin.Close()
		_ = stdoutR.Close()
		_ = stdoutW.Close()
		return nil, fmt.Errorf("process: start %s: %w", cmd.Binary, err)
	}
	_ = stdoutW.Close()

	p := &Process{
		Stdin:       stdin,
		Stdout:      stdoutR,
		cmd:         c,
		gracePeriod: cmd.gracePeriod(),
		done:        make(chan struct{}),
	}
	go func() {
		p.waitErr = c.Wait()
		close(p.done)
	}()
	return p, nil
}

// Pid returns the process id.
func (p *Process) Pid() int {
	return p.cmd.Process.Pid
}

// Done is closed once the process has exited.
func (p *Process) Done() <-chan struct{} {
	return p.done
}

// Exited reports whether the process has exited.
func (p *Process) Exited() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}

// Wait blocks until the process exits and returns its exit error.
func (p *Process) Wait() error {
	<-p.done
	return p.waitErr
}

// ExitCode returns the exit code, or -1 while running or when killed by a signal.
func (p *Process) ExitCode() int {
	if !p.Exited() {
		return -1
	}
	return p.cmd.ProcessState.ExitCode()
}

// Stop ends the process: stdin is closed so a well-behaved process can
// exit on its own, then SIGTERM goes to the process group after the grace
// period and SIGKILL after another. Stop is idempotent.
func (p *Process) Stop() error {
	p.stopOnce.Do(func() {
		_ = p.Stdin.Close()
		if !p.waitFor(p.gracePeriod) {
			_ = p.signal(syscall.SIGTERM)
			if !p.waitFor(p.gracePeriod) {
				_ = p.signal(syscall.SIGKILL)
				<-p.done
			}
		}
		_ = p.Stdout.Close()

		var exitErr *exec.ExitError
		if p.waitErr != nil && !errors.As(p.waitErr, &exitErr) {
			p.stopErr = p.waitErr
		}
	})
	return p.stopErr
}

func (p *Process) waitFor(d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-p.done:
		return true
	case <-t.C:
		return false
	}
}

func (p *Process) signal(sig syscall.Signal) error {
	if p.Exited() {
		return nil
	}
	return syscall.Kill(-p.cmd.Process.Pid, sig)
}
