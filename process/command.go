package process

import (
	"io"
	"time"
)

// Command configures a subprocess to execute.
type Command struct {
	// Binary is the executable path or name (resolved via PATH).
	Binary string
	// Args are the command-line arguments.
	Args []string
	// Dir is the working directory. If empty, uses the current directory.
	Dir string
	// Env is additional environment variables (key=value). Merged with os.Environ.
	Env []string
	// Stdin provides input to a process started with Run. May be nil.
	Stdin io.Reader
	// Stdout receives a copy of the process's standard output when run with
	// Run. Start ignores it: the output is exposed as Process.Stdout.
	Stdout io.Writer
	// Stderr receives the process's standard error as it is written.
	Stderr io.Writer
	// GracePeriod is how long to wait after SIGTERM before SIGKILL.
	// Defaults to 5 seconds if zero.
	GracePeriod time.Duration
}

func (c Command) gracePeriod() time.Duration {
	if c.GracePeriod <= 0 {
		return 5 * time.Second
	}
	return c.GracePeriod
}
