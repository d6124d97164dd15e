// Package process runs subprocesses in their own process group.
//
// Run executes a one-shot command and captures its output. Start launches
// a long-lived process driven over stdin and stdout and stopped with
// escalating signals.
package process
