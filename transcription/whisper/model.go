package whisper

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kbukum/whisper-sidecar/logger"
	"github.com/kbukum/whisper-sidecar/process"
	"github.com/kbukum/whisper-sidecar/provider"
	"github.com/kbukum/whisper-sidecar/transcription"
	"github.com/kbukum/whisper-sidecar/util"
)

var (
	errBusy    = errors.New("whisper: worker is busy with an unfinished transcription")
	errTimeout = errors.New("whisper: timed out waiting for worker")
)

// compile-time assertions
var (
	_ transcription.Model = (*Model)(nil)
	_ provider.Closeable  = (*Model)(nil)
)

// Model is a running worker process holding one loaded model. It serves
// one transcription at a time.
type Model struct {
	name         string
	proc         *process.Process
	log          *logger.Logger
	drainTimeout time.Duration

	events    chan workerEvent
	quit      chan struct{}
	closeOnce sync.Once
	broken    atomic.Bool

	mu     sync.Mutex
	active *segmentStream
}

func newModel(name string, proc *process.Process, drainTimeout time.Duration, log *logger.Logger) *Model {
	m := &Model{
		name:         name,
		proc:         proc,
		log:          log,
		drainTimeout: drainTimeout,
		events:       make(chan workerEvent),
		quit:         make(chan struct{}),
	}
	go m.pump()
	return m
}

// Name returns the model size this worker was loaded for.
func (m *Model) Name() string { return m.name }

// IsAvailable reports whether the worker is alive and in a known state.
func (m *Model) IsAvailable(ctx context.Context) bool {
	return !m.broken.Load() && !m.proc.Exited()
}

// Close stops the worker.
func (m *Model) Close(ctx context.Context) error {
	var err error
	m.closeOnce.Do(func() {
		close(m.quit)
		err = m.proc.Stop()
	})
	return err
}

// Transcribe sends one request to the worker and returns once the worker
// has reported the detection info. Segments are read from the worker as
// the caller pulls them.
func (m *Model) Transcribe(ctx context.Context, audioPath string, opts transcription.Options) (*transcription.Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active != nil {
		return nil, errBusy
	}
	if m.proc.Exited() {
		return nil, m.exitError()
	}

	line, err := json.Marshal(workerRequest{Audio: audioPath, Options: opts})
	if err != nil {
		return nil, fmt.Errorf("whisper: encode request: %w", err)
	}
	if _, err := m.proc.Stdin.Write(append(line, '\n')); err != nil {
		m.abandon()
		return nil, fmt.Errorf("whisper: send request: %w", err)
	}

	for {
		ev, err := m.next(ctx, nil)
		if err != nil {
			m.abandon()
			return nil, err
		}
		switch ev.Event {
		case eventInfo:
			m.active = &segmentStream{model: m}
			return &transcription.Result{Info: ev.info(), Segments: m.active}, nil
		case eventError:
			return nil, &WorkerError{Message: ev.Error}
		case eventDone:
			return &transcription.Result{Segments: provider.FromSlice[transcription.Segment](nil)}, nil
		default:
			m.log.Debug("ignoring out-of-order worker event", logger.Fields("event", ev.Event))
		}
	}
}

// pump decodes worker stdout into events until the stream ends.
func (m *Model) pump() {
	defer close(m.events)
	r := bufio.NewReader(m.proc.Stdout)
	for {
		line, err := r.ReadBytes('\n')
		if line = bytes.TrimSpace(line); len(line) > 0 {
			var ev workerEvent
			if jerr := json.Unmarshal(line, &ev); jerr != nil || ev.Event == "" {
				m.log.Warn("ignoring unrecognized worker output", logger.Fields(
					"line", util.Truncate(string(line), 200),
				))
			} else {
				select {
				case m.events <- ev:
				case <-m.quit:
					return
				}
			}
		}
		if err != nil {
			return
		}
	}
}

// next waits for the next worker event. A nil timeout waits indefinitely.
func (m *Model) next(ctx context.Context, timeout <-chan time.Time) (workerEvent, error) {
	select {
	case ev, ok := <-m.events:
		if !ok {
			return workerEvent{}, m.exitError()
		}
		return ev, nil
	case <-ctx.Done():
		return workerEvent{}, ctx.Err()
	case <-timeout:
		return workerEvent{}, errTimeout
	}
}

func (m *Model) awaitReady(ctx context.Context, timeout time.Duration) error {
	timer, stop := waitTimer(timeout)
	defer stop()
	for {
		ev, err := m.next(ctx, timer)
		if errors.Is(err, errTimeout) {
			return fmt.Errorf("whisper worker for %s not ready after %s", m.name, timeout)
		}
		if err != nil {
			return err
		}
		switch ev.Event {
		case eventReady:
			return nil
		case eventError:
			return &WorkerError{Message: ev.Error}
		default:
			m.log.Debug("ignoring worker event before ready", logger.Fields("event", ev.Event))
		}
	}
}

// exitError describes a worker whose output ended.
func (m *Model) exitError() error {
	timer, stop := waitTimer(m.drainTimeout)
	defer stop()
	select {
	case <-m.proc.Done():
		return fmt.Errorf("whisper worker exited unexpectedly (exit code %d)", m.proc.ExitCode())
	case <-timer:
		return errors.New("whisper worker closed its output")
	}
}

// abandon marks the worker unusable after it was left mid-protocol and
// stops it in the background. The model cache replaces it on next use.
func (m *Model) abandon() {
	if m.broken.Swap(true) {
		return
	}
	m.log.Warn("abandoning whisper worker in unknown state")
	go func() { _ = m.Close(context.Background()) }()
}

func (m *Model) finish(s *segmentStream) {
	m.mu.Lock()
	if m.active == s {
		m.active = nil
	}
	m.mu.Unlock()
}

// segmentStream pulls segment events for one transcription.
type segmentStream struct {
	model    *Model
	finished bool
	err      error
}

func (s *segmentStream) Next(ctx context.Context) (transcription.Segment, bool, error) {
	var zero transcription.Segment
	for !s.finished {
		ev, err := s.model.next(ctx, nil)
		if err != nil {
			if ctx.Err() != nil {
				s.model.abandon()
			}
			s.end(err)
			break
		}
		switch ev.Event {
		case eventSegment:
			return ev.segment(), true, nil
		case eventDone:
			s.end(nil)
		case eventError:
			s.end(&WorkerError{Message: ev.Error})
		default:
			s.model.log.Debug("ignoring worker event mid-stream", logger.Fields("event", ev.Event))
		}
	}
	return zero, false, s.err
}

// Close drains the rest of the transcription so the worker is ready for
// the next request. A worker that does not finish in time is abandoned.
func (s *segmentStream) Close() error {
	if s.finished {
		return nil
	}
	timer, stop := waitTimer(s.model.drainTimeout)
	defer stop()
	for !s.finished {
		ev, err := s.model.next(context.Background(), timer)
		if err != nil {
			s.model.abandon()
			s.end(err)
			break
		}
		if ev.Event == eventDone || ev.Event == eventError {
			s.end(nil)
		}
	}
	return nil
}

func (s *segmentStream) end(err error) {
	s.finished = true
	s.err = err
	s.model.finish(s)
}
