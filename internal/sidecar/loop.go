// Package sidecar runs the request loop: one request line in, one
// response line out, strictly in order.
package sidecar

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"runtime/debug"

	"github.com/google/uuid"

	"github.com/kbukum/whisper-sidecar/errors"
	"github.com/kbukum/whisper-sidecar/internal/orchestrator"
	"github.com/kbukum/whisper-sidecar/internal/protocol"
	"github.com/kbukum/whisper-sidecar/logger"
	"github.com/kbukum/whisper-sidecar/observability"
)

const (
	statusOK    = "ok"
	statusError = "error"

	// actionInvalid labels lines that never decoded to an action.
	actionInvalid = "invalid"
)

// Transcriber runs transcriptions for the loop.
type Transcriber interface {
	TranscribeBytes(ctx context.Context, data []byte, size string) (*orchestrator.Result, error)
	TranscribeFile(ctx context.Context, path, size string) (*orchestrator.Result, error)
}

// Loop reads requests and writes responses.
type Loop struct {
	transcriber Transcriber
	in          *protocol.Reader
	out         *protocol.Writer
	metrics     *observability.Metrics
	log         *logger.Logger
}

// Option configures a Loop.
type Option func(*Loop)

// WithMetrics records request metrics on m.
func WithMetrics(m *observability.Metrics) Option {
	return func(l *Loop) { l.metrics = m }
}

// WithLogger sets the loop's logger.
func WithLogger(log *logger.Logger) Option {
	return func(l *Loop) { l.log = log }
}

// NewLoop creates a Loop reading requests from in and writing responses to out.
func NewLoop(t Transcriber, in io.Reader, out io.Writer, opts ...Option) *Loop {
	l := &Loop{
		transcriber: t,
		in:          protocol.NewReader(in),
		out:         protocol.NewWriter(out),
		log:         logger.Nop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.log = l.log.WithComponent("loop")
	return l
}

// Run serves requests until the input ends or ctx is canceled. End of
// input returns nil; cancellation returns ctx.Err(). Each response is
// written and flushed before the next line is read.
func (l *Loop) Run(ctx context.Context) error {
	l.log.Info("Ready for transcription requests")
	for {
		line, err := l.readLine(ctx)
		if err != nil {
			if stderrors.Is(err, io.EOF) {
				l.log.Info("Input closed, stopping request loop")
				return nil
			}
			return err
		}
		if err := l.out.Write(l.Handle(ctx, line)); err != nil {
			return err
		}
	}
}

type readResult struct {
	line []byte
	err  error
}

// readLine reads one line, giving up when ctx is canceled.
func (l *Loop) readLine(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ch := make(chan readResult, 1)
	go func() {
		line, err := l.in.ReadLine()
		ch <- readResult{line: line, err: err}
	}()
	select {
	case r := <-ch:
		return r.line, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Handle turns one request line into its response. It never panics and
// never returns nil.
func (l *Loop) Handle(ctx context.Context, line []byte) (resp any) {
	requestID := uuid.NewString()
	ctx = logger.ContextWithRequestID(ctx, requestID)

	req, decodeErr := protocol.Decode(line)
	action := actionInvalid
	if req != nil {
		action = req.Action
	}

	ctx, op := observability.StartOperation(ctx, action, requestID, l.metrics)
	log := l.log.WithContext(ctx).WithFields(logger.Fields(logger.FieldAction, action))

	defer func() {
		if r := recover(); r != nil {
			msg := fmt.Sprint(r)
			log.Error("Request processing error: "+msg, logger.Fields(
				logger.FieldError, msg,
				logger.FieldStack, string(debug.Stack()),
			))
			err := errors.Internal(stderrors.New(msg))
			l.recordError(ctx, err)
			op.End(ctx, statusError, err)
			resp = protocol.Error{Error: msg}
		}
	}()

	if decodeErr != nil {
		log.Warn("Rejected request: "+errors.Message(decodeErr), logger.ErrorFields("decode", decodeErr))
		return l.fail(ctx, op, decodeErr)
	}

	out, err := l.dispatch(ctx, log, req)
	if err != nil {
		log.Error("Request failed: "+errors.Message(err), logger.ErrorFields(action, err))
		return l.fail(ctx, op, err)
	}
	op.End(ctx, statusOK, nil)
	return out
}

func (l *Loop) dispatch(ctx context.Context, log *logger.Logger, req *protocol.Request) (any, error) {
	switch req.Action {
	case protocol.ActionPing:
		return protocol.Pong{Pong: true}, nil

	case protocol.ActionTranscribe:
		p := req.Transcribe
		log.Info(fmt.Sprintf("Processing transcription request: %d bytes, model: %s", len(p.AudioData), p.Model))
		res, err := l.transcriber.TranscribeBytes(ctx, p.AudioData, p.Model)
		if err != nil {
			return nil, err
		}
		return success(res), nil

	case protocol.ActionTranscribeFile:
		p := req.TranscribeFile
		log.Info(fmt.Sprintf("Processing transcription from file: %s, model: %s", p.AudioFile, p.Model))
		res, err := l.transcriber.TranscribeFile(ctx, p.AudioFile, p.Model)
		if err != nil {
			return nil, err
		}
		return success(res), nil

	default:
		return nil, errors.UnknownAction(req.Action)
	}
}

func (l *Loop) fail(ctx context.Context, op *observability.Operation, err error) protocol.Error {
	l.recordError(ctx, err)
	op.End(ctx, statusError, err)
	return protocol.NewError(err)
}

func (l *Loop) recordError(ctx context.Context, err error) {
	if l.metrics == nil {
		return
	}
	code := errors.ErrCodeInternal
	if appErr, ok := errors.AsAppError(err); ok {
		code = appErr.Code
	}
	l.metrics.RecordError(ctx, string(code), "sidecar")
}

func success(r *orchestrator.Result) protocol.Success {
	return protocol.Success{
		Success:             true,
		Text:                r.Text,
		Language:            r.Language,
		LanguageProbability: r.LanguageProbability,
		Segments:            r.Segments,
		Model:               r.Model,
		Duration:            r.Duration,
	}
}
