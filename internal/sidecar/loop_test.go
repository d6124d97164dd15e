package sidecar

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/kbukum/whisper-sidecar/errors"
	"github.com/kbukum/whisper-sidecar/internal/orchestrator"
	"github.com/kbukum/whisper-sidecar/logger"
	"github.com/kbukum/whisper-sidecar/observability"
	"go.opentelemetry.io/otel/metric/noop"
)

type fakeTranscriber struct {
	bytesCalls []string
	fileCalls  []string
}

func (f *fakeTranscriber) TranscribeBytes(ctx context.Context, data []byte, size string) (*orchestrator.Result, error) {
	f.bytesCalls = append(f.bytesCalls, string(data)+"|"+size)
	return &orchestrator.Result{
		Text: "Hello world", Language: "en", LanguageProbability: 0.9,
		Segments: 2, Model: size, Duration: 1.5,
	}, nil
}

func (f *fakeTranscriber) TranscribeFile(ctx context.Context, path, size string) (*orchestrator.Result, error) {
	f.fileCalls = append(f.fileCalls, path+"|"+size)
	switch path {
	case "/missing.wav":
		return nil, errors.AudioNotFound(path)
	case "/panic.wav":
		panic("segment iterator exploded")
	case "/nilmap.wav":
		var m map[string]int
		m["x"] = 1
	}
	return &orchestrator.Result{Text: "file text", Language: "de", Segments: 1, Model: size}, nil
}

func runLoop(t *testing.T, input string, ft *fakeTranscriber) []string {
	t.Helper()
	var out bytes.Buffer
	loop := NewLoop(ft, strings.NewReader(input), &out, WithLogger(logger.Nop()))
	if err := loop.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	s := strings.TrimSuffix(out.String(), "\n")
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}

func decodeLine(t *testing.T, line string) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal([]byte(line), &m); err != nil {
		t.Fatalf("response %q is not JSON: %v", line, err)
	}
	return m
}

func TestRunOneResponsePerRequestInOrder(t *testing.T) {
	input := strings.Join([]string{
		`{"action":"ping"}`,
		`not json`,
		`{"action":"dance"}`,
		`{"action":"transcribe","audio_data":[65,66],"model":"base"}`,
		`{"action":"transcribe_file","audio_file":"/missing.wav"}`,
		``,
		`{"action":"transcribe_file","audio_file":"/ok.wav","model":"small"}`,
		`{"action":"ping"}`,
	}, "\n") + "\n"

	ft := &fakeTranscriber{}
	lines := runLoop(t, input, ft)

	want := []string{
		`{"pong":true}`,
		`{"error":"Invalid JSON request"}`,
		`{"error":"Unknown action: dance"}`,
		`{"success":true,"text":"Hello world","language":"en","language_probability":0.9,"segments":2,"model":"base","duration":1.5}`,
		`{"error":"Audio file not found: /missing.wav"}`,
		`{"error":"Invalid JSON request"}`,
		`{"success":true,"text":"file text","language":"de","language_probability":0,"segments":1,"model":"small","duration":0}`,
		`{"pong":true}`,
	}
	if len(lines) != len(want) {
		t.Fatalf("expected %d responses, got %d: %q", len(want), len(lines), lines)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("response %d:\n got %s\nwant %s", i, lines[i], want[i])
		}
	}

	if len(ft.bytesCalls) != 1 || ft.bytesCalls[0] != "AB|base" {
		t.Errorf("unexpected bytes calls %v", ft.bytesCalls)
	}
	if len(ft.fileCalls) != 2 || ft.fileCalls[0] != "/missing.wav|tiny" {
		t.Errorf("unexpected file calls %v", ft.fileCalls)
	}
}

func TestRunTranscribeFileWireFields(t *testing.T) {
	input := `{"action":"transcribe_file","audio_file":"/tmp/x.wav"}` + "\n" +
		`{"action":"transcribe_file","audio_file":"/tmp/y.wav","model":"medium"}` + "\n" +
		`{"action":"transcribe_file","audio_path":"/tmp/z.wav"}` + "\n" +
		`{"audio_file":"/tmp/x.wav"}` + "\n"

	ft := &fakeTranscriber{}
	lines := runLoop(t, input, ft)

	want := []string{"/tmp/x.wav|tiny", "/tmp/y.wav|medium"}
	if len(ft.fileCalls) != len(want) {
		t.Fatalf("expected %d file transcriptions, got %v", len(want), ft.fileCalls)
	}
	for i := range want {
		if ft.fileCalls[i] != want[i] {
			t.Errorf("call %d = %q, want %q", i, ft.fileCalls[i], want[i])
		}
	}

	if len(lines) != 4 {
		t.Fatalf("expected 4 responses, got %q", lines)
	}
	if ok, _ := decodeLine(t, lines[0])["success"].(bool); !ok {
		t.Errorf("expected success for audio_file request, got %s", lines[0])
	}
	if lines[2] != `{"error":"Missing required field: audio_file"}` {
		t.Errorf("unexpected response for unknown field name: %s", lines[2])
	}
	if lines[3] != `{"error":"Unknown action: "}` {
		t.Errorf("unexpected response for missing action: %s", lines[3])
	}
}

func TestRunRecoversFromPanics(t *testing.T) {
	input := `{"action":"transcribe_file","audio_file":"/panic.wav"}` + "\n" +
		`{"action":"transcribe_file","audio_file":"/nilmap.wav"}` + "\n" +
		`{"action":"ping"}` + "\n"

	lines := runLoop(t, input, &fakeTranscriber{})
	if len(lines) != 3 {
		t.Fatalf("expected 3 responses, got %q", lines)
	}
	if lines[0] != `{"error":"segment iterator exploded"}` {
		t.Errorf("unexpected panic response %s", lines[0])
	}
	if msg, _ := decodeLine(t, lines[1])["error"].(string); !strings.Contains(msg, "nil map") {
		t.Errorf("expected runtime error text, got %q", msg)
	}
	if lines[2] != `{"pong":true}` {
		t.Errorf("loop did not continue after panic: %s", lines[2])
	}
}

func TestRunFinalLineWithoutNewline(t *testing.T) {
	lines := runLoop(t, `{"action":"ping"}`, &fakeTranscriber{})
	if len(lines) != 1 || lines[0] != `{"pong":true}` {
		t.Errorf("unexpected responses %q", lines)
	}
}

func TestRunEmptyInputWritesNothing(t *testing.T) {
	if lines := runLoop(t, "", &fakeTranscriber{}); len(lines) != 0 {
		t.Errorf("expected no responses, got %q", lines)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()

	var out bytes.Buffer
	loop := NewLoop(&fakeTranscriber{}, pr, &out)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- loop.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		if !stderrors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	if out.Len() != 0 {
		t.Errorf("expected no output, got %q", out.String())
	}
}

type failingWriter struct{}

func (failingWriter) Write(p []byte) (int, error) { return 0, io.ErrClosedPipe }

func TestRunReturnsWriteErrors(t *testing.T) {
	loop := NewLoop(&fakeTranscriber{}, strings.NewReader(`{"action":"ping"}`+"\n"), failingWriter{})
	if err := loop.Run(context.Background()); !stderrors.Is(err, io.ErrClosedPipe) {
		t.Errorf("expected write error, got %v", err)
	}
}

func TestHandleWithMetrics(t *testing.T) {
	metrics, err := observability.NewMetrics(noop.NewMeterProvider().Meter("test"))
	if err != nil {
		t.Fatalf("NewMetrics failed: %v", err)
	}
	loop := NewLoop(&fakeTranscriber{}, strings.NewReader(""), io.Discard, WithMetrics(metrics))

	tests := []struct {
		line string
		want string
	}{
		{`{"action":"ping"}`, "pong"},
		{`{"action":7}`, "error"},
		{`{"action":"transcribe_file","audio_file":"/panic.wav"}`, "error"},
	}
	for _, tc := range tests {
		resp := loop.Handle(context.Background(), []byte(tc.line))
		b, err := json.Marshal(resp)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		if !strings.Contains(string(b), `"`+tc.want+`"`) {
			t.Errorf("%s: unexpected response %s", tc.line, b)
		}
	}
}

func TestConfigDefaultsAndValidate(t *testing.T) {
	cfg := &Config{}
	cfg.ApplyDefaults()
	if cfg.Name != ServiceName {
		t.Errorf("expected default name %q, got %q", ServiceName, cfg.Name)
	}
	if cfg.Logging.ServiceName != ServiceName {
		t.Errorf("expected logging service name to follow, got %q", cfg.Logging.ServiceName)
	}
	if cfg.Whisper.Command == "" {
		t.Error("expected default worker command")
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}

	cfg.Telemetry.SampleRate = 2
	if err := cfg.Validate(); err == nil {
		t.Error("expected sample rate error")
	}

	cfg = &Config{}
	cfg.Logging.Output = "stdout"
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err == nil {
		t.Error("expected stdout logging to be rejected")
	}
}
