package orchestrator

import (
	"context"
	stderrors "errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kbukum/whisper-sidecar/errors"
	"github.com/kbukum/whisper-sidecar/transcription"
)

type segmentIterator struct {
	texts []string
	err   error
	pos   int
}

func (it *segmentIterator) Next(ctx context.Context) (transcription.Segment, bool, error) {
	if it.pos < len(it.texts) {
		it.pos++
		return transcription.Segment{ID: it.pos - 1, Text: it.texts[it.pos-1]}, true, nil
	}
	return transcription.Segment{}, false, it.err
}

func (it *segmentIterator) Close() error { return nil }

type fakeModel struct {
	segments  []string
	err       error
	streamErr error

	gotPath       string
	gotOpts       transcription.Options
	stagedContent []byte
}

func (m *fakeModel) Name() string                        { return "fake" }
func (m *fakeModel) IsAvailable(ctx context.Context) bool { return true }

func (m *fakeModel) Transcribe(ctx context.Context, path string, opts transcription.Options) (*transcription.Result, error) {
	m.gotPath = path
	m.gotOpts = opts
	m.stagedContent, _ = os.ReadFile(path)
	if m.err != nil {
		return nil, m.err
	}
	return &transcription.Result{
		Info:     transcription.Info{Language: "en", LanguageProbability: 0.95, Duration: 3.2},
		Segments: &segmentIterator{texts: m.segments, err: m.streamErr},
	}, nil
}

type fakeSource struct {
	model *fakeModel
	err   error
	loads []string
}

func (s *fakeSource) Load(ctx context.Context, size string) (transcription.Model, error) {
	s.loads = append(s.loads, size)
	if s.err != nil {
		return nil, s.err
	}
	return s.model, nil
}

func stagedFiles(t *testing.T, dir string) []string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(dir, "whisper-*.wav"))
	if err != nil {
		t.Fatal(err)
	}
	return matches
}

func TestTranscribeBytes(t *testing.T) {
	dir := t.TempDir()
	model := &fakeModel{segments: []string{" Hello ", " world"}}
	o := New(&fakeSource{model: model}, WithStagingDir(dir))

	audio := []byte{82, 73, 70, 70, 0, 1, 2, 255}
	res, err := o.TranscribeBytes(context.Background(), audio, "base")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := Result{Text: "Hello  world", Language: "en", LanguageProbability: 0.95, Segments: 2, Model: "base", Duration: 3.2}
	if *res != want {
		t.Errorf("result = %+v, want %+v", *res, want)
	}
	if string(model.stagedContent) != string(audio) {
		t.Errorf("expected bytes staged verbatim, got %v", model.stagedContent)
	}
	if filepath.Dir(model.gotPath) != dir || !strings.HasSuffix(model.gotPath, ".wav") {
		t.Errorf("unexpected staging path %q", model.gotPath)
	}
	if model.gotOpts != transcription.DefaultOptions() {
		t.Errorf("expected default options, got %+v", model.gotOpts)
	}
	if left := stagedFiles(t, dir); len(left) != 0 {
		t.Errorf("expected staged file removed, found %v", left)
	}
}

func TestTranscribeBytesRemovesStagedFileOnFailure(t *testing.T) {
	tests := []struct {
		name  string
		model *fakeModel
		want  string
	}{
		{"transcriber rejects", &fakeModel{err: stderrors.New("Invalid data found when processing input")}, "Invalid data found when processing input"},
		{"fails mid-stream", &fakeModel{segments: []string{" partial"}, streamErr: stderrors.New("decoder failed")}, "decoder failed"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			dir := t.TempDir()
			o := New(&fakeSource{model: tc.model}, WithStagingDir(dir))

			_, err := o.TranscribeBytes(context.Background(), []byte("RIFF"), "tiny")
			if !errors.HasCode(err, errors.ErrCodeTranscriptionFailed) {
				t.Fatalf("expected transcription failure, got %v", err)
			}
			if errors.Message(err) != tc.want {
				t.Errorf("message = %q, want %q", errors.Message(err), tc.want)
			}
			if left := stagedFiles(t, dir); len(left) != 0 {
				t.Errorf("expected staged file removed, found %v", left)
			}
		})
	}
}

func TestTranscribeBytesModelFailure(t *testing.T) {
	dir := t.TempDir()
	loadErr := errors.ModelLoadFailed("huge", stderrors.New("Invalid model size 'huge'"))
	o := New(&fakeSource{err: loadErr}, WithStagingDir(dir))

	_, err := o.TranscribeBytes(context.Background(), []byte("RIFF"), "huge")
	if errors.Message(err) != "Invalid model size 'huge'" {
		t.Fatalf("expected load failure message, got %v", err)
	}
	if left := stagedFiles(t, dir); len(left) != 0 {
		t.Errorf("expected nothing staged, found %v", left)
	}
}

func TestTranscribeBytesStagingFailure(t *testing.T) {
	o := New(&fakeSource{model: &fakeModel{}}, WithStagingDir(filepath.Join(t.TempDir(), "missing")))
	_, err := o.TranscribeBytes(context.Background(), []byte("RIFF"), "tiny")
	if !errors.HasCode(err, errors.ErrCodeInternal) {
		t.Fatalf("expected internal error, got %v", err)
	}
}

func TestTranscribeFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "recording.wav")
	if err := os.WriteFile(path, []byte("not really a wav"), 0o644); err != nil {
		t.Fatal(err)
	}
	model := &fakeModel{segments: []string{" Testing", " one two."}}
	o := New(&fakeSource{model: model})

	res, err := o.TranscribeFile(context.Background(), path, "small")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Text != "Testing one two." || res.Segments != 2 || res.Model != "small" {
		t.Errorf("unexpected result %+v", res)
	}
	if model.gotPath != path {
		t.Errorf("expected caller's path, got %q", model.gotPath)
	}
	if model.gotOpts.BeamSize == nil || *model.gotOpts.BeamSize != 1 ||
		model.gotOpts.VADFilter == nil || *model.gotOpts.VADFilter ||
		model.gotOpts.WordTimestamps == nil || *model.gotOpts.WordTimestamps {
		t.Errorf("expected debug options, got %+v", model.gotOpts)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("expected caller's file preserved: %v", err)
	}
}

func TestTranscribeFilePreservesFileOnFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "recording.wav")
	if err := os.WriteFile(path, []byte("RIFF"), 0o644); err != nil {
		t.Fatal(err)
	}
	o := New(&fakeSource{model: &fakeModel{err: stderrors.New("decoder failed")}})

	if _, err := o.TranscribeFile(context.Background(), path, "tiny"); errors.Message(err) != "decoder failed" {
		t.Fatalf("expected transcriber message, got %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("expected caller's file preserved: %v", err)
	}
}

func TestTranscribeFileNotFound(t *testing.T) {
	source := &fakeSource{model: &fakeModel{}}
	o := New(source)
	path := "/nonexistent/audio.wav"

	_, err := o.TranscribeFile(context.Background(), path, "tiny")
	if !errors.HasCode(err, errors.ErrCodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if errors.Message(err) != "Audio file not found: /nonexistent/audio.wav" {
		t.Errorf("unexpected message %q", errors.Message(err))
	}
	if len(source.loads) != 1 {
		t.Errorf("expected the model resolved before the path check, got %d loads", len(source.loads))
	}
}
