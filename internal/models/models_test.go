package models

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	apperrors "github.com/kbukum/whisper-sidecar/errors"
	"github.com/kbukum/whisper-sidecar/transcription"
)

type fakeModel struct {
	name      string
	ref       string
	available bool
	closed    bool
}

func (m *fakeModel) Name() string                        { return m.name }
func (m *fakeModel) IsAvailable(ctx context.Context) bool { return m.available }
func (m *fakeModel) Close(ctx context.Context) error {
	m.closed = true
	return nil
}
func (m *fakeModel) Transcribe(ctx context.Context, path string, opts transcription.Options) (*transcription.Result, error) {
	return nil, errors.New("not used")
}

type fakeCapability struct {
	checks     []error // results of successive Check calls; last repeats
	canInstall bool
	installErr error
	loadErr    map[string]error

	checkCalls   int
	installCalls int
	loads        []string
	models       []*fakeModel
}

func (c *fakeCapability) Check(ctx context.Context) error {
	i := c.checkCalls
	c.checkCalls++
	if len(c.checks) == 0 {
		return nil
	}
	if i >= len(c.checks) {
		i = len(c.checks) - 1
	}
	return c.checks[i]
}

func (c *fakeCapability) CanInstall() bool { return c.canInstall }

func (c *fakeCapability) Install(ctx context.Context) error {
	c.installCalls++
	return c.installErr
}

func (c *fakeCapability) Load(ctx context.Context, name, ref string) (transcription.Model, error) {
	c.loads = append(c.loads, ref)
	if err := c.loadErr[name]; err != nil {
		return nil, err
	}
	m := &fakeModel{name: name, ref: ref, available: true}
	c.models = append(c.models, m)
	return m, nil
}

func TestEnsureCapability(t *testing.T) {
	missing := errors.New("No module named 'faster_whisper'")

	tests := []struct {
		name         string
		fc           *fakeCapability
		wantErr      bool
		wantChecks   int
		wantInstalls int
	}{
		{
			name:       "already available",
			fc:         &fakeCapability{},
			wantChecks: 1,
		},
		{
			name:       "missing without installer",
			fc:         &fakeCapability{checks: []error{missing}},
			wantErr:    true,
			wantChecks: 1,
		},
		{
			name:         "install fixes it",
			fc:           &fakeCapability{checks: []error{missing, nil}, canInstall: true},
			wantChecks:   2,
			wantInstalls: 1,
		},
		{
			name:         "install fails",
			fc:           &fakeCapability{checks: []error{missing}, canInstall: true, installErr: errors.New("pip failed")},
			wantErr:      true,
			wantChecks:   1,
			wantInstalls: 1,
		},
		{
			name:         "still missing after install",
			fc:           &fakeCapability{checks: []error{missing, missing}, canInstall: true},
			wantErr:      true,
			wantChecks:   2,
			wantInstalls: 1,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := NewProvider(tc.fc, nil).EnsureCapability(context.Background())
			if tc.wantErr {
				if !apperrors.HasCode(err, apperrors.ErrCodeDependencyUnavailable) {
					t.Fatalf("expected dependency error, got %v", err)
				}
				if apperrors.Message(err) != "Failed to load faster-whisper" {
					t.Errorf("unexpected message %q", apperrors.Message(err))
				}
			} else if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tc.fc.checkCalls != tc.wantChecks {
				t.Errorf("checks = %d, want %d", tc.fc.checkCalls, tc.wantChecks)
			}
			if tc.fc.installCalls != tc.wantInstalls {
				t.Errorf("installs = %d, want %d", tc.fc.installCalls, tc.wantInstalls)
			}
		})
	}
}

func TestLoadCachesBySize(t *testing.T) {
	fc := &fakeCapability{}
	p := NewProvider(fc, nil)
	ctx := context.Background()

	first, err := p.Load(ctx, "tiny")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	second, err := p.Load(ctx, "tiny")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if first != second {
		t.Error("expected the cached model to be returned")
	}
	if _, err := p.Load(ctx, "base"); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(fc.loads) != 2 {
		t.Errorf("expected 2 constructions, got %d", len(fc.loads))
	}
	if got := p.Loaded(); len(got) != 2 || got[0] != "base" || got[1] != "tiny" {
		t.Errorf("unexpected loaded set %v", got)
	}
}

func TestLoadFailureIsNotCached(t *testing.T) {
	fc := &fakeCapability{loadErr: map[string]error{"huge": errors.New("Invalid model size 'huge'")}}
	p := NewProvider(fc, nil)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := p.Load(ctx, "huge")
		if err == nil {
			t.Fatal("expected load failure")
		}
		if apperrors.Message(err) != "Invalid model size 'huge'" {
			t.Errorf("expected underlying message, got %q", apperrors.Message(err))
		}
	}
	if len(fc.loads) != 2 {
		t.Errorf("expected a retry on each request, got %d loads", len(fc.loads))
	}
	if len(p.Loaded()) != 0 {
		t.Errorf("expected nothing cached, got %v", p.Loaded())
	}
}

func TestLoadReplacesDeadModel(t *testing.T) {
	fc := &fakeCapability{}
	p := NewProvider(fc, nil)
	ctx := context.Background()

	m, _ := p.Load(ctx, "tiny")
	dead := m.(*fakeModel)
	dead.available = false

	fresh, err := p.Load(ctx, "tiny")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if fresh == m {
		t.Error("expected dead model to be replaced")
	}
	if !dead.closed {
		t.Error("expected dead model closed")
	}
}

func TestCloseUnloadsEverything(t *testing.T) {
	fc := &fakeCapability{}
	p := NewProvider(fc, nil)
	ctx := context.Background()
	_, _ = p.Load(ctx, "tiny")
	_, _ = p.Load(ctx, "small")

	if err := p.Close(ctx); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	for _, m := range fc.models {
		if !m.closed {
			t.Errorf("expected %s closed", m.name)
		}
	}
	if len(p.Loaded()) != 0 {
		t.Error("expected empty cache")
	}
}

func TestLoadResolvesThroughCatalog(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "base.pt"), []byte("weights"), 0o644); err != nil {
		t.Fatal(err)
	}
	fc := &fakeCapability{}
	p := NewProvider(fc, NewCatalog(dir, nil))
	ctx := context.Background()

	_, _ = p.Load(ctx, "base")
	_, _ = p.Load(ctx, "tiny")
	if fc.loads[0] != filepath.Join(dir, "base.pt") {
		t.Errorf("expected local path for base, got %q", fc.loads[0])
	}
	if fc.loads[1] != "tiny" {
		t.Errorf("expected bare size for tiny, got %q", fc.loads[1])
	}
}

func TestCatalogList(t *testing.T) {
	t.Run("defaults without directory", func(t *testing.T) {
		entries := NewCatalog("", nil).List()
		if len(entries) != 3 || entries[0].Name != "tiny" || entries[0].Offline() {
			t.Errorf("unexpected defaults %+v", entries)
		}
	})

	t.Run("manifest wins", func(t *testing.T) {
		dir := t.TempDir()
		manifest := `{"models":[{"name":"tiny","file":"tiny.pt","description":"Bundled tiny"}]}`
		if err := os.WriteFile(filepath.Join(dir, "manifest.json"), []byte(manifest), 0o644); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(filepath.Join(dir, "base.pt"), nil, 0o644); err != nil {
			t.Fatal(err)
		}
		entries := NewCatalog(dir, nil).List()
		if len(entries) != 1 || entries[0].Description != "Bundled tiny" || !entries[0].Offline() {
			t.Errorf("unexpected manifest entries %+v", entries)
		}
	})

	t.Run("scan model files", func(t *testing.T) {
		dir := t.TempDir()
		for _, name := range []string{"small.bin", "base.pt", "notes.txt"} {
			if err := os.WriteFile(filepath.Join(dir, name), nil, 0o644); err != nil {
				t.Fatal(err)
			}
		}
		entries := NewCatalog(dir, nil).List()
		if len(entries) != 2 || entries[0].Name != "base" || entries[1].Name != "small" {
			t.Errorf("unexpected scanned entries %+v", entries)
		}
		if entries[0].Description != "Offline base model" {
			t.Errorf("unexpected description %q", entries[0].Description)
		}
	})

	t.Run("broken manifest falls back to scan", func(t *testing.T) {
		dir := t.TempDir()
		if err := os.WriteFile(filepath.Join(dir, "manifest.json"), []byte("{"), 0o644); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(filepath.Join(dir, "tiny.pt"), nil, 0o644); err != nil {
			t.Fatal(err)
		}
		entries := NewCatalog(dir, nil).List()
		if len(entries) != 1 || entries[0].Name != "tiny" {
			t.Errorf("unexpected entries %+v", entries)
		}
	})
}

func TestCatalogResolvePrefersDirectory(t *testing.T) {
	dir := t.TempDir()
	if err := os.Mkdir(filepath.Join(dir, "small"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "small.pt"), nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if got := NewCatalog(dir, nil).Resolve("small"); got != filepath.Join(dir, "small") {
		t.Errorf("expected model directory, got %q", got)
	}
}
