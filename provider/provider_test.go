package provider

import (
	"context"
	"errors"
	"testing"
)

// testProvider implements the Provider interface for testing.
type testProvider struct {
	name      string
	available bool
	closed    int
}

func (p *testProvider) Name() string                        { return p.name }
func (p *testProvider) IsAvailable(ctx context.Context) bool { return p.available }
func (p *testProvider) Close(ctx context.Context) error {
	p.closed++
	p.available = false
	return nil
}

func countingFactory(calls *int) Factory[*testProvider] {
	return func(ctx context.Context, name string) (*testProvider, error) {
		*calls++
		return &testProvider{name: name, available: true}, nil
	}
}

func TestRegistryGetOrCreateCaches(t *testing.T) {
	calls := 0
	reg := NewRegistry(countingFactory(&calls))
	ctx := context.Background()

	first, created, err := reg.GetOrCreate(ctx, "tiny")
	if err != nil {
		t.Fatalf("GetOrCreate failed: %v", err)
	}
	if !created {
		t.Error("expected first lookup to create")
	}
	second, created, err := reg.GetOrCreate(ctx, "tiny")
	if err != nil {
		t.Fatalf("GetOrCreate failed: %v", err)
	}
	if created {
		t.Error("expected second lookup to hit the cache")
	}
	if first != second {
		t.Error("expected the same instance")
	}
	if calls != 1 {
		t.Errorf("expected 1 factory call, got %d", calls)
	}
}

func TestRegistryFailureLeavesCacheUnmodified(t *testing.T) {
	reg := NewRegistry(func(ctx context.Context, name string) (*testProvider, error) {
		return nil, errors.New("model not found")
	})

	_, _, err := reg.GetOrCreate(context.Background(), "huge")
	if err == nil || err.Error() != "model not found" {
		t.Fatalf("expected factory error, got %v", err)
	}
	if len(reg.List()) != 0 {
		t.Errorf("expected empty cache, got %v", reg.List())
	}
}

func TestRegistryReplacesUnavailableInstance(t *testing.T) {
	calls := 0
	reg := NewRegistry(countingFactory(&calls))
	ctx := context.Background()

	dead, _, _ := reg.GetOrCreate(ctx, "base")
	dead.available = false

	fresh, created, err := reg.GetOrCreate(ctx, "base")
	if err != nil {
		t.Fatalf("GetOrCreate failed: %v", err)
	}
	if !created || fresh == dead {
		t.Error("expected a fresh instance to replace the dead one")
	}
	if dead.closed != 1 {
		t.Errorf("expected dead instance closed once, got %d", dead.closed)
	}
	if calls != 2 {
		t.Errorf("expected 2 factory calls, got %d", calls)
	}
}

func TestRegistryListIsSorted(t *testing.T) {
	calls := 0
	reg := NewRegistry(countingFactory(&calls))
	ctx := context.Background()
	for _, name := range []string{"small", "base", "tiny"} {
		if _, _, err := reg.GetOrCreate(ctx, name); err != nil {
			t.Fatal(err)
		}
	}

	names := reg.List()
	if len(names) != 3 || names[0] != "base" || names[2] != "tiny" {
		t.Errorf("expected sorted names, got %v", names)
	}
	if calls != 3 {
		t.Errorf("expected one factory call per name, got %d", calls)
	}
}

func TestRegistryCloseClosesAll(t *testing.T) {
	calls := 0
	reg := NewRegistry(countingFactory(&calls))
	ctx := context.Background()
	a, _, _ := reg.GetOrCreate(ctx, "tiny")
	b, _, _ := reg.GetOrCreate(ctx, "base")

	if err := reg.Close(ctx); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if a.closed != 1 || b.closed != 1 {
		t.Errorf("expected both instances closed, got %d and %d", a.closed, b.closed)
	}
	if len(reg.List()) != 0 {
		t.Error("expected empty cache after Close")
	}
}

func TestFromSlice(t *testing.T) {
	ctx := context.Background()
	it := FromSlice([]string{"a", "b"})

	var got []string
	for {
		v, ok, err := it.Next(ctx)
		if err != nil {
			t.Fatalf("Next failed: %v", err)
		}
		if !ok {
			break
		}
		got = append(got, v)
	}
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("expected [a b], got %v", got)
	}
	if _, ok, _ := it.Next(ctx); ok {
		t.Error("expected exhausted iterator to stay exhausted")
	}
	if err := it.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
}

func TestFromSliceCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, _, err := FromSlice([]int{1}).Next(ctx); err == nil {
		t.Error("expected context error")
	}
}
