package provider

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
)

// Registry caches provider instances by name, creating them on demand with
// a single factory. Instances are retained until removed or until the
// registry is closed; an instance that reports itself unavailable is
// replaced on the next lookup.
type Registry[T Provider] struct {
	mu        sync.Mutex
	factory   Factory[T]
	instances map[string]T
}

// NewRegistry creates an empty Registry backed by factory.
func NewRegistry[T Provider](factory Factory[T]) *Registry[T] {
	return &Registry[T]{
		factory:   factory,
		instances: make(map[string]T),
	}
}

// GetOrCreate returns the cached instance for name, or creates, caches and
// returns a new one. created reports whether the factory ran. A factory
// failure leaves the cache unmodified.
func (r *Registry[T]) GetOrCreate(ctx context.Context, name string) (inst T, created bool, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cached, ok := r.instances[name]; ok {
		if cached.IsAvailable(ctx) {
			return cached, false, nil
		}
		delete(r.instances, name)
		closeInstance(ctx, cached)
	}

	inst, err = r.factory(ctx, name)
	if err != nil {
		var zero T
		return zero, false, err
	}
	r.instances[name] = inst
	return inst, true, nil
}

// List returns the sorted names of all cached instances.
func (r *Registry[T]) List() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.instances))
	for name := range r.instances {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Close closes every cached instance that implements Closeable and empties
// the cache.
func (r *Registry[T]) Close(ctx context.Context) error {
	r.mu.Lock()
	instances := r.instances
	r.instances = make(map[string]T)
	r.mu.Unlock()

	names := make([]string, 0, len(instances))
	for name := range instances {
		names = append(names, name)
	}
	sort.Strings(names)

	var errs []error
	for _, name := range names {
		if err := closeInstance(ctx, instances[name]); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

func closeInstance[T Provider](ctx context.Context, inst T) error {
	if c, ok := any(inst).(Closeable); ok {
		return c.Close(ctx)
	}
	return nil
}
