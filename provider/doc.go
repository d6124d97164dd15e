// Package provider defines the small framework the transcription backends
// are built on.
//
//   - Provider: a named backend that can report its availability
//   - Registry[T]: a cache of instances by name, filled by a Factory
//   - Iterator[T]: a pull-based, finite stream of values
//   - Closeable: opt-in cleanup called when a Registry closes
//
// # Usage
//
//	reg := provider.NewRegistry(func(ctx context.Context, name string) (Model, error) {
//	    return driver.Load(ctx, name)
//	})
//	m, created, err := reg.GetOrCreate(ctx, "tiny")
//	defer reg.Close(ctx)
package provider
