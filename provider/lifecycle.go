package provider

import "context"

// Closeable is optionally implemented by providers that hold resources
// requiring explicit cleanup, such as a worker process.
// Registry.Close calls it during shutdown.
type Closeable interface {
	Close(ctx context.Context) error
}
