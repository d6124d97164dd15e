package provider

import "context"

// Iterator provides pull-based sequential access to a stream of values.
// The consumer calls Next() to retrieve values one at a time.
// Close must be called when done to release resources.
type Iterator[T any] interface {
	// Next returns the next value. Returns (zero, false, nil) when exhausted.
	Next(ctx context.Context) (T, bool, error)
	// Close releases any resources held by the iterator.
	Close() error
}

// FromSlice returns an Iterator over a fixed set of values.
func FromSlice[T any](values []T) Iterator[T] {
	return &sliceIterator[T]{values: values}
}

type sliceIterator[T any] struct {
	values []T
	pos    int
}

func (it *sliceIterator[T]) Next(ctx context.Context) (T, bool, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, false, err
	}
	if it.pos >= len(it.values) {
		return zero, false, nil
	}
	v := it.values[it.pos]
	it.pos++
	return v, true, nil
}

func (it *sliceIterator[T]) Close() error {
	it.pos = len(it.values)
	return nil
}
