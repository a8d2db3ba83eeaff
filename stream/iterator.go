package stream

import "context"

// Iterator provides pull-based sequential access to a stream of values.
type Iterator[T any] interface {
	// Next returns the next value. Returns (zero, false, nil) when exhausted.
	Next(ctx context.Context) (T, bool, error)
	// Close releases any resources held by the iterator.
	Close() error
}

// sliceIter yields values from an in-memory slice.
type sliceIter[T any] struct {
	items []T
	pos   int
}

func (it *sliceIter[T]) Next(_ context.Context) (T, bool, error) {
	if it.pos >= len(it.items) {
		var zero T
		return zero, false, nil
	}
	v := it.items[it.pos]
	it.pos++
	return v, true, nil
}

func (it *sliceIter[T]) Close() error { return nil }

// FromSlice creates an iterator over a slice of values.
func FromSlice[T any](items []T) Iterator[T] {
	return &sliceIter[T]{items: items}
}

// funcIter pulls values from a producer function.
type funcIter[T any] struct {
	fn     func(ctx context.Context) (T, bool, error)
	closer func() error
}

func (it *funcIter[T]) Next(ctx context.Context) (T, bool, error) {
	if err := ctx.Err(); err != nil {
		var zero T
		return zero, false, err
	}
	return it.fn(ctx)
}

func (it *funcIter[T]) Close() error {
	if it.closer != nil {
		return it.closer()
	}
	return nil
}

// FromFunc creates an iterator from a producer function. fn must return
// (zero, false, nil) once the stream is exhausted.
func FromFunc[T any](fn func(ctx context.Context) (T, bool, error)) Iterator[T] {
	return &funcIter[T]{fn: fn}
}

// Collect pulls all remaining values into a slice.
func Collect[T any](ctx context.Context, it Iterator[T]) ([]T, error) {
	defer it.Close() //nolint:errcheck // close error is not actionable after a full drain
	var out []T
	for {
		v, ok, err := it.Next(ctx)
		if err != nil {
			return out, err
		}
		if !ok {
			return out, nil
		}
		out = append(out, v)
	}
}

// Drain pulls all remaining values, passing each to sink.
func Drain[T any](ctx context.Context, it Iterator[T], sink func(context.Context, T) error) error {
	defer it.Close() //nolint:errcheck
	for {
		v, ok, err := it.Next(ctx)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		if err := sink(ctx, v); err != nil {
			return err
		}
	}
}
