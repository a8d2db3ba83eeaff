package stream

import "context"

// Map transforms each value using fn.
func Map[I, O any](source Iterator[I], fn func(context.Context, I) (O, error)) Iterator[O] {
	return &mapIter[I, O]{source: source, fn: fn}
}

type mapIter[I, O any] struct {
	source Iterator[I]
	fn     func(context.Context, I) (O, error)
}

func (it *mapIter[I, O]) Next(ctx context.Context) (O, bool, error) {
	var zero O
	v, ok, err := it.source.Next(ctx)
	if err != nil || !ok {
		return zero, false, err
	}
	out, err := it.fn(ctx, v)
	if err != nil {
		return zero, false, err
	}
	return out, true, nil
}

func (it *mapIter[I, O]) Close() error { return it.source.Close() }

// Take yields at most n values from the source, then reports exhaustion.
// A non-positive n yields nothing.
func Take[T any](source Iterator[T], n int) Iterator[T] {
	return &takeIter[T]{source: source, remaining: n}
}

type takeIter[T any] struct {
	source    Iterator[T]
	remaining int
}

func (it *takeIter[T]) Next(ctx context.Context) (T, bool, error) {
	if it.remaining <= 0 {
		var zero T
		return zero, false, nil
	}
	v, ok, err := it.source.Next(ctx)
	if err != nil || !ok {
		var zero T
		return zero, false, err
	}
	it.remaining--
	return v, true, nil
}

func (it *takeIter[T]) Close() error { return it.source.Close() }

// Tap calls fn as a side-effect for each value, then passes the value through unchanged.
func Tap[T any](source Iterator[T], fn func(context.Context, T) error) Iterator[T] {
	return Map(source, func(ctx context.Context, v T) (T, error) {
		if err := fn(ctx, v); err != nil {
			return v, err
		}
		return v, nil
	})
}
