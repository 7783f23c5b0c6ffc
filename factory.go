package flow

import "context"

// NewTransform creates an observed stage from a transform that may block or fail.
// An error or a panic faults the stage; items still queued are discarded.
func NewTransform[I, O any](fn func(context.Context, I) (O, error), opts ...Option) *Transform[I, O] {
	return &Transform[I, O]{stage: newStage("transform", fn, newOutlet[O](false), opts)}
}

// NewFunc creates an observed stage from a pure transform.
func NewFunc[I, O any](fn func(I) O, opts ...Option) *Transform[I, O] {
	return NewTransform(func(_ context.Context, in I) (O, error) {
		return fn(in), nil
	}, opts...)
}

// NewAction creates an observed terminal stage from a side effect.
func NewAction[T any](fn func(context.Context, T) error, opts ...Option) *Action[T] {
	return &Action[T]{stage: newStage("action", func(ctx context.Context, in T) (struct{}, error) {
		return struct{}{}, fn(ctx, in)
	}, nil, opts)}
}
