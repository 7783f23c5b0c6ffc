package flow

import (
	"context"

	"github.com/google/uuid"
)

// Correlated carries a value with the ID it was tagged with when entering a fan-out.
// Branches keep the ID so a keyed join can pair their results.
type Correlated[T any] struct {
	ID    uuid.UUID
	Value T
}

// Correlate tags every item of source with a fresh ID.
func Correlate[T any](source Source[T], opts ...Option) Source[Correlated[T]] {
	tag := NewFunc(func(v T) Correlated[T] {
		return Correlated[T]{ID: uuid.New(), Value: v}
	}, append([]Option{WithName(blockName("correlate"))}, opts...)...)
	source.LinkTo(tag)
	return tag
}

// NewCorrelatedTransform creates a stage applying fn to the value and keeping the ID.
func NewCorrelatedTransform[I, O any](fn func(context.Context, I) (O, error), opts ...Option) *Transform[Correlated[I], Correlated[O]] {
	return NewTransform(func(ctx context.Context, in Correlated[I]) (Correlated[O], error) {
		out, err := fn(ctx, in.Value)
		if err != nil {
			return Correlated[O]{}, err
		}
		return Correlated[O]{ID: in.ID, Value: out}, nil
	}, opts...)
}

// Values strips the IDs of source.
func Values[T any](source Source[Correlated[T]], opts ...Option) Source[T] {
	strip := NewFunc(func(c Correlated[T]) T {
		return c.Value
	}, append([]Option{WithName(blockName("values"))}, opts...)...)
	source.LinkTo(strip)
	return strip
}
