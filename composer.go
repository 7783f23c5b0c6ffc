package flow

import (
	"context"

	"github.com/google/uuid"
)

// If returns a node forwarding only the items of source satisfying predicate.
// Other items are dropped for good.
func If[T any](source Source[T], predicate func(T) bool) Source[T] {
	filter := NewBroadcast[T](WithName(blockName("if")))
	source.LinkTo(filter, When(predicate))
	return filter
}

// NextAll sends a copy of every item of source to each target. Every target is an
// independent branch the caller drains on its own. With no target, items are discarded.
func NextAll[T any](source Source[T], targets ...Target[T]) {
	fan := NewBroadcast[T](WithName(blockName("next")))
	for _, t := range targets {
		fan.LinkTo(t)
	}
	source.LinkTo(fan)
}

// Next links source to target and returns target, the new head of the pipeline.
func Next[I, O any](source Source[I], target Propagator[I, O]) Source[O] {
	source.LinkTo(target)
	return target
}

// Next2 runs first and second in parallel on every item of source and joins their
// outputs by position. The returned head emits the value of first for each round.
func Next2[I, O any](source Source[I], first, second Propagator[I, O]) Source[O] {
	head, _ := NextN(source, first, second)
	return head
}

// Next3 is Next2 with three branches.
func Next3[I, O any](source Source[I], first, second, third Propagator[I, O]) Source[O] {
	head, _ := NextN(source, first, second, third)
	return head
}

// NextN runs every branch in parallel on every item of source and joins their outputs
// by position: the k-th output of each branch form round k. The returned head emits
// the value of the first branch for each round. Outputs a branch produces beyond the
// shortest branch are never emitted.
func NextN[I, O any](source Source[I], branches ...Propagator[I, O]) (Source[O], error) {
	join, err := NewJoin[O](len(branches), WithName(blockName("join")))
	if err != nil {
		return nil, err
	}
	fanOut(source, branches, join)
	return first(join), nil
}

// NextByKey is NextN pairing branch outputs by correlation ID instead of by position,
// so branches may emit in any order. Use Correlate to tag the items of a source.
func NextByKey[I, O any](source Source[Correlated[I]], branches ...Propagator[Correlated[I], Correlated[O]]) (Source[Correlated[O]], error) {
	join, err := NewKeyedJoin(len(branches), func(c Correlated[O]) uuid.UUID { return c.ID }, WithName(blockName("join-by-key")))
	if err != nil {
		return nil, err
	}
	fanOut(source, branches, join)
	return first(join), nil
}

// fanOut wires source to every branch and every branch to its join lane. Downstream
// links are registered first so nothing source emits meanwhile is lost.
func fanOut[I, O any](source Source[I], branches []Propagator[I, O], join *Join[O]) {
	fan := NewBroadcast[I](WithName(blockName("fan-out")))
	for i, b := range branches {
		b.LinkTo(join.Lane(i))
		fan.LinkTo(b)
	}
	source.LinkTo(fan)
}

// first projects every round of join onto its first lane.
func first[T any](join *Join[T]) Source[T] {
	project := NewTransform(func(_ context.Context, round []T) (T, error) {
		return round[0], nil
	}, WithName(join.Name()+"-first"))
	join.LinkTo(project)
	return project
}
