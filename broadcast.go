package flow

import (
	"context"
)

// Broadcast offers a copy of every item it receives to each of its links, in link
// registration order. Each link buffers on its own, so consumers never wait on one another.
// Items received while no link accepts them are dropped.
type Broadcast[T any] struct {
	name string
	gate gate
	out  *outlet[T]
	comp *completion
}

// NewBroadcast creates a broadcast node. Only WithName, WithLogger and WithHooks apply.
func NewBroadcast[T any](opts ...Option) *Broadcast[T] {
	o := newOptions("broadcast", opts)
	b := &Broadcast[T]{
		name: o.Name,
		out:  newOutlet[T](true),
		comp: newCompletion(),
	}
	b.gate.onClose = func() { b.finish(nil) }
	o.observe(b)
	return b
}

func (b *Broadcast[T]) Name() string          { return b.name }
func (b *Broadcast[T]) Done() <-chan struct{} { return b.comp.Done() }
func (b *Broadcast[T]) Err() error            { return b.comp.Err() }
func (b *Broadcast[T]) Complete()             { b.gate.close() }

func (b *Broadcast[T]) Fault(err error) {
	if err == nil {
		err = ErrFaulted
	}
	b.finish(stageError(b.name, err))
}

func (b *Broadcast[T]) addProducer()     { b.gate.addProducer() }
func (b *Broadcast[T]) releaseProducer() { b.gate.releaseProducer() }

// Send never blocks: the item is queued on every accepting link.
func (b *Broadcast[T]) Send(_ context.Context, item T) error {
	if !b.gate.enter() {
		return ErrDeclined
	}
	defer b.gate.leave()
	if b.comp.resolved() {
		return ErrDeclined
	}
	b.out.offer(item)
	return nil
}

func (b *Broadcast[T]) LinkTo(target Target[T], opts ...LinkOption[T]) *Link {
	return b.out.add(target, opts)
}

func (b *Broadcast[T]) finish(err error) {
	b.out.close()
	b.comp.resolve(err)
}
