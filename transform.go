package flow

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
)

// Transform is a stage applying a function to every item it receives and
// emitting the results in input order.
type Transform[I, O any] struct {
	*stage[I, O]
}

// LinkTo registers target as a consumer of the transform output. Each result is
// delivered to the first link whose predicate accepts it.
func (t *Transform[I, O]) LinkTo(target Target[O], opts ...LinkOption[O]) *Link {
	return t.out.add(target, opts)
}

// Action is a terminal stage running a side effect for every item it receives.
type Action[T any] struct {
	*stage[T, struct{}]
}

type result[O any] struct {
	val O
	err error
}

type stage[I, O any] struct {
	name    string
	fn      func(context.Context, I) (O, error)
	in      chan I
	gate    gate
	out     *outlet[O]
	comp    *completion
	window  int
	workers *workers
	log     zerolog.Logger

	ctx      context.Context
	cancel   context.CancelFunc
	stop     chan struct{}
	stopOnce sync.Once
}

// newStage starts a stage. A nil out makes it terminal.
func newStage[I, O any](kind string, fn func(context.Context, I) (O, error), out *outlet[O], opts []Option) *stage[I, O] {
	o := newOptions(kind, opts)
	ctx, cancel := context.WithCancel(o.Context)
	s := &stage[I, O]{
		name:   o.Name,
		fn:     fn,
		in:     make(chan I, o.Capacity),
		out:    out,
		comp:   newCompletion(),
		window: o.Parallelism,
		log:    o.Logger,
		ctx:    ctx,
		cancel: cancel,
		stop:   make(chan struct{}),
	}
	s.gate.onClose = func() { close(s.in) }

	w, err := newWorkers(o)
	if err != nil {
		s.log.Warn().Err(err).Msg("cannot create worker pool, processing sequentially")
		w = &workers{}
	}
	s.workers = w

	o.observe(s)
	go s.run()
	return s
}

func (s *stage[I, O]) Name() string          { return s.name }
func (s *stage[I, O]) Done() <-chan struct{} { return s.comp.Done() }
func (s *stage[I, O]) Err() error            { return s.comp.Err() }
func (s *stage[I, O]) Complete()             { s.gate.close() }

func (s *stage[I, O]) Fault(err error) {
	if err == nil {
		err = ErrFaulted
	}
	s.finish(err)
}

func (s *stage[I, O]) addProducer()     { s.gate.addProducer() }
func (s *stage[I, O]) releaseProducer() { s.gate.releaseProducer() }

func (s *stage[I, O]) Send(ctx context.Context, item I) error {
	if !s.gate.enter() {
		return ErrDeclined
	}
	defer s.gate.leave()

	select {
	case <-s.stop:
		return ErrDeclined
	default:
	}
	select {
	case s.in <- item:
		return nil
	case <-s.stop:
		return ErrDeclined
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *stage[I, O]) run() {
	defer s.cancel()
	defer s.workers.release()

	if s.workers.inline() {
		s.runSequential()
	} else {
		s.runOrdered()
	}
}

func (s *stage[I, O]) runSequential() {
	for {
		select {
		case <-s.stop:
			return
		case item, ok := <-s.in:
			if !ok {
				s.finish(nil)
				return
			}
			if s.stopped() {
				return
			}
			val, err := s.invoke(item)
			if err != nil {
				s.finish(err)
				return
			}
			s.emit(val)
		}
	}
}

// runOrdered keeps up to window items in flight on the pool. Each item gets a
// result slot queued in input order, and the collector drains slots in that order.
func (s *stage[I, O]) runOrdered() {
	pending := make(chan chan result[O], s.window)
	collected := make(chan struct{})

	go func() {
		defer close(collected)
		for slot := range pending {
			r := <-slot
			if s.stopped() {
				continue
			}
			if r.err != nil {
				s.finish(r.err)
				continue
			}
			s.emit(r.val)
		}
	}()

loop:
	for {
		select {
		case <-s.stop:
			break loop
		case item, ok := <-s.in:
			if !ok || s.stopped() {
				break loop
			}
			slot := make(chan result[O], 1)
			pending <- slot
			err := s.workers.submit(func() {
				if s.stopped() {
					slot <- result[O]{}
					return
				}
				val, err := s.invoke(item)
				slot <- result[O]{val: val, err: err}
			})
			if err != nil {
				slot <- result[O]{err: err}
			}
		}
	}

	close(pending)
	<-collected
	s.finish(nil)
}

// stopped reports whether the stage faulted. Items received afterwards are discarded.
func (s *stage[I, O]) stopped() bool {
	select {
	case <-s.stop:
		return true
	default:
		return false
	}
}

func (s *stage[I, O]) invoke(item I) (val O, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrPanic, r)
		}
	}()
	return s.fn(s.ctx, item)
}

func (s *stage[I, O]) emit(val O) {
	if s.out != nil {
		s.out.offer(val)
	}
}

// finish closes the output and settles the stage. Only the first call counts.
func (s *stage[I, O]) finish(err error) {
	if err != nil {
		err = stageError(s.name, err)
		s.stopOnce.Do(func() { close(s.stop) })
		s.cancel()
	}
	if s.out != nil {
		s.out.close()
	}
	s.comp.resolve(err)
}
