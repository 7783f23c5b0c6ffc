package flow

import (
	"context"
	"errors"
	"sync"

	"github.com/samber/lo"
)

// LinkOption configures a link.
type LinkOption[T any] func(*linkConfig[T])

type linkConfig[T any] struct {
	predicate func(T) bool
	propagate bool
}

// When only lets items satisfying predicate through the link. Other items are dropped.
func When[T any](predicate func(T) bool) LinkOption[T] {
	return func(c *linkConfig[T]) { c.predicate = predicate }
}

// WithoutPropagation keeps the target open when the source completes.
func WithoutPropagation[T any]() LinkOption[T] {
	return func(c *linkConfig[T]) { c.propagate = false }
}

// Link is the subscription returned by LinkTo.
type Link struct {
	unlink func()
}

// Unlink stops offering new items to the target. Items already queued on the link are
// still delivered, then the link is released like a completed source.
func (l *Link) Unlink() {
	if l != nil && l.unlink != nil {
		l.unlink()
	}
}

// link forwards items to a single target. Its queue is unbounded so that a slow
// target only delays its own link.
type link[T any] struct {
	target    Target[T]
	predicate func(T) bool
	propagate bool

	mu       sync.Mutex
	queue    []T
	closed   bool
	declined bool
	wake     chan struct{}
}

func newLink[T any](target Target[T], opts []LinkOption[T]) *link[T] {
	cfg := linkConfig[T]{propagate: true}
	for _, opt := range opts {
		opt(&cfg)
	}
	l := &link[T]{
		target:    target,
		predicate: cfg.predicate,
		propagate: cfg.propagate,
		wake:      make(chan struct{}, 1),
	}
	if p, ok := target.(producers); ok && l.propagate {
		p.addProducer()
	}
	go l.pump()
	return l
}

func (l *link[T]) accepts(item T) bool {
	return l.predicate == nil || l.predicate(item)
}

func (l *link[T]) push(item T) {
	l.mu.Lock()
	if l.closed || l.declined {
		l.mu.Unlock()
		return
	}
	l.queue = append(l.queue, item)
	l.mu.Unlock()
	l.notify()
}

func (l *link[T]) close() {
	l.mu.Lock()
	l.closed = true
	l.mu.Unlock()
	l.notify()
}

func (l *link[T]) notify() {
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

func (l *link[T]) next() (item T, ok bool) {
	for {
		l.mu.Lock()
		if len(l.queue) > 0 {
			item = l.queue[0]
			var zero T
			l.queue[0] = zero
			l.queue = l.queue[1:]
			l.mu.Unlock()
			return item, true
		}
		if l.closed {
			l.mu.Unlock()
			return item, false
		}
		l.mu.Unlock()
		<-l.wake
	}
}

func (l *link[T]) pump() {
	for {
		item, ok := l.next()
		if !ok {
			break
		}
		if err := l.target.Send(context.Background(), item); errors.Is(err, ErrDeclined) {
			l.mu.Lock()
			l.declined = true
			l.queue = nil
			l.mu.Unlock()
		}
	}
	if !l.propagate {
		return
	}
	if p, ok := l.target.(producers); ok {
		p.releaseProducer()
		return
	}
	l.target.Complete()
}

// outlet is the output side of a source: the ordered set of its links.
type outlet[T any] struct {
	broadcast bool

	mu     sync.Mutex
	links  []*link[T]
	closed bool
}

func newOutlet[T any](broadcast bool) *outlet[T] {
	return &outlet[T]{broadcast: broadcast}
}

func (o *outlet[T]) add(target Target[T], opts []LinkOption[T]) *Link {
	l := newLink(target, opts)
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		l.close()
		return &Link{}
	}
	o.links = append(o.links, l)
	o.mu.Unlock()

	var once sync.Once
	return &Link{unlink: func() {
		once.Do(func() {
			o.mu.Lock()
			o.links = lo.Without(o.links, l)
			o.mu.Unlock()
			l.close()
		})
	}}
}

// offer hands item to every accepting link when broadcasting, else to the first one.
// Holding the lock while pushing keeps every link's queue in offer order.
func (o *outlet[T]) offer(item T) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return
	}
	for _, l := range o.links {
		if !l.accepts(item) {
			continue
		}
		l.push(item)
		if !o.broadcast {
			return
		}
	}
}

func (o *outlet[T]) close() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return
	}
	o.closed = true
	for _, l := range o.links {
		l.close()
	}
	o.links = nil
}
