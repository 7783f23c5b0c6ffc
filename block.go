package flow

import (
	"context"
	"sync"
)

// Block is the lifecycle shared by every node of a graph.
type Block interface {
	// Name identifies the block in logs, errors and metrics.
	Name() string
	// Complete declares that no more input will be sent. Buffered items are still processed.
	Complete()
	// Fault stops the block immediately and resolves it with err.
	Fault(err error)
	// Done is closed once the block reached a terminal state.
	Done() <-chan struct{}
	// Err returns the fault after Done is closed, or nil for a normal completion.
	Err() error
}

// Target is a block accepting items.
type Target[T any] interface {
	Block
	// Send enqueues item. It blocks while the target applies backpressure and
	// returns ErrDeclined once the target stopped accepting input.
	Send(ctx context.Context, item T) error
}

// Source is a block producing items.
type Source[T any] interface {
	Block
	// LinkTo registers target as a downstream consumer. Only items produced after
	// the call are offered to it.
	LinkTo(target Target[T], opts ...LinkOption[T]) *Link
}

// Propagator consumes I and produces O.
type Propagator[I, O any] interface {
	Target[I]
	Source[O]
}

// completion resolves exactly once, to nil or to a fault.
type completion struct {
	once sync.Once
	done chan struct{}
	err  error
}

func newCompletion() *completion {
	return &completion{done: make(chan struct{})}
}

// resolve reports whether this call settled the completion.
func (c *completion) resolve(err error) bool {
	settled := false
	c.once.Do(func() {
		c.err = err
		close(c.done)
		settled = true
	})
	return settled
}

func (c *completion) resolved() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

func (c *completion) Done() <-chan struct{} { return c.done }

func (c *completion) Err() error {
	if !c.resolved() {
		return nil
	}
	return c.err
}

// producers is implemented by blocks that complete once every propagating link feeding them is closed.
type producers interface {
	addProducer()
	releaseProducer()
}

// gate guards the input side of a block. Send holds the read lock while it
// hands an item over, so close never races an in-flight send.
type gate struct {
	mu        sync.RWMutex
	closed    bool
	producers int
	onClose   func()
}

func (g *gate) addProducer() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.closed {
		g.producers++
	}
}

func (g *gate) releaseProducer() {
	g.mu.Lock()
	if g.closed || g.producers == 0 {
		g.mu.Unlock()
		return
	}
	g.producers--
	if g.producers > 0 {
		g.mu.Unlock()
		return
	}
	g.closed = true
	g.mu.Unlock()
	g.onClose()
}

func (g *gate) close() {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return
	}
	g.closed = true
	g.mu.Unlock()
	g.onClose()
}

// enter must be paired with leave when it returns true.
func (g *gate) enter() bool {
	g.mu.RLock()
	if g.closed {
		g.mu.RUnlock()
		return false
	}
	return true
}

func (g *gate) leave() { g.mu.RUnlock() }
