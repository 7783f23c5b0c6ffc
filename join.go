package flow

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"github.com/samber/lo"
)

// pairer decides which received values form a round.
type pairer[T any] interface {
	// add records item for lane and returns the rounds it completed, in emission order.
	add(lane int, item T) ([][]T, error)
	// stranded counts values that can no longer be paired.
	stranded() int
}

// positional pairs the k-th value of every lane, whatever their content.
type positional[T any] struct {
	queues [][]T
}

func newPositional[T any](n int) *positional[T] {
	return &positional[T]{queues: make([][]T, n)}
}

func (p *positional[T]) add(lane int, item T) ([][]T, error) {
	p.queues[lane] = append(p.queues[lane], item)

	var rounds [][]T
	for lo.EveryBy(p.queues, func(q []T) bool { return len(q) > 0 }) {
		round := make([]T, len(p.queues))
		for i, q := range p.queues {
			round[i] = q[0]
			var zero T
			q[0] = zero
			p.queues[i] = q[1:]
		}
		rounds = append(rounds, round)
	}
	return rounds, nil
}

func (p *positional[T]) stranded() int {
	return lo.SumBy(p.queues, func(q []T) int { return len(q) })
}

// keyed pairs values sharing the same correlation key.
type keyed[T any, K comparable] struct {
	n       int
	key     func(T) K
	partial map[K]*partialRound[T]
}

type partialRound[T any] struct {
	values []T
	seen   []bool
	count  int
}

func newKeyed[T any, K comparable](n int, key func(T) K) *keyed[T, K] {
	return &keyed[T, K]{n: n, key: key, partial: make(map[K]*partialRound[T])}
}

func (k *keyed[T, K]) add(lane int, item T) ([][]T, error) {
	id := k.key(item)
	p, ok := k.partial[id]
	if !ok {
		p = &partialRound[T]{values: make([]T, k.n), seen: make([]bool, k.n)}
		k.partial[id] = p
	}
	if p.seen[lane] {
		return nil, fmt.Errorf("%w: %v on lane %d", ErrDuplicateKey, id, lane)
	}
	p.values[lane] = item
	p.seen[lane] = true
	p.count++
	if p.count < k.n {
		return nil, nil
	}
	delete(k.partial, id)
	return [][]T{p.values}, nil
}

func (k *keyed[T, K]) stranded() int {
	return lo.SumBy(lo.Values(k.partial), func(p *partialRound[T]) int { return p.count })
}

// Join synchronises N lanes and emits one round ([]T in lane order) each time every
// lane contributed a value. It completes once every lane completed; values that were
// never paired are dropped.
type Join[T any] struct {
	name   string
	lanes  []*Lane[T]
	log    zerolog.Logger
	out    *outlet[[]T]
	comp   *completion
	mu     sync.Mutex
	pairer pairer[T]
	open   int
}

// Lane is one input of a Join.
type Lane[T any] struct {
	join  *Join[T]
	index int
	gate  gate
}

// NewJoin creates a join pairing values by arrival position: the k-th value of every
// lane forms round k.
func NewJoin[T any](n int, opts ...Option) (*Join[T], error) {
	if n < 2 {
		return nil, branchCountError(n)
	}
	return newJoin[T](n, newPositional[T](n), opts), nil
}

// NewKeyedJoin creates a join pairing values by key: a round is emitted as soon as
// every lane received a value with the same key.
func NewKeyedJoin[T any, K comparable](n int, key func(T) K, opts ...Option) (*Join[T], error) {
	if n < 2 {
		return nil, branchCountError(n)
	}
	return newJoin[T](n, newKeyed(n, key), opts), nil
}

func newJoin[T any](n int, p pairer[T], opts []Option) *Join[T] {
	o := newOptions("join", opts)
	j := &Join[T]{
		name:   o.Name,
		log:    o.Logger,
		out:    newOutlet[[]T](false),
		comp:   newCompletion(),
		pairer: p,
		open:   n,
	}
	j.lanes = make([]*Lane[T], n)
	for i := range j.lanes {
		lane := &Lane[T]{join: j, index: i}
		lane.gate.onClose = j.laneDone
		j.lanes[i] = lane
	}
	o.observe(j)
	return j
}

// Lane returns input i, counted from 0.
func (j *Join[T]) Lane(i int) *Lane[T] { return j.lanes[i] }

// Lanes returns the number of inputs.
func (j *Join[T]) Lanes() int { return len(j.lanes) }

func (j *Join[T]) Name() string          { return j.name }
func (j *Join[T]) Done() <-chan struct{} { return j.comp.Done() }
func (j *Join[T]) Err() error            { return j.comp.Err() }

// Complete completes every lane.
func (j *Join[T]) Complete() {
	for _, l := range j.lanes {
		l.gate.close()
	}
}

func (j *Join[T]) Fault(err error) {
	if err == nil {
		err = ErrFaulted
	}
	j.out.close()
	j.comp.resolve(stageError(j.name, err))
}

func (j *Join[T]) LinkTo(target Target[[]T], opts ...LinkOption[[]T]) *Link {
	return j.out.add(target, opts)
}

func (j *Join[T]) push(lane int, item T) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.comp.resolved() {
		return ErrDeclined
	}
	rounds, err := j.pairer.add(lane, item)
	if err != nil {
		return err
	}
	for _, r := range rounds {
		j.out.offer(r)
	}
	return nil
}

func (j *Join[T]) laneDone() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.open--
	if j.open > 0 {
		return
	}
	if n := j.pairer.stranded(); n > 0 {
		j.log.Debug().Int("stranded", n).Msg("join completed with unpaired values")
	}
	j.out.close()
	j.comp.resolve(nil)
}

func (l *Lane[T]) Name() string          { return fmt.Sprintf("%s[%d]", l.join.name, l.index) }
func (l *Lane[T]) Done() <-chan struct{} { return l.join.Done() }
func (l *Lane[T]) Err() error            { return l.join.Err() }
func (l *Lane[T]) Complete()             { l.gate.close() }
func (l *Lane[T]) Fault(err error)       { l.join.Fault(err) }

func (l *Lane[T]) addProducer()     { l.gate.addProducer() }
func (l *Lane[T]) releaseProducer() { l.gate.releaseProducer() }

func (l *Lane[T]) Send(_ context.Context, item T) error {
	if !l.gate.enter() {
		return ErrDeclined
	}
	defer l.gate.leave()
	return l.join.push(l.index, item)
}
