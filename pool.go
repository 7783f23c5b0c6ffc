package flow

import (
	"github.com/panjf2000/ants/v2"
)

// workers runs the tasks of one stage. A nil pool means the stage has a parallelism of 1:
// tasks then run in the stage routine, one after the other.
type workers struct {
	pool  *ants.Pool
	owned bool
}

// newWorkers returns the shared pool when there is one, else a pool sized to parallelism.
func newWorkers(o Options) (*workers, error) {
	if o.Pool != nil {
		return &workers{pool: o.Pool}, nil
	}
	if o.Parallelism <= 1 {
		return &workers{}, nil
	}
	pool, err := ants.NewPool(o.Parallelism, o.PoolOptions...)
	if err != nil {
		return nil, err
	}
	return &workers{pool: pool, owned: true}, nil
}

func (w *workers) inline() bool {
	return w == nil || w.pool == nil
}

// submit blocks until the pool accepts the task, or runs it right away without a pool.
func (w *workers) submit(task func()) error {
	if w.inline() {
		task()
		return nil
	}
	return w.pool.Submit(task)
}

// Release releases the pool if the stage created it.
func (w *workers) release() {
	if w != nil && w.owned {
		w.pool.Release()
	}
}
