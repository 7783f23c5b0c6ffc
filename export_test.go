package flow

import "github.com/panjf2000/ants/v2"

// Pool returns the goroutine pool of the stage, nil when it runs sequentially.
func (t *Transform[I, O]) Pool() *ants.Pool {
	if t == nil || t.workers == nil {
		return nil
	}
	return t.workers.pool
}

// Stranded returns how many received values could not be paired yet.
func (j *Join[T]) Stranded() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.pairer.stranded()
}
