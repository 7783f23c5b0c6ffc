package flow_test

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/fogfactory/flow"
	"github.com/maxatome/go-testdeep/td"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const waitTimeout = 5 * time.Second

func TestMain(m *testing.M) {
	// composer-created nodes log on the global logger
	log.Logger = zerolog.Nop()
	os.Exit(m.Run())
}

// quiet silences the default logging observer of a block.
func quiet() flow.Option {
	return flow.WithLogger(zerolog.Nop())
}

func identity[T any](v T) T { return v }

// feed sends every item to target then completes it.
func feed[T any](t testing.TB, target flow.Target[T], items ...T) {
	t.Helper()
	for _, item := range items {
		td.Require(t).CmpNoError(target.Send(context.Background(), item))
	}
	target.Complete()
}

// waitDone fails the test if b does not finish in time.
func waitDone(t testing.TB, b flow.Block) {
	t.Helper()
	select {
	case <-b.Done():
	case <-time.After(waitTimeout):
		t.Fatalf("%s did not complete in %s", b.Name(), waitTimeout)
	}
}

// isPending reports whether b is still running after d.
func isPending(b flow.Block, d time.Duration) bool {
	select {
	case <-b.Done():
		return false
	case <-time.After(d):
		return true
	}
}

// sink is a terminal stage recording what it receives.
type sink[T any] struct {
	*flow.Action[T]
	mu    sync.Mutex
	items []T
}

func newSink[T any](opts ...flow.Option) *sink[T] {
	s := &sink[T]{}
	s.Action = flow.NewAction(func(_ context.Context, v T) error {
		s.mu.Lock()
		s.items = append(s.items, v)
		s.mu.Unlock()
		return nil
	}, append([]flow.Option{quiet()}, opts...)...)
	return s
}

// collect links a sink to source.
func collect[T any](source flow.Source[T]) *sink[T] {
	s := newSink[T]()
	source.LinkTo(s)
	return s
}

// wait returns the received items once the sink completed.
func (s *sink[T]) wait(t testing.TB) []T {
	t.Helper()
	waitDone(t, s)
	return s.snapshot()
}

func (s *sink[T]) snapshot() []T {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]T(nil), s.items...)
}
