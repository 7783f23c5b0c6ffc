package flow

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// DefaultCapacity is the input buffer size of a stage when none is configured.
const DefaultCapacity = 64

// Options configures a block. Use the With* functions to set them.
type Options struct {
	Name        string
	Capacity    int
	Parallelism int
	Pool        *ants.Pool
	PoolOptions []ants.Option
	Logger      zerolog.Logger
	Hooks       []Hooks
	Context     context.Context
}

// Option mutates Options.
type Option func(*Options)

// WithName names the block. Unnamed blocks get a kind-prefixed random name.
func WithName(name string) Option {
	return func(o *Options) { o.Name = name }
}

// WithCapacity bounds the input buffer of a stage. Send blocks once it is full.
func WithCapacity(capacity int) Option {
	return func(o *Options) { o.Capacity = capacity }
}

// WithParallelism sets how many items a stage processes at once. Output order is kept.
func WithParallelism(n int) Option {
	return func(o *Options) { o.Parallelism = n }
}

// WithPool runs the stage on a shared goroutine pool. The stage never releases it.
func WithPool(pool *ants.Pool) Option {
	return func(o *Options) { o.Pool = pool }
}

// WithPoolOptions is passed to the pool a stage creates for its own parallelism.
func WithPoolOptions(opts ...ants.Option) Option {
	return func(o *Options) { o.PoolOptions = append(o.PoolOptions, opts...) }
}

// WithLogger replaces the logger of the block and of its default observer.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *Options) { o.Logger = logger }
}

// WithHooks adds completion observers next to the logging one.
func WithHooks(hooks ...Hooks) Option {
	return func(o *Options) { o.Hooks = append(o.Hooks, hooks...) }
}

// WithContext sets the context handed to stage functions. It is cancelled when the stage ends.
func WithContext(ctx context.Context) Option {
	return func(o *Options) { o.Context = ctx }
}

// WithConfig applies a StageConfig, usually obtained from Config.Stage.
func WithConfig(cfg StageConfig) Option {
	return func(o *Options) {
		if cfg.Capacity > 0 {
			o.Capacity = cfg.Capacity
		}
		if cfg.Parallelism > 0 {
			o.Parallelism = cfg.Parallelism
		}
	}
}

func newOptions(kind string, opts []Option) Options {
	o := Options{
		Capacity:    DefaultCapacity,
		Parallelism: 1,
		Logger:      log.Logger.With().Str("component", "flow").Logger(),
		Context:     context.Background(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.Name == "" {
		o.Name = blockName(kind)
	}
	if o.Capacity <= 0 {
		o.Capacity = DefaultCapacity
	}
	if o.Parallelism <= 0 {
		o.Parallelism = 1
	}
	o.Logger = o.Logger.With().Str("stage", o.Name).Logger()
	return o
}

// blockName returns a kind-prefixed random name, e.g. join-1f0c9a2b.
func blockName(kind string) string {
	return fmt.Sprintf("%s-%s", kind, uuid.NewString()[:8])
}

// observe attaches the block's observer: logging first, then any extra hooks.
func (o Options) observe(b Block) {
	observe(b, o.Logger, append([]Hooks{LogHooks(o.Logger)}, o.Hooks...))
}
