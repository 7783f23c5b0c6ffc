package flow

import (
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Hooks are the terminal callbacks of a block. For a given block exactly one of them
// runs, once. Hooks must not rely on panicking: a panic is recovered and logged.
type Hooks struct {
	OnFault    func(name string, err error)
	OnComplete func(name string)
}

// Observe waits in the background for b to finish and runs the matching callback of
// every hooks value. A block that already finished is reported right away.
// Panicking hooks are reported on the global logger.
func Observe(b Block, hooks ...Hooks) {
	observe(b, log.Logger, hooks)
}

func observe(b Block, logger zerolog.Logger, hooks []Hooks) {
	go func() {
		<-b.Done()
		err := b.Err()
		for _, h := range hooks {
			notify(logger, b.Name(), err, h)
		}
	}()
}

func notify(logger zerolog.Logger, name string, err error, h Hooks) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error().Str("stage", name).Interface("panic", r).Msg("completion hook panicked")
		}
	}()
	if err != nil {
		if h.OnFault != nil {
			h.OnFault(name, err)
		}
		return
	}
	if h.OnComplete != nil {
		h.OnComplete(name)
	}
}

// LogHooks reports faults at error level and completions at debug level.
func LogHooks(logger zerolog.Logger) Hooks {
	return Hooks{
		OnFault: func(name string, err error) {
			logger.Error().Err(err).Str("stage", name).Msg("stage faulted")
		},
		OnComplete: func(name string) {
			logger.Debug().Str("stage", name).Msg("stage completed")
		},
	}
}
