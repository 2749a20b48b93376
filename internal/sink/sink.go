// Package sink delivers launch completions to independent consumers such as
// desktop notifications and the launch log file.
package sink

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"scriptmenu/internal/model"
)

// Sink consumes one completion. Implementations must be safe for concurrent
// use; several launches may complete at once.
type Sink interface {
	Name() string
	Deliver(ctx context.Context, c model.Completion) error
}

// Func adapts a function to a Sink.
type Func struct {
	ID string
	Fn func(ctx context.Context, c model.Completion) error
}

func (f Func) Name() string { return f.ID }

func (f Func) Deliver(ctx context.Context, c model.Completion) error {
	return f.Fn(ctx, c)
}

// Fanout hands c to every sink concurrently and waits for all of them.
// A failing or panicking sink does not affect the others. Failures are
// logged and returned joined, for callers that want to inspect them; the
// launch itself is never failed by a sink.
func Fanout(ctx context.Context, c model.Completion, sinks ...Sink) error {
	errs := make([]error, len(sinks))
	var g errgroup.Group
	for i, s := range sinks {
		g.Go(func() error {
			errs[i] = deliver(ctx, s, c)
			return nil
		})
	}
	_ = g.Wait() // goroutines do not return an error

	for i, err := range errs {
		if err != nil {
			log.Warn().Err(err).Str("sink", sinks[i].Name()).Str("script", c.Script).Msg("result sink failed")
		}
	}
	return errors.Join(errs...)
}

func deliver(ctx context.Context, s Sink, c model.Completion) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("sink %s panicked: %v", s.Name(), r)
		}
	}()
	if err := s.Deliver(ctx, c); err != nil {
		return fmt.Errorf("%s: %w", s.Name(), err)
	}
	return nil
}
