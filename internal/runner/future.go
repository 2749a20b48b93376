package runner

import (
	"context"
	"sync"

	"scriptmenu/internal/model"
)

// Future is the pending outcome of one launch. It resolves exactly once,
// either with a LaunchResult or with a *SpawnError.
type Future struct {
	script string
	done   chan struct{}

	mu    sync.Mutex
	res   model.LaunchResult
	err   error
	thens []func(model.LaunchResult, error)
}

func newFuture(script string) *Future {
	return &Future{script: script, done: make(chan struct{})}
}

// Resolved returns an already completed Future, for launchers that are not
// backed by a real process.
func Resolved(script string, res model.LaunchResult, err error) *Future {
	f := newFuture(script)
	f.resolve(res, err)
	return f
}

// Script returns the file name of the launched script.
func (f *Future) Script() string { return f.script }

// Done is closed once the Future resolved.
func (f *Future) Done() <-chan struct{} { return f.done }

// Resolved reports whether the Future completed.
func (f *Future) Resolved() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// Wait blocks until the Future resolves or ctx ends.
func (f *Future) Wait(ctx context.Context) (model.LaunchResult, error) {
	select {
	case <-f.done:
		f.mu.Lock()
		defer f.mu.Unlock()
		return f.res, f.err
	case <-ctx.Done():
		return model.LaunchResult{}, ctx.Err()
	}
}

// Then registers fn to run with the outcome. fn runs on the resolving
// goroutine, or right away on the caller's goroutine when already resolved.
func (f *Future) Then(fn func(model.LaunchResult, error)) {
	f.mu.Lock()
	select {
	case <-f.done:
		res, err := f.res, f.err
		f.mu.Unlock()
		fn(res, err)
		return
	default:
	}
	f.thens = append(f.thens, fn)
	f.mu.Unlock()
}

// Completion converts the resolved outcome for result sinks. It must only be
// called once Done is closed.
func (f *Future) Completion() model.Completion {
	<-f.done
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return model.Completion{Script: f.script, Err: f.err}
	}
	res := f.res
	return model.Completion{Script: f.script, Result: &res}
}

func (f *Future) resolve(res model.LaunchResult, err error) {
	f.mu.Lock()
	f.res, f.err = res, err
	thens := f.thens
	f.thens = nil
	close(f.done)
	f.mu.Unlock()

	for _, fn := range thens {
		fn(res, err)
	}
}
