// Package watch reports when a directory changed, coalescing bursts of
// filesystem events into a single "stale" signal.
package watch

import (
	"errors"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"

	"scriptmenu/internal/model"
)

// DefaultDelay is the quiet period after the last event before onStale runs.
const DefaultDelay = 500 * time.Millisecond

// ErrNoDirectory is reported by Err on an inert handle for a missing directory.
var ErrNoDirectory = errors.New("directory does not exist")

type options struct {
	delay      time.Duration
	filter     func(path string) bool
	newWatcher func() (*fsnotify.Watcher, error)
}

// Option configures Watch.
type Option func(*options)

// WithDelay overrides DefaultDelay.
func WithDelay(d time.Duration) Option {
	return func(o *options) { o.delay = d }
}

// WithFilter only lets events for paths accepted by keep re-arm the timer.
func WithFilter(keep func(path string) bool) Option {
	return func(o *options) { o.filter = keep }
}

// WithNewWatcher replaces fsnotify.NewWatcher, for tests that need the
// subscription to fail.
func WithNewWatcher(fn func() (*fsnotify.Watcher, error)) Option {
	return func(o *options) { o.newWatcher = fn }
}

// Handle owns one directory subscription and its debounce timer.
type Handle struct {
	dir      string
	fsw      *fsnotify.Watcher
	deb      *Debouncer
	loopDone chan struct{}
	err      error
	degraded bool
	once     sync.Once
}

// Watch subscribes to changes of dir (not recursive) and calls onStale once
// per quiet period. A missing directory gives an inert handle; a failed
// subscription gives an inert, degraded handle. Neither is an error for the
// caller: the catalog can still be refreshed by hand.
func Watch(dir string, onStale func(), opts ...Option) *Handle {
	o := options{delay: DefaultDelay, newWatcher: fsnotify.NewWatcher}
	for _, opt := range opts {
		opt(&o)
	}

	h := &Handle{dir: dir}
	if !model.IsDir(dir) {
		h.err = ErrNoDirectory
		log.Debug().Str("dir", dir).Msg("not watching: no such directory")
		return h
	}

	fsw, err := o.newWatcher()
	if err != nil {
		return h.degrade(err)
	}
	if err := fsw.Add(dir); err != nil {
		_ = fsw.Close()
		return h.degrade(err)
	}

	h.fsw = fsw
	h.deb = NewDebouncer(o.delay, onStale)
	h.loopDone = make(chan struct{})
	go h.loop(o.filter)

	log.Debug().Str("dir", dir).Dur("delay", o.delay).Msg("watching directory")
	return h
}

func (h *Handle) degrade(err error) *Handle {
	h.err = err
	h.degraded = true
	log.Warn().Err(err).Str("dir", h.dir).Msg("cannot watch directory, automatic refresh disabled")
	return h
}

func (h *Handle) loop(keep func(string) bool) {
	defer close(h.loopDone)
	for {
		select {
		case ev, ok := <-h.fsw.Events:
			if !ok {
				return
			}
			if keep != nil && !keep(ev.Name) {
				continue
			}
			log.Trace().Str("dir", h.dir).Str("event", ev.String()).Msg("directory changed")
			h.deb.Trigger()
		case err, ok := <-h.fsw.Errors:
			if !ok {
				return
			}
			log.Warn().Err(err).Str("dir", h.dir).Msg("watch error")
		}
	}
}

// Cancel releases the subscription and the timer. It is idempotent, safe on
// inert handles, and onStale is never called after it returns. It must not
// be called from onStale.
func (h *Handle) Cancel() {
	if h == nil {
		return
	}
	h.once.Do(func() {
		if h.fsw == nil {
			return
		}
		if err := h.fsw.Close(); err != nil {
			log.Debug().Err(err).Str("dir", h.dir).Msg("closing watcher")
		}
		<-h.loopDone
		h.deb.Stop()
		log.Debug().Str("dir", h.dir).Msg("stopped watching directory")
	})
}

// Dir returns the watched directory.
func (h *Handle) Dir() string { return h.dir }

// Active reports whether a subscription was established.
func (h *Handle) Active() bool { return h.fsw != nil }

// Degraded reports whether the directory exists but could not be watched.
func (h *Handle) Degraded() bool { return h.degraded }

// Err returns why the handle is inert, if it is.
func (h *Handle) Err() error { return h.err }
