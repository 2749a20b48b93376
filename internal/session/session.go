// Package session ties the catalog, the directory watcher, the runner and
// the result sinks together behind a start/stop lifecycle.
//
// A Session owns one event loop goroutine. Directory changes, settings
// changes, refresh requests and launch completions are all posted to it;
// snapshot replacement and sink dispatch only happen there.
package session

import (
	"context"
	"errors"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"scriptmenu/internal/catalog"
	"scriptmenu/internal/config"
	"scriptmenu/internal/model"
	"scriptmenu/internal/runner"
	"scriptmenu/internal/sink"
	"scriptmenu/internal/watch"
)

var (
	ErrStarted       = errors.New("session already started")
	ErrStopped       = errors.New("session stopped")
	ErrNotStarted    = errors.New("session not started")
	ErrNoSettings    = errors.New("session has no settings")
	ErrUnknownScript = errors.New("no such script")
)

// Launcher starts a script and returns its pending outcome.
type Launcher interface {
	Launch(path string) *runner.Future
}

// completionBuffer bounds completions queued while the loop is busy.
const completionBuffer = 64

type pending struct {
	completion model.Completion
	sinks      []sink.Sink
}

// Session is the running script menu core. Create it with New.
type Session struct {
	settings config.Settings
	catalog  *catalog.Catalog
	launcher Launcher
	title    string
	notify   sink.NotifyFunc
	logPath  string
	delay    time.Duration
	watchOpt []watch.Option
	extra    []sink.Sink

	onRefresh    func(model.CatalogSnapshot)
	onTopIcon    func(model.IconRef)
	onCompletion func(model.Completion)

	snap     atomic.Pointer[model.CatalogSnapshot]
	degraded atomic.Bool

	rescan      chan struct{}
	rewatch     chan struct{}
	topIcon     chan struct{}
	completions chan pending

	mu       sync.Mutex
	started  bool
	stopped  bool
	subs     []config.Subscription
	cancel   context.CancelFunc
	quit     chan struct{}
	loopDone chan struct{}
	handle   *watch.Handle // owned by the loop once it runs
}

// Option configures a Session.
type Option func(*Session)

// WithCatalog replaces the default catalog.
func WithCatalog(c *catalog.Catalog) Option {
	return func(s *Session) { s.catalog = c }
}

// WithLauncher replaces the process runner.
func WithLauncher(l Launcher) Option {
	return func(s *Session) { s.launcher = l }
}

// WithNotifier sets where completion messages go when the notify setting is
// on. Without it the notify setting has no effect.
func WithNotifier(title string, fn sink.NotifyFunc) Option {
	return func(s *Session) {
		s.title = title
		s.notify = fn
	}
}

// WithLogPath overrides ~/.scriptmenu.log.
func WithLogPath(path string) Option {
	return func(s *Session) { s.logPath = path }
}

// WithWatchDelay overrides watch.DefaultDelay.
func WithWatchDelay(d time.Duration) Option {
	return func(s *Session) { s.delay = d }
}

// WithWatchOptions passes extra options to every directory watch.
func WithWatchOptions(opts ...watch.Option) Option {
	return func(s *Session) { s.watchOpt = append(s.watchOpt, opts...) }
}

// WithSinks adds sinks that receive every completion regardless of settings.
func WithSinks(sinks ...sink.Sink) Option {
	return func(s *Session) { s.extra = append(s.extra, sinks...) }
}

// OnRefresh is called on the loop with every new snapshot.
func OnRefresh(fn func(model.CatalogSnapshot)) Option {
	return func(s *Session) { s.onRefresh = fn }
}

// OnTopIcon is called on the loop when the top icon settings change.
func OnTopIcon(fn func(model.IconRef)) Option {
	return func(s *Session) { s.onTopIcon = fn }
}

// OnCompletion is called on the loop after the sinks of a launch ran.
func OnCompletion(fn func(model.Completion)) Option {
	return func(s *Session) { s.onCompletion = fn }
}

// New returns a stopped session reading from settings.
func New(settings config.Settings, opts ...Option) *Session {
	s := &Session{
		settings:    settings,
		title:       model.AppName,
		delay:       watch.DefaultDelay,
		rescan:      make(chan struct{}, 1),
		rewatch:     make(chan struct{}, 1),
		topIcon:     make(chan struct{}, 1),
		completions: make(chan pending, completionBuffer),
		quit:        make(chan struct{}),
	}
	if home, err := os.UserHomeDir(); err == nil {
		s.logPath = model.LogFilePath(home)
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.catalog == nil {
		s.catalog = catalog.New()
	}
	if s.launcher == nil {
		s.launcher = runner.New()
	}
	s.snap.Store(&model.CatalogSnapshot{Scripts: []model.ScriptDescriptor{}})
	return s
}

// Start subscribes to settings, scans and watches the scripts directory and
// runs the event loop until Stop or until ctx ends.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case s.stopped:
		return ErrStopped
	case s.started:
		return ErrStarted
	case s.settings == nil:
		return ErrNoSettings
	}

	s.connect(config.KeyPath, s.rewatch)
	for _, k := range []string{config.KeyStrip, config.KeyShebangIcon, config.KeyDefaultIcon} {
		s.connect(k, s.rescan)
	}
	for _, k := range []string{config.KeyUseCustomTopIcon, config.KeyTopIconName} {
		s.connect(k, s.topIcon)
	}

	s.watch()
	s.scan()

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.loopDone = make(chan struct{})
	s.started = true
	go s.loop(ctx)

	log.Debug().Str("dir", config.ScriptsDir(s.settings)).Msg("session started")
	return nil
}

func (s *Session) connect(key string, ch chan struct{}) {
	s.subs = append(s.subs, s.settings.Connect(key, func(string) { signal(ch) }))
}

// signal posts a coalescing wakeup.
func signal(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

// Stop releases the watch, the settings subscriptions and the loop. It is
// idempotent and safe on a session that never started. Completions arriving
// later are dropped. The lock is not held while waiting for the loop, so
// callbacks running on it may still call into the session.
func (s *Session) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	subs := s.subs
	s.subs = nil
	started, cancel, loopDone := s.started, s.cancel, s.loopDone
	close(s.quit)
	s.mu.Unlock()

	for _, sub := range subs {
		sub.Close()
	}
	if started {
		cancel()
		<-loopDone
	}
	// only the first Stop gets here, after the loop released the handle
	s.handle.Cancel()
	s.handle = nil
	log.Debug().Msg("session stopped")
}

func (s *Session) loop(ctx context.Context) {
	defer close(s.loopDone)
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.rewatch:
			s.watch()
			s.scan()
		case <-s.rescan:
			s.scan()
		case <-s.topIcon:
			if s.onTopIcon != nil {
				s.onTopIcon(s.TopIcon())
			}
		case p := <-s.completions:
			s.dispatch(ctx, p)
		}
	}
}

// watch replaces the directory subscription for the current path setting.
func (s *Session) watch() {
	s.handle.Cancel()
	s.handle = nil
	s.degraded.Store(false)

	dir := config.ScriptsDir(s.settings)
	if dir == "" {
		return
	}
	opts := append([]watch.Option{watch.WithDelay(s.delay)}, s.watchOpt...)
	s.handle = watch.Watch(dir, func() { signal(s.rescan) }, opts...)
	s.degraded.Store(s.handle.Degraded())
}

func (s *Session) scan() {
	snap := s.catalog.Scan(config.ScriptsDir(s.settings), config.CatalogOptions(s.settings))
	s.snap.Store(&snap)
	log.Debug().Str("dir", snap.Directory).Int("scripts", snap.Len()).Msg("catalog refreshed")
	if s.onRefresh != nil {
		s.onRefresh(snap)
	}
}

func (s *Session) dispatch(ctx context.Context, p pending) {
	// sink failures are logged by Fanout
	_ = sink.Fanout(ctx, p.completion, p.sinks...)
	if s.onCompletion != nil {
		s.onCompletion(p.completion)
	}
}

// Refresh asks the loop to rescan. Requests made while a rescan is queued
// are coalesced.
func (s *Session) Refresh() {
	signal(s.rescan)
}

// Snapshot returns the latest catalog snapshot.
func (s *Session) Snapshot() model.CatalogSnapshot {
	return *s.snap.Load()
}

// Filter returns the scripts of the latest snapshot matching query.
func (s *Session) Filter(query string) []model.ScriptDescriptor {
	return catalog.Filter(s.Snapshot(), query)
}

// TopIcon resolves the menu's top-level icon from the current settings.
func (s *Session) TopIcon() model.IconRef {
	return config.TopIcon(s.settings)
}

// WatchDegraded reports whether the scripts directory exists but is not
// being watched; the catalog then only refreshes on Refresh.
func (s *Session) WatchDegraded() bool {
	return s.degraded.Load()
}

// LogPath returns the launch log location.
func (s *Session) LogPath() string { return s.logPath }

// Launch starts the script named name (file or display name).
func (s *Session) Launch(name string) (*runner.Future, error) {
	d, ok := s.Snapshot().Lookup(name)
	if !ok {
		return nil, ErrUnknownScript
	}
	return s.LaunchScript(d)
}

// LaunchScript starts d and returns at once. The sinks that receive its
// completion are chosen now, from the notify and log settings.
func (s *Session) LaunchScript(d model.ScriptDescriptor) (*runner.Future, error) {
	s.mu.Lock()
	started, stopped := s.started, s.stopped
	s.mu.Unlock()
	if stopped {
		return nil, ErrStopped
	}
	if !started {
		return nil, ErrNotStarted
	}

	sinks := s.composeSinks()
	log.Info().Str("script", d.FileName).Int("sinks", len(sinks)).Msg("launching")

	fut := s.launcher.Launch(d.Path)
	fut.Then(func(model.LaunchResult, error) {
		s.post(pending{completion: fut.Completion(), sinks: sinks})
	})
	return fut, nil
}

func (s *Session) composeSinks() []sink.Sink {
	sinks := make([]sink.Sink, 0, 2+len(s.extra))
	if s.settings.Bool(config.KeyNotify) && s.notify != nil {
		sinks = append(sinks, sink.NewNotifier(s.title, s.notify))
	}
	if s.settings.Bool(config.KeyLog) {
		if s.logPath == "" {
			log.Warn().Msg("launch log enabled but no home directory")
		} else {
			sinks = append(sinks, sink.NewFileLogger(s.logPath))
		}
	}
	return append(sinks, s.extra...)
}

func (s *Session) post(p pending) {
	select {
	case <-s.quit:
		log.Debug().Str("script", p.completion.Script).Msg("session stopped, dropping completion")
		return
	default:
	}
	select {
	case s.completions <- p:
	case <-s.quit:
		log.Debug().Str("script", p.completion.Script).Msg("session stopped, dropping completion")
	}
}
