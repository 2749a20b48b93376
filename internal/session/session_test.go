package session_test

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/require"

	"scriptmenu/internal/config"
	"scriptmenu/internal/model"
	"scriptmenu/internal/runner"
	"scriptmenu/internal/session"
	"scriptmenu/internal/watch"
)

const quick = 50 * time.Millisecond

func writeScript(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755))
	return path
}

type fakeLauncher struct {
	mu    sync.Mutex
	paths []string
	out   func(path string) (model.LaunchResult, error)
}

func (f *fakeLauncher) Launch(path string) *runner.Future {
	f.mu.Lock()
	f.paths = append(f.paths, path)
	f.mu.Unlock()
	res, err := f.out(path)
	return runner.Resolved(filepath.Base(path), res, err)
}

func stdoutLauncher(stdout string) *fakeLauncher {
	return &fakeLauncher{out: func(path string) (model.LaunchResult, error) {
		return model.LaunchResult{Script: filepath.Base(path), Path: path, Stdout: stdout}, nil
	}}
}

type notifications struct {
	mu   sync.Mutex
	msgs []string
}

func (n *notifications) notify(_, msg string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.msgs = append(n.msgs, msg)
	return nil
}

func (n *notifications) all() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.msgs...)
}

type fixture struct {
	dir       string
	settings  *config.Memory
	notes     *notifications
	logPath   string
	completed chan model.Completion
	refreshed chan model.CatalogSnapshot
	session   *session.Session
}

func newFixture(t *testing.T, l session.Launcher, mutate func(*config.Values)) *fixture {
	t.Helper()
	f := &fixture{
		dir:       t.TempDir(),
		notes:     &notifications{},
		completed: make(chan model.Completion, 16),
		refreshed: make(chan model.CatalogSnapshot, 64),
	}
	f.logPath = filepath.Join(t.TempDir(), ".scriptmenu.log")
	v := config.Defaults()
	v.Path = f.dir
	if mutate != nil {
		mutate(&v)
	}
	f.settings = config.NewMemory(v)

	opts := []session.Option{
		session.WithNotifier("scriptmenu", f.notes.notify),
		session.WithLogPath(f.logPath),
		session.WithWatchDelay(quick),
		session.OnCompletion(func(c model.Completion) { f.completed <- c }),
		session.OnRefresh(func(s model.CatalogSnapshot) {
			select {
			case f.refreshed <- s:
			default:
			}
		}),
	}
	if l != nil {
		opts = append(opts, session.WithLauncher(l))
	}
	f.session = session.New(f.settings, opts...)
	t.Cleanup(f.session.Stop)
	return f
}

func (f *fixture) awaitCompletion(t *testing.T) model.Completion {
	t.Helper()
	select {
	case c := <-f.completed:
		return c
	case <-time.After(5 * time.Second):
		t.Fatal("no completion delivered")
		return model.Completion{}
	}
}

func fileNames(snap model.CatalogSnapshot) []string {
	names := make([]string, 0, snap.Len())
	for _, d := range snap.Scripts {
		names = append(names, d.FileName)
	}
	return names
}

func TestLifecycle(t *testing.T) {
	t.Parallel()
	f := newFixture(t, stdoutLauncher(""), nil)
	writeScript(t, f.dir, "b.sh", "true")
	writeScript(t, f.dir, "a.sh", "true")

	require.Empty(t, f.session.Snapshot().Scripts)
	require.NoError(t, f.session.Start(t.Context()))
	require.ErrorIs(t, f.session.Start(t.Context()), session.ErrStarted)
	require.Equal(t, []string{"a.sh", "b.sh"}, fileNames(f.session.Snapshot()))
	require.False(t, f.session.WatchDegraded())

	f.session.Stop()
	f.session.Stop()
	require.ErrorIs(t, f.session.Start(t.Context()), session.ErrStopped)
	_, err := f.session.Launch("a.sh")
	require.ErrorIs(t, err, session.ErrStopped)
}

func TestStopWithoutStart(t *testing.T) {
	t.Parallel()
	s := session.New(config.NewMemory(config.Defaults()))
	s.Stop()
	s.Stop()
	require.ErrorIs(t, s.Start(context.Background()), session.ErrStopped)
}

func TestStartWithoutSettings(t *testing.T) {
	t.Parallel()
	s := session.New(nil)
	require.ErrorIs(t, s.Start(context.Background()), session.ErrNoSettings)
	s.Stop()
}

func TestLaunchBeforeStart(t *testing.T) {
	t.Parallel()
	f := newFixture(t, stdoutLauncher(""), nil)
	_, err := f.session.LaunchScript(model.ScriptDescriptor{FileName: "a.sh", Path: "/x/a.sh"})
	require.ErrorIs(t, err, session.ErrNotStarted)
}

func TestUnsetPathGivesEmptyMenu(t *testing.T) {
	t.Parallel()
	f := newFixture(t, stdoutLauncher(""), func(v *config.Values) { v.Path = "" })
	require.NoError(t, f.session.Start(t.Context()))
	require.Empty(t, f.session.Snapshot().Scripts)
	require.Empty(t, f.session.Menu().Items)
}

func TestDirectoryChangeRefreshes(t *testing.T) {
	t.Parallel()
	f := newFixture(t, stdoutLauncher(""), nil)
	require.NoError(t, f.session.Start(t.Context()))
	require.Empty(t, f.session.Snapshot().Scripts)

	writeScript(t, f.dir, "new.sh", "true")
	require.Eventually(t, func() bool {
		return len(f.session.Snapshot().Scripts) == 1
	}, 5*time.Second, 10*time.Millisecond)
	require.Equal(t, "new.sh", f.session.Snapshot().Scripts[0].FileName)
}

func TestPathChangeRewatches(t *testing.T) {
	t.Parallel()
	f := newFixture(t, stdoutLauncher(""), nil)
	writeScript(t, f.dir, "old.sh", "true")
	require.NoError(t, f.session.Start(t.Context()))
	require.Equal(t, []string{"old.sh"}, fileNames(f.session.Snapshot()))

	other := t.TempDir()
	writeScript(t, other, "first.sh", "true")
	require.NoError(t, f.settings.Set(config.KeyPath, other))
	require.Eventually(t, func() bool {
		return f.session.Snapshot().Directory == other
	}, 5*time.Second, 10*time.Millisecond)
	require.Equal(t, []string{"first.sh"}, fileNames(f.session.Snapshot()))

	writeScript(t, other, "second.sh", "true")
	require.Eventually(t, func() bool {
		return f.session.Snapshot().Len() == 2
	}, 5*time.Second, 10*time.Millisecond)
}

func TestStripSettingRescans(t *testing.T) {
	t.Parallel()
	f := newFixture(t, stdoutLauncher(""), nil)
	writeScript(t, f.dir, "deploy.sh", "true")
	require.NoError(t, f.session.Start(t.Context()))
	require.Equal(t, "deploy.sh", f.session.Snapshot().Scripts[0].DisplayName)

	require.NoError(t, f.settings.Set(config.KeyStrip, true))
	require.Eventually(t, func() bool {
		return f.session.Snapshot().Scripts[0].DisplayName == "deploy"
	}, 5*time.Second, 10*time.Millisecond)
}

func TestRefresh(t *testing.T) {
	t.Parallel()
	f := newFixture(t, stdoutLauncher(""), nil)
	require.NoError(t, f.session.Start(t.Context()))
	<-f.refreshed

	f.session.Refresh()
	select {
	case <-f.refreshed:
	case <-time.After(5 * time.Second):
		t.Fatal("refresh did not rescan")
	}
}

func TestLaunchDeliversToEnabledSinks(t *testing.T) {
	t.Parallel()
	l := stdoutLauncher("hello\n")
	f := newFixture(t, l, func(v *config.Values) { v.Log = true })
	path := writeScript(t, f.dir, "greet.sh", "echo hello")
	require.NoError(t, f.session.Start(t.Context()))

	fut, err := f.session.Launch("greet.sh")
	require.NoError(t, err)
	require.True(t, fut.Resolved())

	c := f.awaitCompletion(t)
	require.False(t, c.Failed())
	require.Equal(t, []string{path}, l.paths)
	require.Equal(t, []string{"[greet.sh]: hello\n"}, f.notes.all())

	raw, err := os.ReadFile(f.logPath)
	require.NoError(t, err)
	require.Contains(t, string(raw), "[greet.sh]: ")
	require.Contains(t, string(raw), "STDOUT:\nhello\nSTDERR:\n")
}

func TestSettingsReadAtLaunch(t *testing.T) {
	t.Parallel()
	f := newFixture(t, stdoutLauncher("x"), nil)
	writeScript(t, f.dir, "a.sh", "true")
	require.NoError(t, f.session.Start(t.Context()))

	require.NoError(t, f.settings.Set(config.KeyNotify, false))
	_, err := f.session.Launch("a.sh")
	require.NoError(t, err)
	f.awaitCompletion(t)
	require.Empty(t, f.notes.all())
	require.NoFileExists(t, f.logPath)

	require.NoError(t, f.settings.Set(config.KeyNotify, true))
	_, err = f.session.Launch("a.sh")
	require.NoError(t, err)
	f.awaitCompletion(t)
	require.Equal(t, []string{"[a.sh]: x"}, f.notes.all())
}

func TestSpawnFailureNotifiesWithoutLogRecord(t *testing.T) {
	t.Parallel()
	l := &fakeLauncher{out: func(path string) (model.LaunchResult, error) {
		return model.LaunchResult{}, &runner.SpawnError{Path: path, Err: &os.PathError{Op: "fork/exec", Path: path, Err: os.ErrPermission}}
	}}
	f := newFixture(t, l, func(v *config.Values) { v.Log = true })
	writeScript(t, f.dir, "locked.sh", "true")
	require.NoError(t, f.session.Start(t.Context()))

	_, err := f.session.Launch("locked.sh")
	require.NoError(t, err)
	c := f.awaitCompletion(t)
	require.True(t, c.Failed())
	var spawnErr *runner.SpawnError
	require.True(t, errors.As(c.Err, &spawnErr))
	require.Equal(t, []string{"[locked.sh]: permission denied"}, f.notes.all())
	require.NoFileExists(t, f.logPath)
}

func TestLaunchUnknownScript(t *testing.T) {
	t.Parallel()
	f := newFixture(t, stdoutLauncher(""), nil)
	require.NoError(t, f.session.Start(t.Context()))
	_, err := f.session.Launch("ghost.sh")
	require.ErrorIs(t, err, session.ErrUnknownScript)
}

func TestLaunchByDisplayName(t *testing.T) {
	t.Parallel()
	l := stdoutLauncher("")
	f := newFixture(t, l, func(v *config.Values) { v.Strip = true })
	path := writeScript(t, f.dir, "deploy.sh", "true")
	require.NoError(t, f.session.Start(t.Context()))

	_, err := f.session.Launch("deploy")
	require.NoError(t, err)
	f.awaitCompletion(t)
	require.Equal(t, []string{path}, l.paths)
}

func TestCompletionAfterStopIsDropped(t *testing.T) {
	t.Parallel()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	r := runner.New()
	f := newFixture(t, r, nil)
	writeScript(t, f.dir, "slow.sh", "sleep 0.3; echo late")
	require.NoError(t, f.session.Start(t.Context()))

	fut, err := f.session.Launch("slow.sh")
	require.NoError(t, err)
	f.session.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	res, err := fut.Wait(ctx)
	require.NoError(t, err)
	require.Equal(t, "late\n", res.Stdout)
	r.Wait()

	require.Empty(t, f.notes.all())
	require.Empty(t, f.completed)
}

func TestConcurrentLaunchesAllComplete(t *testing.T) {
	t.Parallel()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	r := runner.New()
	f := newFixture(t, r, nil)
	writeScript(t, f.dir, "a.sh", "sleep 0.2; echo a")
	writeScript(t, f.dir, "b.sh", "echo b")
	require.NoError(t, f.session.Start(t.Context()))

	_, err := f.session.Launch("a.sh")
	require.NoError(t, err)
	_, err = f.session.Launch("b.sh")
	require.NoError(t, err)

	first := f.awaitCompletion(t)
	second := f.awaitCompletion(t)
	require.Equal(t, "b.sh", first.Script)
	require.Equal(t, "a.sh", second.Script)
	require.ElementsMatch(t, []string{"[a.sh]: a\n", "[b.sh]: b\n"}, f.notes.all())
	r.Wait()
}

func TestMenu(t *testing.T) {
	t.Parallel()
	l := stdoutLauncher("")
	f := newFixture(t, l, func(v *config.Values) { v.Strip = true })
	writeScript(t, f.dir, "deploy.sh", "true")
	writeScript(t, f.dir, "backup.sh", "true")
	writeScript(t, f.dir, "redeploy.sh", "true")
	require.NoError(t, f.session.Start(t.Context()))

	m := f.session.Menu()
	require.Len(t, m.Items, 3)
	require.Equal(t, "backup", m.Items[0].DisplayName)
	require.Equal(t, []bool{false, true, true}, m.Visible("DEP"))
	require.Equal(t, []bool{true, true, true}, m.Visible(""))
	require.Equal(t, []bool{false, false, false}, m.Visible("zzz"))
	require.Len(t, f.session.Filter("dep"), 2)

	_, err := m.Items[0].Activate()
	require.NoError(t, err)
	f.awaitCompletion(t)
	require.Equal(t, []string{filepath.Join(f.dir, "backup.sh")}, l.paths)
}

func TestTopIconFollowsSettings(t *testing.T) {
	t.Parallel()
	icons := make(chan model.IconRef, 4)
	settings := config.NewMemory(config.Defaults())
	s := session.New(settings, session.OnTopIcon(func(r model.IconRef) { icons <- r }))
	t.Cleanup(s.Stop)
	require.NoError(t, s.Start(t.Context()))
	require.Equal(t, model.Named(model.IconTopDefault), s.TopIcon())

	require.NoError(t, settings.Set(config.KeyTopIconName, "starred"))
	require.NoError(t, settings.Set(config.KeyUseCustomTopIcon, true))
	require.Eventually(t, func() bool {
		return s.TopIcon() == model.Named("starred")
	}, time.Second, 10*time.Millisecond)

	var last model.IconRef
	require.Eventually(t, func() bool {
		for {
			select {
			case last = <-icons:
			default:
				return last == model.Named("starred")
			}
		}
	}, 5*time.Second, 10*time.Millisecond)
}

func TestDegradedWatchStillRefreshesOnRequest(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	v := config.Defaults()
	v.Path = dir
	s := session.New(config.NewMemory(v),
		session.WithLauncher(stdoutLauncher("")),
		session.WithWatchDelay(quick),
		session.WithWatchOptions(watch.WithNewWatcher(func() (*fsnotify.Watcher, error) {
			return nil, errors.New("inotify limit reached")
		})),
	)
	t.Cleanup(s.Stop)
	require.NoError(t, s.Start(t.Context()))
	require.True(t, s.WatchDegraded())

	writeScript(t, dir, "late.sh", "true")
	time.Sleep(5 * quick)
	require.Empty(t, s.Snapshot().Scripts)

	s.Refresh()
	require.Eventually(t, func() bool {
		return s.Snapshot().Len() == 1
	}, 5*time.Second, 10*time.Millisecond)

	s.Stop()
	s.Stop()
}

func TestStopWhileCallbackLaunches(t *testing.T) {
	t.Parallel()
	entered := make(chan struct{})
	proceed := make(chan struct{})
	relaunched := make(chan error, 1)

	dir := t.TempDir()
	writeScript(t, dir, "a.sh", "true")
	v := config.Defaults()
	v.Path = dir

	var s *session.Session
	var once sync.Once
	s = session.New(config.NewMemory(v),
		session.WithLauncher(stdoutLauncher("")),
		session.OnCompletion(func(c model.Completion) {
			once.Do(func() {
				close(entered)
				<-proceed
				_, err := s.Launch(c.Script)
				relaunched <- err
			})
		}),
	)
	require.NoError(t, s.Start(t.Context()))

	_, err := s.Launch("a.sh")
	require.NoError(t, err)
	<-entered

	stopped := make(chan struct{})
	go func() {
		s.Stop()
		close(stopped)
	}()
	require.Eventually(t, func() bool {
		_, err := s.Launch("a.sh")
		return errors.Is(err, session.ErrStopped)
	}, 5*time.Second, 10*time.Millisecond)
	close(proceed)

	select {
	case <-stopped:
	case <-time.After(5 * time.Second):
		t.Fatal("Stop did not return while a callback called into the session")
	}
	require.ErrorIs(t, <-relaunched, session.ErrStopped)
}
