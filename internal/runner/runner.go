// Package runner starts scripts as child processes without blocking the
// caller and hands their outcome back through a Future.
//
// Each Launch is independent: there is no concurrency limit, no per-script
// exclusion and no way to kill a started process. Stdout and stderr are
// captured separately and completely.
package runner

import (
	"bytes"
	"errors"
	"io/fs"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"scriptmenu/internal/model"
)

// SpawnError means the process never started: the file is missing, not
// executable, or not a valid executable format.
type SpawnError struct {
	Path string
	Err  error
}

// Error returns the bare OS reason, e.g. "permission denied".
func (e *SpawnError) Error() string {
	var pathErr *fs.PathError
	if errors.As(e.Err, &pathErr) {
		return pathErr.Err.Error()
	}
	var execErr *exec.Error
	if errors.As(e.Err, &execErr) {
		return execErr.Err.Error()
	}
	return e.Err.Error()
}

func (e *SpawnError) Unwrap() error { return e.Err }

// Runner launches scripts. The zero value is not usable; use New.
type Runner struct {
	wg    sync.WaitGroup
	newID func() string
	now   func() time.Time
}

// New returns a Runner.
func New() *Runner {
	return &Runner{
		newID: uuid.NewString,
		now:   time.Now,
	}
}

// Launch starts path with no arguments and returns at once. Spawn failures
// resolve the Future with a *SpawnError; a non-zero exit status is a normal
// result.
func (r *Runner) Launch(path string) *Future {
	script := filepath.Base(path)
	fut := newFuture(script)

	var stdout, stderr bytes.Buffer
	cmd := exec.Command(path)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	started := r.now()
	if err := cmd.Start(); err != nil {
		spawnErr := &SpawnError{Path: path, Err: err}
		log.Warn().Str("script", script).Err(spawnErr).Msg("launch failed")
		fut.resolve(model.LaunchResult{}, spawnErr)
		return fut
	}

	id := r.newID()
	log.Debug().Str("script", script).Str("launch_id", id).Int("pid", cmd.Process.Pid).Msg("launched")

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		err := cmd.Wait()
		res := model.LaunchResult{
			ID:          id,
			Script:      script,
			Path:        path,
			Stdout:      stdout.String(),
			Stderr:      stderr.String(),
			StartedAt:   started,
			CompletedAt: r.now(),
		}
		res.ExitStatus = exitStatus(cmd, err)

		log.Debug().
			Str("script", script).
			Str("launch_id", id).
			Int("exit_status", res.ExitStatus).
			Dur("took", res.Duration()).
			Msg("completed")
		fut.resolve(res, nil)
	}()
	return fut
}

// Wait blocks until every launched process has exited and its Future has
// resolved.
func (r *Runner) Wait() {
	r.wg.Wait()
}

func exitStatus(cmd *exec.Cmd, err error) int {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	if err != nil {
		log.Warn().Err(err).Str("path", cmd.Path).Msg("collecting script output")
	}
	if cmd.ProcessState != nil {
		return cmd.ProcessState.ExitCode()
	}
	return -1
}
