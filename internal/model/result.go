package model

import "time"

// LaunchResult is the outcome of one script run that actually started.
type LaunchResult struct {
	ID          string    `json:"id"`
	Script      string    `json:"script"` // file name of the script
	Path        string    `json:"path"`
	Stdout      string    `json:"stdout"`
	Stderr      string    `json:"stderr"`
	ExitStatus  int       `json:"exit_status"` // -1 when killed by a signal
	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at"`
}

// Duration returns the wall time of the run.
func (r LaunchResult) Duration() time.Duration {
	return r.CompletedAt.Sub(r.StartedAt)
}

// Completion is what result sinks receive. Exactly one of Result and Err is
// set: Err means the process could not be spawned at all.
type Completion struct {
	Script string
	Result *LaunchResult
	Err    error
}

// Failed reports whether the script could not be spawned.
func (c Completion) Failed() bool {
	return c.Err != nil
}
