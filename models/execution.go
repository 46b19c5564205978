package models

import "time"

// Outcome is the terminal state of an Invocation
type Outcome string

const (
	OutcomeLaunchFailed  Outcome = "launch_failed"
	OutcomeExitedNonZero Outcome = "exited_non_zero"
	OutcomeExitedZero    Outcome = "exited_zero"
	OutcomeInterrupted   Outcome = "interrupted"
)

// RunResult holds everything captured from a finished Invocation.
// ExitCode is -1 when the process never started or was killed.
type RunResult struct {
	Outcome  Outcome       `json:"outcome"`
	ExitCode int           `json:"exitCode"`
	Stdout   string        `json:"stdout"`
	Stderr   string        `json:"stderr"`
	Err      error         `json:"-"`
	Duration time.Duration `json:"-"`
}

// ErrorMessage returns the failure description, or "" on success.
func (r *RunResult) ErrorMessage() string {
	if r.Err == nil {
		return ""
	}
	return r.Err.Error()
}
