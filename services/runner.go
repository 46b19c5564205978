package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"

	"go.uber.org/zap"
	"insights-gateway/models"
)

// WaitDelay bounds how long output is still collected once the process has
// exited or was killed. Background children that keep stdout open are
// abandoned after this long.
const WaitDelay = 5 * time.Second

var errWriterPanicked = errors.New("output writer panicked")

// Runner executes an Invocation to completion.
type Runner interface {
	Run(ctx context.Context, inv *models.Invocation) *models.RunResult
}

type ProcessRunner struct {
	log       *zap.SugaredLogger
	faults    *FaultPolicy
	waitDelay time.Duration
}

func NewProcessRunner(log *zap.SugaredLogger, faults *FaultPolicy) *ProcessRunner {
	return &ProcessRunner{log: log, faults: faults, waitDelay: WaitDelay}
}

// Run starts the program and blocks until it exits, fails to start, or ctx
// is done. A cancelled context kills the process.
func (r *ProcessRunner) Run(ctx context.Context, inv *models.Invocation) *models.RunResult {
	log := r.log.With("invocation", inv.ID, "program", inv.Program)
	start := time.Now()

	cmd := exec.CommandContext(ctx, inv.Program, inv.Args...)
	cmd.Dir = inv.Dir
	cmd.Env = inv.Env
	cmd.WaitDelay = r.waitDelay

	stdout := &streamWriter{stream: "stdout", log: log, faults: r.faults}
	stderr := &streamWriter{stream: "stderr", log: log, faults: r.faults}
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	if err := cmd.Start(); err != nil {
		log.Errorw("Failed to start process", "error", err)
		return &models.RunResult{
			Outcome:  models.OutcomeLaunchFailed,
			ExitCode: -1,
			Err:      err,
			Duration: time.Since(start),
		}
	}
	log.Infow("Process started", "pid", cmd.Process.Pid, "dir", inv.Dir)

	waitErr := cmd.Wait()
	result := &models.RunResult{
		ExitCode: cmd.ProcessState.ExitCode(),
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(start),
	}

	switch {
	case waitErr == nil:
		result.Outcome = models.OutcomeExitedZero
	case ctx.Err() != nil:
		result.Outcome = models.OutcomeInterrupted
		result.Err = fmt.Errorf("process stopped: %w", ctx.Err())
	case errors.Is(waitErr, exec.ErrWaitDelay) && cmd.ProcessState.Success():
		// a leftover child still held the output pipes
		result.Outcome = models.OutcomeExitedZero
		log.Warnw("Process exited but its output was still open", "waitDelay", r.waitDelay)
	default:
		result.Outcome = models.OutcomeExitedNonZero
		result.Err = waitErr
		if result.ExitCode == 0 {
			// output copy failed although the process itself succeeded
			result.ExitCode = -1
		}
	}

	log.Infow("Process exited",
		"exitCode", result.ExitCode,
		"outcome", result.Outcome,
		"durationMs", result.Duration.Milliseconds())
	return result
}

// streamWriter accumulates one output stream and logs every chunk as it arrives.
type streamWriter struct {
	stream string
	buf    bytes.Buffer
	log    *zap.SugaredLogger
	faults *FaultPolicy
}

func (w *streamWriter) Write(p []byte) (n int, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			w.faults.Handle(fmt.Errorf("%s writer: %v", w.stream, rec))
			n, err = 0, errWriterPanicked
		}
	}()

	w.log.Debugw("Process output", "stream", w.stream, "chunk", string(p))
	return w.buf.Write(p)
}

func (w *streamWriter) String() string {
	return w.buf.String()
}
