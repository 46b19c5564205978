package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-xray-sdk-go/xray"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"insights-gateway/models"
)

// UnbufferedEnv keeps the script's output flowing while it runs.
const UnbufferedEnv = "PYTHONUNBUFFERED=1"

// ErrLockUnavailable is returned when the artifact lock could not be taken.
var ErrLockUnavailable = errors.New("artifact lock unavailable")

// InsightOptions is the fixed invocation setup resolved at startup.
type InsightOptions struct {
	Program      string
	ScriptPath   string
	ScriptDir    string
	ArtifactPath string
	Env          []string
	Timeout      time.Duration
}

// InsightResult is the outcome of one generate-insights run.
type InsightResult struct {
	Run           *models.RunResult
	ArtifactFound bool
}

type InsightService struct {
	opts      InsightOptions
	runner    Runner
	artifacts ArtifactStore
	locker    Locker
	log       *zap.SugaredLogger
}

func NewInsightService(opts InsightOptions, runner Runner, artifacts ArtifactStore, locker Locker, log *zap.SugaredLogger) *InsightService {
	return &InsightService{
		opts:      opts,
		runner:    runner,
		artifacts: artifacts,
		locker:    locker,
		log:       log,
	}
}

// Generate runs the insight script once and checks for its artifact.
// Script failures are reported through the result, not the error; the
// error is reserved for lock and artifact-probe problems.
func (s *InsightService) Generate(ctx context.Context) (*InsightResult, error) {
	if s.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.Timeout)
		defer cancel()
	}

	inv := s.newInvocation()
	log := s.log.With("invocation", inv.ID)

	release, err := s.locker.Acquire(ctx, s.opts.ArtifactPath)
	if err != nil {
		log.Errorw("Failed to lock artifact", "artifact", s.opts.ArtifactPath, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrLockUnavailable, err)
	}
	defer release()

	log.Infow("Starting insight script", "program", inv.Program, "script", s.opts.ScriptPath)

	var run *models.RunResult
	xray.Capture(ctx, "Subprocess.Run", func(ctx1 context.Context) error {
		run = s.runner.Run(ctx1, inv)
		if seg := xray.GetSegment(ctx1); seg != nil {
			seg.AddMetadata("process.program", inv.Program)
			seg.AddMetadata("process.outcome", string(run.Outcome))
			seg.AddMetadata("process.exit_code", run.ExitCode)
		}
		return run.Err
	})

	log.Infow("Insight script finished", "outcome", run.Outcome, "exitCode", run.ExitCode, "stdout", run.Stdout)
	if run.Stderr != "" {
		log.Warnw("Insight script wrote to stderr", "stderr", run.Stderr)
	}

	result := &InsightResult{Run: run}
	if run.Outcome != models.OutcomeExitedZero {
		return result, nil
	}

	found, err := s.artifacts.Exists(ctx, s.opts.ArtifactPath)
	if err != nil {
		return nil, fmt.Errorf("check artifact %s: %w", s.opts.ArtifactPath, err)
	}
	if !found {
		log.Errorw("Insight script did not create its artifact", "artifact", s.opts.ArtifactPath)
	}
	result.ArtifactFound = found
	return result, nil
}

func (s *InsightService) newInvocation() *models.Invocation {
	env := make([]string, 0, len(s.opts.Env)+1)
	env = append(env, s.opts.Env...)
	env = append(env, UnbufferedEnv)

	return &models.Invocation{
		ID:      uuid.NewString(),
		Program: s.opts.Program,
		Args:    []string{s.opts.ScriptPath},
		Dir:     s.opts.ScriptDir,
		Env:     env,
	}
}
