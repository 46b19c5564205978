package services

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"insights-gateway/models"
)

type fakeRunner struct {
	mu     sync.Mutex
	result models.RunResult
	seen   []*models.Invocation
	hasDL  bool
}

func (f *fakeRunner) Run(ctx context.Context, inv *models.Invocation) *models.RunResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seen = append(f.seen, inv)
	_, f.hasDL = ctx.Deadline()
	res := f.result
	return &res
}

type fakeStore struct {
	found bool
	err   error
	calls int
}

func (f *fakeStore) Exists(ctx context.Context, path string) (bool, error) {
	f.calls++
	return f.found, f.err
}

type failingLocker struct{}

func (failingLocker) Acquire(ctx context.Context, key string) (func(), error) {
	return nil, errors.New("redis down")
}

func testOptions() InsightOptions {
	return InsightOptions{
		Program:      "python",
		ScriptPath:   "/srv/data_processing/generate_insights.py",
		ScriptDir:    "/srv/data_processing",
		ArtifactPath: "/srv/exported_results/call_3_result.txt",
		Env:          []string{"PATH=/usr/bin", "PYTHONUNBUFFERED=0"},
	}
}

func TestInsightServiceBuildsInvocation(t *testing.T) {
	runner := &fakeRunner{result: models.RunResult{Outcome: models.OutcomeExitedZero, Stdout: "done"}}
	svc := NewInsightService(testOptions(), runner, &fakeStore{found: true}, NoopLocker{}, zaptest.NewLogger(t).Sugar())

	res, err := svc.Generate(context.Background())
	require.NoError(t, err)
	require.True(t, res.ArtifactFound)
	require.Equal(t, "done", res.Run.Stdout)

	require.Len(t, runner.seen, 1)
	inv := runner.seen[0]
	require.NotEmpty(t, inv.ID)
	require.Equal(t, "python", inv.Program)
	require.Equal(t, []string{"/srv/data_processing/generate_insights.py"}, inv.Args)
	require.Equal(t, "/srv/data_processing", inv.Dir)
	require.Equal(t, UnbufferedEnv, inv.Env[len(inv.Env)-1])
	require.Contains(t, inv.Env, "PATH=/usr/bin")
	require.False(t, runner.hasDL)
}

func TestInsightServiceInvocationsAreNotShared(t *testing.T) {
	runner := &fakeRunner{result: models.RunResult{Outcome: models.OutcomeExitedZero}}
	svc := NewInsightService(testOptions(), runner, &fakeStore{found: true}, NoopLocker{}, zaptest.NewLogger(t).Sugar())

	_, err := svc.Generate(context.Background())
	require.NoError(t, err)
	_, err = svc.Generate(context.Background())
	require.NoError(t, err)

	require.Len(t, runner.seen, 2)
	require.NotSame(t, runner.seen[0], runner.seen[1])
	require.NotEqual(t, runner.seen[0].ID, runner.seen[1].ID)
}

func TestInsightServiceAppliesTimeout(t *testing.T) {
	opts := testOptions()
	opts.Timeout = time.Minute
	runner := &fakeRunner{result: models.RunResult{Outcome: models.OutcomeExitedZero}}
	svc := NewInsightService(opts, runner, &fakeStore{found: true}, NoopLocker{}, zaptest.NewLogger(t).Sugar())

	_, err := svc.Generate(context.Background())
	require.NoError(t, err)
	require.True(t, runner.hasDL)
}

func TestInsightServiceSkipsArtifactCheckOnFailure(t *testing.T) {
	for _, outcome := range []models.Outcome{
		models.OutcomeLaunchFailed,
		models.OutcomeExitedNonZero,
		models.OutcomeInterrupted,
	} {
		t.Run(string(outcome), func(t *testing.T) {
			store := &fakeStore{found: true}
			runner := &fakeRunner{result: models.RunResult{Outcome: outcome, ExitCode: 1}}
			svc := NewInsightService(testOptions(), runner, store, NoopLocker{}, zaptest.NewLogger(t).Sugar())

			res, err := svc.Generate(context.Background())
			require.NoError(t, err)
			require.Equal(t, outcome, res.Run.Outcome)
			require.False(t, res.ArtifactFound)
			require.Zero(t, store.calls)
		})
	}
}

func TestInsightServiceReportsMissingArtifact(t *testing.T) {
	runner := &fakeRunner{result: models.RunResult{Outcome: models.OutcomeExitedZero}}
	svc := NewInsightService(testOptions(), runner, &fakeStore{found: false}, NoopLocker{}, zaptest.NewLogger(t).Sugar())

	res, err := svc.Generate(context.Background())
	require.NoError(t, err)
	require.False(t, res.ArtifactFound)
}

func TestInsightServiceArtifactProbeError(t *testing.T) {
	runner := &fakeRunner{result: models.RunResult{Outcome: models.OutcomeExitedZero}}
	svc := NewInsightService(testOptions(), runner, &fakeStore{err: errors.New("permission denied")}, NoopLocker{}, zaptest.NewLogger(t).Sugar())

	_, err := svc.Generate(context.Background())
	require.ErrorContains(t, err, "permission denied")
	require.NotErrorIs(t, err, ErrLockUnavailable)
}

func TestInsightServiceLockFailure(t *testing.T) {
	runner := &fakeRunner{}
	svc := NewInsightService(testOptions(), runner, &fakeStore{}, failingLocker{}, zaptest.NewLogger(t).Sugar())

	_, err := svc.Generate(context.Background())
	require.ErrorIs(t, err, ErrLockUnavailable)
	require.ErrorContains(t, err, "redis down")
	require.Empty(t, runner.seen)
}

func TestInsightServiceWithRealProcess(t *testing.T) {
	dir := t.TempDir()
	artifact := filepath.Join(dir, "result.txt")
	script := writeScript(t, dir, "echo \"unbuffered=$PYTHONUNBUFFERED\"\necho insight > "+artifact+"\n")

	log := zaptest.NewLogger(t).Sugar()
	opts := InsightOptions{
		Program:      "sh",
		ScriptPath:   script,
		ScriptDir:    dir,
		ArtifactPath: artifact,
		Env:          append(os.Environ(), "PYTHONUNBUFFERED=0"),
	}
	svc := NewInsightService(opts, NewProcessRunner(log, NewFaultPolicy(log, false)), NewLocalArtifactStore(), NewLocalLocker(), log)

	res, err := svc.Generate(context.Background())
	require.NoError(t, err)
	require.Equal(t, models.OutcomeExitedZero, res.Run.Outcome)
	require.True(t, res.ArtifactFound)
	require.Equal(t, "unbuffered=1\n", res.Run.Stdout)
}
