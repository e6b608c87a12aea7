package cmd

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hugo-lorenzo-mato/crossreview/internal/config"
	"github.com/hugo-lorenzo-mato/crossreview/internal/core"
	"github.com/hugo-lorenzo-mato/crossreview/internal/logging"
	"github.com/hugo-lorenzo-mato/crossreview/internal/testutil"
	"github.com/hugo-lorenzo-mato/crossreview/internal/tracking"
)

// useBackend replaces the agent backend for the duration of the test.
func useBackend(t *testing.T, mock *testutil.MockBackend) {
	t.Helper()
	prev := newBackend
	newBackend = func(*config.Config, *logging.Logger) core.AgentBackend { return mock }
	t.Cleanup(func() { newBackend = prev })
}

func TestRun_CleanExitsZero(t *testing.T) {
	mock := testutil.NewMockBackend().
		On("claude", core.PhaseReview, testutil.Response{Output: testutil.Review(true)}).
		On("codex", core.PhaseReview, testutil.Response{Output: testutil.Review(true)})
	useBackend(t, mock)
	target := newTarget(t)

	out, err := executeCommand(t, "run", target)
	require.NoError(t, err)
	assert.Contains(t, out, "clean")
	assert.Len(t, mock.Calls(), 2)

	_, err = os.Stat(filepath.Join(target, ".crossreview", tracking.FileName))
	assert.NoError(t, err)
}

func TestRun_MaxIterationsExitsOne(t *testing.T) {
	mock := testutil.NewMockBackend().
		On("claude", core.PhaseReview, testutil.Response{Output: testutil.Review(false, "nil map write")}).
		On("codex", core.PhaseReview, testutil.Response{Output: testutil.Review(false, "nil map write")})
	useBackend(t, mock)
	target := newTarget(t)

	out, err := executeCommand(t, "run", target, "--max-iterations", "1")
	var exitErr *ExitError
	require.True(t, errors.As(err, &exitErr), "got %v", err)
	assert.Equal(t, 1, exitErr.Code)
	assert.Contains(t, out, "max_iterations")
	assert.Len(t, mock.Calls(), 7)

	out, err = executeCommand(t, "status", target, "--json")
	require.NoError(t, err)
	var status StatusOutput
	require.NoError(t, json.Unmarshal([]byte(out), &status))
	assert.Equal(t, tracking.StatusMaxIterations, status.Run.Status)
	assert.Equal(t, 1, status.Run.Iteration)
	assert.Equal(t, 1, status.Circuit.ConsecutiveNoProgress)
}

func TestRun_InvalidMaxIterations(t *testing.T) {
	useBackend(t, testutil.NewMockBackend())
	_, err := executeCommand(t, "run", newTarget(t), "--max-iterations", "0")
	require.Error(t, err)
	assert.True(t, core.IsCategory(err, core.ErrCatValidation), "got %v", err)
}

func TestRun_InvalidConfigFile(t *testing.T) {
	useBackend(t, testutil.NewMockBackend())
	target := newTarget(t)
	path := filepath.Join(target, ".crossreview", "config.yaml")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("review:\n  reviewers: [claude]\n"), 0o644))

	_, err := executeCommand(t, "run", target)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid config")
}
