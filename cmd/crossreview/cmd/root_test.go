package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand_Subcommands(t *testing.T) {
	want := []string{"run", "status", "reset", "reset-circuit", "show", "init", "config", "serve", "doctor", "version"}
	var got []string
	for _, c := range rootCmd.Commands() {
		got = append(got, c.Name())
	}
	for _, name := range want {
		assert.Contains(t, got, name)
	}
}

func TestRootCommand_PersistentFlags(t *testing.T) {
	for _, name := range []string{"config", "log-level", "log-format", "no-color", "quiet"} {
		assert.NotNil(t, rootCmd.PersistentFlags().Lookup(name), name)
	}
}

func TestVersionCommand(t *testing.T) {
	SetVersion("v1.2.3", "abc123def", "2026-01-15")
	t.Cleanup(func() { SetVersion("", "", "") })

	out, err := executeCommand(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "crossreview v1.2.3")
	assert.Contains(t, out, "commit: abc123def")
	assert.Contains(t, out, "built:  2026-01-15")
	assert.Equal(t, "v1.2.3", GetVersion())
}

func TestExitError(t *testing.T) {
	err := &ExitError{Code: 1}
	assert.Equal(t, "exit status 1", err.Error())
}

func TestResolveTarget(t *testing.T) {
	dir := t.TempDir()
	got, err := resolveTarget([]string{dir})
	require.NoError(t, err)
	assert.Equal(t, dir, got)

	got, err = resolveTarget(nil)
	require.NoError(t, err)
	assert.NotEmpty(t, got)
}
