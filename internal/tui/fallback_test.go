package tui

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hugo-lorenzo-mato/crossreview/internal/events"
)

func TestFallbackOutput_Plain(t *testing.T) {
	var buf bytes.Buffer
	out := NewFallbackOutput(&buf, false, false)

	ch := make(chan events.Event, 8)
	ch <- events.NewRunStartedEvent("r", "/src", 3, false)
	ch <- events.NewIterationStartedEvent("r", 1)
	ch <- events.NewPhaseStartedEvent("r", 1, "review", []string{"claude", "codex"})
	ch <- events.NewAgentFinishedEvent("r", 1, "review", "claude", "success")
	ch <- events.NewBreakerTransitionEvent("r", 1, "CLOSED", "OPEN", "same issues")
	close(ch)
	out.Consume(ch)

	text := buf.String()
	assert.Contains(t, text, "Reviewing /src (max 3 iterations)")
	assert.Contains(t, text, "Iteration 1")
	assert.Contains(t, text, "review [claude codex]")
	assert.Contains(t, text, "✓ claude success")
	assert.Contains(t, text, "circuit CLOSED -> OPEN: same issues")
}

func TestFallbackOutput_JSON(t *testing.T) {
	var buf bytes.Buffer
	out := NewFallbackOutput(&buf, true, true)
	out.Handle(events.NewRunFinishedEvent("r", "clean", 1, ""))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)
	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &doc))
	assert.Equal(t, "run_finished", doc["type"])
	assert.Equal(t, "clean", doc["status"])
}

func TestIterationSummary_Aborted(t *testing.T) {
	e := events.NewIterationFinishedEvent("r", 3, 0, false, "", "HALF_OPEN")
	e.Aborted = true
	assert.Equal(t, "#3 aborted, circuit HALF_OPEN", IterationSummary(e))
}

func TestParseOutputMode(t *testing.T) {
	for _, mode := range []OutputMode{ModeTUI, ModePlain, ModeJSON, ModeQuiet} {
		got, ok := ParseOutputMode(mode.String())
		assert.True(t, ok)
		assert.Equal(t, mode, got)
	}
	_, ok := ParseOutputMode("auto")
	assert.False(t, ok)
}

func TestDetector(t *testing.T) {
	var buf bytes.Buffer
	assert.Equal(t, ModeQuiet, NewDetector(&buf).Quiet(true).Detect())
	assert.Equal(t, ModePlain, NewDetector(&buf).Detect())
	assert.Equal(t, ModeJSON, NewDetector(&buf).Quiet(true).ForceMode(ModeJSON).Detect())
	assert.False(t, NewDetector(&buf).ShouldUseColor())
}
