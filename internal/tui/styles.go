package tui

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"

	"github.com/hugo-lorenzo-mato/crossreview/internal/breaker"
	"github.com/hugo-lorenzo-mato/crossreview/internal/core"
	"github.com/hugo-lorenzo-mato/crossreview/internal/tracking"
)

// Palette
var (
	ColorSuccess = lipgloss.Color("10")
	ColorWarning = lipgloss.Color("11")
	ColorError   = lipgloss.Color("9")
	ColorMuted   = lipgloss.Color("8")
	ColorAccent  = lipgloss.Color("12")
)

// Styles holds the terminal styles. Every style is plain when colour is off.
type Styles struct {
	Title lipgloss.Style
	Label lipgloss.Style
	OK    lipgloss.Style
	Warn  lipgloss.Style
	Fail  lipgloss.Style
	Dim   lipgloss.Style
	Run   lipgloss.Style
}

// NewStyles returns the coloured styles, or plain ones when color is false.
func NewStyles(color bool) Styles {
	if !color {
		plain := lipgloss.NewStyle()
		return Styles{plain, plain, plain, plain, plain, plain, plain}
	}
	return Styles{
		Title: lipgloss.NewStyle().Bold(true),
		Label: lipgloss.NewStyle().Foreground(ColorMuted).Width(12),
		OK:    lipgloss.NewStyle().Foreground(ColorSuccess).Bold(true),
		Warn:  lipgloss.NewStyle().Foreground(ColorWarning).Bold(true),
		Fail:  lipgloss.NewStyle().Foreground(ColorError).Bold(true),
		Dim:   lipgloss.NewStyle().Foreground(ColorMuted),
		Run:   lipgloss.NewStyle().Foreground(ColorAccent).Bold(true),
	}
}

// RunStatus colours a run status.
func (s Styles) RunStatus(st tracking.Status) string {
	switch st {
	case tracking.StatusClean:
		return s.OK.Render(string(st))
	case tracking.StatusInProgress, tracking.StatusPending:
		return s.Warn.Render(string(st))
	default:
		return s.Fail.Render(string(st))
	}
}

// CircuitState colours a breaker state.
func (s Styles) CircuitState(st breaker.State) string {
	switch st {
	case breaker.StateClosed:
		return s.OK.Render(string(st))
	case breaker.StateHalfOpen:
		return s.Warn.Render(string(st))
	default:
		return s.Fail.Render(string(st))
	}
}

// Outcome renders an agent outcome mark.
func (s Styles) Outcome(outcome string) string {
	if outcome == string(core.OutcomeSuccess) {
		return s.OK.Render("✓")
	}
	return s.Fail.Render("✗")
}

// Row prints a labelled line.
func (s Styles) Row(w io.Writer, label, value string) {
	fmt.Fprintf(w, "%s %s\n", s.Label.Render(label+":"), value)
}
