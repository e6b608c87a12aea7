package tui

import (
	"io"
	"os"

	"golang.org/x/term"
)

// OutputMode selects how run progress is shown.
type OutputMode int

const (
	// ModeTUI uses the interactive Bubble Tea view.
	ModeTUI OutputMode = iota

	// ModePlain prints one line per event.
	ModePlain

	// ModeJSON prints one JSON document per event.
	ModeJSON

	// ModeQuiet prints nothing.
	ModeQuiet
)

// String returns the string representation of the output mode.
func (m OutputMode) String() string {
	switch m {
	case ModeTUI:
		return "tui"
	case ModePlain:
		return "plain"
	case ModeJSON:
		return "json"
	case ModeQuiet:
		return "quiet"
	default:
		return "unknown"
	}
}

// ParseOutputMode parses an output mode. "auto" and unknown values return
// false so that the caller falls back to detection.
func ParseOutputMode(s string) (OutputMode, bool) {
	switch s {
	case "tui":
		return ModeTUI, true
	case "plain":
		return ModePlain, true
	case "json":
		return ModeJSON, true
	case "quiet":
		return ModeQuiet, true
	default:
		return ModeTUI, false
	}
}

// Detector determines the appropriate output mode for a writer.
type Detector struct {
	w         io.Writer
	forceMode *OutputMode
	noColor   bool
	quiet     bool
}

// NewDetector creates a detector for progress written to w.
func NewDetector(w io.Writer) *Detector {
	return &Detector{w: w}
}

// ForceMode forces a specific output mode.
func (d *Detector) ForceMode(mode OutputMode) *Detector {
	d.forceMode = &mode
	return d
}

// NoColor disables color output.
func (d *Detector) NoColor(disable bool) *Detector {
	d.noColor = disable
	return d
}

// Quiet selects ModeQuiet unless a mode is forced.
func (d *Detector) Quiet(quiet bool) *Detector {
	d.quiet = quiet
	return d
}

// Detect determines the output mode.
func (d *Detector) Detect() OutputMode {
	if d.forceMode != nil {
		return *d.forceMode
	}
	if d.quiet {
		return ModeQuiet
	}
	if os.Getenv("CI") != "" || os.Getenv("GITHUB_ACTIONS") != "" {
		return ModePlain
	}
	if os.Getenv("TERM") == "dumb" || !IsTerminal(d.w) {
		return ModePlain
	}
	return ModeTUI
}

// ShouldUseColor determines if color should be used.
func (d *Detector) ShouldUseColor() bool {
	if d.noColor {
		return false
	}
	// NO_COLOR convention
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	if os.Getenv("TERM") == "dumb" {
		return false
	}
	return IsTerminal(d.w)
}

// IsTerminal reports whether w is a terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
