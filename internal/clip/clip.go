// Package clip copies text to the user's clipboard, falling back to an
// OSC52 terminal sequence and finally to a temporary file.
package clip

import (
	"errors"
	"fmt"
	"io"
	"os"

	atotto "github.com/atotto/clipboard"
	osc52 "github.com/aymanbagabas/go-osc52/v2"
	"golang.org/x/term"
)

// Method is the mechanism that made the text available.
type Method string

const (
	MethodNative Method = "native"
	MethodOSC52  Method = "osc52"
	MethodFile   Method = "file"
)

// Result reports how the text was copied.
type Result struct {
	Method Method
	// Path is set for MethodFile.
	Path string
}

// osc52Limit is the largest payload sent to the terminal.
const osc52Limit = 100_000

// Copier tries the native clipboard, then OSC52, then a temp file.
type Copier struct {
	native   func(string) error
	terminal io.Writer
	tempDir  string
	getenv   func(string) string
}

// New creates a copier using the system clipboard and, when stderr is a
// terminal, OSC52 on stderr.
func New() *Copier {
	c := &Copier{native: atotto.WriteAll, getenv: os.Getenv}
	if term.IsTerminal(int(os.Stderr.Fd())) {
		c.terminal = os.Stderr
	}
	return c
}

// WithNative replaces the native clipboard writer.
func (c *Copier) WithNative(fn func(string) error) *Copier {
	c.native = fn
	return c
}

// WithTerminal sets the OSC52 target. Nil disables OSC52.
func (c *Copier) WithTerminal(w io.Writer) *Copier {
	c.terminal = w
	return c
}

// WithTempDir sets the directory of the file fallback.
func (c *Copier) WithTempDir(dir string) *Copier {
	c.tempDir = dir
	return c
}

// Copy makes text available through the first method that works.
func (c *Copier) Copy(text string) (Result, error) {
	if text == "" {
		return Result{}, errors.New("nothing to copy")
	}
	if c.native != nil && c.native(text) == nil {
		return Result{Method: MethodNative}, nil
	}
	if err := c.writeOSC52(text); err == nil {
		return Result{Method: MethodOSC52}, nil
	}

	f, err := os.CreateTemp(c.tempDir, "crossreview-*.md")
	if err != nil {
		return Result{}, fmt.Errorf("creating clipboard file: %w", err)
	}
	if _, err := f.WriteString(text); err != nil {
		_ = f.Close()
		_ = os.Remove(f.Name())
		return Result{}, fmt.Errorf("writing clipboard file: %w", err)
	}
	if err := f.Close(); err != nil {
		return Result{}, err
	}
	return Result{Method: MethodFile, Path: f.Name()}, nil
}

func (c *Copier) writeOSC52(text string) error {
	if c.terminal == nil {
		return errors.New("no terminal")
	}
	if len(text) > osc52Limit {
		return fmt.Errorf("text too large for OSC52 (%d bytes)", len(text))
	}

	seq := osc52.New(text).Limit(osc52Limit)
	switch {
	case c.getenv("TMUX") != "":
		seq = seq.Tmux()
	case c.getenv("STY") != "":
		seq = seq.Screen()
	}
	_, err := seq.WriteTo(c.terminal)
	return err
}
