package clip

import (
	"bytes"
	"encoding/base64"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errNoClipboard = errors.New("no clipboard")

func newTestCopier(t *testing.T) *Copier {
	t.Helper()
	c := New().WithTempDir(t.TempDir()).WithTerminal(nil)
	c.getenv = func(string) string { return "" }
	return c
}

func TestCopy_Native(t *testing.T) {
	var got string
	c := newTestCopier(t).WithNative(func(s string) error { got = s; return nil })

	res, err := c.Copy("hello")
	require.NoError(t, err)
	assert.Equal(t, MethodNative, res.Method)
	assert.Equal(t, "hello", got)
}

func TestCopy_FallsBackToOSC52(t *testing.T) {
	var term bytes.Buffer
	c := newTestCopier(t).
		WithNative(func(string) error { return errNoClipboard }).
		WithTerminal(&term)

	res, err := c.Copy("hello")
	require.NoError(t, err)
	assert.Equal(t, MethodOSC52, res.Method)
	assert.Contains(t, term.String(), "]52;c;"+base64.StdEncoding.EncodeToString([]byte("hello")))
}

func TestCopy_FallsBackToFile(t *testing.T) {
	var term bytes.Buffer
	c := newTestCopier(t).
		WithNative(func(string) error { return errNoClipboard }).
		WithTerminal(&term)

	text := strings.Repeat("x", osc52Limit+1)
	res, err := c.Copy(text)
	require.NoError(t, err)
	assert.Equal(t, MethodFile, res.Method)
	assert.Zero(t, term.Len())

	data, err := os.ReadFile(res.Path)
	require.NoError(t, err)
	assert.Equal(t, text, string(data))
}

func TestCopy_Empty(t *testing.T) {
	_, err := newTestCopier(t).Copy("")
	assert.Error(t, err)
}
