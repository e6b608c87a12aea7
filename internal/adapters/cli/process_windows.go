//go:build windows

package cli

import "os/exec"

// configureProcess keeps the default cancellation (Process.Kill); Windows
// has no process groups to signal.
func configureProcess(_ *exec.Cmd) {}
