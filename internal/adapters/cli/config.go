// Package cli runs reasoning agents as local command-line programs. The
// prompt is written to the program's stdin and its stdout is the agent's
// answer.
package cli

import "strings"

// AgentConfig describes how to launch one agent CLI.
//
// The Name is an alias: several entries may share a Path with different
// models or flags.
type AgentConfig struct {
	Name  string
	Path  string
	Model string
	// Args are passed on every invocation.
	Args []string
	// ElevatedArgs are added for invocations allowed to modify the target.
	ElevatedArgs []string
	// TrailingArgs come last, e.g. "-" for CLIs that only read stdin when asked.
	TrailingArgs []string
	Enabled      bool
	Env          map[string]string
}

// Command returns the executable and argument list for one invocation.
// A multi-word Path such as "gh copilot" is split into executable and
// leading arguments.
func (c AgentConfig) Command(elevated bool) (string, []string) {
	parts := strings.Fields(c.Path)
	if len(parts) == 0 {
		return "", nil
	}

	args := append([]string(nil), parts[1:]...)
	args = append(args, c.Args...)
	if elevated {
		args = append(args, c.ElevatedArgs...)
	}
	if c.Model != "" {
		args = append(args, "--model", c.Model)
	}
	args = append(args, c.TrailingArgs...)
	return parts[0], args
}

// merge overlays the non-zero fields of o onto c.
func (c AgentConfig) merge(o AgentConfig) AgentConfig {
	if o.Path != "" {
		c.Path = o.Path
	}
	if o.Model != "" {
		c.Model = o.Model
	}
	if o.Args != nil {
		c.Args = o.Args
	}
	if o.ElevatedArgs != nil {
		c.ElevatedArgs = o.ElevatedArgs
	}
	if o.TrailingArgs != nil {
		c.TrailingArgs = o.TrailingArgs
	}
	if len(o.Env) > 0 {
		env := make(map[string]string, len(c.Env)+len(o.Env))
		for k, v := range c.Env {
			env[k] = v
		}
		for k, v := range o.Env {
			env[k] = v
		}
		c.Env = env
	}
	c.Enabled = o.Enabled
	return c
}

// BuiltinAgents returns the default launch settings of the supported CLIs.
func BuiltinAgents() map[string]AgentConfig {
	return map[string]AgentConfig{
		"claude": {
			Name:         "claude",
			Path:         "claude",
			Args:         []string{"--print"},
			ElevatedArgs: []string{"--permission-mode", "acceptEdits"},
			Enabled:      true,
		},
		"codex": {
			Name: "codex",
			Path: "codex",
			Args: []string{
				"exec", "--skip-git-repo-check",
				"-c", `approval_policy="never"`,
			},
			ElevatedArgs: []string{"-c", `sandbox_mode="workspace-write"`},
			TrailingArgs: []string{"-"},
			Enabled:      true,
		},
		"gemini": {
			Name:         "gemini",
			Path:         "gemini",
			ElevatedArgs: []string{"--approval-mode", "auto_edit"},
			Enabled:      true,
		},
	}
}
