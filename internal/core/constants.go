package core

import "regexp"

// Agent identifiers of the built-in CLI configurations.
const (
	AgentClaude = "claude"
	AgentCodex  = "codex"
	AgentGemini = "gemini"
)

// Agents is the ordered list of built-in agents.
var Agents = []string{
	AgentClaude,
	AgentCodex,
	AgentGemini,
}

// IsBuiltinAgent reports whether agent ships with a launch configuration.
// Other names are valid once configured.
func IsBuiltinAgent(agent string) bool {
	for _, a := range Agents {
		if a == agent {
			return true
		}
	}
	return false
}

// agentNamePattern keeps agent names usable in artifact file names.
var agentNamePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// ValidAgentName reports whether name may identify an agent: letters,
// digits, dots, underscores and dashes, not starting with a separator.
func ValidAgentName(name string) bool {
	return agentNamePattern.MatchString(name)
}
