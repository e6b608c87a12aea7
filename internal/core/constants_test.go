package core

import "testing"

func TestIsBuiltinAgent(t *testing.T) {
	tests := []struct {
		agent string
		want  bool
	}{
		{"claude", true},
		{"codex", true},
		{"gemini", true},
		{"copilot", false},
		{"", false},
		{"Claude", false}, // case sensitive
	}

	for _, tt := range tests {
		t.Run(tt.agent, func(t *testing.T) {
			if got := IsBuiltinAgent(tt.agent); got != tt.want {
				t.Errorf("IsBuiltinAgent(%q) = %v, want %v", tt.agent, got, tt.want)
			}
		})
	}
}

func TestValidAgentName(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"claude", true},
		{"gpt-5.codex", true},
		{"my_agent", true},
		{"my agent", false},
		{"", false},
		{"-codex", false},
		{"../claude", false},
		{"a/b", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ValidAgentName(tt.name); got != tt.want {
				t.Errorf("ValidAgentName(%q) = %v, want %v", tt.name, got, tt.want)
			}
		})
	}
}
