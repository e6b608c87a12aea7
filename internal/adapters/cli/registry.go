package cli

import (
	"sort"
	"strings"
	"sync"

	"github.com/sahilm/fuzzy"

	"github.com/hugo-lorenzo-mato/crossreview/internal/core"
)

// Registry holds the agent launch configurations by name.
type Registry struct {
	mu      sync.RWMutex
	configs map[string]AgentConfig
}

// NewRegistry creates a registry seeded with BuiltinAgents.
func NewRegistry() *Registry {
	r := &Registry{configs: make(map[string]AgentConfig)}
	for name, cfg := range BuiltinAgents() {
		r.configs[name] = cfg
	}
	return r
}

// Configure overlays cfg onto the entry named cfg.Name, creating it when
// the name is new.
func (r *Registry) Configure(cfg AgentConfig) {
	name := strings.TrimSpace(cfg.Name)
	if name == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	base, ok := r.configs[name]
	if !ok {
		base = AgentConfig{Name: name, Path: name}
	}
	merged := base.merge(cfg)
	merged.Name = name
	r.configs[name] = merged
}

// Get returns the enabled configuration for name.
func (r *Registry) Get(name string) (AgentConfig, error) {
	r.mu.RLock()
	cfg, ok := r.configs[name]
	r.mu.RUnlock()

	if !ok || !cfg.Enabled {
		return AgentConfig{}, core.ErrAgentNotFound(name, r.Suggest(name))
	}
	return cfg, nil
}

// Names returns the enabled agent names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.configs))
	for name, cfg := range r.configs {
		if cfg.Enabled {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// All returns every configuration, enabled or not, sorted by name.
func (r *Registry) All() []AgentConfig {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]AgentConfig, 0, len(r.configs))
	for _, cfg := range r.configs {
		out = append(out, cfg)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Suggest returns enabled agent names that fuzzily match name in either
// direction, best match first.
func (r *Registry) Suggest(name string) []string {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return nil
	}
	names := r.Names()

	var out []string
	seen := make(map[string]bool)
	for _, m := range fuzzy.Find(name, names) {
		if !seen[m.Str] {
			seen[m.Str] = true
			out = append(out, m.Str)
		}
	}
	// "claude-opus" should still suggest "claude".
	for _, candidate := range names {
		if !seen[candidate] && len(fuzzy.Find(candidate, []string{name})) > 0 {
			seen[candidate] = true
			out = append(out, candidate)
		}
	}
	return out
}
