package diagnostics

import (
	"fmt"
	"strings"

	"github.com/shirou/gopsutil/v3/mem"

	"github.com/hugo-lorenzo-mato/crossreview/internal/core"
	"github.com/hugo-lorenzo-mato/crossreview/internal/logging"
)

// PreflightResult contains the result of pre-invocation checks.
type PreflightResult struct {
	OK           bool
	Warnings     []string
	Errors       []string
	FreeMemoryMB float64
}

// MemoryReader returns the current virtual memory statistics.
type MemoryReader func() (*mem.VirtualMemoryStat, error)

// Preflight runs resource checks before each agent invocation.
type Preflight struct {
	minFreeMemoryMB int
	readMemory      MemoryReader
	logger          *logging.Logger
}

// NewPreflight creates a preflight checker. A minFreeMemoryMB of zero
// disables the memory floor.
func NewPreflight(minFreeMemoryMB int, logger *logging.Logger) *Preflight {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Preflight{
		minFreeMemoryMB: minFreeMemoryMB,
		readMemory:      mem.VirtualMemory,
		logger:          logger,
	}
}

// WithMemoryReader replaces the memory source, for tests.
func (p *Preflight) WithMemoryReader(r MemoryReader) *Preflight {
	p.readMemory = r
	return p
}

// Run performs the checks.
func (p *Preflight) Run() PreflightResult {
	result := PreflightResult{OK: true}
	if p == nil || p.minFreeMemoryMB <= 0 {
		return result
	}

	vm, err := p.readMemory()
	if err != nil {
		result.Warnings = append(result.Warnings, fmt.Sprintf("reading memory: %v", err))
		return result
	}

	result.FreeMemoryMB = float64(vm.Available) / 1024 / 1024
	floor := float64(p.minFreeMemoryMB)
	switch {
	case result.FreeMemoryMB < floor:
		result.OK = false
		result.Errors = append(result.Errors,
			fmt.Sprintf("insufficient free memory: %.0f MB available (minimum: %d MB)",
				result.FreeMemoryMB, p.minFreeMemoryMB))
	case result.FreeMemoryMB < floor*1.5:
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("free memory approaching limit: %.0f MB available", result.FreeMemoryMB))
	}
	return result
}

// Check runs the preflight for agent and converts a failure into a
// PREFLIGHT_FAILED error. Warnings are logged.
func (p *Preflight) Check(agent string) error {
	result := p.Run()
	for _, w := range result.Warnings {
		p.logger.Warn("preflight warning", "agent", agent, "warning", w)
	}
	if result.OK {
		return nil
	}
	return core.ErrPreflight(agent, strings.Join(result.Errors, "; "))
}
