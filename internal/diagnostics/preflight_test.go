package diagnostics

import (
	"errors"
	"runtime"
	"strings"
	"testing"

	"github.com/shirou/gopsutil/v3/mem"

	"github.com/hugo-lorenzo-mato/crossreview/internal/core"
)

func memoryWithAvailableMB(mb uint64) MemoryReader {
	return func() (*mem.VirtualMemoryStat, error) {
		return &mem.VirtualMemoryStat{Available: mb * 1024 * 1024, Total: 16 * 1024 * 1024 * 1024}, nil
	}
}

func TestPreflight_Run(t *testing.T) {
	tests := []struct {
		name      string
		floor     int
		available uint64
		ok        bool
		warnings  int
	}{
		{"disabled", 0, 10, true, 0},
		{"plenty", 512, 4096, true, 0},
		{"approaching", 512, 700, true, 1},
		{"below floor", 512, 100, false, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPreflight(tt.floor, nil).WithMemoryReader(memoryWithAvailableMB(tt.available))
			got := p.Run()
			if got.OK != tt.ok {
				t.Errorf("OK = %v, want %v (%v)", got.OK, tt.ok, got.Errors)
			}
			if len(got.Warnings) != tt.warnings {
				t.Errorf("warnings = %v", got.Warnings)
			}
		})
	}
}

func TestPreflight_CheckReturnsDomainError(t *testing.T) {
	p := NewPreflight(1024, nil).WithMemoryReader(memoryWithAvailableMB(10))
	err := p.Check("codex")
	if err == nil {
		t.Fatal("expected error")
	}
	if !core.HasCode(err, core.CodePreflightFailed) {
		t.Errorf("error = %v, want PREFLIGHT_FAILED", err)
	}
	if !strings.Contains(err.Error(), "insufficient free memory") {
		t.Errorf("error = %v", err)
	}
}

func TestPreflight_UnreadableMemoryIsAWarning(t *testing.T) {
	p := NewPreflight(1024, nil).WithMemoryReader(func() (*mem.VirtualMemoryStat, error) {
		return nil, errors.New("no /proc")
	})
	if err := p.Check("claude"); err != nil {
		t.Errorf("Check() = %v, want nil", err)
	}
	if got := p.Run(); !got.OK || len(got.Warnings) != 1 {
		t.Errorf("Run() = %+v", got)
	}
}

func TestPreflight_NilIsPermissive(t *testing.T) {
	var p *Preflight
	if !p.Run().OK {
		t.Error("nil preflight should pass")
	}
}

func TestCollectSystem(t *testing.T) {
	r := CollectSystem(t.TempDir())
	if r.OS != runtime.GOOS || r.Arch != runtime.GOARCH {
		t.Errorf("report = %+v", r)
	}
}

func TestCheckAgent(t *testing.T) {
	if c := CheckAgent("empty", "  "); c.Found {
		t.Error("empty command cannot be found")
	}
	if c := CheckAgent("ghost", "crossreview-no-such-binary --flag"); c.Found {
		t.Errorf("unexpected resolution %+v", c)
	}
	if runtime.GOOS != "windows" {
		c := CheckAgent("shell", "sh -c")
		if !c.Found || c.Resolved == "" {
			t.Errorf("sh should be on PATH: %+v", c)
		}
	}
}
