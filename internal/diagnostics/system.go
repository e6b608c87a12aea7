package diagnostics

import (
	"os/exec"
	"runtime"
	"strings"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/mem"
)

// SystemReport is a point-in-time view of the host.
type SystemReport struct {
	OS         string  `json:"os"`
	Arch       string  `json:"arch"`
	CPUModel   string  `json:"cpu_model,omitempty"`
	CPUThreads int     `json:"cpu_threads,omitempty"`
	MemTotalMB float64 `json:"mem_total_mb,omitempty"`
	MemFreeMB  float64 `json:"mem_free_mb,omitempty"`
	MemPercent float64 `json:"mem_percent,omitempty"`
	DiskPath   string  `json:"disk_path,omitempty"`
	DiskFreeGB float64 `json:"disk_free_gb,omitempty"`
	LoadAvg1   float64 `json:"load_avg_1,omitempty"`
}

// CollectSystem gathers the host report. diskPath selects the filesystem
// whose free space is reported, normally the review target.
func CollectSystem(diskPath string) SystemReport {
	r := SystemReport{OS: runtime.GOOS, Arch: runtime.GOARCH}

	if infos, err := cpu.Info(); err == nil && len(infos) > 0 {
		r.CPUModel = strings.TrimSpace(infos[0].ModelName)
	}
	if threads, err := cpu.Counts(true); err == nil {
		r.CPUThreads = threads
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		r.MemTotalMB = float64(vm.Total) / 1024 / 1024
		r.MemFreeMB = float64(vm.Available) / 1024 / 1024
		r.MemPercent = vm.UsedPercent
	}
	if diskPath != "" {
		if usage, err := disk.Usage(diskPath); err == nil {
			r.DiskPath = diskPath
			r.DiskFreeGB = float64(usage.Free) / 1024 / 1024 / 1024
		}
	}
	if avg, err := load.Avg(); err == nil {
		r.LoadAvg1 = avg.Load1
	}
	return r
}

// AgentCheck is the PATH lookup result for one agent.
type AgentCheck struct {
	Name     string `json:"name"`
	Command  string `json:"command"`
	Resolved string `json:"resolved,omitempty"`
	Found    bool   `json:"found"`
}

// CheckAgent resolves the executable of command, which may carry leading
// words such as "gh copilot".
func CheckAgent(name, command string) AgentCheck {
	c := AgentCheck{Name: name, Command: command}
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return c
	}
	if resolved, err := exec.LookPath(fields[0]); err == nil {
		c.Resolved = resolved
		c.Found = true
	}
	return c
}
