// Package system reads host resources for the doctor report and the
// pre-creation resource warning.
package system

import (
	"context"
	"fmt"
	"runtime"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
)

// MinimumRAM is what a Fluree server container needs to run comfortably.
// Less than this produces a warning, never a hard failure.
const MinimumRAM = 1 << 30 // 1 GiB

// Checker reads host resource information.
type Checker struct {
	ctx context.Context
}

// NewChecker creates a checker bound to a context.
func NewChecker(ctx context.Context) *Checker {
	return &Checker{ctx: ctx}
}

// GetRAM returns total and available RAM in bytes.
func (c *Checker) GetRAM() (total, available uint64, err error) {
	v, err := mem.VirtualMemoryWithContext(c.ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to get memory info: %w", err)
	}
	return v.Total, v.Available, nil
}

// GetDisk returns total and free disk space in bytes for the filesystem
// holding path. An empty path checks the root filesystem.
func (c *Checker) GetDisk(path string) (total, free uint64, err error) {
	if path == "" {
		path = "/"
		if runtime.GOOS == "windows" {
			path = "C:\\"
		}
	}

	usage, err := disk.UsageWithContext(c.ctx, path)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to get disk usage: %w", err)
	}
	return usage.Total, usage.Free, nil
}

// GetCPU returns the number of logical CPU cores.
func (c *Checker) GetCPU() (int, error) {
	count, err := cpu.CountsWithContext(c.ctx, true)
	if err != nil {
		return 0, fmt.Errorf("failed to get CPU count: %w", err)
	}
	return count, nil
}

// Info is a host resource snapshot for the doctor report.
type Info struct {
	Platform     string
	Architecture string
	TotalRAM     uint64
	AvailableRAM uint64
	TotalDisk    uint64
	FreeDisk     uint64
	CPUCount     int
}

// GetInfo collects the full snapshot. dataDir selects which filesystem the
// disk numbers describe.
func (c *Checker) GetInfo(dataDir string) (Info, error) {
	info := Info{
		Platform:     runtime.GOOS,
		Architecture: runtime.GOARCH,
	}

	totalRAM, availableRAM, err := c.GetRAM()
	if err != nil {
		return info, err
	}
	info.TotalRAM = totalRAM
	info.AvailableRAM = availableRAM

	totalDisk, freeDisk, err := c.GetDisk(dataDir)
	if err != nil {
		return info, err
	}
	info.TotalDisk = totalDisk
	info.FreeDisk = freeDisk

	cpuCount, err := c.GetCPU()
	if err != nil {
		return info, err
	}
	info.CPUCount = cpuCount

	return info, nil
}

// LowMemory reports whether available RAM is below the comfortable minimum.
func (c *Checker) LowMemory() (bool, uint64) {
	_, available, err := c.GetRAM()
	if err != nil {
		return false, 0
	}
	return available < MinimumRAM, available
}
