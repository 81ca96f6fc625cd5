// Package telemetry collects the host health figures the kiosk reports
// with each heartbeat: free space on the media volume, memory pressure,
// and how long the machine has been up.
package telemetry

import (
	"fmt"
	"os"

	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
)

// Snapshot is one heartbeat's worth of host telemetry.
type Snapshot struct {
	UptimeSeconds     uint64  `json:"uptimeSeconds"`
	MemoryTotalBytes  uint64  `json:"memoryTotalBytes"`
	MemoryUsedPercent float64 `json:"memoryUsedPercent"`
	DiskTotalBytes    uint64  `json:"diskTotalBytes"`
	DiskFreeBytes     uint64  `json:"diskFreeBytes"`
	DiskUsedPercent   float64 `json:"diskUsedPercent"`
}

// Collect gathers a snapshot. Disk figures come from the filesystem
// holding downloadPath; when that path does not exist yet, the working
// directory's filesystem is reported instead so heartbeats keep flowing.
func Collect(downloadPath string) (*Snapshot, error) {
	s := &Snapshot{}

	if up, err := host.Uptime(); err == nil {
		s.UptimeSeconds = up
	}

	vm, err := mem.VirtualMemory()
	if err != nil {
		return nil, fmt.Errorf("failed to read memory stats: %w", err)
	}
	s.MemoryTotalBytes = vm.Total
	s.MemoryUsedPercent = vm.UsedPercent

	target := downloadPath
	if _, statErr := os.Stat(target); statErr != nil {
		target = "."
	}
	du, err := disk.Usage(target)
	if err != nil {
		return nil, fmt.Errorf("failed to read disk usage: %w", err)
	}
	s.DiskTotalBytes = du.Total
	s.DiskFreeBytes = du.Free
	s.DiskUsedPercent = du.UsedPercent

	return s, nil
}
