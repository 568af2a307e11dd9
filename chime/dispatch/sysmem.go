package dispatch

import (
	"fmt"

	"github.com/shirou/gopsutil/v3/mem"
)

// maxMemoryUsedPercent is the system memory utilization above which a
// dispatch batch is deferred to the next tick rather than started.
const maxMemoryUsedPercent = 95.0

// memoryPressure returns a warning when the system is too low on
// memory to start a batch, and an empty string otherwise. When the
// reading fails the batch proceeds.
func memoryPressure() string {
	v, err := mem.VirtualMemory()
	if err != nil {
		return ""
	}
	if v.UsedPercent > maxMemoryUsedPercent {
		return fmt.Sprintf("system memory at %.0f%%, deferring batch", v.UsedPercent)
	}
	return ""
}

// memorySummary formats current memory usage for the tick display.
func memorySummary() string {
	v, err := mem.VirtualMemory()
	if err != nil {
		return ""
	}
	usedGB := float64(v.Used) / 1024 / 1024 / 1024
	totalGB := float64(v.Total) / 1024 / 1024 / 1024
	return fmt.Sprintf("Mem: %.1f/%.1fGB (%.0f%%)", usedGB, totalGB, v.UsedPercent)
}
