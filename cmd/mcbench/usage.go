package main

import (
	"log"
	"os"

	"github.com/shirou/gopsutil/v3/process"
)

// Logs the resident set size and cpu times of the benchmark process, so
// client side overhead can be compared across pool kinds.
func logProcessUsage(logger *log.Logger) {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		logger.Printf("process usage unavailable: %s", err)
		return
	}

	if mem, err := proc.MemoryInfo(); err == nil && mem != nil {
		logger.Printf("rss = %.1f MiB", float64(mem.RSS)/(1024*1024))
	}

	if times, err := proc.Times(); err == nil && times != nil {
		logger.Printf("cpu user = %.2fs system = %.2fs", times.User, times.System)
	}

	if n, err := proc.NumThreads(); err == nil {
		logger.Printf("threads = %d", n)
	}
}
