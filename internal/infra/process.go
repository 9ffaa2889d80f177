// Package infra implements infrastructure concerns (signals, notification
// delivery, persistence, paths).
package infra

import (
	"os"
	"strings"
	"syscall"

	"github.com/shirou/gopsutil/v3/process"
)

// ProcessInfo resolves PID liveness and names using gopsutil.
type ProcessInfo struct{}

// NewProcessInfo creates a process info resolver.
func NewProcessInfo() *ProcessInfo {
	return &ProcessInfo{}
}

// NameForPID returns the lowercased executable name for a PID.
func (p *ProcessInfo) NameForPID(pid int) (string, error) {
	proc, err := process.NewProcess(int32(pid))
	if err != nil {
		return "", err
	}
	name, err := proc.Name()
	if err != nil {
		return "", err
	}
	return strings.ToLower(name), nil
}

// IsRunning checks if a PID exists and is running.
func (p *ProcessInfo) IsRunning(pid int) bool {
	// On Unix, FindProcess always succeeds
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}

	// Send signal 0 to check if process exists
	err = proc.Signal(syscall.Signal(0))
	return err == nil
}
