//go:build !windows

package cmd

import (
	"os"
	"syscall"
)

// gracefulSignals lists what the serve command traps to drain the gateway
// cleanly. SIGTERM is what the stop command sends.
func gracefulSignals() []os.Signal {
	return []os.Signal{syscall.SIGINT, syscall.SIGTERM}
}

// processIsAlive probes a PID-file process with the null signal.
func processIsAlive(proc *os.Process) bool {
	return proc.Signal(syscall.Signal(0)) == nil
}

// sendGracefulStop asks a running gateway to drain and exit.
func sendGracefulStop(proc *os.Process) error {
	return proc.Signal(syscall.SIGTERM)
}
