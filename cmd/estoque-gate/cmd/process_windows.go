//go:build windows

package cmd

import (
	"os"

	"golang.org/x/sys/windows"
)

// gracefulSignals lists what the serve command traps to drain the gateway
// cleanly. Windows has no SIGTERM; os.Interrupt covers Ctrl+C.
func gracefulSignals() []os.Signal {
	return []os.Signal{os.Interrupt}
}

// processIsAlive probes a PID-file process through its exit code, since the
// null-signal trick is Unix-only.
func processIsAlive(proc *os.Process) bool {
	handle, err := windows.OpenProcess(windows.PROCESS_QUERY_LIMITED_INFORMATION, false, uint32(proc.Pid))
	if err != nil {
		return false
	}
	defer windows.CloseHandle(handle)

	var exitCode uint32
	if err := windows.GetExitCodeProcess(handle, &exitCode); err != nil {
		return false
	}
	// 259 is STILL_ACTIVE.
	return exitCode == 259
}

// sendGracefulStop stops a running gateway. Without SIGTERM the best
// available option is TerminateProcess via Kill.
func sendGracefulStop(proc *os.Process) error {
	return proc.Kill()
}
