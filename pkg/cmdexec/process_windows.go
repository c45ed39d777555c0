//go:build windows

package cmdexec

import (
	"os/exec"
)

// setProcGroup makes context cancellation kill the process. Windows has no
// process groups in the Unix sense.
func setProcGroup(cmd *exec.Cmd) {
	cmd.Cancel = func() error {
		return killProcGroup(cmd)
	}
}

// killProcGroup kills the process on Windows.
func killProcGroup(cmd *exec.Cmd) error {
	if cmd.Process == nil {
		return nil
	}
	return cmd.Process.Kill()
}
