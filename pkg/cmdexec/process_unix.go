//go:build unix

package cmdexec

import (
	"os/exec"
	"syscall"
)

// setProcGroup runs the command in its own process group and makes context
// cancellation signal every child.
func setProcGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setpgid: true,
	}
	cmd.Cancel = func() error {
		return killProcGroup(cmd)
	}
}

// killProcGroup sends SIGKILL to the command's process group.
func killProcGroup(cmd *exec.Cmd) error {
	if cmd.Process == nil {
		return nil
	}
	return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
}
