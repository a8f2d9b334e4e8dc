//go:build unix

package runner

import (
	"os/exec"
	"syscall"
)

// setProcessGroup starts the command in a new process group and makes
// cancellation kill the whole group, so evaluator helpers die with it.
func setProcessGroup(c *exec.Cmd) {
	c.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	c.Cancel = func() error {
		if c.Process == nil {
			return nil
		}
		// Negative pid addresses the process group.
		return syscall.Kill(-c.Process.Pid, syscall.SIGKILL)
	}
}
