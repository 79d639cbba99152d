//go:build unix

package executor

import (
	"os/exec"
	"syscall"
)

// killProcessGroupOnCancel runs the command in its own process group and
// kills the whole group on timeout, so children of sudo die with it
func killProcessGroupOnCancel(c *exec.Cmd) {
	if c.SysProcAttr == nil {
		c.SysProcAttr = &syscall.SysProcAttr{}
	}
	c.SysProcAttr.Setpgid = true
	c.Cancel = func() error {
		if c.Process == nil {
			return nil
		}
		return syscall.Kill(-c.Process.Pid, syscall.SIGKILL)
	}
}
