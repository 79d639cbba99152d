//go:build !unix

package executor

import "os/exec"

func killProcessGroupOnCancel(c *exec.Cmd) {}
