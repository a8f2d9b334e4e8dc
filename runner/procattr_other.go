//go:build !unix

package runner

import "os/exec"

// setProcessGroup is a no-op; exec.CommandContext kills the process itself.
func setProcessGroup(c *exec.Cmd) {}
