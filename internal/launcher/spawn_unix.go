//go:build !windows

package launcher

import (
	"os/exec"
	"syscall"
)

// detach starts the child in its own session so it outlives plugdeck and
// does not receive the terminal's signals.
func detach(cmd *exec.Cmd, _ []string) {
	if cmd.SysProcAttr == nil {
		cmd.SysProcAttr = &syscall.SysProcAttr{}
	}
	cmd.SysProcAttr.Setsid = true
}
