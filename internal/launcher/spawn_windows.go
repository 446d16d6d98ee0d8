//go:build windows

package launcher

import (
	"os/exec"
	"strings"
	"syscall"

	"golang.org/x/sys/windows"
)

// detach opens the child in a new console window. The command line is passed
// verbatim because cmd.exe does its own quote parsing.
func detach(cmd *exec.Cmd, argv []string) {
	if cmd.SysProcAttr == nil {
		cmd.SysProcAttr = &syscall.SysProcAttr{}
	}
	cmd.SysProcAttr.CmdLine = strings.Join(argv, " ")
	cmd.SysProcAttr.CreationFlags |= windows.CREATE_NEW_CONSOLE
}
