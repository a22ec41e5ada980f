//go:build unix

package main

import (
	"os/exec"
	"syscall"
)

// detachDaemon puts waypointd in its own process group so it outlives the
// shell that ran "waypoint start".
func detachDaemon(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}
