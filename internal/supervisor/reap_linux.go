//go:build linux

package supervisor

import (
	"errors"

	"golang.org/x/sys/unix"
)

// awaitExit blocks until pid has exited but leaves it unreaped (WNOWAIT), so
// the pid and its process group id stay reserved until cmd.Wait.
func awaitExit(pid int) bool {
	for {
		var info unix.Siginfo
		err := unix.Waitid(unix.P_PID, pid, &info, unix.WEXITED|unix.WNOWAIT, nil)
		if errors.Is(err, unix.EINTR) {
			continue
		}
		return err == nil
	}
}
