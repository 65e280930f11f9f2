//go:build unix && !linux

package supervisor

// awaitExit has no portable non-reaping wait here. reap falls back to cmd.Wait
// alone, which leaves a short window between reaping and marking the handle
// exited in which a group signal could still be sent.
func awaitExit(int) bool {
	return false
}
