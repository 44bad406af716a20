package relay

import (
	"os"
	"strconv"
	"strings"
	"syscall"
)

// PendingLock reports whether the approval hook's lock file names a live
// process. While it does, the operator's next Y/N reply belongs to the hook,
// not to the relay.
func PendingLock(path string) bool {
	data, err := os.ReadFile(path)
	if err != nil {
		return false
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return false
	}

	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}

	// Signal 0 probes for existence without delivering anything.
	return proc.Signal(syscall.Signal(0)) == nil
}
