package orchestration

import (
	"fmt"
	"os"
	"strconv"
	"syscall"
)

// lockFileName returns the path of the lock file guarding manifestPath.
func lockFileName(manifestPath string) string {
	return manifestPath + ".lock"
}

// CreateLockFile claims the lock for manifestPath by writing pid to its
// lock file, the cross-process complement to Runner's in-process single-
// active-job invariant: two Runner processes pointed at the same manifest
// must not run jobs concurrently.
func CreateLockFile(manifestPath string, pid int) error {
	return os.WriteFile(lockFileName(manifestPath), []byte(strconv.Itoa(pid)), 0644)
}

// RemoveLockFile releases the lock on manifestPath. Not an error if no lock
// is held.
func RemoveLockFile(manifestPath string) error {
	err := os.Remove(lockFileName(manifestPath))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// ReadLockFile reads the pid currently holding the lock on manifestPath.
func ReadLockFile(manifestPath string) (int, error) {
	content, err := os.ReadFile(lockFileName(manifestPath))
	if err != nil {
		return 0, err
	}
	pid, err := strconv.Atoi(string(content))
	if err != nil {
		return 0, fmt.Errorf("invalid pid in lock file %s: %w", lockFileName(manifestPath), err)
	}
	return pid, nil
}

// processAlive reports whether pid still refers to a running process,
// used to detect and clear a stale lock left behind by a crashed Runner.
func processAlive(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	// On Unix, FindProcess always succeeds; signal 0 is the portable way
	// to probe liveness without actually signalling the process.
	return proc.Signal(syscall.Signal(0)) == nil
}
