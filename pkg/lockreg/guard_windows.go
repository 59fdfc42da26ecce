//go:build windows

package lockreg

import (
	"math"
	"os"

	"golang.org/x/sys/windows"
)

func doLock(f *os.File) error {
	// Exclusive lock over the maximum byte range. Windows releases locks of
	// a terminated process asynchronously, so explicit unlock stays
	// preferable.
	var overlapped windows.Overlapped
	return windows.LockFileEx(
		windows.Handle(f.Fd()),
		windows.LOCKFILE_EXCLUSIVE_LOCK|windows.LOCKFILE_FAIL_IMMEDIATELY,
		0,
		math.MaxUint32,
		math.MaxUint32,
		&overlapped,
	)
}

func doUnlock(f *os.File) error {
	var overlapped windows.Overlapped
	return windows.UnlockFileEx(
		windows.Handle(f.Fd()),
		0,
		math.MaxUint32,
		math.MaxUint32,
		&overlapped,
	)
}

func isAlreadyLockedError(err error) bool {
	return err == windows.ERROR_LOCK_VIOLATION
}
