//go:build !windows

package lockreg

import (
	"os"

	"golang.org/x/sys/unix"
)

func doLock(f *os.File) error {
	// Advisory lock tied to the file descriptor. Closing the descriptor or
	// process exit releases it automatically.
	return unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB)
}

func doUnlock(f *os.File) error {
	return unix.Flock(int(f.Fd()), unix.LOCK_UN)
}

func isAlreadyLockedError(err error) bool {
	return err == unix.EWOULDBLOCK
}
