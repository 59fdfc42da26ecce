package lockreg

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"time"

	"k8s.io/apimachinery/pkg/util/wait"
)

const defaultGuardRetryInterval = 20 * time.Millisecond

var (
	errGuardUnlocked = errors.New("registry file is not locked, I/O is not allowed")
	errNeedAbsPath   = errors.New("registry file path must be absolute")
)

// guardFile is the OS-level exclusive lock around the registry file. It
// serializes registry mutations across processes sharing one registry
// directory. I/O is only allowed while the guard is held. Not goroutine-safe.
type guardFile struct {
	path   string
	file   *os.File
	locked bool
}

func newGuardFile(path string) (*guardFile, error) {
	if len(path) == 0 || !filepath.IsAbs(path) {
		return nil, errNeedAbsPath
	}
	return &guardFile{path: path}, nil
}

// acquire takes the exclusive OS lock, polling with jitter until the context
// is cancelled. The advisory lock dies with the file descriptor, so a
// crashed process never wedges the registry.
func (g *guardFile) acquire(ctx context.Context) error {
	if g.locked {
		return nil
	}

	interval := wait.Jitter(defaultGuardRetryInterval, 0.1)
	return wait.PollUntilContextCancel(ctx, interval, true, func(ctx context.Context) (bool, error) {
		if g.file == nil {
			file, openErr := os.OpenFile(g.path, os.O_CREATE|os.O_RDWR, 0o600)
			if openErr != nil {
				return false, openErr
			}
			g.file = file
		}

		lockErr := doLock(g.file)
		if lockErr == nil {
			g.locked = true
			return true, nil
		}
		if isAlreadyLockedError(lockErr) {
			return false, nil
		}
		return false, lockErr
	})
}

func (g *guardFile) release() error {
	if g.file == nil || !g.locked {
		return nil
	}
	// Clear the flag first so a failed OS unlock still blocks further I/O.
	g.locked = false
	return doUnlock(g.file)
}

func (g *guardFile) close() error {
	releaseErr := g.release()
	if g.file != nil {
		closeErr := g.file.Close()
		g.file = nil
		return errors.Join(releaseErr, closeErr)
	}
	return releaseErr
}

func (g *guardFile) readAll() ([]byte, error) {
	if !g.locked {
		return nil, errGuardUnlocked
	}
	if _, err := g.file.Seek(0, 0); err != nil {
		return nil, err
	}
	return io.ReadAll(g.file)
}

func (g *guardFile) rewrite(content []byte) error {
	if !g.locked {
		return errGuardUnlocked
	}
	if err := g.file.Truncate(0); err != nil {
		return err
	}
	if _, err := g.file.Seek(0, 0); err != nil {
		return err
	}
	_, err := g.file.Write(content)
	return err
}
