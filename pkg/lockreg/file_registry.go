package lockreg

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

const registryFileName = "held-locks.jsonl"

// FileRegistry stores lock entries as one JSON record per line in a file
// guarded by an exclusive OS lock, so multiple processes may share one
// registry directory. Safe for concurrent use across processes but not
// across goroutines sharing one instance.
type FileRegistry struct {
	path string
}

var _ Registry = (*FileRegistry)(nil)

// NewFileRegistry opens (or creates) the registry under dir.
func NewFileRegistry(dir string) (*FileRegistry, error) {
	if dir == "" {
		return nil, errors.New("registry directory cannot be empty")
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(abs, 0o700); err != nil {
		return nil, fmt.Errorf("could not create registry directory: %w", err)
	}
	return &FileRegistry{path: filepath.Join(abs, registryFileName)}, nil
}

// Record persists entry, replacing any previous entry for the same key.
// Missing ID, timestamp and PID fields are filled in.
func (r *FileRegistry) Record(ctx context.Context, entry Entry) error {
	if entry.LockHandle == "" {
		return errors.New("cannot record an entry without a lock handle")
	}
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	if entry.PID == 0 {
		entry.PID = os.Getpid()
	}

	return r.mutate(ctx, func(entries []Entry) []Entry {
		kept := entries[:0]
		for _, e := range entries {
			if e.Key != entry.Key {
				kept = append(kept, e)
			}
		}
		return append(kept, entry)
	})
}

// Remove drops the entry for key. Removing an absent key is not an error.
func (r *FileRegistry) Remove(ctx context.Context, key Key) error {
	return r.mutate(ctx, func(entries []Entry) []Entry {
		kept := entries[:0]
		for _, e := range entries {
			if e.Key != key {
				kept = append(kept, e)
			}
		}
		return kept
	})
}

func (r *FileRegistry) Get(ctx context.Context, key Key) (Entry, bool, error) {
	entries, err := r.List(ctx)
	if err != nil {
		return Entry{}, false, err
	}
	for _, e := range entries {
		if e.Key == key {
			return e, true, nil
		}
	}
	return Entry{}, false, nil
}

func (r *FileRegistry) List(ctx context.Context) ([]Entry, error) {
	guard, err := newGuardFile(r.path)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = guard.close()
	}()

	if err := guard.acquire(ctx); err != nil {
		return nil, err
	}
	return readEntries(guard)
}

func (r *FileRegistry) mutate(ctx context.Context, apply func([]Entry) []Entry) error {
	guard, err := newGuardFile(r.path)
	if err != nil {
		return err
	}
	defer func() {
		_ = guard.close()
	}()

	if err := guard.acquire(ctx); err != nil {
		return err
	}

	entries, err := readEntries(guard)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	for _, e := range apply(entries) {
		buf.Write(marshalEntry(e))
		buf.WriteByte('\n')
	}
	return guard.rewrite(buf.Bytes())
}

// readEntries decodes the guarded file. A corrupted line fails the whole
// read; held-lock records are too important to silently drop.
func readEntries(guard *guardFile) ([]Entry, error) {
	content, err := guard.readAll()
	if err != nil {
		return nil, err
	}

	var entries []Entry
	scanner := bufio.NewScanner(bytes.NewReader(content))
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		entry, unmarshalErr := unmarshalEntry(line)
		if unmarshalErr != nil {
			return nil, fmt.Errorf("registry file is corrupted: %w", unmarshalErr)
		}
		entries = append(entries, entry)
	}
	return entries, scanner.Err()
}
