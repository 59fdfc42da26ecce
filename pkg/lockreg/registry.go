// Package lockreg persists which server-side locks this process holds, so a
// recovery tool can replay unlock after a crash. Registry updates are made
// synchronously with the lock and unlock calls of an operation chain; there
// is no batching and no asynchronous write-behind.
package lockreg

import (
	"context"
	"encoding/json"
	"time"
)

// Key identifies one lockable object in the registry.
type Key struct {
	ObjectType    string `json:"objectType"`
	ObjectName    string `json:"objectName"`
	FunctionGroup string `json:"functionGroup,omitempty"`
}

// Entry is the persisted record of one held lock. The (SessionID, LockHandle)
// pair is what a recovery run replays against the server.
type Entry struct {
	Key
	ID         string    `json:"id"`
	LockHandle string    `json:"lockHandle"`
	SessionID  string    `json:"sessionId"`
	Timestamp  time.Time `json:"timestamp"`
	PID        int       `json:"pid"`
}

// Registry records held locks. Implementations must make Record and Remove
// durable before returning.
type Registry interface {
	Record(ctx context.Context, entry Entry) error
	Remove(ctx context.Context, key Key) error
	Get(ctx context.Context, key Key) (Entry, bool, error)
	List(ctx context.Context) ([]Entry, error)
}

func marshalEntry(entry Entry) []byte {
	// Entries are plain structs; json.Marshal cannot fail on them.
	line, _ := json.Marshal(entry)
	return line
}

func unmarshalEntry(line []byte) (Entry, error) {
	var entry Entry
	err := json.Unmarshal(line, &entry)
	return entry, err
}
