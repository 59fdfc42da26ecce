package adt

// LockHandle is the opaque token the server issues on a successful lock.
// It must accompany every mutating call on the locked object and the final
// unlock, and must never be used after unlock.
type LockHandle string

// LockState is the explicit lock state a chain carries between steps:
// either unlocked, or locked with the handle obtained from the server.
// The zero value is the unlocked state.
type LockState struct {
	handle LockHandle
	locked bool
}

// Unlocked returns the unlocked state.
func Unlocked() LockState {
	return LockState{}
}

// Locked returns a state holding the given handle.
func Locked(handle LockHandle) LockState {
	return LockState{handle: handle, locked: true}
}

// Handle returns the lock handle and whether the state is locked.
func (s LockState) Handle() (LockHandle, bool) {
	return s.handle, s.locked
}

func (s LockState) IsLocked() bool {
	return s.locked
}

// SessionMode selects how the transport pins requests to a server session.
// A stateful session is required while a lock is held; the mode must revert
// to stateless as soon as the lock is released, on error paths included.
type SessionMode string

const (
	SessionStateful  SessionMode = "stateful"
	SessionStateless SessionMode = "stateless"
)
