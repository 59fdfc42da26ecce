package adt

import (
	"errors"
	"fmt"
	"net/http"
)

// The error taxonomy of an operation chain. Every error retains the original
// server status and message so callers can tell "locked by someone else"
// apart from "does not exist" or "syntax error in submitted content".

// LockError reports a failed lock acquisition. No cleanup beyond the
// session-mode reset is needed when it occurs: no handle was obtained.
type LockError struct {
	Ref ObjectRef
	Err error
}

func (e *LockError) Error() string {
	return fmt.Sprintf("could not lock %s: %v", e.Ref, e.Err)
}

func (e *LockError) Unwrap() error { return e.Err }

// ValidationError reports that the server rejected the submitted name or
// content during a validation/check step.
type ValidationError struct {
	Ref      ObjectRef
	Messages []CheckMessage
	Err      error
}

func (e *ValidationError) Error() string {
	if len(e.Messages) > 0 {
		return fmt.Sprintf("validation of %s failed: %s", e.Ref, e.Messages[0].Text)
	}
	return fmt.Sprintf("validation of %s failed: %v", e.Ref, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// MutationError reports a server rejection of the mutating call itself.
type MutationError struct {
	Ref  ObjectRef
	Step string
	Err  error
}

func (e *MutationError) Error() string {
	return fmt.Sprintf("%s of %s rejected: %v", e.Step, e.Ref, e.Err)
}

func (e *MutationError) Unwrap() error { return e.Err }

// UnlockError reports a failed unlock. On the cleanup path it is logged and
// never masks the error that triggered the cleanup.
type UnlockError struct {
	Ref ObjectRef
	Err error
}

func (e *UnlockError) Error() string {
	return fmt.Sprintf("could not unlock %s: %v", e.Ref, e.Err)
}

func (e *UnlockError) Unwrap() error { return e.Err }

// ActivationError reports a failed activation, carrying the server's message
// list when one was returned.
type ActivationError struct {
	Ref      ObjectRef
	Messages []CheckMessage
	Err      error
}

func (e *ActivationError) Error() string {
	if len(e.Messages) > 0 {
		return fmt.Sprintf("activation of %s failed: %s", e.Ref, e.Messages[0].Text)
	}
	return fmt.Sprintf("activation of %s failed: %v", e.Ref, e.Err)
}

func (e *ActivationError) Unwrap() error { return e.Err }

// statusCoder is satisfied by transport errors that carry an HTTP status.
type statusCoder interface {
	StatusCode() int
}

// StatusOf extracts the HTTP status carried by err, or 0 when err carries
// none (network errors, local failures).
func StatusOf(err error) int {
	var sc statusCoder
	if errors.As(err, &sc) {
		return sc.StatusCode()
	}
	return 0
}

// IsNotFound reports whether err represents a 404 read. Absence is a valid
// outcome for reads; callers typically map it to a nil object.
func IsNotFound(err error) bool {
	return StatusOf(err) == http.StatusNotFound
}

// IsForeignLock reports whether err looks like "object locked by another
// user". The server reports this as 403, sometimes as 423; there is no
// stable error code, so this remains a status heuristic.
func IsForeignLock(err error) bool {
	s := StatusOf(err)
	return s == http.StatusForbidden || s == http.StatusLocked
}
