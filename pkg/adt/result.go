package adt

import "time"

// RawResult captures the server response of one chain step as received.
type RawResult struct {
	Status int
	Body   []byte
}

// CheckMessage is one entry of a checkrun or activation message list.
type CheckMessage struct {
	// Severity letter as reported by the server: E/A/X are errors,
	// W is a warning, I is informational.
	Severity string
	Text     string
	// URI of the offending location, when the server reports one.
	URI string
}

// Fatal reports whether the message severity makes the whole check fail.
func (m CheckMessage) Fatal() bool {
	switch m.Severity {
	case "E", "A", "X":
		return true
	default:
		return false
	}
}

// CheckResult is the decoded outcome of a validation/check step.
type CheckResult struct {
	Messages []CheckMessage
}

// HasFatal reports whether any message is of error severity.
func (r *CheckResult) HasFatal() bool {
	if r == nil {
		return false
	}
	for _, m := range r.Messages {
		if m.Fatal() {
			return true
		}
	}
	return false
}

// ActivationResult is the decoded outcome of an activation request.
type ActivationResult struct {
	ActivationExecuted bool
	CheckExecuted      bool
	Messages           []CheckMessage
}

// HasFatalMessage reports whether the activation checklist contains a
// message of error severity.
func (r *ActivationResult) HasFatalMessage() bool {
	if r == nil {
		return false
	}
	for _, m := range r.Messages {
		if m.Fatal() {
			return true
		}
	}
	return false
}

// StepError records one failed step of an operation chain.
type StepError struct {
	Step string
	Err  error
	Time time.Time
}

// OperationResult accumulates the per-step outcomes of one top-level
// operation. A fresh value is created per invocation and never shared.
type OperationResult struct {
	Validation *CheckResult
	Create     *RawResult
	// LockHandle holds the handle obtained by the lock step. It is cleared
	// when a failed chain releases the lock during cleanup, so callers never
	// see a handle that is no longer valid.
	LockHandle LockHandle
	Update     *RawResult
	Check      *CheckResult
	Unlock     *RawResult
	Activation *ActivationResult
	Delete     *RawResult
	Errors     []StepError
}

// RecordError appends a failed step to the error list.
func (r *OperationResult) RecordError(step string, err error) {
	r.Errors = append(r.Errors, StepError{Step: step, Err: err, Time: time.Now()})
}

// Failed reports whether any step recorded an error.
func (r *OperationResult) Failed() bool {
	return len(r.Errors) > 0
}
