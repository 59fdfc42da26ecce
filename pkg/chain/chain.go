package chain

import (
	"context"
	"errors"
	"time"

	"github.com/fr0ster/mcp-abap-adt-clients-sub007/pkg/adt"
	"github.com/fr0ster/mcp-abap-adt-clients-sub007/pkg/resiliency"
	"github.com/fr0ster/mcp-abap-adt-clients-sub007/pkg/transport"
	"github.com/fr0ster/mcp-abap-adt-clients-sub007/pkg/xmlcodec"
)

var errNotLocked = errors.New("no lock is held")

// confirmRetryBudget bounds the network-level retries of the best-effort
// confirmation read.
const confirmRetryBudget = 30 * time.Second

// MutateOptions control a locked mutation chain.
type MutateOptions struct {
	// TransportRequest is the change-management request (corrNr) the
	// mutation is recorded under. Empty for local objects.
	TransportRequest string
	// Check runs the server-side check of the submitted source between lock
	// and mutation. Fatal check messages abort the chain before anything is
	// written; warnings are recorded and ignored.
	Check bool
	// Activate triggers activation after the lock has been released.
	Activate bool
	// Confirm re-reads the object with long polling after update or
	// activation. Confirmation failures are logged and swallowed; the chain
	// still returns the results already obtained.
	Confirm bool
	// Bypass skips the whole lock/unlock bracket and performs the single
	// mutating call with this pre-supplied handle. Used when an outer caller
	// already manages the lock. Session mode and lock registry are left
	// untouched.
	Bypass adt.LockState
}

// Update runs the locked mutation chain for new source text:
// stateful, lock, optional check, write, unlock, stateless, then optional
// activation and confirmation. The returned result is always non-nil and
// carries per-step outcomes and errors even when the chain fails.
func (r *Runner) Update(ctx context.Context, ref adt.ObjectRef, source []byte, opts MutateOptions) (*adt.OperationResult, error) {
	result := &adt.OperationResult{}

	if opts.Bypass.IsLocked() {
		update, err := r.writeSource(ctx, ref, opts.Bypass, source, opts.TransportRequest)
		if err != nil {
			result.RecordError("update", err)
			return result, err
		}
		result.Update = update
		return result, nil
	}

	err := r.withLock(ctx, ref, result, func(state adt.LockState) error {
		if opts.Check {
			check, checkErr := r.Check(ctx, ref, xmlcodec.CheckVersionInactive, source)
			result.Check = check
			if checkErr != nil {
				result.RecordError("check", checkErr)
				return checkErr
			}
		}

		update, updateErr := r.writeSource(ctx, ref, state, source, opts.TransportRequest)
		if updateErr != nil {
			result.RecordError("update", updateErr)
			return updateErr
		}
		result.Update = update
		return nil
	})
	if err != nil {
		return result, err
	}

	return result, r.finish(ctx, ref, result, opts)
}

// CreateOptions control object creation.
type CreateOptions struct {
	TransportRequest string
	// Validate asks the server to validate the object name before anything
	// is created or locked. A rejection propagates immediately; there is no
	// cleanup at that point. Description and Package feed the validation
	// query.
	Validate    bool
	Description string
	Package     string
	// Source is the initial source text. When set, a locked update chain
	// runs right after creation.
	Source []byte
	// Activate triggers activation once the object (and its source, when
	// given) is in place.
	Activate bool
	Confirm  bool
}

// Create validates the name when requested, posts the creation payload,
// optionally uploads initial source under a fresh lock, and optionally
// activates. Creation itself happens without a lock: the object does not
// exist before the call.
func (r *Runner) Create(ctx context.Context, ref adt.ObjectRef, payload []byte, opts CreateOptions) (*adt.OperationResult, error) {
	result := &adt.OperationResult{}

	if opts.Validate {
		validation, err := r.ValidateNew(ctx, ref, opts.Description, opts.Package)
		result.Validation = validation
		if err != nil {
			result.RecordError("validation", err)
			return result, err
		}
	}

	create, err := r.createObject(ctx, ref, payload, opts.TransportRequest)
	if err != nil {
		result.RecordError("create", err)
		return result, err
	}
	result.Create = create

	if opts.Source != nil {
		err = r.withLock(ctx, ref, result, func(state adt.LockState) error {
			update, updateErr := r.writeSource(ctx, ref, state, opts.Source, opts.TransportRequest)
			if updateErr != nil {
				result.RecordError("update", updateErr)
				return updateErr
			}
			result.Update = update
			return nil
		})
		if err != nil {
			return result, err
		}
	}

	return result, r.finish(ctx, ref, result, MutateOptions{
		Activate: opts.Activate,
		Confirm:  opts.Confirm,
	})
}

// Delete runs the locked deletion chain.
func (r *Runner) Delete(ctx context.Context, ref adt.ObjectRef, opts MutateOptions) (*adt.OperationResult, error) {
	result := &adt.OperationResult{}

	if opts.Bypass.IsLocked() {
		del, err := r.deleteObject(ctx, ref, opts.Bypass, opts.TransportRequest)
		if err != nil {
			result.RecordError("delete", err)
			return result, err
		}
		result.Delete = del
		return result, nil
	}

	err := r.withLock(ctx, ref, result, func(state adt.LockState) error {
		del, delErr := r.deleteObject(ctx, ref, state, opts.TransportRequest)
		if delErr != nil {
			result.RecordError("delete", delErr)
			return delErr
		}
		result.Delete = del
		return nil
	})
	return result, err
}

// withLock is the lock/unlock bracket every locked chain runs inside.
//
// Invariants it maintains:
//   - unlock runs exactly once per successful lock, with the handle obtained
//     by that lock, even when the inner function fails;
//   - the session mode ends stateless on every path, including a failed
//     unlock;
//   - the lock registry entry exists exactly while the server lock is held;
//   - an unlock failure during cleanup never masks the inner error.
func (r *Runner) withLock(ctx context.Context, ref adt.ObjectRef, result *adt.OperationResult, fn func(adt.LockState) error) error {
	r.tr.SetSessionType(adt.SessionStateful)
	defer r.tr.SetSessionType(adt.SessionStateless)

	state, _, lockErr := r.Lock(ctx, ref)
	if lockErr != nil {
		result.RecordError("lock", lockErr)
		return lockErr
	}
	handle, _ := state.Handle()
	result.LockHandle = handle

	if recordErr := r.recordHeldLock(ctx, ref, handle); recordErr != nil {
		// The crash-recovery contract requires the registry entry while the
		// lock is held; without it the chain must not proceed.
		result.RecordError("lock-registry", recordErr)
		r.releaseAfterError(ctx, ref, state, result)
		return recordErr
	}

	fnErr := fn(state)

	if fnErr != nil {
		r.releaseAfterError(ctx, ref, state, result)
		return fnErr
	}

	unlock, unlockErr := r.Unlock(ctx, ref, state)
	if unlockErr != nil {
		result.RecordError("unlock", unlockErr)
		return unlockErr
	}
	if r.obs != nil {
		r.obs.LockReleased(ref, false)
	}
	result.Unlock = unlock
	r.forgetHeldLock(ctx, ref)
	return nil
}

// releaseAfterError is the compensating unlock. Its own failure is logged
// and recorded but never propagated: the inner error takes precedence. The
// result's lock handle is cleared in every case, so callers never pick up a
// handle that must not be reused.
func (r *Runner) releaseAfterError(ctx context.Context, ref adt.ObjectRef, state adt.LockState, result *adt.OperationResult) {
	unlock, unlockErr := r.Unlock(ctx, ref, state)
	if unlockErr != nil {
		r.log.Error(unlockErr, "compensating unlock failed", "object", ref.String())
		result.RecordError("unlock", unlockErr)
	} else {
		if r.obs != nil {
			r.obs.LockReleased(ref, true)
		}
		result.Unlock = unlock
		r.forgetHeldLock(ctx, ref)
	}
	result.LockHandle = ""
}

// finish performs the post-bracket steps: activation and the best-effort
// long-polling confirmation read.
func (r *Runner) finish(ctx context.Context, ref adt.ObjectRef, result *adt.OperationResult, opts MutateOptions) error {
	if opts.Activate {
		activation, err := r.Activate(ctx, ref)
		result.Activation = activation
		if err != nil {
			result.RecordError("activate", err)
			return err
		}
	}

	if opts.Confirm {
		r.confirmReady(ctx, ref)
	}
	return nil
}

// confirmReady re-reads the object with long polling to confirm server-side
// readiness. Failures are deliberately swallowed: the chain's results are
// already in hand and a slow confirmation must not undo them. Network-level
// failures are retried briefly; anything the server answered is final.
func (r *Runner) confirmReady(ctx context.Context, ref adt.ObjectRef) {
	err := resiliency.RetryExponentialWithTimeout(ctx, confirmRetryBudget, func() error {
		_, readErr := r.ReadObject(ctx, ref, ReadOptions{LongPolling: true})
		var netErr *transport.NetworkError
		if readErr != nil && !errors.As(readErr, &netErr) {
			return resiliency.Permanent(readErr)
		}
		return readErr
	})
	if err != nil {
		r.log.V(1).Info("post-update confirmation read failed",
			"object", ref.String(), "error", err.Error())
	}
}
