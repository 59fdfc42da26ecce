// Package chain implements the locked-mutation operation chain: acquire a
// stateful session, obtain a server-side lock, perform one or more
// mutations, release the lock, restore statelessness, and optionally trigger
// activation. The lock is always released even when an intermediate step
// fails, and the session mode is restored on every path.
package chain

import (
	"context"

	"github.com/go-logr/logr"

	"github.com/fr0ster/mcp-abap-adt-clients-sub007/pkg/adt"
	"github.com/fr0ster/mcp-abap-adt-clients-sub007/pkg/lockreg"
	"github.com/fr0ster/mcp-abap-adt-clients-sub007/pkg/transport"
)

// Observer receives chain lifecycle events. A nil Observer is valid.
type Observer interface {
	LockAcquired(ref adt.ObjectRef)
	LockReleased(ref adt.ObjectRef, cleanup bool)
}

// Runner executes operation chains over one transport. A Runner mutates the
// transport's session mode in place, so concurrent chains must each use
// their own transport (and thus their own Runner).
type Runner struct {
	tr  transport.Transport
	reg lockreg.Registry
	log logr.Logger
	obs Observer
}

type Option func(*Runner)

// WithRegistry makes the runner persist held locks for crash recovery.
// Registry updates happen synchronously with the lock and unlock calls.
func WithRegistry(reg lockreg.Registry) Option {
	return func(r *Runner) { r.reg = reg }
}

func WithObserver(obs Observer) Option {
	return func(r *Runner) { r.obs = obs }
}

func New(tr transport.Transport, log logr.Logger, opts ...Option) *Runner {
	r := &Runner{tr: tr, log: log}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// registryKey maps an object reference to its registry key.
func registryKey(ref adt.ObjectRef) lockreg.Key {
	return lockreg.Key{
		ObjectType:    string(ref.Kind()),
		ObjectName:    ref.Name(),
		FunctionGroup: ref.Container(),
	}
}

// recordHeldLock persists the (sessionId, lockHandle) pair. A failure to
// persist is fatal for the chain: continuing would break the crash-recovery
// contract, so the caller unlocks and aborts.
func (r *Runner) recordHeldLock(ctx context.Context, ref adt.ObjectRef, handle adt.LockHandle) error {
	if r.reg == nil {
		return nil
	}
	return r.reg.Record(ctx, lockreg.Entry{
		Key:        registryKey(ref),
		LockHandle: string(handle),
		SessionID:  r.tr.SessionID(),
	})
}

func (r *Runner) forgetHeldLock(ctx context.Context, ref adt.ObjectRef) {
	if r.reg == nil {
		return
	}
	if err := r.reg.Remove(ctx, registryKey(ref)); err != nil {
		// A stale entry only causes a spurious recovery attempt later.
		r.log.Error(err, "could not remove lock registry entry", "object", ref.String())
	}
}
