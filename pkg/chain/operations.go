package chain

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/fr0ster/mcp-abap-adt-clients-sub007/pkg/adt"
	"github.com/fr0ster/mcp-abap-adt-clients-sub007/pkg/transport"
	"github.com/fr0ster/mcp-abap-adt-clients-sub007/pkg/xmlcodec"
)

const (
	lockResultAccept = "application/vnd.sap.as+xml;charset=UTF-8;dataname=com.sap.adt.lock.result"
	sourceMediaType  = "text/plain; charset=utf-8"
	xmlMediaType     = "application/xml"

	checkrunsURI   = "/sap/bc/adt/checkruns"
	activationURI  = "/sap/bc/adt/activation"
)

// Version selects which object version reads address.
type Version string

const (
	VersionActive   Version = "active"
	VersionInactive Version = "inactive"
)

// Lock acquires the server-side lock on ref. The transport must already be
// in stateful mode. Each call obtains a fresh handle; handles are never
// reused across chains.
func (r *Runner) Lock(ctx context.Context, ref adt.ObjectRef) (adt.LockState, *xmlcodec.LockResult, error) {
	query := url.Values{}
	query.Set("_action", "LOCK")
	query.Set("accessMode", "MODIFY")

	req := &transport.Request{
		Method:  http.MethodPost,
		URL:     ref.URI(),
		Query:   query,
		Timeout: transport.TimeoutDefault,
	}
	req.SetHeader("Accept", lockResultAccept)

	resp, err := r.tr.MakeADTRequest(ctx, req)
	if err != nil {
		return adt.Unlocked(), nil, &adt.LockError{Ref: ref, Err: err}
	}

	lockResult, err := xmlcodec.ParseLockResult(resp.Body)
	if err != nil {
		return adt.Unlocked(), nil, &adt.LockError{Ref: ref, Err: err}
	}

	if r.obs != nil {
		r.obs.LockAcquired(ref)
	}
	return adt.Locked(lockResult.LockHandle), lockResult, nil
}

// Unlock releases the lock held in state. The handle must not be used again
// afterwards, whether or not the call succeeded.
func (r *Runner) Unlock(ctx context.Context, ref adt.ObjectRef, state adt.LockState) (*adt.RawResult, error) {
	handle, locked := state.Handle()
	if !locked {
		return nil, &adt.UnlockError{Ref: ref, Err: errNotLocked}
	}

	query := url.Values{}
	query.Set("_action", "UNLOCK")
	query.Set("lockHandle", string(handle))

	resp, err := r.tr.MakeADTRequest(ctx, &transport.Request{
		Method:  http.MethodPost,
		URL:     ref.URI(),
		Query:   query,
		Timeout: transport.TimeoutDefault,
	})
	if err != nil {
		return nil, &adt.UnlockError{Ref: ref, Err: err}
	}
	return &adt.RawResult{Status: resp.Status, Body: resp.Body}, nil
}

// ReplayUnlock releases a lock recorded by a previous process. The original
// session's cookies died with that process, so the replay cannot rejoin the
// recorded session; it presents the persisted handle in a fresh stateful
// session, which the server accepts for orphaned locks, and ends stateless.
func (r *Runner) ReplayUnlock(ctx context.Context, ref adt.ObjectRef, state adt.LockState) (*adt.RawResult, error) {
	r.tr.SetSessionType(adt.SessionStateful)
	defer r.tr.SetSessionType(adt.SessionStateless)
	return r.Unlock(ctx, ref, state)
}

// ReadOptions control reads of an object or its source.
type ReadOptions struct {
	Version Version
	// LongPolling makes the server hold the request until the object is
	// ready, using the long timeout class.
	LongPolling bool
}

// ReadSource fetches the object's main source text. A 404 surfaces as an
// error for which adt.IsNotFound returns true; callers commonly map it to
// "object absent".
func (r *Runner) ReadSource(ctx context.Context, ref adt.ObjectRef, opts ReadOptions) ([]byte, error) {
	return r.readURI(ctx, ref.SourceURI(), opts)
}

// ReadObject fetches the object's metadata representation.
func (r *Runner) ReadObject(ctx context.Context, ref adt.ObjectRef, opts ReadOptions) ([]byte, error) {
	return r.readURI(ctx, ref.URI(), opts)
}

func (r *Runner) readURI(ctx context.Context, uri string, opts ReadOptions) ([]byte, error) {
	query := url.Values{}
	if opts.Version != "" {
		query.Set("version", string(opts.Version))
	}
	timeout := transport.TimeoutDefault
	if opts.LongPolling {
		query.Set("withLongPolling", "true")
		timeout = transport.TimeoutLong
	}

	resp, err := r.tr.MakeADTRequest(ctx, &transport.Request{
		Method:  http.MethodGet,
		URL:     uri,
		Query:   query,
		Timeout: timeout,
	})
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// writeSource uploads new source text under the held lock.
func (r *Runner) writeSource(ctx context.Context, ref adt.ObjectRef, state adt.LockState, source []byte, corrNr string) (*adt.RawResult, error) {
	handle, locked := state.Handle()
	if !locked {
		return nil, &adt.MutationError{Ref: ref, Step: "update", Err: errNotLocked}
	}

	query := url.Values{}
	query.Set("lockHandle", string(handle))
	if corrNr != "" {
		query.Set("corrNr", corrNr)
	}

	req := &transport.Request{
		Method:  http.MethodPut,
		URL:     ref.SourceURI(),
		Query:   query,
		Body:    source,
		Timeout: transport.TimeoutDefault,
	}
	req.SetHeader("Content-Type", sourceMediaType)

	resp, err := r.tr.MakeADTRequest(ctx, req)
	if err != nil {
		return nil, &adt.MutationError{Ref: ref, Step: "update", Err: err}
	}
	return &adt.RawResult{Status: resp.Status, Body: resp.Body}, nil
}

// createObject posts the creation metadata payload. Creation happens outside
// the lock bracket: the object does not exist yet, so there is nothing to
// lock.
func (r *Runner) createObject(ctx context.Context, ref adt.ObjectRef, payload []byte, corrNr string) (*adt.RawResult, error) {
	query := url.Values{}
	if corrNr != "" {
		query.Set("corrNr", corrNr)
	}

	uri := collectionURI(ref)
	req := &transport.Request{
		Method:  http.MethodPost,
		URL:     uri,
		Query:   query,
		Body:    payload,
		Timeout: transport.TimeoutDefault,
	}
	req.SetHeader("Content-Type", xmlMediaType)

	resp, err := r.tr.MakeADTRequest(ctx, req)
	if err != nil {
		return nil, &adt.MutationError{Ref: ref, Step: "create", Err: err}
	}
	return &adt.RawResult{Status: resp.Status, Body: resp.Body}, nil
}

// deleteObject issues the delete under the held lock.
func (r *Runner) deleteObject(ctx context.Context, ref adt.ObjectRef, state adt.LockState, corrNr string) (*adt.RawResult, error) {
	handle, locked := state.Handle()
	if !locked {
		return nil, &adt.MutationError{Ref: ref, Step: "delete", Err: errNotLocked}
	}

	query := url.Values{}
	query.Set("lockHandle", string(handle))
	if corrNr != "" {
		query.Set("corrNr", corrNr)
	}

	resp, err := r.tr.MakeADTRequest(ctx, &transport.Request{
		Method:  http.MethodDelete,
		URL:     ref.URI(),
		Query:   query,
		Timeout: transport.TimeoutDefault,
	})
	if err != nil {
		return nil, &adt.MutationError{Ref: ref, Step: "delete", Err: err}
	}
	return &adt.RawResult{Status: resp.Status, Body: resp.Body}, nil
}

// ValidateNew asks the server whether an object named like ref may be
// created: name collisions and namespace violations are reported here,
// before anything exists or is locked. A rejection propagates immediately;
// there is nothing to clean up.
func (r *Runner) ValidateNew(ctx context.Context, ref adt.ObjectRef, description, devPackage string) (*adt.CheckResult, error) {
	query := url.Values{}
	query.Set("objname", strings.ToUpper(ref.Name()))
	if devPackage != "" {
		query.Set("packagename", strings.ToUpper(devPackage))
	}
	if description != "" {
		query.Set("description", description)
	}

	req := &transport.Request{
		Method:  http.MethodPost,
		URL:     collectionURI(ref) + "/validation",
		Query:   query,
		Timeout: transport.TimeoutDefault,
	}
	req.SetHeader("Accept", xmlMediaType)

	resp, err := r.tr.MakeADTRequest(ctx, req)
	if err != nil {
		return nil, &adt.ValidationError{Ref: ref, Err: err}
	}

	result, err := xmlcodec.ParseValidationResult(resp.Body)
	if err != nil {
		return nil, &adt.ValidationError{Ref: ref, Err: err}
	}
	if result.HasFatal() {
		return result, &adt.ValidationError{Ref: ref, Messages: result.Messages}
	}
	return result, nil
}

// Check runs the server-side syntax/consistency check for ref. When source
// is non-nil, the submitted text is embedded in the checkrun payload and the
// reporter checks it instead of the server's stored version.
func (r *Runner) Check(ctx context.Context, ref adt.ObjectRef, version xmlcodec.CheckVersion, source []byte) (*adt.CheckResult, error) {
	query := url.Values{}
	query.Set("reporters", "abapCheckRun")

	req := &transport.Request{
		Method:  http.MethodPost,
		URL:     checkrunsURI,
		Query:   query,
		Body:    xmlcodec.BuildCheckObjectList(ref, version, source),
		Timeout: transport.TimeoutDefault,
	}
	req.SetHeader("Content-Type", xmlMediaType)

	resp, err := r.tr.MakeADTRequest(ctx, req)
	if err != nil {
		return nil, &adt.ValidationError{Ref: ref, Err: err}
	}

	report, err := xmlcodec.ParseCheckReport(resp.Body)
	if err != nil {
		return nil, &adt.ValidationError{Ref: ref, Err: err}
	}
	if report.HasFatal() {
		return report, &adt.ValidationError{Ref: ref, Messages: report.Messages}
	}
	return report, nil
}

// Activate triggers activation of the referenced objects. Activation is an
// independent asynchronous server operation, not protected by any lock; it
// runs on the stateless session.
func (r *Runner) Activate(ctx context.Context, refs ...adt.ObjectRef) (*adt.ActivationResult, error) {
	query := url.Values{}
	query.Set("method", "activate")
	query.Set("preauditRequested", "true")

	req := &transport.Request{
		Method:  http.MethodPost,
		URL:     activationURI,
		Query:   query,
		Body:    xmlcodec.BuildObjectReferences(refs...),
		Timeout: transport.TimeoutDefault,
	}
	req.SetHeader("Content-Type", xmlMediaType)

	first := adt.ObjectRef{}
	if len(refs) > 0 {
		first = refs[0]
	}

	resp, err := r.tr.MakeADTRequest(ctx, req)
	if err != nil {
		return nil, &adt.ActivationError{Ref: first, Err: err}
	}

	result, err := xmlcodec.ParseActivationResult(resp.Body)
	if err != nil {
		return nil, &adt.ActivationError{Ref: first, Err: err}
	}
	if !result.ActivationExecuted && result.HasFatalMessage() {
		return result, &adt.ActivationError{Ref: first, Messages: result.Messages}
	}
	return result, nil
}

// collectionURI strips the object name off the URI, yielding the collection
// creation target.
func collectionURI(ref adt.ObjectRef) string {
	uri := ref.URI()
	for i := len(uri) - 1; i >= 0; i-- {
		if uri[i] == '/' {
			return uri[:i]
		}
	}
	return uri
}
