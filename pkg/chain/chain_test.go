package chain_test

import (
	"encoding/base64"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/fr0ster/mcp-abap-adt-clients-sub007/pkg/adt"
	"github.com/fr0ster/mcp-abap-adt-clients-sub007/pkg/chain"
	"github.com/fr0ster/mcp-abap-adt-clients-sub007/pkg/lockreg"
	"github.com/fr0ster/mcp-abap-adt-clients-sub007/pkg/testutil"
	"github.com/fr0ster/mcp-abap-adt-clients-sub007/pkg/transport"
)

const testLockHandle = "4711AFFE"

var lockResponseBody = []byte(`<?xml version="1.0" encoding="utf-8"?>` +
	`<asx:abap xmlns:asx="http://www.sap.com/abapxml" version="1.0"><asx:values><DATA>` +
	`<LOCK_HANDLE>` + testLockHandle + `</LOCK_HANDLE>` +
	`<CORRNR>K900042</CORRNR><CORRUSER>DEVELOPER</CORRUSER><CORRTEXT>test request</CORRTEXT>` +
	`</DATA></asx:values></asx:abap>`)

var activationOkBody = []byte(`<?xml version="1.0" encoding="utf-8"?>` +
	`<chkl:messages xmlns:chkl="http://www.sap.com/abapxml/checklist">` +
	`<chkl:properties activationExecuted="true" checkExecuted="X"/></chkl:messages>`)

func classRef(t *testing.T) adt.ObjectRef {
	t.Helper()
	ref, err := adt.NewObjectRef(adt.KindClass, "ZCL_CHAIN_DEMO")
	require.NoError(t, err)
	return ref
}

// scriptedTransport routes calls by their _action query parameter and URL,
// matching how a real system dispatches lock/unlock/update/activation.
func scriptedTransport(overrides map[string]func(req *transport.Request) (*transport.Response, error)) *testutil.MockTransport {
	mock := testutil.NewMockTransport()
	mock.Responder = func(call int, req *transport.Request) (*transport.Response, error) {
		step := stepOf(req)
		if override, ok := overrides[step]; ok {
			return override(req)
		}
		switch step {
		case "lock":
			return &transport.Response{Status: http.StatusOK, Body: lockResponseBody}, nil
		case "activate":
			return &transport.Response{Status: http.StatusOK, Body: activationOkBody}, nil
		default:
			return &transport.Response{Status: http.StatusOK}, nil
		}
	}
	return mock
}

func stepOf(req *transport.Request) string {
	switch req.Query.Get("_action") {
	case "LOCK":
		return "lock"
	case "UNLOCK":
		return "unlock"
	}
	if req.URL == "/sap/bc/adt/activation" {
		return "activate"
	}
	if req.URL == "/sap/bc/adt/checkruns" {
		return "check"
	}
	if strings.HasSuffix(req.URL, "/validation") {
		return "validate"
	}
	switch req.Method {
	case http.MethodPut:
		return "update"
	case http.MethodPost:
		return "create"
	case http.MethodDelete:
		return "delete"
	default:
		return "read"
	}
}

func TestUpdateChainHappyPath(t *testing.T) {
	t.Parallel()

	ctx, cancel := testutil.GetTestContext(t, 10*time.Second)
	defer cancel()

	mock := scriptedTransport(nil)
	runner := chain.New(mock, testutil.NewLogForTesting(t.Name()))
	ref := classRef(t)

	result, err := runner.Update(ctx, ref, []byte("CLASS zcl_chain_demo DEFINITION."), chain.MutateOptions{
		TransportRequest: "K900042",
		Activate:         true,
	})
	require.NoError(t, err)
	require.Empty(t, result.Errors)
	require.Equal(t, adt.LockHandle(testLockHandle), result.LockHandle)
	require.NotNil(t, result.Update)
	require.NotNil(t, result.Unlock)
	require.NotNil(t, result.Activation)
	require.True(t, result.Activation.ActivationExecuted)

	// Unlock happened exactly once, with the handle from the lock step.
	var unlocks []testutil.Call
	for _, c := range mock.Calls() {
		if c.Query.Get("_action") == "UNLOCK" {
			unlocks = append(unlocks, c)
		}
	}
	require.Len(t, unlocks, 1)
	require.Equal(t, testLockHandle, unlocks[0].Query.Get("lockHandle"))

	// The update ran under the lock, on the stateful session, with corrNr.
	var updates []testutil.Call
	for _, c := range mock.Calls() {
		if c.Method == http.MethodPut {
			updates = append(updates, c)
		}
	}
	require.Len(t, updates, 1)
	require.Equal(t, adt.SessionStateful, updates[0].Mode)
	require.Equal(t, testLockHandle, updates[0].Query.Get("lockHandle"))
	require.Equal(t, "K900042", updates[0].Query.Get("corrNr"))

	// Session mode ends stateless; activation ran outside the bracket.
	require.Equal(t, adt.SessionStateless, mock.Mode())
	for _, c := range mock.CallsTo("/sap/bc/adt/activation") {
		require.Equal(t, adt.SessionStateless, c.Mode)
	}
}

func TestUpdateChainFailedMutationStillUnlocks(t *testing.T) {
	t.Parallel()

	ctx, cancel := testutil.GetTestContext(t, 10*time.Second)
	defer cancel()

	mock := scriptedTransport(map[string]func(req *transport.Request) (*transport.Response, error){
		"update": func(req *transport.Request) (*transport.Response, error) {
			return nil, &transport.HTTPError{Status: http.StatusBadRequest, Body: []byte("syntax error")}
		},
	})
	runner := chain.New(mock, testutil.NewLogForTesting(t.Name()))

	result, err := runner.Update(ctx, classRef(t), []byte("broken"), chain.MutateOptions{})
	require.Error(t, err)

	var mutationErr *adt.MutationError
	require.ErrorAs(t, err, &mutationErr)
	require.Equal(t, http.StatusBadRequest, adt.StatusOf(err))

	// The compensating unlock ran with the original handle and the overall
	// chain still reports the update failure.
	require.NotNil(t, result.Unlock)
	require.Empty(t, result.LockHandle)
	require.NotEmpty(t, result.Errors)
	require.Equal(t, "update", result.Errors[0].Step)

	var unlocks []testutil.Call
	for _, c := range mock.Calls() {
		if c.Query.Get("_action") == "UNLOCK" {
			unlocks = append(unlocks, c)
		}
	}
	require.Len(t, unlocks, 1)
	require.Equal(t, testLockHandle, unlocks[0].Query.Get("lockHandle"))

	require.Equal(t, adt.SessionStateless, mock.Mode())
}

func TestUpdateChainLockRejectedNeverUnlocks(t *testing.T) {
	t.Parallel()

	ctx, cancel := testutil.GetTestContext(t, 10*time.Second)
	defer cancel()

	mock := scriptedTransport(map[string]func(req *transport.Request) (*transport.Response, error){
		"lock": func(req *transport.Request) (*transport.Response, error) {
			return nil, &transport.HTTPError{Status: http.StatusForbidden, Body: []byte("locked by user OTHER")}
		},
	})
	runner := chain.New(mock, testutil.NewLogForTesting(t.Name()))

	result, err := runner.Update(ctx, classRef(t), []byte("text"), chain.MutateOptions{})
	require.Error(t, err)

	var lockErr *adt.LockError
	require.ErrorAs(t, err, &lockErr)
	require.True(t, adt.IsForeignLock(err))

	for _, c := range mock.Calls() {
		require.NotEqual(t, "UNLOCK", c.Query.Get("_action"))
	}
	require.Nil(t, result.Unlock)
	require.Empty(t, result.LockHandle)
	require.Equal(t, adt.SessionStateless, mock.Mode())
}

func TestUpdateChainUnlockFailureDoesNotMaskOriginalError(t *testing.T) {
	t.Parallel()

	ctx, cancel := testutil.GetTestContext(t, 10*time.Second)
	defer cancel()

	mock := scriptedTransport(map[string]func(req *transport.Request) (*transport.Response, error){
		"update": func(req *transport.Request) (*transport.Response, error) {
			return nil, &transport.HTTPError{Status: http.StatusInternalServerError, Body: []byte("boom")}
		},
		"unlock": func(req *transport.Request) (*transport.Response, error) {
			return nil, &transport.NetworkError{Err: errors.New("connection reset")}
		},
	})
	runner := chain.New(mock, testutil.NewLogForTesting(t.Name()))

	result, err := runner.Update(ctx, classRef(t), []byte("text"), chain.MutateOptions{})
	require.Error(t, err)

	// The update failure surfaces; the unlock failure is only recorded.
	var mutationErr *adt.MutationError
	require.ErrorAs(t, err, &mutationErr)
	require.Equal(t, "update", mutationErr.Step)

	steps := make([]string, 0, len(result.Errors))
	for _, stepErr := range result.Errors {
		steps = append(steps, stepErr.Step)
	}
	require.Contains(t, steps, "unlock")

	// Session mode is forced back to stateless even though unlock failed.
	require.Equal(t, adt.SessionStateless, mock.Mode())
}

func TestUpdateChainActivationFailureSurfaces(t *testing.T) {
	t.Parallel()

	ctx, cancel := testutil.GetTestContext(t, 10*time.Second)
	defer cancel()

	activationFailedBody := []byte(`<?xml version="1.0" encoding="utf-8"?>` +
		`<chkl:messages xmlns:chkl="http://www.sap.com/abapxml/checklist">` +
		`<msg objDescr="ZCL_CHAIN_DEMO" type="E"><shortText><txt>Method FOO does not exist</txt></shortText></msg>` +
		`<chkl:properties activationExecuted="" checkExecuted="true"/></chkl:messages>`)
	mock := scriptedTransport(map[string]func(req *transport.Request) (*transport.Response, error){
		"activate": func(req *transport.Request) (*transport.Response, error) {
			return &transport.Response{Status: http.StatusOK, Body: activationFailedBody}, nil
		},
	})
	runner := chain.New(mock, testutil.NewLogForTesting(t.Name()))

	result, err := runner.Update(ctx, classRef(t), []byte("text"), chain.MutateOptions{Activate: true})
	require.Error(t, err)

	var activationErr *adt.ActivationError
	require.ErrorAs(t, err, &activationErr)
	require.Contains(t, activationErr.Messages[0].Text, "Method FOO does not exist")

	// The lock was already released before activation; no extra unlock runs.
	var unlocks int
	for _, c := range mock.Calls() {
		if c.Query.Get("_action") == "UNLOCK" {
			unlocks++
		}
	}
	require.Equal(t, 1, unlocks)
	require.NotNil(t, result.Unlock)
}

func TestUpdateChainFatalCheckAbortsBeforeMutation(t *testing.T) {
	t.Parallel()

	ctx, cancel := testutil.GetTestContext(t, 10*time.Second)
	defer cancel()

	checkFailedBody := []byte(`<?xml version="1.0" encoding="utf-8"?>` +
		`<chkrun:checkRunReports xmlns:chkrun="http://www.sap.com/adt/checkrun">` +
		`<chkrun:checkReport><chkrun:checkMessageList>` +
		`<chkrun:checkMessage chkrun:uri="/sap/bc/adt/oo/classes/zcl_chain_demo" chkrun:type="E" chkrun:shortText="Field BAR is unknown"/>` +
		`</chkrun:checkMessageList></chkrun:checkReport></chkrun:checkRunReports>`)
	mock := scriptedTransport(map[string]func(req *transport.Request) (*transport.Response, error){
		"check": func(req *transport.Request) (*transport.Response, error) {
			return &transport.Response{Status: http.StatusOK, Body: checkFailedBody}, nil
		},
	})
	runner := chain.New(mock, testutil.NewLogForTesting(t.Name()))

	result, err := runner.Update(ctx, classRef(t), []byte("text"), chain.MutateOptions{Check: true})
	require.Error(t, err)

	var validationErr *adt.ValidationError
	require.ErrorAs(t, err, &validationErr)
	require.Contains(t, validationErr.Messages[0].Text, "Field BAR is unknown")
	require.NotNil(t, result.Check)
	require.True(t, result.Check.HasFatal())

	// The mutation never ran; the compensating unlock did.
	var unlocks int
	for _, c := range mock.Calls() {
		require.NotEqual(t, http.MethodPut, c.Method)
		if c.Query.Get("_action") == "UNLOCK" {
			unlocks++
		}
	}
	require.Equal(t, 1, unlocks)
	require.Nil(t, result.Update)
	require.Equal(t, adt.SessionStateless, mock.Mode())
}

func TestUpdateChainConfirmationFailureIsSwallowed(t *testing.T) {
	t.Parallel()

	ctx, cancel := testutil.GetTestContext(t, 10*time.Second)
	defer cancel()

	mock := scriptedTransport(map[string]func(req *transport.Request) (*transport.Response, error){
		"read": func(req *transport.Request) (*transport.Response, error) {
			return nil, &transport.HTTPError{Status: http.StatusServiceUnavailable}
		},
	})
	runner := chain.New(mock, testutil.NewLogForTesting(t.Name()))

	result, err := runner.Update(ctx, classRef(t), []byte("text"), chain.MutateOptions{
		Activate: true,
		Confirm:  true,
	})
	require.NoError(t, err)
	require.NotNil(t, result.Activation)

	// The confirmation read went out with long polling enabled.
	var confirms []testutil.Call
	for _, c := range mock.Calls() {
		if c.Method == http.MethodGet {
			confirms = append(confirms, c)
		}
	}
	require.Len(t, confirms, 1)
	require.Equal(t, "true", confirms[0].Query.Get("withLongPolling"))
}

func TestUpdateBypassSkipsBracket(t *testing.T) {
	t.Parallel()

	ctx, cancel := testutil.GetTestContext(t, 10*time.Second)
	defer cancel()

	mock := scriptedTransport(nil)
	runner := chain.New(mock, testutil.NewLogForTesting(t.Name()))

	result, err := runner.Update(ctx, classRef(t), []byte("text"), chain.MutateOptions{
		Bypass: adt.Locked("EXTERNAL_HANDLE"),
	})
	require.NoError(t, err)
	require.NotNil(t, result.Update)

	calls := mock.Calls()
	require.Len(t, calls, 1)
	require.Equal(t, http.MethodPut, calls[0].Method)
	require.Equal(t, "EXTERNAL_HANDLE", calls[0].Query.Get("lockHandle"))
	require.Empty(t, mock.ModeChanges())
}

func TestCreateChainPopulatesAllResults(t *testing.T) {
	t.Parallel()

	ctx, cancel := testutil.GetTestContext(t, 10*time.Second)
	defer cancel()

	mock := scriptedTransport(nil)
	runner := chain.New(mock, testutil.NewLogForTesting(t.Name()))
	ref := classRef(t)

	result, err := runner.Create(ctx, ref, []byte("<payload/>"), chain.CreateOptions{
		TransportRequest: "K900042",
		Source:           []byte("CLASS zcl_chain_demo DEFINITION."),
		Activate:         true,
	})
	require.NoError(t, err)
	require.Empty(t, result.Errors)
	require.NotNil(t, result.Create)
	require.Equal(t, adt.LockHandle(testLockHandle), result.LockHandle)
	require.NotNil(t, result.Update)
	require.NotNil(t, result.Unlock)
	require.NotNil(t, result.Activation)

	// Creation targets the collection URI and happens before the lock.
	calls := mock.Calls()
	require.Equal(t, "/sap/bc/adt/oo/classes", calls[0].URL)
	require.Equal(t, http.MethodPost, calls[0].Method)
	require.Equal(t, "LOCK", calls[1].Query.Get("_action"))
}

func TestChainKeepsRegistryInSyncWithLock(t *testing.T) {
	t.Parallel()

	ctx, cancel := testutil.GetTestContext(t, 10*time.Second)
	defer cancel()

	registry, err := lockreg.NewFileRegistry(t.TempDir())
	require.NoError(t, err)

	// Fail the update so the registry state can be observed after cleanup.
	var mock *testutil.MockTransport
	mock = scriptedTransport(map[string]func(req *transport.Request) (*transport.Response, error){
		"update": func(req *transport.Request) (*transport.Response, error) {
			entries, listErr := registry.List(ctx)
			require.NoError(t, listErr)
			require.Len(t, entries, 1, "registry entry must exist while the lock is held")
			require.Equal(t, testLockHandle, entries[0].LockHandle)
			require.Equal(t, mock.SessionID(), entries[0].SessionID)
			return nil, &transport.HTTPError{Status: http.StatusBadRequest}
		},
	})

	runner := chain.New(mock, testutil.NewLogForTesting(t.Name()), chain.WithRegistry(registry))
	_, err = runner.Update(ctx, classRef(t), []byte("text"), chain.MutateOptions{})
	require.Error(t, err)

	// Cleanup unlock succeeded, so the entry is gone again.
	entries, err := registry.List(ctx)
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestChainLeavesRegistryEntryWhenUnlockFails(t *testing.T) {
	t.Parallel()

	ctx, cancel := testutil.GetTestContext(t, 10*time.Second)
	defer cancel()

	registry, err := lockreg.NewFileRegistry(t.TempDir())
	require.NoError(t, err)

	mock := scriptedTransport(map[string]func(req *transport.Request) (*transport.Response, error){
		"update": func(req *transport.Request) (*transport.Response, error) {
			return nil, &transport.HTTPError{Status: http.StatusBadRequest}
		},
		"unlock": func(req *transport.Request) (*transport.Response, error) {
			return nil, &transport.NetworkError{Err: errors.New("connection lost")}
		},
	})

	runner := chain.New(mock, testutil.NewLogForTesting(t.Name()), chain.WithRegistry(registry))
	_, err = runner.Update(ctx, classRef(t), []byte("text"), chain.MutateOptions{})
	require.Error(t, err)

	// The lock may still be held server-side; the entry must survive for
	// the recovery tool.
	entries, err := registry.List(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, testLockHandle, entries[0].LockHandle)
}

func TestDeleteChainRunsUnderLock(t *testing.T) {
	t.Parallel()

	ctx, cancel := testutil.GetTestContext(t, 10*time.Second)
	defer cancel()

	mock := scriptedTransport(nil)
	runner := chain.New(mock, testutil.NewLogForTesting(t.Name()))

	result, err := runner.Delete(ctx, classRef(t), chain.MutateOptions{TransportRequest: "K900042"})
	require.NoError(t, err)
	require.NotNil(t, result.Delete)
	require.NotNil(t, result.Unlock)

	var deletes []testutil.Call
	for _, c := range mock.Calls() {
		if c.Method == http.MethodDelete {
			deletes = append(deletes, c)
		}
	}
	require.Len(t, deletes, 1)
	require.Equal(t, testLockHandle, deletes[0].Query.Get("lockHandle"))
	require.Equal(t, adt.SessionStateful, deletes[0].Mode)
	require.Equal(t, adt.SessionStateless, mock.Mode())
}

// TestUpdatedSourceRoundTrips exercises the full cycle against a mock that
// keeps source state: written text becomes the active version once activation
// has run and comes back byte for byte on an active-version read.
func TestUpdatedSourceRoundTrips(t *testing.T) {
	t.Parallel()

	ctx, cancel := testutil.GetTestContext(t, 10*time.Second)
	defer cancel()

	var inactive, active []byte
	mock := scriptedTransport(map[string]func(req *transport.Request) (*transport.Response, error){
		"update": func(req *transport.Request) (*transport.Response, error) {
			inactive = append([]byte(nil), req.Body...)
			return &transport.Response{Status: http.StatusOK}, nil
		},
		"activate": func(req *transport.Request) (*transport.Response, error) {
			active = inactive
			return &transport.Response{Status: http.StatusOK, Body: activationOkBody}, nil
		},
		"read": func(req *transport.Request) (*transport.Response, error) {
			if req.Query.Get("version") == "active" {
				return &transport.Response{Status: http.StatusOK, Body: active}, nil
			}
			return &transport.Response{Status: http.StatusOK, Body: inactive}, nil
		},
	})
	runner := chain.New(mock, testutil.NewLogForTesting(t.Name()))
	ref := classRef(t)

	source := []byte("CLASS zcl_chain_demo DEFINITION. \"UPDATED_MARKER\nENDCLASS.")
	_, err := runner.Update(ctx, ref, source, chain.MutateOptions{Activate: true})
	require.NoError(t, err)

	got, err := runner.ReadSource(ctx, ref, chain.ReadOptions{Version: chain.VersionActive})
	require.NoError(t, err)
	require.Equal(t, source, got)
	require.Contains(t, string(got), "UPDATED_MARKER")
}

// TestUpdateChainCheckInspectsSubmittedSource pins down that the pre-write
// check carries the new source text, not just a pointer at whatever the
// server currently stores.
func TestUpdateChainCheckInspectsSubmittedSource(t *testing.T) {
	t.Parallel()

	ctx, cancel := testutil.GetTestContext(t, 10*time.Second)
	defer cancel()

	mock := scriptedTransport(nil)
	runner := chain.New(mock, testutil.NewLogForTesting(t.Name()))

	source := []byte("CLASS zcl_chain_demo DEFINITION. \"NEW_CONTENT_MARKER\nENDCLASS.")
	_, err := runner.Update(ctx, classRef(t), source, chain.MutateOptions{Check: true})
	require.NoError(t, err)

	var steps []string
	var checkBody string
	for _, c := range mock.Calls() {
		step := stepOf(&transport.Request{Method: c.Method, URL: c.URL, Query: c.Query})
		steps = append(steps, step)
		if step == "check" {
			checkBody = string(c.Body)
		}
	}
	require.Equal(t, []string{"lock", "check", "update", "unlock"}, steps)
	require.Contains(t, checkBody, base64.StdEncoding.EncodeToString(source))
}

func TestCreateChainValidationRejectionStopsChain(t *testing.T) {
	t.Parallel()

	ctx, cancel := testutil.GetTestContext(t, 10*time.Second)
	defer cancel()

	rejectionBody := []byte(`<?xml version="1.0" encoding="utf-8"?>` +
		`<asx:abap xmlns:asx="http://www.sap.com/abapxml" version="1.0"><asx:values><DATA>` +
		`<SEVERITY>E</SEVERITY><SHORT_TEXT>Object ZCL_CHAIN_DEMO already exists</SHORT_TEXT>` +
		`</DATA></asx:values></asx:abap>`)
	mock := scriptedTransport(map[string]func(req *transport.Request) (*transport.Response, error){
		"validate": func(req *transport.Request) (*transport.Response, error) {
			return &transport.Response{Status: http.StatusOK, Body: rejectionBody}, nil
		},
	})
	runner := chain.New(mock, testutil.NewLogForTesting(t.Name()))

	result, err := runner.Create(ctx, classRef(t), []byte("<payload/>"), chain.CreateOptions{
		Validate:    true,
		Description: "demo class",
		Package:     "ZTEST_PKG",
	})
	require.Error(t, err)

	var validationErr *adt.ValidationError
	require.ErrorAs(t, err, &validationErr)
	require.Contains(t, validationErr.Messages[0].Text, "already exists")
	require.NotNil(t, result.Validation)
	require.True(t, result.Validation.HasFatal())

	// Nothing was created or locked; there was nothing to clean up.
	calls := mock.Calls()
	require.Len(t, calls, 1)
	require.Equal(t, "/sap/bc/adt/oo/classes/validation", calls[0].URL)
	require.Equal(t, "ZCL_CHAIN_DEMO", calls[0].Query.Get("objname"))
	require.Equal(t, "ZTEST_PKG", calls[0].Query.Get("packagename"))
	require.Empty(t, mock.ModeChanges())
	require.Nil(t, result.Create)
	require.Empty(t, result.LockHandle)
}

func TestCreateChainValidationPassPopulatesResult(t *testing.T) {
	t.Parallel()

	ctx, cancel := testutil.GetTestContext(t, 10*time.Second)
	defer cancel()

	mock := scriptedTransport(nil)
	runner := chain.New(mock, testutil.NewLogForTesting(t.Name()))

	result, err := runner.Create(ctx, classRef(t), []byte("<payload/>"), chain.CreateOptions{
		Validate:    true,
		Description: "demo class",
		Package:     "ZTEST_PKG",
	})
	require.NoError(t, err)
	require.NotNil(t, result.Validation)
	require.False(t, result.Validation.HasFatal())
	require.NotNil(t, result.Create)

	// Validation ran first, against the collection's validation resource.
	calls := mock.Calls()
	require.Equal(t, "/sap/bc/adt/oo/classes/validation", calls[0].URL)
	require.Equal(t, "/sap/bc/adt/oo/classes", calls[1].URL)
}

// Reading twice without an intervening mutation returns identical content.
func TestConsecutiveReadsReturnIdenticalContent(t *testing.T) {
	t.Parallel()

	ctx, cancel := testutil.GetTestContext(t, 10*time.Second)
	defer cancel()

	stored := []byte("CLASS zcl_chain_demo DEFINITION.\nENDCLASS.")
	mock := scriptedTransport(map[string]func(req *transport.Request) (*transport.Response, error){
		"read": func(req *transport.Request) (*transport.Response, error) {
			return &transport.Response{Status: http.StatusOK, Body: append([]byte(nil), stored...)}, nil
		},
	})
	runner := chain.New(mock, testutil.NewLogForTesting(t.Name()))
	ref := classRef(t)

	first, err := runner.ReadSource(ctx, ref, chain.ReadOptions{Version: chain.VersionActive})
	require.NoError(t, err)
	second, err := runner.ReadSource(ctx, ref, chain.ReadOptions{Version: chain.VersionActive})
	require.NoError(t, err)
	require.Equal(t, first, second)
	require.Len(t, mock.Calls(), 2)
}

type countingObserver struct {
	acquired int
	released int
	cleanups int
}

func (o *countingObserver) LockAcquired(adt.ObjectRef) { o.acquired++ }

func (o *countingObserver) LockReleased(ref adt.ObjectRef, cleanup bool) {
	o.released++
	if cleanup {
		o.cleanups++
	}
}

// A failed unlock must not count as a release.
func TestObserverSeesOnlySuccessfulReleases(t *testing.T) {
	t.Parallel()

	ctx, cancel := testutil.GetTestContext(t, 10*time.Second)
	defer cancel()

	obs := &countingObserver{}
	mock := scriptedTransport(map[string]func(req *transport.Request) (*transport.Response, error){
		"unlock": func(req *transport.Request) (*transport.Response, error) {
			return nil, &transport.NetworkError{Err: errors.New("connection lost")}
		},
	})
	runner := chain.New(mock, testutil.NewLogForTesting(t.Name()), chain.WithObserver(obs))

	_, err := runner.Update(ctx, classRef(t), []byte("text"), chain.MutateOptions{})
	require.Error(t, err)
	require.Equal(t, 1, obs.acquired)
	require.Zero(t, obs.released)

	happyMock := scriptedTransport(nil)
	happyRunner := chain.New(happyMock, testutil.NewLogForTesting(t.Name()), chain.WithObserver(obs))
	_, err = happyRunner.Update(ctx, classRef(t), []byte("text"), chain.MutateOptions{})
	require.NoError(t, err)
	require.Equal(t, 1, obs.released)
	require.Zero(t, obs.cleanups)
}
