// Package objects exposes CRUD and lifecycle operations per ADT object type.
// Every type is a thin, mechanical layer over the chain runner: build the
// object reference, render the payload, run the chain.
package objects

import (
	"context"

	"github.com/go-logr/logr"

	"github.com/fr0ster/mcp-abap-adt-clients-sub007/pkg/adt"
	"github.com/fr0ster/mcp-abap-adt-clients-sub007/pkg/chain"
	"github.com/fr0ster/mcp-abap-adt-clients-sub007/pkg/transport"
	"github.com/fr0ster/mcp-abap-adt-clients-sub007/pkg/xmlcodec"
)

// Client is the entry point to the per-type object services. One Client
// owns one chain runner and therefore one transport; see the transport
// package for the session-sharing caveat.
type Client struct {
	runner *chain.Runner
}

func NewClient(tr transport.Transport, log logr.Logger, opts ...chain.Option) *Client {
	return &Client{runner: chain.New(tr, log, opts...)}
}

// Runner exposes the underlying chain runner for callers that need the
// low-level lock/unlock primitives, e.g. recovery tooling.
func (c *Client) Runner() *chain.Runner { return c.runner }

func (c *Client) Classes() *Classes       { return &Classes{service{c.runner, adt.KindClass}} }
func (c *Client) Interfaces() *Interfaces { return &Interfaces{service{c.runner, adt.KindInterface}} }
func (c *Client) Programs() *Programs     { return &Programs{service{c.runner, adt.KindProgram}} }
func (c *Client) Includes() *Includes     { return &Includes{service{c.runner, adt.KindInclude}} }
func (c *Client) FunctionGroups() *FunctionGroups {
	return &FunctionGroups{service{c.runner, adt.KindFunctionGroup}}
}

// FunctionModules returns the service for function modules inside the given
// function group.
func (c *Client) FunctionModules(group string) *FunctionModules {
	return &FunctionModules{service: service{c.runner, adt.KindFunctionModule}, group: group}
}

func (c *Client) Tables() *Tables         { return &Tables{service{c.runner, adt.KindTable}} }
func (c *Client) Structures() *Structures { return &Structures{service{c.runner, adt.KindStructure}} }
func (c *Client) Views() *Views           { return &Views{service{c.runner, adt.KindView}} }
func (c *Client) AccessControls() *AccessControls {
	return &AccessControls{service{c.runner, adt.KindAccessControl}}
}
func (c *Client) MetadataExtensions() *MetadataExtensions {
	return &MetadataExtensions{service{c.runner, adt.KindMetadataExtension}}
}
func (c *Client) TableTypes() *TableTypes { return &TableTypes{service{c.runner, adt.KindTableType}} }
func (c *Client) Domains() *Domains       { return &Domains{service{c.runner, adt.KindDomain}} }
func (c *Client) DataElements() *DataElements {
	return &DataElements{service{c.runner, adt.KindDataElement}}
}
func (c *Client) Packages() *Packages { return &Packages{service{c.runner, adt.KindPackage}} }
func (c *Client) MessageClasses() *MessageClasses {
	return &MessageClasses{service{c.runner, adt.KindMessageClass}}
}
func (c *Client) Transformations() *Transformations {
	return &Transformations{service{c.runner, adt.KindTransformation}}
}
func (c *Client) BehaviorDefinitions() *BehaviorDefinitions {
	return &BehaviorDefinitions{service{c.runner, adt.KindBehaviorDefinition}}
}
func (c *Client) ServiceDefinitions() *ServiceDefinitions {
	return &ServiceDefinitions{service{c.runner, adt.KindServiceDefinition}}
}

// CreateRequest carries everything needed to create one object.
type CreateRequest struct {
	Description      string
	Package          string
	Responsible      string
	TransportRequest string
	// Validate asks the server to validate the object name before creation.
	Validate bool
	// Source is the initial source text for source-based kinds.
	Source []byte
	// Activate triggers activation once creation (and the initial source
	// upload, when given) succeeded.
	Activate bool
	Confirm  bool
}

// UpdateRequest carries the options of a source update chain.
type UpdateRequest struct {
	TransportRequest string
	Check            bool
	Activate         bool
	Confirm          bool
	// Lock supplies an externally managed lock handle; when locked, the
	// chain's lock/unlock bracket is skipped entirely.
	Lock adt.LockState
}

// DeleteRequest carries the options of a deletion chain.
type DeleteRequest struct {
	TransportRequest string
	Lock             adt.LockState
}

// service implements the shared operation set; the per-kind types embed it.
type service struct {
	runner *chain.Runner
	kind   adt.Kind
}

func (s *service) ref(name string) (adt.ObjectRef, error) {
	return adt.NewObjectRef(s.kind, name)
}

// Create creates the object and optionally uploads source and activates.
func (s *service) Create(ctx context.Context, name string, req CreateRequest) (*adt.OperationResult, error) {
	ref, err := s.ref(name)
	if err != nil {
		return nil, err
	}
	payload := xmlcodec.BuildCreatePayload(ref, xmlcodec.CreateSpec{
		Description: req.Description,
		Package:     req.Package,
		Responsible: req.Responsible,
	})
	return s.runner.Create(ctx, ref, payload, chain.CreateOptions{
		TransportRequest: req.TransportRequest,
		Validate:         req.Validate,
		Description:      req.Description,
		Package:          req.Package,
		Source:           req.Source,
		Activate:         req.Activate,
		Confirm:          req.Confirm,
	})
}

// Read fetches the object metadata. For a missing object the returned error
// satisfies adt.IsNotFound.
func (s *service) Read(ctx context.Context, name string, opts chain.ReadOptions) ([]byte, error) {
	ref, err := s.ref(name)
	if err != nil {
		return nil, err
	}
	return s.runner.ReadObject(ctx, ref, opts)
}

// ReadSource fetches the main source text.
func (s *service) ReadSource(ctx context.Context, name string, opts chain.ReadOptions) ([]byte, error) {
	ref, err := s.ref(name)
	if err != nil {
		return nil, err
	}
	return s.runner.ReadSource(ctx, ref, opts)
}

// Update runs the locked update chain with the new source text.
func (s *service) Update(ctx context.Context, name string, source []byte, req UpdateRequest) (*adt.OperationResult, error) {
	ref, err := s.ref(name)
	if err != nil {
		return nil, err
	}
	return s.runner.Update(ctx, ref, source, chain.MutateOptions{
		TransportRequest: req.TransportRequest,
		Check:            req.Check,
		Activate:         req.Activate,
		Confirm:          req.Confirm,
		Bypass:           req.Lock,
	})
}

// Delete runs the locked deletion chain.
func (s *service) Delete(ctx context.Context, name string, req DeleteRequest) (*adt.OperationResult, error) {
	ref, err := s.ref(name)
	if err != nil {
		return nil, err
	}
	return s.runner.Delete(ctx, ref, chain.MutateOptions{
		TransportRequest: req.TransportRequest,
		Bypass:           req.Lock,
	})
}

// Check runs the server-side check of the inactive version as stored on the
// server. Checking not-yet-submitted source is the update chain's job.
func (s *service) Check(ctx context.Context, name string) (*adt.CheckResult, error) {
	ref, err := s.ref(name)
	if err != nil {
		return nil, err
	}
	return s.runner.Check(ctx, ref, xmlcodec.CheckVersionInactive, nil)
}

// Activate activates the object outside any chain.
func (s *service) Activate(ctx context.Context, name string) (*adt.ActivationResult, error) {
	ref, err := s.ref(name)
	if err != nil {
		return nil, err
	}
	return s.runner.Activate(ctx, ref)
}

// Lock acquires a lock outside a chain. The caller owns the returned state
// and must pass it to Unlock; the transport must be switched to stateful by
// the caller for the lock to be usable.
func (s *service) Lock(ctx context.Context, name string) (adt.LockState, error) {
	ref, err := s.ref(name)
	if err != nil {
		return adt.Unlocked(), err
	}
	state, _, err := s.runner.Lock(ctx, ref)
	return state, err
}

// Unlock releases a lock obtained via Lock.
func (s *service) Unlock(ctx context.Context, name string, state adt.LockState) error {
	ref, err := s.ref(name)
	if err != nil {
		return err
	}
	_, err = s.runner.Unlock(ctx, ref, state)
	return err
}
