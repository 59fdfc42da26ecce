package objects

import (
	"context"

	"github.com/fr0ster/mcp-abap-adt-clients-sub007/pkg/adt"
	"github.com/fr0ster/mcp-abap-adt-clients-sub007/pkg/chain"
	"github.com/fr0ster/mcp-abap-adt-clients-sub007/pkg/xmlcodec"
)

// The per-kind services. Most are the shared operation set verbatim; types
// exist so call sites read naturally and kind-specific operations have a
// home.

type Classes struct{ service }
type Interfaces struct{ service }
type Programs struct{ service }
type Includes struct{ service }
type FunctionGroups struct{ service }
type Tables struct{ service }
type Structures struct{ service }
type Views struct{ service }
type AccessControls struct{ service }
type MetadataExtensions struct{ service }
type TableTypes struct{ service }
type Domains struct{ service }
type DataElements struct{ service }
type Packages struct{ service }
type MessageClasses struct{ service }
type Transformations struct{ service }
type BehaviorDefinitions struct{ service }
type ServiceDefinitions struct{ service }

// FunctionModules addresses function modules inside one function group.
type FunctionModules struct {
	service
	group string
}

func (s *FunctionModules) ref(name string) (adt.ObjectRef, error) {
	return adt.NewContainedObjectRef(adt.KindFunctionModule, name, s.group)
}

func (s *FunctionModules) Create(ctx context.Context, name string, req CreateRequest) (*adt.OperationResult, error) {
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

func (s *FunctionModules) Read(ctx context.Context, name string, opts chain.ReadOptions) ([]byte, error) {
	ref, err := s.ref(name)
	if err != nil {
		return nil, err
	}
	return s.runner.ReadObject(ctx, ref, opts)
}

func (s *FunctionModules) ReadSource(ctx context.Context, name string, opts chain.ReadOptions) ([]byte, error) {
	ref, err := s.ref(name)
	if err != nil {
		return nil, err
	}
	return s.runner.ReadSource(ctx, ref, opts)
}

func (s *FunctionModules) Update(ctx context.Context, name string, source []byte, req UpdateRequest) (*adt.OperationResult, error) {
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

func (s *FunctionModules) Delete(ctx context.Context, name string, req DeleteRequest) (*adt.OperationResult, error) {
	ref, err := s.ref(name)
	if err != nil {
		return nil, err
	}
	return s.runner.Delete(ctx, ref, chain.MutateOptions{
		TransportRequest: req.TransportRequest,
		Bypass:           req.Lock,
	})
}

func (s *FunctionModules) Check(ctx context.Context, name string) (*adt.CheckResult, error) {
	ref, err := s.ref(name)
	if err != nil {
		return nil, err
	}
	return s.runner.Check(ctx, ref, xmlcodec.CheckVersionInactive, nil)
}

func (s *FunctionModules) Activate(ctx context.Context, name string) (*adt.ActivationResult, error) {
	ref, err := s.ref(name)
	if err != nil {
		return nil, err
	}
	return s.runner.Activate(ctx, ref)
}

func (s *FunctionModules) Lock(ctx context.Context, name string) (adt.LockState, error) {
	ref, err := s.ref(name)
	if err != nil {
		return adt.Unlocked(), err
	}
	state, _, err := s.runner.Lock(ctx, ref)
	return state, err
}

func (s *FunctionModules) Unlock(ctx context.Context, name string, state adt.LockState) error {
	ref, err := s.ref(name)
	if err != nil {
		return err
	}
	_, err = s.runner.Unlock(ctx, ref, state)
	return err
}
