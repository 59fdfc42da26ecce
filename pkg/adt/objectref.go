package adt

import (
	"fmt"
	"net/url"
	"strings"
)

// ObjectRef identifies one server-side development object. It is immutable
// once created.
type ObjectRef struct {
	kind      Kind
	name      string
	container string
}

// NewObjectRef builds a reference to a top-level object.
func NewObjectRef(kind Kind, name string) (ObjectRef, error) {
	return newRef(kind, name, "")
}

// NewContainedObjectRef builds a reference to an object living inside a
// container, e.g. a function module inside its function group.
func NewContainedObjectRef(kind Kind, name, container string) (ObjectRef, error) {
	return newRef(kind, name, container)
}

func newRef(kind Kind, name, container string) (ObjectRef, error) {
	if !kind.Known() {
		return ObjectRef{}, fmt.Errorf("unknown object kind %q", string(kind))
	}
	if name == "" {
		return ObjectRef{}, fmt.Errorf("object name cannot be empty")
	}
	if kind.NeedsContainer() && container == "" {
		return ObjectRef{}, fmt.Errorf("object kind %q requires a container name", string(kind))
	}
	if !kind.NeedsContainer() && container != "" {
		return ObjectRef{}, fmt.Errorf("object kind %q does not take a container name", string(kind))
	}

	return ObjectRef{kind: kind, name: name, container: container}, nil
}

func (r ObjectRef) Kind() Kind        { return r.kind }
func (r ObjectRef) Name() string      { return r.name }
func (r ObjectRef) Container() string { return r.container }

// URI returns the object's resource path. Names are lower-cased and
// percent-encoded, matching how ADT addresses objects.
func (r ObjectRef) URI() string {
	info := kinds[r.kind]
	var b strings.Builder
	b.WriteString(info.baseURI)
	if r.container != "" {
		b.WriteByte('/')
		b.WriteString(encodeName(r.container))
		b.WriteString("/fmodules")
	}
	b.WriteByte('/')
	b.WriteString(encodeName(r.name))
	return b.String()
}

// SourceURI returns the path of the object's main source, or the object URI
// itself for kinds that have no separate source resource.
func (r ObjectRef) SourceURI() string {
	if !r.kind.HasSource() {
		return r.URI()
	}
	return r.URI() + "/source/main"
}

func (r ObjectRef) String() string {
	if r.container != "" {
		return fmt.Sprintf("%s %s/%s", string(r.kind), r.container, r.name)
	}
	return fmt.Sprintf("%s %s", string(r.kind), r.name)
}

func encodeName(name string) string {
	return url.PathEscape(strings.ToLower(name))
}
