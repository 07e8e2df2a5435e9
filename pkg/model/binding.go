package model

import "github.com/vango-dev/dragula/pkg/vdom"

// Binding ties a container node to the list that backs it.
type Binding struct {
	Container *vdom.VNode
	Model     *List
}

// Bindings is the set of model bindings attached to one drag engine.
type Bindings []Binding

// Lookup returns the binding whose container is the very same node as
// container. Matching is by identity: two structurally equal containers are
// different capabilities.
func (b Bindings) Lookup(container *vdom.VNode) (Binding, bool) {
	if container == nil {
		return Binding{}, false
	}
	for _, binding := range b {
		if binding.Container == container {
			return binding, true
		}
	}
	return Binding{}, false
}

// Resolve returns the list bound to container, or nil when the container
// has no model binding.
func (b Bindings) Resolve(container *vdom.VNode) *List {
	binding, ok := b.Lookup(container)
	if !ok {
		return nil
	}
	return binding.Model
}

// Containers returns the bound containers in binding order.
func (b Bindings) Containers() []*vdom.VNode {
	out := make([]*vdom.VNode, 0, len(b))
	for _, binding := range b {
		out = append(out, binding.Container)
	}
	return out
}
