package board

import (
	"fmt"
	"reflect"

	"github.com/vango-dev/dragula/pkg/model"
	"github.com/vango-dev/dragula/pkg/vdom"
)

// RenderFunc builds the element for one model item.
type RenderFunc func(item any) *vdom.VNode

// Card is the default item type.
type Card struct {
	ID    string `json:"id" toml:"id"`
	Title string `json:"title" toml:"title"`
}

// CloneItem returns a copy of the card.
func (c *Card) CloneItem() any {
	cp := *c
	return &cp
}

// RenderItem is the default RenderFunc. Cards render as keyed <li> elements
// carrying data-id; anything else renders as its fmt text.
func RenderItem(item any) *vdom.VNode {
	switch v := item.(type) {
	case *Card:
		return vdom.Keyed(v.ID, vdom.El("li", vdom.Props{"data-id": v.ID}, v.Title))
	case Card:
		return vdom.Keyed(v.ID, vdom.El("li", vdom.Props{"data-id": v.ID}, v.Title))
	case fmt.Stringer:
		return vdom.El("li", v.String())
	default:
		return vdom.El("li", fmt.Sprint(v))
	}
}

// rendered pairs an item with the node drawn for it.
type rendered struct {
	item any
	node *vdom.VNode
}

// Column is a container node and the list that backs it.
type Column struct {
	Name      string
	Container *vdom.VNode
	Model     *model.List

	rendered []rendered
}

// Board owns a set of columns under one root node and redraws them from
// their models. Nodes are reused across renders while their item stays in
// the column, so HIDs the client holds remain valid.
type Board struct {
	Name string
	Root *vdom.VNode

	columns []*Column
	render  RenderFunc
	hids    *vdom.HIDGenerator
	index   *vdom.Index
}

// Option configures a Board.
type Option func(*Board)

// WithRenderer sets the item renderer.
func WithRenderer(fn RenderFunc) Option {
	return func(b *Board) {
		if fn != nil {
			b.render = fn
		}
	}
}

// WithHIDGenerator shares a HID generator with other trees.
func WithHIDGenerator(gen *vdom.HIDGenerator) Option {
	return func(b *Board) {
		if gen != nil {
			b.hids = gen
		}
	}
}

// New creates an empty board.
func New(name string, opts ...Option) *Board {
	b := &Board{
		Name:   name,
		Root:   vdom.El("div", vdom.Props{"data-board": name}),
		render: RenderItem,
		hids:   vdom.NewHIDGenerator(),
		index:  vdom.NewIndex(),
	}
	for _, opt := range opts {
		opt(b)
	}
	vdom.AssignHIDs(b.Root, b.hids)
	b.index.Add(b.Root)
	return b
}

// AddColumn creates a column seeded with items and renders it.
func (b *Board) AddColumn(name string, items ...any) *Column {
	c := &Column{
		Name:      name,
		Container: vdom.El("ul", vdom.Props{"data-column": name}),
		Model:     model.NewList(items...),
	}
	b.Root.AppendChild(c.Container)
	vdom.AssignHIDs(c.Container, b.hids)
	b.index.Add(c.Container)
	b.columns = append(b.columns, c)
	b.Render(c)
	return c
}

// Column returns the column named name, or nil.
func (b *Board) Column(name string) *Column {
	for _, c := range b.columns {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// Columns returns the columns in creation order.
func (b *Board) Columns() []*Column {
	return b.columns
}

// Bindings returns model bindings for the named columns, or for every column
// when no names are given. Unknown names are skipped.
func (b *Board) Bindings(names ...string) model.Bindings {
	cols := b.columns
	if len(names) > 0 {
		cols = nil
		for _, name := range names {
			if c := b.Column(name); c != nil {
				cols = append(cols, c)
			}
		}
	}
	out := make(model.Bindings, 0, len(cols))
	for _, c := range cols {
		out = append(out, model.Binding{Container: c.Container, Model: c.Model})
	}
	return out
}

// Lookup returns the node with the given HID, or nil.
func (b *Board) Lookup(hid string) *vdom.VNode {
	return b.index.Lookup(hid)
}

// Models returns a copy of every column's items keyed by column name.
func (b *Board) Models() map[string][]any {
	out := make(map[string][]any, len(b.columns))
	for _, c := range b.columns {
		out[c.Name] = c.Model.Items()
	}
	return out
}

// RenderAll redraws every column and returns the ones whose children changed.
func (b *Board) RenderAll() []*Column {
	var changed []*Column
	for _, c := range b.columns {
		if b.Render(c) {
			changed = append(changed, c)
		}
	}
	return changed
}

// Render redraws c from its model. It reports whether the container's
// element children differ from what it held before the call.
func (b *Board) Render(c *Column) bool {
	items := c.Model.Items()
	before := c.Container.ElementChildren()

	used := make([]bool, len(c.rendered))
	next := make([]rendered, 0, len(items))
	children := make([]*vdom.VNode, 0, len(items))

	for _, item := range items {
		node := b.reuse(c, item, used)
		if node == nil {
			node = b.render(item)
			vdom.AssignHIDs(node, b.hids)
			b.index.Add(node)
		}
		next = append(next, rendered{item: item, node: node})
		children = append(children, node)
	}

	for i, r := range c.rendered {
		if used[i] {
			continue
		}
		// The engine may have left the node in a container this board does
		// not draw; it is still live there.
		if r.node.Parent == nil || r.node.Parent == c.Container {
			b.index.Remove(r.node)
		}
	}

	c.rendered = next
	c.Container.ReplaceChildren(children)
	return !sameNodes(before, children)
}

// reuse returns the first unused cached node drawn for item, or nil.
func (b *Board) reuse(c *Column, item any, used []bool) *vdom.VNode {
	if !isComparable(item) {
		return nil
	}
	for i, r := range c.rendered {
		if used[i] || !isComparable(r.item) || r.item != item {
			continue
		}
		if r.node.Parent != nil && r.node.Parent != c.Container {
			continue
		}
		used[i] = true
		return r.node
	}
	return nil
}

func isComparable(v any) bool {
	return v == nil || reflect.TypeOf(v).Comparable()
}

func sameNodes(a, b []*vdom.VNode) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
