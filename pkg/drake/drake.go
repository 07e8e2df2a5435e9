package drake

import (
	"errors"

	"github.com/vango-dev/dragula/pkg/model"
	"github.com/vango-dev/dragula/pkg/vdom"
)

// Engine errors.
var (
	ErrDestroyed    = errors.New("drake: engine destroyed")
	ErrDragging     = errors.New("drake: a drag is already in progress")
	ErrNotDraggable = errors.New("drake: item is not draggable")
)

// Options configures a Drake.
type Options struct {
	// Containers are the nodes whose element children can be dragged and
	// that accept drops. When empty, the containers of Models are used.
	Containers []*vdom.VNode

	// Models binds containers to the lists that back them.
	Models model.Bindings

	// Copy makes every drag produce a copy instead of moving the item.
	Copy bool

	// CopyFunc decides per drag whether to copy. It overrides Copy.
	CopyFunc func(item, source *vdom.VNode) bool

	// CopySortSource lets a copy be dropped back into its own source.
	CopySortSource bool

	// RevertOnSpill puts a spilled item back where it started.
	RevertOnSpill bool

	// RemoveOnSpill removes a spilled item.
	RemoveOnSpill bool

	// Accepts decides whether item may be dropped into target before
	// sibling. Nil accepts every container.
	Accepts func(item, target, source, sibling *vdom.VNode) bool

	// Moves decides whether item may be dragged at all. Nil allows all.
	Moves func(item, source *vdom.VNode) bool
}

// Drake is a server-side drag engine. It follows the client's pointer
// reports (Start, Over, Release) against the server's container tree, moves
// nodes the way the browser engine moves DOM elements, and raises lifecycle
// events in the same order.
//
// A Drake is owned by a single event loop and is not safe for concurrent
// use. Handlers run synchronously and may call back into the Drake; a
// Cancel issued from inside a Drop or Remove handler takes effect
// immediately.
type Drake struct {
	opts       Options
	containers []*vdom.VNode
	handlers   map[EventType][]Handler
	destroyed  bool

	dragging       bool
	source         *vdom.VNode
	item           *vdom.VNode
	copy           *vdom.VNode
	initialSibling *vdom.VNode
	currentSibling *vdom.VNode
	lastDropTarget *vdom.VNode
}

// New creates a Drake from opts.
func New(opts Options) *Drake {
	containers := opts.Containers
	if len(containers) == 0 {
		containers = opts.Models.Containers()
	}
	return &Drake{
		opts:       opts,
		containers: append([]*vdom.VNode(nil), containers...),
		handlers:   make(map[EventType][]Handler),
	}
}

// On registers h for events of type t.
func (d *Drake) On(t EventType, h Handler) {
	if h == nil || d.destroyed {
		return
	}
	d.handlers[t] = append(d.handlers[t], h)
}

// Emit delivers e to the handlers registered for its type, in order.
func (d *Drake) Emit(e Event) {
	hs := d.handlers[e.Type()]
	if len(hs) == 0 {
		return
	}
	snapshot := make([]Handler, len(hs))
	copy(snapshot, hs)
	for _, h := range snapshot {
		h(e)
	}
}

// Models returns the model bindings the engine was created with.
func (d *Drake) Models() model.Bindings {
	return d.opts.Models
}

// Containers returns the registered containers.
func (d *Drake) Containers() []*vdom.VNode {
	return d.containers
}

// AddContainer registers another container.
func (d *Drake) AddContainer(c *vdom.VNode) {
	if c == nil || d.IsContainer(c) {
		return
	}
	d.containers = append(d.containers, c)
}

// IsContainer reports whether c is a registered container.
func (d *Drake) IsContainer(c *vdom.VNode) bool {
	if c == nil {
		return false
	}
	for _, existing := range d.containers {
		if existing == c {
			return true
		}
	}
	return false
}

// Dragging reports whether a drag is in progress.
func (d *Drake) Dragging() bool {
	return d.dragging
}

// Item returns the node being dragged: the copy in copy mode, otherwise the
// original item. Nil when idle.
func (d *Drake) Item() *vdom.VNode {
	if d.copy != nil {
		return d.copy
	}
	return d.item
}

// Source returns the container the current drag started in.
func (d *Drake) Source() *vdom.VNode {
	return d.source
}

// Start picks up item from its parent container.
func (d *Drake) Start(item *vdom.VNode) error {
	if d.destroyed {
		return ErrDestroyed
	}
	if d.dragging {
		return ErrDragging
	}
	if !item.IsElement() {
		return ErrNotDraggable
	}
	source := item.Parent
	if !d.IsContainer(source) {
		return ErrNotDraggable
	}
	if d.opts.Moves != nil && !d.opts.Moves(item, source) {
		return ErrNotDraggable
	}

	if d.isCopy(item, source) {
		d.copy = item.Clone()
		d.Emit(Cloned{Clone: d.copy, Original: item, Kind: "copy"})
	}

	d.source = source
	d.item = item
	d.initialSibling = item.NextElementSibling()
	d.currentSibling = d.initialSibling
	d.dragging = true

	d.Emit(Drag{Element: item, Source: source})
	return nil
}

// Over reports that the pointer is over target, where the item would land
// immediately before sibling (nil for the end). A nil target means the
// pointer is outside every container.
func (d *Drake) Over(target, sibling *vdom.VNode) {
	if !d.dragging {
		return
	}
	item := d.Item()

	if target != nil && !d.accepted(target, sibling) {
		target = nil
	}

	changed := target != nil && target != d.lastDropTarget
	if changed || target == nil {
		if d.lastDropTarget != nil {
			d.Emit(Out{Element: item, Container: d.lastDropTarget, Source: d.source})
		}
		d.lastDropTarget = target
		if changed {
			d.Emit(Over{Element: item, Container: target, Source: d.source})
		}
	}

	parent := item.Parent
	if target != nil && target == d.source && d.copy != nil && !d.opts.CopySortSource {
		if parent != nil {
			parent.RemoveChild(item)
		}
		return
	}

	reference := sibling
	if target == nil {
		if d.opts.RevertOnSpill && d.copy == nil {
			reference = d.initialSibling
			target = d.source
		} else {
			if d.copy != nil && parent != nil {
				parent.RemoveChild(item)
			}
			return
		}
	}

	if item.Parent != target || (reference != item && reference != item.NextElementSibling()) {
		d.currentSibling = reference
		target.InsertBefore(item, reference)
		d.Emit(Shadow{Element: item, Container: target, Source: d.source})
	}
}

// Release ends the drag with the pointer over target (nil for outside every
// container). The item is dropped, removed or cancelled depending on where
// it ended up and on the spill options.
func (d *Drake) Release(target, sibling *vdom.VNode) {
	if !d.dragging {
		return
	}
	if target != nil {
		d.Over(target, sibling)
	}
	item := d.Item()

	droppable := target != nil && item.Parent == target &&
		(d.copy == nil || d.opts.CopySortSource || target != d.source)

	switch {
	case droppable:
		d.drop(item, target)
	case d.opts.RemoveOnSpill:
		d.Remove()
	default:
		d.Cancel(d.opts.RevertOnSpill)
	}
}

func (d *Drake) drop(item, target *vdom.VNode) {
	if d.copy != nil && d.opts.CopySortSource && target == d.source && d.item.Parent != nil {
		d.item.Parent.RemoveChild(d.item)
	}
	if d.isInitialPlacement(target) {
		d.Emit(Cancel{Element: item, Container: d.source, Source: d.source})
	} else {
		d.Emit(Drop{Element: item, Target: target, Source: d.source, Sibling: d.currentSibling})
	}
	d.cleanup()
}

// Cancel ends the drag. With revert, the item goes back to where it started
// (a copy is discarded) and a Cancel event is raised. Without revert, an
// item that already sits somewhere new is reported as dropped there.
func (d *Drake) Cancel(revert bool) {
	if !d.dragging {
		return
	}
	item := d.Item()
	parent := item.Parent
	initial := d.isInitialPlacement(parent)

	if !initial && revert {
		if d.copy != nil {
			if parent != nil {
				parent.RemoveChild(d.copy)
			}
		} else {
			d.source.InsertBefore(item, d.initialSibling)
		}
	}

	if initial || revert {
		d.Emit(Cancel{Element: item, Container: d.source, Source: d.source})
	} else {
		d.Emit(Drop{Element: item, Target: parent, Source: d.source, Sibling: d.currentSibling})
	}
	d.cleanup()
}

// Remove ends the drag by taking the item out of the tree.
func (d *Drake) Remove() {
	if !d.dragging {
		return
	}
	item := d.Item()
	parent := item.Parent
	if parent != nil {
		parent.RemoveChild(item)
	}
	if d.copy != nil {
		d.Emit(Cancel{Element: item, Container: parent, Source: d.source})
	} else {
		d.Emit(Remove{Element: item, Container: parent, Source: d.source})
	}
	d.cleanup()
}

// Destroy ends any drag in progress as a spill and detaches the engine.
// Later calls are no-ops.
func (d *Drake) Destroy() {
	if d.destroyed {
		return
	}
	if d.dragging {
		d.Release(nil, nil)
	}
	d.destroyed = true
	d.handlers = make(map[EventType][]Handler)
	d.containers = nil
}

// Destroyed reports whether Destroy was called.
func (d *Drake) Destroyed() bool {
	return d.destroyed
}

func (d *Drake) cleanup() {
	if !d.dragging {
		return
	}
	item := d.Item()
	d.dragging = false

	if d.lastDropTarget != nil {
		d.Emit(Out{Element: item, Container: d.lastDropTarget, Source: d.source})
	}
	d.Emit(DragEnd{Element: item})

	d.source = nil
	d.item = nil
	d.copy = nil
	d.initialSibling = nil
	d.currentSibling = nil
	d.lastDropTarget = nil
}

func (d *Drake) isCopy(item, source *vdom.VNode) bool {
	if d.opts.CopyFunc != nil {
		return d.opts.CopyFunc(item, source)
	}
	return d.opts.Copy
}

func (d *Drake) accepted(target, sibling *vdom.VNode) bool {
	if !d.IsContainer(target) {
		return false
	}
	if target == d.source && sibling == d.initialSibling {
		return true
	}
	if d.opts.Accepts == nil {
		return true
	}
	return d.opts.Accepts(d.item, target, d.source, sibling)
}

// isInitialPlacement reports whether the item sits exactly where the drag
// started.
func (d *Drake) isInitialPlacement(target *vdom.VNode) bool {
	if target == nil || target != d.source {
		return false
	}
	return d.Item().NextElementSibling() == d.initialSibling
}
