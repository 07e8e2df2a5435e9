package drake

import "github.com/vango-dev/dragula/pkg/vdom"

// EventType identifies a lifecycle event.
type EventType uint8

const (
	EventCancel      EventType = iota // Drag ended where it started, or was reverted
	EventCloned                       // A copy of the dragged item was made
	EventDrag                         // Item picked up
	EventDragEnd                      // Drag finished, whatever the outcome
	EventDrop                         // Item dropped into a container
	EventOut                          // Item left a container
	EventOver                         // Item entered a container
	EventRemove                       // Item spilled and removed
	EventShadow                       // Item's placeholder moved
	EventDropModel                    // Model updated after a drop
	EventRemoveModel                  // Model updated after a removal
)

// Lifecycle is the closed set of events a bag republishes, in a fixed order.
var Lifecycle = []EventType{
	EventCancel,
	EventCloned,
	EventDrag,
	EventDragEnd,
	EventDrop,
	EventOut,
	EventOver,
	EventRemove,
	EventShadow,
	EventDropModel,
	EventRemoveModel,
}

// String returns the bus name of the event.
func (t EventType) String() string {
	switch t {
	case EventCancel:
		return "cancel"
	case EventCloned:
		return "cloned"
	case EventDrag:
		return "drag"
	case EventDragEnd:
		return "dragend"
	case EventDrop:
		return "drop"
	case EventOut:
		return "out"
	case EventOver:
		return "over"
	case EventRemove:
		return "remove"
	case EventShadow:
		return "shadow"
	case EventDropModel:
		return "dropModel"
	case EventRemoveModel:
		return "removeModel"
	default:
		return "unknown"
	}
}

// ParseEventType returns the EventType named name.
func ParseEventType(name string) (EventType, bool) {
	for _, t := range Lifecycle {
		if t.String() == name {
			return t, true
		}
	}
	return 0, false
}

// Event is one of the lifecycle variants below.
type Event interface {
	Type() EventType
}

// Handler reacts to one event.
type Handler func(Event)

// Cancel is raised when a drag ends without changing anything, or when the
// engine was told to revert. Container is where the item was put back.
type Cancel struct {
	Element   *vdom.VNode
	Container *vdom.VNode
	Source    *vdom.VNode
}

// Cloned is raised when the engine copies the dragged item. Kind is "copy".
type Cloned struct {
	Clone    *vdom.VNode
	Original *vdom.VNode
	Kind     string
}

// Drag is raised when an item is picked up from Source.
type Drag struct {
	Element *vdom.VNode
	Source  *vdom.VNode
}

// DragEnd is raised once per drag, after the terminal event.
type DragEnd struct {
	Element *vdom.VNode
}

// Drop is raised when an item lands in Target. Sibling is the element it was
// placed before, or nil at the end.
type Drop struct {
	Element *vdom.VNode
	Target  *vdom.VNode
	Source  *vdom.VNode
	Sibling *vdom.VNode
}

// Out is raised when the dragged item leaves Container.
type Out struct {
	Element   *vdom.VNode
	Container *vdom.VNode
	Source    *vdom.VNode
}

// Over is raised when the dragged item enters Container.
type Over struct {
	Element   *vdom.VNode
	Container *vdom.VNode
	Source    *vdom.VNode
}

// Remove is raised when a spilled item is removed. Container is the node it
// was removed from, nil if it was already detached.
type Remove struct {
	Element   *vdom.VNode
	Container *vdom.VNode
	Source    *vdom.VNode
}

// Shadow is raised when the item's placeholder moves within Container.
type Shadow struct {
	Element   *vdom.VNode
	Container *vdom.VNode
	Source    *vdom.VNode
}

// DropModel reports the model mutation that followed a drop.
type DropModel struct {
	Element *vdom.VNode
	Target  *vdom.VNode
	Source  *vdom.VNode
	Index   int
}

// RemoveModel reports the model mutation that followed a removal.
type RemoveModel struct {
	Element *vdom.VNode
	Source  *vdom.VNode
	Index   int
}

func (Cancel) Type() EventType      { return EventCancel }
func (Cloned) Type() EventType      { return EventCloned }
func (Drag) Type() EventType        { return EventDrag }
func (DragEnd) Type() EventType     { return EventDragEnd }
func (Drop) Type() EventType        { return EventDrop }
func (Out) Type() EventType         { return EventOut }
func (Over) Type() EventType        { return EventOver }
func (Remove) Type() EventType      { return EventRemove }
func (Shadow) Type() EventType      { return EventShadow }
func (DropModel) Type() EventType   { return EventDropModel }
func (RemoveModel) Type() EventType { return EventRemoveModel }
