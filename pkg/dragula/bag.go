package dragula

import (
	"github.com/vango-dev/dragula/pkg/drake"
	"github.com/vango-dev/dragula/pkg/model"
	"github.com/vango-dev/dragula/pkg/vdom"
)

// State is the model synchronizer state of a bag.
type State uint8

const (
	Idle State = iota
	Dragging
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Dragging:
		return "dragging"
	default:
		return "unknown"
	}
}

// tracker remembers the element picked up by the last drag and where it sat
// in its source container. It is overwritten by every drag.
type tracker struct {
	state   State
	element *vdom.VNode
	index   int
}

func (t *tracker) begin(el *vdom.VNode, index int) {
	t.state = Dragging
	t.element = el
	t.index = index
}

func (t *tracker) end() {
	t.state = Idle
}

// Bag is a named drag engine registered with a Service.
type Bag struct {
	Name  string
	Drake Engine

	initEvents bool
	registered bool
	track      tracker
}

// State reports whether a drag is being tracked for model sync.
func (b *Bag) State() State {
	return b.track.state
}

// DraggedIndex returns the source index recorded by the last drag.
func (b *Bag) DraggedIndex() int {
	return b.track.index
}

// Models returns the bag's model bindings.
func (b *Bag) Models() model.Bindings {
	return b.Drake.Models()
}

// handleModels subscribes the model synchronizer to the bag's engine.
// It runs at most once per bag.
func (s *Service) handleModels(bag *Bag) {
	s.log("handleModels", "bag", bag.Name)
	if bag.registered {
		return
	}
	bag.registered = true

	engine := bag.Drake
	engine.On(drake.EventRemove, func(e drake.Event) {
		if ev, ok := e.(drake.Remove); ok {
			s.onRemove(bag, ev)
		}
	})
	engine.On(drake.EventDrag, func(e drake.Event) {
		if ev, ok := e.(drake.Drag); ok {
			bag.track.begin(ev.Element, ev.Source.IndexOf(ev.Element))
		}
	})
	engine.On(drake.EventDrop, func(e drake.Event) {
		if ev, ok := e.(drake.Drop); ok {
			s.onDrop(bag, ev)
		}
	})
	engine.On(drake.EventCancel, func(drake.Event) {
		bag.track.end()
	})
	engine.On(drake.EventDragEnd, func(drake.Event) {
		bag.track.end()
	})
}

func (s *Service) mutation(bag *Bag, kind string) {
	if s.mutated != nil {
		s.mutated(bag.Name, kind)
	}
}

// findModel returns the list bound to container, or nil.
func (s *Service) findModel(bag *Bag, container *vdom.VNode) *model.List {
	s.log("findModelForContainer", "bag", bag.Name)
	if container == nil {
		return nil
	}
	return bag.Drake.Models().Resolve(container)
}

func (s *Service) onRemove(bag *Bag, e drake.Remove) {
	defer bag.track.end()

	sourceModel := s.findModel(bag, e.Source)
	if sourceModel == nil {
		return
	}
	if bag.track.state != Dragging {
		s.logger.Warn("remove without a tracked drag", "bag", bag.Name)
		return
	}

	index := bag.track.index
	sourceModel.RemoveAt(index)
	s.mutation(bag, MutationRemove)
	bag.Drake.Cancel(true)
	bag.Drake.Emit(drake.RemoveModel{
		Element: e.Element,
		Source:  e.Source,
		Index:   index,
	})
}

func (s *Service) onDrop(bag *Bag, e drake.Drop) {
	defer bag.track.end()

	if e.Target == nil {
		return
	}
	targetModel := s.findModel(bag, e.Target)
	if targetModel == nil {
		return
	}
	sourceModel := s.findModel(bag, e.Source)
	if sourceModel == nil {
		s.logger.Warn("drop from an unbound source", "bag", bag.Name)
		return
	}
	if bag.track.state != Dragging {
		s.logger.Warn("drop without a tracked drag", "bag", bag.Name)
		return
	}

	dragIndex := bag.track.index
	targetIndex := e.Target.IndexOf(e.Element)

	switch {
	case e.Target == e.Source:
		sourceModel.Move(dragIndex, targetIndex)
		s.mutation(bag, MutationReorder)

	case e.Element == bag.track.element:
		targetModel.Insert(targetIndex, sourceModel.At(dragIndex))
		s.scheduler.Defer(func() {
			sourceModel.RemoveAt(dragIndex)
		})
		s.mutation(bag, MutationTransfer)
		bag.Drake.Cancel(true)

	default:
		dup, err := model.Duplicate(sourceModel.At(dragIndex))
		if err != nil {
			s.logger.Error("copy dropped item", "bag", bag.Name, "error", err)
			bag.Drake.Cancel(true)
			return
		}
		targetModel.Insert(targetIndex, dup)
		s.mutation(bag, MutationCopy)
		bag.Drake.Cancel(true)
	}

	bag.Drake.Emit(drake.DropModel{
		Element: e.Element,
		Target:  e.Target,
		Source:  e.Source,
		Index:   targetIndex,
	})
}
