package dragula

import "github.com/vango-dev/dragula/pkg/drake"

// setupEvents republishes every lifecycle event of the bag's engine on the
// bus, with the bag name as the first argument. It runs at most once per bag.
func (s *Service) setupEvents(bag *Bag) {
	s.log("setupEvents", "bag", bag.Name)
	if bag.initEvents {
		return
	}
	bag.initEvents = true

	for _, t := range drake.Lifecycle {
		event := t.String()
		bag.Drake.On(t, func(e drake.Event) {
			args := append([]any{bag.Name}, EventArgs(e)...)
			s.bus.Emit(event, args)
		})
	}
}

// EventArgs flattens e into the argument list observers receive after the
// bag name. Node arguments are *vdom.VNode and may be nil.
func EventArgs(e drake.Event) []any {
	switch ev := e.(type) {
	case drake.Cancel:
		return []any{ev.Element, ev.Container, ev.Source}
	case drake.Cloned:
		return []any{ev.Clone, ev.Original, ev.Kind}
	case drake.Drag:
		return []any{ev.Element, ev.Source}
	case drake.DragEnd:
		return []any{ev.Element}
	case drake.Drop:
		return []any{ev.Element, ev.Target, ev.Source, ev.Sibling}
	case drake.Out:
		return []any{ev.Element, ev.Container, ev.Source}
	case drake.Over:
		return []any{ev.Element, ev.Container, ev.Source}
	case drake.Remove:
		return []any{ev.Element, ev.Container, ev.Source}
	case drake.Shadow:
		return []any{ev.Element, ev.Container, ev.Source}
	case drake.DropModel:
		return []any{ev.Element, ev.Target, ev.Source, ev.Index}
	case drake.RemoveModel:
		return []any{ev.Element, ev.Source, ev.Index}
	default:
		return nil
	}
}
