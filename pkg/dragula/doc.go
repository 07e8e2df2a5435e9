// Package dragula keeps ordered models in step with drag-and-drop
// containers.
//
// A Service is a registry of named bags. Each bag wraps a drag engine and,
// when the engine was created with model bindings, a synchronizer that turns
// the engine's drag, drop and remove events into list mutations:
//
//   - a drop back into the source container reorders the source list
//   - a drop of the dragged element into another container inserts the item
//     into the target list now and removes it from the source list once the
//     transition frames have passed
//   - a drop of an engine-made copy inserts a deep duplicate into the target
//   - a remove deletes the item from the source list
//
// Whenever a model is touched the engine is told to revert its own DOM
// change, so the list is the only writer of structural order and the
// rendering layer redraws containers from it. Every lifecycle event, plus the
// synthesized dropModel and removeModel events, is republished on the shared
// bus with the bag name as the first argument.
//
//	svc := dragula.New(bus.New(), dragula.WithScheduler(frames))
//	svc.SetOptions("board", drake.Options{Models: bindings})
//	svc.On(map[string]bus.Handler{
//	    "dropModel": func(args []any) { ... },
//	})
//
// A Service belongs to one event loop. Indexes recorded at drag time are
// trusted: mutating a bound list from elsewhere between a drag and its drop
// panics on the next out-of-range access.
package dragula
