package dragula

import (
	"errors"
	"reflect"
	"testing"

	"github.com/vango-dev/dragula/pkg/bus"
	"github.com/vango-dev/dragula/pkg/drake"
	"github.com/vango-dev/dragula/pkg/model"
	"github.com/vango-dev/dragula/pkg/schedule"
	"github.com/vango-dev/dragula/pkg/vdom"
)

// fakeEngine records what the service asks of it and lets tests raise
// events directly.
type fakeEngine struct {
	handlers  map[drake.EventType][]drake.Handler
	models    model.Bindings
	cancels   []bool
	destroyed int
}

func newFakeEngine(models model.Bindings) *fakeEngine {
	return &fakeEngine{
		handlers: make(map[drake.EventType][]drake.Handler),
		models:   models,
	}
}

func (f *fakeEngine) On(t drake.EventType, h drake.Handler) {
	f.handlers[t] = append(f.handlers[t], h)
}

func (f *fakeEngine) Emit(e drake.Event) {
	for _, h := range f.handlers[e.Type()] {
		h(e)
	}
}

func (f *fakeEngine) Cancel(revert bool) { f.cancels = append(f.cancels, revert) }
func (f *fakeEngine) Destroy()           { f.destroyed++ }
func (f *fakeEngine) Models() model.Bindings {
	return f.models
}

// emission is one event seen on the bus.
type emission struct {
	event string
	args  []any
}

type busLog struct {
	emissions []emission
}

func listen(b *bus.Bus) *busLog {
	l := &busLog{}
	for _, t := range drake.Lifecycle {
		name := t.String()
		b.On(name, func(args []any) {
			l.emissions = append(l.emissions, emission{event: name, args: args})
		})
	}
	return l
}

func (l *busLog) count(event string) int {
	n := 0
	for _, e := range l.emissions {
		if e.event == event {
			n++
		}
	}
	return n
}

func (l *busLog) last(event string) []any {
	for i := len(l.emissions) - 1; i >= 0; i-- {
		if l.emissions[i].event == event {
			return l.emissions[i].args
		}
	}
	return nil
}

type card struct {
	ID    string
	Title string
}

type board struct {
	left, right *vdom.VNode
	a, b, c, x  *vdom.VNode
	lm, rm      *model.List
}

// newBoard builds left=[A,B,C] and right=[X] with matching models.
func newBoard(items ...any) *board {
	if len(items) == 0 {
		items = []any{"A", "B", "C", "X"}
	}
	bd := &board{
		a: vdom.El("li", "A"),
		b: vdom.El("li", "B"),
		c: vdom.El("li", "C"),
		x: vdom.El("li", "X"),
	}
	bd.left = vdom.El("ul", bd.a, bd.b, bd.c)
	bd.right = vdom.El("ul", bd.x)
	bd.lm = model.NewList(items[0], items[1], items[2])
	bd.rm = model.NewList(items[3])
	return bd
}

func (bd *board) bindings() model.Bindings {
	return model.Bindings{
		{Container: bd.left, Model: bd.lm},
		{Container: bd.right, Model: bd.rm},
	}
}

func newService(t *testing.T) (*Service, *bus.Bus, *schedule.FrameScheduler) {
	t.Helper()
	b := bus.New()
	sched := schedule.NewFrameScheduler(schedule.DefaultFrames)
	return New(b, WithName("test"), WithScheduler(sched)), b, sched
}

func TestAddFindDestroy(t *testing.T) {
	s, _, _ := newService(t)
	e1 := newFakeEngine(nil)

	bag, err := s.Add("first", e1)
	if err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if s.Find("first") != bag {
		t.Error("Find did not return the registered bag")
	}
	if s.Find("missing") != nil {
		t.Error("Find should return nil for unknown names")
	}

	_, err = s.Add("first", newFakeEngine(nil))
	if !errors.Is(err, ErrDuplicateName) {
		t.Fatalf("duplicate Add() error = %v, want ErrDuplicateName", err)
	}
	var dup *DuplicateNameError
	if !errors.As(err, &dup) || dup.Name != "first" || dup.Service != "test" {
		t.Errorf("duplicate error = %#v", err)
	}
	if len(s.Bags()) != 1 || s.Find("first").Drake != e1 {
		t.Error("duplicate Add changed the registry")
	}

	s.Destroy("missing")
	s.Destroy("first")
	if e1.destroyed != 1 {
		t.Errorf("engine destroyed %d times, want 1", e1.destroyed)
	}
	if s.Find("first") != nil || len(s.Bags()) != 0 {
		t.Error("Destroy left the bag registered")
	}
}

func TestReorderWithinContainer(t *testing.T) {
	s, b, _ := newService(t)
	log := listen(b)
	bd := newBoard()
	d := drake.New(drake.Options{Models: bd.bindings()})
	if _, err := s.Add("board", d); err != nil {
		t.Fatal(err)
	}

	if err := d.Start(bd.a); err != nil {
		t.Fatal(err)
	}
	if s.Find("board").State() != Dragging {
		t.Error("bag should be dragging after drag")
	}
	d.Release(bd.left, nil)

	if got, want := bd.lm.Items(), []any{"B", "C", "A"}; !reflect.DeepEqual(got, want) {
		t.Errorf("left model = %v, want %v", got, want)
	}
	if got := bd.left.IndexOf(bd.a); got != 2 {
		t.Errorf("reorder should keep the engine's DOM move, A at %d", got)
	}
	want := []any{"board", bd.a, bd.left, bd.left, 2}
	if got := log.last("dropModel"); !reflect.DeepEqual(got, want) {
		t.Errorf("dropModel args = %v, want %v", got, want)
	}
	if log.count("cancel") != 0 {
		t.Error("reorder should not cancel the engine")
	}
	if s.Find("board").State() != Idle {
		t.Error("bag should be idle after drop")
	}
}

func TestMoveAcrossContainersDefersSourceRemoval(t *testing.T) {
	s, b, sched := newService(t)
	log := listen(b)
	bd := newBoard("A", "B", "C", "X")
	d := drake.New(drake.Options{Models: bd.bindings()})
	s.Add("board", d)

	d.Start(bd.a)
	d.Release(bd.right, nil)

	if got, want := bd.rm.Items(), []any{"X", "A"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("target model = %v, want %v", got, want)
	}
	if got, want := bd.lm.Items(), []any{"A", "B", "C"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("source model changed before the transition: %v", got)
	}
	if bd.a.Parent != bd.left || bd.left.IndexOf(bd.a) != 0 {
		t.Error("engine DOM move should have been reverted")
	}
	if log.count("cancel") != 1 {
		t.Errorf("cancel emitted %d times, want 1", log.count("cancel"))
	}
	want := []any{"board", bd.a, bd.right, bd.left, 1}
	if got := log.last("dropModel"); !reflect.DeepEqual(got, want) {
		t.Errorf("dropModel args = %v, want %v", got, want)
	}

	sched.Tick()
	if bd.lm.Len() != 3 {
		t.Fatal("source removal ran after one frame")
	}
	sched.Tick()
	if got, want := bd.lm.Items(), []any{"B", "C"}; !reflect.DeepEqual(got, want) {
		t.Errorf("source model after transition = %v, want %v", got, want)
	}
	if sched.Pending() != 0 {
		t.Error("deferred removal should run exactly once")
	}
}

func TestMoveTwoItemSource(t *testing.T) {
	s, _, _ := newService(t)
	s.scheduler = schedule.Immediate{}

	a, bb, x := vdom.El("li", "A"), vdom.El("li", "B"), vdom.El("li", "X")
	src, dst := vdom.El("ul", a, bb), vdom.El("ul", x)
	sm, tm := model.NewList("A", "B"), model.NewList("X")
	d := drake.New(drake.Options{Models: model.Bindings{
		{Container: src, Model: sm},
		{Container: dst, Model: tm},
	}})
	s.Add("pair", d)

	d.Start(a)
	d.Release(dst, nil)

	if got, want := sm.Items(), []any{"B"}; !reflect.DeepEqual(got, want) {
		t.Errorf("source = %v, want %v", got, want)
	}
	if got, want := tm.Items(), []any{"X", "A"}; !reflect.DeepEqual(got, want) {
		t.Errorf("target = %v, want %v", got, want)
	}
}

func TestCopyAcrossContainers(t *testing.T) {
	s, b, sched := newService(t)
	log := listen(b)
	a := &card{ID: "a", Title: "A"}
	bd := newBoard(a, &card{ID: "b"}, &card{ID: "c"}, &card{ID: "x"})
	d := drake.New(drake.Options{Models: bd.bindings(), Copy: true})
	s.Add("board", d)

	d.Start(bd.a)
	if log.count("cloned") != 1 {
		t.Fatal("copy drag should emit cloned")
	}
	d.Release(bd.right, nil)

	if bd.lm.Len() != 3 || bd.lm.At(0) != a {
		t.Errorf("source model changed on copy: %v", bd.lm.Items())
	}
	if bd.rm.Len() != 2 {
		t.Fatalf("target model = %v", bd.rm.Items())
	}
	got := bd.rm.At(1)
	if got == any(a) {
		t.Error("copied item shares the original reference")
	}
	if !reflect.DeepEqual(got, a) {
		t.Errorf("copied item = %#v, want deep copy of %#v", got, a)
	}
	if len(bd.right.ElementChildren()) != 1 {
		t.Error("engine's copy should have been removed from the DOM")
	}
	if sched.Pending() != 0 {
		t.Error("copy must not schedule a source removal")
	}
	args := log.last("dropModel")
	if len(args) != 5 || args[2] != bd.right || args[4] != 1 {
		t.Errorf("dropModel args = %v", args)
	}
}

func TestRemoveSpilledItem(t *testing.T) {
	s, b, _ := newService(t)
	log := listen(b)
	bd := newBoard()
	d := drake.New(drake.Options{Models: bd.bindings(), RemoveOnSpill: true})
	s.Add("board", d)

	d.Start(bd.b)
	d.Release(nil, nil)

	if got, want := bd.lm.Items(), []any{"A", "C"}; !reflect.DeepEqual(got, want) {
		t.Errorf("model = %v, want %v", got, want)
	}
	want := []any{"board", bd.b, bd.left, 1}
	if got := log.last("removeModel"); !reflect.DeepEqual(got, want) {
		t.Errorf("removeModel args = %v, want %v", got, want)
	}
	if log.count("removeModel") != 1 {
		t.Errorf("removeModel emitted %d times", log.count("removeModel"))
	}
	if bd.b.Parent != bd.left {
		t.Error("engine removal should have been reverted")
	}
}

func TestMutationFunc(t *testing.T) {
	var got []string
	s := New(bus.New(), WithScheduler(schedule.Immediate{}), WithMutationFunc(func(bag, kind string) {
		got = append(got, bag+":"+kind)
	}))

	moves := newBoard()
	md := drake.New(drake.Options{Models: moves.bindings(), RemoveOnSpill: true})
	s.Add("moves", md)
	copies := newBoard(&card{ID: "a"}, &card{ID: "b"}, &card{ID: "c"}, &card{ID: "x"})
	cd := drake.New(drake.Options{Models: copies.bindings(), Copy: true})
	s.Add("copies", cd)

	md.Start(moves.a)
	md.Release(moves.left, nil)
	md.Start(moves.b)
	md.Release(moves.right, nil)
	md.Start(moves.c)
	md.Release(nil, nil)
	cd.Start(copies.a)
	cd.Release(copies.right, nil)

	want := []string{"moves:reorder", "moves:transfer", "moves:remove", "copies:copy"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("mutations = %v, want %v", got, want)
	}
}

func TestFakeEngineCancels(t *testing.T) {
	tests := []struct {
		name    string
		event   func(bd *board) drake.Event
		cancels []bool
	}{
		{
			name:    "reorder",
			event:   func(bd *board) drake.Event { return drake.Drop{Element: bd.a, Target: bd.left, Source: bd.left} },
			cancels: nil,
		},
		{
			name: "move",
			event: func(bd *board) drake.Event {
				bd.right.AppendChild(bd.a)
				return drake.Drop{Element: bd.a, Target: bd.right, Source: bd.left}
			},
			cancels: []bool{true},
		},
		{
			name: "copy",
			event: func(bd *board) drake.Event {
				clone := bd.a.Clone()
				bd.right.AppendChild(clone)
				return drake.Drop{Element: clone, Target: bd.right, Source: bd.left}
			},
			cancels: []bool{true},
		},
		{
			name:    "remove",
			event:   func(bd *board) drake.Event { return drake.Remove{Element: bd.a, Container: bd.left, Source: bd.left} },
			cancels: []bool{true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _, _ := newService(t)
			bd := newBoard()
			e := newFakeEngine(bd.bindings())
			s.Add("board", e)

			e.Emit(drake.Drag{Element: bd.a, Source: bd.left})
			e.Emit(tt.event(bd))

			if !reflect.DeepEqual(e.cancels, tt.cancels) {
				t.Errorf("cancels = %v, want %v", e.cancels, tt.cancels)
			}
		})
	}
}

func TestUnboundContainersNeverMutate(t *testing.T) {
	s, b, sched := newService(t)
	log := listen(b)
	bd := newBoard()
	outside := vdom.El("ul")
	e := newFakeEngine(model.Bindings{{Container: bd.left, Model: bd.lm}})
	s.Add("half", e)

	e.Emit(drake.Drag{Element: bd.a, Source: bd.left})
	e.Emit(drake.Drop{Element: bd.a, Target: outside, Source: bd.left})
	e.Emit(drake.Drop{Element: bd.a, Target: nil, Source: bd.left})
	e.Emit(drake.Drag{Element: bd.x, Source: bd.right})
	e.Emit(drake.Remove{Element: bd.x, Container: bd.right, Source: bd.right})
	e.Emit(drake.Drop{Element: bd.x, Target: bd.left, Source: bd.right})

	if got, want := bd.lm.Items(), []any{"A", "B", "C"}; !reflect.DeepEqual(got, want) {
		t.Errorf("bound model mutated: %v", got)
	}
	if len(e.cancels) != 0 || sched.Pending() != 0 {
		t.Errorf("unbound events should not cancel or defer (cancels=%v)", e.cancels)
	}
	if log.count("dropModel")+log.count("removeModel") != 0 {
		t.Error("no model event should be emitted for unbound containers")
	}

	plain := newFakeEngine(nil)
	s.Add("plain", plain)
	plain.Emit(drake.Drag{Element: bd.a, Source: bd.left})
	plain.Emit(drake.Remove{Element: bd.a, Container: bd.left, Source: bd.left})
	if s.Find("plain").registered {
		t.Error("bag without models should not wire model sync")
	}
	if bd.lm.Len() != 3 {
		t.Error("engine without models mutated a model")
	}
}

func TestReplicatorFanOut(t *testing.T) {
	s, b, _ := newService(t)
	e1 := newFakeEngine(nil)
	e2 := newFakeEngine(nil)
	first, _ := s.Add("one", e1)
	s.Add("two", e2)

	seen := make(map[string]map[string]int)
	for _, et := range drake.Lifecycle {
		name := et.String()
		seen[name] = make(map[string]int)
		b.On(name, func(args []any) {
			bag, _ := args[0].(string)
			seen[name][bag]++
		})
	}

	// Wiring again must not double the subscriptions.
	s.setupEvents(first)
	s.handleModels(first)
	s.handleModels(first)

	events := []drake.Event{
		drake.Cancel{}, drake.Cloned{Kind: "copy"}, drake.Drag{}, drake.DragEnd{},
		drake.Drop{}, drake.Out{}, drake.Over{}, drake.Remove{}, drake.Shadow{},
		drake.DropModel{}, drake.RemoveModel{},
	}
	if len(events) != len(drake.Lifecycle) {
		t.Fatalf("test covers %d events, lifecycle has %d", len(events), len(drake.Lifecycle))
	}
	for _, ev := range events {
		e1.Emit(ev)
		e2.Emit(ev)
	}

	for _, et := range drake.Lifecycle {
		name := et.String()
		for _, bag := range []string{"one", "two"} {
			if n := seen[name][bag]; n != 1 {
				t.Errorf("%s from %s emitted %d times, want 1", name, bag, n)
			}
		}
	}
}

func TestEventArgsOrder(t *testing.T) {
	el, tgt, src, sib := vdom.El("li"), vdom.El("ul"), vdom.El("ul"), vdom.El("li")

	tests := []struct {
		event drake.Event
		want  []any
	}{
		{drake.Drop{Element: el, Target: tgt, Source: src, Sibling: sib}, []any{el, tgt, src, sib}},
		{drake.Drag{Element: el, Source: src}, []any{el, src}},
		{drake.DragEnd{Element: el}, []any{el}},
		{drake.Cloned{Clone: el, Original: sib, Kind: "copy"}, []any{el, sib, "copy"}},
		{drake.Shadow{Element: el, Container: tgt, Source: src}, []any{el, tgt, src}},
		{drake.DropModel{Element: el, Target: tgt, Source: src, Index: 3}, []any{el, tgt, src, 3}},
		{drake.RemoveModel{Element: el, Source: src, Index: 1}, []any{el, src, 1}},
	}
	for _, tt := range tests {
		t.Run(tt.event.Type().String(), func(t *testing.T) {
			if got := EventArgs(tt.event); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("EventArgs() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSetOptionsRebuildsBag(t *testing.T) {
	s, _, sched := newService(t)
	bd := newBoard()
	old := newFakeEngine(nil)
	s.Add("board", old)

	bag, err := s.SetOptions("board", drake.Options{Models: bd.bindings()})
	if err != nil {
		t.Fatalf("SetOptions() error = %v", err)
	}
	if old.destroyed != 1 {
		t.Error("previous engine should be destroyed")
	}
	if s.Find("board") != bag || len(s.Bags()) != 1 {
		t.Fatal("SetOptions did not replace the bag")
	}
	if !bag.registered || !bag.initEvents {
		t.Error("rebuilt bag should be fully wired")
	}

	d := bag.Drake.(*drake.Drake)
	d.Start(bd.c)
	d.Release(bd.right, bd.x)
	sched.Drain()

	if got, want := bd.rm.Items(), []any{"C", "X"}; !reflect.DeepEqual(got, want) {
		t.Errorf("target = %v, want %v", got, want)
	}
	if got, want := bd.lm.Items(), []any{"A", "B"}; !reflect.DeepEqual(got, want) {
		t.Errorf("source = %v, want %v", got, want)
	}
}

func TestServiceOn(t *testing.T) {
	s, b, _ := newService(t)
	var drops, drags int
	off := s.On(map[string]bus.Handler{
		"drop": func([]any) { drops++ },
		"drag": func([]any) { drags++ },
	})

	b.Emit("drop", nil)
	b.Emit("drag", nil)
	off()
	b.Emit("drop", nil)

	if drops != 1 || drags != 1 {
		t.Errorf("drops=%d drags=%d, want 1 and 1", drops, drags)
	}
}

func TestStateString(t *testing.T) {
	if Idle.String() != "idle" || Dragging.String() != "dragging" || State(9).String() != "unknown" {
		t.Error("unexpected State names")
	}
}
