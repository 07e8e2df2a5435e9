package server

import (
	"errors"
	"io"
	"log/slog"
	"reflect"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/vango-dev/dragula/internal/config"
	"github.com/vango-dev/dragula/pkg/board"
	"github.com/vango-dev/dragula/pkg/dragula"
	"github.com/vango-dev/dragula/pkg/drake"
	"github.com/vango-dev/dragula/pkg/metrics"
	"github.com/vango-dev/dragula/pkg/protocol"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testBags() []config.BagConfig {
	return []config.BagConfig{
		{
			Name: "kanban",
			Containers: []config.ContainerConfig{
				{Name: "todo", Items: []board.Card{{ID: "a", Title: "A"}, {ID: "b", Title: "B"}, {ID: "c", Title: "C"}}},
				{Name: "done", Items: []board.Card{{ID: "d", Title: "D"}}},
			},
		},
		{
			Name: "palette",
			Copy: true,
			Containers: []config.ContainerConfig{
				{Name: "tools", Items: []board.Card{{ID: "x", Title: "X"}}},
				{Name: "canvas"},
			},
		},
		{
			Name:          "trash",
			RemoveOnSpill: true,
			Containers: []config.ContainerConfig{
				{Name: "bin", Items: []board.Card{{ID: "r", Title: "R"}, {ID: "s", Title: "S"}}},
			},
		},
	}
}

func newTestWorkspace(t *testing.T, opts WorkspaceOptions) *Workspace {
	t.Helper()
	if opts.Bags == nil {
		opts.Bags = testBags()
	}
	opts.Logger = quietLogger()
	ws, err := NewWorkspace(opts)
	if err != nil {
		t.Fatalf("NewWorkspace() error: %v", err)
	}
	t.Cleanup(ws.Close)
	return ws
}

// ids returns the card IDs of items.
func ids(items []any) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.(*board.Card).ID)
	}
	return out
}

func itemHID(t *testing.T, ws *Workspace, bag, container string, index int) string {
	t.Helper()
	n := ws.Item(bag, container, index)
	if n == nil {
		t.Fatalf("no item %d in %s/%s", index, bag, container)
	}
	return n.HID
}

func containerHID(t *testing.T, ws *Workspace, bag, container string) string {
	t.Helper()
	n := ws.Container(bag, container)
	if n == nil {
		t.Fatalf("no container %s/%s", bag, container)
	}
	return n.HID
}

func apply(t *testing.T, ws *Workspace, actions ...*protocol.Action) {
	t.Helper()
	for _, a := range actions {
		if err := ws.Apply(a); err != nil {
			t.Fatalf("Apply(%s) error: %v", a.Kind, err)
		}
	}
}

func columnNames(cols []*board.Column) []string {
	out := make([]string, 0, len(cols))
	for _, c := range cols {
		out = append(out, c.Name)
	}
	return out
}

func TestNewWorkspace(t *testing.T) {
	ws := newTestWorkspace(t, WorkspaceOptions{Name: "demo"})

	if got := ws.Bags(); !reflect.DeepEqual(got, []string{"kanban", "palette", "trash"}) {
		t.Errorf("Bags() = %v", got)
	}
	if ws.Service.Name() != "demo" || ws.Board.Name != "demo" {
		t.Errorf("names = %q, %q", ws.Service.Name(), ws.Board.Name)
	}
	models := ws.Models()
	if got := ids(models["kanban/todo"]); !reflect.DeepEqual(got, []string{"a", "b", "c"}) {
		t.Errorf("kanban/todo = %v", got)
	}
	if len(models["palette/canvas"]) != 0 {
		t.Errorf("palette/canvas = %v", models["palette/canvas"])
	}
	if len(ws.Columns()) != 5 {
		t.Errorf("len(Columns()) = %d, want 5", len(ws.Columns()))
	}
	if ws.Item("kanban", "todo", 3) != nil || ws.Item("kanban", "nope", 0) != nil {
		t.Error("out-of-range lookups should return nil")
	}

	for _, name := range ws.Bags() {
		if bag := ws.Service.Find(name); bag == nil || len(bag.Models()) == 0 {
			t.Errorf("bag %q has no model bindings", name)
		}
	}
}

func TestNewWorkspaceDuplicateBag(t *testing.T) {
	bags := []config.BagConfig{{Name: "kanban"}, {Name: "kanban"}}
	_, err := NewWorkspace(WorkspaceOptions{Bags: bags, Logger: quietLogger()})
	if !errors.Is(err, dragula.ErrDuplicateName) {
		t.Errorf("error = %v, want ErrDuplicateName", err)
	}
}

func TestWorkspaceTransfer(t *testing.T) {
	var deltas []int
	ws := newTestWorkspace(t, WorkspaceOptions{OnPending: func(d int) { deltas = append(deltas, d) }})

	var events []string
	for _, e := range drake.Lifecycle {
		name := e.String()
		ws.Bus.On(name, func([]any) { events = append(events, name) })
	}

	apply(t, ws,
		&protocol.Action{Kind: protocol.ActionStart, Bag: "kanban", Item: itemHID(t, ws, "kanban", "todo", 0)},
		&protocol.Action{Kind: protocol.ActionRelease, Bag: "kanban", Target: containerHID(t, ws, "kanban", "done")},
	)

	want := []string{"drag", "over", "shadow", "cancel", "out", "dragend", "dropModel", "drop"}
	if !reflect.DeepEqual(events, want) {
		t.Errorf("events = %v, want %v", events, want)
	}

	models := ws.Models()
	if got := ids(models["kanban/done"]); !reflect.DeepEqual(got, []string{"d", "a"}) {
		t.Errorf("done = %v", got)
	}
	// The source keeps the item until the transition is over.
	if got := ids(models["kanban/todo"]); !reflect.DeepEqual(got, []string{"a", "b", "c"}) {
		t.Errorf("todo before ticks = %v", got)
	}
	if ws.Pending() != 1 {
		t.Fatalf("Pending() = %d, want 1", ws.Pending())
	}

	if got := columnNames(ws.Render()); !reflect.DeepEqual(got, []string{"kanban/done"}) {
		t.Errorf("changed columns = %v", got)
	}

	if n := ws.Tick(); n != 0 {
		t.Errorf("first Tick() ran %d tasks", n)
	}
	if n := ws.Tick(); n != 1 {
		t.Errorf("second Tick() ran %d tasks, want 1", n)
	}
	if got := ids(ws.Models()["kanban/todo"]); !reflect.DeepEqual(got, []string{"b", "c"}) {
		t.Errorf("todo after ticks = %v", got)
	}
	if ws.Pending() != 0 {
		t.Errorf("Pending() = %d after ticks", ws.Pending())
	}
	if got := columnNames(ws.Render()); !reflect.DeepEqual(got, []string{"kanban/todo"}) {
		t.Errorf("changed columns after ticks = %v", got)
	}
	if !reflect.DeepEqual(deltas, []int{1, -1}) {
		t.Errorf("pending deltas = %v", deltas)
	}
}

func TestWorkspaceReorder(t *testing.T) {
	ws := newTestWorkspace(t, WorkspaceOptions{})

	apply(t, ws,
		&protocol.Action{Kind: protocol.ActionStart, Bag: "kanban", Item: itemHID(t, ws, "kanban", "todo", 0)},
		&protocol.Action{
			Kind:    protocol.ActionOver,
			Bag:     "kanban",
			Target:  containerHID(t, ws, "kanban", "todo"),
			Sibling: itemHID(t, ws, "kanban", "todo", 2),
		},
		&protocol.Action{
			Kind:    protocol.ActionRelease,
			Bag:     "kanban",
			Target:  containerHID(t, ws, "kanban", "todo"),
			Sibling: itemHID(t, ws, "kanban", "todo", 2),
		},
	)

	if got := ids(ws.Models()["kanban/todo"]); !reflect.DeepEqual(got, []string{"b", "a", "c"}) {
		t.Errorf("todo = %v", got)
	}
	if ws.Pending() != 0 {
		t.Errorf("Pending() = %d, reorders are not deferred", ws.Pending())
	}
	// The engine already moved the nodes; rendering reuses them in place.
	if cols := ws.Render(); len(cols) != 0 {
		t.Errorf("changed columns = %v", columnNames(cols))
	}
}

func TestWorkspaceCopy(t *testing.T) {
	ws := newTestWorkspace(t, WorkspaceOptions{})

	apply(t, ws,
		&protocol.Action{Kind: protocol.ActionStart, Bag: "palette", Item: itemHID(t, ws, "palette", "tools", 0)},
		&protocol.Action{Kind: protocol.ActionRelease, Bag: "palette", Target: containerHID(t, ws, "palette", "canvas")},
	)

	models := ws.Models()
	if got := ids(models["palette/tools"]); !reflect.DeepEqual(got, []string{"x"}) {
		t.Errorf("tools = %v", got)
	}
	if got := ids(models["palette/canvas"]); !reflect.DeepEqual(got, []string{"x"}) {
		t.Errorf("canvas = %v", got)
	}
	if models["palette/tools"][0] == models["palette/canvas"][0] {
		t.Error("copy should be a distinct item")
	}
	if ws.Pending() != 0 {
		t.Errorf("Pending() = %d, copies are not deferred", ws.Pending())
	}
}

func TestWorkspaceMutationKinds(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(metrics.WithRegistry(reg))
	ws := newTestWorkspace(t, WorkspaceOptions{Immediate: true, OnMutation: m.Mutation})

	apply(t, ws,
		&protocol.Action{Kind: protocol.ActionStart, Bag: "palette", Item: itemHID(t, ws, "palette", "tools", 0)},
		&protocol.Action{Kind: protocol.ActionRelease, Bag: "palette", Target: containerHID(t, ws, "palette", "canvas")},
		&protocol.Action{Kind: protocol.ActionStart, Bag: "kanban", Item: itemHID(t, ws, "kanban", "todo", 0)},
		&protocol.Action{Kind: protocol.ActionRelease, Bag: "kanban", Target: containerHID(t, ws, "kanban", "done")},
	)

	families, err := reg.Gather()
	if err != nil {
		t.Fatal(err)
	}
	got := make(map[string]float64)
	for _, mf := range families {
		if mf.GetName() != "dragula_model_mutations_total" {
			continue
		}
		for _, metric := range mf.GetMetric() {
			labels := make(map[string]string)
			for _, lp := range metric.GetLabel() {
				labels[lp.GetName()] = lp.GetValue()
			}
			got[labels["bag"]+":"+labels["kind"]] = metric.GetCounter().GetValue()
		}
	}
	want := map[string]float64{"palette:copy": 1, "kanban:transfer": 1}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("mutations = %v, want %v", got, want)
	}
}

func TestWorkspaceRemoveOnSpill(t *testing.T) {
	ws := newTestWorkspace(t, WorkspaceOptions{})

	var removed []any
	ws.Bus.On("removeModel", func(args []any) { removed = args })

	apply(t, ws,
		&protocol.Action{Kind: protocol.ActionStart, Bag: "trash", Item: itemHID(t, ws, "trash", "bin", 0)},
		&protocol.Action{Kind: protocol.ActionRelease, Bag: "trash"},
	)

	if got := ids(ws.Models()["trash/bin"]); !reflect.DeepEqual(got, []string{"s"}) {
		t.Errorf("bin = %v", got)
	}
	if len(removed) == 0 || removed[0] != "trash" || removed[len(removed)-1] != 0 {
		t.Errorf("removeModel args = %v", removed)
	}
	if got := columnNames(ws.Render()); !reflect.DeepEqual(got, []string{"trash/bin"}) {
		t.Errorf("changed columns = %v", got)
	}
}

func TestWorkspaceExplicitRemove(t *testing.T) {
	ws := newTestWorkspace(t, WorkspaceOptions{})

	apply(t, ws,
		&protocol.Action{Kind: protocol.ActionStart, Bag: "kanban", Item: itemHID(t, ws, "kanban", "todo", 1)},
		&protocol.Action{Kind: protocol.ActionRemove, Bag: "kanban"},
	)
	if got := ids(ws.Models()["kanban/todo"]); !reflect.DeepEqual(got, []string{"a", "c"}) {
		t.Errorf("todo = %v", got)
	}
}

func TestWorkspaceCancel(t *testing.T) {
	ws := newTestWorkspace(t, WorkspaceOptions{})

	apply(t, ws,
		&protocol.Action{Kind: protocol.ActionStart, Bag: "kanban", Item: itemHID(t, ws, "kanban", "todo", 0)},
		&protocol.Action{Kind: protocol.ActionOver, Bag: "kanban", Target: containerHID(t, ws, "kanban", "done")},
		&protocol.Action{Kind: protocol.ActionCancel, Bag: "kanban", Revert: true},
	)

	models := ws.Models()
	if got := ids(models["kanban/todo"]); !reflect.DeepEqual(got, []string{"a", "b", "c"}) {
		t.Errorf("todo = %v", got)
	}
	if got := ids(models["kanban/done"]); !reflect.DeepEqual(got, []string{"d"}) {
		t.Errorf("done = %v", got)
	}
	if cols := ws.Render(); len(cols) != 0 {
		t.Errorf("changed columns = %v", columnNames(cols))
	}
}

func TestWorkspaceImmediate(t *testing.T) {
	ws := newTestWorkspace(t, WorkspaceOptions{Immediate: true})

	apply(t, ws,
		&protocol.Action{Kind: protocol.ActionStart, Bag: "kanban", Item: itemHID(t, ws, "kanban", "todo", 0)},
		&protocol.Action{Kind: protocol.ActionRelease, Bag: "kanban", Target: containerHID(t, ws, "kanban", "done")},
	)

	if got := ids(ws.Models()["kanban/todo"]); !reflect.DeepEqual(got, []string{"b", "c"}) {
		t.Errorf("todo = %v", got)
	}
	if ws.Pending() != 0 || ws.Tick() != 0 || ws.Settle() != 0 {
		t.Error("immediate workspace should have nothing pending")
	}
}

func TestWorkspaceDelay(t *testing.T) {
	dispatched := make(chan func(), 1)
	ws := newTestWorkspace(t, WorkspaceOptions{
		Delay:    time.Millisecond,
		Dispatch: func(fn func()) { dispatched <- fn },
	})

	apply(t, ws,
		&protocol.Action{Kind: protocol.ActionStart, Bag: "kanban", Item: itemHID(t, ws, "kanban", "todo", 0)},
		&protocol.Action{Kind: protocol.ActionRelease, Bag: "kanban", Target: containerHID(t, ws, "kanban", "done")},
	)
	if ws.Pending() != 1 {
		t.Fatalf("Pending() = %d, want 1", ws.Pending())
	}

	select {
	case fn := <-dispatched:
		fn()
	case <-time.After(2 * time.Second):
		t.Fatal("removal was never dispatched")
	}
	if got := ids(ws.Models()["kanban/todo"]); !reflect.DeepEqual(got, []string{"b", "c"}) {
		t.Errorf("todo = %v", got)
	}
	if ws.Pending() != 0 {
		t.Errorf("Pending() = %d", ws.Pending())
	}
}

func TestWorkspaceDelaySettle(t *testing.T) {
	dispatched := make(chan func(), 1)
	ws := newTestWorkspace(t, WorkspaceOptions{
		Delay:    time.Hour,
		Dispatch: func(fn func()) { dispatched <- fn },
	})

	apply(t, ws,
		&protocol.Action{Kind: protocol.ActionStart, Bag: "kanban", Item: itemHID(t, ws, "kanban", "todo", 0)},
		&protocol.Action{Kind: protocol.ActionRelease, Bag: "kanban", Target: containerHID(t, ws, "kanban", "done")},
	)
	if n := ws.Settle(); n != 1 {
		t.Fatalf("Settle() ran %d tasks, want 1", n)
	}
	if got := ids(ws.Models()["kanban/todo"]); !reflect.DeepEqual(got, []string{"b", "c"}) {
		t.Errorf("todo = %v", got)
	}
	if ws.Pending() != 0 {
		t.Errorf("Pending() = %d", ws.Pending())
	}
	select {
	case <-dispatched:
		t.Error("settled removal was still dispatched")
	default:
	}
}

func TestNewWorkspaceDelayNeedsDispatch(t *testing.T) {
	_, err := NewWorkspace(WorkspaceOptions{Bags: testBags(), Logger: quietLogger(), Delay: time.Millisecond})
	if !errors.Is(err, ErrNoDispatch) {
		t.Errorf("NewWorkspace() error = %v, want ErrNoDispatch", err)
	}
}

func TestWorkspaceSettle(t *testing.T) {
	ws := newTestWorkspace(t, WorkspaceOptions{Frames: 5})

	apply(t, ws,
		&protocol.Action{Kind: protocol.ActionStart, Bag: "kanban", Item: itemHID(t, ws, "kanban", "todo", 2)},
		&protocol.Action{Kind: protocol.ActionRelease, Bag: "kanban", Target: containerHID(t, ws, "kanban", "done")},
	)
	if n := ws.Settle(); n != 1 {
		t.Errorf("Settle() ran %d tasks, want 1", n)
	}
	if got := ids(ws.Models()["kanban/todo"]); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Errorf("todo = %v", got)
	}
}

func TestWorkspaceApplyErrors(t *testing.T) {
	ws := newTestWorkspace(t, WorkspaceOptions{})
	todoA := itemHID(t, ws, "kanban", "todo", 0)

	tests := []struct {
		name   string
		action *protocol.Action
		want   error
	}{
		{"unknown bag", &protocol.Action{Kind: protocol.ActionStart, Bag: "nope", Item: todoA}, ErrUnknownBag},
		{"unknown item", &protocol.Action{Kind: protocol.ActionStart, Bag: "kanban", Item: "h999"}, ErrUnknownNode},
		{"start without item", &protocol.Action{Kind: protocol.ActionStart, Bag: "kanban"}, ErrUnknownNode},
		{"unknown target", &protocol.Action{Kind: protocol.ActionOver, Bag: "kanban", Target: "h999"}, ErrUnknownNode},
		{"foreign item", &protocol.Action{Kind: protocol.ActionStart, Bag: "kanban", Item: itemHID(t, ws, "palette", "tools", 0)}, drake.ErrNotDraggable},
		{"container is not an item", &protocol.Action{Kind: protocol.ActionStart, Bag: "kanban", Item: containerHID(t, ws, "kanban", "todo")}, drake.ErrNotDraggable},
		{"unknown kind", &protocol.Action{Kind: protocol.ActionKind(0x7f), Bag: "kanban"}, protocol.ErrUnknownAction},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := ws.Apply(tt.action); !errors.Is(err, tt.want) {
				t.Errorf("Apply() error = %v, want %v", err, tt.want)
			}
		})
	}

	apply(t, ws, &protocol.Action{Kind: protocol.ActionStart, Bag: "kanban", Item: todoA})
	err := ws.Apply(&protocol.Action{Kind: protocol.ActionStart, Bag: "kanban", Item: todoA})
	if !errors.Is(err, drake.ErrDragging) {
		t.Errorf("second Start error = %v, want ErrDragging", err)
	}
}

func TestWorkspaceClose(t *testing.T) {
	ws, err := NewWorkspace(WorkspaceOptions{Bags: testBags(), Logger: quietLogger()})
	if err != nil {
		t.Fatal(err)
	}
	apply(t, ws, &protocol.Action{Kind: protocol.ActionStart, Bag: "kanban", Item: itemHID(t, ws, "kanban", "todo", 0)})

	ws.Close()
	if len(ws.Service.Bags()) != 0 || len(ws.Bags()) != 0 {
		t.Errorf("bags left after Close: %d", len(ws.Service.Bags()))
	}
	if got := ids(ws.Models()["kanban/todo"]); !reflect.DeepEqual(got, []string{"a", "b", "c"}) {
		t.Errorf("todo = %v", got)
	}
	if err := ws.Apply(&protocol.Action{Kind: protocol.ActionCancel, Bag: "kanban"}); !errors.Is(err, ErrUnknownBag) {
		t.Errorf("Apply after Close error = %v", err)
	}
}

func TestRenderFrame(t *testing.T) {
	ws := newTestWorkspace(t, WorkspaceOptions{})
	rf := ws.RenderFrame(7, ws.Columns()[:1])
	if rf.Seq != 7 || len(rf.Containers) != 1 {
		t.Fatalf("frame = %+v", rf)
	}
	if rf.Containers[0].Container != containerHID(t, ws, "kanban", "todo") || len(rf.Containers[0].Children) != 3 {
		t.Errorf("render = %+v", rf.Containers[0])
	}
}

func TestErrorCode(t *testing.T) {
	tests := []struct {
		err  error
		wire protocol.ErrorCode
		reg  string
	}{
		{ErrUnknownBag, protocol.ErrUnknownBag, "E301"},
		{ErrUnknownNode, protocol.ErrUnknownNode, "E302"},
		{drake.ErrDragging, protocol.ErrNotDraggable, "E303"},
		{protocol.ErrUnknownAction, protocol.ErrInvalidAction, "E201"},
		{ErrActionQueueFull, protocol.ErrRateLimited, "E305"},
		{errors.New("boom"), protocol.ErrServerError, "E306"},
	}
	for _, tt := range tests {
		wire, reg := errorCode(tt.err)
		if wire != tt.wire || reg != tt.reg {
			t.Errorf("errorCode(%v) = %v, %s; want %v, %s", tt.err, wire, reg, tt.wire, tt.reg)
		}
	}
}
