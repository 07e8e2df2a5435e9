package server

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/vango-dev/dragula/internal/config"
	"github.com/vango-dev/dragula/pkg/board"
	"github.com/vango-dev/dragula/pkg/bus"
	"github.com/vango-dev/dragula/pkg/dragula"
	"github.com/vango-dev/dragula/pkg/drake"
	"github.com/vango-dev/dragula/pkg/model"
	"github.com/vango-dev/dragula/pkg/protocol"
	"github.com/vango-dev/dragula/pkg/schedule"
	"github.com/vango-dev/dragula/pkg/vdom"
)

// WorkspaceOptions configures NewWorkspace.
type WorkspaceOptions struct {
	// Name names the board and the dragula service.
	Name string

	// Bags defines the bags and their seeded containers.
	Bags []config.BagConfig

	// Logging enables the service's per-operation debug logging.
	Logging bool

	Logger *slog.Logger

	// Frames is how many Ticks a deferred source removal waits.
	Frames int

	// Delay, when positive, defers removals by wall-clock time instead of
	// frames. Tasks are handed to Dispatch, which must run them on the
	// workspace's goroutine. Dispatch is required when Delay is set.
	Delay    time.Duration
	Dispatch func(func())

	// Immediate runs deferred removals synchronously.
	Immediate bool

	// OnPending is told each time the number of deferred removals changes.
	OnPending func(delta int)

	// OnMutation is told the bag and kind of every model change.
	OnMutation dragula.MutationFunc
}

// Workspace is one session's drag world: a board holding the containers of
// every bag, the bus the bags publish on, and the dragula service that keeps
// the board's models in step with the engines.
//
// A Workspace is owned by a single goroutine and is not safe for concurrent
// use.
type Workspace struct {
	Board   *board.Board
	Bus     *bus.Bus
	Service *dragula.Service

	frames    *schedule.FrameScheduler
	delay     *schedule.DelayScheduler
	pending   int
	onPending func(delta int)
	bags      []string
	logger    *slog.Logger
}

// ColumnName is the board column that holds container of bag.
func ColumnName(bag, container string) string {
	return bag + "/" + container
}

// countingScheduler tracks how many deferred tasks have not run yet.
type countingScheduler struct {
	inner schedule.Scheduler
	ws    *Workspace
}

func (c countingScheduler) Defer(fn func()) {
	c.ws.addPending(1)
	c.inner.Defer(func() {
		c.ws.addPending(-1)
		fn()
	})
}

// NewWorkspace builds the board and registers one bag per definition.
func NewWorkspace(opts WorkspaceOptions) (*Workspace, error) {
	if opts.Delay > 0 && !opts.Immediate && opts.Dispatch == nil {
		return nil, ErrNoDispatch
	}
	if opts.Name == "" {
		opts.Name = config.DefaultServiceName
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	ws := &Workspace{
		Board:     board.New(opts.Name),
		Bus:       bus.New(),
		onPending: opts.OnPending,
		logger:    logger,
	}
	ws.Bus.SetLogger(logger)

	var inner schedule.Scheduler
	switch {
	case opts.Immediate:
		inner = schedule.Immediate{}
	case opts.Delay > 0:
		ws.delay = schedule.NewDelayScheduler(opts.Delay, opts.Dispatch)
		inner = ws.delay
	default:
		frames := opts.Frames
		if frames <= 0 {
			frames = schedule.DefaultFrames
		}
		ws.frames = schedule.NewFrameScheduler(frames)
		inner = ws.frames
	}

	ws.Service = dragula.New(ws.Bus,
		dragula.WithName(opts.Name),
		dragula.WithScheduler(countingScheduler{inner: inner, ws: ws}),
		dragula.WithLogger(logger),
		dragula.WithLogging(opts.Logging),
		dragula.WithMutationFunc(opts.OnMutation),
	)

	for _, bc := range opts.Bags {
		if ws.Service.Find(bc.Name) != nil {
			return nil, &dragula.DuplicateNameError{Service: opts.Name, Name: bc.Name}
		}
		columns := make([]string, 0, len(bc.Containers))
		for _, cc := range bc.Containers {
			items := make([]any, 0, len(cc.Items))
			for i := range cc.Items {
				card := cc.Items[i]
				items = append(items, &card)
			}
			name := ColumnName(bc.Name, cc.Name)
			ws.Board.AddColumn(name, items...)
			columns = append(columns, name)
		}
		var bindings model.Bindings
		if len(columns) > 0 {
			bindings = ws.Board.Bindings(columns...)
		}
		_, err := ws.Service.SetOptions(bc.Name, drake.Options{
			Models:         bindings,
			Copy:           bc.Copy,
			CopySortSource: bc.CopySortSource,
			RevertOnSpill:  bc.RevertOnSpill,
			RemoveOnSpill:  bc.RemoveOnSpill,
		})
		if err != nil {
			return nil, err
		}
		ws.bags = append(ws.bags, bc.Name)
	}
	return ws, nil
}

func (ws *Workspace) addPending(delta int) {
	ws.pending += delta
	if ws.onPending != nil {
		ws.onPending(delta)
	}
}

// Bags returns the bag names in definition order.
func (ws *Workspace) Bags() []string {
	return append([]string(nil), ws.bags...)
}

// Pending returns the number of deferred removals that have not run.
func (ws *Workspace) Pending() int {
	return ws.pending
}

// Tick advances the frame clock and returns how many deferred tasks ran.
// It does nothing when removals are not frame-scheduled.
func (ws *Workspace) Tick() int {
	if ws.frames == nil {
		return 0
	}
	return ws.frames.Tick()
}

// Settle runs every deferred removal that is still waiting, whether it is
// counting frames or waiting on a timer.
func (ws *Workspace) Settle() int {
	n := 0
	if ws.frames != nil {
		n += ws.frames.Drain()
	}
	if ws.delay != nil {
		n += ws.delay.Drain()
	}
	return n
}

// Render redraws every column and returns the ones that changed.
func (ws *Workspace) Render() []*board.Column {
	return ws.Board.RenderAll()
}

// RenderFrame encodes cols as a render frame.
func (ws *Workspace) RenderFrame(seq uint64, cols []*board.Column) *protocol.RenderFrame {
	rf := &protocol.RenderFrame{Seq: seq, Containers: make([]protocol.Render, 0, len(cols))}
	for _, c := range cols {
		rf.Containers = append(rf.Containers, protocol.RenderOf(c.Container))
	}
	return rf
}

// Columns returns every column in creation order.
func (ws *Workspace) Columns() []*board.Column {
	return ws.Board.Columns()
}

// Models returns every column's items keyed by column name.
func (ws *Workspace) Models() map[string][]any {
	return ws.Board.Models()
}

// Container returns the node of container in bag, or nil.
func (ws *Workspace) Container(bag, container string) *vdom.VNode {
	c := ws.Board.Column(ColumnName(bag, container))
	if c == nil {
		return nil
	}
	return c.Container
}

// Item returns the element at index in container as the engine currently
// sees it, or nil when out of range.
func (ws *Workspace) Item(bag, container string, index int) *vdom.VNode {
	c := ws.Container(bag, container)
	if c == nil {
		return nil
	}
	kids := c.ElementChildren()
	if index < 0 || index >= len(kids) {
		return nil
	}
	return kids[index]
}

func (ws *Workspace) engine(bag string) (*drake.Drake, error) {
	b := ws.Service.Find(bag)
	if b == nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownBag, bag)
	}
	d, ok := b.Drake.(*drake.Drake)
	if !ok {
		return nil, fmt.Errorf("%w: %q has no drake engine", ErrUnknownBag, bag)
	}
	return d, nil
}

// node resolves hid. An empty hid is a nil node.
func (ws *Workspace) node(hid string) (*vdom.VNode, error) {
	if hid == "" {
		return nil, nil
	}
	n := ws.Board.Lookup(hid)
	if n == nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownNode, hid)
	}
	return n, nil
}

// Apply runs a client action against its bag's engine.
func (ws *Workspace) Apply(a *protocol.Action) error {
	d, err := ws.engine(a.Bag)
	if err != nil {
		return err
	}

	switch a.Kind {
	case protocol.ActionStart:
		item, err := ws.node(a.Item)
		if err != nil {
			return err
		}
		if item == nil {
			return fmt.Errorf("%w: start without item", ErrUnknownNode)
		}
		return d.Start(item)

	case protocol.ActionOver, protocol.ActionRelease:
		target, err := ws.node(a.Target)
		if err != nil {
			return err
		}
		sibling, err := ws.node(a.Sibling)
		if err != nil {
			return err
		}
		if a.Kind == protocol.ActionOver {
			d.Over(target, sibling)
		} else {
			d.Release(target, sibling)
		}
		return nil

	case protocol.ActionCancel:
		d.Cancel(a.Revert)
		return nil

	case protocol.ActionRemove:
		d.Remove()
		return nil

	default:
		return protocol.ErrUnknownAction
	}
}

// Close destroys every bag. A drag in progress ends as a spill.
func (ws *Workspace) Close() {
	for _, name := range ws.bags {
		ws.Service.Destroy(name)
	}
	ws.bags = nil
}
