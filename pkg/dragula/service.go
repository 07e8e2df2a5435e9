package dragula

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/vango-dev/dragula/pkg/bus"
	"github.com/vango-dev/dragula/pkg/drake"
	"github.com/vango-dev/dragula/pkg/model"
	"github.com/vango-dev/dragula/pkg/schedule"
)

// ErrDuplicateName is matched by DuplicateNameError.
var ErrDuplicateName = errors.New("dragula: bag already exists")

// DuplicateNameError is returned by Add when a bag with the same name is
// already registered. The registry is left unchanged.
type DuplicateNameError struct {
	Service string
	Name    string
}

func (e *DuplicateNameError) Error() string {
	return fmt.Sprintf("dragula: bag named %q already exists for service %q", e.Name, e.Service)
}

// Is reports whether target is ErrDuplicateName.
func (e *DuplicateNameError) Is(target error) bool {
	return target == ErrDuplicateName
}

// Engine is the drag engine handle a bag wraps.
type Engine interface {
	// On registers a handler for one lifecycle event type.
	On(t drake.EventType, h drake.Handler)

	// Emit raises an event to the engine's handlers.
	Emit(e drake.Event)

	// Cancel ends the current drag; with revert the engine undoes its own
	// DOM change.
	Cancel(revert bool)

	// Destroy releases the engine.
	Destroy()

	// Models returns the model bindings attached at creation, if any.
	Models() model.Bindings
}

// EventBus is the shared bus lifecycle events are republished on.
type EventBus interface {
	bus.Emitter
	bus.Subscriber
}

// Factory builds an engine from options. It backs SetOptions.
type Factory func(opts drake.Options) Engine

// Service is a registry of named bags sharing one event bus.
//
// A Service is owned by a single event loop: registration and every drag
// event it reacts to must happen on that loop. It holds no locks.
type Service struct {
	name      string
	bus       EventBus
	bags      []*Bag
	scheduler schedule.Scheduler
	factory   Factory
	logging   bool
	logger    *slog.Logger
	mutated   MutationFunc
}

// Model mutation kinds.
const (
	MutationReorder  = "reorder"
	MutationTransfer = "transfer"
	MutationCopy     = "copy"
	MutationRemove   = "remove"
)

// MutationFunc is told the kind of each model change a bag makes. A
// transfer is reported when the item lands in the target, before its
// deferred source removal.
type MutationFunc func(bag, kind string)

// Option configures a Service.
type Option func(*Service)

// WithName sets the service name used in logs and errors.
func WithName(name string) Option {
	return func(s *Service) {
		s.name = name
	}
}

// WithScheduler sets the scheduler that defers source removal after a
// cross-container move. The default is a FrameScheduler; whoever owns the
// service must Tick it (see Scheduler).
func WithScheduler(sched schedule.Scheduler) Option {
	return func(s *Service) {
		s.scheduler = sched
	}
}

// WithFactory sets the engine factory used by SetOptions.
func WithFactory(f Factory) Option {
	return func(s *Service) {
		s.factory = f
	}
}

// WithMutationFunc sets the function told about model changes.
func WithMutationFunc(fn MutationFunc) Option {
	return func(s *Service) {
		s.mutated = fn
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithLogging enables per-operation debug logging.
func WithLogging(enabled bool) Option {
	return func(s *Service) {
		s.logging = enabled
	}
}

// New creates a Service publishing on eventBus.
func New(eventBus EventBus, opts ...Option) *Service {
	s := &Service{
		name:      "dragula",
		bus:       eventBus,
		scheduler: schedule.NewFrameScheduler(schedule.DefaultFrames),
		factory:   func(o drake.Options) Engine { return drake.New(o) },
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "dragula", "service", s.name)
	return s
}

// Name returns the service name.
func (s *Service) Name() string {
	return s.name
}

// Scheduler returns the scheduler deferred removals are queued on.
func (s *Service) Scheduler() schedule.Scheduler {
	return s.scheduler
}

// log writes a debug record when logging is enabled.
func (s *Service) log(op string, args ...any) {
	if !s.logging {
		return
	}
	s.logger.Debug(op, args...)
}

// Add registers engine under name. It wires model synchronization when the
// engine carries model bindings, and replicates the engine's lifecycle
// events onto the bus.
func (s *Service) Add(name string, engine Engine) (*Bag, error) {
	s.log("add", "bag", name)

	if s.Find(name) != nil {
		return nil, &DuplicateNameError{Service: s.name, Name: name}
	}

	bag := &Bag{
		Name:  name,
		Drake: engine,
	}
	s.bags = append(s.bags, bag)

	if len(engine.Models()) > 0 {
		s.handleModels(bag)
	}
	if !bag.initEvents {
		s.setupEvents(bag)
	}
	return bag, nil
}

// Find returns the bag registered under name, or nil.
func (s *Service) Find(name string) *Bag {
	s.log("find", "bag", name)

	for _, bag := range s.bags {
		if bag.Name == name {
			return bag
		}
	}
	return nil
}

// Bags returns the registered bags in registration order.
func (s *Service) Bags() []*Bag {
	out := make([]*Bag, len(s.bags))
	copy(out, s.bags)
	return out
}

// Destroy unregisters the bag named name and destroys its engine.
// Unknown names are ignored.
func (s *Service) Destroy(name string) {
	s.log("destroy", "bag", name)

	for i, bag := range s.bags {
		if bag.Name != name {
			continue
		}
		s.bags = append(s.bags[:i], s.bags[i+1:]...)
		bag.Drake.Destroy()
		return
	}
}

// SetOptions builds a fresh engine from opts and registers it under name.
// An existing bag of that name is destroyed first.
func (s *Service) SetOptions(name string, opts drake.Options) (*Bag, error) {
	s.log("setOptions", "bag", name, "models", len(opts.Models))

	if s.Find(name) != nil {
		s.Destroy(name)
	}
	bag, err := s.Add(name, s.factory(opts))
	if err != nil {
		return nil, err
	}
	s.handleModels(bag)
	return bag, nil
}

// On attaches every handler in handlers to the bus, keyed by event name.
// It returns a function that detaches them all.
func (s *Service) On(handlers map[string]bus.Handler) func() {
	offs := make([]func(), 0, len(handlers))
	for event, h := range handlers {
		offs = append(offs, s.bus.On(event, h))
	}
	return func() {
		for _, off := range offs {
			off()
		}
	}
}
