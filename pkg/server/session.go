package server

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel/trace"

	"github.com/vango-dev/dragula/pkg/board"
	"github.com/vango-dev/dragula/pkg/drake"
	"github.com/vango-dev/dragula/pkg/metrics"
	"github.com/vango-dev/dragula/pkg/protocol"
	"github.com/vango-dev/dragula/pkg/snapshot"
)

// Session is a single WebSocket connection and the workspace it drives.
//
// The workspace is touched only by EventLoop. Other goroutines reach it
// through Dispatch or Call.
type Session struct {
	// Identity
	ID         string
	CreatedAt  time.Time
	LastActive atomic.Int64 // Unix nanoseconds

	// Connection
	conn   *websocket.Conn
	mu     sync.Mutex // Protects conn writes
	closed atomic.Bool

	// Sequence numbers
	sendSeq atomic.Uint64 // Last server frame sequence
	recvSeq atomic.Uint64 // Last client action sequence

	ws     *Workspace
	offBus func()

	// Channels
	actions    chan *protocol.Action // Incoming actions
	dispatchCh chan func()           // Functions to run on the event loop
	done       chan struct{}         // Shutdown signal

	config  *SessionConfig
	logger  *slog.Logger
	metrics *metrics.Metrics
	tracer  trace.Tracer // Nil disables action spans

	store           snapshot.Store
	snapshotOnClose bool
	onClose         func(*Session)

	// Counters
	actionCount atomic.Uint64
	eventCount  atomic.Uint64
	bytesSent   atomic.Uint64
	bytesRecv   atomic.Uint64
}

// newSessionID returns a time-ordered session ID.
func newSessionID() string {
	return ulid.Make().String()
}

// newSession creates a session over conn. The workspace is built by the
// caller so that its delay scheduler can dispatch onto this session.
func newSession(conn *websocket.Conn, config *SessionConfig, logger *slog.Logger) *Session {
	id := newSessionID()
	s := &Session{
		ID:         id,
		CreatedAt:  time.Now(),
		conn:       conn,
		actions:    make(chan *protocol.Action, config.MaxActionQueue),
		dispatchCh: make(chan func(), config.MaxActionQueue),
		done:       make(chan struct{}),
		config:     config,
		logger:     logger.With("session_id", id),
	}
	s.UpdateLastActive()
	return s
}

// attach binds ws to the session and forwards its bus events to the client.
func (s *Session) attach(ws *Workspace) {
	s.ws = ws
	if s.metrics != nil {
		offMetrics := s.metrics.Observe(ws.Bus)
		offClient := s.forwardEvents()
		s.offBus = func() {
			offMetrics()
			offClient()
		}
		return
	}
	s.offBus = s.forwardEvents()
}

// forwardEvents subscribes to every lifecycle event and sends it to the
// client as an event frame.
func (s *Session) forwardEvents() func() {
	handlers := make(map[string]func([]any), len(drake.Lifecycle))
	offs := make([]func(), 0, len(drake.Lifecycle))
	for _, t := range drake.Lifecycle {
		name := t.String()
		handlers[name] = func(args []any) {
			s.sendEvent(name, args)
		}
		offs = append(offs, s.ws.Bus.On(name, handlers[name]))
	}
	return func() {
		for _, off := range offs {
			off()
		}
	}
}

// Workspace returns the session's workspace. Use it only from the event
// loop, or through Dispatch or Call.
func (s *Session) Workspace() *Workspace {
	return s.ws
}

// writeFrame sends one frame. It is safe to call from any goroutine.
func (s *Session) writeFrame(ft protocol.FrameType, payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed.Load() {
		return ErrSessionClosed
	}
	if s.conn == nil {
		return ErrNoConnection
	}

	data := protocol.NewFrame(ft, payload).Encode()
	s.conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
	if err := s.conn.WriteMessage(websocket.BinaryMessage, data); err != nil {
		return err
	}
	s.bytesSent.Add(uint64(len(data)))
	return nil
}

// sendEvent forwards a bus emission to the client.
func (s *Session) sendEvent(name string, args []any) {
	ev := protocol.NewEvent(s.sendSeq.Add(1), name, args)
	if err := s.writeFrame(protocol.FrameEvent, protocol.EncodeEvent(ev)); err != nil {
		s.logger.Debug("event not sent", "event", name, "error", err)
		return
	}
	s.eventCount.Add(1)
}

// sendRender sends the given columns, if any.
func (s *Session) sendRender(cols []*board.Column) {
	if len(cols) == 0 {
		return
	}
	rf := s.ws.RenderFrame(s.sendSeq.Add(1), cols)
	if err := s.writeFrame(protocol.FrameRender, protocol.EncodeRenderFrame(rf)); err != nil {
		s.logger.Debug("render not sent", "error", err)
	}
}

// sendErrorMessage sends an error frame to the client.
func (s *Session) sendErrorMessage(code protocol.ErrorCode, seq uint64, message string) {
	em := protocol.NewError(code, message)
	em.Seq = seq
	if err := s.writeFrame(protocol.FrameError, protocol.EncodeErrorMessage(em)); err != nil {
		s.logger.Debug("error frame not sent", "code", code, "error", err)
	}
}

// sendPing sends a heartbeat ping to the client.
func (s *Session) sendPing() error {
	ping := protocol.NewPing(uint64(time.Now().UnixMilli()))
	err := s.writeFrame(protocol.FrameControl, protocol.EncodeControl(ping))
	if err != nil && err != ErrSessionClosed {
		s.logger.Error("ping error", "error", err)
	}
	return err
}

// sendPong answers a client ping.
func (s *Session) sendPong(timestamp uint64) {
	if err := s.writeFrame(protocol.FrameControl, protocol.EncodeControl(protocol.NewPong(timestamp))); err != nil {
		s.logger.Error("pong error", "error", err)
	}
}

// QueueAction queues an action for the event loop.
func (s *Session) QueueAction(a *protocol.Action) error {
	select {
	case s.actions <- a:
		return nil
	default:
		s.logger.Warn("action queue full, dropping action", "seq", a.Seq, "kind", a.Kind)
		return ErrActionQueueFull
	}
}

// Dispatch queues fn to run on the session's event loop. It is safe to call
// from any goroutine and blocks while the queue is full. Once the session is
// closing fn is not queued; deferred removals left that way are run by
// teardown.
func (s *Session) Dispatch(fn func()) {
	if s.closed.Load() {
		return
	}
	select {
	case s.dispatchCh <- fn:
	case <-s.done:
	}
}

// Call runs fn on the event loop and waits for it to finish.
func (s *Session) Call(ctx context.Context, fn func()) error {
	if s.closed.Load() {
		return ErrSessionClosed
	}
	finished := make(chan struct{})
	wrapped := func() {
		defer close(finished)
		fn()
	}
	select {
	case s.dispatchCh <- wrapped:
	case <-s.done:
		return ErrSessionClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-finished:
		return nil
	case <-s.done:
		return ErrSessionClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Models returns a copy of the session's models.
func (s *Session) Models(ctx context.Context) (map[string][]any, error) {
	var models map[string][]any
	if err := s.Call(ctx, func() { models = s.ws.Models() }); err != nil {
		return nil, err
	}
	return models, nil
}

// Snapshot captures the session's models on the event loop and saves them
// to store.
func (s *Session) Snapshot(ctx context.Context, store snapshot.Store) (*snapshot.Snapshot, error) {
	if store == nil {
		return nil, ErrNoSnapshotStore
	}
	var snap *snapshot.Snapshot
	if err := s.Call(ctx, func() { snap = snapshot.Capture(s.ws.Board, s.ID) }); err != nil {
		return nil, err
	}
	if err := store.Save(ctx, snap); err != nil {
		return nil, &SessionError{SessionID: s.ID, Op: "snapshot", Err: err}
	}
	return snap, nil
}

// UpdateLastActive updates the last activity timestamp.
func (s *Session) UpdateLastActive() {
	s.LastActive.Store(time.Now().UnixNano())
}

// Close gracefully closes the session.
func (s *Session) Close() {
	if s.closed.Swap(true) {
		return
	}
	close(s.done)

	s.mu.Lock()
	if s.conn != nil {
		s.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second),
		)
		s.conn.Close()
	}
	s.mu.Unlock()

	s.logger.Info("session closed",
		"actions", s.actionCount.Load(),
		"events", s.eventCount.Load(),
		"bytes_sent", s.bytesSent.Load(),
		"bytes_recv", s.bytesRecv.Load())
}

// IsClosed returns whether the session is closed.
func (s *Session) IsClosed() bool {
	return s.closed.Load()
}

// Done returns a channel that's closed when the session is done.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Stats returns session statistics.
func (s *Session) Stats() SessionStats {
	return SessionStats{
		ID:         s.ID,
		CreatedAt:  s.CreatedAt,
		LastActive: time.Unix(0, s.LastActive.Load()),
		Actions:    s.actionCount.Load(),
		Events:     s.eventCount.Load(),
		BytesSent:  s.bytesSent.Load(),
		BytesRecv:  s.bytesRecv.Load(),
	}
}

// SessionStats contains session statistics.
type SessionStats struct {
	ID         string    `json:"id"`
	CreatedAt  time.Time `json:"createdAt"`
	LastActive time.Time `json:"lastActive"`
	Actions    uint64    `json:"actions"`
	Events     uint64    `json:"events"`
	BytesSent  uint64    `json:"bytesSent"`
	BytesRecv  uint64    `json:"bytesRecv"`
}
