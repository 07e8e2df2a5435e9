package server

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vango-dev/dragula/pkg/protocol"
	"github.com/vango-dev/dragula/pkg/snapshot"
)

// ReadLoop continuously reads frames from the WebSocket connection.
// Actions are queued for the event loop; control frames are answered here.
// This method blocks until the connection is closed or an error occurs.
func (s *Session) ReadLoop() {
	defer s.Close()

	for {
		s.conn.SetReadDeadline(time.Now().Add(s.config.ReadTimeout))

		_, msg, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure) {
				s.logger.Error("read error", "error", err)
			}
			return
		}

		s.UpdateLastActive()
		s.bytesRecv.Add(uint64(len(msg)))

		frame, err := protocol.DecodeFrame(msg)
		if err != nil {
			s.logger.Error("frame decode error", "error", err)
			s.sendErrorMessage(protocol.ErrInvalidFrame, 0, err.Error())
			continue
		}

		switch frame.Type {
		case protocol.FrameAction:
			s.handleActionFrame(frame.Payload)

		case protocol.FrameControl:
			if s.handleControlFrame(frame.Payload) {
				return
			}

		default:
			s.logger.Warn("unexpected frame type", "type", frame.Type)
			s.sendErrorMessage(protocol.ErrInvalidFrame, 0, "unexpected frame type "+frame.Type.String())
		}
	}
}

// handleActionFrame decodes and queues an action from the client.
func (s *Session) handleActionFrame(payload []byte) {
	a, err := protocol.DecodeAction(payload)
	if err != nil {
		s.logger.Error("action decode error", "error", err)
		s.sendErrorMessage(protocol.ErrInvalidAction, 0, "invalid action format")
		return
	}
	if err := s.QueueAction(a); err != nil {
		code, reg := errorCode(err)
		s.metrics.ObserveAction(a.Kind.String(), 0, reg)
		s.sendErrorMessage(code, a.Seq, "action queue full")
	}
}

// handleControlFrame answers pings and reports whether the client asked to
// close.
func (s *Session) handleControlFrame(payload []byte) bool {
	c, err := protocol.DecodeControl(payload)
	if err != nil {
		s.logger.Error("control decode error", "error", err)
		return false
	}

	switch c.Type {
	case protocol.ControlPing:
		s.sendPong(c.Timestamp)
	case protocol.ControlPong:
		s.logger.Debug("received pong")
	case protocol.ControlClose:
		s.logger.Info("client closing", "reason", c.Reason, "message", c.Message)
		return true
	}
	return false
}

// WriteLoop sends heartbeat pings until the session is closed.
func (s *Session) WriteLoop() {
	ticker := time.NewTicker(s.config.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := s.sendPing(); err != nil {
				return
			}

		case <-s.done:
			return
		}
	}
}

// EventLoop owns the workspace. It applies queued actions, runs dispatched
// callbacks, and advances the frame clock that releases deferred removals.
func (s *Session) EventLoop() {
	defer s.teardown()

	var frames <-chan time.Time
	if s.ws.frames != nil && s.config.FrameInterval > 0 {
		ticker := time.NewTicker(s.config.FrameInterval)
		defer ticker.Stop()
		frames = ticker.C
	}

	for {
		select {
		case a := <-s.actions:
			s.handleAction(a)

		case fn := <-s.dispatchCh:
			s.executeDispatch(fn)

		case <-frames:
			s.tick()

		case <-s.done:
			return
		}
	}
}

// handleAction applies one action and sends the containers it changed.
func (s *Session) handleAction(a *protocol.Action) {
	start := time.Now()
	s.actionCount.Add(1)
	s.recvSeq.Store(a.Seq)

	var span trace.Span
	if s.tracer != nil {
		_, span = s.tracer.Start(context.Background(), "dragula."+a.Kind.String(),
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("dragula.session", s.ID),
				attribute.String("dragula.bag", a.Bag),
				attribute.Int64("dragula.seq", int64(a.Seq)),
			),
		)
		defer span.End()
	}

	err := s.apply(a)

	reg := ""
	if err != nil {
		var code protocol.ErrorCode
		code, reg = errorCode(err)
		s.logger.Warn("action failed",
			"seq", a.Seq,
			"kind", a.Kind,
			"bag", a.Bag,
			"code", reg,
			"error", err)
		s.sendErrorMessage(code, a.Seq, err.Error())
		if span != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
	} else if span != nil {
		span.SetStatus(codes.Ok, "")
	}
	s.metrics.ObserveAction(a.Kind.String(), time.Since(start), reg)

	s.sendRender(s.ws.Render())
}

// apply runs a against the workspace, turning a panic into an error.
func (s *Session) apply(a *protocol.Action) (err error) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("action panic",
				"seq", a.Seq,
				"panic", r,
				"stack", string(debug.Stack()))
			err = fmt.Errorf("action %s panicked: %v", a.Kind, r)
		}
	}()
	return s.ws.Apply(a)
}

// executeDispatch runs a dispatched function and sends whatever it changed.
func (s *Session) executeDispatch(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("dispatch panic",
				"panic", r,
				"stack", string(debug.Stack()))
		}
	}()

	fn()
	s.sendRender(s.ws.Render())
}

// tick advances the frame clock while removals are waiting.
func (s *Session) tick() {
	if s.ws.Pending() == 0 {
		return
	}
	if s.ws.Tick() > 0 {
		s.sendRender(s.ws.Render())
	}
}

// teardown releases the workspace once the event loop stops.
func (s *Session) teardown() {
	if s.offBus != nil {
		s.offBus()
	}
	s.ws.Settle()

	if s.store != nil && s.snapshotOnClose {
		ctx, cancel := context.WithTimeout(context.Background(), s.config.WriteTimeout)
		snap := snapshot.Capture(s.ws.Board, s.ID)
		if err := s.store.Save(ctx, snap); err != nil {
			s.logger.Error("snapshot on close failed", "error", err)
		} else {
			s.logger.Info("snapshot saved", "snapshot_id", snap.ID)
		}
		cancel()
	}

	s.ws.Close()
	s.metrics.SessionEnded()
	if s.onClose != nil {
		s.onClose(s)
	}
}

// Start starts all session loops.
// This should be called after the handshake is complete.
func (s *Session) Start() {
	go s.ReadLoop()
	go s.WriteLoop()
	go s.EventLoop()
}
