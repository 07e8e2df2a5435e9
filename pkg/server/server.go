package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	dragerrors "github.com/vango-dev/dragula/internal/errors"
	"github.com/vango-dev/dragula/pkg/metrics"
	"github.com/vango-dev/dragula/pkg/middleware"
	"github.com/vango-dev/dragula/pkg/protocol"
	"github.com/vango-dev/dragula/pkg/snapshot"
)

// Server is the HTTP/WebSocket server. Each WebSocket connection gets its
// own session and workspace.
type Server struct {
	config     *ServerConfig
	upgrader   websocket.Upgrader
	sessions   *SessionManager
	router     chi.Router
	httpServer *http.Server
	tracer     trace.Tracer
	logger     *slog.Logger
}

// New creates a server. A nil config uses DefaultServerConfig.
func New(config *ServerConfig) *Server {
	if config == nil {
		config = DefaultServerConfig()
	}
	config = config.withDefaults()

	s := &Server{
		config: config,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		sessions: NewSessionManager(config.SessionConfig, config.MaxSessions, config.Logger),
		logger:   config.Logger.With("component", "server"),
	}
	if config.Tracing {
		s.tracer = otel.Tracer(config.TracerName)
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	if s.config.Tracing {
		r.Use(middleware.OpenTelemetry(middleware.WithTracerName(s.config.TracerName)))
	}
	if s.config.Registerer != nil {
		r.Use(middleware.Prometheus(
			middleware.WithRegistry(s.config.Registerer),
			middleware.WithNamespace(s.config.MetricsNamespace),
		))
	}

	r.Get("/ws", s.HandleWebSocket)
	r.Get("/healthz", s.handleHealth)

	if s.config.Metrics != nil || s.config.Gatherer != nil {
		g := s.config.Gatherer
		if g == nil {
			g = prometheus.DefaultGatherer
		}
		r.Handle(s.config.MetricsPath, metrics.Handler(g))
	}

	r.Route("/sessions", func(r chi.Router) {
		r.Get("/", s.handleSessions)
		r.Get("/{id}/models", s.handleModels)
		r.Post("/{id}/snapshot", s.handleSnapshot)
	})
	r.Route("/snapshots", func(r chi.Router) {
		r.Get("/", s.handleListSnapshots)
		r.Get("/{id}", s.handleGetSnapshot)
	})
	return r
}

// Handler returns the server's routes for mounting in another router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// HandleWebSocket upgrades the connection, performs the hello exchange,
// sends the initial render of every container and starts the session loops.
func (s *Server) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	sc := s.config.SessionConfig
	conn.SetReadLimit(sc.MaxMessageSize)
	conn.SetReadDeadline(time.Now().Add(sc.HandshakeTimeout))

	_, msg, err := conn.ReadMessage()
	if err != nil {
		s.logger.Error("handshake read failed", "error", err)
		conn.Close()
		return
	}

	frame, err := protocol.DecodeFrame(msg)
	if err != nil || frame.Type != protocol.FrameHello {
		s.logger.Warn("handshake frame rejected", "error", err)
		s.sendHelloError(conn, protocol.HelloInvalidFormat)
		return
	}
	hello, err := protocol.DecodeClientHello(frame.Payload)
	if err != nil {
		s.sendHelloError(conn, protocol.HelloInvalidFormat)
		return
	}
	if !hello.Version.Compatible() {
		s.logger.Warn("protocol version mismatch",
			"client", hello.Client,
			"major", hello.Version.Major,
			"minor", hello.Version.Minor)
		s.sendHelloError(conn, protocol.HelloVersionMismatch)
		return
	}

	session, err := s.sessions.Create(conn)
	if err != nil {
		s.logger.Warn("session rejected", "error", err, "sessions", s.sessions.Count())
		s.sendHelloError(conn, protocol.HelloServerBusy)
		return
	}
	session.metrics = s.config.Metrics
	session.tracer = s.tracer
	session.store = s.config.Store
	session.snapshotOnClose = s.config.SnapshotOnClose

	ws, err := NewWorkspace(WorkspaceOptions{
		Name:       s.config.ServiceName,
		Bags:       s.config.Bags,
		Logging:    s.config.Logging,
		Logger:     session.logger,
		Frames:     sc.TransitionFrames,
		Delay:      sc.TransitionDelay,
		Dispatch:   session.Dispatch,
		OnPending:  s.config.Metrics.AddPending,
		OnMutation: s.config.Metrics.Mutation,
	})
	if err != nil {
		s.logger.Error("workspace setup failed", "error", err)
		s.sendHelloError(conn, protocol.HelloInternalError)
		s.sessions.Close(session.ID)
		return
	}
	session.attach(ws)
	conn.SetReadDeadline(time.Time{})

	sh := protocol.NewServerHello(session.ID, uint64(time.Now().UnixMilli()), ws.Bags())
	if err := session.writeFrame(protocol.FrameHello, protocol.EncodeServerHello(sh)); err != nil {
		s.logger.Error("server hello failed", "error", err)
		ws.Close()
		s.sessions.Close(session.ID)
		return
	}
	session.sendRender(ws.Columns())

	s.config.Metrics.SessionStarted()
	session.logger.Info("session started",
		"client", hello.Client,
		"bags", len(sh.Bags),
		"remote", r.RemoteAddr)
	session.Start()
}

// sendHelloError answers a failed hello and closes the connection.
func (s *Server) sendHelloError(conn *websocket.Conn, status protocol.HelloStatus) {
	payload := protocol.EncodeServerHello(protocol.NewServerHelloError(status))
	frame := protocol.NewFrame(protocol.FrameHello, payload)
	conn.SetWriteDeadline(time.Now().Add(s.config.SessionConfig.WriteTimeout))
	conn.WriteMessage(websocket.BinaryMessage, frame.Encode())
	conn.Close()
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"sessions": s.sessions.Count(),
	})
}

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	stats := make([]SessionStats, 0, s.sessions.Count())
	s.sessions.ForEach(func(sess *Session) bool {
		stats = append(stats, sess.Stats())
		return true
	})
	writeJSON(w, http.StatusOK, map[string]any{
		"manager":  s.sessions.Stats(),
		"sessions": stats,
	})
}

// session resolves the {id} URL parameter, writing a 404 when it is unknown.
func (s *Server) session(w http.ResponseWriter, r *http.Request) *Session {
	id := chi.URLParam(r, "id")
	sess := s.sessions.Get(id)
	if sess == nil || sess.IsClosed() {
		writeError(w, http.StatusNotFound, dragerrors.New("E300").WithSource(id))
		return nil
	}
	return sess
}

func (s *Server) handleModels(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	if sess == nil {
		return
	}
	models, err := sess.Models(r.Context())
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, dragerrors.New("E300").WithSource(sess.ID).Wrap(err))
		return
	}
	writeJSON(w, http.StatusOK, models)
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	if s.config.Store == nil {
		writeError(w, http.StatusNotImplemented, dragerrors.New("E400").Wrap(ErrNoSnapshotStore))
		return
	}
	sess := s.session(w, r)
	if sess == nil {
		return
	}
	snap, err := sess.Snapshot(r.Context(), s.config.Store)
	if err != nil {
		if errors.Is(err, ErrSessionClosed) {
			writeError(w, http.StatusNotFound, dragerrors.New("E300").WithSource(sess.ID))
			return
		}
		s.logger.Error("snapshot failed", "session_id", sess.ID, "error", err)
		writeError(w, http.StatusInternalServerError, dragerrors.New("E401").WithSource(sess.ID).Wrap(err))
		return
	}
	writeJSON(w, http.StatusCreated, snap)
}

func (s *Server) handleListSnapshots(w http.ResponseWriter, r *http.Request) {
	if s.config.Store == nil {
		writeError(w, http.StatusNotImplemented, dragerrors.New("E400").Wrap(ErrNoSnapshotStore))
		return
	}
	ids, err := s.config.Store.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, dragerrors.New("E400").Wrap(err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"snapshots": ids})
}

func (s *Server) handleGetSnapshot(w http.ResponseWriter, r *http.Request) {
	if s.config.Store == nil {
		writeError(w, http.StatusNotImplemented, dragerrors.New("E400").Wrap(ErrNoSnapshotStore))
		return
	}
	id := chi.URLParam(r, "id")
	snap, err := s.config.Store.Load(r.Context(), id)
	switch {
	case errors.Is(err, snapshot.ErrNotFound), errors.Is(err, snapshot.ErrInvalidID):
		writeError(w, http.StatusNotFound, dragerrors.New("E402").WithSource(id))
	case err != nil:
		writeError(w, http.StatusInternalServerError, dragerrors.New("E400").WithSource(id).Wrap(err))
	default:
		writeJSON(w, http.StatusOK, snap)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err *dragerrors.DragError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write([]byte(err.FormatJSON()))
}

// Run starts the server and blocks until it fails or receives SIGINT or
// SIGTERM, in which case it shuts down gracefully.
func (s *Server) Run() error {
	s.httpServer = &http.Server{
		Addr:         s.config.Address,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(shutdown)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", "address", s.config.Address, "bags", len(s.config.Bags))
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != http.ErrServerClosed {
			return err
		}
		return nil

	case <-shutdown:
		s.logger.Info("shutting down...")
		return s.Shutdown(context.Background())
	}
}

// Shutdown closes every session, then stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
	defer cancel()

	s.sessions.Shutdown(s.config.ShutdownTimeout)

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.logger.Error("shutdown error", "error", err)
			return err
		}
	}

	s.logger.Info("server shutdown complete")
	return nil
}

// Sessions returns the session manager.
func (s *Server) Sessions() *SessionManager {
	return s.sessions
}

// Config returns the server configuration.
func (s *Server) Config() *ServerConfig {
	return s.config
}

// Logger returns the server logger.
func (s *Server) Logger() *slog.Logger {
	return s.logger
}
