package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/vango-dev/dragula/internal/config"
	"github.com/vango-dev/dragula/pkg/metrics"
	"github.com/vango-dev/dragula/pkg/schedule"
	"github.com/vango-dev/dragula/pkg/snapshot"
)

// SessionConfig holds configuration for individual sessions.
type SessionConfig struct {
	// ReadTimeout is the maximum time to wait for a message from the client.
	// Default: 60 seconds.
	ReadTimeout time.Duration

	// WriteTimeout is the maximum time to wait when sending a message.
	// Default: 10 seconds.
	WriteTimeout time.Duration

	// HandshakeTimeout is the maximum time for the initial handshake.
	// Default: 10 seconds.
	HandshakeTimeout time.Duration

	// HeartbeatInterval is the time between heartbeat pings.
	// Default: 30 seconds.
	HeartbeatInterval time.Duration

	// MaxMessageSize is the maximum size of an incoming WebSocket message.
	// Default: 64KB.
	MaxMessageSize int64

	// MaxActionQueue is the size of the action channel buffer.
	// Default: 256.
	MaxActionQueue int

	// FrameInterval is the period of the session's frame clock.
	// Default: 16ms.
	FrameInterval time.Duration

	// TransitionFrames is how many frames a cross-container move waits
	// before the item leaves its source list. Default: 2.
	TransitionFrames int

	// TransitionDelay, when set, replaces the frame clock with a fixed delay.
	TransitionDelay time.Duration
}

// DefaultSessionConfig returns a SessionConfig with sensible defaults.
func DefaultSessionConfig() *SessionConfig {
	return &SessionConfig{
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      10 * time.Second,
		HandshakeTimeout:  10 * time.Second,
		HeartbeatInterval: 30 * time.Second,
		MaxMessageSize:    64 * 1024, // 64KB
		MaxActionQueue:    256,
		FrameInterval:     config.DefaultFrameInterval,
		TransitionFrames:  schedule.DefaultFrames,
	}
}

// ServerConfig holds configuration for the HTTP/WebSocket server.
type ServerConfig struct {
	// Address is the address to listen on (e.g., ":8080" or "localhost:3000").
	Address string

	// ServiceName names the dragula service of every session.
	ServiceName string

	// Logging enables per-operation debug logging in each session's service.
	Logging bool

	// Logger is the parent of every server and session logger.
	// Default: slog.Default().
	Logger *slog.Logger

	// Bags are the drag groups every session serves.
	Bags []config.BagConfig

	// WebSocket buffer sizes
	ReadBufferSize  int
	WriteBufferSize int

	// CheckOrigin validates the Origin header. Default: allow all.
	CheckOrigin func(r *http.Request) bool

	// SessionConfig is applied to every session.
	SessionConfig *SessionConfig

	// MaxSessions caps concurrent sessions (0 = unlimited).
	MaxSessions int

	// HTTP timeouts
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	// Metrics receives session and action measurements. Nil disables them.
	Metrics *metrics.Metrics

	// Gatherer backs the /metrics endpoint. Nil with Metrics set serves the
	// default gatherer; nil without Metrics disables the endpoint.
	Gatherer prometheus.Gatherer

	// MetricsPath is where metrics are served. Default: "/metrics".
	MetricsPath string

	// Registerer receives the HTTP request metrics. Nil disables them.
	Registerer prometheus.Registerer

	// MetricsNamespace prefixes the HTTP request metrics. Default: "dragula".
	MetricsNamespace string

	// Tracing enables one OpenTelemetry span per client action.
	Tracing bool

	// TracerName names the tracer taken from the global provider.
	TracerName string

	// Store receives snapshots. Nil disables the snapshot endpoint.
	Store snapshot.Store

	// SnapshotOnClose saves every session's models when it ends.
	SnapshotOnClose bool
}

// DefaultServerConfig returns a ServerConfig with sensible defaults.
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		Address:         ":7420",
		ServiceName:     config.DefaultServiceName,
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     func(r *http.Request) bool { return true },
		SessionConfig:   DefaultSessionConfig(),
		MaxSessions:     config.DefaultMaxSessions,
		ReadTimeout:     60 * time.Second,
		WriteTimeout:    10 * time.Second,
		IdleTimeout:     120 * time.Second,
		ShutdownTimeout: 30 * time.Second,
		MetricsPath:     config.DefaultMetricsPath,
		TracerName:      config.DefaultServiceName,
	}
}

// FromProject builds a ServerConfig from a loaded project config. Metrics,
// Gatherer, Registerer and Store are left for the caller to attach.
func FromProject(cfg *config.Config) *ServerConfig {
	sc := DefaultServerConfig()
	sc.Address = cfg.Address()
	sc.ServiceName = cfg.Service.Name
	sc.Logging = cfg.Service.Logging
	sc.Bags = cfg.Bags
	sc.MaxSessions = cfg.Server.MaxSessions
	if cfg.Server.ReadTimeout > 0 {
		sc.ReadTimeout = cfg.Server.ReadTimeout.Std()
		sc.SessionConfig.ReadTimeout = cfg.Server.ReadTimeout.Std()
	}
	if cfg.Server.WriteTimeout > 0 {
		sc.WriteTimeout = cfg.Server.WriteTimeout.Std()
		sc.SessionConfig.WriteTimeout = cfg.Server.WriteTimeout.Std()
	}
	if cfg.Server.IdleTimeout > 0 {
		sc.IdleTimeout = cfg.Server.IdleTimeout.Std()
	}
	if cfg.Server.ShutdownTimeout > 0 {
		sc.ShutdownTimeout = cfg.Server.ShutdownTimeout.Std()
	}
	sc.SessionConfig.FrameInterval = cfg.Server.FrameInterval.Std()
	sc.SessionConfig.TransitionFrames = cfg.Server.TransitionFrames
	sc.SessionConfig.TransitionDelay = cfg.Server.TransitionDelay.Std()
	sc.MetricsPath = cfg.Metrics.Path
	sc.MetricsNamespace = cfg.Metrics.Namespace
	sc.Tracing = cfg.Tracing.Enabled
	sc.TracerName = cfg.Tracing.TracerName
	sc.SnapshotOnClose = cfg.Snapshot.OnClose
	return sc
}

// withDefaults fills unset fields from DefaultServerConfig.
func (c *ServerConfig) withDefaults() *ServerConfig {
	out := *c
	defaults := DefaultServerConfig()
	if out.Address == "" {
		out.Address = defaults.Address
	}
	if out.ServiceName == "" {
		out.ServiceName = defaults.ServiceName
	}
	if out.ReadBufferSize == 0 {
		out.ReadBufferSize = defaults.ReadBufferSize
	}
	if out.WriteBufferSize == 0 {
		out.WriteBufferSize = defaults.WriteBufferSize
	}
	if out.CheckOrigin == nil {
		out.CheckOrigin = defaults.CheckOrigin
	}
	if out.SessionConfig == nil {
		out.SessionConfig = defaults.SessionConfig
	} else {
		sc := *out.SessionConfig
		d := defaults.SessionConfig
		if sc.ReadTimeout == 0 {
			sc.ReadTimeout = d.ReadTimeout
		}
		if sc.WriteTimeout == 0 {
			sc.WriteTimeout = d.WriteTimeout
		}
		if sc.HandshakeTimeout == 0 {
			sc.HandshakeTimeout = d.HandshakeTimeout
		}
		if sc.HeartbeatInterval == 0 {
			sc.HeartbeatInterval = d.HeartbeatInterval
		}
		if sc.MaxMessageSize == 0 {
			sc.MaxMessageSize = d.MaxMessageSize
		}
		if sc.MaxActionQueue == 0 {
			sc.MaxActionQueue = d.MaxActionQueue
		}
		if sc.FrameInterval == 0 {
			sc.FrameInterval = d.FrameInterval
		}
		if sc.TransitionFrames == 0 {
			sc.TransitionFrames = d.TransitionFrames
		}
		out.SessionConfig = &sc
	}
	if out.ShutdownTimeout == 0 {
		out.ShutdownTimeout = defaults.ShutdownTimeout
	}
	if out.MetricsPath == "" {
		out.MetricsPath = defaults.MetricsPath
	}
	if out.MetricsNamespace == "" {
		out.MetricsNamespace = config.DefaultServiceName
	}
	if out.Logger == nil {
		out.Logger = slog.Default()
	}
	if out.TracerName == "" {
		out.TracerName = out.ServiceName
	}
	return &out
}
