package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/vango-dev/dragula/internal/errors"
	"github.com/vango-dev/dragula/pkg/board"
	"github.com/vango-dev/dragula/pkg/schedule"
)

const (
	// ConfigFileName is the name of the JSON configuration file.
	ConfigFileName = "dragula.json"

	// TOMLFileName is the name of the TOML configuration file.
	TOMLFileName = "dragula.toml"

	// DefaultServiceName is the service name used when none is configured.
	DefaultServiceName = "dragula"

	// DefaultPort is the default server port.
	DefaultPort = 7420

	// DefaultHost is the default server host.
	DefaultHost = "localhost"

	// DefaultFrameInterval is the render frame period of a session.
	DefaultFrameInterval = 16 * time.Millisecond

	// DefaultMaxSessions caps concurrent sessions.
	DefaultMaxSessions = 1000

	// DefaultMetricsPath is where Prometheus metrics are served.
	DefaultMetricsPath = "/metrics"

	// DefaultSnapshotDir is the disk store directory.
	DefaultSnapshotDir = "snapshots"
)

// Snapshot store drivers.
const (
	DriverNone = ""
	DriverDisk = "disk"
	DriverS3   = "s3"
)

// Duration is a time.Duration that reads and writes as a Go duration string
// ("250ms", "30s") in both JSON and TOML.
type Duration time.Duration

// UnmarshalText parses a duration string.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// MarshalText formats the duration.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Config represents the complete dragula.json / dragula.toml configuration.
type Config struct {
	// Service configures the bag registry.
	Service ServiceConfig `json:"service" toml:"service"`

	// Server configures the websocket host.
	Server ServerConfig `json:"server" toml:"server"`

	// Metrics configures Prometheus instrumentation.
	Metrics MetricsConfig `json:"metrics" toml:"metrics"`

	// Tracing configures OpenTelemetry spans.
	Tracing TracingConfig `json:"tracing" toml:"tracing"`

	// Snapshot configures where model snapshots are stored.
	Snapshot SnapshotConfig `json:"snapshot" toml:"snapshot"`

	// Bags are the drag groups every session serves.
	Bags []BagConfig `json:"bags,omitempty" toml:"bags,omitempty"`

	// configPath stores the path where the config was loaded from.
	configPath string
}

// ServiceConfig configures the dragula service.
type ServiceConfig struct {
	// Name identifies the service in logs.
	Name string `json:"name,omitempty" toml:"name,omitempty"`

	// Logging enables debug logging of every registry operation.
	Logging bool `json:"logging,omitempty" toml:"logging,omitempty"`

	// LogLevel is the minimum slog level: debug, info, warn or error.
	LogLevel string `json:"logLevel,omitempty" toml:"log_level,omitempty"`
}

// ServerConfig configures the HTTP and websocket server.
type ServerConfig struct {
	Host string `json:"host,omitempty" toml:"host,omitempty"`
	Port int    `json:"port,omitempty" toml:"port,omitempty"`

	ReadTimeout     Duration `json:"readTimeout,omitempty" toml:"read_timeout,omitempty"`
	WriteTimeout    Duration `json:"writeTimeout,omitempty" toml:"write_timeout,omitempty"`
	IdleTimeout     Duration `json:"idleTimeout,omitempty" toml:"idle_timeout,omitempty"`
	ShutdownTimeout Duration `json:"shutdownTimeout,omitempty" toml:"shutdown_timeout,omitempty"`

	// FrameInterval is how often a session advances its frame clock.
	FrameInterval Duration `json:"frameInterval,omitempty" toml:"frame_interval,omitempty"`

	// TransitionFrames is how many frames a cross-container move waits
	// before the item leaves its source list.
	TransitionFrames int `json:"transitionFrames,omitempty" toml:"transition_frames,omitempty"`

	// TransitionDelay replaces the frame clock with a fixed delay when set.
	TransitionDelay Duration `json:"transitionDelay,omitempty" toml:"transition_delay,omitempty"`

	// MaxSessions caps concurrent sessions.
	MaxSessions int `json:"maxSessions,omitempty" toml:"max_sessions,omitempty"`
}

// MetricsConfig configures Prometheus metrics.
type MetricsConfig struct {
	Enabled   bool   `json:"enabled,omitempty" toml:"enabled,omitempty"`
	Path      string `json:"path,omitempty" toml:"path,omitempty"`
	Namespace string `json:"namespace,omitempty" toml:"namespace,omitempty"`
}

// TracingConfig configures OpenTelemetry tracing.
type TracingConfig struct {
	Enabled    bool   `json:"enabled,omitempty" toml:"enabled,omitempty"`
	TracerName string `json:"tracerName,omitempty" toml:"tracer_name,omitempty"`
}

// SnapshotConfig configures the snapshot store.
type SnapshotConfig struct {
	// Driver is "disk", "s3", or empty to disable snapshots.
	Driver string `json:"driver,omitempty" toml:"driver,omitempty"`

	// Dir is the disk store directory.
	Dir string `json:"dir,omitempty" toml:"dir,omitempty"`

	// Bucket, Prefix, Region, Endpoint and PathStyle configure the S3 store.
	Bucket    string `json:"bucket,omitempty" toml:"bucket,omitempty"`
	Prefix    string `json:"prefix,omitempty" toml:"prefix,omitempty"`
	Region    string `json:"region,omitempty" toml:"region,omitempty"`
	Endpoint  string `json:"endpoint,omitempty" toml:"endpoint,omitempty"`
	PathStyle bool   `json:"pathStyle,omitempty" toml:"path_style,omitempty"`

	// OnClose snapshots a session's models when it ends.
	OnClose bool `json:"onClose,omitempty" toml:"on_close,omitempty"`
}

// BagConfig defines one drag group and the containers it spans.
type BagConfig struct {
	Name           string            `json:"name" toml:"name"`
	Copy           bool              `json:"copy,omitempty" toml:"copy,omitempty"`
	CopySortSource bool              `json:"copySortSource,omitempty" toml:"copy_sort_source,omitempty"`
	RevertOnSpill  bool              `json:"revertOnSpill,omitempty" toml:"revert_on_spill,omitempty"`
	RemoveOnSpill  bool              `json:"removeOnSpill,omitempty" toml:"remove_on_spill,omitempty"`
	Containers     []ContainerConfig `json:"containers" toml:"containers"`
}

// ContainerConfig is a container and the cards it starts with.
type ContainerConfig struct {
	Name  string       `json:"name" toml:"name"`
	Items []board.Card `json:"items,omitempty" toml:"items,omitempty"`
}

// New creates a new Config with default values.
func New() *Config {
	return &Config{
		Service: ServiceConfig{
			Name:     DefaultServiceName,
			LogLevel: "info",
		},
		Server: ServerConfig{
			Host:             DefaultHost,
			Port:             DefaultPort,
			ReadTimeout:      Duration(60 * time.Second),
			WriteTimeout:     Duration(10 * time.Second),
			IdleTimeout:      Duration(120 * time.Second),
			ShutdownTimeout:  Duration(30 * time.Second),
			FrameInterval:    Duration(DefaultFrameInterval),
			TransitionFrames: schedule.DefaultFrames,
			MaxSessions:      DefaultMaxSessions,
		},
		Metrics: MetricsConfig{
			Path:      DefaultMetricsPath,
			Namespace: DefaultServiceName,
		},
		Tracing: TracingConfig{
			TracerName: DefaultServiceName,
		},
		Snapshot: SnapshotConfig{
			Dir: DefaultSnapshotDir,
		},
	}
}

// Load reads configuration from the specified directory. dragula.json takes
// precedence over dragula.toml.
func Load(dir string) (*Config, error) {
	for _, name := range []string{ConfigFileName, TOMLFileName} {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return LoadFile(path)
		}
	}
	return nil, errors.New("E100").
		WithDetail("No " + ConfigFileName + " or " + TOMLFileName + " found in " + dir)
}

// LoadFile reads configuration from the specified file path. The format is
// chosen by extension.
func LoadFile(path string) (*Config, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".json" && ext != ".toml" {
		return nil, errors.New("E104").WithSource(path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New("E100").
				WithSource(path).
				WithDetail("No config file at " + path)
		}
		return nil, errors.New("E101").WithSource(path).Wrap(err)
	}

	cfg := New()
	if ext == ".toml" {
		err = toml.Unmarshal(data, cfg)
	} else {
		err = json.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, errors.New("E101").
			WithSource(path).
			WithDetail("Failed to parse " + filepath.Base(path) + ": " + err.Error())
	}

	cfg.configPath = path
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		if de, ok := err.(*errors.DragError); ok {
			return nil, de.WithSource(path)
		}
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration to the file it was loaded from.
func (c *Config) Save() error {
	if c.configPath == "" {
		return errors.Newf(errors.CategoryConfig, "no config path set")
	}
	return c.SaveTo(c.configPath)
}

// SaveTo writes the configuration to path, as TOML when path ends in .toml
// and JSON otherwise.
func (c *Config) SaveTo(path string) error {
	var data []byte
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		var buf bytes.Buffer
		if err := toml.NewEncoder(&buf).Encode(c); err != nil {
			return errors.New("E101").Wrap(err)
		}
		data = buf.Bytes()
	} else {
		out, err := json.MarshalIndent(c, "", "  ")
		if err != nil {
			return errors.New("E101").Wrap(err)
		}
		data = append(out, '\n')
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.New("E101").WithSource(path).Wrap(err)
	}

	c.configPath = path
	return nil
}

// Path returns the path where the config was loaded from.
func (c *Config) Path() string {
	return c.configPath
}

// Dir returns the directory containing the config file.
func (c *Config) Dir() string {
	if c.configPath == "" {
		return ""
	}
	return filepath.Dir(c.configPath)
}

// applyDefaults fills in default values for empty fields.
func (c *Config) applyDefaults() {
	if c.Service.Name == "" {
		c.Service.Name = DefaultServiceName
	}
	if c.Service.LogLevel == "" {
		c.Service.LogLevel = "info"
	}

	if c.Server.Host == "" {
		c.Server.Host = DefaultHost
	}
	if c.Server.Port == 0 {
		c.Server.Port = DefaultPort
	}
	if c.Server.FrameInterval == 0 {
		c.Server.FrameInterval = Duration(DefaultFrameInterval)
	}
	if c.Server.TransitionFrames == 0 {
		c.Server.TransitionFrames = schedule.DefaultFrames
	}
	if c.Server.MaxSessions == 0 {
		c.Server.MaxSessions = DefaultMaxSessions
	}

	if c.Metrics.Path == "" {
		c.Metrics.Path = DefaultMetricsPath
	}
	if c.Metrics.Namespace == "" {
		c.Metrics.Namespace = DefaultServiceName
	}
	if c.Tracing.TracerName == "" {
		c.Tracing.TracerName = c.Service.Name
	}
	if c.Snapshot.Dir == "" {
		c.Snapshot.Dir = DefaultSnapshotDir
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return errors.New("E102").
			WithDetail("server.port must be between 0 and 65535")
	}
	if c.Server.TransitionFrames < 0 {
		return errors.New("E102").
			WithDetail("server.transitionFrames must not be negative")
	}
	if c.Server.FrameInterval < 0 || c.Server.TransitionDelay < 0 {
		return errors.New("E102").
			WithDetail("server durations must not be negative")
	}
	if _, err := c.Level(); err != nil {
		return errors.New("E102").
			WithDetail("service.logLevel: " + err.Error())
	}

	switch c.Snapshot.Driver {
	case DriverNone, DriverDisk:
	case DriverS3:
		if c.Snapshot.Bucket == "" {
			return errors.New("E102").
				WithDetail("snapshot.bucket is required for the s3 driver")
		}
	default:
		return errors.New("E102").
			WithDetail(fmt.Sprintf("unknown snapshot driver %q", c.Snapshot.Driver))
	}

	seen := make(map[string]bool, len(c.Bags))
	for i, bag := range c.Bags {
		if bag.Name == "" {
			return errors.New("E102").
				WithDetail("bags[" + strconv.Itoa(i) + "] has no name")
		}
		if seen[bag.Name] {
			return errors.New("E103").
				WithDetail(fmt.Sprintf("bag %q is defined more than once", bag.Name))
		}
		seen[bag.Name] = true

		containers := make(map[string]bool, len(bag.Containers))
		for _, cc := range bag.Containers {
			if cc.Name == "" || containers[cc.Name] {
				return errors.New("E102").
					WithDetail(fmt.Sprintf("bag %q needs unique, non-empty container names", bag.Name))
			}
			containers[cc.Name] = true
		}
	}
	return nil
}

// Level returns the configured slog level.
func (c *Config) Level() (slog.Level, error) {
	var level slog.Level
	err := level.UnmarshalText([]byte(c.Service.LogLevel))
	return level, err
}

// Address returns the host:port the server listens on.
func (c *Config) Address() string {
	return c.Server.Host + ":" + strconv.Itoa(c.Server.Port)
}

// Bag returns the bag definition named name.
func (c *Config) Bag(name string) (BagConfig, bool) {
	for _, bag := range c.Bags {
		if bag.Name == name {
			return bag, true
		}
	}
	return BagConfig{}, false
}

// SnapshotPath returns the absolute path to the disk snapshot directory.
func (c *Config) SnapshotPath() string {
	if filepath.IsAbs(c.Snapshot.Dir) {
		return c.Snapshot.Dir
	}
	return filepath.Join(c.Dir(), c.Snapshot.Dir)
}

// Exists reports whether a config file exists in the given directory.
func Exists(dir string) bool {
	for _, name := range []string{ConfigFileName, TOMLFileName} {
		if _, err := os.Stat(filepath.Join(dir, name)); err == nil {
			return true
		}
	}
	return false
}

// FindProjectRoot walks up directories to find the project root.
// Returns the directory containing a config file, or an error if not found.
func FindProjectRoot(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}

	for {
		if Exists(dir) {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", errors.New("E100").
				WithDetail("No config file found in " + startDir + " or any parent directory")
		}
		dir = parent
	}
}

// LoadFromWorkingDir loads configuration from the current working directory
// or the nearest parent holding a config file.
func LoadFromWorkingDir() (*Config, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}

	root, err := FindProjectRoot(wd)
	if err != nil {
		return nil, err
	}

	return Load(root)
}
