package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/vango-dev/dragula/internal/config"
	"github.com/vango-dev/dragula/internal/errors"
	"github.com/vango-dev/dragula/pkg/snapshot"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// globalFlags are shared by every command.
type globalFlags struct {
	configPath string
	logLevel   string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		errors.PrintError(err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var flags globalFlags

	rootCmd := &cobra.Command{
		Use:   "dragula",
		Short: "Server-side drag and drop with model synchronization",
		Long: `dragula keeps server-side lists in step with drag and drop.

Browsers report pointer actions over a WebSocket; the server runs the
drag engine against its own container tree, updates the bound models,
and sends back the replicated events and the redrawn containers.

Bags and their containers are defined in dragula.json or dragula.toml.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "Config file (default: nearest dragula.json or dragula.toml)")
	rootCmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "Log level: debug, info, warn, error (default from config)")

	rootCmd.AddCommand(
		serveCmd(&flags),
		replayCmd(&flags),
		snapshotsCmd(&flags),
		versionCmd(),
	)
	return rootCmd
}

// loadConfig reads the file named by --config, or the nearest project config.
func loadConfig(flags *globalFlags) (*config.Config, error) {
	if flags.configPath != "" {
		return config.LoadFile(flags.configPath)
	}
	return config.LoadFromWorkingDir()
}

// newLogger builds the text logger every command logs through. The
// --log-level flag wins over the configured level.
func newLogger(cfg *config.Config, flags *globalFlags, w io.Writer) (*slog.Logger, error) {
	level, err := cfg.Level()
	if flags.logLevel != "" {
		err = level.UnmarshalText([]byte(flags.logLevel))
	}
	if err != nil {
		return nil, errors.New("E102").WithSource("log level").Wrap(err)
	}
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	return slog.New(handler).With("service", cfg.Service.Name), nil
}

// openStore opens the configured snapshot store. It returns nil when no
// driver is configured.
func openStore(cfg *config.Config) (snapshot.Store, error) {
	switch cfg.Snapshot.Driver {
	case config.DriverNone:
		return nil, nil
	case config.DriverDisk:
		store, err := snapshot.NewDiskStore(cfg.SnapshotPath())
		if err != nil {
			return nil, errors.New("E400").WithSource(cfg.SnapshotPath()).Wrap(err)
		}
		return store, nil
	case config.DriverS3:
		client := snapshot.NewS3Client(snapshot.S3Options{
			Region:    cfg.Snapshot.Region,
			Endpoint:  cfg.Snapshot.Endpoint,
			PathStyle: cfg.Snapshot.PathStyle,
		})
		return snapshot.NewS3Store(client, cfg.Snapshot.Bucket, cfg.Snapshot.Prefix), nil
	default:
		return nil, errors.New("E102").WithSource("snapshot.driver").
			WithDetail(fmt.Sprintf("Unknown snapshot driver %q.", cfg.Snapshot.Driver))
	}
}

// success prints a success message.
func success(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "\033[32m✓\033[0m %s\n", fmt.Sprintf(format, args...))
}

// info prints an info message.
func info(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "  %s\n", fmt.Sprintf(format, args...))
}
