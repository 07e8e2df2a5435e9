package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vango-dev/dragula/internal/config"
	"github.com/vango-dev/dragula/internal/errors"
	"github.com/vango-dev/dragula/pkg/board"
	"github.com/vango-dev/dragula/pkg/drake"
	"github.com/vango-dev/dragula/pkg/protocol"
	"github.com/vango-dev/dragula/pkg/server"
	"github.com/vango-dev/dragula/pkg/snapshot"
)

// Step is one line of a replay script. Items are addressed by container and
// index as they are rendered when the step runs.
type Step struct {
	Op        string `json:"op"`
	Bag       string `json:"bag,omitempty"`
	Container string `json:"container,omitempty"`
	Index     int    `json:"index,omitempty"`
	Target    string `json:"target,omitempty"` // Empty means outside every container
	Before    *int   `json:"before,omitempty"` // Sibling index in Target; nil drops at the end
	Revert    bool   `json:"revert,omitempty"`
	Frames    int    `json:"frames,omitempty"`
}

var stepKinds = map[string]protocol.ActionKind{
	"start":   protocol.ActionStart,
	"over":    protocol.ActionOver,
	"release": protocol.ActionRelease,
	"cancel":  protocol.ActionCancel,
	"remove":  protocol.ActionRemove,
}

// EventRecord is one replicated event as printed by replay.
type EventRecord struct {
	Step int      `json:"step"`
	Name string   `json:"name"`
	Bag  string   `json:"bag"`
	Args []string `json:"args,omitempty"`
}

// ReplayResult is what a replay produced.
type ReplayResult struct {
	Events   []EventRecord    `json:"events"`
	Models   map[string][]any `json:"models"`
	Snapshot string           `json:"snapshot,omitempty"`
}

type replayOptions struct {
	immediate bool
	noSettle  bool
	save      bool
	asJSON    bool
}

func replayCmd(flags *globalFlags) *cobra.Command {
	var opts replayOptions

	cmd := &cobra.Command{
		Use:   "replay <script.json>",
		Short: "Run a drag script against the configured bags",
		Long: `Replay a scripted drag session without a browser.

The script is a JSON array of steps. Each step has an op and the fields
that op needs:

  {"op": "start",   "bag": "kanban", "container": "todo", "index": 0}
  {"op": "over",    "bag": "kanban", "target": "done", "before": 0}
  {"op": "release", "bag": "kanban", "target": "done"}
  {"op": "cancel",  "bag": "kanban", "revert": true}
  {"op": "remove",  "bag": "kanban"}
  {"op": "tick",    "frames": 2}
  {"op": "settle"}

Every replicated event is printed, then the final models. Use "-" to
read the script from stdin.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			logger, err := newLogger(cfg, flags, cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			var r io.Reader = cmd.InOrStdin()
			if args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return errors.New("E500").WithSource(args[0]).Wrap(err)
				}
				defer f.Close()
				r = f
			}
			steps, err := parseScript(r)
			if err != nil {
				return err
			}

			var store snapshot.Store
			if opts.save {
				if store, err = openStore(cfg); err != nil {
					return err
				}
				if store == nil {
					return errors.New("E400").WithDetail("--save needs snapshot.driver to be set.")
				}
			}

			result, err := runReplay(cmd.Context(), cfg, steps, opts, logger, store)
			if err != nil {
				return err
			}
			return printResult(cmd.OutOrStdout(), result, opts.asJSON)
		},
	}

	cmd.Flags().BoolVar(&opts.immediate, "immediate", false, "Remove moved items from their source at once instead of after the transition")
	cmd.Flags().BoolVar(&opts.noSettle, "no-settle", false, "Leave deferred removals pending at the end")
	cmd.Flags().BoolVar(&opts.save, "save", false, "Save the final models to the snapshot store")
	cmd.Flags().BoolVar(&opts.asJSON, "json", false, "Print the result as JSON")

	return cmd
}

// parseScript decodes and checks a replay script.
func parseScript(r io.Reader) ([]Step, error) {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()

	var steps []Step
	if err := dec.Decode(&steps); err != nil {
		return nil, errors.New("E500").Wrap(err)
	}
	for i, s := range steps {
		source := fmt.Sprintf("step %d", i+1)
		switch s.Op {
		case "tick", "settle":
		case "start":
			if s.Bag == "" || s.Container == "" {
				return nil, errors.New("E500").WithSource(source).WithDetail("start needs a bag and a container.")
			}
		case "over", "release", "cancel", "remove":
			if s.Bag == "" {
				return nil, errors.New("E500").WithSource(source).WithDetail(s.Op + " needs a bag.")
			}
		default:
			return nil, errors.New("E500").WithSource(source).WithDetail(fmt.Sprintf("Unknown op %q.", s.Op))
		}
	}
	return steps, nil
}

// runReplay plays steps against a fresh workspace built from cfg.
func runReplay(ctx context.Context, cfg *config.Config, steps []Step, opts replayOptions, logger *slog.Logger, store snapshot.Store) (*ReplayResult, error) {
	ws, err := server.NewWorkspace(server.WorkspaceOptions{
		Name:      cfg.Service.Name,
		Bags:      cfg.Bags,
		Logging:   cfg.Service.Logging,
		Logger:    logger,
		Frames:    cfg.Server.TransitionFrames,
		Immediate: opts.immediate,
	})
	if err != nil {
		return nil, errors.New("E103").Wrap(err)
	}
	defer ws.Close()

	result := &ReplayResult{}
	current := 0
	for _, t := range drake.Lifecycle {
		name := t.String()
		off := ws.Bus.On(name, func(args []any) {
			ev := protocol.NewEvent(0, name, args)
			rec := EventRecord{Step: current, Name: name, Bag: ev.Bag}
			for _, a := range ev.Args {
				rec.Args = append(rec.Args, a.String())
			}
			result.Events = append(result.Events, rec)
		})
		defer off()
	}

	for i, s := range steps {
		current = i + 1
		if err := replayStep(ws, s); err != nil {
			return nil, errors.New("E501").WithSource(fmt.Sprintf("step %d (%s)", current, s.Op)).Wrap(err)
		}
		// Redraw so the next step's indexes match the models.
		ws.Render()
	}

	if !opts.noSettle {
		ws.Settle()
		ws.Render()
	}
	result.Models = ws.Models()

	if store != nil {
		snap := snapshot.Capture(ws.Board, "replay")
		if err := store.Save(ctx, snap); err != nil {
			return nil, errors.New("E401").Wrap(err)
		}
		result.Snapshot = snap.ID
	}
	return result, nil
}

func replayStep(ws *server.Workspace, s Step) error {
	switch s.Op {
	case "tick":
		frames := s.Frames
		if frames <= 0 {
			frames = 1
		}
		for i := 0; i < frames; i++ {
			ws.Tick()
		}
		return nil
	case "settle":
		ws.Settle()
		return nil
	}

	a := &protocol.Action{Kind: stepKinds[s.Op], Bag: s.Bag, Revert: s.Revert}
	switch a.Kind {
	case protocol.ActionStart:
		item := ws.Item(s.Bag, s.Container, s.Index)
		if item == nil {
			return fmt.Errorf("no item %d in %s/%s", s.Index, s.Bag, s.Container)
		}
		a.Item = item.HID

	case protocol.ActionOver, protocol.ActionRelease:
		if s.Target != "" {
			target := ws.Container(s.Bag, s.Target)
			if target == nil {
				return fmt.Errorf("no container %s/%s", s.Bag, s.Target)
			}
			a.Target = target.HID
		}
		if s.Before != nil {
			sibling := ws.Item(s.Bag, s.Target, *s.Before)
			if sibling == nil {
				return fmt.Errorf("no item %d in %s/%s", *s.Before, s.Bag, s.Target)
			}
			a.Sibling = sibling.HID
		}
	}
	return ws.Apply(a)
}

// printResult writes result as text or JSON.
func printResult(w io.Writer, result *ReplayResult, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	for _, ev := range result.Events {
		fmt.Fprintf(w, "%3d  %-12s %-10s %s\n", ev.Step, ev.Name, ev.Bag, strings.Join(ev.Args, " "))
	}
	fmt.Fprintln(w)

	printModels(w, result.Models)
	if result.Snapshot != "" {
		fmt.Fprintln(w)
		success(w, "Saved snapshot %s", result.Snapshot)
	}
	return nil
}

// printModels writes one line per column, sorted by column name.
func printModels(w io.Writer, models map[string][]any) {
	names := make([]string, 0, len(models))
	for name := range models {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		items := make([]string, 0, len(models[name]))
		for _, item := range models[name] {
			items = append(items, itemLabel(item))
		}
		fmt.Fprintf(w, "%-20s [%s]\n", name, strings.Join(items, ", "))
	}
}

// itemLabel names an item by its card ID. Decoded snapshots hold cards as
// JSON objects.
func itemLabel(item any) string {
	switch v := item.(type) {
	case *board.Card:
		return v.ID
	case map[string]any:
		if id, ok := v["id"].(string); ok {
			return id
		}
	}
	return fmt.Sprint(item)
}
