package main

import (
	stderrors "errors"
	"time"

	"github.com/spf13/cobra"

	"github.com/vango-dev/dragula/internal/errors"
	"github.com/vango-dev/dragula/pkg/snapshot"
)

func snapshotsCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshots",
		Short: "Inspect saved snapshots",
		Long: `List and show the snapshots in the configured store.

Examples:
  dragula snapshots list
  dragula snapshots show 5b0c3f0e-8f5e-4a53-9c1f-3f6f3b0a9d41`,
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List stored snapshot IDs",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				store, err := requireStore(flags)
				if err != nil {
					return err
				}
				ids, err := store.List(cmd.Context())
				if err != nil {
					return errors.New("E401").Wrap(err)
				}
				w := cmd.OutOrStdout()
				if len(ids) == 0 {
					info(w, "No snapshots")
					return nil
				}
				for _, id := range ids {
					info(w, "%s", id)
				}
				return nil
			},
		},
		&cobra.Command{
			Use:   "show <id>",
			Short: "Print the models of one snapshot",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				store, err := requireStore(flags)
				if err != nil {
					return err
				}
				snap, err := store.Load(cmd.Context(), args[0])
				if err != nil {
					if stderrors.Is(err, snapshot.ErrNotFound) || stderrors.Is(err, snapshot.ErrInvalidID) {
						return errors.New("E402").WithSource(args[0]).Wrap(err)
					}
					return errors.New("E401").Wrap(err)
				}
				w := cmd.OutOrStdout()
				info(w, "Board:   %s", snap.Board)
				if snap.Session != "" {
					info(w, "Session: %s", snap.Session)
				}
				info(w, "Taken:   %s", snap.Taken.Format(time.RFC3339))
				printModels(w, snap.Models)
				return nil
			},
		},
	)
	return cmd
}

func requireStore(flags *globalFlags) (snapshot.Store, error) {
	cfg, err := loadConfig(flags)
	if err != nil {
		return nil, err
	}
	store, err := openStore(cfg)
	if err != nil {
		return nil, err
	}
	if store == nil {
		return nil, errors.New("E400").WithDetail("No snapshot.driver is configured.")
	}
	return store, nil
}
