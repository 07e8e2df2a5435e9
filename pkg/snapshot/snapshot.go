package snapshot

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/vango-dev/dragula/pkg/board"
)

// ErrNotFound is returned when a snapshot doesn't exist.
var ErrNotFound = errors.New("snapshot: not found")

// ErrInvalidID is returned for IDs that are not snapshot IDs.
var ErrInvalidID = errors.New("snapshot: invalid id")

// Snapshot is the state of every column of a board at one instant.
type Snapshot struct {
	ID      string           `json:"id"`
	Session string           `json:"session,omitempty"`
	Board   string           `json:"board"`
	Taken   time.Time        `json:"taken"`
	Models  map[string][]any `json:"models"`
}

// Columns returns the column names in sorted order.
func (s *Snapshot) Columns() []string {
	names := make([]string, 0, len(s.Models))
	for name := range s.Models {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Capture records the current models of b.
func Capture(b *board.Board, session string) *Snapshot {
	return &Snapshot{
		ID:      uuid.NewString(),
		Session: session,
		Board:   b.Name,
		Taken:   time.Now().UTC(),
		Models:  b.Models(),
	}
}

// Store is the interface for snapshot storage backends.
type Store interface {
	// Save stores s under s.ID, replacing any earlier snapshot with that ID.
	Save(ctx context.Context, s *Snapshot) error

	// Load returns the snapshot with the given ID.
	Load(ctx context.Context, id string) (*Snapshot, error)

	// List returns the IDs of all stored snapshots.
	List(ctx context.Context) ([]string, error)

	// Delete removes a snapshot. Deleting a missing snapshot is not an error.
	Delete(ctx context.Context, id string) error
}

func checkID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrInvalidID
	}
	return nil
}
