// Package snapshot records and stores the models of a board.
//
// A Snapshot is a point-in-time copy of every column's items, keyed by
// column name. Stores persist snapshots as JSON:
//
//   - DiskStore writes one file per snapshot into a directory.
//   - S3Store writes one object per snapshot into a bucket.
//
// Snapshot IDs are UUIDs; stores reject any other ID so that an ID can never
// name a path outside the store.
//
// Example:
//
//	store, err := snapshot.NewDiskStore("snapshots")
//	if err != nil {
//	    return err
//	}
//	snap := snapshot.Capture(b, sessionID)
//	if err := store.Save(ctx, snap); err != nil {
//	    return err
//	}
package snapshot
