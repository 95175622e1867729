package localstore

import (
	"context"
	"errors"

	"github.com/HayashidaReo/nikken-sync/internal/model"
)

// ApplyRemote is the single write path for inbound replication. Every
// remote added/modified event must come through here so the cooperative
// invariant (never overwrite a record with pending local edits) lives in
// exactly one place.
//
// Rules:
//   - no local copy, or the local copy is synced: adopt the remote document
//     and mark it synced,
//   - the local copy is unsynced (this device's edit is newer): structural
//     fields stay untouched; only the collection's live fields (scores,
//     penalties on match collections) adopt the remote value, because
//     score-entry devices are authoritative in real time.
func (c *Collection[T]) ApplyRemote(ctx context.Context, rec model.Synced[T]) error {
	rec.IsSynced = true
	rec.Deleted = false

	existing, err := c.GetByID(ctx, rec.ID())
	if errors.Is(err, ErrNotFound) {
		return c.Put(ctx, rec)
	}
	if err != nil {
		return err
	}

	if existing.IsSynced {
		return c.Put(ctx, rec)
	}

	// Local wins until it syncs.
	if c.liveMerge == nil {
		return nil
	}
	merged, changed := c.liveMerge(existing.Data, rec.Data)
	if !changed {
		return nil
	}
	existing.Data = merged
	return c.Put(ctx, existing)
}

// RemoveRemote applies an inbound deletion: the remote copy is gone, so the
// local mirror drops the record entirely.
func (c *Collection[T]) RemoveRemote(ctx context.Context, id string) error {
	return c.HardDelete(ctx, id)
}
