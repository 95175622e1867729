package sync

import (
	"context"

	"go.uber.org/zap"

	"github.com/HayashidaReo/nikken-sync/internal/localstore"
	"github.com/HayashidaReo/nikken-sync/internal/logger"
	"github.com/HayashidaReo/nikken-sync/internal/model"
	"github.com/HayashidaReo/nikken-sync/internal/remote"
)

// Uploader pushes pending local edits to the remote store.
type Uploader struct {
	local  *localstore.Store
	remote remote.Store
}

func NewUploader(local *localstore.Store, rs remote.Store) *Uploader {
	return &Uploader{local: local, remote: rs}
}

// Run pushes every unsynced record for the tournament and returns how many
// succeeded. Each record is handled in isolation: a tombstone becomes a
// remote delete followed by the local hard-delete, anything else a
// full-document upsert followed by the synced flip. That order matters: a
// record is never marked synced before the remote store has acknowledged.
// One record's failure is logged and skipped, never fatal to the batch.
// Order across types (matches, groups, team matches) is advisory: groups
// are pushed as full documents, so a bout arriving before its group still
// resolves once both are up.
func (u *Uploader) Run(ctx context.Context, orgID, tournamentID string) (int, error) {
	pending, err := u.local.CountUnsynced(ctx, orgID, tournamentID)
	if err != nil {
		return 0, err
	}
	if pending == 0 {
		return 0, nil
	}

	synced := 0
	synced += pushAll(ctx, u.local.Matches, orgID, tournamentID,
		func(model.Synced[model.Match]) remote.Collection[model.Match] {
			return u.remote.Matches(orgID, tournamentID)
		})
	synced += pushAll(ctx, u.local.MatchGroups, orgID, tournamentID,
		func(model.Synced[model.MatchGroup]) remote.Collection[model.MatchGroup] {
			return u.remote.MatchGroups(orgID, tournamentID)
		})
	synced += pushAll(ctx, u.local.TeamMatches, orgID, tournamentID,
		func(rec model.Synced[model.TeamMatch]) remote.Collection[model.TeamMatch] {
			return u.remote.TeamMatches(orgID, tournamentID, rec.Data.MatchGroupID)
		})

	logger.Log.Info("Uploaded local results",
		zap.String("tournamentID", tournamentID),
		zap.Int("pending", pending),
		zap.Int("synced", synced),
	)
	return synced, nil
}

// pushAll pushes one collection's unsynced records. The target collection
// is resolved per record because nested collections (team matches) depend
// on the record's group.
func pushAll[T model.Entity](
	ctx context.Context,
	local *localstore.Collection[T],
	orgID, tournamentID string,
	target func(model.Synced[T]) remote.Collection[T],
) int {
	recs, err := local.GetUnsynced(ctx, orgID, tournamentID)
	if err != nil {
		logger.Log.Error("Failed to collect unsynced records",
			zap.String("collection", local.Table()), zap.Error(err))
		return 0
	}

	synced := 0
	for _, rec := range recs {
		if err := pushOne(ctx, local, target(rec), rec); err != nil {
			logger.Log.Error("Failed to sync record",
				zap.String("collection", local.Table()),
				zap.String("id", rec.ID()),
				zap.Error(err),
			)
			continue
		}
		synced++
	}
	return synced
}

func pushOne[T model.Entity](
	ctx context.Context,
	local *localstore.Collection[T],
	target remote.Collection[T],
	rec model.Synced[T],
) error {
	if rec.Deleted {
		if err := target.Delete(ctx, rec.ID()); err != nil {
			return err
		}
		return local.HardDelete(ctx, rec.ID())
	}

	if err := target.Update(ctx, rec.Data); err != nil {
		return err
	}
	return local.MarkSynced(ctx, rec.ID())
}
