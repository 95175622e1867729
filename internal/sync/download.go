package sync

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/HayashidaReo/nikken-sync/internal/localstore"
	"github.com/HayashidaReo/nikken-sync/internal/logger"
	"github.com/HayashidaReo/nikken-sync/internal/model"
	"github.com/HayashidaReo/nikken-sync/internal/remote"
)

// Downloader performs the bootstrap sync: a full destructive replace of one
// tournament's local data from the remote store.
type Downloader struct {
	local  *localstore.Store
	remote remote.Store
}

func NewDownloader(local *localstore.Store, rs remote.Store) *Downloader {
	return &Downloader{local: local, remote: rs}
}

// Run fetches the tournament, its teams and, depending on tournament type,
// either the individual matches or the match groups with their bouts, then
// replaces the local mirror inside a single transaction. Any unsynced local
// edit for the tournament is lost; callers warn the user before invoking
// this. No local state is touched until every fetch has succeeded.
func (d *Downloader) Run(ctx context.Context, orgID, tournamentID string) error {
	tournament, err := d.remote.Tournaments(orgID).GetByID(ctx, tournamentID)
	if errors.Is(err, remote.ErrNotFound) {
		return ErrTournamentNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to fetch tournament: %w", err)
	}

	teams, err := d.remote.Teams(orgID, tournamentID).ListAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch teams: %w", err)
	}

	var (
		matches []model.Match
		groups  []model.MatchGroup
		bouts   []model.TeamMatch
	)
	if tournament.Type == model.TournamentTeam {
		groups, err = d.remote.MatchGroups(orgID, tournamentID).ListAll(ctx)
		if err != nil {
			return fmt.Errorf("failed to fetch match groups: %w", err)
		}
		for _, g := range groups {
			groupBouts, err := d.remote.TeamMatches(orgID, tournamentID, g.ID).ListAll(ctx)
			if err != nil {
				return fmt.Errorf("failed to fetch team matches for group %s: %w", g.ID, err)
			}
			bouts = append(bouts, groupBouts...)
		}
	} else {
		matches, err = d.remote.Matches(orgID, tournamentID).ListAll(ctx)
		if err != nil {
			return fmt.Errorf("failed to fetch matches: %w", err)
		}
	}

	err = d.local.ExecTx(ctx, func(tx *sql.Tx) error {
		if err := d.local.DeleteTournamentData(ctx, tx, orgID, tournamentID); err != nil {
			return err
		}
		if err := d.local.Tournaments.BulkPut(ctx, tx,
			syncedRecords([]model.Tournament{tournament}, orgID, tournamentID)); err != nil {
			return err
		}
		if err := d.local.Teams.BulkPut(ctx, tx, syncedRecords(teams, orgID, tournamentID)); err != nil {
			return err
		}
		if err := d.local.Matches.BulkPut(ctx, tx, syncedRecords(matches, orgID, tournamentID)); err != nil {
			return err
		}
		if err := d.local.MatchGroups.BulkPut(ctx, tx, syncedRecords(groups, orgID, tournamentID)); err != nil {
			return err
		}
		return d.local.TeamMatches.BulkPut(ctx, tx, syncedRecords(bouts, orgID, tournamentID))
	})
	if err != nil {
		return fmt.Errorf("failed to replace local tournament data: %w", err)
	}

	logger.Log.Info("Downloaded tournament data",
		zap.String("tournamentID", tournamentID),
		zap.Int("teams", len(teams)),
		zap.Int("matches", len(matches)),
		zap.Int("matchGroups", len(groups)),
		zap.Int("teamMatches", len(bouts)),
	)
	return nil
}

// syncedRecords wraps fetched documents as trusted mirror records.
func syncedRecords[T model.Entity](items []T, orgID, tournamentID string) []model.Synced[T] {
	recs := make([]model.Synced[T], 0, len(items))
	for _, item := range items {
		rec := model.NewSynced(item, orgID, tournamentID)
		rec.IsSynced = true
		recs = append(recs, rec)
	}
	return recs
}
