package localstore

import (
	"context"
	"database/sql"

	"github.com/HayashidaReo/nikken-sync/internal/model"
)

// Store bundles the per-entity mirror collections over one database.
type Store struct {
	db *DB

	Tournaments *Collection[model.Tournament]
	Matches     *Collection[model.Match]
	MatchGroups *Collection[model.MatchGroup]
	TeamMatches *Collection[model.TeamMatch]
	Teams       *Collection[model.Team]
}

func NewStore(db *DB) *Store {
	matches := NewCollection[model.Match](db, "matches")
	matches.liveMerge = mergeMatchScores
	matches.normalize = normalizeMatch

	teamMatches := NewCollection[model.TeamMatch](db, "team_matches")
	teamMatches.liveMerge = mergeTeamMatchScores
	teamMatches.normalize = normalizeTeamMatch
	teamMatches.groupKey = func(tm model.TeamMatch) string { return tm.MatchGroupID }

	return &Store{
		db:          db,
		Tournaments: NewCollection[model.Tournament](db, "tournaments"),
		Matches:     matches,
		MatchGroups: NewCollection[model.MatchGroup](db, "match_groups"),
		TeamMatches: teamMatches,
		Teams:       NewCollection[model.Team](db, "teams"),
	}
}

func (s *Store) ExecTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	return s.db.ExecTx(ctx, fn)
}

func (s *Store) Close() error {
	return s.db.Close()
}

// DeleteTournamentData wipes every collection for one tournament. Callers
// run it inside a transaction together with the bulk insert that replaces
// the data.
func (s *Store) DeleteTournamentData(ctx context.Context, exec SQLExecutor, orgID, tournamentID string) error {
	if err := s.Tournaments.DeleteByTournament(ctx, exec, orgID, tournamentID); err != nil {
		return err
	}
	if err := s.Matches.DeleteByTournament(ctx, exec, orgID, tournamentID); err != nil {
		return err
	}
	if err := s.MatchGroups.DeleteByTournament(ctx, exec, orgID, tournamentID); err != nil {
		return err
	}
	if err := s.TeamMatches.DeleteByTournament(ctx, exec, orgID, tournamentID); err != nil {
		return err
	}
	return s.Teams.DeleteByTournament(ctx, exec, orgID, tournamentID)
}

// ClearAll wipes the match, group, team-match and team collections across
// every tournament.
func (s *Store) ClearAll(ctx context.Context) error {
	if err := s.Matches.DeleteAll(ctx); err != nil {
		return err
	}
	if err := s.MatchGroups.DeleteAll(ctx); err != nil {
		return err
	}
	if err := s.TeamMatches.DeleteAll(ctx); err != nil {
		return err
	}
	return s.Teams.DeleteAll(ctx)
}

// CountUnsynced counts pending edits across the collections the upload
// pass covers.
func (s *Store) CountUnsynced(ctx context.Context, orgID, tournamentID string) (int, error) {
	total := 0
	for _, count := range []func(context.Context, string, string) (int, error){
		s.Matches.CountUnsynced,
		s.MatchGroups.CountUnsynced,
		s.TeamMatches.CountUnsynced,
	} {
		n, err := count(ctx, orgID, tournamentID)
		if err != nil {
			return 0, err
		}
		total += n
	}
	return total, nil
}

func normalizeMatch(m model.Match) model.Match {
	m.Normalize()
	return m
}

func normalizeTeamMatch(tm model.TeamMatch) model.TeamMatch {
	tm.Normalize()
	return tm
}

func mergeSlotScores(local, remote model.PlayerSlot) model.PlayerSlot {
	local.Score = model.ClampScore(remote.Score)
	local.Hansoku = model.ClampHansoku(remote.Hansoku)
	return local
}

func mergeMatchScores(local, remote model.Match) (model.Match, bool) {
	merged := local
	merged.Players.A = mergeSlotScores(merged.Players.A, remote.Players.A)
	merged.Players.B = mergeSlotScores(merged.Players.B, remote.Players.B)
	return merged, merged != local
}

func mergeTeamMatchScores(local, remote model.TeamMatch) (model.TeamMatch, bool) {
	merged := local
	var changed bool
	merged.Match, changed = mergeMatchScores(local.Match, remote.Match)
	return merged, changed
}
