package remote

import (
	"fmt"

	"github.com/HayashidaReo/nikken-sync/internal/model"
)

type pathStore struct {
	backend RawBackend
}

// NewStore builds the typed document hierarchy over any RawBackend.
func NewStore(backend RawBackend) Store {
	return pathStore{backend: backend}
}

func tournamentsPath(orgID string) string {
	return fmt.Sprintf("organizations/%s/tournaments", orgID)
}

func tournamentPath(orgID, tournamentID string) string {
	return fmt.Sprintf("%s/%s", tournamentsPath(orgID), tournamentID)
}

func (s pathStore) Tournaments(orgID string) Collection[model.Tournament] {
	return NewRawCollection[model.Tournament](s.backend, tournamentsPath(orgID))
}

func (s pathStore) Matches(orgID, tournamentID string) Collection[model.Match] {
	return NewRawCollection[model.Match](s.backend, tournamentPath(orgID, tournamentID)+"/matches")
}

func (s pathStore) MatchGroups(orgID, tournamentID string) Collection[model.MatchGroup] {
	return NewRawCollection[model.MatchGroup](s.backend, tournamentPath(orgID, tournamentID)+"/matchGroups")
}

func (s pathStore) TeamMatches(orgID, tournamentID, groupID string) Collection[model.TeamMatch] {
	path := fmt.Sprintf("%s/matchGroups/%s/teamMatches", tournamentPath(orgID, tournamentID), groupID)
	return NewRawCollection[model.TeamMatch](s.backend, path)
}

func (s pathStore) Teams(orgID, tournamentID string) Collection[model.Team] {
	return NewRawCollection[model.Team](s.backend, tournamentPath(orgID, tournamentID)+"/teams")
}
