// Package conflict classifies divergence between a draft edit session and
// the server copy of the same matches. DetectMatchConflicts is pure: it
// returns data for the UI to act on and performs no I/O, so the caller
// decides what to force-overwrite and what to merely acknowledge.
package conflict

import (
	"strconv"

	"github.com/HayashidaReo/nikken-sync/internal/model"
)

type Field string

const (
	FieldCourt     Field = "courtId"
	FieldRound     Field = "roundId"
	FieldPlayerA   Field = "playerA"
	FieldPlayerB   Field = "playerB"
	FieldSortOrder Field = "sortOrder"
	FieldScore     Field = "score"
	FieldHansoku   Field = "hansoku"
)

// DeletedLabel is the server value shown when the record was deleted
// remotely during the edit session.
const DeletedLabel = "[deleted]"

// FieldDiff is a direct conflict: the user and the server changed the same
// field to different values. ServerKey is the raw server value; recording
// it under Rejected suppresses the same conflict on later runs.
type FieldDiff struct {
	Field     Field  `json:"field"`
	Draft     string `json:"draft"`
	Server    string `json:"server"`
	ServerKey string `json:"serverKey"`
}

// FieldChange is informational: the server changed a field the user left
// alone.
type FieldChange struct {
	Field     Field  `json:"field"`
	Initial   string `json:"initial"`
	Server    string `json:"server"`
	ServerKey string `json:"serverKey"`
}

// Details is the per-record result, separating collisions with the user's
// own edits from changes the user only needs to be told about.
type Details struct {
	MatchID       string        `json:"matchId"`
	Deleted       bool          `json:"deleted,omitempty"`
	Conflicts     []FieldDiff   `json:"conflicts,omitempty"`
	ServerChanges []FieldChange `json:"serverChanges,omitempty"`
}

// Rejected maps match id and field to the raw server value the user
// already dismissed, so a prior decision is not re-surfaced for the same
// value.
type Rejected map[string]map[Field]string

type Options struct {
	// LiveFields are exempt from detection: they always adopt the remote
	// value, so surfacing them would only generate noise.
	LiveFields map[Field]bool
}

// DefaultOptions exempts exactly score and hansoku. Do not widen this set
// without deliberate design; it mirrors the score-entry devices being
// authoritative in real time.
func DefaultOptions() Options {
	return Options{LiveFields: map[Field]bool{
		FieldScore:   true,
		FieldHansoku: true,
	}}
}

// fieldValue pairs the raw value used for comparison and rejection keys
// with the label shown to the user.
type fieldValue struct {
	key   string
	label string
}

type labels struct {
	teams  map[string]string
	rounds map[string]string
}

func newLabels(teams []model.Team, rounds []model.Round) labels {
	l := labels{
		teams:  make(map[string]string, len(teams)),
		rounds: make(map[string]string, len(rounds)),
	}
	for _, t := range teams {
		l.teams[t.ID] = t.Name
	}
	for _, r := range rounds {
		l.rounds[r.ID] = r.Name
	}
	return l
}

func (l labels) round(id string) fieldValue {
	if name, ok := l.rounds[id]; ok && name != "" {
		return fieldValue{key: id, label: name}
	}
	return fieldValue{key: id, label: id}
}

func (l labels) player(s model.PlayerSlot) fieldValue {
	name := s.DisplayName
	if name == "" {
		name = s.PlayerID
	}
	team := l.teams[s.TeamID]
	if team == "" {
		team = s.TeamName
	}
	if team != "" {
		name += " (" + team + ")"
	}
	return fieldValue{key: s.PlayerID + "/" + s.TeamID, label: name}
}

func court(id string) fieldValue {
	return fieldValue{key: id, label: id}
}

func sortOrder(v int) fieldValue {
	s := strconv.Itoa(v)
	return fieldValue{key: s, label: s}
}

func scores(p model.Players) fieldValue {
	s := strconv.Itoa(p.A.Score) + "-" + strconv.Itoa(p.B.Score)
	return fieldValue{key: s, label: s}
}

func hansoku(p model.Players) fieldValue {
	s := strconv.Itoa(p.A.Hansoku) + "-" + strconv.Itoa(p.B.Hansoku)
	return fieldValue{key: s, label: s}
}

// DetectMatchConflicts compares the user's draft against the snapshot taken
// when editing began and the latest known server state. Drafts with no
// initial counterpart are new records and are skipped; a record missing
// from the server produces a deletion conflict; everything else is a
// per-field three-way comparison.
func DetectMatchConflicts(
	draft, initial, server []model.Match,
	teams []model.Team,
	rounds []model.Round,
	rejected Rejected,
	opts Options,
) []Details {
	if opts.LiveFields == nil {
		opts = DefaultOptions()
	}

	lab := newLabels(teams, rounds)
	initialByID := indexByID(initial)
	serverByID := indexByID(server)

	var out []Details
	for _, d := range draft {
		init, existed := initialByID[d.ID]
		if !existed {
			continue
		}
		rej := rejected[d.ID]

		srv, onServer := serverByID[d.ID]
		if !onServer {
			if rej[FieldCourt] == DeletedLabel {
				continue
			}
			out = append(out, Details{
				MatchID: d.ID,
				Deleted: true,
				Conflicts: []FieldDiff{{
					Field:     FieldCourt,
					Draft:     court(d.CourtID).label,
					Server:    DeletedLabel,
					ServerKey: DeletedLabel,
				}},
			})
			continue
		}

		det := Details{MatchID: d.ID}
		check := func(f Field, draftV, initV, srvV fieldValue) {
			if opts.LiveFields[f] {
				return
			}
			serverChanged := srvV.key != initV.key
			if !serverChanged {
				return
			}
			if rej[f] == srvV.key {
				return
			}
			userChanged := draftV.key != initV.key
			if userChanged {
				if draftV.key == srvV.key {
					// Both sides converged on the same value.
					return
				}
				det.Conflicts = append(det.Conflicts, FieldDiff{
					Field:     f,
					Draft:     draftV.label,
					Server:    srvV.label,
					ServerKey: srvV.key,
				})
				return
			}
			det.ServerChanges = append(det.ServerChanges, FieldChange{
				Field:     f,
				Initial:   initV.label,
				Server:    srvV.label,
				ServerKey: srvV.key,
			})
		}

		check(FieldCourt, court(d.CourtID), court(init.CourtID), court(srv.CourtID))
		check(FieldRound, lab.round(d.RoundID), lab.round(init.RoundID), lab.round(srv.RoundID))
		check(FieldPlayerA, lab.player(d.Players.A), lab.player(init.Players.A), lab.player(srv.Players.A))
		check(FieldPlayerB, lab.player(d.Players.B), lab.player(init.Players.B), lab.player(srv.Players.B))
		check(FieldSortOrder, sortOrder(d.SortOrder), sortOrder(init.SortOrder), sortOrder(srv.SortOrder))
		check(FieldScore, scores(d.Players), scores(init.Players), scores(srv.Players))
		check(FieldHansoku, hansoku(d.Players), hansoku(init.Players), hansoku(srv.Players))

		if len(det.Conflicts) > 0 || len(det.ServerChanges) > 0 {
			out = append(out, det)
		}
	}
	return out
}

func indexByID(matches []model.Match) map[string]model.Match {
	m := make(map[string]model.Match, len(matches))
	for _, match := range matches {
		m[match.ID] = match
	}
	return m
}
