package model

import "time"

// MatchGroup is one team-vs-team tie; the individual bouts inside it are
// TeamMatch records nested under the group.
type MatchGroup struct {
	ID          string    `json:"matchGroupId"`
	CourtID     string    `json:"courtId"`
	RoundID     string    `json:"roundId"`
	TeamAID     string    `json:"teamAId"`
	TeamBID     string    `json:"teamBId"`
	IsCompleted bool      `json:"isCompleted"`
	SortOrder   int       `json:"sortOrder"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func (g MatchGroup) EntityID() string { return g.ID }

type Winner string

const (
	WinnerNone Winner = ""
	WinnerA    Winner = "A"
	WinnerB    Winner = "B"
	WinnerDraw Winner = "draw"
)

type TeamMatch struct {
	Match
	MatchGroupID string `json:"matchGroupId"`
	Winner       Winner `json:"winner"`
	WinReason    string `json:"winReason"`
}
