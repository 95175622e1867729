package model

import "time"

// Scoring bounds for a single kendo bout. A player holds at most two points
// and is disqualified after four hansoku, so stored values never leave these
// ranges regardless of which device produced them.
const (
	MaxScore   = 2
	MaxHansoku = 4
)

type PlayerSlot struct {
	PlayerID    string `json:"playerId"`
	TeamID      string `json:"teamId"`
	DisplayName string `json:"displayName"`
	TeamName    string `json:"teamName"`
	Score       int    `json:"score"`
	Hansoku     int    `json:"hansoku"`
}

type Players struct {
	A PlayerSlot `json:"playerA"`
	B PlayerSlot `json:"playerB"`
}

type Match struct {
	ID          string    `json:"matchId"`
	CourtID     string    `json:"courtId"`
	RoundID     string    `json:"roundId"`
	Players     Players   `json:"players"`
	IsCompleted bool      `json:"isCompleted"`
	SortOrder   int       `json:"sortOrder"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func (m Match) EntityID() string { return m.ID }

func ClampScore(v int) int {
	if v < 0 {
		return 0
	}
	if v > MaxScore {
		return MaxScore
	}
	return v
}

func ClampHansoku(v int) int {
	if v < 0 {
		return 0
	}
	if v > MaxHansoku {
		return MaxHansoku
	}
	return v
}

func (p *PlayerSlot) SetScore(v int)   { p.Score = ClampScore(v) }
func (p *PlayerSlot) SetHansoku(v int) { p.Hansoku = ClampHansoku(v) }

// Normalize clamps both players' score and hansoku into their legal ranges.
// Every write path into the local mirror runs documents through this.
func (m *Match) Normalize() {
	m.Players.A.Score = ClampScore(m.Players.A.Score)
	m.Players.A.Hansoku = ClampHansoku(m.Players.A.Hansoku)
	m.Players.B.Score = ClampScore(m.Players.B.Score)
	m.Players.B.Hansoku = ClampHansoku(m.Players.B.Hansoku)
}
