package model

type TournamentType string

const (
	TournamentIndividual TournamentType = "individual"
	TournamentTeam       TournamentType = "team"
)

type Court struct {
	ID   string `json:"courtId"`
	Name string `json:"name"`
}

type Round struct {
	ID    string `json:"roundId"`
	Name  string `json:"name"`
	Order int    `json:"order"`
}

type Tournament struct {
	ID                  string         `json:"tournamentId"`
	Name                string         `json:"name"`
	Date                string         `json:"date"`
	Location            string         `json:"location"`
	DefaultMatchMinutes int            `json:"defaultMatchMinutes"`
	Courts              []Court        `json:"courts,omitempty"`
	Rounds              []Round        `json:"rounds,omitempty"`
	Type                TournamentType `json:"tournamentType"`
}

func (t Tournament) EntityID() string { return t.ID }
