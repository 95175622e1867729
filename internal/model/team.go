package model

type TeamPlayer struct {
	ID          string `json:"playerId"`
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	DisplayName string `json:"displayName"`
}

type Team struct {
	ID         string       `json:"teamId"`
	Name       string       `json:"name"`
	RepName    string       `json:"representativeName"`
	RepEmail   string       `json:"representativeEmail"`
	Players    []TeamPlayer `json:"players,omitempty"`
	IsApproved bool         `json:"isApproved"`
}

func (t Team) EntityID() string { return t.ID }
