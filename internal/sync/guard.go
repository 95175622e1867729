package sync

// Conditions are the externally-observed signals that gate syncing. They
// are passed in explicitly by whatever shell hosts the engine; nothing here
// reads ambient global state.
type Conditions struct {
	Online        bool `json:"online"`
	IsEditing     bool `json:"isEditing"`
	HasUser       bool `json:"hasUser"`
	HasTournament bool `json:"hasTournament"`
}

// ShouldSync reports whether realtime replication and auto-upload may run:
// the device is online, nobody is mid-form-edit, a user is signed in and a
// tournament is selected.
func ShouldSync(c Conditions) bool {
	return c.Online && !c.IsEditing && c.HasUser && c.HasTournament
}
