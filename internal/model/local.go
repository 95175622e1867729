package model

// Entity is implemented by every domain document that can be mirrored.
type Entity interface {
	EntityID() string
}

// Synced wraps a domain document with the bookkeeping the local mirror
// needs: scoping ids, the synced flag and the soft-delete tombstone. A
// record with IsSynced=false is the device's own pending edit and must not
// be overwritten by inbound replication; a Deleted record stays around
// until the delete itself has been pushed.
type Synced[T Entity] struct {
	Data           T      `json:"data"`
	OrganizationID string `json:"organizationId"`
	TournamentID   string `json:"tournamentId"`
	IsSynced       bool   `json:"isSynced"`
	Deleted        bool   `json:"_deleted,omitempty"`
}

func NewSynced[T Entity](data T, orgID, tournamentID string) Synced[T] {
	return Synced[T]{
		Data:           data,
		OrganizationID: orgID,
		TournamentID:   tournamentID,
	}
}

func (s Synced[T]) ID() string { return s.Data.EntityID() }
