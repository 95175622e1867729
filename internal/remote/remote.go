// Package remote defines the contract of the cloud document store
// (organizations/{org}/tournaments/{id} with nested matches, matchGroups,
// teamMatches and teams) and provides an in-memory implementation with
// live change listeners.
package remote

import (
	"context"
	"errors"

	"github.com/HayashidaReo/nikken-sync/internal/model"
)

var ErrNotFound = errors.New("remote document not found")

type EventType string

const (
	EventAdded    EventType = "added"
	EventModified EventType = "modified"
	EventRemoved  EventType = "removed"
)

// Event is one change delivered to a listener. Removed events carry only
// the id.
type Event[T model.Entity] struct {
	Type EventType
	ID   string
	Doc  T
}

// Unsubscribe releases a listener. Safe to call more than once.
type Unsubscribe func()

// Collection is the per-entity remote repository contract. Listeners
// replay the current documents as added events on subscribe, then deliver
// changes in the order the store applies them.
type Collection[T model.Entity] interface {
	GetByID(ctx context.Context, id string) (T, error)
	ListAll(ctx context.Context) ([]T, error)
	Create(ctx context.Context, doc T) error
	// Update is a full-document replace with upsert semantics, never a
	// field-level patch.
	Update(ctx context.Context, doc T) error
	Delete(ctx context.Context, id string) error
	ListenAll(ctx context.Context, fn func(Event[T])) (Unsubscribe, error)
	ListenByID(ctx context.Context, id string, fn func(Event[T])) (Unsubscribe, error)
}

// Store scopes collections by their position in the document hierarchy.
type Store interface {
	Tournaments(orgID string) Collection[model.Tournament]
	Matches(orgID, tournamentID string) Collection[model.Match]
	MatchGroups(orgID, tournamentID string) Collection[model.MatchGroup]
	TeamMatches(orgID, tournamentID, groupID string) Collection[model.TeamMatch]
	Teams(orgID, tournamentID string) Collection[model.Team]
}
