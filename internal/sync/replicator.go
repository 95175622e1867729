package sync

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/HayashidaReo/nikken-sync/internal/localstore"
	"github.com/HayashidaReo/nikken-sync/internal/logger"
	"github.com/HayashidaReo/nikken-sync/internal/model"
	"github.com/HayashidaReo/nikken-sync/internal/remote"
)

// Replicator applies remote changes to the local mirror while sync is
// enabled. It subscribes to each top-level collection and keeps an explicit
// registry of nested team-match subscriptions keyed by match group:
// created as groups appear, released when a group is removed, all released
// recursively on Stop.
type Replicator struct {
	local        *localstore.Store
	remote       remote.Store
	orgID        string
	tournamentID string

	// ctx outlives the call that started the replicator; events keep
	// arriving until Stop.
	ctx context.Context

	mu      sync.Mutex
	running bool
	subs    []remote.Unsubscribe
	groups  map[string]remote.Unsubscribe
}

func NewReplicator(local *localstore.Store, rs remote.Store, orgID, tournamentID string) *Replicator {
	return &Replicator{
		local:        local,
		remote:       rs,
		orgID:        orgID,
		tournamentID: tournamentID,
	}
}

func (r *Replicator) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return nil
	}
	r.running = true
	r.ctx = context.WithoutCancel(ctx)
	r.groups = make(map[string]remote.Unsubscribe)
	r.mu.Unlock()

	matchSub, err := r.remote.Matches(r.orgID, r.tournamentID).ListenAll(r.ctx,
		func(ev remote.Event[model.Match]) {
			applyEvent(r.ctx, r.local.Matches, r.orgID, r.tournamentID, ev)
		})
	if err != nil {
		r.Stop()
		return err
	}
	r.addSub(matchSub)

	teamSub, err := r.remote.Teams(r.orgID, r.tournamentID).ListenAll(r.ctx,
		func(ev remote.Event[model.Team]) {
			applyEvent(r.ctx, r.local.Teams, r.orgID, r.tournamentID, ev)
		})
	if err != nil {
		r.Stop()
		return err
	}
	r.addSub(teamSub)

	// The group subscription replays existing groups as added events, so
	// nested bout subscriptions materialize here as well.
	groupSub, err := r.remote.MatchGroups(r.orgID, r.tournamentID).ListenAll(r.ctx, r.onGroupEvent)
	if err != nil {
		r.Stop()
		return err
	}
	r.addSub(groupSub)

	logger.Log.Info("Realtime replication started",
		zap.String("tournamentID", r.tournamentID))
	return nil
}

func (r *Replicator) addSub(sub remote.Unsubscribe) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.running {
		// Stopped while subscribing; release immediately.
		go sub()
		return
	}
	r.subs = append(r.subs, sub)
}

func (r *Replicator) onGroupEvent(ev remote.Event[model.MatchGroup]) {
	if ev.Type == remote.EventRemoved {
		r.dropGroup(ev.ID)
		return
	}
	applyEvent(r.ctx, r.local.MatchGroups, r.orgID, r.tournamentID, ev)
	r.watchGroup(ev.ID)
}

// watchGroup lazily subscribes to a group's nested bout collection.
func (r *Replicator) watchGroup(groupID string) {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	if _, ok := r.groups[groupID]; ok {
		r.mu.Unlock()
		return
	}
	r.mu.Unlock()

	// Subscribe outside the lock: the snapshot replay delivers bout events
	// synchronously.
	sub, err := r.remote.TeamMatches(r.orgID, r.tournamentID, groupID).ListenAll(r.ctx,
		func(ev remote.Event[model.TeamMatch]) {
			applyEvent(r.ctx, r.local.TeamMatches, r.orgID, r.tournamentID, ev)
		})
	if err != nil {
		logger.Log.Error("Failed to watch team matches",
			zap.String("matchGroupID", groupID), zap.Error(err))
		return
	}

	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		sub()
		return
	}
	if _, ok := r.groups[groupID]; ok {
		r.mu.Unlock()
		sub()
		return
	}
	r.groups[groupID] = sub
	r.mu.Unlock()
}

// dropGroup handles a remotely removed group: release its nested
// subscription and drop the group with its local bouts.
func (r *Replicator) dropGroup(groupID string) {
	r.mu.Lock()
	sub := r.groups[groupID]
	delete(r.groups, groupID)
	r.mu.Unlock()

	if sub != nil {
		sub()
	}
	if err := r.local.MatchGroups.RemoveRemote(r.ctx, groupID); err != nil {
		logger.Log.Error("Failed to remove match group",
			zap.String("matchGroupID", groupID), zap.Error(err))
	}
	if err := r.local.TeamMatches.DeleteByGroup(r.ctx, r.orgID, r.tournamentID, groupID); err != nil {
		logger.Log.Error("Failed to remove team matches of group",
			zap.String("matchGroupID", groupID), zap.Error(err))
	}
}

// Stop releases every subscription, nested ones included.
func (r *Replicator) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	r.running = false
	subs := r.subs
	groups := r.groups
	r.subs = nil
	r.groups = nil
	r.mu.Unlock()

	for _, sub := range subs {
		sub()
	}
	for _, sub := range groups {
		sub()
	}

	logger.Log.Info("Realtime replication stopped",
		zap.String("tournamentID", r.tournamentID))
}

// applyEvent routes one inbound change through the mirror's gatekeeper.
func applyEvent[T model.Entity](
	ctx context.Context,
	col *localstore.Collection[T],
	orgID, tournamentID string,
	ev remote.Event[T],
) {
	switch ev.Type {
	case remote.EventRemoved:
		if err := col.RemoveRemote(ctx, ev.ID); err != nil {
			logger.Log.Error("Failed to apply remote removal",
				zap.String("collection", col.Table()),
				zap.String("id", ev.ID),
				zap.Error(err),
			)
		}
	default:
		if err := col.ApplyRemote(ctx, model.NewSynced(ev.Doc, orgID, tournamentID)); err != nil {
			logger.Log.Error("Failed to apply remote change",
				zap.String("collection", col.Table()),
				zap.String("id", ev.ID),
				zap.Error(err),
			)
		}
	}
}
