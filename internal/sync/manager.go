package sync

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/HayashidaReo/nikken-sync/internal/localstore"
	"github.com/HayashidaReo/nikken-sync/internal/logger"
	"github.com/HayashidaReo/nikken-sync/internal/remote"
)

const (
	StatusIdle    = "idle"
	StatusSyncing = "syncing"
)

const DefaultTimeout = 10 * time.Second

// Manager is the orchestration surface the device UI talks to. It owns the
// downloader, uploader and replicator, gates them on the externally
// supplied Conditions and races full-tournament passes against a fixed
// deadline.
type Manager struct {
	local   *localstore.Store
	remote  remote.Store
	timeout time.Duration

	mu           sync.Mutex
	status       string
	conds        Conditions
	orgID        string
	tournamentID string
	replicator   *Replicator
	lastUnsynced int
}

func NewManager(local *localstore.Store, rs remote.Store, timeout time.Duration) *Manager {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Manager{
		local:   local,
		remote:  rs,
		timeout: timeout,
		status:  StatusIdle,
	}
}

// SetScope selects the tournament this device works on. Changing scope
// tears down any running replication; SetConditions (or the next call that
// re-evaluates the guard) brings it back up for the new tournament.
func (m *Manager) SetScope(ctx context.Context, orgID, tournamentID string) {
	m.mu.Lock()
	if m.orgID == orgID && m.tournamentID == tournamentID {
		m.mu.Unlock()
		return
	}
	rep := m.replicator
	m.replicator = nil
	m.orgID = orgID
	m.tournamentID = tournamentID
	m.lastUnsynced = 0
	m.mu.Unlock()

	if rep != nil {
		rep.Stop()
	}
	m.reevaluate(ctx)
}

func (m *Manager) Scope() (orgID, tournamentID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.orgID, m.tournamentID
}

// SetConditions feeds the guard signals in and starts or stops realtime
// replication accordingly.
func (m *Manager) SetConditions(ctx context.Context, c Conditions) {
	m.mu.Lock()
	m.conds = c
	m.mu.Unlock()
	m.reevaluate(ctx)
}

func (m *Manager) Conditions() Conditions {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.conds
}

func (m *Manager) reevaluate(ctx context.Context) {
	m.mu.Lock()
	c := m.conds
	orgID, tournamentID := m.orgID, m.tournamentID
	rep := m.replicator
	m.mu.Unlock()

	if ShouldSync(c) && orgID != "" && tournamentID != "" {
		if rep != nil {
			return
		}
		rep = NewReplicator(m.local, m.remote, orgID, tournamentID)
		if err := rep.Start(ctx); err != nil {
			logger.Log.Error("Failed to start replication", zap.Error(err))
			return
		}
		m.mu.Lock()
		if m.replicator == nil && m.orgID == orgID && m.tournamentID == tournamentID {
			m.replicator = rep
			m.mu.Unlock()
			return
		}
		m.mu.Unlock()
		rep.Stop()
		return
	}

	if rep != nil {
		m.mu.Lock()
		if m.replicator == rep {
			m.replicator = nil
		}
		m.mu.Unlock()
		rep.Stop()
	}
}

func (m *Manager) Status() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

func (m *Manager) beginSync() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.status == StatusSyncing {
		return ErrSyncRunning
	}
	m.status = StatusSyncing
	return nil
}

func (m *Manager) endSync() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.status = StatusIdle
}

// withDeadline races fn against the configured timeout. On timeout the
// caller gets ErrSyncTimeout while fn keeps running on an uncancelled
// context: the write is not undone, merely unseen by this caller.
func (m *Manager) withDeadline(ctx context.Context, fn func(context.Context) error) error {
	opCtx := context.WithoutCancel(ctx)
	done := make(chan error, 1)
	go func() { done <- fn(opCtx) }()

	select {
	case err := <-done:
		return err
	case <-time.After(m.timeout):
		return ErrSyncTimeout
	}
}

// DownloadTournament replaces the local mirror of one tournament with the
// remote state. Destructive for pending local edits; the UI warns first.
func (m *Manager) DownloadTournament(ctx context.Context, orgID, tournamentID string) error {
	if !m.Conditions().Online {
		return ErrOffline
	}
	if err := m.beginSync(); err != nil {
		return err
	}
	defer m.endSync()

	d := NewDownloader(m.local, m.remote)
	return m.withDeadline(ctx, func(opCtx context.Context) error {
		return d.Run(opCtx, orgID, tournamentID)
	})
}

// UploadResults pushes pending local edits and returns how many synced.
func (m *Manager) UploadResults(ctx context.Context, orgID, tournamentID string) (int, error) {
	if !m.Conditions().Online {
		return 0, ErrOffline
	}
	if err := m.beginSync(); err != nil {
		return 0, err
	}
	defer m.endSync()

	u := NewUploader(m.local, m.remote)
	var synced int
	err := m.withDeadline(ctx, func(opCtx context.Context) error {
		var runErr error
		synced, runErr = u.Run(opCtx, orgID, tournamentID)
		return runErr
	})
	if err != nil {
		return 0, err
	}
	return synced, nil
}

func (m *Manager) UnsyncedCount(ctx context.Context, orgID, tournamentID string) (int, error) {
	return m.local.CountUnsynced(ctx, orgID, tournamentID)
}

// ClearLocalData wipes every mirrored match, group, team match and team,
// across all tournaments.
func (m *Manager) ClearLocalData(ctx context.Context) error {
	return m.local.ClearAll(ctx)
}

// NotifyLocalEdit is called after any local write. When the unsynced count
// transitions to non-zero while the guard holds, it fires an upload pass;
// failures are logged and silently retried on the next trigger.
func (m *Manager) NotifyLocalEdit(ctx context.Context) {
	m.mu.Lock()
	c := m.conds
	orgID, tournamentID := m.orgID, m.tournamentID
	last := m.lastUnsynced
	m.mu.Unlock()

	if orgID == "" || tournamentID == "" {
		return
	}

	count, err := m.local.CountUnsynced(ctx, orgID, tournamentID)
	if err != nil {
		logger.Log.Error("Failed to count unsynced records", zap.Error(err))
		return
	}
	m.mu.Lock()
	m.lastUnsynced = count
	m.mu.Unlock()

	if !ShouldSync(c) || count == 0 || last != 0 {
		return
	}

	synced, err := m.UploadResults(ctx, orgID, tournamentID)
	if err != nil {
		logger.Log.Warn("Auto upload failed", zap.Error(err))
		return
	}
	m.mu.Lock()
	m.lastUnsynced = 0
	m.mu.Unlock()
	logger.Log.Info("Auto upload finished", zap.Int("synced", synced))
}

// Stop tears down replication. Called on shutdown.
func (m *Manager) Stop() {
	m.mu.Lock()
	rep := m.replicator
	m.replicator = nil
	m.mu.Unlock()

	if rep != nil {
		rep.Stop()
	}
}
