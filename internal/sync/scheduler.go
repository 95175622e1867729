package sync

import (
	"context"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/HayashidaReo/nikken-sync/internal/logger"
)

// Scheduler periodically retries the upload pass so records that failed an
// earlier push (or accumulated while the guard was closed) eventually make
// it out without user action.
type Scheduler struct {
	spec    string
	manager *Manager
	cron    *cron.Cron
	entryID cron.EntryID
}

func NewScheduler(spec string, manager *Manager) *Scheduler {
	return &Scheduler{
		spec:    spec,
		manager: manager,
		cron:    cron.New(),
	}
}

func (s *Scheduler) Start() {
	if s.spec == "" {
		logger.Log.Info("Auto-upload scheduler is disabled")
		return
	}

	logger.Log.Info("Starting auto-upload scheduler", zap.String("interval", s.spec))

	id, err := s.cron.AddFunc(s.spec, s.run)
	if err != nil {
		logger.Log.Error("Failed to schedule auto upload", zap.Error(err))
		return
	}

	s.entryID = id
	s.cron.Start()
}

func (s *Scheduler) Stop() {
	if s.cron != nil {
		s.cron.Stop()
	}
	logger.Log.Info("Stopped auto-upload scheduler")
}

func (s *Scheduler) run() {
	orgID, tournamentID := s.manager.Scope()
	if orgID == "" || tournamentID == "" {
		return
	}
	if !ShouldSync(s.manager.Conditions()) {
		return
	}
	if s.manager.Status() == StatusSyncing {
		logger.Log.Debug("Sync already running, skipping scheduled upload")
		return
	}

	synced, err := s.manager.UploadResults(context.Background(), orgID, tournamentID)
	if err != nil {
		logger.Log.Error("Scheduled upload failed", zap.Error(err))
		return
	}
	if synced > 0 {
		logger.Log.Info("Scheduled upload finished", zap.Int("synced", synced))
	}
}
