package sync

import "errors"

var (
	// ErrOffline is raised before any I/O when a sync operation is invoked
	// without connectivity.
	ErrOffline = errors.New("device is offline")

	ErrTournamentNotFound = errors.New("tournament not found")

	// ErrSyncTimeout means the caller stopped waiting; the underlying
	// operation was not cancelled and may still complete.
	ErrSyncTimeout = errors.New("sync timed out")

	ErrSyncRunning = errors.New("a sync pass is already running")
)
