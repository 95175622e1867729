package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/HayashidaReo/nikken-sync/internal/conflict"
	"github.com/HayashidaReo/nikken-sync/internal/localstore"
	"github.com/HayashidaReo/nikken-sync/internal/model"
	"github.com/HayashidaReo/nikken-sync/internal/remote"
	"github.com/HayashidaReo/nikken-sync/internal/sync"
)

// Handler exposes the sync orchestration surface to the device shell.
type Handler struct {
	manager *sync.Manager
}

func NewHandler(manager *sync.Manager) *Handler {
	return &Handler{manager: manager}
}

func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/health", h.HealthCheck)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/sync/download", h.Download)
		r.Post("/sync/upload", h.Upload)
		r.Get("/sync/status", h.Status)
		r.Get("/sync/unsynced-count", h.UnsyncedCount)
		r.Post("/sync/conditions", h.SetConditions)
		r.Post("/local/clear", h.ClearLocal)
		r.Post("/local/edited", h.LocalEdited)
		r.Post("/conflicts/detect", h.DetectConflicts)
	})

	return r
}

func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

type scopeRequest struct {
	OrganizationID string `json:"organizationId"`
	TournamentID   string `json:"tournamentId"`
}

func (h *Handler) decodeScope(w http.ResponseWriter, r *http.Request) (scopeRequest, bool) {
	var req scopeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return req, false
	}
	if req.OrganizationID == "" || req.TournamentID == "" {
		http.Error(w, "organizationId and tournamentId are required", http.StatusBadRequest)
		return req, false
	}
	return req, true
}

func (h *Handler) Download(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeScope(w, r)
	if !ok {
		return
	}

	if err := h.manager.DownloadTournament(r.Context(), req.OrganizationID, req.TournamentID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, map[string]string{"status": "downloaded"})
}

func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeScope(w, r)
	if !ok {
		return
	}

	synced, err := h.manager.UploadResults(r.Context(), req.OrganizationID, req.TournamentID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, map[string]int{"synced": synced})
}

func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"status": h.manager.Status()})
}

func (h *Handler) UnsyncedCount(w http.ResponseWriter, r *http.Request) {
	orgID := r.URL.Query().Get("organizationId")
	tournamentID := r.URL.Query().Get("tournamentId")
	if orgID == "" || tournamentID == "" {
		orgID, tournamentID = h.manager.Scope()
	}
	if orgID == "" || tournamentID == "" {
		http.Error(w, "no tournament selected", http.StatusBadRequest)
		return
	}

	count, err := h.manager.UnsyncedCount(r.Context(), orgID, tournamentID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, map[string]int{"count": count})
}

type conditionsRequest struct {
	sync.Conditions
	OrganizationID string `json:"organizationId"`
	TournamentID   string `json:"tournamentId"`
}

// SetConditions receives the guard signals from the device shell: online
// state, edit-in-progress flag, auth and tournament selection.
func (h *Handler) SetConditions(w http.ResponseWriter, r *http.Request) {
	var req conditionsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if req.OrganizationID != "" && req.TournamentID != "" {
		h.manager.SetScope(r.Context(), req.OrganizationID, req.TournamentID)
	}
	h.manager.SetConditions(r.Context(), req.Conditions)
	writeJSON(w, map[string]bool{"shouldSync": sync.ShouldSync(req.Conditions)})
}

func (h *Handler) ClearLocal(w http.ResponseWriter, r *http.Request) {
	if err := h.manager.ClearLocalData(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, map[string]string{"status": "cleared"})
}

// LocalEdited is the auto-upload trigger: the shell calls it after every
// local write so the manager can observe the unsynced-count transition.
func (h *Handler) LocalEdited(w http.ResponseWriter, r *http.Request) {
	h.manager.NotifyLocalEdit(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

type detectRequest struct {
	DraftData       []model.Match     `json:"draftData"`
	InitialState    []model.Match     `json:"initialState"`
	ServerData      []model.Match     `json:"serverData"`
	Teams           []model.Team      `json:"teams"`
	Rounds          []model.Round     `json:"rounds"`
	RejectedChanges conflict.Rejected `json:"rejectedChanges"`
}

func (h *Handler) DetectConflicts(w http.ResponseWriter, r *http.Request) {
	var req detectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	details := conflict.DetectMatchConflicts(
		req.DraftData, req.InitialState, req.ServerData,
		req.Teams, req.Rounds,
		req.RejectedChanges, conflict.DefaultOptions(),
	)
	writeJSON(w, map[string]interface{}{"conflicts": details})
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, sync.ErrOffline):
		status = http.StatusPreconditionFailed
	case errors.Is(err, sync.ErrTournamentNotFound),
		errors.Is(err, remote.ErrNotFound),
		errors.Is(err, localstore.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, sync.ErrSyncTimeout):
		status = http.StatusGatewayTimeout
	case errors.Is(err, sync.ErrSyncRunning):
		status = http.StatusConflict
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
