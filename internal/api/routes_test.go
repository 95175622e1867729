package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/HayashidaReo/nikken-sync/internal/localstore"
	"github.com/HayashidaReo/nikken-sync/internal/model"
	"github.com/HayashidaReo/nikken-sync/internal/remote"
	"github.com/HayashidaReo/nikken-sync/internal/sync"
)

func newTestServer(t *testing.T) (*httptest.Server, *sync.Manager, remote.Store) {
	t.Helper()
	db, err := localstore.Open(":memory:")
	if err != nil {
		t.Fatalf("failed to open local store: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	rs := remote.NewStore(remote.NewMemoryStore())
	manager := sync.NewManager(localstore.NewStore(db), rs, 0)
	t.Cleanup(manager.Stop)

	srv := httptest.NewServer(NewHandler(manager).Routes())
	t.Cleanup(srv.Close)
	return srv, manager, rs
}

func postJSON(t *testing.T, url string, body interface{}) *http.Response {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("failed to encode request: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, v interface{}) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
}

func TestHealth(t *testing.T) {
	srv, _, _ := newTestServer(t)
	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
}

func TestStatusEndpoint(t *testing.T) {
	srv, _, _ := newTestServer(t)
	resp, err := http.Get(srv.URL + "/api/v1/sync/status")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	var body map[string]string
	decodeBody(t, resp, &body)
	if body["status"] != sync.StatusIdle {
		t.Errorf("status = %s, want %s", body["status"], sync.StatusIdle)
	}
}

func TestDownloadOfflineReturns412(t *testing.T) {
	srv, _, _ := newTestServer(t)
	resp := postJSON(t, srv.URL+"/api/v1/sync/download",
		map[string]string{"organizationId": "org1", "tournamentId": "t1"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusPreconditionFailed {
		t.Errorf("status = %d, want 412", resp.StatusCode)
	}
}

func TestDownloadUnknownTournamentReturns404(t *testing.T) {
	srv, manager, _ := newTestServer(t)
	manager.SetConditions(context.Background(),
		sync.Conditions{Online: true, HasUser: true, HasTournament: true})

	resp := postJSON(t, srv.URL+"/api/v1/sync/download",
		map[string]string{"organizationId": "org1", "tournamentId": "missing"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestDownloadMissingScopeReturns400(t *testing.T) {
	srv, _, _ := newTestServer(t)
	resp := postJSON(t, srv.URL+"/api/v1/sync/download", map[string]string{})
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestDownloadAndUploadFlow(t *testing.T) {
	srv, manager, rs := newTestServer(t)
	ctx := context.Background()

	tourn := model.Tournament{ID: "t1", Name: "Spring Taikai", Type: model.TournamentIndividual}
	if err := rs.Tournaments("org1").Create(ctx, tourn); err != nil {
		t.Fatalf("failed to seed tournament: %v", err)
	}
	if err := rs.Matches("org1", "t1").Create(ctx, model.Match{ID: "m1", CourtID: "court-a"}); err != nil {
		t.Fatalf("failed to seed match: %v", err)
	}
	manager.SetConditions(ctx, sync.Conditions{Online: true, HasUser: true, HasTournament: true})

	scope := map[string]string{"organizationId": "org1", "tournamentId": "t1"}

	resp := postJSON(t, srv.URL+"/api/v1/sync/download", scope)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("download status = %d, want 200", resp.StatusCode)
	}
	resp.Body.Close()

	resp = postJSON(t, srv.URL+"/api/v1/sync/upload", scope)
	var uploaded map[string]int
	decodeBody(t, resp, &uploaded)
	if uploaded["synced"] != 0 {
		t.Errorf("synced = %d, want 0 right after download", uploaded["synced"])
	}

	resp, err := http.Get(srv.URL + "/api/v1/sync/unsynced-count?organizationId=org1&tournamentId=t1")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	var count map[string]int
	decodeBody(t, resp, &count)
	if count["count"] != 0 {
		t.Errorf("count = %d, want 0", count["count"])
	}
}

func TestSetConditions(t *testing.T) {
	srv, manager, _ := newTestServer(t)

	resp := postJSON(t, srv.URL+"/api/v1/sync/conditions", map[string]interface{}{
		"organizationId": "org1",
		"tournamentId":   "t1",
		"online":         true,
		"hasUser":        true,
		"hasTournament":  true,
	})
	var body map[string]bool
	decodeBody(t, resp, &body)
	if !body["shouldSync"] {
		t.Error("shouldSync = false, want true")
	}

	org, tid := manager.Scope()
	if org != "org1" || tid != "t1" {
		t.Errorf("scope = %s/%s, want org1/t1", org, tid)
	}
	if !manager.Conditions().Online {
		t.Error("conditions not stored")
	}

	resp = postJSON(t, srv.URL+"/api/v1/sync/conditions", map[string]interface{}{
		"online":    true,
		"isEditing": true,
	})
	decodeBody(t, resp, &body)
	if body["shouldSync"] {
		t.Error("shouldSync = true while editing, want false")
	}
}

func TestLocalEdited(t *testing.T) {
	srv, _, _ := newTestServer(t)
	resp := postJSON(t, srv.URL+"/api/v1/local/edited", map[string]string{})
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("status = %d, want 204", resp.StatusCode)
	}
}

func TestDetectConflictsEndpoint(t *testing.T) {
	srv, _, _ := newTestServer(t)

	init := model.Match{ID: "m1", CourtID: "court-1", RoundID: "r1"}
	draft := init
	draft.CourtID = "court-2"
	server := init
	server.CourtID = "court-3"

	resp := postJSON(t, srv.URL+"/api/v1/conflicts/detect", map[string]interface{}{
		"draftData":    []model.Match{draft},
		"initialState": []model.Match{init},
		"serverData":   []model.Match{server},
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var body struct {
		Conflicts []struct {
			MatchID   string `json:"matchId"`
			Conflicts []struct {
				Field  string `json:"field"`
				Draft  string `json:"draft"`
				Server string `json:"server"`
			} `json:"conflicts"`
		} `json:"conflicts"`
	}
	decodeBody(t, resp, &body)
	if len(body.Conflicts) != 1 || body.Conflicts[0].MatchID != "m1" {
		t.Fatalf("unexpected response: %+v", body)
	}
	c := body.Conflicts[0].Conflicts
	if len(c) != 1 || c[0].Field != "courtId" || c[0].Draft != "court-2" || c[0].Server != "court-3" {
		t.Errorf("unexpected conflict payload: %+v", c)
	}
}
