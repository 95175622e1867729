package localstore

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/HayashidaReo/nikken-sync/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := Open(":memory:")
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewStore(db)
}

func testMatch(id, courtID string) model.Match {
	m := model.Match{ID: id, CourtID: courtID, RoundID: "r1"}
	m.Players.A = model.PlayerSlot{PlayerID: "p1", DisplayName: "Tanaka"}
	m.Players.B = model.PlayerSlot{PlayerID: "p2", DisplayName: "Suzuki"}
	return m
}

func TestPutGetRoundtrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	rec := model.NewSynced(testMatch("m1", "court-a"), "org1", "t1")
	rec.IsSynced = true
	if err := s.Matches.Put(ctx, rec); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	got, err := s.Matches.GetByID(ctx, "m1")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Data.CourtID != "court-a" || got.Data.Players.A.DisplayName != "Tanaka" {
		t.Errorf("document did not roundtrip: %+v", got.Data)
	}
	if !got.IsSynced || got.Deleted {
		t.Errorf("flags did not roundtrip: synced=%v deleted=%v", got.IsSynced, got.Deleted)
	}
	if got.OrganizationID != "org1" || got.TournamentID != "t1" {
		t.Errorf("scope did not roundtrip: %s/%s", got.OrganizationID, got.TournamentID)
	}
}

func TestGetByIDNotFound(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.Matches.GetByID(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSaveLocalIsUnsynced(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.Matches.SaveLocal(ctx, testMatch("m1", "court-a"), "org1", "t1"); err != nil {
		t.Fatalf("SaveLocal failed: %v", err)
	}

	got, err := s.Matches.GetByID(ctx, "m1")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.IsSynced {
		t.Error("locally saved record must be unsynced")
	}

	n, err := s.CountUnsynced(ctx, "org1", "t1")
	if err != nil {
		t.Fatalf("CountUnsynced failed: %v", err)
	}
	if n != 1 {
		t.Errorf("unsynced count = %d, want 1", n)
	}

	if err := s.Matches.MarkSynced(ctx, "m1"); err != nil {
		t.Fatalf("MarkSynced failed: %v", err)
	}
	n, _ = s.CountUnsynced(ctx, "org1", "t1")
	if n != 0 {
		t.Errorf("unsynced count after MarkSynced = %d, want 0", n)
	}
}

func TestPutClampsScores(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	m := testMatch("m1", "court-a")
	m.Players.A.Score = 9
	m.Players.B.Hansoku = -3
	if err := s.Matches.SaveLocal(ctx, m, "org1", "t1"); err != nil {
		t.Fatalf("SaveLocal failed: %v", err)
	}

	got, err := s.Matches.GetByID(ctx, "m1")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Data.Players.A.Score != model.MaxScore {
		t.Errorf("score stored as %d, want %d", got.Data.Players.A.Score, model.MaxScore)
	}
	if got.Data.Players.B.Hansoku != 0 {
		t.Errorf("hansoku stored as %d, want 0", got.Data.Players.B.Hansoku)
	}
}

func TestSoftDelete(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.Matches.SaveLocal(ctx, testMatch("m1", "court-a"), "org1", "t1"); err != nil {
		t.Fatalf("SaveLocal failed: %v", err)
	}
	if err := s.Matches.MarkSynced(ctx, "m1"); err != nil {
		t.Fatalf("MarkSynced failed: %v", err)
	}
	if err := s.Matches.SoftDelete(ctx, "m1"); err != nil {
		t.Fatalf("SoftDelete failed: %v", err)
	}

	live, err := s.Matches.List(ctx, "org1", "t1")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(live) != 0 {
		t.Errorf("tombstoned record still listed: %d records", len(live))
	}

	pending, err := s.Matches.GetUnsynced(ctx, "org1", "t1")
	if err != nil {
		t.Fatalf("GetUnsynced failed: %v", err)
	}
	if len(pending) != 1 || !pending[0].Deleted {
		t.Errorf("tombstone must stay visible to sync: %+v", pending)
	}

	if err := s.Matches.HardDelete(ctx, "m1"); err != nil {
		t.Fatalf("HardDelete failed: %v", err)
	}
	if _, err := s.Matches.GetByID(ctx, "m1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after HardDelete, got %v", err)
	}
}

func TestSoftDeleteMissing(t *testing.T) {
	s := newTestStore(t)
	if err := s.Matches.SoftDelete(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestApplyRemoteInsertsSynced(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	rec := model.NewSynced(testMatch("m1", "court-a"), "org1", "t1")
	if err := s.Matches.ApplyRemote(ctx, rec); err != nil {
		t.Fatalf("ApplyRemote failed: %v", err)
	}

	got, err := s.Matches.GetByID(ctx, "m1")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if !got.IsSynced {
		t.Error("replicated record must be stored synced")
	}
}

func TestApplyRemoteOverwritesSynced(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	base := model.NewSynced(testMatch("m1", "court-a"), "org1", "t1")
	base.IsSynced = true
	if err := s.Matches.Put(ctx, base); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	if err := s.Matches.ApplyRemote(ctx, model.NewSynced(testMatch("m1", "court-b"), "org1", "t1")); err != nil {
		t.Fatalf("ApplyRemote failed: %v", err)
	}

	got, _ := s.Matches.GetByID(ctx, "m1")
	if got.Data.CourtID != "court-b" {
		t.Errorf("synced record must adopt remote state, got court %s", got.Data.CourtID)
	}
}

func TestApplyRemoteKeepsUnsyncedStructure(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.Matches.SaveLocal(ctx, testMatch("m1", "court-local"), "org1", "t1"); err != nil {
		t.Fatalf("SaveLocal failed: %v", err)
	}

	incoming := testMatch("m1", "court-remote")
	incoming.Players.A.Score = 2
	incoming.Players.B.Hansoku = 1
	if err := s.Matches.ApplyRemote(ctx, model.NewSynced(incoming, "org1", "t1")); err != nil {
		t.Fatalf("ApplyRemote failed: %v", err)
	}

	got, err := s.Matches.GetByID(ctx, "m1")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Data.CourtID != "court-local" {
		t.Errorf("structural field overwritten: court %s", got.Data.CourtID)
	}
	if got.Data.Players.A.Score != 2 || got.Data.Players.B.Hansoku != 1 {
		t.Errorf("live fields not merged: %+v", got.Data.Players)
	}
	if got.IsSynced {
		t.Error("record must stay unsynced after a live-field merge")
	}
}

func TestApplyRemoteUnsyncedNoMergeCollection(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	team := model.Team{ID: "team1", Name: "Seibu"}
	if err := s.Teams.SaveLocal(ctx, team, "org1", "t1"); err != nil {
		t.Fatalf("SaveLocal failed: %v", err)
	}

	team.Name = "Renamed"
	if err := s.Teams.ApplyRemote(ctx, model.NewSynced(team, "org1", "t1")); err != nil {
		t.Fatalf("ApplyRemote failed: %v", err)
	}

	got, _ := s.Teams.GetByID(ctx, "team1")
	if got.Data.Name != "Seibu" {
		t.Errorf("unsynced team overwritten: %s", got.Data.Name)
	}
}

func TestRemoveRemote(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.Matches.SaveLocal(ctx, testMatch("m1", "court-a"), "org1", "t1"); err != nil {
		t.Fatalf("SaveLocal failed: %v", err)
	}
	if err := s.Matches.RemoveRemote(ctx, "m1"); err != nil {
		t.Fatalf("RemoveRemote failed: %v", err)
	}
	if _, err := s.Matches.GetByID(ctx, "m1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteTournamentData(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.Matches.SaveLocal(ctx, testMatch("m1", "court-a"), "org1", "t1"); err != nil {
		t.Fatalf("SaveLocal failed: %v", err)
	}
	if err := s.Matches.SaveLocal(ctx, testMatch("m2", "court-a"), "org1", "t2"); err != nil {
		t.Fatalf("SaveLocal failed: %v", err)
	}

	err := s.ExecTx(ctx, func(tx *sql.Tx) error {
		return s.DeleteTournamentData(ctx, tx, "org1", "t1")
	})
	if err != nil {
		t.Fatalf("DeleteTournamentData failed: %v", err)
	}

	if _, err := s.Matches.GetByID(ctx, "m1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("tournament t1 record survived: %v", err)
	}
	if _, err := s.Matches.GetByID(ctx, "m2"); err != nil {
		t.Errorf("tournament t2 record must survive: %v", err)
	}
}

func TestDeleteByGroup(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	tm := model.TeamMatch{MatchGroupID: "g1"}
	tm.ID = "b1"
	if err := s.TeamMatches.SaveLocal(ctx, tm, "org1", "t1"); err != nil {
		t.Fatalf("SaveLocal failed: %v", err)
	}
	tm2 := model.TeamMatch{MatchGroupID: "g2"}
	tm2.ID = "b2"
	if err := s.TeamMatches.SaveLocal(ctx, tm2, "org1", "t1"); err != nil {
		t.Fatalf("SaveLocal failed: %v", err)
	}

	if err := s.TeamMatches.DeleteByGroup(ctx, "org1", "t1", "g1"); err != nil {
		t.Fatalf("DeleteByGroup failed: %v", err)
	}

	if _, err := s.TeamMatches.GetByID(ctx, "b1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("group g1 bout survived: %v", err)
	}
	if _, err := s.TeamMatches.GetByID(ctx, "b2"); err != nil {
		t.Errorf("group g2 bout must survive: %v", err)
	}
}

func TestClearAllKeepsTournaments(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	tourn := model.Tournament{ID: "t1", Name: "Spring Taikai"}
	if err := s.Tournaments.SaveLocal(ctx, tourn, "org1", "t1"); err != nil {
		t.Fatalf("SaveLocal failed: %v", err)
	}
	if err := s.Matches.SaveLocal(ctx, testMatch("m1", "court-a"), "org1", "t1"); err != nil {
		t.Fatalf("SaveLocal failed: %v", err)
	}

	if err := s.ClearAll(ctx); err != nil {
		t.Fatalf("ClearAll failed: %v", err)
	}

	if _, err := s.Matches.GetByID(ctx, "m1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("match survived ClearAll: %v", err)
	}
	if _, err := s.Tournaments.GetByID(ctx, "t1"); err != nil {
		t.Errorf("tournament must survive ClearAll: %v", err)
	}
}
