package store

import (
	"path/filepath"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"

	"github.com/pacesm/ingestion-engine/internal/geom"
)

func newTestStore(t *testing.T, withRedis bool) *Store {
	t.Helper()
	redisAddr := ""
	if withRedis {
		mr, err := miniredis.Run()
		if err != nil {
			t.Fatalf("miniredis: %v", err)
		}
		t.Cleanup(mr.Close)
		redisAddr = mr.Addr()
	}

	dbPath := filepath.Join(t.TempDir(), "scenarios.sqlite")
	s, err := Open(dbPath, redisAddr)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func insertScenario(t *testing.T, s *Store, id string) {
	t.Helper()
	_, err := s.db.Exec(
		`INSERT INTO scenarios (id, ncn_id, dsrc, aoi_ll_e, aoi_ll_n, aoi_ur_e, aoi_ur_n, starting_date, repeat_interval)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, "ncn-"+id, "http://dsrc.example", 0, 0, 3, 3, time.Now().Add(-time.Hour).Format(time.RFC3339), 0,
	)
	if err != nil {
		t.Fatalf("insert scenario: %v", err)
	}
	_, err = s.db.Exec(
		`INSERT INTO scenario_status (scenario_id, status, is_available, done, active_dar, ingestion_pid) VALUES (?, 'IDLE', 1, 0, '', 0)`,
		id,
	)
	if err != nil {
		t.Fatalf("insert scenario_status: %v", err)
	}
}

// property 11: only one DAR may be active for a scenario at a time.
func TestSetActiveDARMutualExclusion(t *testing.T) {
	s := newTestStore(t, false)
	insertScenario(t, s, "sc1")

	if !s.SetActiveDAR("sc1", "dar-1") {
		t.Fatalf("expected setting the first active DAR to succeed")
	}
	if s.SetActiveDAR("sc1", "dar-2") {
		t.Fatalf("expected a second SetActiveDAR to fail while one is already active")
	}
	if !s.SetActiveDAR("sc1", "") {
		t.Fatalf("expected clearing the active DAR to succeed")
	}
	if s.SetActiveDAR("sc1", "") {
		t.Fatalf("expected clearing an already-empty active DAR to fail")
	}
	if !s.SetActiveDAR("sc1", "dar-3") {
		t.Fatalf("expected setting a new active DAR after clearing to succeed")
	}
}

// property 14: archiving the same (scenario, coverage) pair twice is a
// no-op; IsArchived remains true either way.
func TestArchiveIdempotence(t *testing.T) {
	s := newTestStore(t, true)

	if s.IsArchived("sc1", "cov_1") {
		t.Fatalf("expected an unmarked coverage to report unarchived")
	}
	if err := s.MarkArchived("sc1", "cov_1"); err != nil {
		t.Fatalf("MarkArchived: %v", err)
	}
	if err := s.MarkArchived("sc1", "cov_1"); err != nil {
		t.Fatalf("second MarkArchived should also succeed: %v", err)
	}
	if !s.IsArchived("sc1", "cov_1") {
		t.Fatalf("expected the coverage to report archived")
	}
	if s.IsArchived("sc1", "cov_2") {
		t.Fatalf("expected a distinct coverage id to remain unarchived")
	}
}

func TestLockScenario(t *testing.T) {
	s := newTestStore(t, false)
	insertScenario(t, s, "sc1")

	if !s.LockScenario("sc1") {
		t.Fatalf("expected the first lock to succeed")
	}
	if s.LockScenario("sc1") {
		t.Fatalf("expected a second lock while held to fail")
	}
	s.UnlockScenario("sc1")
	if !s.LockScenario("sc1") {
		t.Fatalf("expected a lock after unlock to succeed")
	}
}

func TestSetStopRequestStatus(t *testing.T) {
	s := newTestStore(t, false)
	insertScenario(t, s, "sc1")

	if dar := s.SetStopRequest("sc1"); dar != "" {
		t.Fatalf("expected no active DAR, got %q", dar)
	}
	if s.IsStopRequested("sc1") {
		t.Fatalf("expected IDLE (no active DAR/pid) rather than STOP_REQUEST")
	}

	s.SetActiveDAR("sc1", "dar-1")
	if dar := s.SetStopRequest("sc1"); dar != "dar-1" {
		t.Fatalf("expected the active DAR id returned, got %q", dar)
	}
	if !s.IsStopRequested("sc1") {
		t.Fatalf("expected STOP_REQUEST once a DAR was active")
	}
}

func TestScenarioParamsRoundTrip(t *testing.T) {
	s := newTestStore(t, false)
	insertScenario(t, s, "sc1")
	s.db.Exec(`INSERT INTO scenario_eoids (scenario_id, eoid) VALUES ('sc1', 'eoid1')`)
	s.db.Exec(`INSERT INTO scenario_scripts (scenario_id, ord, path) VALUES ('sc1', 0, '/scripts/a.sh')`)

	sp, err := s.ScenarioParams("sc1")
	if err != nil {
		t.Fatalf("ScenarioParams: %v", err)
	}
	if sp.NCNID != "ncn-sc1" || sp.EndpointURL != "http://dsrc.example" {
		t.Fatalf("unexpected params: %+v", sp)
	}
	if len(sp.EOIDs) != 1 || sp.EOIDs[0] != "eoid1" {
		t.Fatalf("expected one eoid, got %+v", sp.EOIDs)
	}
	if len(sp.Scripts) != 1 || sp.Scripts[0] != "/scripts/a.sh" {
		t.Fatalf("expected one script, got %+v", sp.Scripts)
	}
	want := geom.Bbox{LL: geom.Point{E: 0, N: 0}, UR: geom.Point{E: 3, N: 3}}
	if sp.AOIBbox != want {
		t.Fatalf("expected AOI %+v, got %+v", want, sp.AOIBbox)
	}
}

func TestDueScenarios(t *testing.T) {
	s := newTestStore(t, false)
	insertScenario(t, s, "sc1")
	s.db.Exec(`UPDATE scenarios SET repeat_interval = 3600 WHERE id = 'sc1'`)

	due, err := s.DueScenarios(time.Now())
	if err != nil {
		t.Fatalf("DueScenarios: %v", err)
	}
	if len(due) != 1 || due[0].ScenarioID != "sc1" {
		t.Fatalf("expected sc1 to be due, got %+v", due)
	}

	due, err = s.DueScenarios(time.Now())
	if err != nil {
		t.Fatalf("DueScenarios: %v", err)
	}
	if len(due) != 0 {
		t.Fatalf("expected no scenarios due immediately after advancing starting_date, got %+v", due)
	}
}

func TestDeleteScenarioRecords(t *testing.T) {
	s := newTestStore(t, false)
	insertScenario(t, s, "sc1")
	s.db.Exec(`INSERT INTO scenario_eoids (scenario_id, eoid) VALUES ('sc1', 'eoid1')`)

	if err := s.DeleteScenarioRecords("sc1"); err != nil {
		t.Fatalf("DeleteScenarioRecords: %v", err)
	}
	if _, err := s.ScenarioParams("sc1"); err == nil {
		t.Fatalf("expected loading a deleted scenario to fail")
	}
}
