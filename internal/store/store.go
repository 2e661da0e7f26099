// Package store is the scenario/status/archive facade: a sqlite-backed
// persistence layer behind a single process-wide mutex, ported from
// the models.Scenario/ScenarioStatus/Archive Django rows §3 describes.
// A redis-backed fast-path sits in front of the archive table so a hot
// re-auto-triggered scenario doesn't hit sqlite for every coverage it
// re-evaluates. Schema/driver style grounded on
// MeKo-Christian-WaterColorMap's internal/mbtiles/writer.go
// (database/sql + modernc.org/sqlite, schema via db.Exec).
package store

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/redis/go-redis/v9"

	_ "modernc.org/sqlite"

	"github.com/pacesm/ingestion-engine/internal/geom"
	"github.com/pacesm/ingestion-engine/internal/predicate"
	"github.com/pacesm/ingestion-engine/internal/workflow"
)

const stopRequestStatus = "STOP_REQUEST"

const schema = `
CREATE TABLE IF NOT EXISTS scenarios (
	id               TEXT PRIMARY KEY,
	ncn_id           TEXT NOT NULL,
	dsrc             TEXT NOT NULL,
	dsrc_type        TEXT NOT NULL DEFAULT 'EOWCS',
	aoi_ll_e         REAL NOT NULL,
	aoi_ll_n         REAL NOT NULL,
	aoi_ur_e         REAL NOT NULL,
	aoi_ur_n         REAL NOT NULL,
	from_date        TEXT,
	to_date          TEXT,
	starting_date    TEXT NOT NULL,
	repeat_interval  INTEGER NOT NULL DEFAULT 0,
	cat_registration INTEGER NOT NULL DEFAULT 0,
	view_angle       REAL,
	cloud_cover      REAL,
	sensor_type      TEXT NOT NULL DEFAULT '',
	coastline_check  INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS scenario_eoids (
	scenario_id TEXT NOT NULL,
	eoid        TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS scenario_extraconditions (
	scenario_id   TEXT NOT NULL,
	ord           INTEGER NOT NULL,
	xpath         TEXT NOT NULL,
	expected_text TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS scenario_scripts (
	scenario_id TEXT NOT NULL,
	ord         INTEGER NOT NULL,
	path        TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS scenario_status (
	scenario_id   TEXT PRIMARY KEY,
	status        TEXT NOT NULL DEFAULT 'IDLE',
	is_available  INTEGER NOT NULL DEFAULT 1,
	done          REAL NOT NULL DEFAULT 0,
	active_dar    TEXT NOT NULL DEFAULT '',
	ingestion_pid INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS archive (
	scenario_id  TEXT NOT NULL,
	coverage_id  TEXT NOT NULL,
	PRIMARY KEY (scenario_id, coverage_id)
);
`

// Store is the scenario/status/archive facade. One Store per process;
// its mutex is the "one process-wide store mutex" §3's Ownership
// paragraph calls for.
type Store struct {
	db    *sql.DB
	mu    sync.Mutex
	cache *redis.Client // optional fast-path in front of the archive table
}

// Open creates (or attaches to) the sqlite database at dsn and
// initializes its schema. redisAddr may be empty, disabling the
// fast-path archive cache entirely (IsArchived then always consults
// sqlite).
func Open(dsn string, redisAddr string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open scenario store: %w", err)
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("set pragma %q: %w", pragma, err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create scenario store schema: %w", err)
	}

	s := &Store{db: db}
	if redisAddr != "" {
		s.cache = redis.NewClient(&redis.Options{Addr: redisAddr})
	}
	return s, nil
}

// Close releases the underlying database handle and cache client.
func (s *Store) Close() error {
	if s.cache != nil {
		_ = s.cache.Close()
	}
	return s.db.Close()
}

func archiveCacheKey(scenarioID, coverageID string) string {
	h := xxhash.New()
	h.WriteString(scenarioID)
	h.WriteString("\x00")
	h.WriteString(coverageID)
	return "ie:archive:" + strconv.FormatUint(h.Sum64(), 16)
}

// IsArchived reports whether coverageID has already been ingested for
// scenarioID, satisfying predicate.ArchiveChecker. Consults the redis
// fast-path first when configured, falling back to (and populating
// from) the sqlite archive table.
func (s *Store) IsArchived(scenarioID, coverageID string) bool {
	ctx := context.Background()
	if s.cache != nil {
		if v, err := s.cache.Get(ctx, archiveCacheKey(scenarioID, coverageID)).Result(); err == nil {
			return v == "1"
		}
	}

	s.mu.Lock()
	var n int
	err := s.db.QueryRow(
		`SELECT COUNT(1) FROM archive WHERE scenario_id = ? AND coverage_id = ?`,
		scenarioID, coverageID,
	).Scan(&n)
	s.mu.Unlock()
	if err != nil {
		return false
	}
	archived := n > 0
	if s.cache != nil {
		val := "0"
		if archived {
			val = "1"
		}
		s.cache.Set(ctx, archiveCacheKey(scenarioID, coverageID), val, time.Hour)
	}
	return archived
}

// MarkArchived records coverageID as ingested for scenarioID.
// Idempotent: archiving the same pair twice is a no-op, matching §8
// property 14.
func (s *Store) MarkArchived(scenarioID, coverageID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(
		`INSERT OR IGNORE INTO archive (scenario_id, coverage_id) VALUES (?, ?)`,
		scenarioID, coverageID,
	)
	if err == nil && s.cache != nil {
		s.cache.Set(context.Background(), archiveCacheKey(scenarioID, coverageID), "1", time.Hour)
	}
	return err
}

// IsStopRequested satisfies predicate.StopChecker: true iff the
// scenario's status column currently reads the STOP_REQUEST sentinel.
func (s *Store) IsStopRequested(scenarioID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	var status string
	err := s.db.QueryRow(`SELECT status FROM scenario_status WHERE scenario_id = ?`, scenarioID).Scan(&status)
	if err != nil {
		return false
	}
	return status == stopRequestStatus
}

// SetScenarioStatus writes (is_available, status, done), ported from
// set_scenario_status.
func (s *Store) SetScenarioStatus(scenarioID string, isAvailable bool, status string, done float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, _ = s.db.Exec(
		`UPDATE scenario_status SET is_available = ?, status = ?, done = ? WHERE scenario_id = ?`,
		boolToInt(isAvailable), status, done, scenarioID,
	)
}

// SetIngestionPID writes the owning worker's pid, ported from
// set_ingestion_pid.
func (s *Store) SetIngestionPID(scenarioID string, pid int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, _ = s.db.Exec(`UPDATE scenario_status SET ingestion_pid = ? WHERE scenario_id = ?`, pid, scenarioID)
}

// SetActiveDAR mirrors set_active_dar's mutual-exclusion contract:
// setting a non-empty darID while one is already active fails (there
// may be only one active DAR per scenario, §8 property 11), and
// clearing an already-empty darID also fails (nothing to clear).
func (s *Store) SetActiveDAR(scenarioID, darID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	var old string
	if err := s.db.QueryRow(`SELECT active_dar FROM scenario_status WHERE scenario_id = ?`, scenarioID).Scan(&old); err != nil {
		return false
	}
	if darID != "" && old != "" {
		return false
	}
	if darID == "" && old == "" {
		return false
	}
	_, err := s.db.Exec(`UPDATE scenario_status SET active_dar = ? WHERE scenario_id = ?`, darID, scenarioID)
	return err == nil
}

// LockScenario mirrors lock_scenario: atomically claims the scenario
// if is_available is currently true, flipping it to false.
func (s *Store) LockScenario(scenarioID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.db.Exec(
		`UPDATE scenario_status SET is_available = 0 WHERE scenario_id = ? AND is_available = 1`,
		scenarioID,
	)
	if err != nil {
		return false
	}
	n, err := res.RowsAffected()
	return err == nil && n > 0
}

// UnlockScenario releases a lock taken by LockScenario.
func (s *Store) UnlockScenario(scenarioID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, _ = s.db.Exec(`UPDATE scenario_status SET is_available = 1 WHERE scenario_id = ?`, scenarioID)
}

// SetStopRequest implements setStopRequest: under the store mutex,
// writes STOP_REQUEST if a DAR or owning pid is currently active,
// otherwise IDLE, and clears active_dar either way. Returns the DAR id
// that was active (if any) so the caller can cancel it with the DM
// after releasing the mutex, per the locking note in §4.I.
func (s *Store) SetStopRequest(scenarioID string) (hadActiveDAR string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var activeDAR string
	var pid int
	if err := s.db.QueryRow(
		`SELECT active_dar, ingestion_pid FROM scenario_status WHERE scenario_id = ?`, scenarioID,
	).Scan(&activeDAR, &pid); err != nil {
		return ""
	}

	if activeDAR != "" || pid != 0 {
		s.db.Exec(`UPDATE scenario_status SET status = ?, is_available = 1, active_dar = '' WHERE scenario_id = ?`,
			stopRequestStatus, scenarioID)
	} else {
		s.db.Exec(`UPDATE scenario_status SET status = 'IDLE', is_available = 1, done = 0 WHERE scenario_id = ?`,
			scenarioID)
	}
	return activeDAR
}

// ScenarioStatus is one scenario_status row, the shape the status/
// control HTTP surface reports back to callers.
type ScenarioStatus struct {
	ScenarioID   string
	Status       string
	IsAvailable  bool
	Done         float64
	ActiveDAR    string
	IngestionPID int
}

// GetScenarioStatus reads a scenario's current status row.
func (s *Store) GetScenarioStatus(scenarioID string) (ScenarioStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var (
		status       string
		isAvailable  int
		done         float64
		activeDAR    string
		ingestionPID int
	)
	err := s.db.QueryRow(
		`SELECT status, is_available, done, active_dar, ingestion_pid FROM scenario_status WHERE scenario_id = ?`,
		scenarioID,
	).Scan(&status, &isAvailable, &done, &activeDAR, &ingestionPID)
	if err != nil {
		return ScenarioStatus{}, fmt.Errorf("load status for scenario %s: %w", scenarioID, err)
	}
	return ScenarioStatus{
		ScenarioID:   scenarioID,
		Status:       status,
		IsAvailable:  isAvailable != 0,
		Done:         done,
		ActiveDAR:    activeDAR,
		IngestionPID: ingestionPID,
	}, nil
}

// ScenarioParams loads the scenario-derived input a workflow run needs,
// joining in eoids/extraconditions/scripts.
func (s *Store) ScenarioParams(scenarioID string) (workflow.ScenarioParams, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var (
		ncnID                  string
		dsrc                   string
		llE, llN, urE, urN     float64
		fromDate, toDate       sql.NullString
		startingDate           string
		repeatIntervalSecs     int64
		catRegistration        int
		viewAngle, cloudCover  sql.NullFloat64
		sensorType             string
		coastlineCheck         int
	)
	err := s.db.QueryRow(
		`SELECT ncn_id, dsrc, aoi_ll_e, aoi_ll_n, aoi_ur_e, aoi_ur_n, from_date, to_date,
		        starting_date, repeat_interval, cat_registration, view_angle, cloud_cover,
		        sensor_type, coastline_check
		 FROM scenarios WHERE id = ?`, scenarioID,
	).Scan(&ncnID, &dsrc, &llE, &llN, &urE, &urN, &fromDate, &toDate,
		&startingDate, &repeatIntervalSecs, &catRegistration, &viewAngle, &cloudCover,
		&sensorType, &coastlineCheck)
	if err != nil {
		return workflow.ScenarioParams{}, fmt.Errorf("load scenario %s: %w", scenarioID, err)
	}

	sp := workflow.ScenarioParams{
		ScenarioID:      scenarioID,
		NCNID:           ncnID,
		EndpointURL:     dsrc,
		AOIBbox:         geom.Bbox{LL: geom.Point{E: llE, N: llN}, UR: geom.Point{E: urE, N: urN}},
		SensorType:      sensorType,
		CatRegistration: catRegistration != 0,
		CoastlineCheck:  coastlineCheck != 0,
		RepeatInterval:  time.Duration(repeatIntervalSecs) * time.Second,
	}
	if viewAngle.Valid {
		v := viewAngle.Float64
		sp.ViewAngle = &v
	}
	if cloudCover.Valid {
		v := cloudCover.Float64
		sp.CloudCover = &v
	}
	if fromDate.Valid && toDate.Valid {
		tp, err := geom.NewTimePeriod(fromDate.String, toDate.String)
		if err == nil {
			sp.TOI = &tp
		}
	}
	if st, err := time.Parse(time.RFC3339, startingDate); err == nil {
		sp.StartingDate = st
	}

	rows, err := s.db.Query(`SELECT eoid FROM scenario_eoids WHERE scenario_id = ?`, scenarioID)
	if err != nil {
		return workflow.ScenarioParams{}, err
	}
	for rows.Next() {
		var eoid string
		if err := rows.Scan(&eoid); err == nil {
			sp.EOIDs = append(sp.EOIDs, eoid)
		}
	}
	rows.Close()

	rows, err = s.db.Query(`SELECT xpath, expected_text FROM scenario_extraconditions WHERE scenario_id = ? ORDER BY ord`, scenarioID)
	if err != nil {
		return workflow.ScenarioParams{}, err
	}
	for rows.Next() {
		var c predicate.CustomCondition
		if err := rows.Scan(&c.XPath, &c.ExpectedText); err == nil {
			sp.CustomConditions = append(sp.CustomConditions, c)
		}
	}
	rows.Close()

	rows, err = s.db.Query(`SELECT path FROM scenario_scripts WHERE scenario_id = ? ORDER BY ord`, scenarioID)
	if err != nil {
		return workflow.ScenarioParams{}, err
	}
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err == nil {
			sp.Scripts = append(sp.Scripts, p)
		}
	}
	rows.Close()

	return sp, nil
}

// DueScenarios lists every scenario whose starting_date has elapsed
// and a nonzero repeat_interval, advancing starting_date by
// repeat_interval until it is back in the future, ported from
// AISWorker.run's catch-up loop.
func (s *Store) DueScenarios(now time.Time) ([]workflow.ScenarioParams, error) {
	s.mu.Lock()
	rows, err := s.db.Query(`SELECT id, starting_date, repeat_interval FROM scenarios WHERE repeat_interval != 0`)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	type due struct {
		id       string
		start    time.Time
		interval time.Duration
	}
	var candidates []due
	for rows.Next() {
		var id, startStr string
		var intervalSecs int64
		if err := rows.Scan(&id, &startStr, &intervalSecs); err != nil {
			continue
		}
		start, err := time.Parse(time.RFC3339, startStr)
		if err != nil {
			continue
		}
		candidates = append(candidates, due{id, start, time.Duration(intervalSecs) * time.Second})
	}
	rows.Close()

	var out []workflow.ScenarioParams
	for _, c := range candidates {
		if c.start.After(now) {
			continue
		}
		next := c.start
		for !next.After(now) {
			next = next.Add(c.interval)
		}
		s.db.Exec(`UPDATE scenarios SET starting_date = ? WHERE id = ?`, next.Format(time.RFC3339), c.id)
		s.mu.Unlock()
		sp, err := s.ScenarioParams(c.id)
		s.mu.Lock()
		if err == nil {
			out = append(out, sp)
		}
	}
	s.mu.Unlock()
	return out, nil
}

// DeleteScenarioRecords removes a scenario and its joined rows, ported
// from delete_func's final cleanup.
func (s *Store) DeleteScenarioRecords(scenarioID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, table := range []string{"scenario_eoids", "scenario_extraconditions", "scenario_scripts", "scenario_status", "scenarios"} {
		col := "scenario_id"
		if table == "scenarios" {
			col = "id"
		}
		if _, err := s.db.Exec(fmt.Sprintf(`DELETE FROM %s WHERE %s = ?`, table, col), scenarioID); err != nil {
			return fmt.Errorf("delete from %s: %w", table, err)
		}
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
