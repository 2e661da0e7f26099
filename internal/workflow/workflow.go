// Package workflow is the ingestion engine's task orchestrator: a LIFO
// queue, a fixed worker pool, and a periodic auto-trigger thread that
// enqueues due scenarios. Ported from work_flow_manager.py's Worker/
// AISWorker/WorkFlowManager trio; the two historical workflow-manager
// variants in the original project converge on this one (see
// SPEC_FULL.md's Open Question resolution).
package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/pacesm/ingestion-engine/internal/coastline"
	"github.com/pacesm/ingestion-engine/internal/dar"
	"github.com/pacesm/ingestion-engine/internal/eowcs"
	"github.com/pacesm/ingestion-engine/internal/geom"
	"github.com/pacesm/ingestion-engine/internal/ingesterr"
	"github.com/pacesm/ingestion-engine/internal/predicate"
	"github.com/pacesm/ingestion-engine/internal/product"
)

// TaskType names one of the four kinds of work the worker pool
// dispatches, ported from WorkerTask's task_type field and Worker's
// task_functions dispatch dict.
type TaskType string

const (
	IngestScenario  TaskType = "INGEST_SCENARIO"
	IngestLocalProd TaskType = "INGEST_LOCAL_PROD"
	AddProduct      TaskType = "ADD_PRODUCT"
	DeleteScenario  TaskType = "DELETE_SCENARIO"
)

// Task is one unit of work placed on the queue, ported from
// WorkerTask's parameters dict, narrowed to the fields each task_type
// actually reads.
type Task struct {
	Type       TaskType
	ScenarioID string
	NCNID      string
	Scripts    []string

	// LocalDir is the source directory for INGEST_LOCAL_PROD.
	LocalDir string
	// ProductID names the single product for ADD_PRODUCT.
	ProductID string
}

// ScenarioParams is the scenario-derived input to one ingestion run,
// ported from models.scenario_dict plus the eoid/extraconditions/script
// rows joined onto it.
type ScenarioParams struct {
	ScenarioID  string
	NCNID       string
	EndpointURL string
	EOIDs       []string

	AOIBbox    geom.Bbox
	TOI        *geom.TimePeriod
	SensorType string
	ViewAngle  *float64
	CloudCover *float64

	CoastlineCheck   bool
	CustomConditions []predicate.CustomCondition

	Scripts         []string
	CatRegistration bool

	StartingDate   time.Time
	RepeatInterval time.Duration
}

// Store is the subset of the scenario/status facade the workflow
// engine needs. Implemented by internal/store; expressed as an
// interface here (as internal/predicate already does for its own
// narrower slice of the same facade) so this package never imports
// internal/store and there is no import cycle.
type Store interface {
	predicate.ArchiveChecker
	predicate.StopChecker

	SetScenarioStatus(scenarioID string, isAvailable bool, status string, done float64)
	SetIngestionPID(scenarioID string, pid int)
	// SetActiveDAR mirrors set_active_dar's mutual-exclusion contract:
	// setting a non-empty id while one is already active fails, and
	// clearing an already-empty id also fails.
	SetActiveDAR(scenarioID, darID string) bool
	// LockScenario mirrors lock_scenario: claims the scenario if it is
	// currently available, reporting false if someone else holds it.
	LockScenario(scenarioID string) bool
	UnlockScenario(scenarioID string)
	ScenarioParams(scenarioID string) (ScenarioParams, error)
	// DueScenarios lists scenarios whose starting_date has elapsed and
	// advances each one's starting_date by its repeat_interval,
	// mirroring AISWorker.run's catch-up loop. Scenarios with
	// RepeatInterval == 0 are never due.
	DueScenarios(now time.Time) ([]ScenarioParams, error)
	DeleteScenarioRecords(scenarioID string) error
}

// CoverageSource is the EO-WCS surface the ingest handler needs,
// satisfied by *eowcs.Client.
type CoverageSource interface {
	DescribeEOCoverageSet(ctx context.Context, eoid string, aoi geom.Bbox, toi *geom.TimePeriod) ([]eowcs.CoverageDescription, error)
	GetCoverageURL(coverageID string, aoi geom.Bbox) string
}

// DARSubmitter is the DM control surface the ingest handler needs,
// satisfied by *dar.Controller.
type DARSubmitter interface {
	Submit(ctx context.Context, d dar.DAR) (dar.SubmitOutcome, error)
	// Poll is one poll(darUrl) round: fetch DM status, aggregate
	// progress, report whether every product has reached a terminal
	// state.
	Poll(ctx context.Context, darURL string) (dar.PollResult, error)
	// CancelDAR cancels every not-yet-COMPLETED product in the DAR
	// identified by darUUID.
	CancelDAR(ctx context.Context, darUUID string) error
}

// ScriptRunner executes a scenario's registration/de-registration or
// ingestion scripts, ported from Worker.run_scripts: it must check for
// a cooperative stop before each script and report how many failed.
type ScriptRunner interface {
	RunScripts(ctx context.Context, scenarioID, ncnID string, scriptsArgs [][]string) (nerrors int, err error)
}

// ProductProcessor lays out a run's download subtree and turns one
// downloaded product directory into an ODA manifest, ported from
// create_dl_dir and split_and_create_mf.
type ProductProcessor interface {
	// PrepareDownloadDir creates a fresh, uniquely-named subtree for one
	// ingestion run and returns its absolute path.
	PrepareDownloadDir(ncnID string) (fullPath string, err error)
	ListDownloadedDirs(dlDir string) ([]string, error)
	CreateManifest(dir, ncnID string) (manifestName string, ok bool)
}

// EventPublisher publishes a scenario-status transition for an
// external subscriber, satisfied in cmd/ingestd by an adapter over
// *internal/eventbus.Publisher.
// Optional: a nil Events field disables publishing entirely.
type EventPublisher interface {
	Publish(ev EventbusEvent)
}

// EventbusEvent is the scenario-status transition payload passed to
// EventPublisher, mirroring internal/eventbus.Event's fields without
// this package importing internal/eventbus back (eventbus has no
// reason to depend on workflow, so the duplication-free option would be
// eventbus depending on workflow instead, which is the wrong direction
// for an optional, swappable sink).
type EventbusEvent struct {
	ScenarioID string
	Status     string
	Done       float64
}

// Options bundles the Manager's collaborators.
type Options struct {
	Store     Store
	ScriptRun ScriptRunner
	Products  ProductProcessor
	DAR       DARSubmitter
	// Events publishes every scenario-status transition if set; nil
	// disables publishing.
	Events EventPublisher

	// NWorkers sizes the pool; Worker and AISWorker together numbered
	// three threads in the original (two Worker + one AISWorker). A
	// configurable pool size replaces the hardcoded two.
	NWorkers int
	// AutoTriggerInterval is how often the auto-trigger scans for due
	// scenarios, ported from AISWorker.run's hardcoded 60-second sleep.
	AutoTriggerInterval time.Duration
	// DARPollInterval is how often ingestScenario re-polls DM status
	// while a DAR is in flight, the configured DAR_STATUS_INTERVAL.
	DARPollInterval time.Duration

	// CoastlineShapefile is the land-polygon shapefile coastline.BuildCache
	// reads, ported from coastline_ck.py's fixed
	// media/etc/coastline_data/ne_10m_land.shp path. Empty disables the
	// coastline predicate for every scenario (fail-open, same as an
	// empty cache).
	CoastlineShapefile string

	// NewSource builds the EO-WCS client for a scenario's endpoint.
	// Defaults to wrapping eowcs.New; overridable so tests can inject a
	// fake CoverageSource without reaching the network.
	NewSource func(endpoint string) CoverageSource

	Logger *slog.Logger
}

// Manager owns the task queue, the worker pool, and the auto-trigger
// loop. One Manager per process, ported from the @Singleton
// WorkFlowManager.
type Manager struct {
	queue              *lifoQueue
	store              Store
	scripts            ScriptRunner
	products           ProductProcessor
	dar                DARSubmitter
	events             EventPublisher
	newSource          func(endpoint string) CoverageSource
	coastlineShapefile string
	log                *slog.Logger

	nWorkers     int
	triggerEvery time.Duration
	pollEvery    time.Duration

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

// New builds a Manager. NWorkers defaults to 2 and AutoTriggerInterval
// to one minute when unset, matching the original's fixed pool shape.
func New(opts Options) *Manager {
	n := opts.NWorkers
	if n <= 0 {
		n = 2
	}
	every := opts.AutoTriggerInterval
	if every <= 0 {
		every = time.Minute
	}
	pollEvery := opts.DARPollInterval
	if pollEvery <= 0 {
		pollEvery = 30 * time.Second
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	newSource := opts.NewSource
	if newSource == nil {
		newSource = func(endpoint string) CoverageSource { return eowcs.New(endpoint) }
	}
	return &Manager{
		queue:              newLifoQueue(),
		store:              opts.Store,
		scripts:            opts.ScriptRun,
		products:           opts.Products,
		dar:                opts.DAR,
		events:             opts.Events,
		newSource:          newSource,
		coastlineShapefile: opts.CoastlineShapefile,
		log:                logger,
		nWorkers:           n,
		triggerEvery:       every,
		pollEvery:          pollEvery,
	}
}

// setStatus writes a scenario's status through to the store and, if an
// EventPublisher is configured, republishes the same transition for
// external subscribers.
func (m *Manager) setStatus(scenarioID string, isAvailable bool, status string, done float64) {
	m.store.SetScenarioStatus(scenarioID, isAvailable, status, done)
	if m.events != nil {
		m.events.Publish(EventbusEvent{ScenarioID: scenarioID, Status: status, Done: done})
	}
}

// Submit enqueues t, setting its scenario's status to "QUEUED" at 1%
// done first, ported from WorkerTask.__init__'s side effect.
func (m *Manager) Submit(t Task) {
	if t.ScenarioID != "" {
		m.setStatus(t.ScenarioID, false, "QUEUED", 1)
	}
	m.queue.push(t)
}

// QueueDepth reports the number of tasks awaiting a worker.
func (m *Manager) QueueDepth() int {
	return m.queue.depth()
}

// Start launches the worker pool and the auto-trigger loop. Ported
// from WorkFlowManager.start; lifecycle shape (cancel + WaitGroup)
// grounded on pkg/invalidation/kafka/runner.go's Start/Stop.
func (m *Manager) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	m.cancel = cancel

	for i := 0; i < m.nWorkers; i++ {
		id := i
		m.wg.Add(1)
		go func() {
			defer m.wg.Done()
			m.runWorker(ctx, id)
		}()
	}

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.runAutoTrigger(ctx)
	}()

	m.log.Info("workflow manager started", "workers", m.nWorkers, "auto_trigger_interval", m.triggerEvery)
	return nil
}

// Stop cancels the workers and the auto-trigger loop and waits for
// them to exit.
func (m *Manager) Stop() {
	if m.cancel != nil {
		m.cancel()
	}
	m.queue.close()
	m.wg.Wait()
	m.log.Info("workflow manager stopped")
}

// runWorker is one Worker thread's run loop: pop, dispatch, repeat.
// Ported from Worker.run, including its "sleep briefly when idle"
// behavior, here implicit in lifoQueue.pop's blocking wait.
func (m *Manager) runWorker(ctx context.Context, id int) {
	for {
		task, ok := m.queue.pop(ctx)
		if !ok {
			return
		}
		m.doTask(ctx, id, task)
	}
}

// doTask dispatches task to its handler, recovering from a panic the
// way Worker.do_task's blanket except clause prevents one bad task
// from killing the worker thread. A panic is logged and, when the task
// names a scenario, marks it INGEST ERROR; an unrecognized task type is
// only logged. Otherwise the dispatched handlers own their own
// scenario-status finalization.
func (m *Manager) doTask(ctx context.Context, workerID int, task Task) {
	defer func() {
		if r := recover(); r != nil {
			m.log.Error("workflow worker recovered from panic", "worker", workerID, "task_type", task.Type, "scenario_id", task.ScenarioID, "panic", r)
			if task.ScenarioID != "" {
				m.setStatus(task.ScenarioID, true, "INGEST ERROR", 0)
			}
		}
	}()

	var err error
	switch task.Type {
	case IngestScenario:
		err = m.ingestScenario(ctx, task)
	case IngestLocalProd:
		err = m.ingestLocalProduct(ctx, task)
	case DeleteScenario:
		err = m.deleteScenario(ctx, task)
	case AddProduct:
		err = m.addProduct(ctx, task)
	default:
		m.log.Warn("workflow worker: unknown task type", "worker", workerID, "task_type", task.Type)
		return
	}
	if err != nil {
		m.log.Error("workflow worker: task failed", "worker", workerID, "task_type", task.Type, "scenario_id", task.ScenarioID, "err", err)
	}
}

// runAutoTrigger periodically re-evaluates every scenario's
// starting_date/repeat_interval and enqueues an INGEST_SCENARIO task
// for each one that has come due, ported from AISWorker.run.
func (m *Manager) runAutoTrigger(ctx context.Context) {
	ticker := time.NewTicker(m.triggerEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			due, err := m.store.DueScenarios(time.Now())
			if err != nil {
				m.log.Error("auto-trigger: listing due scenarios", "err", err)
				continue
			}
			for _, sp := range due {
				m.Submit(Task{
					Type:       IngestScenario,
					ScenarioID: sp.ScenarioID,
					NCNID:      sp.NCNID,
					Scripts:    sp.Scripts,
				})
			}
		}
	}
}

// ingestScenario runs one full EO-WCS-driven ingestion, ported from
// ingest_func end to end: gather coverage descriptions per eoid,
// filter each through the predicate chain, lay out the run's download
// subtree and submit the surviving coverages as a single DAR, poll the
// Download Manager's status until every product is terminal, then turn
// each downloaded directory into a manifest and run the registration
// scripts against it.
func (m *Manager) ingestScenario(ctx context.Context, task Task) (err error) {
	scID := task.ScenarioID
	m.store.SetIngestionPID(scID, os.Getpid())
	defer m.store.SetIngestionPID(scID, 0)

	m.setStatus(scID, false, "GENERATING URLS", 1)

	sp, spErr := m.store.ScenarioParams(scID)
	if spErr != nil {
		m.setStatus(scID, true, "INGEST ERROR", 0)
		return fmt.Errorf("load scenario params: %w", spErr)
	}

	source := m.newSource(sp.EndpointURL)

	var coastlineCache *coastline.Cache
	if sp.CoastlineCheck && m.coastlineShapefile != "" {
		cache, cacheErr := coastline.BuildCache(m.coastlineShapefile, sp.AOIBbox)
		if cacheErr != nil {
			// Fail open: coastline_ck.py's own posture is "never lose
			// data because the coastline check choked" (§4.D). A nil
			// cache makes the predicate accept unconditionally.
			m.log.Error("build coastline cache", "scenario_id", scID, "err", cacheErr)
		} else {
			coastlineCache = cache
		}
	}

	var urls []string
	predicateParams := predicate.Params{
		AOIBbox:          sp.AOIBbox,
		TOI:              sp.TOI,
		SensorType:       sp.SensorType,
		ViewAngle:        sp.ViewAngle,
		CloudCover:       sp.CloudCover,
		CoastlineCheck:   sp.CoastlineCheck,
		CoastlineCache:   coastlineCache,
		CustomConditions: sp.CustomConditions,
	}

	toteocs := float64(len(sp.EOIDs))
	for i, eoid := range sp.EOIDs {
		percentDone := 100 * float64(i) / toteocs
		if percentDone < 0.5 {
			percentDone = 1.0
		}
		m.setStatus(scID, false, "Create DAR: get MD", percentDone)

		cds, dErr := source.DescribeEOCoverageSet(ctx, eoid, sp.AOIBbox, sp.TOI)
		if dErr != nil {
			m.log.Error("DescribeEOCoverageSet failed", "scenario_id", scID, "eoid", eoid, "err", dErr)
			continue
		}
		for _, cd := range cds {
			coverageID, accept, evErr := predicate.Evaluate(scID, cd, predicateParams, m.store, m.store)
			if evErr != nil {
				var stopErr *ingesterr.StopRequest
				if errors.As(evErr, &stopErr) {
					m.setStatus(scID, true, "IDLE", 0)
					return nil
				}
				m.log.Error("predicate evaluation error", "scenario_id", scID, "err", evErr)
				continue
			}
			if !accept {
				continue
			}
			urls = append(urls, source.GetCoverageURL(coverageID, sp.AOIBbox))
		}
	}
	m.setStatus(scID, false, "Create DAR: get MD", 100)

	if len(urls) == 0 {
		m.setStatus(scID, true, "INGEST ERROR", 0)
		return ingesterr.NewIngestionError("no coverage survived the predicate chain")
	}

	dlDir, dirErr := m.products.PrepareDownloadDir(sp.NCNID)
	if dirErr != nil {
		m.setStatus(scID, true, "INGEST ERROR", 0)
		return fmt.Errorf("prepare download directory: %w", dirErr)
	}

	subdirs := product.SubdirNames(sp.NCNID, len(urls))
	items := make([]dar.Item, len(urls))
	for i, u := range urls {
		items[i] = dar.Item{DestinationDir: filepath.Join(dlDir, subdirs[i]), URL: u}
	}

	outcome, subErr := m.dar.Submit(ctx, dar.DAR{Items: items})
	if subErr != nil {
		m.setStatus(scID, true, "INGEST ERROR", 0)
		return fmt.Errorf("submit DAR: %w", subErr)
	}
	if !m.store.SetActiveDAR(scID, outcome.DMDarID) {
		m.setStatus(scID, true, "INGEST ERROR", 0)
		return ingesterr.NewIngestionError("a DAR is already active for scenario %s", scID)
	}
	defer m.store.SetActiveDAR(scID, "")

	if err := m.awaitDAR(ctx, scID, outcome); err != nil {
		return err
	}
	if m.store.IsStopRequested(scID) {
		m.setStatus(scID, true, "IDLE", 0)
		return nil
	}

	return m.processDownloaded(ctx, scID, sp, dlDir)
}

// awaitDAR repeats poll(darUrl) every m.pollEvery until every product
// in the DAR reaches a terminal state, checking for a cooperative stop
// between iterations, ported from ingestion_logic.py:wait_for_download.
func (m *Manager) awaitDAR(ctx context.Context, scID string, outcome dar.SubmitOutcome) error {
	m.setStatus(scID, false, "Downloading", 1)

	ticker := time.NewTicker(m.pollEvery)
	defer ticker.Stop()

	for {
		if m.store.IsStopRequested(scID) {
			if cErr := m.dar.CancelDAR(ctx, outcome.DMDarID); cErr != nil {
				m.log.Error("cancel DAR on stop", "scenario_id", scID, "err", cErr)
			}
			return nil
		}

		result, err := m.dar.Poll(ctx, outcome.DARURL)
		if err != nil {
			m.setStatus(scID, true, "INGEST ERROR", 0)
			return fmt.Errorf("poll DAR status: %w", err)
		}
		if result.Done {
			size := fmt.Sprintf("%d bytes", result.TotalBytes)
			if result.TotalBytes >= 102400 {
				size = fmt.Sprintf("%d kB", result.TotalBytes/1024)
			}
			m.log.Info("DAR download finished", "scenario_id", scID, "products", result.NProducts, "downloaded", size)
			status := fmt.Sprintf("Finished Dl. (%d)", result.NProducts)
			if result.ErrorCount > 0 {
				status = fmt.Sprintf("%d errors during Dl.", result.ErrorCount)
			}
			m.setStatus(scID, false, status, float64(result.PercentDone))
			return nil
		}
		m.setStatus(scID, false, fmt.Sprintf("Downloading (%d/%d)", result.NDone, result.NProducts), float64(result.PercentDone))

		select {
		case <-ctx.Done():
			if cErr := m.dar.CancelDAR(ctx, outcome.DMDarID); cErr != nil {
				m.log.Error("cancel DAR on shutdown", "scenario_id", scID, "err", cErr)
			}
			m.setStatus(scID, true, "IDLE", 0)
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// processDownloaded turns every directory under dlDir into an ODA
// manifest and runs the registration scripts against it, ported from
// ingest_func's per-directory loop below the DM wait.
func (m *Manager) processDownloaded(ctx context.Context, scID string, sp ScenarioParams, dlDir string) error {
	dirs, err := m.products.ListDownloadedDirs(dlDir)
	if err != nil {
		m.setStatus(scID, true, "INGEST ERROR", 0)
		return fmt.Errorf("list downloaded products: %w", err)
	}

	nDirs := len(dirs)
	nErrors := 0
	for i, d := range dirs {
		mfName, ok := m.products.CreateManifest(d, sp.NCNID)
		if !ok {
			nErrors++
			continue
		}

		var scriptsArgs [][]string
		for _, s := range sp.Scripts {
			if sp.CatRegistration {
				scriptsArgs = append(scriptsArgs, []string{s, mfName, "-catreg"})
			} else {
				scriptsArgs = append(scriptsArgs, []string{s, mfName})
			}
		}
		n, rErr := m.scripts.RunScripts(ctx, scID, sp.NCNID, scriptsArgs)
		nErrors += n
		if rErr != nil {
			var stopErr *ingesterr.StopRequest
			if errors.As(rErr, &stopErr) {
				m.setStatus(scID, true, "IDLE", 0)
				return nil
			}
		}

		percent := 100 * float64(i+1) / float64(nDirs)
		if percent < 1.0 {
			percent = 1
		}
		m.setStatus(scID, false, "INGESTING", percent)
	}

	if nErrors > 0 {
		m.setStatus(scID, true, "INGEST ERROR", 0)
		return ingesterr.NewIngestionError("%s: ingestion encountered %d errors", sp.NCNID, nErrors)
	}

	m.setStatus(scID, true, "IDLE", 0)
	return nil
}

// ingestLocalProduct ingests a product already present on local disk,
// skipping EO-WCS/DAR entirely. Ported from local_product_func.
func (m *Manager) ingestLocalProduct(ctx context.Context, task Task) (err error) {
	scID := task.ScenarioID
	m.setStatus(scID, false, "INGESTING", 1)
	m.store.SetIngestionPID(scID, os.Getpid())
	defer m.store.SetIngestionPID(scID, 0)

	sp, spErr := m.store.ScenarioParams(scID)
	if spErr != nil {
		m.setStatus(scID, true, "INGEST ERROR", 0)
		return fmt.Errorf("load scenario params: %w", spErr)
	}

	mfName, ok := m.products.CreateManifest(task.LocalDir, sp.NCNID)
	if !ok {
		m.setStatus(scID, true, "INGEST ERROR", 0)
		return ingesterr.NewIngestionError("manifest creation failed for %s", task.LocalDir)
	}

	var scriptsArgs [][]string
	for _, s := range task.Scripts {
		if sp.CatRegistration {
			scriptsArgs = append(scriptsArgs, []string{s, mfName, "-catreg"})
		} else {
			scriptsArgs = append(scriptsArgs, []string{s, mfName})
		}
	}
	_, rErr := m.scripts.RunScripts(ctx, scID, sp.NCNID, scriptsArgs)
	if rErr != nil {
		var stopErr *ingesterr.StopRequest
		if errors.As(rErr, &stopErr) {
			m.setStatus(scID, true, "IDLE", 0)
			return nil
		}
		m.setStatus(scID, true, "INGEST ERROR", 0)
		return rErr
	}

	m.setStatus(scID, true, "IDLE", 0)
	return nil
}

// deleteScenario removes a scenario and its related rows after running
// its de-registration scripts, refusing while a DAR is still active.
// Ported from delete_func.
func (m *Manager) deleteScenario(ctx context.Context, task Task) error {
	scID := task.ScenarioID
	if !m.store.LockScenario(scID) {
		return ingesterr.NewIngestionError("scenario %s is busy", scID)
	}
	defer m.store.UnlockScenario(scID)

	sp, spErr := m.store.ScenarioParams(scID)
	if spErr != nil {
		m.setStatus(scID, true, "NOT DELETED - ERROR.", 0)
		return fmt.Errorf("load scenario params: %w", spErr)
	}

	var scriptsArgs [][]string
	for _, s := range task.Scripts {
		scriptsArgs = append(scriptsArgs, []string{s, sp.NCNID})
	}
	if _, rErr := m.scripts.RunScripts(ctx, scID, sp.NCNID, scriptsArgs); rErr != nil {
		m.setStatus(scID, true, "NOT DELETED - ERROR.", 0)
		return rErr
	}

	if err := m.store.DeleteScenarioRecords(scID); err != nil {
		m.setStatus(scID, true, "NOT DELETED - ERROR.", 0)
		return err
	}
	return nil
}

// addProduct ingests a single already-located product into an existing
// scenario's collection, the ADD_PRODUCT dispatch entry. The original
// delegates to a separate add_product module not present in the
// supplied source; its shape (manifest + scripts, no DAR) mirrors
// ingestLocalProduct closely enough that it is implemented the same
// way here, scoped to one product id instead of a whole local
// directory.
func (m *Manager) addProduct(ctx context.Context, task Task) error {
	return m.ingestLocalProduct(ctx, task)
}

