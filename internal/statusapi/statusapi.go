// Package statusapi is the HTTP surface the ingestion engine exposes:
// the inbound DAR-callback endpoint the Download Manager pulls (§6's
// "the engine exposes the URL; DM pulls it") and the status/control
// endpoints an external caller (the UI, out of scope of spec.md) uses
// to submit, watch and stop a scenario. Library: go-chi/chi/v5, the
// same router the teacher's internal/core/server wires.
package statusapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pacesm/ingestion-engine/internal/dar"
	"github.com/pacesm/ingestion-engine/internal/health"
	imw "github.com/pacesm/ingestion-engine/internal/middleware"
	"github.com/pacesm/ingestion-engine/internal/store"
	"github.com/pacesm/ingestion-engine/internal/workflow"
)

// Store is the scenario-status slice this package reads and writes,
// satisfied by *internal/store.Store. Unlike internal/workflow and
// internal/predicate, this package sits above internal/store in the
// dependency graph (nothing in internal/store imports statusapi), so
// there is no cycle to avoid by keeping this as an interface; it is
// kept narrow anyway to make the HTTP handlers easy to test with a
// fake.
type Store interface {
	GetScenarioStatus(scenarioID string) (store.ScenarioStatus, error)
	// SetStopRequest mirrors setStopRequest: returns the DAR id that was
	// active, if any, so the handler can cancel it with the DM after the
	// store mutex is released.
	SetStopRequest(scenarioID string) (hadActiveDAR string)
}

// DARSource is the DAR-queue surface the inbound callback and the stop
// handler need, satisfied by *internal/dar.Controller.
type DARSource interface {
	GetNextDAR(seqID string) (dar.DAR, bool)
	CancelDAR(ctx context.Context, darUUID string) error
}

// Enqueuer accepts scenario work, satisfied by *internal/workflow.Manager.
type Enqueuer interface {
	Submit(t workflow.Task)
}

// Server wires the inbound DAR-response endpoint and the scenario
// status/control surface onto one chi.Router, plus /healthz, /readyz
// and /metrics.
type Server struct {
	store Store
	dar   DARSource
	wf    Enqueuer
	log   *slog.Logger

	ready func() bool

	router chi.Router
}

// Metrics is the subset of internal/metrics.Provider this package
// mounts at /metrics; an interface so statusapi doesn't force every
// caller to build a real Prometheus registry in tests.
type Metrics interface {
	Handler() http.Handler
}

// New builds a Server. ready reports readiness for /readyz (e.g. "DM
// port is up and the store is reachable"); nil always reports ready.
func New(store Store, darSrc DARSource, wf Enqueuer, metrics Metrics, log *slog.Logger, ready func() bool) *Server {
	if log == nil {
		log = slog.Default()
	}
	if ready == nil {
		ready = func() bool { return true }
	}
	s := &Server{store: store, dar: darSrc, wf: wf, log: log, ready: ready}

	r := chi.NewRouter()
	r.Use(imw.Recover())
	r.Use(imw.Logging(log))

	r.Get("/healthz", health.Liveness())
	r.Get("/readyz", s.handleReadyz)
	if metrics != nil {
		r.Handle("/metrics", metrics.Handler())
	}

	r.Get("/dar-response/{seqID}", s.handleDARResponse)

	r.Route("/scenarios/{scenarioID}", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Post("/submit", s.handleSubmit)
		r.Post("/stop", s.handleStop)
	})

	s.router = r
	return s
}

// Handler returns the assembled http.Handler.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	if !s.ready() {
		http.Error(w, "not ready", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// handleDARResponse serves the DAR document a prior Submit queued under
// seqID as the response body, letting the Download Manager pull it per
// §6's inbound interface. A seqID with no queued DAR (already delivered,
// or never submitted) is a 404.
func (s *Server) handleDARResponse(w http.ResponseWriter, r *http.Request) {
	seqID := chi.URLParam(r, "seqID")
	d, ok := s.dar.GetNextDAR(seqID)
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(d); err != nil {
		s.log.Error("encode DAR response", "seq_id", seqID, "err", err)
	}
}

// handleStatus reports a scenario's current ScenarioStatus row.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	scenarioID := chi.URLParam(r, "scenarioID")
	st, err := s.store.GetScenarioStatus(scenarioID)
	if err != nil {
		http.Error(w, "scenario not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(st)
}

// handleSubmit enqueues an INGEST_SCENARIO task for the named scenario,
// the HTTP equivalent of an external caller pressing "ingest now".
func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	scenarioID := chi.URLParam(r, "scenarioID")
	s.wf.Submit(workflow.Task{Type: workflow.IngestScenario, ScenarioID: scenarioID})
	w.WriteHeader(http.StatusAccepted)
}

// handleStop sets STOP_REQUEST on a scenario and cancels its active DAR,
// if any, with the Download Manager. Cancellation happens after the
// store mutex guarding SetStopRequest is released, per §4.I's locking
// note: never hold the store mutex across DM network I/O.
func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	scenarioID := chi.URLParam(r, "scenarioID")
	activeDAR := s.store.SetStopRequest(scenarioID)
	if activeDAR != "" {
		if err := s.dar.CancelDAR(r.Context(), activeDAR); err != nil {
			s.log.Error("cancel DAR on stop request", "scenario_id", scenarioID, "dar_id", activeDAR, "err", err)
		}
	}
	w.WriteHeader(http.StatusAccepted)
}
