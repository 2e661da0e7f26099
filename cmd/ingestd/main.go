// Command ingestd is the ingestion engine service: the workflow
// worker pool plus auto-trigger thread, and the HTTP surface the
// Download Manager pulls DAR documents from and an external caller
// uses to submit/stop/watch scenarios. Grounded on
// internal/app/server/server.go's chi+graceful-shutdown wiring and
// cmd/baseline-server/main.go's signal-driven shutdown loop.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pacesm/ingestion-engine/internal/config"
	"github.com/pacesm/ingestion-engine/internal/dar"
	"github.com/pacesm/ingestion-engine/internal/eventbus"
	"github.com/pacesm/ingestion-engine/internal/logger"
	"github.com/pacesm/ingestion-engine/internal/metrics"
	"github.com/pacesm/ingestion-engine/internal/product"
	"github.com/pacesm/ingestion-engine/internal/statusapi"
	"github.com/pacesm/ingestion-engine/internal/store"
	"github.com/pacesm/ingestion-engine/internal/workflow"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	cfg := config.FromEnv()

	zl := logger.Build(logger.Config{Level: cfg.LogLevel, Console: true, Component: "ingestd"}, os.Stdout)
	log := logger.NewSlog(&zl)
	log.Info("starting ingestd", "version", Version, "ie_server_port", cfg.IEServerPort, "dm_port", cfg.DMPort)

	scenarioStore, err := store.Open(cfg.ScenarioDBDSN, cfg.ArchiveCacheRedisAddr)
	if err != nil {
		log.Error("open scenario store", "err", err)
		os.Exit(1)
	}
	defer scenarioStore.Close()

	darController := dar.NewController(cfg.DMPort, cfg.IEServerPort, cfg.DownloadDir)

	products := product.New(log, cfg.DownloadDir)
	scripts := product.NewRunner(log, scenarioStore)

	events := eventbus.New(eventbus.FromEnv(cfg.EventsKafkaBrokers, ""), log)
	bgCtx, bgCancel := context.WithCancel(context.Background())
	defer bgCancel()
	if err := events.Start(bgCtx); err != nil {
		log.Error("start eventbus publisher", "err", err)
		os.Exit(1)
	}
	defer events.Stop()

	wf := workflow.New(workflow.Options{
		Store:               scenarioStore,
		ScriptRun:           scripts,
		Products:            products,
		DAR:                 darController,
		Events:              eventsAdapter{events},
		NWorkers:            cfg.NWorkflowWorkers,
		AutoTriggerInterval: cfg.AutoTriggerInterval,
		DARPollInterval:     cfg.DARStatusInterval,
		CoastlineShapefile:  cfg.CoastlineShapefile,
		Logger:              log,
	})

	runCtx, runCancel := context.WithCancel(context.Background())
	defer runCancel()

	portUp := false
	portWaitDone := make(chan struct{})
	go func() {
		defer close(portWaitDone)
		portUp = darController.WaitForPort(runCtx, cfg.MaxPortWaitSecs)
		if !portUp {
			log.Warn("download manager port never came up within MAX_PORT_WAIT_SECS", "max_wait", cfg.MaxPortWaitSecs)
		}
	}()

	if err := wf.Start(runCtx); err != nil {
		log.Error("start workflow manager", "err", err)
		os.Exit(1)
	}
	defer wf.Stop()

	metricsProvider := metrics.Init(metrics.Config{Enabled: true, Build: metrics.BuildInfo{Version: Version}})

	api := statusapi.New(scenarioStore, darController, wf, metricsProvider, log, func() bool {
		select {
		case <-portWaitDone:
			return portUp
		default:
			return false
		}
	})

	srv := &http.Server{
		Addr:              ":" + cfg.IEServerPort,
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serverErrCh := make(chan error, 1)
	go func() {
		log.Info("http listen", "addr", srv.Addr)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			serverErrCh <- err
		}
	}()

	shutdownSignalCh := make(chan os.Signal, 1)
	signal.Notify(shutdownSignalCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-shutdownSignalCh:
		log.Info("signal received, shutting down", "signal", sig.String())
	case err := <-serverErrCh:
		log.Error("server error", "err", err)
	}

	runCancel()
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	_ = srv.Shutdown(shutdownCtx)
	log.Info("ingestd stopped")
}

// eventsAdapter satisfies workflow.EventPublisher over
// *eventbus.Publisher, translating workflow's local event shape to
// eventbus's wire Event.
type eventsAdapter struct{ p *eventbus.Publisher }

func (a eventsAdapter) Publish(ev workflow.EventbusEvent) {
	a.p.Publish(eventbus.Event{ScenarioID: ev.ScenarioID, Status: ev.Status, Done: ev.Done})
}
