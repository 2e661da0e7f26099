// Package config loads the ingestion engine's process configuration
// from the environment, grounded on internal/core/config.FromEnv's
// getenv/getint/getduration pattern.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config bundles every env var spec.md's §6 names plus the ambient
// settings (logging, storage DSNs, messaging) a complete service needs
// that the distilled interface section is silent on.
type Config struct {
	// IEServerPort is the port the inbound DAR-response/status/control
	// HTTP surface listens on.
	IEServerPort string
	// MaxPortWaitSecs bounds WaitForPort's poll of /proc/net/tcp for the
	// DM listener.
	MaxPortWaitSecs time.Duration
	// DARStatusInterval is how often awaitDAR re-polls DM status for an
	// in-flight DAR.
	DARStatusInterval time.Duration
	// NWorkflowWorkers sizes the ingestion worker pool.
	NWorkflowWorkers int
	// ScriptsDir holds IE_SCRIPTS_DIR. No other package reads it:
	// scenario script paths are run exactly as stored.
	ScriptsDir string
	// DefaultCatRegScript/DefaultCatDeregScript hold
	// IE_DEFAULT_CATREG_SCRIPT/IE_DEFAULT_CATDEREG_SCRIPT. No other
	// package reads them, so no default catalogue script is ever run.
	DefaultCatRegScript   string
	DefaultCatDeregScript string
	// DMConfFn holds DM_CONF_FN, the name of the DM's own config file.
	// The engine neither parses nor forwards it.
	DMConfFn string

	// DMPort is the Download Manager's loopback listen port.
	DMPort string
	// DownloadDir roots every scenario run's download subtree.
	DownloadDir string

	// LogLevel controls the slog handler's minimum level.
	LogLevel string
	// ScenarioDBDSN is the sqlite DSN for internal/store.Open.
	ScenarioDBDSN string
	// ArchiveCacheRedisAddr is the optional redis fast-path in front of
	// the archive table; empty disables it.
	ArchiveCacheRedisAddr string
	// EventsKafkaBrokers is the comma-separated broker list
	// internal/eventbus publishes scenario-status events to; empty
	// disables the publisher entirely.
	EventsKafkaBrokers string

	// AutoTriggerInterval is how often the auto-trigger thread scans for
	// due scenarios.
	AutoTriggerInterval time.Duration

	// CoastlineShapefile is the land-polygon shapefile the coastline
	// cache is built from, ported from coastline_ck.py's fixed
	// media/etc/coastline_data/ne_10m_land.shp path. Empty disables the
	// coastline predicate fleet-wide (fail-open).
	CoastlineShapefile string
}

// FromEnv reads Config from the process environment, applying the
// defaults noted per field.
func FromEnv() Config {
	return Config{
		IEServerPort:          getenv("IE_SERVER_PORT", "8000"),
		MaxPortWaitSecs:       getduration("MAX_PORT_WAIT_SECS", 25*time.Second),
		DARStatusInterval:     getduration("DAR_STATUS_INTERVAL", 30*time.Second),
		NWorkflowWorkers:      getint("IE_N_WORKFLOW_WORKERS", 2),
		ScriptsDir:            getenv("IE_SCRIPTS_DIR", "/opt/ingestion/scripts"),
		DefaultCatRegScript:   getenv("IE_DEFAULT_CATREG_SCRIPT", ""),
		DefaultCatDeregScript: getenv("IE_DEFAULT_CATDEREG_SCRIPT", ""),
		DMConfFn:              getenv("DM_CONF_FN", ""),

		DMPort:      getenv("DM_PORT", "8080"),
		DownloadDir: getenv("DOWNLOAD_DIR", "/var/ingestion/downloads"),

		LogLevel:              getenv("LOG_LEVEL", "info"),
		ScenarioDBDSN:         getenv("SCENARIO_DB_DSN", "/var/ingestion/scenarios.sqlite"),
		ArchiveCacheRedisAddr: getenv("ARCHIVE_CACHE_REDIS_ADDR", ""),
		EventsKafkaBrokers:    getenv("EVENTS_KAFKA_BROKERS", ""),

		AutoTriggerInterval: getduration("IE_AUTO_TRIGGER_INTERVAL", time.Minute),

		CoastlineShapefile: getenv("IE_COASTLINE_SHAPEFILE", ""),
	}
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getint(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getduration(k string, def time.Duration) time.Duration {
	if v := os.Getenv(k); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
		if secs, err := strconv.Atoi(v); err == nil {
			return time.Duration(secs) * time.Second
		}
	}
	return def
}
