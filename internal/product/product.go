// Package product turns a Download Manager output directory into an
// ODA manifest and runs a scenario's registration scripts against it.
// Ported from ingestion_logic.py's create_dl_dir/request_download
// naming scheme and work_flow_manager.py's Worker.run_scripts.
package product

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"time"

	"github.com/pacesm/ingestion-engine/internal/ingesterr"
)

// DirFormat returns the p_<ncn_id>_%0Nd subdirectory name pattern used
// when laying out a DAR's download targets, ported from
// request_download: 3 digits normally, widening to 4 above 1000 URLs
// and 5 above 10000.
func DirFormat(ncnID string, nURLs int) string {
	digits := 3
	if nURLs > 10000 {
		digits = 5
	} else if nURLs > 1000 {
		digits = 4
	}
	return fmt.Sprintf("p_%s_%%0%dd", ncnID, digits)
}

// SubdirNames builds the nURLs relative subdirectory names a DAR's
// items should be downloaded into, 1-indexed per request_download's
// loop.
func SubdirNames(ncnID string, nURLs int) []string {
	format := DirFormat(ncnID, nURLs)
	names := make([]string, nURLs)
	for i := range names {
		names[i] = fmt.Sprintf(format, i+1)
	}
	return names
}

// Processor lists downloaded product directories and builds ODA
// manifests for each, satisfying workflow.ProductProcessor.
type Processor struct {
	log     *slog.Logger
	baseDir string
}

// New builds a Processor rooted at baseDir, the configured
// DOWNLOAD_DIR.
func New(log *slog.Logger, baseDir string) *Processor {
	if log == nil {
		log = slog.Default()
	}
	return &Processor{log: log, baseDir: baseDir}
}

// PrepareDownloadDir creates a fresh, uniquely-named download subtree
// for one ingestion run and returns its absolute path, ported from
// create_dl_dir: baseDir/YYYY/MM/<ncnID>_<YYMMDD>_<rnd>. mkFname's
// exact random-suffix scheme is not present in the supplied source;
// a hex-encoded random suffix serves the same "make a fresh, collision
// -free leaf directory name" purpose.
func (p *Processor) PrepareDownloadDir(ncnID string) (fullPath string, err error) {
	now := time.Now().UTC()
	var suffix [4]byte
	if _, rErr := rand.Read(suffix[:]); rErr != nil {
		return "", fmt.Errorf("generate download dir suffix: %w", rErr)
	}
	leaf := fmt.Sprintf("%s_%s_%s", ncnID, now.Format("060102"), hex.EncodeToString(suffix[:]))

	dir := filepath.Join(p.baseDir, fmt.Sprintf("%04d", now.Year()), fmt.Sprintf("%02d", int(now.Month())))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create download dir %s: %w", dir, err)
	}
	full := filepath.Join(dir, leaf)
	if err := os.Mkdir(full, 0o755); err != nil {
		return "", fmt.Errorf("create download leaf dir %s: %w", full, err)
	}
	return full, nil
}

// ListDownloadedDirs lists the immediate subdirectories of dlDir, one
// per downloaded product, ported from the dir_list = os.listdir(dl_dir)
// line in ingest_func.
func (p *Processor) ListDownloadedDirs(dlDir string) ([]string, error) {
	entries, err := os.ReadDir(dlDir)
	if err != nil {
		return nil, fmt.Errorf("list downloaded products under %s: %w", dlDir, err)
	}
	var dirs []string
	for _, e := range entries {
		if e.IsDir() {
			dirs = append(dirs, filepath.Join(dlDir, e.Name()))
		}
	}
	sort.Strings(dirs)
	return dirs, nil
}

// CreateManifest builds an ODA product manifest for the product found
// under dir, ported from split_and_create_mf's contract: return the
// manifest file name on success, or ok=false on any failure (a missing
// or unreadable product directory, an unrecognized product layout).
// The manifest itself is a flat listing of the product's regular
// files, one per line, named <ncnID>.manifest and written inside dir — a
// simplified stand-in for split_and_create_mf's actual per-format
// splitting logic, which is not present in the supplied source.
func (p *Processor) CreateManifest(dir, ncnID string) (manifestName string, ok bool) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		p.log.Error("create manifest: read product directory", "dir", dir, "err", err)
		return "", false
	}

	var files []string
	for _, e := range entries {
		if !e.IsDir() {
			files = append(files, e.Name())
		}
	}
	if len(files) == 0 {
		p.log.Warn("create manifest: product directory has no files", "dir", dir)
		return "", false
	}
	sort.Strings(files)

	mfPath := filepath.Join(dir, ncnID+".manifest")
	f, err := os.Create(mfPath)
	if err != nil {
		p.log.Error("create manifest: write manifest", "path", mfPath, "err", err)
		return "", false
	}
	defer f.Close()
	for _, name := range files {
		fmt.Fprintln(f, name)
	}
	return mfPath, true
}

// StopChecker reports whether a cooperative stop has been requested
// for a scenario, checked between every script invocation per
// Worker.run_scripts.
type StopChecker interface {
	IsStopRequested(scenarioID string) bool
}

// Runner invokes a scenario's scripts as subprocesses, satisfying
// workflow.ScriptRunner. Ported from Worker.run_scripts.
type Runner struct {
	log  *slog.Logger
	stop StopChecker
}

// NewRunner builds a Runner. stop may be nil, disabling the
// cooperative-stop checkpoint (only appropriate for callers, like
// deleteScenario's de-registration scripts, that never observe
// STOP_REQUEST mid-run).
func NewRunner(log *slog.Logger, stop StopChecker) *Runner {
	if log == nil {
		log = slog.Default()
	}
	return &Runner{log: log, stop: stop}
}

// RunScripts executes each entry of scriptsArgs as
// `exec.Command(args[0], args[1:]...)`, counting non-zero exits as
// errors. A cooperative stop observed before a script runs aborts the
// remaining scripts and returns *ingesterr.StopRequest, matching
// Worker.run_scripts' checkpoint.
func (r *Runner) RunScripts(ctx context.Context, scenarioID, ncnID string, scriptsArgs [][]string) (int, error) {
	nErrors := 0
	for _, args := range scriptsArgs {
		if r.stop != nil && r.stop.IsStopRequested(scenarioID) {
			return nErrors, &ingesterr.StopRequest{ScenarioID: scenarioID}
		}
		if len(args) == 0 {
			continue
		}

		r.log.Info("running script", "scenario_id", scenarioID, "ncn_id", ncnID, "script", args[0])
		cmd := exec.CommandContext(ctx, args[0], args[1:]...)
		if err := cmd.Run(); err != nil {
			nErrors++
			r.log.Error("script returned an error", "ncn_id", ncnID, "script", args[0], "err", err)
		}
	}
	return nErrors, nil
}
