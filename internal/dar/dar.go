// Package dar implements the Data Access Request queue and the
// Download Manager's HTTP control interface: the port-wait loop, DAR
// submission, and the FIFO-with-fallback lookup the DAR callback
// handler uses to match a DM response back to the request that
// produced it. Ported from dm_control.py's DownloadManagerController.
package dar

import (
	"bufio"
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/pacesm/ingestion-engine/internal/httpclient"
	"github.com/pacesm/ingestion-engine/internal/ingesterr"
)

// Item is one (destinationDir, url) pair inside a DAR document.
type Item struct {
	DestinationDir string `json:"destinationDir"`
	URL            string `json:"url"`
}

// DAR is a Data Access Request: a document listing the items to
// download, submitted to the Download Manager as a unit.
type DAR struct {
	Items []Item `json:"items"`
}

const (
	dmDownloadCommand   = "download"
	darProductCancelFmt = "/products/%s?action=cancel"

	procNetTCPPath    = "/proc/net/tcp"
	procUIDIndex      = 7
	procStatusIndex   = 3
	procAddressIndex  = 1
	tcpListeningState = "0A"

	// DefaultPortWaitSecs is the fallback sleep used when
	// /proc/net/tcp cannot be parsed at all, matching the original's
	// fail-open posture ("never block startup on a broken /proc read").
	DefaultPortWaitSecs = 25 * time.Second
)

type queueItem struct {
	seqID string
	dar   DAR
}

// Controller owns the DAR submission queue and talks to the Download
// Manager over loopback HTTP. One Controller is shared by every
// workflow worker in the process; its queue mutex is the "one
// DAR-queue mutex" the design notes call for.
type Controller struct {
	http *http.Client

	dmPort       string
	ieServerPort string
	downloadDir  string
	idBase       string

	mu    sync.Mutex
	queue []queueItem
	seqID uint64
}

// NewController builds a Controller for the DM listening on dmPort,
// with the ingestion engine itself reachable on ieServerPort, where the
// DM pulls each submitted DAR document.
func NewController(dmPort, ieServerPort, downloadDir string) *Controller {
	return &Controller{
		http:         httpclient.NewOutbound(),
		dmPort:       dmPort,
		ieServerPort: ieServerPort,
		downloadDir:  downloadDir,
		idBase:       newIDBase(),
	}
}

func newIDBase() string {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "darbase"
	}
	return hex.EncodeToString(b[:])
}

// dmBaseURL is the Download Manager's loopback HTTP base, ported from
// DM_URL_TEMPLATE.
func (c *Controller) dmBaseURL() string {
	return fmt.Sprintf("http://127.0.0.1:%s/download-manager/", c.dmPort)
}

// darCallbackBaseURL is the base URL the DM is told to GET, one
// sequence id at a time, to fetch the DAR document it was instructed
// to download; the engine exposes the URL, the DM pulls it. Ported
// from IE_DAR_RESP_URL_TEMPLATE.
func (c *Controller) darCallbackBaseURL() string {
	return fmt.Sprintf("http://127.0.0.1:%s/dar-response", c.ieServerPort)
}

// WaitForPort polls /proc/net/tcp for a socket listening on the
// configured DM port, bounded by maxWait. Ported from
// dm_control.py:wait_for_port, including the fail-open fallback: a
// /proc parse error sleeps DefaultPortWaitSecs and returns false
// rather than treating the failure as fatal.
func (c *Controller) WaitForPort(ctx context.Context, maxWait time.Duration) bool {
	if c.dmPort == "" {
		return false
	}
	port, err := strconv.Atoi(c.dmPort)
	if err != nil {
		return false
	}
	uid := strconv.Itoa(os.Getuid())
	deadline := time.Now().Add(maxWait)

	for {
		found, parseErr := scanProcNetTCPForListener(uid, port)
		if parseErr != nil {
			select {
			case <-ctx.Done():
				return false
			case <-time.After(DefaultPortWaitSecs):
			}
			return false
		}
		if found {
			return true
		}
		if time.Now().After(deadline) {
			return false
		}
		select {
		case <-ctx.Done():
			return false
		case <-time.After(1 * time.Second):
		}
	}
}

func scanProcNetTCPForListener(uid string, port int) (bool, error) {
	f, err := os.Open(procNetTCPPath)
	if err != nil {
		return false, err
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Scan() // header line
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) <= procUIDIndex {
			continue
		}
		if fields[procUIDIndex] != uid || fields[procStatusIndex] != tcpListeningState {
			continue
		}
		addrParts := strings.Split(fields[procAddressIndex], ":")
		if len(addrParts) != 2 {
			continue
		}
		p, err := strconv.ParseInt(addrParts[1], 16, 32)
		if err != nil {
			continue
		}
		if int(p) == port {
			return true, nil
		}
	}
	if err := sc.Err(); err != nil {
		return false, err
	}
	return false, nil
}

func (c *Controller) nextSeqID() string {
	c.seqID++
	return c.idBase + strconv.FormatUint(c.seqID, 10)
}

// SubmitOutcome is the result of a DAR submission.
type SubmitOutcome struct {
	// Status is "OK" or "DAR_EXISTS", mirroring the tuple the original
	// returns; DAR_EXISTS means the DM had already accepted an
	// identical request from a previous attempt and is not an error.
	Status  string
	DARURL  string
	DMDarID string
	// SeqID is this DAR's path segment under darCallbackBaseURL, the
	// key the DAR-response handler passes to GetNextDAR when the DM
	// pulls the document.
	SeqID string
}

// Submit queues dar under a fresh sequence id and posts it to the
// Download Manager. Ported from dm_control.py:submit_dar.
func (c *Controller) Submit(ctx context.Context, dar DAR) (SubmitOutcome, error) {
	if c.dmPort == "" {
		return SubmitOutcome{}, ingesterr.NewConfigError("no port for DM")
	}
	if c.ieServerPort == "" {
		return SubmitOutcome{}, ingesterr.NewConfigError("no IE port")
	}

	c.mu.Lock()
	seqID := c.nextSeqID()
	c.queue = append(c.queue, queueItem{seqID: seqID, dar: dar})
	c.mu.Unlock()

	darURL := c.darCallbackBaseURL() + "/" + seqID
	form := url.Values{"darUrl": {darURL}}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.dmBaseURL()+dmDownloadCommand,
		strings.NewReader(form.Encode()))
	if err != nil {
		return SubmitOutcome{}, ingesterr.NewDMError("build DM request: %v", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return SubmitOutcome{}, ingesterr.NewDMError("request to DM: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return SubmitOutcome{}, ingesterr.NewDMError("read DM response: %v", err)
	}

	var dmResp struct {
		Success      bool   `json:"success"`
		DarUUID      string `json:"darUuid"`
		ErrorType    string `json:"errorType"`
		ErrorMessage string `json:"errorMessage"`
	}
	if err := json.Unmarshal(body, &dmResp); err != nil {
		return SubmitOutcome{}, ingesterr.NewDMError("malformed DM response: %v", err)
	}

	switch {
	case dmResp.Success:
		return SubmitOutcome{Status: "OK", DARURL: darURL, DMDarID: dmResp.DarUUID, SeqID: seqID}, nil
	case dmResp.ErrorType == "DataAccessRequestAlreadyExistsException":
		return SubmitOutcome{Status: "DAR_EXISTS", SeqID: seqID}, nil
	case dmResp.ErrorMessage != "":
		return SubmitOutcome{}, ingesterr.NewDMError("DM reports error: %s", dmResp.ErrorMessage)
	default:
		return SubmitOutcome{}, ingesterr.NewDMError("unknown error, no errorMessage in DM response")
	}
}

// GetNextDAR pops the DAR matching seqID. It pops the queue head in
// FIFO order when the sequence ids match, otherwise falls back to a
// linear FindDAR scan. Ported from dm_control.py:get_next_dar.
func (c *Controller) GetNextDAR(seqID string) (DAR, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.queue) == 0 {
		return DAR{}, false
	}
	if c.queue[0].seqID == seqID {
		d := c.queue[0].dar
		c.queue = c.queue[1:]
		return d, true
	}
	return c.findAndRemoveLocked(seqID)
}

// findAndRemoveLocked scans the queue for seqID regardless of
// position. A deliberate deviation from dm_control.py:find_dar, which
// leaves the matched entry in the queue: doing so here would let a
// later out-of-order lookup return a DAR that has already been
// delivered once. Callers must already hold c.mu.
func (c *Controller) findAndRemoveLocked(seqID string) (DAR, bool) {
	for i, item := range c.queue {
		if item.seqID == seqID {
			d := item.dar
			c.queue = append(c.queue[:i], c.queue[i+1:]...)
			return d, true
		}
	}
	return DAR{}, false
}

// productStatusWire is one productList[].productProgress entry from the
// DM's GET /dataAccessRequests response.
type productStatusWire struct {
	UUID               string
	Status             string
	ProgressPercentage *int
	DownloadedSize     int64
}

// PollResult is one poll(darUrl) outcome, ported from
// dm_control.py:poll/get_dar_status.
type PollResult struct {
	// Done is true once every product in the DAR has reached a
	// terminal state (COMPLETED or IN_ERROR).
	Done bool
	// PercentDone is the aggregate progress across all products,
	// floored at 1.
	PercentDone int
	// ErrorCount is how many products finished IN_ERROR.
	ErrorCount int
	// TotalBytes sums downloadedSize across all products, used for the
	// completion summary log line.
	TotalBytes int64
	NProducts  int
	// NDone is how many products have reached a terminal state
	// (COMPLETED or IN_ERROR) so far, used for the "Downloading (n/m)"
	// status string while the DAR is still in progress.
	NDone int
}

// fetchDAREntries lists every DAR the DM currently knows about.
func (c *Controller) fetchDAREntries(ctx context.Context) ([]darEntryWire, error) {
	u := strings.TrimRight(c.dmBaseURL(), "/") + "/dataAccessRequests"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, ingesterr.NewDMError("build status request: %v", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, ingesterr.NewDMError("status request to DM: %v", err)
	}
	defer resp.Body.Close()

	var parsed struct {
		DataAccessRequests []darEntryWire `json:"dataAccessRequests"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, ingesterr.NewDMError("malformed DM status response: %v", err)
	}
	return parsed.DataAccessRequests, nil
}

type darEntryWire struct {
	UUID        string `json:"uuid"`
	DarURL      string `json:"darURL"`
	ProductList []struct {
		UUID            string `json:"uuid"`
		ProductProgress struct {
			Status             string `json:"status"`
			ProgressPercentage *int   `json:"progressPercentage"`
			DownloadedSize     int64  `json:"downloadedSize"`
		} `json:"productProgress"`
	} `json:"productList"`
}

func (e darEntryWire) products() []productStatusWire {
	products := make([]productStatusWire, len(e.ProductList))
	for i, p := range e.ProductList {
		products[i] = productStatusWire{
			UUID:               p.UUID,
			Status:             p.ProductProgress.Status,
			ProgressPercentage: p.ProductProgress.ProgressPercentage,
			DownloadedSize:     p.ProductProgress.DownloadedSize,
		}
	}
	return products
}

// Poll fetches the Download Manager's current DAR list, locates the
// entry matching darURL, and aggregates its products' progress. A DAR
// absent from the list is retried twice more with 1-second sleeps
// before giving up with a DMError, ported from
// ingestion_logic.py:wait_for_download's absence tolerance. Aggregate
// percentage is each product's own progressPercentage when the DM
// reports one, else 100 for a product already COMPLETED, summed and
// divided by the product count, floored at 1.
func (c *Controller) Poll(ctx context.Context, darURL string) (PollResult, error) {
	var products []productStatusWire
	var found bool
	for attempt := 0; ; attempt++ {
		entries, err := c.fetchDAREntries(ctx)
		if err != nil {
			return PollResult{}, err
		}
		for _, e := range entries {
			if e.DarURL == darURL {
				products, found = e.products(), true
				break
			}
		}
		if found || attempt == 2 {
			break
		}
		select {
		case <-ctx.Done():
			return PollResult{}, ctx.Err()
		case <-time.After(1 * time.Second):
		}
	}
	if !found {
		return PollResult{}, ingesterr.NewDMError("DAR %s not found after retries", darURL)
	}
	if len(products) == 0 {
		return PollResult{Done: true, PercentDone: 100}, nil
	}

	var sumPercent, errCount, nDone int
	var totalBytes int64
	done := true
	for _, p := range products {
		switch {
		case p.ProgressPercentage != nil:
			sumPercent += *p.ProgressPercentage
		case p.Status == "COMPLETED":
			sumPercent += 100
		}
		switch p.Status {
		case "COMPLETED":
			nDone++
		case "IN_ERROR":
			errCount++
			nDone++
		default:
			done = false
		}
		totalBytes += p.DownloadedSize
	}

	pct := sumPercent / len(products)
	if pct < 1 {
		pct = 1
	}
	return PollResult{Done: done, PercentDone: pct, ErrorCount: errCount, TotalBytes: totalBytes, NProducts: len(products), NDone: nDone}, nil
}

// CancelProduct tells the DM to cancel an in-progress product
// download, ported from stop_products_dl's read_from_url(url) call
// (a GET, like fetchDAREntries above — the DM's cancel
// endpoint takes its action via the URL, not the method or a body).
func (c *Controller) CancelProduct(ctx context.Context, productUUID string) error {
	u := strings.TrimRight(c.dmBaseURL(), "/") + fmt.Sprintf(darProductCancelFmt, productUUID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return ingesterr.NewDMError("build cancel request: %v", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return ingesterr.NewDMError("cancel request to DM: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return ingesterr.NewDMError("DM cancel returned status %d", resp.StatusCode)
	}
	return nil
}

// CancelDAR cancels every not-yet-COMPLETED product belonging to the
// DAR identified by darUUID, ported from dm_control.py:cancel.
func (c *Controller) CancelDAR(ctx context.Context, darUUID string) error {
	entries, err := c.fetchDAREntries(ctx)
	if err != nil {
		return err
	}
	var products []productStatusWire
	found := false
	for _, e := range entries {
		if e.UUID == darUUID {
			products, found = e.products(), true
			break
		}
	}
	if !found {
		return nil
	}
	var firstErr error
	for _, p := range products {
		if p.Status == "COMPLETED" {
			continue
		}
		if cErr := c.CancelProduct(ctx, p.UUID); cErr != nil && firstErr == nil {
			firstErr = cErr
		}
	}
	return firstErr
}

// QueueDepth reports the number of submitted DARs whose document the
// DM has not yet pulled.
func (c *Controller) QueueDepth() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.queue)
}
