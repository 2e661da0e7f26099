package statusapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pacesm/ingestion-engine/internal/dar"
	"github.com/pacesm/ingestion-engine/internal/store"
	"github.com/pacesm/ingestion-engine/internal/workflow"
)

type fakeStore struct {
	status    store.ScenarioStatus
	statusErr error

	stopCalledFor string
	stopReturns   string
}

func (f *fakeStore) GetScenarioStatus(scenarioID string) (store.ScenarioStatus, error) {
	if f.statusErr != nil {
		return store.ScenarioStatus{}, f.statusErr
	}
	return f.status, nil
}

func (f *fakeStore) SetStopRequest(scenarioID string) string {
	f.stopCalledFor = scenarioID
	return f.stopReturns
}

type fakeDARSource struct {
	dars      map[string]dar.DAR
	cancelled []string
}

func (f *fakeDARSource) GetNextDAR(seqID string) (dar.DAR, bool) {
	d, ok := f.dars[seqID]
	return d, ok
}

func (f *fakeDARSource) CancelDAR(ctx context.Context, darUUID string) error {
	f.cancelled = append(f.cancelled, darUUID)
	return nil
}

type fakeEnqueuer struct {
	submitted []workflow.Task
}

func (f *fakeEnqueuer) Submit(t workflow.Task) {
	f.submitted = append(f.submitted, t)
}

func TestHandleDARResponseServesQueuedDAR(t *testing.T) {
	d := &fakeDARSource{dars: map[string]dar.DAR{
		"seq1": {Items: []dar.Item{{DestinationDir: "/tmp/a", URL: "http://x/1"}}},
	}}
	s := New(&fakeStore{}, d, &fakeEnqueuer{}, nil, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/dar-response/seq1", nil)
	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var got dar.DAR
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	require.Len(t, got.Items, 1)
	require.Equal(t, "http://x/1", got.Items[0].URL)
}

func TestHandleDARResponseUnknownSeqIDIs404(t *testing.T) {
	s := New(&fakeStore{}, &fakeDARSource{dars: map[string]dar.DAR{}}, &fakeEnqueuer{}, nil, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/dar-response/missing", nil)
	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, req)

	require.Equal(t, http.StatusNotFound, rr.Code)
}

func TestHandleStatusReportsScenarioRow(t *testing.T) {
	st := store.ScenarioStatus{ScenarioID: "sc1", Status: "DOWNLOADING", IsAvailable: false, Done: 42}
	s := New(&fakeStore{status: st}, &fakeDARSource{}, &fakeEnqueuer{}, nil, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/scenarios/sc1/status", nil)
	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var got store.ScenarioStatus
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	require.Equal(t, "DOWNLOADING", got.Status)
	require.Equal(t, float64(42), got.Done)
}

func TestHandleSubmitEnqueuesIngestScenario(t *testing.T) {
	enq := &fakeEnqueuer{}
	s := New(&fakeStore{}, &fakeDARSource{}, enq, nil, nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/scenarios/sc1/submit", nil)
	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, req)

	require.Equal(t, http.StatusAccepted, rr.Code)
	require.Len(t, enq.submitted, 1)
	require.Equal(t, "sc1", enq.submitted[0].ScenarioID)
	require.Equal(t, workflow.IngestScenario, enq.submitted[0].Type)
}

func TestHandleStopCancelsActiveDAR(t *testing.T) {
	st := &fakeStore{stopReturns: "dar-1"}
	d := &fakeDARSource{dars: map[string]dar.DAR{}}
	s := New(st, d, &fakeEnqueuer{}, nil, nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/scenarios/sc1/stop", nil)
	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, req)

	require.Equal(t, http.StatusAccepted, rr.Code)
	require.Equal(t, "sc1", st.stopCalledFor)
	require.Equal(t, []string{"dar-1"}, d.cancelled)
}

func TestHandleStopWithNoActiveDARDoesNotCallCancel(t *testing.T) {
	st := &fakeStore{stopReturns: ""}
	d := &fakeDARSource{dars: map[string]dar.DAR{}}
	s := New(st, d, &fakeEnqueuer{}, nil, nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/scenarios/sc1/stop", nil)
	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, req)

	require.Empty(t, d.cancelled)
}

func TestHealthzAndReadyz(t *testing.T) {
	ready := false
	s := New(&fakeStore{}, &fakeDARSource{}, &fakeEnqueuer{}, nil, nil, func() bool { return ready })

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	req = httptest.NewRequest(http.MethodGet, "/readyz", nil)
	rr = httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, req)
	require.Equal(t, http.StatusServiceUnavailable, rr.Code, "not ready yet")

	ready = true
	rr = httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code, "ready now")
}
