package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/ghalamif/streamwindow/internal/domain"
)

type fakeBackend struct {
	snap    *domain.Snapshot
	status  domain.Status
	sent    []byte
	sendErr error
}

func (f *fakeBackend) Latest() (domain.Snapshot, bool) {
	if f.snap == nil {
		return domain.Snapshot{}, false
	}
	return *f.snap, true
}

func (f *fakeBackend) Status() domain.Status { return f.status }

func (f *fakeBackend) SendControl(b byte) error {
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, b)
	return nil
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestSnapshotEndpoint(t *testing.T) {
	backend := &fakeBackend{}
	h := New(":0", backend, prometheus.NewRegistry()).Router()

	rec := do(t, h, http.MethodGet, "/api/snapshot", "")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	captured := time.Date(2024, 6, 1, 12, 0, 12, 0, time.UTC)
	backend.snap = &domain.Snapshot{
		Points:         []domain.SnapshotPoint{{RelativeTime: -3, Value: 4}, {RelativeTime: 0, Value: 5}},
		CapturedAt:     captured,
		ProducerActive: true,
	}
	rec = do(t, h, http.MethodGet, "/api/snapshot", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var got domain.Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Equal(t, *backend.snap, got)

	rec = do(t, h, http.MethodPost, "/api/snapshot", "")
	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestStatusEndpoint(t *testing.T) {
	backend := &fakeBackend{status: domain.Status{Producer: "simulator", WindowMode: "time", WindowPoints: 3}}
	rec := do(t, New(":0", backend, prometheus.NewRegistry()).Router(), http.MethodGet, "/api/status", "")

	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"producer":"simulator","producer_active":false,"window_mode":"time","window_points":3,"channel_length":0,"appended":0,"evicted":0,"anomalies":0}`, rec.Body.String())
}

func TestControlEndpoint(t *testing.T) {
	backend := &fakeBackend{}
	h := New(":0", backend, prometheus.NewRegistry()).Router()

	rec := do(t, h, http.MethodPost, "/api/control", `{"command":"01"}`)
	require.Equal(t, http.StatusAccepted, rec.Code)
	rec = do(t, h, http.MethodPost, "/api/control", `{"command":"0x00"}`)
	require.Equal(t, http.StatusAccepted, rec.Code)
	require.Equal(t, []byte{0x01, 0x00}, backend.sent)

	for _, body := range []string{`{"command":"1"}`, `{"command":"zz"}`, `{"command":"0102"}`, `not json`} {
		rec = do(t, h, http.MethodPost, "/api/control", body)
		require.Equal(t, http.StatusBadRequest, rec.Code, body)
	}

	backend.sendErr = domain.ErrControlUnsupported
	rec = do(t, h, http.MethodPost, "/api/control", `{"command":"01"}`)
	require.Equal(t, http.StatusNotImplemented, rec.Code)

	backend.sendErr = domain.ErrProducerClosed
	rec = do(t, h, http.MethodPost, "/api/control", `{"command":"01"}`)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	backend.sendErr = errors.New("link down")
	rec = do(t, h, http.MethodPost, "/api/control", `{"command":"01"}`)
	require.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestHealthAndMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := prometheus.NewCounter(prometheus.CounterOpts{Name: "streamwindow_test_total", Help: "test"})
	reg.MustRegister(c)
	c.Inc()
	h := New(":0", &fakeBackend{}, reg).Router()

	rec := do(t, h, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "ok", rec.Body.String())

	rec = do(t, h, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "streamwindow_test_total 1")
}
