package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kioskfleet/kiosk-fleet-go/internal/core/downloader"
	"github.com/kioskfleet/kiosk-fleet-go/internal/fleetapi"
)

type fakeProvider struct {
	status     *Status
	statusErr  error
	videos     []fleetapi.VideoAssignment
	videosErr  error
	syncErr    error
	syncCalls  int
	logLines   []string
	wantedTail int
}

func (f *fakeProvider) Status(context.Context) (*Status, error) {
	return f.status, f.statusErr
}

func (f *fakeProvider) Videos(context.Context) ([]fleetapi.VideoAssignment, error) {
	return f.videos, f.videosErr
}

func (f *fakeProvider) TriggerSync() error {
	f.syncCalls++
	return f.syncErr
}

func (f *fakeProvider) LogTail(lines int) ([]string, error) {
	f.wantedTail = lines
	return f.logLines, nil
}

func serve(t *testing.T, provider *fakeProvider, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)
	srv := New("127.0.0.1:0", provider, log)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(method, target, nil)
	srv.http.Handler.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestHealth(t *testing.T) {
	rec := serve(t, &fakeProvider{}, http.MethodGet, "/health")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, true, body["success"])
}

func TestStatusEndpoint(t *testing.T) {
	last := time.Date(2026, 8, 30, 3, 0, 0, 0, time.UTC)
	provider := &fakeProvider{status: &Status{
		KioskID:          "K001",
		PosID:            "P001",
		LastSync:         &last,
		ChannelConnected: true,
	}}

	rec := serve(t, provider, http.MethodGet, "/api/status")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode(t, rec)
	data := body["data"].(map[string]interface{})
	assert.Equal(t, "K001", data["kioskId"])
	assert.Equal(t, true, data["channelConnected"])
}

func TestVideosEndpointUpstreamFailure(t *testing.T) {
	provider := &fakeProvider{videosErr: errors.New("backend unreachable")}
	rec := serve(t, provider, http.MethodGet, "/api/videos")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, false, body["success"])
	assert.Contains(t, body["error"], "backend unreachable")
}

func TestSyncEndpoint(t *testing.T) {
	provider := &fakeProvider{}
	rec := serve(t, provider, http.MethodPost, "/api/sync")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, provider.syncCalls)
}

func TestSyncEndpointConflictWhileRunning(t *testing.T) {
	provider := &fakeProvider{syncErr: downloader.ErrSyncInProgress}
	rec := serve(t, provider, http.MethodPost, "/api/sync")
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestLogsEndpoint(t *testing.T) {
	provider := &fakeProvider{logLines: []string{"line one", "line two"}}

	rec := serve(t, provider, http.MethodGet, "/api/logs?lines=2")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, provider.wantedTail)

	body := decode(t, rec)
	data := body["data"].(map[string]interface{})
	lines := data["lines"].([]interface{})
	assert.Len(t, lines, 2)
}

func TestLogsEndpointValidation(t *testing.T) {
	rec := serve(t, &fakeProvider{}, http.MethodGet, "/api/logs?lines=zero")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	provider := &fakeProvider{}
	rec = serve(t, provider, http.MethodGet, "/api/logs?lines=99999")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, maxLogLines, provider.wantedTail, "tail size is capped")
}

func TestMetricsEndpoint(t *testing.T) {
	rec := serve(t, &fakeProvider{}, http.MethodGet, "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}
