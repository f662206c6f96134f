package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/usenocturne/headunitd/bluetooth"
	"github.com/usenocturne/headunitd/logger"
	"github.com/usenocturne/headunitd/utils"
	"github.com/usenocturne/headunitd/ws"
)

type fakeService struct {
	scanWindow time.Duration
	scan       []bluetooth.Device
	known      []bluetooth.Device
	info       bluetooth.DeviceInfo
	report     bluetooth.ActivationReport

	connectAddr string
	connectOK   bool
	connectErr  error

	disconnectOK  bool
	disconnectErr error

	autoOK  bool
	autoErr error

	err error
}

func (f *fakeService) ScanForDevices(_ context.Context, window time.Duration) ([]bluetooth.Device, error) {
	f.scanWindow = window
	return f.scan, f.err
}

func (f *fakeService) ListKnownDevices(context.Context) ([]bluetooth.Device, error) {
	return f.known, f.err
}

func (f *fakeService) Info(_ context.Context, address string) (bluetooth.DeviceInfo, error) {
	if _, err := bluetooth.ParseAddress(address); err != nil {
		return bluetooth.DeviceInfo{}, err
	}
	return f.info, f.err
}

func (f *fakeService) Connect(_ context.Context, address string) (bool, error) {
	f.connectAddr = address
	return f.connectOK, f.connectErr
}

func (f *fakeService) Disconnect(context.Context) (bool, error) {
	return f.disconnectOK, f.disconnectErr
}

func (f *fakeService) AutoConnect(context.Context) (bool, error) {
	return f.autoOK, f.autoErr
}

func (f *fakeService) ActivateProfiles(context.Context, string) (bluetooth.ActivationReport, error) {
	return f.report, f.err
}

func (f *fakeService) ResetCache(context.Context) error {
	return f.err
}

func newTestHandler(t *testing.T, svc Service) *Handler {
	t.Helper()
	versionFile := filepath.Join(t.TempDir(), "version.txt")
	require.NoError(t, os.WriteFile(versionFile, []byte("1.4.2\n"), 0o600))
	return NewHandler(svc, ws.NewWebSocketHub(logger.NewTestLogger()), versionFile, logger.NewTestLogger())
}

func do(t *testing.T, h http.Handler, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func decodeStatus(t *testing.T, rec *httptest.ResponseRecorder) StatusResponse {
	t.Helper()
	var resp StatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestInfo(t *testing.T) {
	h := newTestHandler(t, &fakeService{})

	rec := do(t, h, http.MethodGet, "/info")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

	var resp InfoResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "1.4.2", resp.Version)
}

func TestPreflight(t *testing.T) {
	h := newTestHandler(t, &fakeService{})

	rec := do(t, h, http.MethodOptions, "/bluetooth/connect/AA:BB:CC:DD:EE:01")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "POST")
}

func TestConnect(t *testing.T) {
	attemptErr := &bluetooth.AttemptError{
		AttemptID: "a1",
		Address:   "AA:BB:CC:DD:EE:01",
		Flow:      bluetooth.FlowNewPairing,
		State:     bluetooth.StatePairingNew,
		Reason:    bluetooth.ErrPairingFailed,
	}

	tests := []struct {
		name       string
		method     string
		ok         bool
		err        error
		wantCode   int
		wantStatus string
		wantReason string
	}{
		{name: "connected", method: http.MethodPost, ok: true, wantCode: http.StatusOK, wantStatus: "connected"},
		{name: "legacy get", method: http.MethodGet, ok: true, wantCode: http.StatusOK, wantStatus: "connected"},
		{
			name: "attempt failed", method: http.MethodPost, err: attemptErr,
			wantCode: http.StatusOK, wantStatus: "failed", wantReason: bluetooth.ErrPairingFailed.Error(),
		},
		{name: "busy", method: http.MethodPost, err: bluetooth.ErrBusy, wantCode: http.StatusConflict, wantStatus: "busy"},
		{
			name: "invalid address", method: http.MethodPost,
			err:      fmt.Errorf("%w: %q", bluetooth.ErrInvalidAddress, "nope"),
			wantCode: http.StatusBadRequest, wantStatus: "failed",
		},
		{name: "tool error", method: http.MethodPost, err: bluetooth.ErrToolUnavailable, wantCode: http.StatusInternalServerError, wantStatus: "error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeService{connectOK: tt.ok, connectErr: tt.err}
			h := newTestHandler(t, svc)

			rec := do(t, h, tt.method, "/bluetooth/connect/aa:bb:cc:dd:ee:01")
			require.Equal(t, tt.wantCode, rec.Code)
			assert.Equal(t, "aa:bb:cc:dd:ee:01", svc.connectAddr)

			resp := decodeStatus(t, rec)
			assert.Equal(t, tt.wantStatus, resp.Status)
			if tt.wantReason != "" {
				assert.Equal(t, tt.wantReason, resp.Reason)
			}
		})
	}
}

func TestDisconnect(t *testing.T) {
	h := newTestHandler(t, &fakeService{disconnectOK: true})
	rec := do(t, h, http.MethodPost, "/bluetooth/disconnect")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "disconnected", decodeStatus(t, rec).Status)

	h = newTestHandler(t, &fakeService{})
	rec = do(t, h, http.MethodPost, "/bluetooth/disconnect")
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeStatus(t, rec)
	assert.Equal(t, "failed", resp.Status)
	assert.Equal(t, bluetooth.ErrNotConnected.Error(), resp.Reason)

	rec = do(t, h, http.MethodGet, "/bluetooth/disconnect")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestAutoConnect(t *testing.T) {
	h := newTestHandler(t, &fakeService{autoErr: bluetooth.ErrNoKnownDevices})
	rec := do(t, h, http.MethodPost, "/bluetooth/autoconnect")
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeStatus(t, rec)
	assert.Equal(t, "failed", resp.Status)
	assert.Equal(t, bluetooth.ErrNoKnownDevices.Error(), resp.Reason)

	all := fmt.Errorf("%w: %w", bluetooth.ErrAllCandidatesFailed, errors.New("candidate A"))
	h = newTestHandler(t, &fakeService{autoErr: all})
	rec = do(t, h, http.MethodPost, "/bluetooth/autoconnect")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "failed", decodeStatus(t, rec).Status)
}

func TestScan(t *testing.T) {
	svc := &fakeService{scan: []bluetooth.Device{{Address: "AA:BB:CC:DD:EE:01", Name: "Phone"}}}
	h := newTestHandler(t, svc)

	rec := do(t, h, http.MethodGet, "/bluetooth/scan?duration=5")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 5*time.Second, svc.scanWindow)

	var devices []bluetooth.Device
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &devices))
	require.Len(t, devices, 1)
	assert.Equal(t, "Phone", devices[0].Name)

	do(t, h, http.MethodGet, "/bluetooth/scan?duration=1500ms")
	assert.Equal(t, 1500*time.Millisecond, svc.scanWindow)

	do(t, h, http.MethodGet, "/bluetooth/scan")
	assert.Zero(t, svc.scanWindow)

	rec = do(t, h, http.MethodGet, "/bluetooth/scan?duration=soon")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPairedDevicesToolError(t *testing.T) {
	h := newTestHandler(t, &fakeService{err: fmt.Errorf("list: %w", bluetooth.ErrTimeout)})

	rec := do(t, h, http.MethodGet, "/bluetooth/paired-devices")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestDeviceInfo(t *testing.T) {
	h := newTestHandler(t, &fakeService{info: bluetooth.DeviceInfo{Address: "AA:BB:CC:DD:EE:01", Name: "Phone", Connected: true}})

	rec := do(t, h, http.MethodGet, "/bluetooth/info/AA:BB:CC:DD:EE:01")
	require.Equal(t, http.StatusOK, rec.Code)
	var info bluetooth.DeviceInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &info))
	assert.True(t, info.Connected)

	rec = do(t, h, http.MethodGet, "/bluetooth/info/not-a-mac")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestActivateAndCleanCache(t *testing.T) {
	svc := &fakeService{report: bluetooth.ActivationReport{Address: "AA:BB:CC:DD:EE:01", Connected: true, AVRCP: true}}
	h := newTestHandler(t, svc)

	rec := do(t, h, http.MethodPost, "/bluetooth/activate/AA:BB:CC:DD:EE:01")
	require.Equal(t, http.StatusOK, rec.Code)
	var report bluetooth.ActivationReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.True(t, report.AVRCP)

	rec = do(t, h, http.MethodPost, "/bluetooth/clean-cache")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "success", decodeStatus(t, rec).Status)

	svc.err = bluetooth.ErrBusy
	rec = do(t, h, http.MethodPost, "/bluetooth/clean-cache")
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestParseWindow(t *testing.T) {
	d, err := parseWindow("")
	require.NoError(t, err)
	assert.Zero(t, d)

	d, err = parseWindow("12")
	require.NoError(t, err)
	assert.Equal(t, 12*time.Second, d)

	_, err = parseWindow("-3")
	require.Error(t, err)

	_, err = parseWindow("-2s")
	require.Error(t, err)
}

func TestWriteJSONEncodeFailure(t *testing.T) {
	var buf bytes.Buffer
	log, err := logger.NewWithWriter(logger.Config{Level: "info"}, &buf)
	require.NoError(t, err)
	h := NewHandler(&fakeService{}, ws.NewWebSocketHub(logger.NewTestLogger()), "", log)

	rec := httptest.NewRecorder()
	h.writeJSON(rec, http.StatusOK, map[string]interface{}{"bad": make(chan int)})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Body.String())
	assert.Contains(t, buf.String(), "Failed to encode response")
}

func TestWebSocketReceivesBroadcast(t *testing.T) {
	hub := ws.NewWebSocketHub(logger.NewTestLogger())
	h := NewHandler(&fakeService{}, hub, "", logger.NewTestLogger())

	server := httptest.NewServer(h)
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	hub.Broadcast(utils.WebSocketEvent{
		Type:    utils.EventConnect,
		Payload: utils.DeviceConnectedPayload{Address: "AA:BB:CC:DD:EE:01"},
	})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var event struct {
		Type    string          `json:"type"`
		Payload json.RawMessage `json:"payload"`
	}
	require.NoError(t, conn.ReadJSON(&event))
	assert.Equal(t, utils.EventConnect, event.Type)
	assert.Contains(t, string(event.Payload), "AA:BB:CC:DD:EE:01")

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return hub.ClientCount() == 0 }, 2*time.Second, 10*time.Millisecond)
}
