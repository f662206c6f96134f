// Package api exposes the bluetooth manager over HTTP and a websocket
// event stream.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/usenocturne/headunitd/bluetooth"
)

// Service is the subset of *bluetooth.BluetoothManager the handlers use.
type Service interface {
	ScanForDevices(ctx context.Context, window time.Duration) ([]bluetooth.Device, error)
	ListKnownDevices(ctx context.Context) ([]bluetooth.Device, error)
	Info(ctx context.Context, address string) (bluetooth.DeviceInfo, error)
	Connect(ctx context.Context, address string) (bool, error)
	Disconnect(ctx context.Context) (bool, error)
	AutoConnect(ctx context.Context) (bool, error)
	ActivateProfiles(ctx context.Context, address string) (bluetooth.ActivationReport, error)
	ResetCache(ctx context.Context) error
}

type Hub interface {
	AddClient(conn *websocket.Conn)
	RemoveClient(conn *websocket.Conn)
}

type InfoResponse struct {
	Version string `json:"version"`
}

type StatusResponse struct {
	Status string `json:"status"`
	Reason string `json:"reason,omitempty"`
}

type Handler struct {
	svc         Service
	hub         Hub
	versionFile string
	log         zerolog.Logger
	upgrader    websocket.Upgrader
	mux         *http.ServeMux
}

func NewHandler(svc Service, hub Hub, versionFile string, log zerolog.Logger) *Handler {
	h := &Handler{
		svc:         svc,
		hub:         hub,
		versionFile: versionFile,
		log:         log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		mux: http.NewServeMux(),
	}

	h.mux.HandleFunc("GET /info", h.handleInfo)
	h.mux.HandleFunc("GET /ws", h.handleWebSocket)

	h.mux.HandleFunc("GET /bluetooth/scan", h.handleScan)
	h.mux.HandleFunc("GET /bluetooth/connect/{mac}", h.handleConnect)
	h.mux.HandleFunc("POST /bluetooth/connect/{mac}", h.handleConnect)
	h.mux.HandleFunc("POST /bluetooth/disconnect", h.handleDisconnect)
	h.mux.HandleFunc("GET /bluetooth/paired-devices", h.handlePairedDevices)
	h.mux.HandleFunc("POST /bluetooth/autoconnect", h.handleAutoConnect)
	h.mux.HandleFunc("GET /bluetooth/info/{mac}", h.handleDeviceInfo)
	h.mux.HandleFunc("POST /bluetooth/activate/{mac}", h.handleActivate)
	h.mux.HandleFunc("POST /bluetooth/clean-cache", h.handleCleanCache)
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}

	h.mux.ServeHTTP(w, r)
}

func (h *Handler) handleInfo(w http.ResponseWriter, r *http.Request) {
	content, err := os.ReadFile(h.versionFile)
	if err != nil {
		http.Error(w, "Error reading version file", http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, http.StatusOK, InfoResponse{Version: strings.TrimSpace(string(content))})
}

func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Error().Err(err).Str("remote_addr", r.RemoteAddr).Msg("Failed to upgrade to WebSocket")
		return
	}

	h.hub.AddClient(conn)
	defer h.hub.RemoveClient(conn)

	// Clients only listen; reading drives close detection.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Handler) handleScan(w http.ResponseWriter, r *http.Request) {
	window, err := parseWindow(r.URL.Query().Get("duration"))
	if err != nil {
		h.writeJSON(w, http.StatusBadRequest, StatusResponse{Status: "failed", Reason: err.Error()})
		return
	}

	devices, err := h.svc.ScanForDevices(r.Context(), window)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, devices)
}

func (h *Handler) handleConnect(w http.ResponseWriter, r *http.Request) {
	ok, err := h.svc.Connect(r.Context(), r.PathValue("mac"))
	h.writeOutcome(w, ok, err, "connected")
}

func (h *Handler) handleDisconnect(w http.ResponseWriter, r *http.Request) {
	ok, err := h.svc.Disconnect(r.Context())
	if err == nil && !ok {
		err = bluetooth.ErrNotConnected
	}
	h.writeOutcome(w, ok, err, "disconnected")
}

func (h *Handler) handleAutoConnect(w http.ResponseWriter, r *http.Request) {
	ok, err := h.svc.AutoConnect(r.Context())
	h.writeOutcome(w, ok, err, "connected")
}

func (h *Handler) handlePairedDevices(w http.ResponseWriter, r *http.Request) {
	devices, err := h.svc.ListKnownDevices(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, devices)
}

func (h *Handler) handleDeviceInfo(w http.ResponseWriter, r *http.Request) {
	info, err := h.svc.Info(r.Context(), r.PathValue("mac"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, info)
}

func (h *Handler) handleActivate(w http.ResponseWriter, r *http.Request) {
	report, err := h.svc.ActivateProfiles(r.Context(), r.PathValue("mac"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, report)
}

func (h *Handler) handleCleanCache(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.ResetCache(r.Context()); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, StatusResponse{Status: "success"})
}

func (h *Handler) writeOutcome(w http.ResponseWriter, ok bool, err error, status string) {
	if err != nil {
		h.writeError(w, err)
		return
	}
	if !ok {
		h.writeJSON(w, http.StatusOK, StatusResponse{Status: "failed"})
		return
	}
	h.writeJSON(w, http.StatusOK, StatusResponse{Status: status})
}

// writeError maps domain failures to a 200 "failed" body; they are expected
// outcomes of talking to a radio. Tool failures are 500.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var attemptErr *bluetooth.AttemptError

	switch {
	case errors.Is(err, bluetooth.ErrBusy):
		h.writeJSON(w, http.StatusConflict, StatusResponse{Status: "busy", Reason: err.Error()})
	case errors.Is(err, bluetooth.ErrInvalidAddress):
		h.writeJSON(w, http.StatusBadRequest, StatusResponse{Status: "failed", Reason: err.Error()})
	case errors.As(err, &attemptErr):
		h.writeJSON(w, http.StatusOK, StatusResponse{Status: "failed", Reason: attemptErr.Reason.Error()})
	case errors.Is(err, bluetooth.ErrNoKnownDevices),
		errors.Is(err, bluetooth.ErrAllCandidatesFailed),
		errors.Is(err, bluetooth.ErrNotConnected):
		h.writeJSON(w, http.StatusOK, StatusResponse{Status: "failed", Reason: err.Error()})
	default:
		h.log.Error().Err(err).Msg("Request failed")
		h.writeJSON(w, http.StatusInternalServerError, StatusResponse{Status: "error", Reason: err.Error()})
	}
}

// parseWindow accepts "5s" or a bare number of seconds. Empty means the
// configured default.
func parseWindow(raw string) (time.Duration, error) {
	if raw == "" {
		return 0, nil
	}
	if secs, err := strconv.Atoi(raw); err == nil {
		if secs < 0 {
			return 0, errors.New("duration must not be negative")
		}
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, errors.New("invalid duration")
	}
	if d < 0 {
		return 0, errors.New("duration must not be negative")
	}
	return d, nil
}

// writeJSON sends the header first, so an encode failure can only be logged.
func (h *Handler) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Error().Err(err).Int("status", status).Msg("Failed to encode response")
	}
}
