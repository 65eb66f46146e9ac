package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/mauzenfan/mauzenfan/internal/auth"
	"github.com/mauzenfan/mauzenfan/internal/model"
	"github.com/mauzenfan/mauzenfan/internal/push"
	"github.com/mauzenfan/mauzenfan/internal/store"
)

type DeviceHandler struct {
	devices  *store.DeviceStore
	gateway  *push.Gateway
	vapidKey string
	logger   *slog.Logger
}

// NewDeviceHandler creates the device registration handler. vapidKey is
// empty when web push is not configured.
func NewDeviceHandler(ds *store.DeviceStore, gateway *push.Gateway, vapidKey string, logger *slog.Logger) *DeviceHandler {
	return &DeviceHandler{devices: ds, gateway: gateway, vapidKey: vapidKey, logger: logger}
}

type registerRequest struct {
	Token      string         `json:"token"`
	Platform   model.Platform `json:"platform"`
	P256dh     string         `json:"p256dh_key"`
	Auth       string         `json:"auth_key"`
	DeviceName string         `json:"device_name"`
}

// Register handles POST /api/devices
func (h *DeviceHandler) Register(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	req.Token = strings.TrimSpace(req.Token)
	if req.Token == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "token is required"})
		return
	}
	if !req.Platform.Valid() {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "platform must be android, ios, or web"})
		return
	}
	if req.Platform == model.PlatformWeb && (req.P256dh == "" || req.Auth == "") {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "p256dh_key and auth_key are required for web"})
		return
	}

	d, err := h.devices.Register(userID, req.Platform, req.Token, req.P256dh, req.Auth, req.DeviceName)
	if err != nil {
		h.logger.Error("register device", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to register device"})
		return
	}

	writeJSON(w, http.StatusCreated, d)
}

// List handles GET /api/devices
func (h *DeviceHandler) List(w http.ResponseWriter, r *http.Request) {
	devices, err := h.devices.ListByUser(auth.UserID(r.Context()))
	if err != nil {
		h.logger.Error("list devices", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list devices"})
		return
	}
	if devices == nil {
		writeJSON(w, http.StatusOK, []any{})
		return
	}
	writeJSON(w, http.StatusOK, devices)
}

// Delete handles DELETE /api/devices/{id}
func (h *DeviceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	ok, err := h.devices.Delete(id, auth.UserID(r.Context()))
	if err != nil {
		h.logger.Error("delete device", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to delete device"})
		return
	}
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "device not found"})
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GetVAPIDKey handles GET /api/push/vapid-key
func (h *DeviceHandler) GetVAPIDKey(w http.ResponseWriter, r *http.Request) {
	if h.vapidKey == "" {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "web push is not configured"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"public_key": h.vapidKey})
}

// TestNotification handles POST /api/push/test
func (h *DeviceHandler) TestNotification(w http.ResponseWriter, r *http.Request) {
	if h.gateway == nil || !h.gateway.Enabled() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "push is not configured"})
		return
	}

	n := push.Notification{
		Title: "Test Notification",
		Body:  "Push notifications are working!",
		Data:  map[string]string{"type": "test"},
	}
	sent := h.gateway.Push(r.Context(), auth.UserID(r.Context()), n)

	writeJSON(w, http.StatusOK, map[string]int{"sent": sent})
}
