package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/mauzenfan/mauzenfan/internal/auth"
	"github.com/mauzenfan/mauzenfan/internal/model"
	"github.com/mauzenfan/mauzenfan/internal/tracking"
)

// ChildDeviceHandler serves the endpoints called by a child's tracking
// device. Requests are authenticated by middleware.RequireDevice.
type ChildDeviceHandler struct {
	children ChildGetter
	tracking *tracking.Service
	logger   *slog.Logger
}

func NewChildDeviceHandler(children ChildGetter, svc *tracking.Service, logger *slog.Logger) *ChildDeviceHandler {
	return &ChildDeviceHandler{children: children, tracking: svc, logger: logger}
}

// child loads the authenticated child, writing an error response when it
// cannot.
func (h *ChildDeviceHandler) child(w http.ResponseWriter, r *http.Request) (*model.Child, bool) {
	c, err := h.children.GetByID(auth.ChildID(r.Context()))
	if err != nil {
		h.logger.Error("get child", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to load child"})
		return nil, false
	}
	if c == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "child not found"})
		return nil, false
	}
	return c, true
}

func (h *ChildDeviceHandler) writeTrackingError(w http.ResponseWriter, err error, action string) {
	switch {
	case errors.Is(err, tracking.ErrInvalidPosition),
		errors.Is(err, tracking.ErrInvalidBattery),
		errors.Is(err, tracking.ErrMissingCheckIn):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	default:
		h.logger.Error(action, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to " + action})
	}
}

// Location handles POST /api/child/location
func (h *ChildDeviceHandler) Location(w http.ResponseWriter, r *http.Request) {
	var req tracking.LocationReport
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	c, ok := h.child(w, r)
	if !ok {
		return
	}

	point, err := h.tracking.ReportLocation(*c, req)
	if err != nil {
		h.writeTrackingError(w, err, "record location")
		return
	}
	writeJSON(w, http.StatusCreated, point)
}

// SOS handles POST /api/child/sos
func (h *ChildDeviceHandler) SOS(w http.ResponseWriter, r *http.Request) {
	var req tracking.SOSReport
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	c, ok := h.child(w, r)
	if !ok {
		return
	}

	alert, err := h.tracking.SOS(*c, req)
	if err != nil {
		h.writeTrackingError(w, err, "raise sos")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"message": "SOS alert received", "alert_id": alert.ID})
}

// CheckIn handles POST /api/child/check-in
func (h *ChildDeviceHandler) CheckIn(w http.ResponseWriter, r *http.Request) {
	var req tracking.CheckInReport
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	c, ok := h.child(w, r)
	if !ok {
		return
	}

	alert, err := h.tracking.CheckIn(*c, req)
	if err != nil {
		h.writeTrackingError(w, err, "record check-in")
		return
	}
	writeJSON(w, http.StatusCreated, alert)
}
