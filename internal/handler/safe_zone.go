package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/mauzenfan/mauzenfan/internal/auth"
	"github.com/mauzenfan/mauzenfan/internal/store"
)

const maxZoneRadius = 5000

type SafeZoneHandler struct {
	zones  *store.SafeZoneStore
	logger *slog.Logger
}

func NewSafeZoneHandler(zs *store.SafeZoneStore, logger *slog.Logger) *SafeZoneHandler {
	return &SafeZoneHandler{zones: zs, logger: logger}
}

type safeZoneRequest struct {
	Name      string   `json:"name"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	Radius    float64  `json:"radius"`
}

// Create handles POST /api/safe-zones
func (h *SafeZoneHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req safeZoneRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
		return
	}
	if req.Latitude == nil || req.Longitude == nil || !validPosition(*req.Latitude, *req.Longitude) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "valid latitude and longitude are required"})
		return
	}
	if req.Radius <= 0 || req.Radius > maxZoneRadius {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "radius must be between 0 and 5000 meters"})
		return
	}

	zone, err := h.zones.Create(auth.UserID(r.Context()), req.Name, *req.Latitude, *req.Longitude, req.Radius)
	if err != nil {
		h.logger.Error("create safe zone", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to create safe zone"})
		return
	}
	writeJSON(w, http.StatusCreated, zone)
}

// List handles GET /api/safe-zones
func (h *SafeZoneHandler) List(w http.ResponseWriter, r *http.Request) {
	zones, err := h.zones.ListActiveByOwner(auth.UserID(r.Context()))
	if err != nil {
		h.logger.Error("list safe zones", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list safe zones"})
		return
	}
	if zones == nil {
		writeJSON(w, http.StatusOK, []any{})
		return
	}
	writeJSON(w, http.StatusOK, zones)
}

// Delete handles DELETE /api/safe-zones/{id}
func (h *SafeZoneHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	ok, err := h.zones.Deactivate(id, auth.UserID(r.Context()))
	if err != nil {
		h.logger.Error("delete safe zone", "id", id, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to delete safe zone"})
		return
	}
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "safe zone not found"})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
