package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/mauzenfan/mauzenfan/internal/auth"
	"github.com/mauzenfan/mauzenfan/internal/eta"
	"github.com/mauzenfan/mauzenfan/internal/model"
)

type EtaHandler struct {
	service *eta.Service
	logger  *slog.Logger
}

func NewEtaHandler(svc *eta.Service, logger *slog.Logger) *EtaHandler {
	return &EtaHandler{service: svc, logger: logger}
}

// writeEtaError maps share lifecycle errors to responses.
func (h *EtaHandler) writeEtaError(w http.ResponseWriter, err error, action string) {
	switch {
	case errors.Is(err, eta.ErrInvalidRecipient):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, eta.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "eta share not found"})
	case errors.Is(err, eta.ErrNotSharer):
		writeJSON(w, http.StatusForbidden, map[string]string{"error": err.Error()})
	case errors.Is(err, model.ErrInvalidTransition):
		writeJSON(w, http.StatusConflict, map[string]string{"error": "eta share is no longer active"})
	default:
		h.logger.Error(action, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to " + action})
	}
}

// Start handles POST /api/eta
func (h *EtaHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req eta.StartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	if !validPosition(req.DestinationLatitude, req.DestinationLongitude) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid destination"})
		return
	}
	if (req.CurrentLatitude == nil) != (req.CurrentLongitude == nil) ||
		(req.CurrentLatitude != nil && !validPosition(*req.CurrentLatitude, *req.CurrentLongitude)) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid current position"})
		return
	}

	share, err := h.service.Start(auth.UserID(r.Context()), req)
	if err != nil {
		h.writeEtaError(w, err, "start eta share")
		return
	}
	writeJSON(w, http.StatusCreated, share)
}

// ListActive handles GET /api/eta/active
func (h *EtaHandler) ListActive(w http.ResponseWriter, r *http.Request) {
	shares, err := h.service.ListActive(auth.UserID(r.Context()))
	if err != nil {
		h.writeEtaError(w, err, "list eta shares")
		return
	}
	if shares == nil {
		writeJSON(w, http.StatusOK, []any{})
		return
	}
	writeJSON(w, http.StatusOK, shares)
}

type positionRequest struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

// UpdateLocation handles POST /api/eta/{id}/location
func (h *EtaHandler) UpdateLocation(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}
	var req positionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	if req.Latitude == nil || req.Longitude == nil || !validPosition(*req.Latitude, *req.Longitude) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "latitude and longitude are required"})
		return
	}

	share, err := h.service.UpdateLocation(id, auth.UserID(r.Context()), *req.Latitude, *req.Longitude)
	if err != nil {
		h.writeEtaError(w, err, "update eta location")
		return
	}
	writeJSON(w, http.StatusOK, share)
}

// Cancel handles POST /api/eta/{id}/cancel
func (h *EtaHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.finish(w, r, h.service.Cancel, "cancel eta share")
}

// Arrived handles POST /api/eta/{id}/arrived
func (h *EtaHandler) Arrived(w http.ResponseWriter, r *http.Request) {
	h.finish(w, r, h.service.Arrive, "mark eta arrived")
}

func (h *EtaHandler) finish(w http.ResponseWriter, r *http.Request, op func(shareID, userID int64) (*model.EtaShare, error), action string) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}
	share, err := op(id, auth.UserID(r.Context()))
	if err != nil {
		h.writeEtaError(w, err, action)
		return
	}
	writeJSON(w, http.StatusOK, share)
}
