package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/mauzenfan/mauzenfan/internal/auth"
	"github.com/mauzenfan/mauzenfan/internal/model"
	"github.com/mauzenfan/mauzenfan/internal/store"
)

type ChildHandler struct {
	children *store.ChildStore
	logger   *slog.Logger
}

func NewChildHandler(cs *store.ChildStore, logger *slog.Logger) *ChildHandler {
	return &ChildHandler{children: cs, logger: logger}
}

type childRequest struct {
	Name     string `json:"name"`
	DeviceID string `json:"device_id"`
}

// createdChild is returned once on creation; the device secret is not
// stored in clear and cannot be read again.
type createdChild struct {
	*model.Child
	DeviceSecret string `json:"device_secret"`
}

// Create handles POST /api/children
func (h *ChildHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req childRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	req.DeviceID = strings.TrimSpace(req.DeviceID)
	if req.Name == "" || req.DeviceID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name and device_id are required"})
		return
	}

	secret, hash, err := auth.NewDeviceSecret()
	if err != nil {
		h.logger.Error("generate device secret", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to create child"})
		return
	}

	child, err := h.children.Create(auth.UserID(r.Context()), req.Name, req.DeviceID, hash)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE") {
			writeJSON(w, http.StatusConflict, map[string]string{"error": "device_id already registered"})
			return
		}
		h.logger.Error("create child", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to create child"})
		return
	}

	writeJSON(w, http.StatusCreated, createdChild{Child: child, DeviceSecret: secret})
}

// List handles GET /api/children
func (h *ChildHandler) List(w http.ResponseWriter, r *http.Request) {
	children, err := h.children.ListByParent(auth.UserID(r.Context()))
	if err != nil {
		h.logger.Error("list children", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list children"})
		return
	}
	if children == nil {
		writeJSON(w, http.StatusOK, []any{})
		return
	}
	writeJSON(w, http.StatusOK, children)
}
