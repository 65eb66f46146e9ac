package handler

import (
	"log/slog"
	"net/http"

	"github.com/mauzenfan/mauzenfan/internal/auth"
	"github.com/mauzenfan/mauzenfan/internal/store"
)

type AlertHandler struct {
	alerts *store.AlertStore
	logger *slog.Logger
}

func NewAlertHandler(as *store.AlertStore, logger *slog.Logger) *AlertHandler {
	return &AlertHandler{alerts: as, logger: logger}
}

// List handles GET /api/alerts
func (h *AlertHandler) List(w http.ResponseWriter, r *http.Request) {
	alerts, err := h.alerts.ListByRecipient(auth.UserID(r.Context()), parseLimit(r))
	if err != nil {
		h.logger.Error("list alerts", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list alerts"})
		return
	}
	if alerts == nil {
		writeJSON(w, http.StatusOK, []any{})
		return
	}
	writeJSON(w, http.StatusOK, alerts)
}

// MarkRead handles POST /api/alerts/{id}/read
func (h *AlertHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	ok, err := h.alerts.MarkRead(id, auth.UserID(r.Context()))
	if err != nil {
		h.logger.Error("mark alert read", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to mark alert read"})
		return
	}
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "alert not found"})
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
