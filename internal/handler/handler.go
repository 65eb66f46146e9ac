package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/mauzenfan/mauzenfan/internal/model"
	"github.com/mauzenfan/mauzenfan/internal/notify"
)

const (
	defaultLimit = 50
	maxLimit     = 200
)

// Dispatcher queues notification events for fan-out.
type Dispatcher interface {
	Dispatch(ev notify.Event)
}

type UserGetter interface {
	GetByID(id int64) (*model.User, error)
}

type ChildGetter interface {
	GetByID(id int64) (*model.Child, error)
}

func parseIDParam(r *http.Request, name string) (int64, error) {
	return strconv.ParseInt(r.PathValue(name), 10, 64)
}

// parseLimit reads ?limit=, clamped to maxLimit.
func parseLimit(r *http.Request) int {
	n, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || n <= 0 {
		return defaultLimit
	}
	if n > maxLimit {
		return maxLimit
	}
	return n
}

func validPosition(lat, lon float64) bool {
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
