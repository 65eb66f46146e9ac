package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mauzenfan/mauzenfan/internal/alerting"
	"github.com/mauzenfan/mauzenfan/internal/eta"
	"github.com/mauzenfan/mauzenfan/internal/handler"
	"github.com/mauzenfan/mauzenfan/internal/middleware"
	"github.com/mauzenfan/mauzenfan/internal/notify"
	"github.com/mauzenfan/mauzenfan/internal/push"
	"github.com/mauzenfan/mauzenfan/internal/store"
	"github.com/mauzenfan/mauzenfan/internal/tracking"
	ws "github.com/mauzenfan/mauzenfan/internal/websocket"
)

const (
	deviceRateLimit    = 60
	deviceAuthFailures = 10
	deviceRateWindow   = time.Minute
)

type Server struct {
	db           *sql.DB
	hub          ws.Registry
	tokens       middleware.TokenVerifier
	userStore    *store.UserStore
	childStore   *store.ChildStore
	deviceH      *handler.DeviceHandler
	childH       *handler.ChildHandler
	zoneH        *handler.SafeZoneHandler
	messageH     *handler.MessageHandler
	alertH       *handler.AlertHandler
	etaH         *handler.EtaHandler
	childDeviceH *handler.ChildDeviceHandler
	rateLimiter  *middleware.RateLimiter
	authFailures *middleware.RateLimiter
	logger       *slog.Logger
}

// New wires the HTTP surface. Events raised by handlers go to events; the
// WebSocket endpoint joins connections to hub. gateway may be nil when no
// push platform is configured.
func New(db *sql.DB, hub ws.Registry, events handler.Dispatcher, gateway *push.Gateway, tokens middleware.TokenVerifier, vapidKey string, logger *slog.Logger) *Server {
	userStore := store.NewUserStore(db)
	childStore := store.NewChildStore(db)
	alertStore := store.NewAlertStore(db)
	zoneStore := store.NewSafeZoneStore(db)

	raiser := alerting.NewRaiser(alertStore, events, logger.With("component", "alerting"))
	trackingSvc := tracking.NewService(
		childStore,
		store.NewLocationStore(db),
		zoneStore,
		store.NewRoutineStore(db),
		raiser,
		events,
		logger.With("component", "tracking"),
	)
	etaSvc := eta.NewService(store.NewEtaStore(db), userStore, events, logger.With("component", "eta"))

	return &Server{
		db:           db,
		hub:          hub,
		tokens:       tokens,
		userStore:    userStore,
		childStore:   childStore,
		deviceH:      handler.NewDeviceHandler(store.NewDeviceStore(db), gateway, vapidKey, logger.With("component", "device")),
		childH:       handler.NewChildHandler(childStore, logger.With("component", "child")),
		zoneH:        handler.NewSafeZoneHandler(zoneStore, logger.With("component", "safe_zone")),
		messageH:     handler.NewMessageHandler(store.NewMessageStore(db), userStore, childStore, events, logger.With("component", "message")),
		alertH:       handler.NewAlertHandler(alertStore, logger.With("component", "alert")),
		etaH:         handler.NewEtaHandler(etaSvc, logger.With("component", "eta")),
		childDeviceH: handler.NewChildDeviceHandler(childStore, trackingSvc, logger.With("component", "child_device")),
		rateLimiter:  middleware.NewRateLimiter(deviceRateLimit, deviceRateWindow),
		authFailures: middleware.NewRateLimiter(deviceAuthFailures, deviceRateWindow),
		logger:       logger,
	}
}

// RunRateLimiters prunes expired rate-limit windows until ctx is done.
func (s *Server) RunRateLimiters(ctx context.Context, interval time.Duration) {
	go s.authFailures.Run(ctx, interval)
	s.rateLimiter.Run(ctx, interval)
}

func (s *Server) Router() http.Handler {
	outerMux := http.NewServeMux()

	// Public routes (no auth required)
	outerMux.HandleFunc("GET /health", s.healthHandler)
	outerMux.Handle("GET /metrics", promhttp.Handler())
	outerMux.HandleFunc("GET /ws", ws.HandleWebSocket(s.hub, s.authenticate, notify.GroupName, s.logger.With("component", "websocket")))

	// Child device routes
	deviceMux := http.NewServeMux()
	deviceMux.HandleFunc("POST /api/child/location", s.childDeviceH.Location)
	deviceMux.HandleFunc("POST /api/child/sos", s.childDeviceH.SOS)
	deviceMux.HandleFunc("POST /api/child/check-in", s.childDeviceH.CheckIn)
	deviceMux.HandleFunc("POST /api/child/messages", s.messageH.ChildSend)

	throttle := middleware.ThrottleFailures(s.authFailures, middleware.IPKey)
	deviceAuth := middleware.RequireDevice(s.childStore)
	rl := middleware.RateLimit(s.rateLimiter, middleware.ChildKey)
	outerMux.Handle("/api/child/", throttle(deviceAuth(rl(deviceMux))))

	// Protected routes, wrapped with RequireAuth
	protectedMux := http.NewServeMux()
	s.registerProtectedRoutes(protectedMux)

	authMiddleware := middleware.RequireAuth(s.tokens, s.userStore)
	outerMux.Handle("/api/", authMiddleware(protectedMux))

	// Apply request logging and metrics middleware
	return middleware.RequestLogger(s.logger.With("component", "http"))(middleware.Metrics(outerMux))
}

func (s *Server) authenticate(r *http.Request) int64 {
	return middleware.Authenticate(r, s.tokens, s.userStore)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	status, code := "ok", http.StatusOK
	if err := s.db.PingContext(r.Context()); err != nil {
		s.logger.Error("health check", "error", err)
		status, code = "unavailable", http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"status": status})
}

func (s *Server) registerProtectedRoutes(mux *http.ServeMux) {
	// Push device routes
	mux.HandleFunc("POST /api/devices", s.deviceH.Register)
	mux.HandleFunc("GET /api/devices", s.deviceH.List)
	mux.HandleFunc("DELETE /api/devices/{id}", s.deviceH.Delete)
	mux.HandleFunc("GET /api/push/vapid-key", s.deviceH.GetVAPIDKey)
	mux.HandleFunc("POST /api/push/test", s.deviceH.TestNotification)

	// Children
	mux.HandleFunc("POST /api/children", s.childH.Create)
	mux.HandleFunc("GET /api/children", s.childH.List)

	// Safe zones
	mux.HandleFunc("POST /api/safe-zones", s.zoneH.Create)
	mux.HandleFunc("GET /api/safe-zones", s.zoneH.List)
	mux.HandleFunc("DELETE /api/safe-zones/{id}", s.zoneH.Delete)

	// Chat
	mux.HandleFunc("POST /api/messages", s.messageH.Send)
	mux.HandleFunc("POST /api/messages/read", s.messageH.MarkRead)
	mux.HandleFunc("GET /api/messages/{other_user_id}", s.messageH.History)

	// Alerts
	mux.HandleFunc("GET /api/alerts", s.alertH.List)
	mux.HandleFunc("POST /api/alerts/{id}/read", s.alertH.MarkRead)

	// ETA shares
	mux.HandleFunc("POST /api/eta", s.etaH.Start)
	mux.HandleFunc("GET /api/eta/active", s.etaH.ListActive)
	mux.HandleFunc("POST /api/eta/{id}/location", s.etaH.UpdateLocation)
	mux.HandleFunc("POST /api/eta/{id}/cancel", s.etaH.Cancel)
	mux.HandleFunc("POST /api/eta/{id}/arrived", s.etaH.Arrived)
}
