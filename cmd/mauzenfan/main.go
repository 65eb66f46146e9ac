package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/IBM/sarama"

	"github.com/mauzenfan/mauzenfan/internal/alerting"
	"github.com/mauzenfan/mauzenfan/internal/auth"
	"github.com/mauzenfan/mauzenfan/internal/config"
	"github.com/mauzenfan/mauzenfan/internal/database"
	"github.com/mauzenfan/mauzenfan/internal/logging"
	"github.com/mauzenfan/mauzenfan/internal/metrics"
	"github.com/mauzenfan/mauzenfan/internal/model"
	"github.com/mauzenfan/mauzenfan/internal/notify"
	"github.com/mauzenfan/mauzenfan/internal/push"
	"github.com/mauzenfan/mauzenfan/internal/relay"
	"github.com/mauzenfan/mauzenfan/internal/routine"
	"github.com/mauzenfan/mauzenfan/internal/server"
	"github.com/mauzenfan/mauzenfan/internal/store"
	"github.com/mauzenfan/mauzenfan/internal/weather"
	ws "github.com/mauzenfan/mauzenfan/internal/websocket"
)

func main() {
	if len(os.Args) > 1 {
		if err := runCommand(os.Args[1:]); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logger := logging.Setup(cfg.LogLevel, cfg.LogFormat)

	if err := run(cfg, logger); err != nil {
		logger.Error("fatal", "error", err)
		os.Exit(1)
	}
}

// runCommand handles the operator subcommands.
func runCommand(args []string) error {
	switch args[0] {
	case "vapid-keys":
		pub, priv, err := push.GenerateVAPIDKeys()
		if err != nil {
			return err
		}
		fmt.Printf("MAUZENFAN_VAPID_PUBLIC_KEY=%s\nMAUZENFAN_VAPID_PRIVATE_KEY=%s\n", pub, priv)
		return nil
	case "token":
		if len(args) != 2 {
			return errors.New("usage: mauzenfan token <user_id>")
		}
		userID, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid user id: %w", err)
		}
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		tok, err := auth.NewTokens(cfg.JWTSecret, cfg.JWTIssuer).Issue(userID, 30*24*time.Hour)
		if err != nil {
			return err
		}
		fmt.Println(tok)
		return nil
	case "user":
		if len(args) < 2 || len(args) > 3 {
			return errors.New("usage: mauzenfan user <username> [display_name]")
		}
		displayName := ""
		if len(args) == 3 {
			displayName = args[2]
		}
		return createUser(args[1], displayName)
	default:
		return fmt.Errorf("unknown command %q (want vapid-keys, token or user)", args[0])
	}
}

// createUser registers a parent account, or finds the existing one, and
// prints its id with a fresh token.
func createUser(username, displayName string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	db, err := database.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()

	users := store.NewUserStore(db)
	u, err := users.GetByUsername(username)
	if err != nil {
		return err
	}
	if u == nil {
		if u, err = users.Create(username, displayName); err != nil {
			return err
		}
	}

	tok, err := auth.NewTokens(cfg.JWTSecret, cfg.JWTIssuer).Issue(u.ID, 30*24*time.Hour)
	if err != nil {
		return err
	}
	fmt.Printf("user_id=%d\ntoken=%s\n", u.ID, tok)
	return nil
}

func run(cfg config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	metrics.Init()

	userStore := store.NewUserStore(db)
	childStore := store.NewChildStore(db)
	deviceStore := store.NewDeviceStore(db)
	locationStore := store.NewLocationStore(db)
	zoneStore := store.NewSafeZoneStore(db)

	hub := ws.NewHub(logger.With("component", "websocket"))

	// Cross-node fan-out
	var broadcaster notify.Broadcaster = hub
	if len(cfg.KafkaBrokers) > 0 {
		publisher, err := startRelay(ctx, cfg, hub, logger.With("component", "relay"))
		if err != nil {
			return err
		}
		defer publisher.Close()
		broadcaster = publisher
	}

	// Push platforms
	gateway := push.NewGateway(deviceStore, cfg.PushConcurrency, cfg.PushTimeout, logger.With("component", "push"))
	vapidKey := ""
	if cfg.WebPushEnabled() {
		wp := push.NewWebPush(cfg.VAPIDPublicKey, cfg.VAPIDPrivateKey, cfg.VAPIDSubscriber, &http.Client{Timeout: cfg.PushTimeout})
		gateway.Register(model.PlatformWeb, wp)
		vapidKey = wp.VAPIDPublicKey()
	}
	if cfg.FCMCredentialsFile != "" {
		fcm, err := push.NewFCM(ctx, cfg.FCMCredentialsFile, cfg.FCMProjectID)
		if err != nil {
			return fmt.Errorf("init fcm: %w", err)
		}
		gateway.Register(model.PlatformAndroid, fcm)
		gateway.Register(model.PlatformIOS, fcm)
	}
	var pusher notify.Pusher
	if gateway.Enabled() {
		pusher = gateway
	} else {
		logger.Warn("no push platform configured; notifications are WebSocket only")
	}

	router := notify.NewRouter(userStore, childStore, logger.With("component", "router"))
	dispatcher := notify.NewDispatcher(router, broadcaster, pusher, cfg.DispatchQueue, cfg.PushTimeout, logger.With("component", "dispatcher"))
	dispatcher.Start(ctx)
	defer dispatcher.Stop()

	// Background jobs
	if cfg.WeatherEnabled {
		raiser := alerting.NewRaiser(store.NewAlertStore(db), dispatcher, logger.With("component", "alerting"))
		checker := weather.NewChecker(weather.NewService(), childStore, locationStore, raiser, cfg.WeatherInterval, logger.With("component", "weather"))
		checker.Start(ctx)
		defer checker.Stop()
	}
	learner := routine.NewLearner(childStore, zoneStore, locationStore, store.NewRoutineStore(db), logger.With("component", "routine"))
	learner.Start(ctx)
	defer learner.Stop()

	tokens := auth.NewTokens(cfg.JWTSecret, cfg.JWTIssuer)
	srv := server.New(db, hub, dispatcher, gateway, tokens, vapidKey, logger)

	go srv.RunRateLimiters(ctx, time.Minute)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv.Router(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("MauZenfan running", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// startRelay connects this node to the shared topic. The returned
// publisher replaces the hub as the dispatcher's broadcaster; the consumer
// replays other nodes' records into the hub.
func startRelay(ctx context.Context, cfg config.Config, hub *ws.Hub, logger *slog.Logger) (*relay.Publisher, error) {
	nodeID := relay.NodeID()

	producer, err := sarama.NewAsyncProducer(cfg.KafkaBrokers, relay.ProducerConfig(nodeID))
	if err != nil {
		return nil, fmt.Errorf("create relay producer: %w", err)
	}
	group, err := sarama.NewConsumerGroup(cfg.KafkaBrokers, relay.GroupID(nodeID), relay.ConsumerConfig(nodeID))
	if err != nil {
		producer.Close()
		return nil, fmt.Errorf("create relay consumer: %w", err)
	}

	publisher := relay.NewPublisher(producer, cfg.KafkaTopic, nodeID, hub, logger)
	publisher.Start(ctx)

	consumer := relay.NewConsumer(cfg.KafkaTopic, nodeID, group, hub, logger)
	go func() {
		if err := consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("relay consumer stopped", "error", err)
		}
	}()

	logger.Info("relay enabled", "node_id", nodeID, "topic", cfg.KafkaTopic)
	return publisher, nil
}
