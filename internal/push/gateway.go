package push

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mauzenfan/mauzenfan/internal/metrics"
	"github.com/mauzenfan/mauzenfan/internal/model"
)

// DeviceStore is the subset of the device store the gateway needs.
type DeviceStore interface {
	ListActiveByUser(userID int64) ([]model.UserDevice, error)
	Deactivate(id int64) error
}

// Gateway delivers notifications to every active device of a user through
// the sender registered for each device's platform.
type Gateway struct {
	devices DeviceStore
	senders map[model.Platform]Sender
	limit   int
	timeout time.Duration
	logger  *slog.Logger
}

// NewGateway creates a gateway sending at most limit devices at once, each
// bounded by timeout.
func NewGateway(devices DeviceStore, limit int, timeout time.Duration, logger *slog.Logger) *Gateway {
	if limit <= 0 {
		limit = 4
	}
	return &Gateway{
		devices: devices,
		senders: make(map[model.Platform]Sender),
		limit:   limit,
		timeout: timeout,
		logger:  logger,
	}
}

// Register sets the sender used for platform. Call before Push.
func (g *Gateway) Register(platform model.Platform, s Sender) {
	g.senders[platform] = s
}

// Enabled reports whether any sender is registered.
func (g *Gateway) Enabled() bool {
	return len(g.senders) > 0
}

// Push sends n to every active device of userID and returns the number of
// devices attempted. Failures are isolated per device; expired tokens are
// deactivated.
func (g *Gateway) Push(ctx context.Context, userID int64, n Notification) int {
	devices, err := g.devices.ListActiveByUser(userID)
	if err != nil {
		g.logger.Error("list devices", "user_id", userID, "error", err)
		return 0
	}

	var attempted atomic.Int64
	var eg errgroup.Group
	eg.SetLimit(g.limit)
	for _, d := range devices {
		sender, ok := g.senders[d.Platform]
		if !ok {
			g.logger.Debug("no sender for platform", "platform", d.Platform, "device_id", d.ID)
			continue
		}
		eg.Go(func() error {
			attempted.Add(1)
			g.send(ctx, sender, d, n)
			return nil
		})
	}
	_ = eg.Wait()

	return int(attempted.Load())
}

func (g *Gateway) send(ctx context.Context, sender Sender, d model.UserDevice, n Notification) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	platform := string(d.Platform)
	start := time.Now()
	err := sender.Send(ctx, d, n)
	metrics.PushDuration.WithLabelValues(platform).Observe(time.Since(start).Seconds())

	switch {
	case err == nil:
		metrics.PushAttempts.WithLabelValues(platform, "sent").Inc()
	case errors.Is(err, ErrExpired):
		metrics.PushAttempts.WithLabelValues(platform, "expired").Inc()
		g.logger.Info("push token expired, deactivating", "device_id", d.ID, "user_id", d.UserID)
		if err := g.devices.Deactivate(d.ID); err != nil {
			g.logger.Error("deactivate device", "device_id", d.ID, "error", err)
		}
	default:
		metrics.PushAttempts.WithLabelValues(platform, "failed").Inc()
		g.logger.Warn("push failed", "device_id", d.ID, "platform", platform, "error", err)
	}
}
