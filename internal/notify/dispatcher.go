package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/mauzenfan/mauzenfan/internal/metrics"
	"github.com/mauzenfan/mauzenfan/internal/push"
)

// Broadcaster hands a serialized frame to every live member of a group and
// returns how many accepted it.
type Broadcaster interface {
	Broadcast(group string, data []byte) int
}

// Pusher delivers a notification to every registered device of a user and
// returns how many devices were attempted.
type Pusher interface {
	Push(ctx context.Context, userID int64, n push.Notification) int
}

// Dispatcher fans events out to WebSocket groups and the push gateway.
// Events enter through Dispatch and are delivered by a single loop, so
// callers never wait on delivery.
type Dispatcher struct {
	mu          sync.RWMutex
	router      *Router
	broadcaster Broadcaster
	pusher      Pusher
	pushTimeout time.Duration
	logger      *slog.Logger

	queue  chan Event
	cancel context.CancelFunc
	done   chan struct{}
	pushes sync.WaitGroup
}

// NewDispatcher creates a dispatcher. pusher may be nil when no push
// provider is configured.
func NewDispatcher(router *Router, broadcaster Broadcaster, pusher Pusher, queueSize int, pushTimeout time.Duration, logger *slog.Logger) *Dispatcher {
	if queueSize <= 0 {
		queueSize = 256
	}
	if pushTimeout <= 0 {
		pushTimeout = 10 * time.Second
	}
	return &Dispatcher{
		router:      router,
		broadcaster: broadcaster,
		pusher:      pusher,
		pushTimeout: pushTimeout,
		logger:      logger,
		queue:       make(chan Event, queueSize),
	}
}

// Start begins the delivery loop.
func (d *Dispatcher) Start(ctx context.Context) {
	d.mu.Lock()
	ctx, d.cancel = context.WithCancel(ctx)
	d.done = make(chan struct{})
	d.mu.Unlock()

	go func() {
		defer close(d.done)
		for {
			select {
			case <-ctx.Done():
				d.drain(ctx)
				return
			case ev := <-d.queue:
				d.deliver(ctx, ev)
			}
		}
	}()
}

// Stop ends the delivery loop after flushing queued events, then waits for
// in-flight push sends.
func (d *Dispatcher) Stop() {
	d.mu.RLock()
	cancel := d.cancel
	done := d.done
	d.mu.RUnlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
	d.pushes.Wait()
}

func (d *Dispatcher) drain(ctx context.Context) {
	for {
		select {
		case ev := <-d.queue:
			d.deliver(ctx, ev)
		default:
			return
		}
	}
}

// Dispatch queues ev for delivery. It never blocks; when the queue is full
// the event is dropped and logged.
func (d *Dispatcher) Dispatch(ev Event) {
	select {
	case d.queue <- ev:
	default:
		metrics.EventsDispatched.WithLabelValues(string(ev.Type), "dropped").Inc()
		d.logger.Warn("dispatch queue full, event dropped", "type", ev.Type)
	}
}

func (d *Dispatcher) deliver(ctx context.Context, ev Event) {
	if err := d.Deliver(ctx, ev); err != nil {
		d.logger.Error("deliver event", "type", ev.Type, "error", err)
	}
}

// Deliver formats, routes and fans out ev synchronously. Push sends run in
// the background with their own timeout; use Wait to join them. The only
// error returned is a formatting error, in which case nothing is sent.
func (d *Dispatcher) Deliver(ctx context.Context, ev Event) error {
	env, err := Format(ev)
	if err != nil {
		metrics.EventsDispatched.WithLabelValues(string(ev.Type), "invalid").Inc()
		return err
	}

	targets := d.router.Resolve(ev)

	if ev.Type.WebSocketEligible() {
		frame, err := env.WebSocketJSON()
		if err != nil {
			metrics.EventsDispatched.WithLabelValues(string(ev.Type), "invalid").Inc()
			return err
		}
		for _, id := range targets {
			n := d.broadcaster.Broadcast(GroupName(id), frame)
			metrics.WebSocketDeliveries.WithLabelValues(string(ev.Type)).Add(float64(n))
		}
	}

	if ev.Type.PushEligible() && d.pusher != nil {
		n := Compose(env)
		for _, id := range pushTargets(ev, targets) {
			d.pushes.Add(1)
			go func(userID int64) {
				defer d.pushes.Done()
				pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.pushTimeout)
				defer cancel()
				d.pusher.Push(pctx, userID, n)
			}(id)
		}
	}

	metrics.EventsDispatched.WithLabelValues(string(ev.Type), "delivered").Inc()
	d.logger.Debug("event delivered", "type", ev.Type, "targets", len(targets))
	return nil
}

// Wait blocks until background push sends have finished.
func (d *Dispatcher) Wait() {
	d.pushes.Wait()
}

// pushTargets drops the user who caused the event; their other sessions
// still get the WebSocket echo.
func pushTargets(ev Event, targets []int64) []int64 {
	var actor int64
	switch {
	case ev.Type == EventNewMessage:
		actor = ev.Audience.Sender
	case ev.Type.isEta():
		actor = ev.Audience.Sharer
	}
	if actor == 0 {
		return targets
	}
	out := make([]int64, 0, len(targets))
	for _, id := range targets {
		if id != actor {
			out = append(out, id)
		}
	}
	return out
}
