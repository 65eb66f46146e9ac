// Package alerting persists child alerts and hands them to the notifier,
// honouring per-type cooldowns.
package alerting

import (
	"log/slog"
	"time"

	"github.com/mauzenfan/mauzenfan/internal/model"
	"github.com/mauzenfan/mauzenfan/internal/notify"
)

type AlertStore interface {
	Create(recipientID int64, childID, safeZoneID *int64, alertType model.AlertType, message string, at time.Time) (*model.Alert, error)
	LastFor(childID int64, alertType model.AlertType, safeZoneID *int64) (*model.Alert, error)
}

// Dispatcher queues notification events.
type Dispatcher interface {
	Dispatch(ev notify.Event)
}

// Alert describes one alert to raise for a child.
type Alert struct {
	Child    model.Child
	Type     model.AlertType
	ZoneID   *int64
	Message  string
	Cooldown time.Duration
	At       time.Time
	// Event builds the notification for the stored alert.
	Event func(model.Alert) notify.Event
}

// Raiser stores alerts and dispatches their notifications.
type Raiser struct {
	alerts AlertStore
	events Dispatcher
	logger *slog.Logger
}

func NewRaiser(alerts AlertStore, events Dispatcher, logger *slog.Logger) *Raiser {
	return &Raiser{alerts: alerts, events: events, logger: logger}
}

// Raise stores a for the child's parent and dispatches its event. It
// returns nil without error when an alert of the same type (and zone) was
// raised within the cooldown.
func (r *Raiser) Raise(a Alert) (*model.Alert, error) {
	if a.Cooldown > 0 {
		last, err := r.alerts.LastFor(a.Child.ID, a.Type, a.ZoneID)
		if err != nil {
			return nil, err
		}
		if last != nil && a.At.Sub(last.CreatedAt) < a.Cooldown {
			r.logger.Debug("alert on cooldown", "child_id", a.Child.ID, "type", a.Type)
			return nil, nil
		}
	}

	childID := a.Child.ID
	stored, err := r.alerts.Create(a.Child.ParentID, &childID, a.ZoneID, a.Type, a.Message, a.At)
	if err != nil {
		return nil, err
	}
	r.logger.Info("alert raised", "alert_id", stored.ID, "child_id", childID, "type", a.Type)

	if a.Event != nil {
		r.events.Dispatch(a.Event(*stored))
	}
	return stored, nil
}
