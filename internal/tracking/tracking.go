// Package tracking handles reports from children's devices: positions,
// SOS and check-ins, and the alerts derived from them.
package tracking

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/mauzenfan/mauzenfan/internal/alerting"
	"github.com/mauzenfan/mauzenfan/internal/geo"
	"github.com/mauzenfan/mauzenfan/internal/model"
	"github.com/mauzenfan/mauzenfan/internal/notify"
	"github.com/mauzenfan/mauzenfan/internal/routine"
)

const (
	LowBatteryThreshold = 20 // percent
	LowBatteryCooldown  = time.Hour
	ZoneCooldown        = 15 * time.Minute
	RouteCooldown       = time.Hour
	// tripLookback bounds how far back a finished trip is searched for.
	tripLookback = 3 * time.Hour
)

var (
	ErrInvalidPosition = errors.New("invalid position")
	ErrInvalidBattery  = errors.New("battery must be between 0 and 100")
	ErrMissingCheckIn  = errors.New("check_in_type is required")
)

type ChildRecorder interface {
	RecordCheckIn(id int64, battery *int, seenAt time.Time) error
}

type LocationStore interface {
	Append(childID int64, lat, lon float64, accuracy *float64, recordedAt time.Time) (*model.LocationPoint, error)
	Latest(childID int64, limit int) ([]model.LocationPoint, error)
	ListSince(childID int64, since time.Time) ([]model.LocationPoint, error)
}

type ZoneLister interface {
	ListActiveByOwner(ownerID int64) ([]model.SafeZone, error)
}

type RoutineLister interface {
	ListByChild(childID int64) ([]model.LearnedRoutine, error)
}

// LocationReport is a position sample sent by a child's device.
type LocationReport struct {
	Latitude   float64   `json:"latitude"`
	Longitude  float64   `json:"longitude"`
	Accuracy   *float64  `json:"accuracy"`
	Battery    *int      `json:"battery_status"`
	RecordedAt time.Time `json:"timestamp"`
}

// SOSReport is a panic signal. The position is optional.
type SOSReport struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	Battery   *int     `json:"battery_status"`
}

// CheckInReport is a manual "I'm here" message from a child.
type CheckInReport struct {
	CheckInType   string    `json:"check_in_type"`
	CustomMessage string    `json:"custom_message"`
	Latitude      float64   `json:"latitude"`
	Longitude     float64   `json:"longitude"`
	LocationName  string    `json:"location_name"`
	Timestamp     time.Time `json:"client_timestamp_iso"`
}

type Service struct {
	children  ChildRecorder
	locations LocationStore
	zones     ZoneLister
	routines  RoutineLister
	alerts    *alerting.Raiser
	events    alerting.Dispatcher
	logger    *slog.Logger
	now       func() time.Time
}

func NewService(children ChildRecorder, locations LocationStore, zones ZoneLister, routines RoutineLister, alerts *alerting.Raiser, events alerting.Dispatcher, logger *slog.Logger) *Service {
	return &Service{
		children:  children,
		locations: locations,
		zones:     zones,
		routines:  routines,
		alerts:    alerts,
		events:    events,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func validPosition(lat, lon float64) bool {
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}

func validBattery(b *int) bool {
	return b == nil || (*b >= 0 && *b <= 100)
}

// ReportLocation stores a position, shares it with the parent and raises
// battery, safe-zone and routine alerts as needed. Alert failures are
// logged; only storing the point can fail the report.
//
// A point recorded before the newest stored one is a late upload from the
// device's buffer. It is kept in the history but is not broadcast and
// raises no alerts.
func (s *Service) ReportLocation(c model.Child, r LocationReport) (*model.LocationPoint, error) {
	if !validPosition(r.Latitude, r.Longitude) {
		return nil, ErrInvalidPosition
	}
	if !validBattery(r.Battery) {
		return nil, ErrInvalidBattery
	}
	now := s.now()
	if r.RecordedAt.IsZero() || r.RecordedAt.After(now) {
		r.RecordedAt = now
	}

	prev, err := s.locations.Latest(c.ID, 1)
	if err != nil {
		return nil, err
	}
	point, err := s.locations.Append(c.ID, r.Latitude, r.Longitude, r.Accuracy, r.RecordedAt)
	if err != nil {
		return nil, err
	}
	if len(prev) > 0 && r.RecordedAt.Before(prev[0].RecordedAt) {
		if err := s.children.RecordCheckIn(c.ID, nil, now); err != nil {
			return nil, err
		}
		s.logger.Debug("stored late location", "child_id", c.ID, "recorded_at", r.RecordedAt)
		return point, nil
	}
	if err := s.children.RecordCheckIn(c.ID, r.Battery, now); err != nil {
		return nil, err
	}
	if r.Battery != nil {
		c.BatteryStatus = r.Battery
	}
	c.LastSeenAt = &now

	s.events.Dispatch(notify.LocationUpdateEvent(c, *point))

	if r.Battery != nil && *r.Battery < LowBatteryThreshold {
		s.lowBattery(c, *r.Battery, now)
	}

	var last *model.LocationPoint
	if len(prev) > 0 {
		last = &prev[0]
	}
	s.zoneTransitions(c, last, *point, now)

	return point, nil
}

func (s *Service) lowBattery(c model.Child, battery int, now time.Time) {
	_, err := s.alerts.Raise(alerting.Alert{
		Child:    c,
		Type:     model.AlertLowBattery,
		Message:  fmt.Sprintf("%s's device battery is low (%d%%).", c.Name, battery),
		Cooldown: LowBatteryCooldown,
		At:       now,
		Event: func(a model.Alert) notify.Event {
			return notify.LowBatteryEvent(a, c, battery)
		},
	})
	if err != nil {
		s.logger.Error("low battery alert", "child_id", c.ID, "error", err)
	}
}

// zoneTransitions compares the new point with the previous one against
// every active zone of the parent. The first point ever has no transition.
func (s *Service) zoneTransitions(c model.Child, prev *model.LocationPoint, p model.LocationPoint, now time.Time) {
	if prev == nil {
		return
	}
	zones, err := s.zones.ListActiveByOwner(c.ParentID)
	if err != nil {
		s.logger.Error("list safe zones", "child_id", c.ID, "error", err)
		return
	}

	for _, z := range zones {
		was := geo.InZone(prev.Latitude, prev.Longitude, z)
		is := geo.InZone(p.Latitude, p.Longitude, z)
		if was == is {
			continue
		}

		alertType, verb := model.AlertLeftZone, "left"
		if is {
			alertType, verb = model.AlertEnteredZone, "entered"
		}
		zone := z
		lat, lon := p.Latitude, p.Longitude
		_, err := s.alerts.Raise(alerting.Alert{
			Child:    c,
			Type:     alertType,
			ZoneID:   &zone.ID,
			Message:  fmt.Sprintf("%s %s %s.", c.Name, verb, zone.Name),
			Cooldown: ZoneCooldown,
			At:       now,
			Event: func(a model.Alert) notify.Event {
				return notify.SafeZoneEvent(a, c, zone, &lat, &lon)
			},
		})
		if err != nil {
			s.logger.Error("safe zone alert", "child_id", c.ID, "zone_id", zone.ID, "error", err)
		}

		if is {
			s.checkRoutine(c, zone, zones, now)
		}
	}
}

// checkRoutine analyzes the trip that just ended in arrived when it is one
// end of a Home/School commute.
func (s *Service) checkRoutine(c model.Child, arrived model.SafeZone, zones []model.SafeZone, now time.Time) {
	home, school := routine.Places(zones)
	if home == nil || school == nil {
		return
	}
	var from model.SafeZone
	switch arrived.ID {
	case home.ID:
		from = *school
	case school.ID:
		from = *home
	default:
		return
	}

	routines, err := s.routines.ListByChild(c.ID)
	if err != nil {
		s.logger.Error("list routines", "child_id", c.ID, "error", err)
		return
	}
	if len(routines) == 0 {
		return
	}
	points, err := s.locations.ListSince(c.ID, now.Add(-tripLookback))
	if err != nil {
		s.logger.Error("list trip points", "child_id", c.ID, "error", err)
		return
	}

	finding, ok := routine.Analyze(routine.TripInto(points, from), routines)
	if !ok {
		return
	}
	_, err = s.alerts.Raise(alerting.Alert{
		Child:    c,
		Type:     model.AlertUnusualRoute,
		Message:  finding.Message(c.Name),
		Cooldown: RouteCooldown,
		At:       now,
		Event: func(a model.Alert) notify.Event {
			return notify.UnusualRouteEvent(a, c, finding.Routine)
		},
	})
	if err != nil {
		s.logger.Error("unusual route alert", "child_id", c.ID, "error", err)
	}
}

// SOS raises an SOS alert for the parent. SOS alerts have no cooldown and
// are never refused for bad telemetry: a half or out-of-range position and
// an invalid battery reading are dropped.
func (s *Service) SOS(c model.Child, r SOSReport) (*model.Alert, error) {
	if r.Latitude != nil || r.Longitude != nil {
		if r.Latitude == nil || r.Longitude == nil || !validPosition(*r.Latitude, *r.Longitude) {
			s.logger.Warn("sos without usable position", "child_id", c.ID)
			r.Latitude, r.Longitude = nil, nil
		}
	}
	if !validBattery(r.Battery) {
		s.logger.Warn("sos with invalid battery", "child_id", c.ID, "battery", *r.Battery)
		r.Battery = nil
	}
	now := s.now()

	if err := s.children.RecordCheckIn(c.ID, r.Battery, now); err != nil {
		return nil, err
	}
	if r.Latitude != nil {
		if _, err := s.locations.Append(c.ID, *r.Latitude, *r.Longitude, nil, now); err != nil {
			return nil, err
		}
	}

	message := fmt.Sprintf("SOS from %s!", c.Name)
	if r.Latitude != nil {
		message += fmt.Sprintf(" Last known position: %.6f, %.6f.", *r.Latitude, *r.Longitude)
	}
	return s.alerts.Raise(alerting.Alert{
		Child:   c,
		Type:    model.AlertSOS,
		Message: message,
		At:      now,
		Event: func(a model.Alert) notify.Event {
			return notify.SOSEvent(a, c, r.Latitude, r.Longitude)
		},
	})
}

// CheckIn stores the check-in position and tells the parent.
func (s *Service) CheckIn(c model.Child, r CheckInReport) (*model.Alert, error) {
	r.CheckInType = strings.TrimSpace(r.CheckInType)
	if r.CheckInType == "" {
		return nil, ErrMissingCheckIn
	}
	if !validPosition(r.Latitude, r.Longitude) {
		return nil, ErrInvalidPosition
	}
	now := s.now()
	at := r.Timestamp
	if at.IsZero() || at.After(now) {
		at = now
	}

	if _, err := s.locations.Append(c.ID, r.Latitude, r.Longitude, nil, at); err != nil {
		return nil, err
	}
	if err := s.children.RecordCheckIn(c.ID, nil, now); err != nil {
		return nil, err
	}

	message := strings.TrimSpace(r.CustomMessage)
	if message == "" {
		message = fmt.Sprintf("%s checked in: %s", c.Name, humanize(r.CheckInType))
		if r.LocationName != "" {
			message += " at " + r.LocationName
		}
	}
	return s.alerts.Raise(alerting.Alert{
		Child:   c,
		Type:    model.AlertCheckIn,
		Message: message,
		At:      now,
		Event: func(a model.Alert) notify.Event {
			return notify.CheckInEvent(a, c, r.CheckInType, r.Latitude, r.Longitude, r.LocationName)
		},
	})
}

// humanize turns ARRIVED_SCHOOL into "arrived school".
func humanize(code string) string {
	return strings.ToLower(strings.ReplaceAll(code, "_", " "))
}
