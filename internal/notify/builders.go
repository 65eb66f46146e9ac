package notify

import (
	"time"

	"github.com/mauzenfan/mauzenfan/internal/model"
)

// Ref builds the user object embedded in payloads.
func Ref(u model.User) UserRef {
	return UserRef{ID: u.ID, Username: u.Username, DisplayName: u.DisplayName}
}

// NewMessageEvent announces a chat message to both participants.
func NewMessageEvent(m model.Message, sender, receiver model.User) Event {
	return Event{
		Type: EventNewMessage,
		Data: map[string]any{
			"id":        m.ID,
			"sender":    Ref(sender),
			"receiver":  Ref(receiver),
			"content":   m.Content,
			"timestamp": m.CreatedAt,
			"is_read":   m.IsRead,
		},
		Audience: Audience{Sender: sender.ID, Receiver: receiver.ID},
	}
}

// ReadReceiptEvent tells both sides of a conversation that readerID has
// read updated messages from otherID.
func ReadReceiptEvent(readerID, otherID, updated int64, at time.Time) Event {
	return Event{
		Type: EventMessagesRead,
		Data: map[string]any{
			"reader_id":        readerID,
			"other_user_id":    otherID,
			"messages_updated": updated,
			"timestamp":        at,
		},
		Audience: Audience{Sender: readerID, Receiver: otherID},
	}
}

// LocationUpdateEvent reports a fresh position of a child to its parent.
func LocationUpdateEvent(c model.Child, p model.LocationPoint) Event {
	data := map[string]any{
		"child_id":   c.ID,
		"child_name": c.Name,
		"latitude":   p.Latitude,
		"longitude":  p.Longitude,
		"timestamp":  p.RecordedAt,
	}
	if p.Accuracy != nil {
		data["accuracy"] = *p.Accuracy
	}
	if c.BatteryStatus != nil {
		data["battery_status"] = *c.BatteryStatus
	}
	return Event{
		Type:     EventLocationUpdate,
		Data:     data,
		Audience: Audience{ChildID: c.ID},
	}
}

// EtaEvent reports a lifecycle change of an ETA share. t must be one of
// the eta_* event types.
func EtaEvent(t EventType, s model.EtaShare, sharer model.User, at time.Time) Event {
	data := map[string]any{
		"share_id":              s.ID,
		"sharer":                Ref(sharer),
		"destination_latitude":  s.DestinationLatitude,
		"destination_longitude": s.DestinationLongitude,
		"status":                string(s.Status),
		"timestamp":             at,
	}
	if s.DestinationName != "" {
		data["destination_name"] = s.DestinationName
	}
	if s.CurrentLatitude != nil && s.CurrentLongitude != nil {
		data["current_latitude"] = *s.CurrentLatitude
		data["current_longitude"] = *s.CurrentLongitude
	}
	if s.CalculatedEta != nil {
		data["calculated_eta"] = *s.CalculatedEta
	}
	return Event{
		Type: t,
		Data: data,
		Audience: Audience{
			Sharer:     s.SharerID,
			SharedWith: append([]int64(nil), s.SharedWith...),
		},
	}
}

func alertEvent(t EventType, a model.Alert, c model.Child, extra map[string]any) Event {
	data := map[string]any{
		"child_id":   c.ID,
		"child_name": c.Name,
		"message":    a.Message,
		"timestamp":  a.CreatedAt,
	}
	for k, v := range extra {
		data[k] = v
	}
	return Event{
		Type:     t,
		AlertID:  a.ID,
		Data:     data,
		Audience: Audience{Recipient: a.RecipientID},
	}
}

func addPosition(extra map[string]any, lat, lon *float64) {
	if lat != nil && lon != nil {
		extra["latitude"] = *lat
		extra["longitude"] = *lon
	}
}

// SOSEvent carries an SOS alert. It is delivered by push only.
func SOSEvent(a model.Alert, c model.Child, lat, lon *float64) Event {
	extra := map[string]any{}
	addPosition(extra, lat, lon)
	return alertEvent(EventSOS, a, c, extra)
}

// SafeZoneEvent reports a child entering or leaving a safe zone.
func SafeZoneEvent(a model.Alert, c model.Child, z model.SafeZone, lat, lon *float64) Event {
	extra := map[string]any{
		"safe_zone_id":   z.ID,
		"safe_zone_name": z.Name,
		"alert_type":     string(a.AlertType),
	}
	addPosition(extra, lat, lon)
	return alertEvent(EventSafeZoneAlert, a, c, extra)
}

// LowBatteryEvent reports a child device running low.
func LowBatteryEvent(a model.Alert, c model.Child, battery int) Event {
	return alertEvent(EventLowBattery, a, c, map[string]any{"battery_status": battery})
}

// WeatherEvent reports a forecast relevant to where a child is.
func WeatherEvent(a model.Alert, c model.Child, summary string) Event {
	return alertEvent(EventWeatherAlert, a, c, map[string]any{"event_summary": summary})
}

// CheckInEvent reports a manual check-in from a child device.
func CheckInEvent(a model.Alert, c model.Child, checkInType string, lat, lon float64, locationName string) Event {
	extra := map[string]any{
		"check_in_type": checkInType,
		"latitude":      lat,
		"longitude":     lon,
	}
	if locationName != "" {
		extra["location_name"] = locationName
	}
	return alertEvent(EventCheckIn, a, c, extra)
}

// UnusualRouteEvent reports a trip that strayed from a learned routine.
func UnusualRouteEvent(a model.Alert, c model.Child, routineName string) Event {
	return alertEvent(EventUnusualRoute, a, c, map[string]any{"routine_name": routineName})
}
