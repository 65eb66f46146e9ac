package notify

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrMissingField is returned when a required field is absent.
	ErrMissingField = errors.New("missing required field")
	// ErrInvalidField is returned when a field has the wrong type or is unknown.
	ErrInvalidField = errors.New("invalid field")
	// ErrUnknownType is returned for event types outside the fixed set.
	ErrUnknownType = errors.New("unknown event type")
)

type kind int

const (
	kindInt kind = iota
	kindFloat
	kindString
	kindBool
	kindUser
	kindTime
	kindIDString // integer id serialized as a string everywhere
)

type field struct {
	name     string
	kind     kind
	required bool
}

func req(name string, k kind) field { return field{name: name, kind: k, required: true} }
func opt(name string, k kind) field { return field{name: name, kind: k} }

var etaFields = []field{
	req("share_id", kindInt),
	req("sharer", kindUser),
	req("destination_latitude", kindFloat),
	req("destination_longitude", kindFloat),
	req("status", kindString),
	req("timestamp", kindTime),
	opt("destination_name", kindString),
	opt("current_latitude", kindFloat),
	opt("current_longitude", kindFloat),
	opt("calculated_eta", kindTime),
}

var schemas = map[EventType][]field{
	EventNewMessage: {
		req("id", kindInt),
		req("sender", kindUser),
		req("receiver", kindUser),
		req("content", kindString),
		req("timestamp", kindTime),
		req("is_read", kindBool),
	},
	EventLocationUpdate: {
		req("child_id", kindInt),
		req("child_name", kindString),
		req("latitude", kindFloat),
		req("longitude", kindFloat),
		req("timestamp", kindTime),
		opt("accuracy", kindFloat),
		opt("battery_status", kindInt),
	},
	EventMessagesRead: {
		req("reader_id", kindIDString),
		req("other_user_id", kindIDString),
		req("messages_updated", kindInt),
		req("timestamp", kindTime),
	},
	EventEtaStarted:   etaFields,
	EventEtaUpdated:   etaFields,
	EventEtaCancelled: etaFields,
	EventEtaArrived:   etaFields,
	EventSOS: {
		req("child_id", kindIDString),
		req("child_name", kindString),
		req("message", kindString),
		req("timestamp", kindTime),
		opt("latitude", kindFloat),
		opt("longitude", kindFloat),
	},
	EventSafeZoneAlert: {
		req("child_id", kindIDString),
		req("child_name", kindString),
		req("safe_zone_id", kindIDString),
		req("safe_zone_name", kindString),
		req("alert_type", kindString),
		req("message", kindString),
		req("timestamp", kindTime),
		opt("latitude", kindFloat),
		opt("longitude", kindFloat),
	},
	EventLowBattery: {
		req("child_id", kindIDString),
		req("child_name", kindString),
		req("battery_status", kindInt),
		req("message", kindString),
		req("timestamp", kindTime),
	},
	EventWeatherAlert: {
		req("child_id", kindIDString),
		req("child_name", kindString),
		req("message", kindString),
		req("event_summary", kindString),
		req("timestamp", kindTime),
	},
	EventCheckIn: {
		req("child_id", kindIDString),
		req("child_name", kindString),
		req("check_in_type", kindString),
		req("message", kindString),
		req("latitude", kindFloat),
		req("longitude", kindFloat),
		req("timestamp", kindTime),
		opt("location_name", kindString),
	},
	EventUnusualRoute: {
		req("child_id", kindIDString),
		req("child_name", kindString),
		req("routine_name", kindString),
		req("message", kindString),
		req("timestamp", kindTime),
	},
}

// UserRef is the user object embedded in chat and ETA payloads.
type UserRef struct {
	ID          int64  `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
}

// Envelope is a validated event with normalized payload values. Ints are
// int64, floats float64, times RFC 3339 UTC strings, and string ids strings.
type Envelope struct {
	Type    EventType
	AlertID int64
	Payload map[string]any
}

// Format validates ev against its field set and returns the canonical
// envelope. It never returns a partial envelope.
func Format(ev Event) (Envelope, error) {
	fields, ok := schemas[ev.Type]
	if !ok {
		return Envelope{}, fmt.Errorf("%w: %q", ErrUnknownType, ev.Type)
	}

	known := make(map[string]struct{}, len(fields))
	out := make(map[string]any, len(fields))
	for _, f := range fields {
		known[f.name] = struct{}{}
		v, present := ev.Data[f.name]
		if !present || v == nil {
			if f.required {
				return Envelope{}, fmt.Errorf("%s: %w: %s", ev.Type, ErrMissingField, f.name)
			}
			continue
		}
		nv, err := normalize(f.kind, v)
		if err != nil {
			return Envelope{}, fmt.Errorf("%s: %w: %s: %v", ev.Type, ErrInvalidField, f.name, err)
		}
		out[f.name] = nv
	}
	for name := range ev.Data {
		if _, ok := known[name]; !ok {
			return Envelope{}, fmt.Errorf("%s: %w: unexpected %s", ev.Type, ErrInvalidField, name)
		}
	}

	return Envelope{Type: ev.Type, AlertID: ev.AlertID, Payload: out}, nil
}

func normalize(k kind, v any) (any, error) {
	switch k {
	case kindInt:
		if n, ok := asInt(v); ok {
			return n, nil
		}
	case kindFloat:
		switch x := v.(type) {
		case float64:
			return x, nil
		case float32:
			return float64(x), nil
		}
		if n, ok := asInt(v); ok {
			return float64(n), nil
		}
	case kindString:
		if s, ok := v.(string); ok {
			return s, nil
		}
	case kindBool:
		if b, ok := v.(bool); ok {
			return b, nil
		}
	case kindUser:
		switch u := v.(type) {
		case UserRef:
			if u.ID != 0 {
				return u, nil
			}
		case *UserRef:
			if u != nil && u.ID != 0 {
				return *u, nil
			}
		}
	case kindTime:
		switch t := v.(type) {
		case time.Time:
			if !t.IsZero() {
				return t.UTC().Format(time.RFC3339), nil
			}
		case string:
			if _, err := time.Parse(time.RFC3339, t); err == nil {
				return t, nil
			}
		}
	case kindIDString:
		if s, ok := v.(string); ok && s != "" {
			return s, nil
		}
		if n, ok := asInt(v); ok {
			return itoa(n), nil
		}
	}
	return nil, fmt.Errorf("unexpected %T", v)
}

func asInt(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	}
	return 0, false
}
