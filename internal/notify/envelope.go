package notify

import (
	"encoding/json"
	"strconv"
)

const wrappedType = "send_notification"

type typedFrame struct {
	Type    EventType      `json:"type"`
	Payload map[string]any `json:"payload"`
}

type wrappedMessage struct {
	Type    EventType      `json:"type"`
	Data    map[string]any `json:"data"`
	AlertID string         `json:"alert_id,omitempty"`
}

type wrappedFrame struct {
	Type    string         `json:"type"`
	Message wrappedMessage `json:"message"`
}

// WebSocketJSON serializes the envelope in the shape live clients expect:
// typed events as {type, payload}, everything else wrapped in a
// send_notification frame. Numbers keep their JSON types.
func (e Envelope) WebSocketJSON() ([]byte, error) {
	if !e.Type.Wrapped() {
		return json.Marshal(typedFrame{Type: e.Type, Payload: e.Payload})
	}
	msg := wrappedMessage{Type: e.Type, Data: e.Payload}
	if e.AlertID != 0 {
		msg.AlertID = itoa(e.AlertID)
	}
	return json.Marshal(wrappedFrame{Type: wrappedType, Message: msg})
}

// PushData flattens the envelope into the string-only map push providers
// require. User objects become <name>_id and <name>_name.
func (e Envelope) PushData() map[string]string {
	data := make(map[string]string, len(e.Payload)+2)
	data["type"] = string(e.Type)
	if e.AlertID != 0 {
		data["alert_id"] = itoa(e.AlertID)
	}
	for k, v := range e.Payload {
		switch x := v.(type) {
		case UserRef:
			data[k+"_id"] = itoa(x.ID)
			data[k+"_name"] = x.name()
		case string:
			data[k] = x
		case int64:
			data[k] = itoa(x)
		case float64:
			data[k] = strconv.FormatFloat(x, 'f', -1, 64)
		case bool:
			data[k] = strconv.FormatBool(x)
		}
	}
	return data
}

func (u UserRef) name() string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return u.Username
}

func itoa(n int64) string {
	return strconv.FormatInt(n, 10)
}
