package notify

import (
	"fmt"

	"github.com/mauzenfan/mauzenfan/internal/push"
)

// Compose turns an envelope into the (title, body, data) triple the push
// gateway accepts.
func Compose(e Envelope) push.Notification {
	child := e.str("child_name")
	message := e.str("message")

	var title, body string
	switch e.Type {
	case EventNewMessage:
		title = "New message from " + e.user("sender").name()
		body = e.str("content")
	case EventEtaStarted:
		title = e.user("sharer").name() + " shared their ETA"
		body = "On the way"
		if dest := e.str("destination_name"); dest != "" {
			body = "On the way to " + dest
		}
	case EventSOS:
		title = fmt.Sprintf("SOS from %s", child)
		body = message
	case EventSafeZoneAlert:
		title = fmt.Sprintf("Safe zone alert for %s", child)
		body = message
	case EventLowBattery:
		title = fmt.Sprintf("Low battery for %s", child)
		body = message
	case EventWeatherAlert:
		title = fmt.Sprintf("Weather alert for %s", child)
		body = message
	case EventCheckIn:
		title = fmt.Sprintf("%s checked in", child)
		body = message
	case EventUnusualRoute:
		title = fmt.Sprintf("Unusual activity detected for %s", child)
		body = message
	default:
		title = "MauZenfan"
		body = message
	}

	return push.Notification{
		Title: title,
		Body:  body,
		Data:  e.PushData(),
	}
}

func (e Envelope) str(key string) string {
	s, _ := e.Payload[key].(string)
	return s
}

func (e Envelope) user(key string) UserRef {
	u, _ := e.Payload[key].(UserRef)
	return u
}
