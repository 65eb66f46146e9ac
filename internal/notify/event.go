package notify

// EventType identifies one of the fixed notification kinds.
type EventType string

const (
	EventNewMessage     EventType = "new_message"
	EventLocationUpdate EventType = "location_update"
	EventMessagesRead   EventType = "messages_read"
	EventEtaStarted     EventType = "eta_started"
	EventEtaUpdated     EventType = "eta_updated"
	EventEtaCancelled   EventType = "eta_cancelled"
	EventEtaArrived     EventType = "eta_arrived"
	EventWeatherAlert   EventType = "contextual_weather_alert"
	EventSafeZoneAlert  EventType = "safezone_alert"
	EventLowBattery     EventType = "low_battery_alert"
	EventCheckIn        EventType = "child_check_in"
	EventUnusualRoute   EventType = "unusual_route_alert"
	EventSOS            EventType = "sos_alert"
)

type policy struct {
	alias     string // group-message alias for typed events
	wrapped   bool
	websocket bool
	push      bool
}

var policies = map[EventType]policy{
	EventNewMessage:     {alias: "new.chat.message", websocket: true, push: true},
	EventLocationUpdate: {alias: "location.update", websocket: true},
	EventMessagesRead:   {alias: "messages.read.receipt", websocket: true},
	EventEtaStarted:     {wrapped: true, websocket: true, push: true},
	EventEtaUpdated:     {wrapped: true, websocket: true},
	EventEtaCancelled:   {wrapped: true, websocket: true},
	EventEtaArrived:     {wrapped: true, websocket: true},
	EventWeatherAlert:   {wrapped: true, websocket: true, push: true},
	EventSafeZoneAlert:  {wrapped: true, websocket: true, push: true},
	EventLowBattery:     {wrapped: true, websocket: true, push: true},
	EventCheckIn:        {wrapped: true, websocket: true, push: true},
	EventUnusualRoute:   {wrapped: true, websocket: true, push: true},
	EventSOS:            {wrapped: true, push: true},
}

// EventTypes returns every known event type in a stable order.
func EventTypes() []EventType {
	return []EventType{
		EventNewMessage, EventLocationUpdate, EventMessagesRead,
		EventEtaStarted, EventEtaUpdated, EventEtaCancelled, EventEtaArrived,
		EventWeatherAlert, EventSafeZoneAlert, EventLowBattery,
		EventCheckIn, EventUnusualRoute, EventSOS,
	}
}

// Valid reports whether t is a known event type.
func (t EventType) Valid() bool {
	_, ok := policies[t]
	return ok
}

// GroupAlias returns the dotted handler name legacy clients know a typed
// event by, such as "new.chat.message", or "" for wrapped events. It is
// contract metadata only; frames are routed by group name.
func (t EventType) GroupAlias() string {
	return policies[t].alias
}

// Wrapped reports whether the event uses the send_notification envelope.
func (t EventType) Wrapped() bool {
	return policies[t].wrapped
}

// WebSocketEligible reports whether the event is broadcast to live sessions.
func (t EventType) WebSocketEligible() bool {
	return policies[t].websocket
}

// PushEligible reports whether the event is also sent as a push notification.
func (t EventType) PushEligible() bool {
	return policies[t].push
}

func (t EventType) isEta() bool {
	switch t {
	case EventEtaStarted, EventEtaUpdated, EventEtaCancelled, EventEtaArrived:
		return true
	}
	return false
}

// Audience carries the ids the router needs to pick target groups.
// Only the fields relevant to the event type are read.
type Audience struct {
	Sender     int64 // chat sender, or the reader for read receipts
	Receiver   int64 // chat receiver, or the other party for read receipts
	ChildID    int64 // location updates route to the child's parent
	Recipient  int64 // alert recipient
	Sharer     int64
	SharedWith []int64
}

// Event is a canonical domain event before serialization.
type Event struct {
	Type     EventType
	AlertID  int64 // persisted Alert row, 0 when none
	Data     map[string]any
	Audience Audience
}
