package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/mauzenfan/mauzenfan/internal/model"
	"github.com/mauzenfan/mauzenfan/internal/push"
)

var testTime = time.Date(2025, 3, 14, 7, 30, 0, 0, time.UTC)

type fakeUsers map[int64]bool

func (f fakeUsers) Exists(id int64) (bool, error) { return f[id], nil }

type fakeParents map[int64]int64

func (f fakeParents) ParentID(childID int64) (int64, error) { return f[childID], nil }

type sent struct {
	group string
	data  []byte
}

type recordingBroadcaster struct {
	mu   sync.Mutex
	sent []sent
}

func (b *recordingBroadcaster) Broadcast(group string, data []byte) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sent = append(b.sent, sent{group: group, data: data})
	return 1
}

func (b *recordingBroadcaster) groups() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []string
	for _, s := range b.sent {
		out = append(out, s.group)
	}
	return out
}

type pushed struct {
	userID int64
	n      push.Notification
}

type recordingPusher struct {
	mu     sync.Mutex
	pushes []pushed
}

func (p *recordingPusher) Push(ctx context.Context, userID int64, n push.Notification) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pushes = append(p.pushes, pushed{userID: userID, n: n})
	return 1
}

func (p *recordingPusher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.pushes)
}

// Family used across tests: parent 1, relatives 2 and 3, child 15 whose
// proxy user is 16.
var (
	parent  = model.User{ID: 1, Username: "dad", DisplayName: "Dad"}
	aunt    = model.User{ID: 2, Username: "aunt", DisplayName: "Aunt May"}
	uncle   = model.User{ID: 3, Username: "uncle", DisplayName: ""}
	proxy   = model.User{ID: 16, Username: model.ProxyUsername(15), DisplayName: "Ana", IsProxy: true}
	battery = 42
	child   = model.Child{ID: 15, ParentID: 1, Name: "Ana", BatteryStatus: &battery}
)

func testRouter() *Router {
	return NewRouter(
		fakeUsers{1: true, 2: true, 3: true, 16: true},
		fakeParents{15: 1},
		slog.Default(),
	)
}

func testAlert(t model.AlertType) model.Alert {
	cid := child.ID
	return model.Alert{ID: 99, RecipientID: 1, ChildID: &cid, AlertType: t, Message: "something happened", CreatedAt: testTime}
}

func testShare(status model.EtaStatus) model.EtaShare {
	return model.EtaShare{
		ID:                   5,
		SharerID:             parent.ID,
		SharedWith:           []int64{aunt.ID, uncle.ID},
		DestinationName:      "School",
		DestinationLatitude:  -20.1609,
		DestinationLongitude: 57.5012,
		Status:               status,
	}
}

// sampleEvent returns a fully populated event of type t.
func sampleEvent(t EventType) Event {
	lat, lon := -20.1609, 57.5012
	acc := 8.5
	switch t {
	case EventNewMessage:
		return NewMessageEvent(model.Message{ID: 7, SenderID: proxy.ID, ReceiverID: parent.ID, Content: "Hello Dad!", CreatedAt: testTime}, proxy, parent)
	case EventLocationUpdate:
		return LocationUpdateEvent(child, model.LocationPoint{ChildID: child.ID, Latitude: lat, Longitude: lon, Accuracy: &acc, RecordedAt: testTime})
	case EventMessagesRead:
		return ReadReceiptEvent(parent.ID, proxy.ID, 3, testTime)
	case EventEtaStarted, EventEtaUpdated, EventEtaCancelled, EventEtaArrived:
		return EtaEvent(t, testShare(model.EtaActive), parent, testTime)
	case EventSOS:
		return SOSEvent(testAlert(model.AlertSOS), child, &lat, &lon)
	case EventSafeZoneAlert:
		return SafeZoneEvent(testAlert(model.AlertLeftZone), child, model.SafeZone{ID: 3, Name: "School"}, &lat, &lon)
	case EventLowBattery:
		return LowBatteryEvent(testAlert(model.AlertLowBattery), child, 12)
	case EventWeatherAlert:
		return WeatherEvent(testAlert(model.AlertContextualWeather), child, "Rain likely")
	case EventCheckIn:
		return CheckInEvent(testAlert(model.AlertCheckIn), child, "ARRIVED_SAFE", lat, lon, "School")
	case EventUnusualRoute:
		return UnusualRouteEvent(testAlert(model.AlertUnusualRoute), child, model.RoutineHomeToSchool)
	}
	panic("no sample for " + string(t))
}
