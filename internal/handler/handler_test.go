package handler

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/mauzenfan/mauzenfan/internal/alerting"
	"github.com/mauzenfan/mauzenfan/internal/auth"
	"github.com/mauzenfan/mauzenfan/internal/database"
	"github.com/mauzenfan/mauzenfan/internal/eta"
	"github.com/mauzenfan/mauzenfan/internal/model"
	"github.com/mauzenfan/mauzenfan/internal/notify"
	"github.com/mauzenfan/mauzenfan/internal/store"
	"github.com/mauzenfan/mauzenfan/internal/tracking"
)

type recordingDispatcher struct {
	events []notify.Event
}

func (r *recordingDispatcher) Dispatch(ev notify.Event) {
	r.events = append(r.events, ev)
}

type env struct {
	events   *recordingDispatcher
	users    *store.UserStore
	children *store.ChildStore
	messages *store.MessageStore
	devices  *store.DeviceStore
	alerts   *store.AlertStore
	dad      *model.User
	mum      *model.User
	logger   *slog.Logger
	points   *store.LocationStore
	etas     *store.EtaStore
	zones    *store.SafeZoneStore
}

func setup(t *testing.T) *env {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	e := &env{
		events:   &recordingDispatcher{},
		users:    store.NewUserStore(db),
		children: store.NewChildStore(db),
		messages: store.NewMessageStore(db),
		devices:  store.NewDeviceStore(db),
		alerts:   store.NewAlertStore(db),
		points:   store.NewLocationStore(db),
		etas:     store.NewEtaStore(db),
		zones:    store.NewSafeZoneStore(db),
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	if e.dad, err = e.users.Create("dad", "Dad"); err != nil {
		t.Fatalf("create user: %v", err)
	}
	if e.mum, err = e.users.Create("mum", "Mum"); err != nil {
		t.Fatalf("create user: %v", err)
	}
	return e
}

type call struct {
	method  string
	path    string
	body    string
	userID  int64
	childID int64
	params  map[string]string
}

func do(h http.HandlerFunc, c call) *httptest.ResponseRecorder {
	req := httptest.NewRequest(c.method, c.path, strings.NewReader(c.body))
	req = req.WithContext(auth.WithAuth(req.Context(), auth.AuthContext{UserID: c.userID, ChildID: c.childID}))
	for k, v := range c.params {
		req.SetPathValue(k, v)
	}
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

func (e *env) messageHandler() *MessageHandler {
	return NewMessageHandler(e.messages, e.users, e.children, e.events, e.logger)
}

func TestSendMessage(t *testing.T) {
	e := setup(t)
	h := e.messageHandler()

	rec := do(h.Send, call{method: "POST", path: "/api/messages", body: `{"receiver_id": 2, "content": " hi mum "}`, userID: e.dad.ID})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}
	body := decode[map[string]any](t, rec)
	if body["content"] != "hi mum" {
		t.Errorf("content = %v", body["content"])
	}
	if sender, _ := body["sender"].(map[string]any); sender["username"] != "dad" {
		t.Errorf("sender = %v", body["sender"])
	}

	if len(e.events.events) != 1 {
		t.Fatalf("dispatched %d events, want 1", len(e.events.events))
	}
	ev := e.events.events[0]
	if ev.Type != notify.EventNewMessage || ev.Audience.Sender != e.dad.ID || ev.Audience.Receiver != e.mum.ID {
		t.Errorf("event = %+v", ev)
	}
	if _, err := notify.Format(ev); err != nil {
		t.Errorf("message event does not format: %v", err)
	}
}

func TestSendMessageValidation(t *testing.T) {
	e := setup(t)
	h := e.messageHandler()

	tests := []struct {
		name string
		body string
		want int
	}{
		{"bad json", `{`, http.StatusBadRequest},
		{"empty content", `{"receiver_id": 2, "content": "   "}`, http.StatusBadRequest},
		{"self", `{"receiver_id": 1, "content": "hi"}`, http.StatusBadRequest},
		{"unknown receiver", `{"receiver_id": 99, "content": "hi"}`, http.StatusNotFound},
		{"too long", `{"receiver_id": 2, "content": "` + strings.Repeat("a", maxMessageLength+1) + `"}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(h.Send, call{method: "POST", path: "/api/messages", body: tt.body, userID: e.dad.ID})
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
	if len(e.events.events) != 0 {
		t.Errorf("rejected messages dispatched %d events", len(e.events.events))
	}
}

func TestChildSendGoesToParent(t *testing.T) {
	e := setup(t)
	h := e.messageHandler()
	child, err := e.children.Create(e.dad.ID, "Ana", "dev-1", "hash")
	if err != nil {
		t.Fatalf("create child: %v", err)
	}

	rec := do(h.ChildSend, call{method: "POST", path: "/api/child/messages", body: `{"content": "pick me up"}`, userID: *child.ProxyUserID, childID: child.ID})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}

	ev := e.events.events[0]
	if ev.Audience.Sender != *child.ProxyUserID || ev.Audience.Receiver != e.dad.ID {
		t.Errorf("audience = %+v", ev.Audience)
	}
	sender := ev.Data["sender"].(notify.UserRef)
	if sender.Username != model.ProxyUsername(child.ID) || sender.DisplayName != "Ana" {
		t.Errorf("sender = %+v", sender)
	}
}

func TestMarkRead(t *testing.T) {
	e := setup(t)
	h := e.messageHandler()
	for _, content := range []string{"one", "two"} {
		if _, err := e.messages.Create(e.mum.ID, e.dad.ID, content, fixedNow); err != nil {
			t.Fatalf("create message: %v", err)
		}
	}

	rec := do(h.MarkRead, call{method: "POST", path: "/api/messages/read", body: `{"other_user_id": 2}`, userID: e.dad.ID})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}
	if got := decode[map[string]int64](t, rec)["messages_updated"]; got != 2 {
		t.Errorf("messages_updated = %d, want 2", got)
	}
	if len(e.events.events) != 1 || e.events.events[0].Type != notify.EventMessagesRead {
		t.Fatalf("events = %+v", e.events.events)
	}
	if a := e.events.events[0].Audience; a.Sender != e.dad.ID || a.Receiver != e.mum.ID {
		t.Errorf("audience = %+v", a)
	}

	// Nothing left to mark: no receipt.
	rec = do(h.MarkRead, call{method: "POST", path: "/api/messages/read", body: `{"other_user_id": 2}`, userID: e.dad.ID})
	if got := decode[map[string]int64](t, rec)["messages_updated"]; got != 0 {
		t.Errorf("messages_updated = %d, want 0", got)
	}
	if len(e.events.events) != 1 {
		t.Errorf("dispatched %d events, want 1", len(e.events.events))
	}

	rec = do(h.MarkRead, call{method: "POST", path: "/api/messages/read", body: `{}`, userID: e.dad.ID})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing other_user_id status = %d, want 400", rec.Code)
	}
}

func TestHistory(t *testing.T) {
	e := setup(t)
	h := e.messageHandler()
	if _, err := e.messages.Create(e.mum.ID, e.dad.ID, "hello", fixedNow); err != nil {
		t.Fatalf("create message: %v", err)
	}

	rec := do(h.History, call{method: "GET", path: "/api/messages/2", userID: e.dad.ID, params: map[string]string{"other_user_id": "2"}})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if msgs := decode[[]model.Message](t, rec); len(msgs) != 1 || msgs[0].Content != "hello" {
		t.Errorf("messages = %+v", msgs)
	}

	rec = do(h.History, call{method: "GET", path: "/api/messages/99", userID: e.dad.ID, params: map[string]string{"other_user_id": "99"}})
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown user status = %d, want 404", rec.Code)
	}
	rec = do(h.History, call{method: "GET", path: "/api/messages/x", userID: e.dad.ID, params: map[string]string{"other_user_id": "x"}})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad id status = %d, want 400", rec.Code)
	}
}

func TestDeviceRegistration(t *testing.T) {
	e := setup(t)
	h := NewDeviceHandler(e.devices, nil, "", e.logger)

	rec := do(h.Register, call{method: "POST", path: "/api/devices", body: `{"token": "https://push.example/abc", "platform": "web"}`, userID: e.dad.ID})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("web without keys status = %d, want 400", rec.Code)
	}
	rec = do(h.Register, call{method: "POST", path: "/api/devices", body: `{"token": "t", "platform": "blackberry"}`, userID: e.dad.ID})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("unknown platform status = %d, want 400", rec.Code)
	}

	rec = do(h.Register, call{method: "POST", path: "/api/devices", body: `{"token": "fcm-1", "platform": "android", "device_name": "Pixel"}`, userID: e.dad.ID})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}
	d := decode[model.UserDevice](t, rec)
	if d.UserID != e.dad.ID || !d.IsActive {
		t.Errorf("device = %+v", d)
	}

	rec = do(h.List, call{method: "GET", path: "/api/devices", userID: e.dad.ID})
	if list := decode[[]model.UserDevice](t, rec); len(list) != 1 {
		t.Errorf("listed %d devices, want 1", len(list))
	}

	id := map[string]string{"id": "1"}
	rec = do(h.Delete, call{method: "DELETE", path: "/api/devices/1", userID: e.mum.ID, params: id})
	if rec.Code != http.StatusNotFound {
		t.Errorf("deleting another user's device status = %d, want 404", rec.Code)
	}
	rec = do(h.Delete, call{method: "DELETE", path: "/api/devices/1", userID: e.dad.ID, params: id})
	if rec.Code != http.StatusNoContent {
		t.Errorf("delete status = %d, want 204", rec.Code)
	}
}

func TestVAPIDKeyAndTestPush(t *testing.T) {
	e := setup(t)

	off := NewDeviceHandler(e.devices, nil, "", e.logger)
	if rec := do(off.GetVAPIDKey, call{method: "GET", path: "/api/push/vapid-key", userID: e.dad.ID}); rec.Code != http.StatusNotFound {
		t.Errorf("unconfigured vapid status = %d, want 404", rec.Code)
	}
	if rec := do(off.TestNotification, call{method: "POST", path: "/api/push/test", userID: e.dad.ID}); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("test push without gateway status = %d, want 503", rec.Code)
	}

	on := NewDeviceHandler(e.devices, nil, "BPub", e.logger)
	rec := do(on.GetVAPIDKey, call{method: "GET", path: "/api/push/vapid-key", userID: e.dad.ID})
	if got := decode[map[string]string](t, rec)["public_key"]; got != "BPub" {
		t.Errorf("public_key = %q", got)
	}
}

func TestCreateChild(t *testing.T) {
	e := setup(t)
	h := NewChildHandler(e.children, e.logger)

	rec := do(h.Create, call{method: "POST", path: "/api/children", body: `{"name": "Ana", "device_id": "dev-1"}`, userID: e.dad.ID})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}
	body := decode[map[string]any](t, rec)
	secret, _ := body["device_secret"].(string)
	if secret == "" {
		t.Fatal("expected device_secret in response")
	}
	if body["proxy_user_id"] == nil || body["parent_id"] != float64(e.dad.ID) {
		t.Errorf("child = %v", body)
	}

	child, err := e.children.GetByID(int64(body["id"].(float64)))
	if err != nil || child == nil {
		t.Fatalf("get child: %v", err)
	}
	if !auth.CheckDeviceSecret(child.DeviceSecretHash, secret) {
		t.Error("stored hash does not match the returned secret")
	}

	rec = do(h.Create, call{method: "POST", path: "/api/children", body: `{"name": "Leo", "device_id": "dev-1"}`, userID: e.dad.ID})
	if rec.Code != http.StatusConflict {
		t.Errorf("duplicate device status = %d, want 409", rec.Code)
	}
	rec = do(h.Create, call{method: "POST", path: "/api/children", body: `{"name": ""}`, userID: e.dad.ID})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing name status = %d, want 400", rec.Code)
	}

	rec = do(h.List, call{method: "GET", path: "/api/children", userID: e.mum.ID})
	if list := decode[[]model.Child](t, rec); len(list) != 0 {
		t.Errorf("mum sees %d children, want 0", len(list))
	}
}

func TestAlerts(t *testing.T) {
	e := setup(t)
	h := NewAlertHandler(e.alerts, e.logger)
	child, err := e.children.Create(e.dad.ID, "Ana", "dev-1", "hash")
	if err != nil {
		t.Fatalf("create child: %v", err)
	}
	a, err := e.alerts.Create(e.dad.ID, &child.ID, nil, model.AlertSOS, "SOS from Ana!", fixedNow)
	if err != nil {
		t.Fatalf("create alert: %v", err)
	}

	rec := do(h.List, call{method: "GET", path: "/api/alerts", userID: e.dad.ID})
	if list := decode[[]model.Alert](t, rec); len(list) != 1 || list[0].ID != a.ID {
		t.Errorf("alerts = %+v", list)
	}

	id := map[string]string{"id": "1"}
	if rec := do(h.MarkRead, call{method: "POST", path: "/api/alerts/1/read", userID: e.mum.ID, params: id}); rec.Code != http.StatusNotFound {
		t.Errorf("other recipient status = %d, want 404", rec.Code)
	}
	if rec := do(h.MarkRead, call{method: "POST", path: "/api/alerts/1/read", userID: e.dad.ID, params: id}); rec.Code != http.StatusNoContent {
		t.Errorf("mark read status = %d, want 204", rec.Code)
	}
	got, _ := e.alerts.GetByID(a.ID)
	if !got.IsRead {
		t.Error("alert should be read")
	}
}

func TestEtaLifecycle(t *testing.T) {
	e := setup(t)
	h := NewEtaHandler(eta.NewService(e.etas, e.users, e.events, e.logger), e.logger)

	tests := []struct {
		name string
		body string
		want int
	}{
		{"bad destination", `{"destination_latitude": 95, "destination_longitude": 0}`, http.StatusBadRequest},
		{"half position", `{"destination_latitude": 1, "destination_longitude": 1, "current_latitude": 1}`, http.StatusBadRequest},
		{"self", `{"destination_latitude": 1, "destination_longitude": 1, "shared_with": [1]}`, http.StatusBadRequest},
		{"unknown recipient", `{"destination_latitude": 1, "destination_longitude": 1, "shared_with": [99]}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(h.Start, call{method: "POST", path: "/api/eta", body: tt.body, userID: e.dad.ID})
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}

	rec := do(h.Start, call{method: "POST", path: "/api/eta", userID: e.dad.ID,
		body: `{"destination_name": "School", "destination_latitude": -20.1, "destination_longitude": 57.5, "current_latitude": -20.12, "current_longitude": 57.5, "shared_with": [2]}`})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}
	share := decode[model.EtaShare](t, rec)
	if share.CalculatedEta == nil || share.Status != model.EtaActive {
		t.Errorf("share = %+v", share)
	}

	rec = do(h.ListActive, call{method: "GET", path: "/api/eta/active", userID: e.mum.ID})
	if list := decode[[]model.EtaShare](t, rec); len(list) != 1 {
		t.Errorf("mum sees %d active shares, want 1", len(list))
	}

	id := map[string]string{"id": "1"}
	rec = do(h.UpdateLocation, call{method: "POST", path: "/api/eta/1/location", body: `{"latitude": -20.11, "longitude": 57.5}`, userID: e.mum.ID, params: id})
	if rec.Code != http.StatusForbidden {
		t.Errorf("non-sharer update status = %d, want 403", rec.Code)
	}
	rec = do(h.UpdateLocation, call{method: "POST", path: "/api/eta/1/location", body: `{"latitude": -20.11}`, userID: e.dad.ID, params: id})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing longitude status = %d, want 400", rec.Code)
	}
	rec = do(h.UpdateLocation, call{method: "POST", path: "/api/eta/1/location", body: `{"latitude": -20.11, "longitude": 57.5}`, userID: e.dad.ID, params: id})
	if rec.Code != http.StatusOK {
		t.Errorf("update status = %d, want 200", rec.Code)
	}

	if rec := do(h.Cancel, call{method: "POST", path: "/api/eta/1/cancel", userID: e.dad.ID, params: id}); rec.Code != http.StatusOK {
		t.Errorf("cancel status = %d, want 200", rec.Code)
	}
	if rec := do(h.Arrived, call{method: "POST", path: "/api/eta/1/arrived", userID: e.dad.ID, params: id}); rec.Code != http.StatusConflict {
		t.Errorf("arrive after cancel status = %d, want 409", rec.Code)
	}
	missing := map[string]string{"id": "42"}
	if rec := do(h.Cancel, call{method: "POST", path: "/api/eta/42/cancel", userID: e.dad.ID, params: missing}); rec.Code != http.StatusNotFound {
		t.Errorf("unknown share status = %d, want 404", rec.Code)
	}

	var types []notify.EventType
	for _, ev := range e.events.events {
		types = append(types, ev.Type)
	}
	want := []notify.EventType{notify.EventEtaStarted, notify.EventEtaUpdated, notify.EventEtaCancelled}
	if len(types) != len(want) {
		t.Fatalf("events = %v, want %v", types, want)
	}
	for i := range want {
		if types[i] != want[i] {
			t.Errorf("event %d = %s, want %s", i, types[i], want[i])
		}
	}
}

func TestChildDeviceEndpoints(t *testing.T) {
	e := setup(t)
	child, err := e.children.Create(e.dad.ID, "Ana", "dev-1", "hash")
	if err != nil {
		t.Fatalf("create child: %v", err)
	}
	raiser := alerting.NewRaiser(e.alerts, e.events, e.logger)
	svc := tracking.NewService(e.children, e.points, nopZones{}, nopRoutines{}, raiser, e.events, e.logger)
	h := NewChildDeviceHandler(e.children, svc, e.logger)
	dev := func(hf http.HandlerFunc, path, body string) *httptest.ResponseRecorder {
		return do(hf, call{method: "POST", path: path, body: body, userID: *child.ProxyUserID, childID: child.ID})
	}

	if rec := dev(h.Location, "/api/child/location", `{"latitude": -20.16, "longitude": 57.5, "battery_status": 80}`); rec.Code != http.StatusCreated {
		t.Errorf("location status = %d, body = %s", rec.Code, rec.Body)
	}
	if rec := dev(h.Location, "/api/child/location", `{"latitude": 200, "longitude": 0}`); rec.Code != http.StatusBadRequest {
		t.Errorf("invalid location status = %d, want 400", rec.Code)
	}

	rec := dev(h.SOS, "/api/child/sos", `{"latitude": -20.16, "longitude": 57.5}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("sos status = %d, body = %s", rec.Code, rec.Body)
	}
	if body := decode[map[string]any](t, rec); body["alert_id"] == nil {
		t.Errorf("sos body = %v", body)
	}

	if rec := dev(h.CheckIn, "/api/child/check-in", `{"latitude": 1, "longitude": 1}`); rec.Code != http.StatusBadRequest {
		t.Errorf("check-in without type status = %d, want 400", rec.Code)
	}
	if rec := dev(h.CheckIn, "/api/child/check-in", `{"check_in_type": "ARRIVED_HOME", "latitude": 1, "longitude": 1}`); rec.Code != http.StatusCreated {
		t.Errorf("check-in status = %d, body = %s", rec.Code, rec.Body)
	}

	var types []notify.EventType
	for _, ev := range e.events.events {
		types = append(types, ev.Type)
	}
	want := []notify.EventType{notify.EventLocationUpdate, notify.EventSOS, notify.EventCheckIn}
	if len(types) != len(want) {
		t.Fatalf("events = %v, want %v", types, want)
	}
	for i := range want {
		if types[i] != want[i] {
			t.Errorf("event %d = %s, want %s", i, types[i], want[i])
		}
	}
}

type nopZones struct{}

func (nopZones) ListActiveByOwner(int64) ([]model.SafeZone, error) { return nil, nil }

type nopRoutines struct{}

func (nopRoutines) ListByChild(int64) ([]model.LearnedRoutine, error) { return nil, nil }

var fixedNow = time.Date(2025, 3, 14, 7, 0, 0, 0, time.UTC)

func TestSafeZones(t *testing.T) {
	e := setup(t)
	h := NewSafeZoneHandler(e.zones, e.logger)

	invalid := []string{
		`{"latitude": -20.1, "longitude": 57.5, "radius": 100}`,
		`{"name": "Home", "longitude": 57.5, "radius": 100}`,
		`{"name": "Home", "latitude": 95, "longitude": 57.5, "radius": 100}`,
		`{"name": "Home", "latitude": -20.1, "longitude": 57.5, "radius": 0}`,
		`{"name": "Home", "latitude": -20.1, "longitude": 57.5, "radius": 9000}`,
		`not json`,
	}
	for _, body := range invalid {
		rec := do(h.Create, call{method: "POST", path: "/api/safe-zones", body: body, userID: e.dad.ID})
		if rec.Code != http.StatusBadRequest {
			t.Errorf("body %s: status = %d, want 400", body, rec.Code)
		}
	}

	rec := do(h.Create, call{method: "POST", path: "/api/safe-zones", body: `{"name": " Home ", "latitude": 0, "longitude": 0, "radius": 150}`, userID: e.dad.ID})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", rec.Code, rec.Body)
	}
	zone := decode[map[string]any](t, rec)
	if zone["name"] != "Home" || zone["owner_id"] != float64(e.dad.ID) {
		t.Errorf("zone = %v", zone)
	}
	id := strconv.FormatInt(int64(zone["id"].(float64)), 10)

	rec = do(h.List, call{method: "GET", path: "/api/safe-zones", userID: e.mum.ID})
	if got := decode[[]map[string]any](t, rec); len(got) != 0 {
		t.Errorf("mum sees zones %v", got)
	}

	rec = do(h.Delete, call{method: "DELETE", path: "/api/safe-zones/" + id, userID: e.mum.ID, params: map[string]string{"id": id}})
	if rec.Code != http.StatusNotFound {
		t.Errorf("foreign delete status = %d, want 404", rec.Code)
	}
	rec = do(h.Delete, call{method: "DELETE", path: "/api/safe-zones/" + id, userID: e.dad.ID, params: map[string]string{"id": id}})
	if rec.Code != http.StatusNoContent {
		t.Errorf("delete status = %d, want 204", rec.Code)
	}

	rec = do(h.List, call{method: "GET", path: "/api/safe-zones", userID: e.dad.ID})
	if got := decode[[]map[string]any](t, rec); len(got) != 0 {
		t.Errorf("zones after delete = %v", got)
	}
}
