package eta

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/mauzenfan/mauzenfan/internal/database"
	"github.com/mauzenfan/mauzenfan/internal/model"
	"github.com/mauzenfan/mauzenfan/internal/notify"
	"github.com/mauzenfan/mauzenfan/internal/store"
)

type recordingDispatcher struct {
	events []notify.Event
}

func (r *recordingDispatcher) Dispatch(ev notify.Event) {
	r.events = append(r.events, ev)
}

func (r *recordingDispatcher) types() []notify.EventType {
	var out []notify.EventType
	for _, ev := range r.events {
		out = append(out, ev.Type)
	}
	return out
}

func setupService(t *testing.T) (*Service, *recordingDispatcher, *store.UserStore) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	users := store.NewUserStore(db)
	events := &recordingDispatcher{}
	svc := NewService(store.NewEtaStore(db), users, events, slog.New(slog.NewTextHandler(io.Discard, nil)))
	svc.now = func() time.Time { return time.Date(2025, 3, 14, 7, 0, 0, 0, time.UTC) }
	return svc, events, users
}

func mustUser(t *testing.T, users *store.UserStore, name string) *model.User {
	t.Helper()
	u, err := users.Create(name, name)
	if err != nil {
		t.Fatalf("create user %s: %v", name, err)
	}
	return u
}

func ptr(f float64) *float64 { return &f }

func TestEstimate(t *testing.T) {
	now := time.Date(2025, 3, 14, 7, 0, 0, 0, time.UTC)
	// 0.045 degrees of latitude is just over 5 km.
	got := Estimate(-20.0, 57.5, -20.045, 57.5, now)

	if d := got.Sub(now); d < 59*time.Minute || d > 61*time.Minute {
		t.Errorf("5 km walk took %v, want about an hour", d)
	}
	if !Estimate(1, 1, 1, 1, now).Equal(now) {
		t.Error("zero distance should arrive now")
	}
}

func TestArrived(t *testing.T) {
	if !Arrived(-20.0, 57.5, -20.0005, 57.5) {
		t.Error("55 m away should count as arrived")
	}
	if Arrived(-20.0, 57.5, -20.002, 57.5) {
		t.Error("220 m away should not count as arrived")
	}
}

func TestStartValidatesRecipients(t *testing.T) {
	svc, events, users := setupService(t)
	dad := mustUser(t, users, "dad")

	_, err := svc.Start(dad.ID, StartRequest{SharedWith: []int64{dad.ID}})
	if !errors.Is(err, ErrInvalidRecipient) {
		t.Errorf("share with self: err = %v, want ErrInvalidRecipient", err)
	}

	_, err = svc.Start(dad.ID, StartRequest{SharedWith: []int64{9999}})
	if !errors.Is(err, ErrInvalidRecipient) {
		t.Errorf("unknown recipient: err = %v, want ErrInvalidRecipient", err)
	}
	if len(events.events) != 0 {
		t.Errorf("rejected start emitted %d events", len(events.events))
	}
}

func TestStartEmitsEtaStarted(t *testing.T) {
	svc, events, users := setupService(t)
	dad := mustUser(t, users, "dad")
	mum := mustUser(t, users, "mum")

	share, err := svc.Start(dad.ID, StartRequest{
		DestinationName:      "School",
		DestinationLatitude:  -20.045,
		DestinationLongitude: 57.5,
		CurrentLatitude:      ptr(-20.0),
		CurrentLongitude:     ptr(57.5),
		SharedWith:           []int64{mum.ID, mum.ID},
	})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if share.Status != model.EtaActive {
		t.Errorf("status = %q, want ACTIVE", share.Status)
	}
	if share.CalculatedEta == nil {
		t.Fatal("expected calculated eta")
	}
	if len(share.SharedWith) != 1 || share.SharedWith[0] != mum.ID {
		t.Errorf("shared_with = %v, want [%d]", share.SharedWith, mum.ID)
	}

	if got := events.types(); len(got) != 1 || got[0] != notify.EventEtaStarted {
		t.Fatalf("events = %v, want [eta_started]", got)
	}
	if _, err := notify.Format(events.events[0]); err != nil {
		t.Errorf("eta_started event does not format: %v", err)
	}
}

func TestUpdateLocationAutoArrives(t *testing.T) {
	svc, events, users := setupService(t)
	dad := mustUser(t, users, "dad")
	mum := mustUser(t, users, "mum")

	share, err := svc.Start(dad.ID, StartRequest{
		DestinationLatitude:  -20.045,
		DestinationLongitude: 57.5,
		SharedWith:           []int64{mum.ID},
	})
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	if _, err := svc.UpdateLocation(share.ID, mum.ID, -20.01, 57.5); !errors.Is(err, ErrNotSharer) {
		t.Errorf("recipient update: err = %v, want ErrNotSharer", err)
	}

	updated, err := svc.UpdateLocation(share.ID, dad.ID, -20.01, 57.5)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Status != model.EtaActive || updated.CurrentLatitude == nil || *updated.CurrentLatitude != -20.01 {
		t.Errorf("after far update: %+v", updated)
	}

	arrived, err := svc.UpdateLocation(share.ID, dad.ID, -20.0445, 57.5)
	if err != nil {
		t.Fatalf("update near destination: %v", err)
	}
	if arrived.Status != model.EtaArrived {
		t.Errorf("status = %q, want ARRIVED", arrived.Status)
	}

	if _, err := svc.UpdateLocation(share.ID, dad.ID, -20.0, 57.5); !errors.Is(err, model.ErrInvalidTransition) {
		t.Errorf("update after arrival: err = %v, want ErrInvalidTransition", err)
	}

	want := []notify.EventType{notify.EventEtaStarted, notify.EventEtaUpdated, notify.EventEtaArrived}
	got := events.types()
	if len(got) != len(want) {
		t.Fatalf("events = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("event %d = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestCancelAndArrive(t *testing.T) {
	svc, events, users := setupService(t)
	dad := mustUser(t, users, "dad")
	mum := mustUser(t, users, "mum")

	share, err := svc.Start(dad.ID, StartRequest{DestinationLatitude: 1, DestinationLongitude: 1, SharedWith: []int64{mum.ID}})
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	if _, err := svc.Cancel(share.ID, mum.ID); !errors.Is(err, ErrNotSharer) {
		t.Errorf("cancel by recipient: err = %v, want ErrNotSharer", err)
	}
	if _, err := svc.Cancel(9999, dad.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("cancel unknown: err = %v, want ErrNotFound", err)
	}

	cancelled, err := svc.Cancel(share.ID, dad.ID)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if cancelled.Status != model.EtaCancelled {
		t.Errorf("status = %q, want CANCELLED", cancelled.Status)
	}
	if _, err := svc.Arrive(share.ID, dad.ID); !errors.Is(err, model.ErrInvalidTransition) {
		t.Errorf("arrive after cancel: err = %v, want ErrInvalidTransition", err)
	}

	active, err := svc.ListActive(mum.ID)
	if err != nil {
		t.Fatalf("list active: %v", err)
	}
	if len(active) != 0 {
		t.Errorf("active shares = %d, want 0", len(active))
	}

	got := events.types()
	if len(got) != 2 || got[1] != notify.EventEtaCancelled {
		t.Errorf("events = %v, want [eta_started eta_cancelled]", got)
	}
}

type brokenUsers struct{}

func (brokenUsers) GetByID(id int64) (*model.User, error) {
	return nil, errors.New("database is locked")
}

func TestEventDroppedWhenSharerLookupFails(t *testing.T) {
	svc, events, users := setupService(t)
	dad := mustUser(t, users, "dad")

	share, err := svc.Start(dad.ID, StartRequest{DestinationLatitude: 1, DestinationLongitude: 1})
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	var logs bytes.Buffer
	svc.logger = slog.New(slog.NewTextHandler(&logs, nil))
	svc.users = brokenUsers{}

	if _, err := svc.Cancel(share.ID, dad.ID); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if got := events.types(); len(got) != 1 {
		t.Errorf("events = %v, want only eta_started", got)
	}
	if !strings.Contains(logs.String(), "eta event dropped") || !strings.Contains(logs.String(), "database is locked") {
		t.Errorf("log = %q", logs.String())
	}
}
