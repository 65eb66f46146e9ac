package notify

import (
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mauzenfan/mauzenfan/internal/model"
)

func TestGroupName(t *testing.T) {
	assert.Equal(t, "user_1_notifications", GroupName(1))
	assert.Equal(t, "user_15_notifications", GroupName(15))
	assert.NotEqual(t, GroupName(1), GroupName(11))
}

func TestResolveChatIsExactlyBothParticipants(t *testing.T) {
	r := testRouter()
	got := r.Resolve(sampleEvent(EventNewMessage))
	assert.ElementsMatch(t, []int64{proxy.ID, parent.ID}, got)
}

func TestResolveReadReceipt(t *testing.T) {
	r := testRouter()
	got := r.Resolve(ReadReceiptEvent(parent.ID, proxy.ID, 2, testTime))
	assert.ElementsMatch(t, []int64{parent.ID, proxy.ID}, got)
}

// No live-location sharing entity exists, so a location update only ever
// reaches the parent. Revisit when sharing is modelled.
func TestResolveLocationGoesToParentOnly(t *testing.T) {
	r := testRouter()
	got := r.Resolve(sampleEvent(EventLocationUpdate))
	assert.Equal(t, []int64{parent.ID}, got)
}

func TestResolveAlertUsesRecipient(t *testing.T) {
	r := testRouter()
	for _, et := range []EventType{EventSOS, EventSafeZoneAlert, EventLowBattery, EventWeatherAlert, EventCheckIn, EventUnusualRoute} {
		assert.Equal(t, []int64{parent.ID}, r.Resolve(sampleEvent(et)), string(et))
	}
}

func TestResolveEtaIsSharerAndRecipients(t *testing.T) {
	r := testRouter()
	got := r.Resolve(sampleEvent(EventEtaArrived))
	assert.ElementsMatch(t, []int64{parent.ID, aunt.ID, uncle.ID}, got)
}

func TestResolveDeduplicates(t *testing.T) {
	r := testRouter()
	share := testShare(model.EtaActive)
	share.SharedWith = []int64{aunt.ID, aunt.ID, parent.ID}
	got := r.Resolve(EtaEvent(EventEtaStarted, share, parent, testTime))
	assert.ElementsMatch(t, []int64{parent.ID, aunt.ID}, got)
}

func TestResolveSkipsMissingUsers(t *testing.T) {
	r := NewRouter(fakeUsers{1: true, 3: true}, fakeParents{15: 1}, slog.Default())
	got := r.Resolve(sampleEvent(EventEtaStarted))
	assert.ElementsMatch(t, []int64{parent.ID, uncle.ID}, got)
}

type failingParents struct{}

func (failingParents) ParentID(int64) (int64, error) { return 0, errors.New("db closed") }

func TestResolveLocationLookupError(t *testing.T) {
	r := NewRouter(fakeUsers{1: true}, failingParents{}, slog.Default())
	assert.Empty(t, r.Resolve(sampleEvent(EventLocationUpdate)))
}

func TestResolveOrphanChild(t *testing.T) {
	r := NewRouter(fakeUsers{1: true}, fakeParents{}, slog.Default())
	assert.Empty(t, r.Resolve(sampleEvent(EventLocationUpdate)))
}
