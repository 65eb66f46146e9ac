package push

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/mauzenfan/mauzenfan/internal/model"
)

type fakeDevices struct {
	mu          sync.Mutex
	devices     map[int64][]model.UserDevice
	deactivated []int64
	err         error
}

func (f *fakeDevices) ListActiveByUser(userID int64) ([]model.UserDevice, error) {
	return f.devices[userID], f.err
}

func (f *fakeDevices) Deactivate(id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deactivated = append(f.deactivated, id)
	return nil
}

type fakeSender struct {
	mu    sync.Mutex
	calls []string
	fail  map[string]error
}

func (f *fakeSender) Send(ctx context.Context, d model.UserDevice, n Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, d.Token)
	return f.fail[d.Token]
}

func newTestGateway(devices *fakeDevices, senders map[model.Platform]Sender) *Gateway {
	g := NewGateway(devices, 2, time.Second, slog.Default())
	for p, s := range senders {
		g.Register(p, s)
	}
	return g
}

func TestGatewayNoDevices(t *testing.T) {
	sender := &fakeSender{}
	g := newTestGateway(&fakeDevices{}, map[model.Platform]Sender{model.PlatformAndroid: sender})

	n := g.Push(context.Background(), 1, Notification{Title: "x"})

	assert.Equal(t, 0, n)
	assert.Empty(t, sender.calls)
}

func TestGatewayFailureIsIsolated(t *testing.T) {
	devices := &fakeDevices{devices: map[int64][]model.UserDevice{
		1: {
			{ID: 10, UserID: 1, Platform: model.PlatformAndroid, Token: "broken"},
			{ID: 11, UserID: 1, Platform: model.PlatformAndroid, Token: "ok"},
		},
	}}
	sender := &fakeSender{fail: map[string]error{"broken": errors.New("boom")}}
	g := newTestGateway(devices, map[model.Platform]Sender{model.PlatformAndroid: sender})

	n := g.Push(context.Background(), 1, Notification{Title: "x"})

	assert.Equal(t, 2, n)
	assert.ElementsMatch(t, []string{"broken", "ok"}, sender.calls)
	assert.Empty(t, devices.deactivated)
}

func TestGatewayRoutesByPlatform(t *testing.T) {
	devices := &fakeDevices{devices: map[int64][]model.UserDevice{
		1: {
			{ID: 1, UserID: 1, Platform: model.PlatformAndroid, Token: "a"},
			{ID: 2, UserID: 1, Platform: model.PlatformIOS, Token: "i"},
			{ID: 3, UserID: 1, Platform: model.PlatformWeb, Token: "w"},
		},
	}}
	mobile := &fakeSender{}
	web := &fakeSender{}
	g := newTestGateway(devices, map[model.Platform]Sender{
		model.PlatformAndroid: mobile,
		model.PlatformIOS:     mobile,
		model.PlatformWeb:     web,
	})

	assert.Equal(t, 3, g.Push(context.Background(), 1, Notification{}))
	assert.ElementsMatch(t, []string{"a", "i"}, mobile.calls)
	assert.Equal(t, []string{"w"}, web.calls)
}

func TestGatewaySkipsUnconfiguredPlatform(t *testing.T) {
	devices := &fakeDevices{devices: map[int64][]model.UserDevice{
		1: {{ID: 1, UserID: 1, Platform: model.PlatformWeb, Token: "w"}},
	}}
	g := newTestGateway(devices, map[model.Platform]Sender{model.PlatformAndroid: &fakeSender{}})

	assert.Equal(t, 0, g.Push(context.Background(), 1, Notification{}))
}

func TestGatewayDeactivatesExpired(t *testing.T) {
	devices := &fakeDevices{devices: map[int64][]model.UserDevice{
		1: {
			{ID: 7, UserID: 1, Platform: model.PlatformAndroid, Token: "stale"},
			{ID: 8, UserID: 1, Platform: model.PlatformAndroid, Token: "fresh"},
		},
	}}
	sender := &fakeSender{fail: map[string]error{"stale": ErrExpired}}
	g := newTestGateway(devices, map[model.Platform]Sender{model.PlatformAndroid: sender})

	g.Push(context.Background(), 1, Notification{})

	assert.Equal(t, []int64{7}, devices.deactivated)
}

func TestGatewayListError(t *testing.T) {
	sender := &fakeSender{}
	g := newTestGateway(&fakeDevices{err: errors.New("db down")}, map[model.Platform]Sender{model.PlatformAndroid: sender})

	assert.Equal(t, 0, g.Push(context.Background(), 1, Notification{}))
	assert.Empty(t, sender.calls)
}

type slowSender struct{}

func (slowSender) Send(ctx context.Context, d model.UserDevice, n Notification) error {
	<-ctx.Done()
	return ctx.Err()
}

func TestGatewayPerDeviceTimeout(t *testing.T) {
	devices := &fakeDevices{devices: map[int64][]model.UserDevice{
		1: {{ID: 1, UserID: 1, Platform: model.PlatformAndroid, Token: "slow"}},
	}}
	g := NewGateway(devices, 1, 20*time.Millisecond, slog.Default())
	g.Register(model.PlatformAndroid, slowSender{})

	done := make(chan int)
	go func() { done <- g.Push(context.Background(), 1, Notification{}) }()

	select {
	case n := <-done:
		assert.Equal(t, 1, n)
	case <-time.After(2 * time.Second):
		t.Fatal("push did not honour the per-device timeout")
	}
}
