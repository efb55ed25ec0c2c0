package channel

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/Gabo8286/luna-engine/internal/bus"
	"github.com/Gabo8286/luna-engine/internal/config"
)

func TestBaseChannelName(t *testing.T) {
	b := bus.NewMessageBus(10)
	ch := NewBaseChannel("test", b, nil)
	if ch.Name() != "test" {
		t.Errorf("Name = %q, want test", ch.Name())
	}
}

func TestBaseChannelIsAllowedNoFilter(t *testing.T) {
	b := bus.NewMessageBus(10)
	ch := NewBaseChannel("test", b, nil)
	if !ch.IsAllowed("anyone") {
		t.Error("should allow anyone when allowFrom is empty")
	}
}

func TestBaseChannelIsAllowedWithFilter(t *testing.T) {
	b := bus.NewMessageBus(10)
	ch := NewBaseChannel("test", b, []string{"user1", "user2"})

	if !ch.IsAllowed("user1") {
		t.Error("should allow user1")
	}
	if !ch.IsAllowed("user2") {
		t.Error("should allow user2")
	}
	if ch.IsAllowed("user3") {
		t.Error("should reject user3")
	}
}

func TestNewManagerEmpty(t *testing.T) {
	b := bus.NewMessageBus(10)
	m, err := NewManager(config.ChannelsConfig{}, b)
	if err != nil {
		t.Fatalf("NewManager error: %v", err)
	}
	if len(m.EnabledChannels()) != 0 {
		t.Errorf("expected 0 enabled channels, got %d", len(m.EnabledChannels()))
	}
}

func TestManagerStartAllEmpty(t *testing.T) {
	b := bus.NewMessageBus(10)
	m, _ := NewManager(config.ChannelsConfig{}, b)

	if err := m.StartAll(context.Background()); err != nil {
		t.Errorf("StartAll error: %v", err)
	}
	if err := m.StopAll(); err != nil {
		t.Errorf("StopAll error: %v", err)
	}
}

// mockChannel implements Channel for testing
type mockChannel struct {
	name    string
	started bool
	stopped bool

	startErr error
	stopErr  error

	mu   sync.Mutex
	sent []bus.Notification
}

func (m *mockChannel) Name() string { return m.name }

func (m *mockChannel) Start(ctx context.Context) error {
	m.started = true
	return m.startErr
}

func (m *mockChannel) Stop() error {
	m.stopped = true
	return m.stopErr
}

func (m *mockChannel) Send(n bus.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, n)
	return nil
}

func (m *mockChannel) sentNotifications() []bus.Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]bus.Notification(nil), m.sent...)
}

func TestManagerWithMockChannel(t *testing.T) {
	b := bus.NewMessageBus(10)
	mock := &mockChannel{name: "mock"}

	m := &Manager{
		channels: map[string]Channel{"mock": mock},
		bus:      b,
	}

	if err := m.StartAll(context.Background()); err != nil {
		t.Errorf("StartAll error: %v", err)
	}
	if !mock.started {
		t.Error("mock channel should be started")
	}

	channels := m.EnabledChannels()
	if len(channels) != 1 || channels[0] != "mock" {
		t.Errorf("EnabledChannels = %v, want [mock]", channels)
	}

	if err := m.StopAll(); err != nil {
		t.Errorf("StopAll error: %v", err)
	}
	if !mock.stopped {
		t.Error("mock channel should be stopped")
	}
}

func TestManagerStartAllError(t *testing.T) {
	b := bus.NewMessageBus(10)
	mock := &mockChannel{name: "mock", startErr: fmt.Errorf("start failed")}

	m := &Manager{
		channels: map[string]Channel{"mock": mock},
		bus:      b,
	}

	if err := m.StartAll(context.Background()); err == nil {
		t.Error("expected error from StartAll")
	}
}

func TestManagerStopAllError(t *testing.T) {
	b := bus.NewMessageBus(10)
	mock := &mockChannel{name: "mock", stopErr: fmt.Errorf("stop failed")}

	m := &Manager{
		channels: map[string]Channel{"mock": mock},
		bus:      b,
	}

	// Errors are logged, not returned.
	if err := m.StopAll(); err != nil {
		t.Errorf("StopAll should not return error: %v", err)
	}
}

func TestManagerRegisterRoutesNotifications(t *testing.T) {
	b := bus.NewMessageBus(10)
	mock := &mockChannel{name: "mock"}

	m := &Manager{
		channels: make(map[string]Channel),
		bus:      b,
	}
	m.register(mock)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go b.DispatchOutbound(ctx)

	b.Outbound <- bus.Notification{
		Channel: "mock",
		Kind:    bus.KindInsight,
		Title:   "take a break",
	}

	deadline := time.After(time.Second)
	for len(mock.sentNotifications()) == 0 {
		select {
		case <-deadline:
			t.Fatal("notification never reached the mock channel")
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}

	got := mock.sentNotifications()
	if got[0].Title != "take a break" {
		t.Errorf("title = %q, want 'take a break'", got[0].Title)
	}
}
