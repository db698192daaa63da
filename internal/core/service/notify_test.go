package service

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/MiaKoring/BloomBuddyServer/internal/core/domain"
	"github.com/MiaKoring/BloomBuddyServer/internal/telemetry/logger"
)

func deviceToken(c string) string {
	return strings.Repeat(c, 64)
}

func seedDevices(t *testing.T, store *mockStore, owner string, tokens ...string) []*domain.Device {
	t.Helper()
	var out []*domain.Device
	err := store.Update(context.Background(), func(tx Tx) error {
		for _, tok := range tokens {
			d := domain.NewDevice(owner, tok, true)
			if err := tx.PutDevice(d); err != nil {
				return err
			}
			out = append(out, d)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("seed devices: %v", err)
	}
	return out
}

func TestNotifier_FanoutIsolation(t *testing.T) {
	store := newMockStore()
	transport := newMockTransport()
	owner := domain.NewID()
	seedDevices(t, store, owner, deviceToken("a"), deviceToken("b"), deviceToken("c"))
	seedDevices(t, store, domain.NewID(), deviceToken("d"))

	transport.failFor[deviceToken("b")] = errors.New("BadDeviceToken")

	n := NewNotifier(store, transport, nil, nil, nil)
	results := n.NotifyAccount(context.Background(), owner, domain.NewAlertPayload("t", "s"), 0)

	if len(results) != 3 {
		t.Fatalf("results = %d, want 3", len(results))
	}
	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}
	if failed != 1 {
		t.Errorf("failed = %d, want 1", failed)
	}

	delivered := transport.deliveries()
	if len(delivered) != 2 {
		t.Fatalf("delivered = %d, want 2", len(delivered))
	}
	for _, d := range delivered {
		if d.device.Owner != owner {
			t.Error("delivered to a device of another account")
		}
	}
}

func TestNotifier_Expiration(t *testing.T) {
	store := newMockStore()
	transport := newMockTransport()
	owner := domain.NewID()
	devices := seedDevices(t, store, owner, deviceToken("a"))

	n := NewNotifier(store, transport, nil, nil, nil)
	fixed := time.Date(2024, 11, 18, 12, 0, 0, 0, time.UTC)
	n.now = func() time.Time { return fixed }

	n.NotifyAccount(context.Background(), owner, domain.NewAlertPayload("t", "s"), 0)
	n.NotifyDevice(context.Background(), devices[0], domain.NewAlertPayload("t", "s"), time.Hour)

	got := transport.deliveries()
	if len(got) != 2 {
		t.Fatalf("deliveries = %d, want 2", len(got))
	}
	if !got[0].expiration.Equal(fixed.Add(48 * time.Hour)) {
		t.Errorf("default expiration = %v, want +48h", got[0].expiration)
	}
	if !got[1].expiration.Equal(fixed.Add(time.Hour)) {
		t.Errorf("explicit expiration = %v, want +1h", got[1].expiration)
	}
}

func TestNotifier_ConcurrencyLimit(t *testing.T) {
	store := newMockStore()
	transport := newMockTransport()
	transport.delay = 20 * time.Millisecond
	owner := domain.NewID()
	seedDevices(t, store, owner,
		deviceToken("0"), deviceToken("1"), deviceToken("2"), deviceToken("3"),
		deviceToken("4"), deviceToken("5"), deviceToken("6"), deviceToken("7"))

	n := NewNotifier(store, transport, &NotifierConfig{Concurrency: 2}, nil, nil)
	results := n.NotifyAccount(context.Background(), owner, domain.NewAlertPayload("t", "s"), 0)

	if len(results) != 8 {
		t.Fatalf("results = %d, want 8", len(results))
	}
	transport.mu.Lock()
	defer transport.mu.Unlock()
	if transport.maxInFlight > 2 {
		t.Errorf("max in-flight = %d, want <= 2", transport.maxInFlight)
	}
}

func TestNotifier_NoDevicesAndLookupError(t *testing.T) {
	store := newMockStore()
	transport := newMockTransport()
	n := NewNotifier(store, transport, nil, nil, nil)

	if res := n.NotifyAccount(context.Background(), domain.NewID(), domain.NewAlertPayload("t", "s"), 0); res != nil {
		t.Errorf("expected no results, got %v", res)
	}

	store.viewErr = errors.New("disk on fire")
	if res := n.NotifyAccount(context.Background(), domain.NewID(), domain.NewAlertPayload("t", "s"), 0); res != nil {
		t.Errorf("expected no results on lookup error, got %v", res)
	}
}

func TestNotifier_DispatchAndClose(t *testing.T) {
	store := newMockStore()
	transport := newMockTransport()
	transport.delay = 30 * time.Millisecond
	owner := domain.NewID()
	devices := seedDevices(t, store, owner, deviceToken("a"), deviceToken("b"))

	n := NewNotifier(store, transport, nil, nil, nil)
	n.DispatchAccount(context.Background(), owner, domain.NewBackgroundPayload(&domain.SensorData{ID: "x"}))
	n.DispatchDevice(context.Background(), devices[0], domain.NewAlertPayload("t", "s"))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := n.Close(ctx); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	if got := len(transport.deliveries()); got != 3 {
		t.Errorf("deliveries after Close = %d, want 3", got)
	}

	// Dispatch after Close is dropped.
	n.DispatchDevice(context.Background(), devices[1], domain.NewAlertPayload("t", "s"))
	if err := n.Close(ctx); err != nil {
		t.Fatalf("second Close failed: %v", err)
	}
	if got := len(transport.deliveries()); got != 3 {
		t.Errorf("deliveries = %d, dispatch after Close should be dropped", got)
	}
}

func TestNotifier_DispatchTimeout(t *testing.T) {
	store := newMockStore()
	transport := newMockTransport()
	transport.delay = time.Second
	owner := domain.NewID()
	seedDevices(t, store, owner, deviceToken("a"))

	n := NewNotifier(store, transport, &NotifierConfig{Timeout: 20 * time.Millisecond}, nil, nil)
	n.DispatchAccount(context.Background(), owner, domain.NewAlertPayload("t", "s"))

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	if err := n.Close(ctx); err != nil {
		t.Fatalf("fan-out should stop at its own timeout, Close returned %v", err)
	}
	if got := len(transport.deliveries()); got != 0 {
		t.Errorf("timed out delivery should not be recorded, got %d", got)
	}
}

func TestNotifier_TransportPanic(t *testing.T) {
	store := newMockStore()
	transport := newMockTransport()
	owner := domain.NewID()
	seedDevices(t, store, owner, deviceToken("a"), deviceToken("b"))
	transport.panicFor[deviceToken("a")] = true

	n := NewNotifier(store, transport, nil, nil, nil)
	results := n.NotifyAccount(context.Background(), owner, domain.NewAlertPayload("t", "s"), 0)

	if len(results) != 2 {
		t.Fatalf("results = %d, want 2", len(results))
	}
	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
			if !strings.Contains(r.Err.Error(), "transport bug") {
				t.Errorf("err = %v", r.Err)
			}
		}
	}
	if failed != 1 {
		t.Errorf("failed = %d, want 1", failed)
	}
	if got := len(transport.deliveries()); got != 1 {
		t.Errorf("deliveries = %d, want 1", got)
	}

	// A panic inside a background fan-out must not take the process down.
	n.DispatchAccount(context.Background(), owner, domain.NewAlertPayload("t", "s"))
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := n.Close(ctx); err != nil {
		t.Fatal(err)
	}
}

func TestNotifier_DispatchKeepsRequestContext(t *testing.T) {
	var buf bytes.Buffer
	log, err := logger.New(logger.Config{Level: "info", Format: "json", Output: &buf})
	if err != nil {
		t.Fatal(err)
	}

	store := newMockStore()
	transport := newMockTransport()
	owner := domain.NewID()
	seedDevices(t, store, owner, deviceToken("a"))
	transport.failFor[deviceToken("a")] = errors.New("Unregistered")

	n := NewNotifier(store, transport, nil, log, nil)

	reqCtx, cancelReq := context.WithCancel(logger.WithRequestID(context.Background(), "req-fanout"))
	n.DispatchAccount(reqCtx, owner, domain.NewAlertPayload("t", "s"))
	cancelReq()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := n.Close(ctx); err != nil {
		t.Fatal(err)
	}

	out := buf.String()
	if !strings.Contains(out, "notification delivery failed") {
		t.Fatalf("delivery failure not logged: %s", out)
	}
	if !strings.Contains(out, `"request_id":"req-fanout"`) {
		t.Errorf("fan-out log lacks the request id: %s", out)
	}
	if strings.Contains(out, "context canceled") {
		t.Errorf("fan-out inherited the request cancellation: %s", out)
	}
}
