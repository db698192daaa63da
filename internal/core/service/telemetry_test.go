package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/MiaKoring/BloomBuddyServer/internal/core/domain"
)

type recordingHistory struct {
	mu      sync.Mutex
	records []*domain.Sensor
}

func (h *recordingHistory) Record(sensor *domain.Sensor) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.records = append(h.records, sensor)
}

func TestIngestor_Ingest(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	account := f.createAccount(t, "mia")
	sensor := f.createSensor(t, account.ID, "balcony")

	clock := time.Unix(1731931200, 0)
	history := &recordingHistory{}
	ingestor := NewIngestor(f.store, f.dispatch, WithIngestClock(func() time.Time { return clock }), WithHistory(history))

	t.Run("value and battery", func(t *testing.T) {
		res, err := ingestor.Ingest(ctx, account.ID, sensor.ID, "23.5 87")
		if err != nil {
			t.Fatalf("Ingest failed: %v", err)
		}
		if res.Ack() != "1731931200:23.5" {
			t.Errorf("Ack = %q, want 1731931200:23.5", res.Ack())
		}

		s := f.store.sensor(sensor.ID)
		if *s.Latest != 23.5 || *s.Battery != 87 || *s.Updated != 1731931200 {
			t.Errorf("stored sensor = %v/%v/%v", *s.Latest, *s.Battery, *s.Updated)
		}
	})

	t.Run("value only clears battery", func(t *testing.T) {
		clock = clock.Add(time.Minute)
		res, err := ingestor.Ingest(ctx, account.ID, sensor.ID, "23.5")
		if err != nil {
			t.Fatalf("Ingest failed: %v", err)
		}
		if res.Timestamp != clock.Unix() {
			t.Errorf("Timestamp = %d, want %d", res.Timestamp, clock.Unix())
		}

		s := f.store.sensor(sensor.ID)
		if s.Battery != nil {
			t.Errorf("battery = %d, want nil", *s.Battery)
		}
		if *s.Updated != clock.Unix() {
			t.Errorf("Updated = %d, want %d", *s.Updated, clock.Unix())
		}
	})

	t.Run("malformed leaves state untouched", func(t *testing.T) {
		before := f.store.sensor(sensor.ID)
		_, err := ingestor.Ingest(ctx, account.ID, sensor.ID, "abc")
		expectErr(t, err, domain.ErrMalformedPayload)

		after := f.store.sensor(sensor.ID)
		if *after.Latest != *before.Latest || *after.Updated != *before.Updated {
			t.Error("malformed push modified the sensor")
		}
	})

	t.Run("side effects after commit", func(t *testing.T) {
		f.dispatch.mu.Lock()
		defer f.dispatch.mu.Unlock()

		if len(f.dispatch.accounts) != 2 {
			t.Fatalf("dispatches = %d, want 2 (one per committed push)", len(f.dispatch.accounts))
		}
		if f.dispatch.accounts[0] != account.ID {
			t.Errorf("dispatched to %s, want %s", f.dispatch.accounts[0], account.ID)
		}
		p := f.dispatch.payloads[0]
		if p.Kind != domain.PayloadBackground || p.Data == nil {
			t.Fatalf("unexpected payload: %+v", p)
		}
		if p.Data.ID != sensor.ID || p.Data.Name != "balcony" || *p.Data.Sensor != 23.5 || *p.Data.Battery != 87 {
			t.Errorf("unexpected sensor data: %+v", p.Data)
		}

		history.mu.Lock()
		defer history.mu.Unlock()
		if len(history.records) != 2 {
			t.Errorf("history records = %d, want 2", len(history.records))
		}
	})

	t.Run("integral value ack", func(t *testing.T) {
		res, err := ingestor.Ingest(ctx, account.ID, sensor.ID, "23")
		if err != nil {
			t.Fatalf("Ingest failed: %v", err)
		}
		if got := res.Ack(); got != domain.FormatAck(clock.Unix(), 23) {
			t.Errorf("Ack = %q", got)
		}
	})
}

func TestIngestor_UnlinkedSensor(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	account := f.createAccount(t, "mia")
	sensor := f.createSensor(t, account.ID, "balcony")
	ingestor := NewIngestor(f.store, nil)

	if err := f.guard.DeleteSensor(ctx, account.ID, sensor.ID); err != nil {
		t.Fatalf("DeleteSensor failed: %v", err)
	}

	_, err := ingestor.Ingest(ctx, account.ID, sensor.ID, "1.0")
	expectErr(t, err, domain.ErrUnauthorized)

	_, err = ingestor.Ingest(ctx, domain.NewID(), sensor.ID, "1.0")
	expectErr(t, err, domain.ErrUnauthorized)
}
