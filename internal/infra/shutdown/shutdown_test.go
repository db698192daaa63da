package shutdown

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestHandler_ReverseOrder(t *testing.T) {
	h := NewHandler(time.Second, quietLogger())

	var (
		mu    sync.Mutex
		order []string
	)
	record := func(name string) func(context.Context) error {
		return func(context.Context) error {
			mu.Lock()
			order = append(order, name)
			mu.Unlock()
			return nil
		}
	}
	h.OnShutdown("store", record("store"))
	h.OnShutdown("notifier", record("notifier"))
	h.OnShutdown("http", record("http"))

	h.Trigger()
	if err := h.Wait(context.Background()); err != nil {
		t.Fatalf("Wait failed: %v", err)
	}

	want := []string{"http", "notifier", "store"}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("order = %v, want %v", order, want)
			break
		}
	}

	select {
	case <-h.Done():
	default:
		t.Error("Done should be closed after Wait")
	}
}

func TestHandler_JoinsErrors(t *testing.T) {
	h := NewHandler(time.Second, quietLogger())
	errA := errors.New("a failed")
	errB := errors.New("b failed")
	ran := false

	h.OnShutdown("a", func(context.Context) error { return errA })
	h.OnShutdown("ok", func(context.Context) error { ran = true; return nil })
	h.OnShutdown("b", func(context.Context) error { return errB })

	h.Trigger()
	err := h.Wait(context.Background())
	if !errors.Is(err, errA) || !errors.Is(err, errB) {
		t.Errorf("err = %v, want both hook errors", err)
	}
	if !ran {
		t.Error("a failing hook stopped later hooks")
	}
}

func TestHandler_ContextEnds(t *testing.T) {
	h := NewHandler(time.Second, quietLogger())
	called := false
	h.OnShutdown("x", func(context.Context) error { called = true; return nil })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := h.Wait(ctx); err != nil {
		t.Fatal(err)
	}
	if !called {
		t.Error("hook not called")
	}
}

func TestHandler_HookDeadline(t *testing.T) {
	h := NewHandler(20*time.Millisecond, quietLogger())
	h.OnShutdown("slow", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})

	h.Trigger()
	h.Trigger()
	if err := h.Wait(context.Background()); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v, want deadline exceeded", err)
	}
}
