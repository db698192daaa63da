package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/MiaKoring/BloomBuddyServer/internal/core/domain"
	"github.com/MiaKoring/BloomBuddyServer/internal/telemetry/logger"
	"github.com/MiaKoring/BloomBuddyServer/internal/telemetry/metric"
)

// Transport delivers one payload to one device.
type Transport interface {
	Deliver(ctx context.Context, device *domain.Device, payload domain.Payload, expiration time.Time) error
}

// NotifierConfig holds configuration for Notifier.
type NotifierConfig struct {
	// ExpiresIn is how long the push service keeps an undelivered
	// notification (default: 48h).
	ExpiresIn time.Duration

	// Timeout bounds one background fan-out (default: 30s).
	Timeout time.Duration

	// Concurrency caps parallel deliveries within one fan-out (default: 8).
	Concurrency int
}

// DefaultNotifierConfig returns default configuration.
func DefaultNotifierConfig() *NotifierConfig {
	return &NotifierConfig{
		ExpiresIn:   48 * time.Hour,
		Timeout:     30 * time.Second,
		Concurrency: 8,
	}
}

// DeliveryResult is the outcome of delivering to one device.
type DeliveryResult struct {
	DeviceID string
	Err      error
}

// Notifier fans payloads out to every device of an account.
//
// Deliveries to different devices are independent: one failure never
// prevents or cancels the others. Errors are logged and counted, never
// returned to the caller that triggered the notification.
type Notifier struct {
	store     Store
	transport Transport
	cfg       NotifierConfig
	log       logger.Logger
	metrics   *metric.Registry
	now       func() time.Time

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// NewNotifier creates a new Notifier.
func NewNotifier(store Store, transport Transport, cfg *NotifierConfig, log logger.Logger, m *metric.Registry) *Notifier {
	if cfg == nil {
		cfg = DefaultNotifierConfig()
	}
	c := *cfg
	defaults := DefaultNotifierConfig()
	if c.ExpiresIn <= 0 {
		c.ExpiresIn = defaults.ExpiresIn
	}
	if c.Timeout <= 0 {
		c.Timeout = defaults.Timeout
	}
	if c.Concurrency <= 0 {
		c.Concurrency = defaults.Concurrency
	}
	if log == nil {
		log = logger.Default()
	}

	return &Notifier{
		store:     store,
		transport: transport,
		cfg:       c,
		log:       log.With("component", "notifier"),
		metrics:   m,
		now:       time.Now,
	}
}

// NotifyAccount delivers payload to every device of accountID and waits for
// all deliveries. The device set is read once, before the first delivery.
// A zero expiresIn uses the configured default.
func (n *Notifier) NotifyAccount(ctx context.Context, accountID string, payload domain.Payload, expiresIn time.Duration) []DeliveryResult {
	var devices []*domain.Device
	err := n.store.View(ctx, func(tx Tx) error {
		var err error
		devices, err = tx.DevicesByOwner(accountID)
		return err
	})
	if err != nil {
		n.log.WithContext(ctx).Warn("notification device lookup failed",
			"account_id", accountID,
			"kind", string(payload.Kind),
			"error", err)
		return nil
	}
	if len(devices) == 0 {
		return nil
	}

	expiration := n.expiration(expiresIn)
	results := make([]DeliveryResult, len(devices))

	var g errgroup.Group
	g.SetLimit(n.cfg.Concurrency)
	for i, d := range devices {
		g.Go(func() error {
			results[i] = n.deliver(ctx, d, payload, expiration)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// NotifyDevice delivers payload to a single device.
func (n *Notifier) NotifyDevice(ctx context.Context, device *domain.Device, payload domain.Payload, expiresIn time.Duration) DeliveryResult {
	return n.deliver(ctx, device, payload, n.expiration(expiresIn))
}

// DispatchAccount runs NotifyAccount in the background with its own
// timeout. The fan-out keeps the values of ctx (request id, account id)
// but not its cancellation.
func (n *Notifier) DispatchAccount(ctx context.Context, accountID string, payload domain.Payload) {
	n.dispatch(ctx, func(ctx context.Context) {
		n.NotifyAccount(ctx, accountID, payload, 0)
	})
}

// DispatchDevice runs NotifyDevice in the background.
func (n *Notifier) DispatchDevice(ctx context.Context, device *domain.Device, payload domain.Payload) {
	n.dispatch(ctx, func(ctx context.Context) {
		n.NotifyDevice(ctx, device, payload, 0)
	})
}

// Close stops accepting background fan-outs and waits for running ones
// until ctx is done.
func (n *Notifier) Close(ctx context.Context) error {
	n.mu.Lock()
	n.closed = true
	n.mu.Unlock()

	done := make(chan struct{})
	go func() {
		n.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (n *Notifier) dispatch(parent context.Context, fn func(ctx context.Context)) {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		n.log.Warn("notifier closed, dropping notification")
		return
	}
	n.wg.Add(1)
	n.mu.Unlock()

	n.metrics.IncFanoutsActive()
	go func() {
		defer n.wg.Done()
		defer n.metrics.DecFanoutsActive()

		ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), n.cfg.Timeout)
		defer cancel()
		fn(ctx)
	}()
}

func (n *Notifier) deliver(ctx context.Context, device *domain.Device, payload domain.Payload, expiration time.Time) DeliveryResult {
	err := n.transportDeliver(ctx, device, payload, expiration)
	if err != nil {
		n.metrics.RecordNotification(string(payload.Kind), "failed")
		n.log.WithContext(ctx).Warn("notification delivery failed",
			"device_id", device.ID,
			"account_id", device.Owner,
			"kind", string(payload.Kind),
			"error", err)
	} else {
		n.metrics.RecordNotification(string(payload.Kind), "ok")
	}
	return DeliveryResult{DeviceID: device.ID, Err: err}
}

// transportDeliver calls the transport, turning a panic into the device's
// delivery error.
func (n *Notifier) transportDeliver(ctx context.Context, device *domain.Device, payload domain.Payload, expiration time.Time) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("transport panic: %v", r)
		}
	}()
	return n.transport.Deliver(ctx, device, payload, expiration)
}

func (n *Notifier) expiration(expiresIn time.Duration) time.Time {
	if expiresIn <= 0 {
		expiresIn = n.cfg.ExpiresIn
	}
	return n.now().Add(expiresIn)
}
