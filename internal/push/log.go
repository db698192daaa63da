package push

import (
	"context"
	"time"

	"github.com/MiaKoring/BloomBuddyServer/internal/core/domain"
	"github.com/MiaKoring/BloomBuddyServer/internal/core/service"
	"github.com/MiaKoring/BloomBuddyServer/internal/telemetry/logger"
)

// LogTransport logs each delivery instead of sending it.
type LogTransport struct {
	log logger.Logger
}

var _ service.Transport = (*LogTransport)(nil)

// NewLogTransport creates a LogTransport.
func NewLogTransport(log logger.Logger) *LogTransport {
	if log == nil {
		log = logger.Default()
	}
	return &LogTransport{log: log.With("component", "push.log")}
}

// Deliver implements service.Transport.
func (t *LogTransport) Deliver(ctx context.Context, device *domain.Device, payload domain.Payload, expiration time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	args := []any{
		"device_id", device.ID,
		"account_id", device.Owner,
		"token", domain.MaskDeviceToken(device.Token),
		"kind", string(payload.Kind),
		"expires_at", expiration.UTC().Format(time.RFC3339),
	}
	switch {
	case payload.Alert != nil:
		args = append(args, "title", payload.Alert.Title, "subtitle", payload.Alert.Subtitle)
	case payload.Data != nil:
		args = append(args, "sensor_id", payload.Data.ID)
		if payload.Data.Sensor != nil {
			args = append(args, "value", *payload.Data.Sensor)
		}
	}
	t.log.Info("notification", args...)
	return nil
}
