package service

import (
	"context"
	"errors"

	"github.com/MiaKoring/BloomBuddyServer/internal/core/domain"
	"github.com/MiaKoring/BloomBuddyServer/internal/telemetry/metric"
)

// Alert sent to a device right after it is registered.
const (
	deviceRegisteredTitle    = "Device registered"
	deviceRegisteredSubtitle = "Notifications are enabled for this device"
)

// DeviceDispatcher delivers a payload to a single device in the background.
type DeviceDispatcher interface {
	DispatchDevice(ctx context.Context, device *domain.Device, payload domain.Payload)
}

// Guard resolves bearer tokens to accounts and enforces sensor ownership,
// the per-account sensor quota, per-account name uniqueness and the
// device registry.
type Guard struct {
	store    Store
	tokens   *TokenService
	notifier DeviceDispatcher
	metrics  *metric.Registry
}

// NewGuard creates a new Guard. notifier may be nil.
func NewGuard(store Store, tokens *TokenService, notifier DeviceDispatcher, m *metric.Registry) *Guard {
	return &Guard{
		store:    store,
		tokens:   tokens,
		notifier: notifier,
		metrics:  m,
	}
}

// ============================================================================
// Token resolution
// ============================================================================

// Authenticate verifies token and requires it to be of the given kind.
//
// Verification failures keep their specific code (expired, invalid
// signature, malformed); all of them map to 401.
func (g *Guard) Authenticate(ctx context.Context, token string, kind domain.SubjectKind) (*domain.Identity, error) {
	id, err := g.tokens.Verify(token)
	if err != nil {
		g.metrics.RecordAuthFailure(failureReason(err))
		return nil, err
	}
	if id.Kind != kind {
		g.metrics.RecordAuthFailure("wrong_kind")
		return nil, domain.ErrWrongSubjectKind.WithDetails("expected " + string(kind) + " token")
	}

	accountID, ok := domain.NormalizeID(id.AccountID)
	if !ok {
		g.metrics.RecordAuthFailure("malformed")
		return nil, domain.ErrUnauthorized.WithDetails("malformed account id")
	}
	id.AccountID = accountID

	subjectID, ok := domain.NormalizeID(id.SubjectID)
	if !ok {
		g.metrics.RecordAuthFailure("malformed")
		return nil, domain.ErrUnauthorized.WithDetails("malformed subject id")
	}
	id.SubjectID = subjectID

	return id, nil
}

// ResolveAccount returns the account id of a valid account token.
func (g *Guard) ResolveAccount(ctx context.Context, token string) (string, error) {
	id, err := g.Authenticate(ctx, token, domain.SubjectAccount)
	if err != nil {
		return "", err
	}
	return id.AccountID, nil
}

// ResolveSensor returns the sensor sensorID if accountID owns it.
func (g *Guard) ResolveSensor(ctx context.Context, accountID, sensorID string) (*domain.Sensor, error) {
	var sensor *domain.Sensor
	err := g.store.View(ctx, func(tx Tx) error {
		_, s, err := ownedSensor(tx, accountID, sensorID)
		sensor = s
		return err
	})
	if err != nil {
		return nil, err
	}
	return sensor, nil
}

// LatestReading returns the sensor with its latest reading, or
// domain.ErrNoReading if it has never pushed telemetry.
func (g *Guard) LatestReading(ctx context.Context, accountID, sensorID string) (*domain.Sensor, error) {
	sensor, err := g.ResolveSensor(ctx, accountID, sensorID)
	if err != nil {
		return nil, err
	}
	if !sensor.HasReading() {
		return nil, domain.ErrNoReading
	}
	return sensor, nil
}

// ============================================================================
// Sensor operations
// ============================================================================

// CreateSensorRequest contains parameters for sensor creation.
type CreateSensorRequest struct {
	AccountID string
	Name      string
	Model     domain.SensorModel
}

// CreateSensor adds a sensor to the account.
//
// The quota is checked before anything is written, and the quota check,
// the name check and both writes share one transaction.
func (g *Guard) CreateSensor(ctx context.Context, req *CreateSensorRequest) (*domain.Sensor, error) {
	if err := domain.ValidateSensorName(req.Name); err != nil {
		return nil, err
	}
	if !req.Model.IsValid() {
		return nil, domain.ErrSensorValidation.WithDetails("unknown model")
	}

	var sensor *domain.Sensor
	err := g.store.Update(ctx, func(tx Tx) error {
		account, err := tx.Account(req.AccountID)
		if err != nil {
			return err
		}

		if !account.CanAddSensor() {
			return domain.ErrQuotaExceeded.WithDetails("an account can own at most 5 sensors")
		}
		if err := checkNameFree(tx, account.ID, req.Name, ""); err != nil {
			return err
		}

		sensor = domain.NewSensor(account.ID, req.Name, req.Model)
		if err := tx.PutSensor(sensor); err != nil {
			return err
		}
		account.LinkSensor(sensor.ID)
		return tx.PutAccount(account)
	})
	if err != nil {
		return nil, err
	}
	return sensor, nil
}

// ListSensors returns the account's sensors in creation order.
func (g *Guard) ListSensors(ctx context.Context, accountID string) ([]*domain.Sensor, error) {
	var sensors []*domain.Sensor
	err := g.store.View(ctx, func(tx Tx) error {
		account, err := tx.Account(accountID)
		if err != nil {
			return err
		}

		sensors = make([]*domain.Sensor, 0, len(account.SensorIDs))
		for _, id := range account.SensorIDs {
			s, err := tx.Sensor(account.ID, id)
			if err != nil {
				if errors.Is(err, domain.ErrSensorNotFound) {
					return domain.ErrInternalInvariant.WithDetails("linked sensor " + id + " has no record")
				}
				return err
			}
			sensors = append(sensors, s)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return sensors, nil
}

// RenameSensor changes a sensor name, keeping names unique per account.
func (g *Guard) RenameSensor(ctx context.Context, accountID, sensorID, name string) (*domain.Sensor, error) {
	if err := domain.ValidateSensorName(name); err != nil {
		return nil, err
	}

	var sensor *domain.Sensor
	err := g.store.Update(ctx, func(tx Tx) error {
		_, s, err := ownedSensor(tx, accountID, sensorID)
		if err != nil {
			return err
		}
		if s.Name == name {
			sensor = s
			return nil
		}
		if err := checkNameFree(tx, s.Owner, name, s.ID); err != nil {
			return err
		}

		s.Name = name
		sensor = s
		return tx.PutSensor(s)
	})
	if err != nil {
		return nil, err
	}
	return sensor, nil
}

// ChangeModel sets the sensor model and clears its battery level.
func (g *Guard) ChangeModel(ctx context.Context, accountID, sensorID string, model domain.SensorModel) (*domain.Sensor, error) {
	if !model.IsValid() {
		return nil, domain.ErrSensorValidation.WithDetails("unknown model")
	}

	var sensor *domain.Sensor
	err := g.store.Update(ctx, func(tx Tx) error {
		_, s, err := ownedSensor(tx, accountID, sensorID)
		if err != nil {
			return err
		}
		s.SetModel(model)
		sensor = s
		return tx.PutSensor(s)
	})
	if err != nil {
		return nil, err
	}
	return sensor, nil
}

// DeleteSensor removes the sensor record and its entry in the owner's list
// in one transaction.
func (g *Guard) DeleteSensor(ctx context.Context, accountID, sensorID string) error {
	return g.store.Update(ctx, func(tx Tx) error {
		account, s, err := ownedSensor(tx, accountID, sensorID)
		switch {
		case errors.Is(err, domain.ErrSensorNotFound):
			// Linked but without a record: drop the dangling list entry.
		case err != nil:
			return err
		default:
			if err := tx.DeleteSensor(s.Owner, s.ID); err != nil {
				return err
			}
		}

		id, _ := domain.NormalizeID(sensorID)
		account.UnlinkSensor(id)
		return tx.PutAccount(account)
	})
}

// ============================================================================
// Device operations
// ============================================================================

// RegisterDevice adds a push target to the account and sends it a
// confirmation alert in the background.
func (g *Guard) RegisterDevice(ctx context.Context, accountID, token string, isIOS bool) (*domain.Device, error) {
	normalized, err := domain.NormalizeDeviceToken(token)
	if err != nil {
		return nil, err
	}

	var device *domain.Device
	err = g.store.Update(ctx, func(tx Tx) error {
		account, err := tx.Account(accountID)
		if err != nil {
			return err
		}

		devices, err := tx.DevicesByOwner(account.ID)
		if err != nil {
			return err
		}
		for _, d := range devices {
			if d.Token == normalized {
				return domain.ErrDuplicateDevice
			}
		}

		device = domain.NewDevice(account.ID, normalized, isIOS)
		return tx.PutDevice(device)
	})
	if err != nil {
		return nil, err
	}

	if g.notifier != nil {
		g.notifier.DispatchDevice(ctx, device, domain.NewAlertPayload(deviceRegisteredTitle, deviceRegisteredSubtitle))
	}
	return device, nil
}

// ListDevices returns the account's registered devices.
func (g *Guard) ListDevices(ctx context.Context, accountID string) ([]*domain.Device, error) {
	var devices []*domain.Device
	err := g.store.View(ctx, func(tx Tx) error {
		if _, err := tx.Account(accountID); err != nil {
			return err
		}
		var err error
		devices, err = tx.DevicesByOwner(accountID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return devices, nil
}

// RemoveDevice deletes a device owned by the account.
func (g *Guard) RemoveDevice(ctx context.Context, accountID, deviceID string) error {
	id, ok := domain.NormalizeID(deviceID)
	if !ok {
		return domain.ErrDeviceNotFound
	}

	return g.store.Update(ctx, func(tx Tx) error {
		if _, err := tx.Device(accountID, id); err != nil {
			return err
		}
		return tx.DeleteDevice(accountID, id)
	})
}

// ============================================================================
// Helpers
// ============================================================================

// ownedSensor loads the account and one of its sensors.
//
// It returns domain.ErrNotLinked when the id is not in the account's list
// and domain.ErrSensorNotFound (with the account) when the list entry has
// no record.
func ownedSensor(tx Tx, accountID, sensorID string) (*domain.Account, *domain.Sensor, error) {
	account, err := tx.Account(accountID)
	if err != nil {
		return nil, nil, err
	}

	id, ok := domain.NormalizeID(sensorID)
	if !ok || !account.OwnsSensor(id) {
		return account, nil, domain.ErrNotLinked
	}

	s, err := tx.Sensor(account.ID, id)
	if err != nil {
		return account, nil, err
	}
	return account, s, nil
}

// checkNameFree fails with domain.ErrDuplicateName if another sensor of
// owner (other than exceptID) is called name. Comparison is case-sensitive.
func checkNameFree(tx Tx, owner, name, exceptID string) error {
	sensors, err := tx.SensorsByOwner(owner)
	if err != nil {
		return err
	}
	for _, s := range sensors {
		if s.ID != exceptID && s.Name == name {
			return domain.ErrDuplicateName.WithDetails("a sensor named " + name + " already exists")
		}
	}
	return nil
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrTokenExpired):
		return "expired"
	case errors.Is(err, domain.ErrTokenInvalidSignature):
		return "bad_signature"
	default:
		return "malformed"
	}
}
