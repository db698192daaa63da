package service

import (
	"context"

	"github.com/MiaKoring/BloomBuddyServer/internal/core/domain"
)

// Store runs functions inside storage transactions.
//
// Update must be serialisable with respect to other Update calls touching
// the same records: reads made through tx are re-validated at commit, or
// the implementation retries fn. fn may therefore run more than once and
// must not have side effects outside tx. Any error returned by fn rolls
// the transaction back and is returned unchanged.
type Store interface {
	View(ctx context.Context, fn func(tx Tx) error) error
	Update(ctx context.Context, fn func(tx Tx) error) error
}

// Tx is the record-level view of one transaction.
//
// Lookups return domain.ErrAccountNotFound, domain.ErrSensorNotFound or
// domain.ErrDeviceNotFound on a miss. Returned records are owned by the
// caller and may be mutated before being written back with a Put method.
type Tx interface {
	Account(id string) (*domain.Account, error)
	AccountByName(name string) (*domain.Account, error)

	// PutAccount creates or replaces an account and maintains the name
	// index. It returns domain.ErrAccountNameTaken when another account
	// already holds the name.
	PutAccount(a *domain.Account) error

	Sensor(owner, id string) (*domain.Sensor, error)
	SensorsByOwner(owner string) ([]*domain.Sensor, error)
	PutSensor(s *domain.Sensor) error
	DeleteSensor(owner, id string) error

	Device(owner, id string) (*domain.Device, error)
	DevicesByOwner(owner string) ([]*domain.Device, error)
	PutDevice(d *domain.Device) error
	DeleteDevice(owner, id string) error
}
