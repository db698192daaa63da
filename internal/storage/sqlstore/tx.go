package sqlstore

import (
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/MiaKoring/BloomBuddyServer/internal/core/domain"
)

// sqlTx implements service.Tx over one GORM transaction.
type sqlTx struct {
	db   *gorm.DB
	lock bool
}

func (t *sqlTx) accounts() *gorm.DB {
	if t.lock {
		return t.db.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return t.db
}

func (t *sqlTx) Account(id string) (*domain.Account, error) {
	var row accountRow
	if err := t.accounts().First(&row, "id = ?", id).Error; err != nil {
		return nil, miss(err, domain.ErrAccountNotFound)
	}
	return row.toDomain(), nil
}

func (t *sqlTx) AccountByName(name string) (*domain.Account, error) {
	var row accountRow
	if err := t.accounts().First(&row, "name = ?", name).Error; err != nil {
		return nil, miss(err, domain.ErrAccountNotFound)
	}
	return row.toDomain(), nil
}

func (t *sqlTx) PutAccount(a *domain.Account) error {
	var holder accountRow
	err := t.db.Select("id").First(&holder, "name = ?", a.Name).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
	case err != nil:
		return err
	case holder.ID != a.ID:
		return domain.ErrAccountNameTaken
	}

	err = t.db.Save(accountToRow(a)).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		// Lost a race with a concurrent insert of the same name.
		return domain.ErrAccountNameTaken
	}
	return err
}

func (t *sqlTx) Sensor(owner, id string) (*domain.Sensor, error) {
	var row sensorRow
	if err := t.db.First(&row, "owner = ? AND id = ?", owner, id).Error; err != nil {
		return nil, miss(err, domain.ErrSensorNotFound)
	}
	return row.toDomain(), nil
}

func (t *sqlTx) SensorsByOwner(owner string) ([]*domain.Sensor, error) {
	var rows []sensorRow
	if err := t.db.Where("owner = ?", owner).Order("id").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]*domain.Sensor, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toDomain())
	}
	return out, nil
}

func (t *sqlTx) PutSensor(s *domain.Sensor) error {
	return t.db.Save(sensorToRow(s)).Error
}

func (t *sqlTx) DeleteSensor(owner, id string) error {
	return t.db.Where("owner = ? AND id = ?", owner, id).Delete(&sensorRow{}).Error
}

func (t *sqlTx) Device(owner, id string) (*domain.Device, error) {
	var row deviceRow
	if err := t.db.First(&row, "owner = ? AND id = ?", owner, id).Error; err != nil {
		return nil, miss(err, domain.ErrDeviceNotFound)
	}
	return row.toDomain(), nil
}

func (t *sqlTx) DevicesByOwner(owner string) ([]*domain.Device, error) {
	var rows []deviceRow
	if err := t.db.Where("owner = ?", owner).Order("id").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]*domain.Device, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toDomain())
	}
	return out, nil
}

func (t *sqlTx) PutDevice(d *domain.Device) error {
	return t.db.Save(deviceToRow(d)).Error
}

func (t *sqlTx) DeleteDevice(owner, id string) error {
	return t.db.Where("owner = ? AND id = ?", owner, id).Delete(&deviceRow{}).Error
}

// miss maps gorm.ErrRecordNotFound to the given domain error.
func miss(err, notFound error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFound
	}
	return err
}
