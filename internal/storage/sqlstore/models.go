package sqlstore

import "github.com/MiaKoring/BloomBuddyServer/internal/core/domain"

type accountRow struct {
	ID           string   `gorm:"primaryKey;size:36"`
	Name         string   `gorm:"uniqueIndex;size:64;not null"`
	PasswordHash string   `gorm:"size:72;not null"`
	SensorIDs    []string `gorm:"serializer:json;not null"`
	CreatedAt    int64    `gorm:"autoCreateTime:false"`
}

func (accountRow) TableName() string { return "accounts" }

type sensorRow struct {
	ID      string `gorm:"primaryKey;size:36"`
	Owner   string `gorm:"index;size:36;not null"`
	Name    string `gorm:"size:64;not null"`
	Model   int    `gorm:"not null;default:0"`
	Latest  *float64
	Battery *int
	Updated *int64
}

func (sensorRow) TableName() string { return "sensors" }

type deviceRow struct {
	ID    string `gorm:"primaryKey;size:36"`
	Owner string `gorm:"index;size:36;not null"`
	IsIOS bool   `gorm:"not null"`
	Token string `gorm:"size:64;not null"`
}

func (deviceRow) TableName() string { return "devices" }

func accountToRow(a *domain.Account) *accountRow {
	ids := a.SensorIDs
	if ids == nil {
		ids = []string{}
	}
	return &accountRow{
		ID:           a.ID,
		Name:         a.Name,
		PasswordHash: a.PasswordHash,
		SensorIDs:    ids,
		CreatedAt:    a.CreatedAt,
	}
}

func (r *accountRow) toDomain() *domain.Account {
	ids := r.SensorIDs
	if ids == nil {
		ids = []string{}
	}
	return &domain.Account{
		ID:           r.ID,
		Name:         r.Name,
		PasswordHash: r.PasswordHash,
		SensorIDs:    ids,
		CreatedAt:    r.CreatedAt,
	}
}

func sensorToRow(s *domain.Sensor) *sensorRow {
	return &sensorRow{
		ID:      s.ID,
		Owner:   s.Owner,
		Name:    s.Name,
		Model:   int(s.Model),
		Latest:  s.Latest,
		Battery: s.Battery,
		Updated: s.Updated,
	}
}

func (r *sensorRow) toDomain() *domain.Sensor {
	return &domain.Sensor{
		ID:      r.ID,
		Owner:   r.Owner,
		Name:    r.Name,
		Model:   domain.SensorModel(r.Model),
		Latest:  r.Latest,
		Battery: r.Battery,
		Updated: r.Updated,
	}
}

func deviceToRow(d *domain.Device) *deviceRow {
	return &deviceRow{ID: d.ID, Owner: d.Owner, IsIOS: d.IsIOS, Token: d.Token}
}

func (r *deviceRow) toDomain() *domain.Device {
	return &domain.Device{ID: r.ID, Owner: r.Owner, IsIOS: r.IsIOS, Token: r.Token}
}
