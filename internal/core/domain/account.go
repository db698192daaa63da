package domain

import (
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Account constraints.
const (
	// MaxSensorsPerAccount caps the owned-sensor list.
	MaxSensorsPerAccount = 5

	MaxAccountNameLength = 64
	MaxPasswordLength    = 72 // bcrypt ignores anything beyond 72 bytes
)

// Account is an end-user identity owning sensors and notification devices.
type Account struct {
	// ID is the unique account identifier (UUID, lowercase).
	ID string `json:"id"`

	// Name is the unique, case-sensitive display name used for login.
	Name string `json:"name"`

	// PasswordHash is the bcrypt hash of the account password.
	PasswordHash string `json:"password_hash"`

	// SensorIDs lists owned sensors in creation order.
	SensorIDs []string `json:"sensor_ids"`

	// CreatedAt is the creation timestamp (Unix seconds).
	CreatedAt int64 `json:"created_at"`
}

// NewAccount creates an account with a generated id.
func NewAccount(name, passwordHash string) *Account {
	return &Account{
		ID:           NewID(),
		Name:         name,
		PasswordHash: passwordHash,
		SensorIDs:    []string{},
		CreatedAt:    time.Now().Unix(),
	}
}

// OwnsSensor reports whether id is in the owned-sensor list.
func (a *Account) OwnsSensor(id string) bool {
	return slices.Contains(a.SensorIDs, id)
}

// CanAddSensor reports whether another sensor fits under the quota.
func (a *Account) CanAddSensor() bool {
	return len(a.SensorIDs) < MaxSensorsPerAccount
}

// LinkSensor appends a sensor id to the owned list.
func (a *Account) LinkSensor(id string) {
	if !a.OwnsSensor(id) {
		a.SensorIDs = append(a.SensorIDs, id)
	}
}

// UnlinkSensor removes a sensor id from the owned list.
// It returns false if the id was not linked.
func (a *Account) UnlinkSensor(id string) bool {
	idx := slices.Index(a.SensorIDs, id)
	if idx < 0 {
		return false
	}
	a.SensorIDs = slices.Delete(a.SensorIDs, idx, idx+1)
	return true
}

// Clone creates a deep copy of the account.
func (a *Account) Clone() *Account {
	clone := *a
	clone.SensorIDs = slices.Clone(a.SensorIDs)
	if clone.SensorIDs == nil {
		clone.SensorIDs = []string{}
	}
	return &clone
}

// ValidateAccountName checks the login name constraints.
func ValidateAccountName(name string) error {
	if strings.TrimSpace(name) == "" {
		return ErrAccountValidation.WithDetails("name is required")
	}
	if len(name) > MaxAccountNameLength {
		return ErrAccountValidation.WithDetails("name exceeds 64 characters")
	}
	if strings.Contains(name, ":") {
		return ErrAccountValidation.WithDetails("name must not contain ':'")
	}
	return nil
}

// ValidatePassword checks the password constraints.
func ValidatePassword(password string) error {
	if password == "" {
		return ErrAccountValidation.WithDetails("password is required")
	}
	if len(password) > MaxPasswordLength {
		return ErrAccountValidation.WithDetails("password exceeds 72 bytes")
	}
	return nil
}

// NewID generates a new random entity identifier.
func NewID() string {
	return uuid.NewString()
}

// NormalizeID parses an entity identifier and returns its canonical
// lowercase form. It returns ok=false for anything that is not a UUID.
func NormalizeID(id string) (string, bool) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return "", false
	}
	return parsed.String(), true
}
