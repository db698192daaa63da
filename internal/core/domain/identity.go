package domain

import "time"

// SubjectKind tags which credential type a token was issued for.
type SubjectKind string

const (
	// SubjectAccount tokens come from an account password login.
	SubjectAccount SubjectKind = "account"

	// SubjectSensor tokens come from sensor pairing.
	SubjectSensor SubjectKind = "sensor"
)

// IsValid reports whether k is a known subject kind.
func (k SubjectKind) IsValid() bool {
	return k == SubjectAccount || k == SubjectSensor
}

// Identity is the verified content of a bearer token.
//
// SubjectID names what authenticated (an account or a sensor). AccountID
// always carries the owning account so authorization can filter by account
// regardless of the credential type.
type Identity struct {
	Kind      SubjectKind
	SubjectID string
	AccountID string
	ExpiresAt time.Time
}

// IssuedToken is a signed token returned to a client.
type IssuedToken struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires"`
}
