package domain

import "strings"

// DeviceTokenLength is the exact length of a push token in hex characters.
const DeviceTokenLength = 64

// Device is a push-notification target tied to an account.
type Device struct {
	// ID is the unique device identifier (UUID, lowercase).
	ID string `json:"id"`

	// Owner is the owning account id.
	Owner string `json:"owner"`

	// IsIOS marks devices reachable through APNs.
	IsIOS bool `json:"is_ios"`

	// Token is the push token, stored lowercase.
	Token string `json:"token"`
}

// NewDevice creates a device with a generated id. The token must already
// be normalized.
func NewDevice(owner, token string, isIOS bool) *Device {
	return &Device{
		ID:    NewID(),
		Owner: owner,
		IsIOS: isIOS,
		Token: token,
	}
}

// ValidateDeviceToken checks that token is exactly 64 hexadecimal characters.
// Both upper and lower case hex digits are accepted.
func ValidateDeviceToken(token string) bool {
	if len(token) != DeviceTokenLength {
		return false
	}
	for i := 0; i < len(token); i++ {
		c := token[i]
		switch {
		case c >= '0' && c <= '9':
		case c >= 'a' && c <= 'f':
		case c >= 'A' && c <= 'F':
		default:
			return false
		}
	}
	return true
}

// NormalizeDeviceToken validates token and returns its lowercase form.
func NormalizeDeviceToken(token string) (string, error) {
	if !ValidateDeviceToken(token) {
		return "", ErrInvalidDeviceToken.WithDetails("expected 64 hexadecimal characters")
	}
	return strings.ToLower(token), nil
}

// MaskDeviceToken shortens a push token for logging.
func MaskDeviceToken(token string) string {
	if len(token) < 12 {
		return "***REDACTED***"
	}
	return token[:6] + "..." + token[len(token)-4:]
}
