package service

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/MiaKoring/BloomBuddyServer/internal/core/domain"
	"github.com/MiaKoring/BloomBuddyServer/internal/telemetry/metric"
)

// MinSigningKeyLength is the minimum HMAC key size in bytes.
const MinSigningKeyLength = 32

// tokenClaims is the JWT body. "name" carries the owning account id for
// both subject kinds; "sub" is the authenticated subject itself.
type tokenClaims struct {
	Name string             `json:"name"`
	Kind domain.SubjectKind `json:"knd"`
	jwt.RegisteredClaims
}

// TokenService issues and verifies HS256 bearer tokens.
type TokenService struct {
	key     []byte
	now     func() time.Time
	metrics *metric.Registry
}

// TokenOption configures a TokenService.
type TokenOption func(*TokenService)

// WithTimeFunc replaces the wall clock used for issuing and expiry checks.
func WithTimeFunc(now func() time.Time) TokenOption {
	return func(s *TokenService) {
		s.now = now
	}
}

// WithTokenMetrics records issued tokens in m.
func WithTokenMetrics(m *metric.Registry) TokenOption {
	return func(s *TokenService) {
		s.metrics = m
	}
}

// NewTokenService creates a TokenService signing with key.
func NewTokenService(key []byte, opts ...TokenOption) (*TokenService, error) {
	if len(key) < MinSigningKeyLength {
		return nil, domain.ErrInvalidArgument.WithDetails("signing key must be at least 32 bytes")
	}

	s := &TokenService{
		key: append([]byte(nil), key...),
		now: time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// MinTokenTTL is the shortest lifetime Issue accepts.
const MinTokenTTL = time.Second

// Issue signs a token for subjectID owned by accountID, valid for ttl.
// JWT times have whole-second resolution, so ttl must be at least
// MinTokenTTL.
func (s *TokenService) Issue(kind domain.SubjectKind, subjectID, accountID string, ttl time.Duration) (*domain.IssuedToken, error) {
	if !kind.IsValid() {
		return nil, domain.ErrInvalidArgument.WithDetails("unknown subject kind " + string(kind))
	}
	if subjectID == "" || accountID == "" {
		return nil, domain.ErrMissingArgument.WithDetails("subject and account are required")
	}
	if ttl < MinTokenTTL {
		return nil, domain.ErrInvalidArgument.WithDetails("token ttl must be at least one second")
	}

	now := s.now()
	claims := tokenClaims{
		Name: accountID,
		Kind: kind,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subjectID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.key)
	if err != nil {
		return nil, domain.ErrInternalServer.WithCause(err)
	}

	s.metrics.RecordTokenIssued(string(kind))

	return &domain.IssuedToken{
		Token:     signed,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// Verify checks the signature and expiry of token and returns its identity.
//
// A token is valid only while its expiry is strictly after the current
// time. Only HS256 is accepted regardless of the token header.
func (s *TokenService) Verify(token string) (*domain.Identity, error) {
	if token == "" {
		return nil, domain.ErrTokenMalformed.WithDetails("empty token")
	}

	var claims tokenClaims
	_, err := jwt.ParseWithClaims(token, &claims,
		func(*jwt.Token) (any, error) { return s.key, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, mapJWTError(err)
	}

	if !claims.Kind.IsValid() || claims.Subject == "" || claims.Name == "" {
		return nil, domain.ErrTokenMalformed.WithDetails("missing claims")
	}

	return &domain.Identity{
		Kind:      claims.Kind,
		SubjectID: claims.Subject,
		AccountID: claims.Name,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

func mapJWTError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return domain.ErrTokenExpired.WithCause(err)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return domain.ErrTokenInvalidSignature.WithCause(err)
	default:
		return domain.ErrTokenMalformed.WithCause(err)
	}
}
