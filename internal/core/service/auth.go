package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/MiaKoring/BloomBuddyServer/internal/core/domain"
	"github.com/MiaKoring/BloomBuddyServer/internal/telemetry/metric"
)

// AuthServiceConfig holds configuration for AuthService.
type AuthServiceConfig struct {
	// AccountTokenTTL is the lifetime of password-login tokens (default: 24h).
	AccountTokenTTL time.Duration

	// SensorTokenTTL is the lifetime of sensor pairing tokens (default: 720h).
	SensorTokenTTL time.Duration

	// BcryptCost is the password hashing cost (default: bcrypt.DefaultCost).
	BcryptCost int
}

// DefaultAuthServiceConfig returns default configuration.
func DefaultAuthServiceConfig() *AuthServiceConfig {
	return &AuthServiceConfig{
		AccountTokenTTL: 24 * time.Hour,
		SensorTokenTTL:  720 * time.Hour,
		BcryptCost:      bcrypt.DefaultCost,
	}
}

// AuthService exchanges long-lived credentials for bearer tokens.
//
// Accounts authenticate with name and password. Sensors authenticate with
// their id and the id of the owning account, which only the owner knows.
type AuthService struct {
	store   Store
	tokens  *TokenService
	cfg     AuthServiceConfig
	metrics *metric.Registry

	dummyOnce sync.Once
	dummyHash []byte
}

// NewAuthService creates a new AuthService.
func NewAuthService(store Store, tokens *TokenService, cfg *AuthServiceConfig, m *metric.Registry) *AuthService {
	if cfg == nil {
		cfg = DefaultAuthServiceConfig()
	}
	c := *cfg
	defaults := DefaultAuthServiceConfig()
	if c.AccountTokenTTL <= 0 {
		c.AccountTokenTTL = defaults.AccountTokenTTL
	}
	if c.SensorTokenTTL <= 0 {
		c.SensorTokenTTL = defaults.SensorTokenTTL
	}
	if c.BcryptCost == 0 {
		c.BcryptCost = defaults.BcryptCost
	}

	return &AuthService{
		store:   store,
		tokens:  tokens,
		cfg:     c,
		metrics: m,
	}
}

// CreateAccountRequest contains parameters for account creation.
type CreateAccountRequest struct {
	Name     string
	Password string
}

// CreateAccountResponse contains the new account and its first token.
type CreateAccountResponse struct {
	Account *domain.Account
	Token   *domain.IssuedToken
}

// CreateAccount registers a new account and logs it in.
func (s *AuthService) CreateAccount(ctx context.Context, req *CreateAccountRequest) (*CreateAccountResponse, error) {
	// 1. Validate input
	if err := domain.ValidateAccountName(req.Name); err != nil {
		return nil, err
	}
	if err := domain.ValidatePassword(req.Password); err != nil {
		return nil, err
	}

	// 2. Hash outside the transaction
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.cfg.BcryptCost)
	if err != nil {
		return nil, domain.ErrInternalServer.WithCause(err)
	}

	// 3. Persist with the name check in the same transaction
	var account *domain.Account
	err = s.store.Update(ctx, func(tx Tx) error {
		if _, err := tx.AccountByName(req.Name); err == nil {
			return domain.ErrAccountNameTaken
		} else if !errors.Is(err, domain.ErrAccountNotFound) {
			return err
		}

		account = domain.NewAccount(req.Name, string(hash))
		return tx.PutAccount(account)
	})
	if err != nil {
		return nil, err
	}

	// 4. Issue the first token
	token, err := s.tokens.Issue(domain.SubjectAccount, account.ID, account.ID, s.cfg.AccountTokenTTL)
	if err != nil {
		return nil, err
	}

	return &CreateAccountResponse{Account: account, Token: token}, nil
}

// Login verifies an account password and issues an account token.
// Unknown names and wrong passwords are indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, name, password string) (*domain.IssuedToken, error) {
	if name == "" || password == "" {
		s.metrics.RecordAuthFailure("missing_credentials")
		return nil, domain.ErrUnauthorized.WithDetails("name and password are required")
	}

	var account *domain.Account
	err := s.store.View(ctx, func(tx Tx) error {
		a, err := tx.AccountByName(name)
		if err != nil {
			return err
		}
		account = a
		return nil
	})

	switch {
	case errors.Is(err, domain.ErrAccountNotFound):
		// Same bcrypt cost as a real comparison.
		_ = bcrypt.CompareHashAndPassword(s.dummy(), []byte(password))
		s.metrics.RecordAuthFailure("bad_password")
		return nil, domain.ErrUnauthorized
	case err != nil:
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		s.metrics.RecordAuthFailure("bad_password")
		return nil, domain.ErrUnauthorized
	}

	return s.tokens.Issue(domain.SubjectAccount, account.ID, account.ID, s.cfg.AccountTokenTTL)
}

// PairSensor issues a sensor token when accountID owns sensorID.
func (s *AuthService) PairSensor(ctx context.Context, sensorID, accountID string) (*domain.IssuedToken, error) {
	sid, ok1 := domain.NormalizeID(sensorID)
	aid, ok2 := domain.NormalizeID(accountID)
	if !ok1 || !ok2 {
		s.metrics.RecordAuthFailure("bad_pairing")
		return nil, domain.ErrUnauthorized.WithDetails("malformed sensor or account id")
	}

	err := s.store.View(ctx, func(tx Tx) error {
		account, err := tx.Account(aid)
		if err != nil {
			return err
		}
		if !account.OwnsSensor(sid) {
			return domain.ErrNotLinked
		}
		_, err = tx.Sensor(aid, sid)
		return err
	})
	if err != nil {
		if isLookupMiss(err) {
			s.metrics.RecordAuthFailure("bad_pairing")
			return nil, domain.ErrUnauthorized.WithDetails("sensor is not linked to this account")
		}
		return nil, err
	}

	return s.tokens.Issue(domain.SubjectSensor, sid, aid, s.cfg.SensorTokenTTL)
}

func (s *AuthService) dummy() []byte {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = bcrypt.GenerateFromPassword([]byte("bloombuddy-dummy-password"), s.cfg.BcryptCost)
	})
	return s.dummyHash
}

// isLookupMiss reports whether err means a referenced record is absent.
func isLookupMiss(err error) bool {
	return errors.Is(err, domain.ErrAccountNotFound) ||
		errors.Is(err, domain.ErrSensorNotFound) ||
		errors.Is(err, domain.ErrNotLinked)
}
