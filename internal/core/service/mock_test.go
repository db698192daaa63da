package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/MiaKoring/BloomBuddyServer/internal/core/domain"
)

var testSigningKey = []byte("0123456789abcdef0123456789abcdef")

// mockStore is an in-memory Store. Update holds a global lock and works on
// copies, so transactions are serialisable and roll back on error.
type mockStore struct {
	mu       sync.Mutex
	accounts map[string]*domain.Account
	sensors  map[string]*domain.Sensor
	devices  map[string]*domain.Device

	viewErr error
}

func newMockStore() *mockStore {
	return &mockStore{
		accounts: make(map[string]*domain.Account),
		sensors:  make(map[string]*domain.Sensor),
		devices:  make(map[string]*domain.Device),
	}
}

func (m *mockStore) View(ctx context.Context, fn func(tx Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.viewErr != nil {
		return m.viewErr
	}
	return fn(m.snapshot())
}

func (m *mockStore) Update(ctx context.Context, fn func(tx Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	tx := m.snapshot()
	if err := fn(tx); err != nil {
		return err
	}
	m.accounts, m.sensors, m.devices = tx.accounts, tx.sensors, tx.devices
	return nil
}

func (m *mockStore) snapshot() *mockTx {
	tx := &mockTx{
		accounts: make(map[string]*domain.Account, len(m.accounts)),
		sensors:  make(map[string]*domain.Sensor, len(m.sensors)),
		devices:  make(map[string]*domain.Device, len(m.devices)),
	}
	for k, v := range m.accounts {
		tx.accounts[k] = v.Clone()
	}
	for k, v := range m.sensors {
		tx.sensors[k] = v.Clone()
	}
	for k, v := range m.devices {
		d := *v
		tx.devices[k] = &d
	}
	return tx
}

// sensor returns the committed sensor record.
func (m *mockStore) sensor(id string) *domain.Sensor {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sensors[id]; ok {
		return s.Clone()
	}
	return nil
}

func (m *mockStore) account(id string) *domain.Account {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a, ok := m.accounts[id]; ok {
		return a.Clone()
	}
	return nil
}

type mockTx struct {
	accounts map[string]*domain.Account
	sensors  map[string]*domain.Sensor
	devices  map[string]*domain.Device
}

func (t *mockTx) Account(id string) (*domain.Account, error) {
	a, ok := t.accounts[id]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	return a.Clone(), nil
}

func (t *mockTx) AccountByName(name string) (*domain.Account, error) {
	for _, a := range t.accounts {
		if a.Name == name {
			return a.Clone(), nil
		}
	}
	return nil, domain.ErrAccountNotFound
}

func (t *mockTx) PutAccount(a *domain.Account) error {
	for _, other := range t.accounts {
		if other.Name == a.Name && other.ID != a.ID {
			return domain.ErrAccountNameTaken
		}
	}
	t.accounts[a.ID] = a.Clone()
	return nil
}

func (t *mockTx) Sensor(owner, id string) (*domain.Sensor, error) {
	s, ok := t.sensors[id]
	if !ok || s.Owner != owner {
		return nil, domain.ErrSensorNotFound
	}
	return s.Clone(), nil
}

func (t *mockTx) SensorsByOwner(owner string) ([]*domain.Sensor, error) {
	var out []*domain.Sensor
	for _, s := range t.sensors {
		if s.Owner == owner {
			out = append(out, s.Clone())
		}
	}
	return out, nil
}

func (t *mockTx) PutSensor(s *domain.Sensor) error {
	t.sensors[s.ID] = s.Clone()
	return nil
}

func (t *mockTx) DeleteSensor(owner, id string) error {
	if s, ok := t.sensors[id]; !ok || s.Owner != owner {
		return domain.ErrSensorNotFound
	}
	delete(t.sensors, id)
	return nil
}

func (t *mockTx) Device(owner, id string) (*domain.Device, error) {
	d, ok := t.devices[id]
	if !ok || d.Owner != owner {
		return nil, domain.ErrDeviceNotFound
	}
	c := *d
	return &c, nil
}

func (t *mockTx) DevicesByOwner(owner string) ([]*domain.Device, error) {
	var out []*domain.Device
	for _, d := range t.devices {
		if d.Owner == owner {
			c := *d
			out = append(out, &c)
		}
	}
	return out, nil
}

func (t *mockTx) PutDevice(d *domain.Device) error {
	c := *d
	t.devices[d.ID] = &c
	return nil
}

func (t *mockTx) DeleteDevice(owner, id string) error {
	if d, ok := t.devices[id]; !ok || d.Owner != owner {
		return domain.ErrDeviceNotFound
	}
	delete(t.devices, id)
	return nil
}

// mockTransport records deliveries and fails for selected device tokens.
type mockTransport struct {
	mu        sync.Mutex
	delivered []delivery
	failFor   map[string]error
	panicFor  map[string]bool
	delay     time.Duration

	inFlight    int
	maxInFlight int
}

type delivery struct {
	device     domain.Device
	payload    domain.Payload
	expiration time.Time
}

func newMockTransport() *mockTransport {
	return &mockTransport{failFor: make(map[string]error), panicFor: make(map[string]bool)}
}

func (m *mockTransport) Deliver(ctx context.Context, device *domain.Device, payload domain.Payload, expiration time.Time) error {
	m.mu.Lock()
	m.inFlight++
	if m.inFlight > m.maxInFlight {
		m.maxInFlight = m.inFlight
	}
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.inFlight--
		m.mu.Unlock()
	}()

	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.panicFor[device.Token] {
		panic("transport bug")
	}
	if err, ok := m.failFor[device.Token]; ok {
		return err
	}
	m.delivered = append(m.delivered, delivery{device: *device, payload: payload, expiration: expiration})
	return nil
}

func (m *mockTransport) deliveries() []delivery {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]delivery(nil), m.delivered...)
}

// recordingDispatcher captures background dispatches synchronously.
type recordingDispatcher struct {
	mu       sync.Mutex
	accounts []string
	devices  []*domain.Device
	payloads []domain.Payload
}

func (r *recordingDispatcher) DispatchAccount(_ context.Context, accountID string, payload domain.Payload) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.accounts = append(r.accounts, accountID)
	r.payloads = append(r.payloads, payload)
}

func (r *recordingDispatcher) DispatchDevice(_ context.Context, device *domain.Device, payload domain.Payload) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.devices = append(r.devices, device)
	r.payloads = append(r.payloads, payload)
}

// fixture wires services over a mock store.
type fixture struct {
	store    *mockStore
	tokens   *TokenService
	auth     *AuthService
	guard    *Guard
	dispatch *recordingDispatcher
	now      time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		store:    newMockStore(),
		dispatch: &recordingDispatcher{},
		now:      time.Date(2024, 11, 18, 12, 0, 0, 0, time.UTC),
	}

	tokens, err := NewTokenService(testSigningKey, WithTimeFunc(func() time.Time { return f.now }))
	if err != nil {
		t.Fatalf("NewTokenService failed: %v", err)
	}
	f.tokens = tokens
	f.auth = NewAuthService(f.store, tokens, &AuthServiceConfig{BcryptCost: bcrypt.MinCost}, nil)
	f.guard = NewGuard(f.store, tokens, f.dispatch, nil)
	return f
}

func (f *fixture) createAccount(t *testing.T, name string) *domain.Account {
	t.Helper()
	resp, err := f.auth.CreateAccount(context.Background(), &CreateAccountRequest{Name: name, Password: "pw-" + name})
	if err != nil {
		t.Fatalf("CreateAccount(%q) failed: %v", name, err)
	}
	return resp.Account
}

func (f *fixture) createSensor(t *testing.T, accountID, name string) *domain.Sensor {
	t.Helper()
	s, err := f.guard.CreateSensor(context.Background(), &CreateSensorRequest{AccountID: accountID, Name: name})
	if err != nil {
		t.Fatalf("CreateSensor(%q) failed: %v", name, err)
	}
	return s
}

func expectErr(t *testing.T, err, want error) {
	t.Helper()
	if !errors.Is(err, want) {
		t.Fatalf("error = %v, want %v", err, want)
	}
}
