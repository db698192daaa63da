package storage

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v3"

	"github.com/MiaKoring/BloomBuddyServer/internal/core/domain"
)

// Key prefixes.
const (
	prefixAccount     = "account/"
	prefixAccountName = "account-name/"
	prefixSensor      = "sensor/"
	prefixDevice      = "device/"
	prefixDeviceToken = "device-token/"
)

func accountKey(id string) []byte       { return []byte(prefixAccount + id) }
func accountNameKey(name string) []byte { return []byte(prefixAccountName + name) }
func sensorKey(owner, id string) []byte { return []byte(prefixSensor + owner + "/" + id) }
func deviceKey(owner, id string) []byte { return []byte(prefixDevice + owner + "/" + id) }
func deviceTokenKey(owner, token string) []byte {
	return []byte(prefixDeviceToken + owner + "/" + token)
}
func sensorPrefix(owner string) []byte  { return []byte(prefixSensor + owner + "/") }
func devicePrefix(owner string) []byte  { return []byte(prefixDevice + owner + "/") }

// badgerTx implements service.Tx over one Badger transaction.
type badgerTx struct {
	txn *badger.Txn
}

func (t *badgerTx) Account(id string) (*domain.Account, error) {
	var a domain.Account
	if err := t.get(accountKey(id), &a, domain.ErrAccountNotFound); err != nil {
		return nil, err
	}
	return &a, nil
}

func (t *badgerTx) AccountByName(name string) (*domain.Account, error) {
	item, err := t.txn.Get(accountNameKey(name))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, domain.ErrAccountNotFound
	}
	if err != nil {
		return nil, err
	}
	id, err := item.ValueCopy(nil)
	if err != nil {
		return nil, err
	}

	a, err := t.Account(string(id))
	if errors.Is(err, domain.ErrAccountNotFound) {
		return nil, domain.ErrInternalInvariant.WithDetails("name index points to missing account " + string(id))
	}
	return a, err
}

func (t *badgerTx) PutAccount(a *domain.Account) error {
	item, err := t.txn.Get(accountNameKey(a.Name))
	switch {
	case errors.Is(err, badger.ErrKeyNotFound):
	case err != nil:
		return err
	default:
		holder, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		if string(holder) != a.ID {
			return domain.ErrAccountNameTaken
		}
	}

	// Drop the old index entry on rename.
	prev, err := t.Account(a.ID)
	switch {
	case errors.Is(err, domain.ErrAccountNotFound):
	case err != nil:
		return err
	case prev.Name != a.Name:
		if err := t.txn.Delete(accountNameKey(prev.Name)); err != nil {
			return err
		}
	}

	if err := t.txn.Set(accountNameKey(a.Name), []byte(a.ID)); err != nil {
		return err
	}
	return t.put(accountKey(a.ID), a)
}

func (t *badgerTx) Sensor(owner, id string) (*domain.Sensor, error) {
	var s domain.Sensor
	if err := t.get(sensorKey(owner, id), &s, domain.ErrSensorNotFound); err != nil {
		return nil, err
	}
	return &s, nil
}

func (t *badgerTx) SensorsByOwner(owner string) ([]*domain.Sensor, error) {
	var out []*domain.Sensor
	err := t.scan(sensorPrefix(owner), func(v []byte) error {
		var s domain.Sensor
		if err := json.Unmarshal(v, &s); err != nil {
			return err
		}
		out = append(out, &s)
		return nil
	})
	return out, err
}

func (t *badgerTx) PutSensor(s *domain.Sensor) error {
	return t.put(sensorKey(s.Owner, s.ID), s)
}

func (t *badgerTx) DeleteSensor(owner, id string) error {
	return t.txn.Delete(sensorKey(owner, id))
}

func (t *badgerTx) Device(owner, id string) (*domain.Device, error) {
	var d domain.Device
	if err := t.get(deviceKey(owner, id), &d, domain.ErrDeviceNotFound); err != nil {
		return nil, err
	}
	return &d, nil
}

func (t *badgerTx) DevicesByOwner(owner string) ([]*domain.Device, error) {
	var out []*domain.Device
	err := t.scan(devicePrefix(owner), func(v []byte) error {
		var d domain.Device
		if err := json.Unmarshal(v, &d); err != nil {
			return err
		}
		out = append(out, &d)
		return nil
	})
	return out, err
}

// PutDevice stores d and claims its token in the owner's token index. The
// index key is read before it is written, so concurrent registrations of one
// token conflict at commit.
func (t *badgerTx) PutDevice(d *domain.Device) error {
	key := deviceTokenKey(d.Owner, d.Token)
	item, err := t.txn.Get(key)
	switch {
	case errors.Is(err, badger.ErrKeyNotFound):
	case err != nil:
		return err
	default:
		holder, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		if string(holder) != d.ID {
			return domain.ErrDuplicateDevice
		}
	}

	if err := t.txn.Set(key, []byte(d.ID)); err != nil {
		return err
	}
	return t.put(deviceKey(d.Owner, d.ID), d)
}

func (t *badgerTx) DeleteDevice(owner, id string) error {
	d, err := t.Device(owner, id)
	switch {
	case errors.Is(err, domain.ErrDeviceNotFound):
	case err != nil:
		return err
	default:
		if err := t.txn.Delete(deviceTokenKey(owner, d.Token)); err != nil {
			return err
		}
	}
	return t.txn.Delete(deviceKey(owner, id))
}

// get decodes the JSON record at key into v, returning miss when the key
// does not exist.
func (t *badgerTx) get(key []byte, v any, miss error) error {
	item, err := t.txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return miss
	}
	if err != nil {
		return err
	}
	return item.Value(func(val []byte) error {
		if err := json.Unmarshal(val, v); err != nil {
			return fmt.Errorf("decode %s: %w", key, err)
		}
		return nil
	})
}

func (t *badgerTx) put(key []byte, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return t.txn.Set(key, data)
}

func (t *badgerTx) scan(prefix []byte, fn func(value []byte) error) error {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	it := t.txn.NewIterator(opts)
	defer it.Close()

	for it.Rewind(); it.Valid(); it.Next() {
		if err := it.Item().Value(fn); err != nil {
			return err
		}
	}
	return nil
}

func countPrefix(txn *badger.Txn, prefix string) (int, error) {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = []byte(prefix)
	opts.PrefetchValues = false
	it := txn.NewIterator(opts)
	defer it.Close()

	n := 0
	for it.Rewind(); it.Valid(); it.Next() {
		n++
	}
	return n, nil
}
