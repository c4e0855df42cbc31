// Eventlytics - Multi-tenant Event Analytics Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/eventlytics/eventlytics

package kv

import (
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// ErrNotFound is returned by Get when key does not exist or has expired.
var ErrNotFound = errors.New("kv: key not found")

// Get retrieves the raw bytes stored at key.
func (s *Store) Get(key string) ([]byte, error) {
	result, err := s.withBreaker(func() (any, error) {
		var value []byte
		txErr := s.db.View(func(txn *badger.Txn) error {
			item, err := txn.Get([]byte(key))
			if err != nil {
				return err
			}
			return item.Value(func(val []byte) error {
				value = append([]byte(nil), val...)
				return nil
			})
		})
		if errors.Is(txErr, badger.ErrKeyNotFound) {
			return nil, ErrNotFound
		}
		if txErr != nil {
			return nil, fmt.Errorf("kv get %s: %w", key, txErr)
		}
		return value, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]byte), nil
}

// Set stores value at key with no expiration.
func (s *Store) Set(key string, value []byte) error {
	return s.SetWithTTL(key, value, 0)
}

// SetWithTTL stores value at key, expiring it after ttl. A zero ttl means
// the entry never expires.
func (s *Store) SetWithTTL(key string, value []byte, ttl time.Duration) error {
	_, err := s.withBreaker(func() (any, error) {
		return nil, s.db.Update(func(txn *badger.Txn) error {
			entry := badger.NewEntry([]byte(key), value)
			if ttl > 0 {
				entry = entry.WithTTL(ttl)
			}
			return txn.SetEntry(entry)
		})
	})
	return err
}

// Delete removes key, if present.
func (s *Store) Delete(key string) error {
	_, err := s.withBreaker(func() (any, error) {
		return nil, s.db.Update(func(txn *badger.Txn) error {
			return txn.Delete([]byte(key))
		})
	})
	return err
}

// TTL returns the remaining time until key expires. A zero duration with a
// nil error means key has no expiration set.
func (s *Store) TTL(key string) (time.Duration, error) {
	result, err := s.withBreaker(func() (any, error) {
		var remaining time.Duration
		txErr := s.db.View(func(txn *badger.Txn) error {
			item, err := txn.Get([]byte(key))
			if err != nil {
				return err
			}
			expiresAt := item.ExpiresAt()
			if expiresAt == 0 {
				remaining = 0
				return nil
			}
			remaining = time.Until(time.Unix(int64(expiresAt), 0))
			if remaining < 0 {
				remaining = 0
			}
			return nil
		})
		if errors.Is(txErr, badger.ErrKeyNotFound) {
			return nil, ErrNotFound
		}
		if txErr != nil {
			return nil, fmt.Errorf("kv ttl %s: %w", key, txErr)
		}
		return remaining, nil
	})
	if err != nil {
		return 0, err
	}
	return result.(time.Duration), nil
}

// Exists reports whether key is present and unexpired.
func (s *Store) Exists(key string) (bool, error) {
	_, err := s.Get(key)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Incr atomically increments the integer counter at key by delta, creating
// it with an optional ttl if absent, and returns the new value. Badger has
// no native atomic counter, so this serializes through a single update
// transaction, retried up to 5 attempts in all on a write conflict.
func (s *Store) Incr(key string, delta int64, ttl time.Duration) (int64, error) {
	result, err := s.withBreaker(func() (any, error) {
		var newValue int64
		update := func(txn *badger.Txn) error {
			var current int64
			item, getErr := txn.Get([]byte(key))
			switch {
			case errors.Is(getErr, badger.ErrKeyNotFound):
				current = 0
			case getErr != nil:
				return getErr
			default:
				if valErr := item.Value(func(val []byte) error {
					current = decodeInt64(val)
					return nil
				}); valErr != nil {
					return valErr
				}
			}

			newValue = current + delta
			entry := badger.NewEntry([]byte(key), encodeInt64(newValue))
			if ttl > 0 {
				entry = entry.WithTTL(ttl)
			}
			return txn.SetEntry(entry)
		}
		txErr := s.db.Update(update)
		for attempt := 1; attempt < 5 && errors.Is(txErr, badger.ErrConflict); attempt++ {
			txErr = s.db.Update(update)
		}
		if txErr != nil {
			return nil, fmt.Errorf("kv incr %s: %w", key, txErr)
		}
		return newValue, nil
	})
	if err != nil {
		return 0, err
	}
	return result.(int64), nil
}

// GetInt64 reads the counter value at key, returning 0 if absent.
func (s *Store) GetInt64(key string) (int64, error) {
	raw, err := s.Get(key)
	if errors.Is(err, ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return decodeInt64(raw), nil
}

func encodeInt64(v int64) []byte {
	return []byte(fmt.Sprintf("%d", v))
}

func decodeInt64(raw []byte) int64 {
	var v int64
	_, _ = fmt.Sscanf(string(raw), "%d", &v)
	return v
}

// deletePrefix removes every key beginning with prefix.
func (s *Store) deletePrefix(prefix string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(prefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		var keys [][]byte
		for it.Seek([]byte(prefix)); it.ValidForPrefix([]byte(prefix)); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		for _, k := range keys {
			if err := txn.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
}
