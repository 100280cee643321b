package cache

import (
	"strconv"
	"time"

	"provwatch/features/cache/cache_errors"

	"github.com/dgraph-io/badger/v4"
	"github.com/rs/zerolog/log"
)

// BucketKey builds a cache key whose suffix is the current time truncated to
// the bucket window. Two lookups inside the same window address the same key,
// which gives implicit TTL behavior without per-entry expiry bookkeeping: a
// new window simply addresses a fresh key and the stale entry is left for
// badger's own expiry to reap.
func BucketKey(prefix string, now time.Time, window time.Duration) string {
	if window <= 0 {
		window = time.Second
	}
	bucket := now.UnixMilli() / window.Milliseconds() * window.Milliseconds()
	return prefix + ":" + strconv.FormatInt(bucket, 10)
}

// BucketStore is a short-TTL byte store backed by badger. Misses are cheap
// and never block; callers fall through to the network and memoize on
// success only.
type BucketStore struct {
	db *badger.DB
}

func NewBucketStore(db *badger.DB) (*BucketStore, error) {
	if db == nil {
		return nil, cache_errors.ErrCacheNotInitialized
	}
	return &BucketStore{db: db}, nil
}

// Get returns the payload stored under key, or ErrKeyNotFound on a miss.
func (s *BucketStore) Get(key string) ([]byte, error) {
	var value []byte

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			if err == badger.ErrKeyNotFound {
				return cache_errors.ErrKeyNotFound
			}
			return err
		}

		return item.Value(func(val []byte) error {
			value = make([]byte, len(val))
			copy(value, val)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	return value, nil
}

// Set stores the payload under key with the given TTL. Entries written under
// bucketed keys are never addressed again after their window passes, so the
// TTL only bounds badger's memory, not correctness.
func (s *BucketStore) Set(key string, value []byte, ttl time.Duration) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry([]byte(key), value)
		if ttl > 0 {
			entry = entry.WithTTL(ttl)
		}
		return txn.SetEntry(entry)
	})
	if err != nil {
		log.Error().Err(err).Str("key", key).Msg("Failed to write cache entry")
	}
	return err
}

// Delete removes a key. Only used by tests and the error-reset path.
func (s *BucketStore) Delete(key string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
}
