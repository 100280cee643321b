package cache

import (
	"testing"
	"time"

	"provwatch/features/cache/cache_errors"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBucketStore(t *testing.T) *BucketStore {
	db, err := badger.Open(badger.DefaultOptions("").WithInMemory(true).WithLogger(nil))
	require.NoError(t, err, "Expected no error opening in-memory badger")
	t.Cleanup(func() { db.Close() })

	store, err := NewBucketStore(db)
	require.NoError(t, err)
	return store
}

func TestBucketKey_SameWindowSameKey(t *testing.T) {
	window := 5 * time.Second
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	k1 := BucketKey("scan:bulk", base, window)
	k2 := BucketKey("scan:bulk", base.Add(4*time.Second), window)

	assert.Equal(t, k1, k2, "Two lookups inside the same window must address the same key")
}

func TestBucketKey_NewWindowNewKey(t *testing.T) {
	window := 5 * time.Second
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	k1 := BucketKey("scan:bulk", base, window)
	k2 := BucketKey("scan:bulk", base.Add(5*time.Second), window)

	assert.NotEqual(t, k1, k2, "A new window must address a fresh key")
}

func TestBucketKey_PrefixesAreIsolated(t *testing.T) {
	now := time.Now()
	assert.NotEqual(t, BucketKey("scan:bulk", now, time.Second), BucketKey("test:provider:openai", now, time.Second))
}

func TestBucketKey_ZeroWindowFallsBack(t *testing.T) {
	now := time.Now()
	assert.NotPanics(t, func() {
		BucketKey("scan:bulk", now, 0)
	})
}

func TestNewBucketStore_NilDB(t *testing.T) {
	_, err := NewBucketStore(nil)
	assert.ErrorIs(t, err, cache_errors.ErrCacheNotInitialized)
}

func TestBucketStore_SetGet(t *testing.T) {
	store := newTestBucketStore(t)

	key := BucketKey("scan:bulk", time.Now(), 5*time.Second)
	err := store.Set(key, []byte(`{"openai":{}}`), 5*time.Second)
	require.NoError(t, err)

	value, err := store.Get(key)
	assert.NoError(t, err)
	assert.Equal(t, []byte(`{"openai":{}}`), value)
}

func TestBucketStore_MissReturnsKeyNotFound(t *testing.T) {
	store := newTestBucketStore(t)

	_, err := store.Get("scan:bulk:unwritten")
	assert.ErrorIs(t, err, cache_errors.ErrKeyNotFound)
}

func TestBucketStore_Delete(t *testing.T) {
	store := newTestBucketStore(t)

	require.NoError(t, store.Set("k", []byte("v"), time.Minute))
	require.NoError(t, store.Delete("k"))

	_, err := store.Get("k")
	assert.ErrorIs(t, err, cache_errors.ErrKeyNotFound)
}
