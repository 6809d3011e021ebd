package session

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/adminconsole/internal/domain"
)

func testPair(access string) domain.CredentialPair {
	return domain.CredentialPair{
		AccessToken:  access,
		RefreshToken: "refresh-" + access,
		Admin:        json.RawMessage(`{"id":"a-1","name":"Asha","email":"asha@example.com","role":"manager"}`),
	}
}

func newTestStore() (*Store, *MemoryKV, *MemoryKV) {
	volatile := NewMemoryKV()
	durable := NewMemoryKV()
	return NewStore(volatile, durable, time.Hour), volatile, durable
}

func TestStore_SaveAndLoad_Volatile(t *testing.T) {
	store, _, _ := newTestStore()
	ctx := context.Background()

	pair := testPair("tok-1")
	require.NoError(t, store.Save(ctx, "sid-1", pair, false))

	loaded, err := store.Load(ctx, "sid-1")
	require.NoError(t, err)
	assert.Equal(t, pair.AccessToken, loaded.AccessToken)
	assert.Equal(t, pair.RefreshToken, loaded.RefreshToken)
	assert.JSONEq(t, string(pair.Admin), string(loaded.Admin))
}

func TestStore_SaveAndLoad_Durable(t *testing.T) {
	store, _, _ := newTestStore()
	ctx := context.Background()

	pair := testPair("tok-2")
	require.NoError(t, store.Save(ctx, "sid-2", pair, true))

	loaded, err := store.Load(ctx, "sid-2")
	require.NoError(t, err)
	assert.Equal(t, pair.AccessToken, loaded.AccessToken)
}

func TestStore_LoadPrecedence_VolatileWins(t *testing.T) {
	store, volatile, durable := newTestStore()
	ctx := context.Background()

	// Populate both stores with different pairs directly.
	accessKey, refreshKey, adminKey := sessionKeys("sid-3")
	require.NoError(t, durable.Set(ctx, accessKey, "durable-access", 0))
	require.NoError(t, durable.Set(ctx, refreshKey, "durable-refresh", 0))
	require.NoError(t, durable.Set(ctx, adminKey, `{"id":"old"}`, 0))
	require.NoError(t, volatile.Set(ctx, accessKey, "volatile-access", 0))
	require.NoError(t, volatile.Set(ctx, refreshKey, "volatile-refresh", 0))
	require.NoError(t, volatile.Set(ctx, adminKey, `{"id":"new"}`, 0))

	loaded, err := store.Load(ctx, "sid-3")
	require.NoError(t, err)
	assert.Equal(t, "volatile-access", loaded.AccessToken)
}

func TestStore_Load_PartialHydrationTreatedAsEmpty(t *testing.T) {
	store, volatile, _ := newTestStore()
	ctx := context.Background()

	// Only two of the three keys present: the store must not half-hydrate.
	accessKey, refreshKey, _ := sessionKeys("sid-4")
	require.NoError(t, volatile.Set(ctx, accessKey, "tok", 0))
	require.NoError(t, volatile.Set(ctx, refreshKey, "ref", 0))

	loaded, err := store.Load(ctx, "sid-4")
	require.NoError(t, err)
	assert.True(t, loaded.Empty())
}

func TestStore_Load_PartialVolatileFallsBackToDurable(t *testing.T) {
	store, volatile, _ := newTestStore()
	ctx := context.Background()

	pair := testPair("tok-5")
	require.NoError(t, store.Save(ctx, "sid-5", pair, true))

	// A single stray volatile key must not mask the complete durable pair.
	accessKey, _, _ := sessionKeys("sid-5")
	require.NoError(t, volatile.Set(ctx, accessKey, "stray", 0))

	loaded, err := store.Load(ctx, "sid-5")
	require.NoError(t, err)
	assert.Equal(t, "tok-5", loaded.AccessToken)
}

func TestStore_Save_EvictsOtherStore(t *testing.T) {
	store, volatile, durable := newTestStore()
	ctx := context.Background()

	// First login without remember, second with: the durable save must leave
	// nothing authoritative behind in the volatile store.
	require.NoError(t, store.Save(ctx, "sid-6", testPair("first"), false))
	require.NoError(t, store.Save(ctx, "sid-6", testPair("second"), true))

	accessKey, _, _ := sessionKeys("sid-6")
	_, ok, err := volatile.Get(ctx, accessKey)
	require.NoError(t, err)
	assert.False(t, ok, "volatile copy should have been evicted")

	_, ok, err = durable.Get(ctx, accessKey)
	require.NoError(t, err)
	assert.True(t, ok)

	loaded, err := store.Load(ctx, "sid-6")
	require.NoError(t, err)
	assert.Equal(t, "second", loaded.AccessToken)
}

func TestStore_Save_RejectsIncompletePair(t *testing.T) {
	store, _, _ := newTestStore()

	err := store.Save(context.Background(), "sid-7", domain.CredentialPair{AccessToken: "only-access"}, false)
	require.Error(t, err)
}

func TestStore_Clear_ErasesBothStores(t *testing.T) {
	store, volatile, durable := newTestStore()
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "sid-8", testPair("tok-8"), true))
	require.NoError(t, store.Save(ctx, "sid-8", testPair("tok-8b"), false))

	require.NoError(t, store.Clear(ctx, "sid-8"))

	loaded, err := store.Load(ctx, "sid-8")
	require.NoError(t, err)
	assert.True(t, loaded.Empty())

	accessKey, refreshKey, adminKey := sessionKeys("sid-8")
	for _, key := range []string{accessKey, refreshKey, adminKey} {
		_, ok, err := volatile.Get(ctx, key)
		require.NoError(t, err)
		assert.False(t, ok)
		_, ok, err = durable.Get(ctx, key)
		require.NoError(t, err)
		assert.False(t, ok)
	}
}

func TestMemoryKV_TTLExpiry(t *testing.T) {
	kv := NewMemoryKV()
	ctx := context.Background()

	require.NoError(t, kv.Set(ctx, "k", "v", time.Minute))

	_, ok, err := kv.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)

	kv.nowFunc = func() time.Time { return time.Now().Add(2 * time.Minute) }

	_, ok, err = kv.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok, "expired entry should be gone")
}
