package cart

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	redislib "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeKV struct {
	data map[string]string
	ttls map[string]time.Duration
}

func newFakeKV() *fakeKV {
	return &fakeKV{data: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (f *fakeKV) GetAndTouch(_ context.Context, key string, ttl time.Duration) (string, error) {
	v, ok := f.data[key]
	if !ok {
		return "", redislib.Nil
	}
	f.ttls[key] = ttl
	return v, nil
}

func (f *fakeKV) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	f.data[key] = fmt.Sprint(value)
	f.ttls[key] = ttl
	return nil
}

func (f *fakeKV) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(f.data, k)
	}
	return nil
}

func (f *fakeKV) CartKey(sessionID string) string {
	return "sf:cart:" + sessionID
}

func TestRedisStoreRoundTrip(t *testing.T) {
	kv := newFakeKV()
	store, err := NewRedisStore(kv, time.Hour)
	require.NoError(t, err)
	ctx := context.Background()

	empty, err := store.Load(ctx, "s1")
	require.NoError(t, err)
	assert.True(t, empty.IsEmpty())

	c := &Cart{}
	c.Add(Item{ProductID: uuid.New(), Quantity: 2, Price: decimal.RequireFromString("50"), Name: "Tee"})
	require.NoError(t, store.Save(ctx, "s1", c))
	assert.Equal(t, time.Hour, kv.ttls["sf:cart:s1"])

	loaded, err := store.Load(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, loaded.Items, 1)
	assert.Equal(t, c.Items[0].CartItemID, loaded.Items[0].CartItemID)
	assert.True(t, loaded.Total().Equal(decimal.NewFromInt(100)))

	require.NoError(t, store.Delete(ctx, "s1"))
	_, exists := kv.data["sf:cart:s1"]
	assert.False(t, exists)
}

func TestRedisStoreSavesEmptyListAsArray(t *testing.T) {
	kv := newFakeKV()
	store, err := NewRedisStore(kv, time.Hour)
	require.NoError(t, err)

	require.NoError(t, store.Save(context.Background(), "s1", &Cart{}))
	assert.Equal(t, "[]", kv.data["sf:cart:s1"])
}

func TestRedisStoreCorruptPayload(t *testing.T) {
	kv := newFakeKV()
	kv.data["sf:cart:s1"] = "{not json"
	store, err := NewRedisStore(kv, time.Hour)
	require.NoError(t, err)

	_, err = store.Load(context.Background(), "s1")
	assert.ErrorIs(t, err, ErrCorruptCart)
}

func TestRedisStoreLoadRefreshesExpiry(t *testing.T) {
	kv := newFakeKV()
	kv.data["sf:cart:s1"] = "[]"
	store, err := NewRedisStore(kv, 30*time.Minute)
	require.NoError(t, err)

	_, err = store.Load(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, 30*time.Minute, kv.ttls["sf:cart:s1"])
}
