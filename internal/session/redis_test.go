package session

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Redis round-trip is an integration test: set INTEGRATION_TEST=true with a
// local Redis to run it.
func TestRedisStoreRoundTrip(t *testing.T) {
	if os.Getenv("INTEGRATION_TEST") != "true" {
		t.Skip("Skipping integration test. Set INTEGRATION_TEST=true to run")
	}

	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr, DB: 15})
	ctx := context.Background()
	require.NoError(t, rdb.FlushDB(ctx).Err())

	store := NewRedisStore(rdb, time.Minute)

	loaded, err := store.Load(ctx, "tab-9")
	require.NoError(t, err)
	assert.Nil(t, loaded)

	exp := time.Now().Add(5 * time.Minute).UTC().Truncate(time.Second)
	require.NoError(t, store.Save(ctx, "tab-9", Session{
		Step:      StepDiscountSelection,
		BookingID: "b-1",
		ExpiresAt: &exp,
	}))

	loaded, err = store.Load(ctx, "tab-9")
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, StepDiscountSelection, loaded.Step)
	assert.Equal(t, "b-1", loaded.BookingID)
	require.NotNil(t, loaded.ExpiresAt)
	assert.True(t, loaded.ExpiresAt.Equal(exp))

	require.NoError(t, store.Clear(ctx, "tab-9"))
	loaded, err = store.Load(ctx, "tab-9")
	require.NoError(t, err)
	assert.Nil(t, loaded)
}
