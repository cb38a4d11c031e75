package broadcaster

import (
	"context"
	"os"
	"testing"
	"time"

	"troffee-bid-sync/internal/ports/outbound"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestChannelName(t *testing.T) {
	require.Equal(t, "auction:item:7", ChannelName(7))
}

// Runs against a real Redis only when TEST_REDIS_ADDR is set.
func TestRedisBroadcaster_PublishReachesSubscriber(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}

	ctx := context.Background()
	b := NewBroadcaster(RedisBroadcasterParams{
		RedisClient: redis.NewClient(&redis.Options{Addr: addr}),
		Logger:      zerolog.Nop(),
	})
	defer b.Close()

	events := make(chan outbound.Event, 4)
	require.NoError(t, b.Subscribe(ctx, 7, "session-a", events))

	require.NoError(t, b.Publish(ctx, 7, outbound.Event{
		Type: outbound.EventTypeBidPlaced,
		Data: map[string]interface{}{"amount": 150},
	}))

	select {
	case ev := <-events:
		require.Equal(t, outbound.EventTypeBidPlaced, ev.Type)
		require.Equal(t, int64(7), ev.ItemID)
		require.NotZero(t, ev.Timestamp)
	case <-time.After(2 * time.Second):
		t.Fatal("event not delivered")
	}

	require.NoError(t, b.Unsubscribe(ctx, 7, "session-a"))
	require.NoError(t, b.Publish(ctx, 7, outbound.Event{Type: outbound.EventTypeBidPlaced}))

	select {
	case <-events:
		t.Fatal("event delivered after unsubscribe")
	case <-time.After(200 * time.Millisecond):
	}
}
