package broadcaster

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"troffee-bid-sync/internal/domain/shared"
	"troffee-bid-sync/internal/ports/outbound"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// ChannelName returns the pub/sub channel carrying an item's bid activity
func ChannelName(itemID int64) string {
	return fmt.Sprintf("auction:item:%d", itemID)
}

type subscription struct {
	pubsub *redis.PubSub
	cancel context.CancelFunc
}

// RedisBroadcaster implements outbound.BidFeed over Redis pub/sub. Each
// subscriber gets its own PubSub connection for one item.
type RedisBroadcaster struct {
	client        *redis.Client
	subscriptions map[string]*subscription // subscriberID -> subscription
	mu            sync.Mutex
	ctx           context.Context
	cancel        context.CancelFunc
	logger        zerolog.Logger
}
type RedisBroadcasterParams struct {
	RedisClient *redis.Client
	Logger      zerolog.Logger
}

func NewBroadcaster(params RedisBroadcasterParams) *RedisBroadcaster {
	ctx, cancel := context.WithCancel(context.Background())

	return &RedisBroadcaster{
		client:        params.RedisClient,
		subscriptions: make(map[string]*subscription),
		ctx:           ctx,
		cancel:        cancel,
		logger:        params.Logger.With().Str("component", "redis_broadcaster").Logger(),
	}
}

// Subscribe forwards events for itemID to eventChan until Unsubscribe. A
// subscriber already listening is moved to the new item.
func (r *RedisBroadcaster) Subscribe(ctx context.Context, itemID int64, subscriberID string, eventChan chan outbound.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.subscriptions[subscriberID]; ok {
		r.closeSubscription(subscriberID, existing)
	}

	channelName := ChannelName(itemID)
	pubsub := r.client.Subscribe(ctx, channelName)

	// Wait for confirmation so publishes right after Subscribe are not missed
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		r.logger.Error().Err(err).Str("subscriber_id", subscriberID).Int64("item_id", itemID).Msg("Failed to subscribe to Redis channel")
		return fmt.Errorf("subscribe to %s: %w", channelName, err)
	}

	listenCtx, cancel := context.WithCancel(r.ctx)
	r.subscriptions[subscriberID] = &subscription{pubsub: pubsub, cancel: cancel}
	go r.listenForRedisMessages(listenCtx, pubsub, subscriberID, eventChan)

	r.logger.Info().
		Str("subscriber_id", subscriberID).
		Int64("item_id", itemID).
		Msg("Subscribed to item bid feed")
	return nil
}

// Unsubscribe stops delivery to a subscriber. The caller keeps ownership of
// its event channel.
func (r *RedisBroadcaster) Unsubscribe(ctx context.Context, itemID int64, subscriberID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	sub, ok := r.subscriptions[subscriberID]
	if !ok {
		return nil
	}
	r.closeSubscription(subscriberID, sub)

	r.logger.Info().
		Str("subscriber_id", subscriberID).
		Int64("item_id", itemID).
		Msg("Unsubscribed from item bid feed")
	return nil
}

// Publish publishes an event to all subscribers of an item
func (r *RedisBroadcaster) Publish(ctx context.Context, itemID int64, event outbound.Event) error {
	if event.Timestamp == 0 {
		event.Timestamp = time.Now().Unix()
	}
	event.ItemID = itemID

	eventJSON, err := json.Marshal(event)
	if err != nil {
		r.logger.Error().Err(err).Msg("Failed to marshal event")
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	result := r.client.Publish(ctx, ChannelName(itemID), eventJSON)
	if err := result.Err(); err != nil {
		r.logger.Error().Err(err).Int64("item_id", itemID).Msg("Failed to publish to Redis")
		return fmt.Errorf("%w: %v", shared.ErrBroadcastFailed, err)
	}

	r.logger.Debug().
		Str("event_type", string(event.Type)).
		Int64("item_id", itemID).
		Int64("subscriber_count", result.Val()).
		Msg("Published bid feed event")
	return nil
}

// closeSubscription must be called with r.mu held
func (r *RedisBroadcaster) closeSubscription(subscriberID string, sub *subscription) {
	sub.cancel()
	if err := sub.pubsub.Close(); err != nil {
		r.logger.Error().Err(err).Str("subscriber_id", subscriberID).Msg("Error closing Redis pubsub")
	}
	delete(r.subscriptions, subscriberID)
}

func (r *RedisBroadcaster) listenForRedisMessages(ctx context.Context, pubsub *redis.PubSub, subscriberID string, localChan chan outbound.Event) {
	defer func() {
		if err := recover(); err != nil {
			r.logger.Error().Interface("panic", err).Str("subscriber_id", subscriberID).Msg("Redis message listener panic")
		}
	}()

	ch := pubsub.Channel()

	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return
			}

			var event outbound.Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				r.logger.Error().Err(err).Str("subscriber_id", subscriberID).Msg("Failed to unmarshal Redis message")
				continue
			}

			select {
			case localChan <- event:
			case <-ctx.Done():
				return
			default:
				r.logger.Warn().Str("subscriber_id", subscriberID).Msg("Local channel full, dropping event")
			}

		case <-ctx.Done():
			return
		}
	}
}

// Close drops every subscription and closes the Redis client
func (r *RedisBroadcaster) Close() error {
	r.cancel()

	r.mu.Lock()
	for subscriberID, sub := range r.subscriptions {
		r.closeSubscription(subscriberID, sub)
	}
	r.mu.Unlock()

	return r.client.Close()
}
