package outbound

import (
	"context"
)

// EventType represents the type of event carried on the bid feed
type EventType string

const (
	EventTypeBidPlaced    EventType = "bid.placed"
	EventTypeAuctionEnded EventType = "auction.ended"
)

// Event represents a bid feed event
type Event struct {
	Type      EventType              `json:"type"`
	ItemID    int64                  `json:"item_id"`
	Data      map[string]interface{} `json:"data"`
	Timestamp int64                  `json:"timestamp"`
}

// BidFeed pushes bid activity between sessions. Events are hints only; the
// ledger stays the source of truth.
type BidFeed interface {
	// Subscribe delivers events for an item to eventChan
	Subscribe(ctx context.Context, itemID int64, subscriberID string, eventChan chan Event) error

	// Unsubscribe stops delivery to a subscriber
	Unsubscribe(ctx context.Context, itemID int64, subscriberID string) error

	// Publish publishes an event to all subscribers of an item
	Publish(ctx context.Context, itemID int64, event Event) error
}
