package ws

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"troffee-bid-sync/internal/domain/auction"
	"troffee-bid-sync/internal/domain/bid"
	"troffee-bid-sync/internal/domain/shared"
	"troffee-bid-sync/internal/ports/inbound"
	"troffee-bid-sync/internal/ports/outbound"
)

type MessageType string

const (
	// Client to Server message types
	MessageTypeSubscribe       MessageType = "subscribe"
	MessageTypeUnsubscribe     MessageType = "unsubscribe"
	MessageTypeSetDraft        MessageType = "set_draft"
	MessageTypeSelectIncrement MessageType = "select_increment"
	MessageTypeSubmitBid       MessageType = "submit_bid"
	MessageTypeConfirmBid      MessageType = "confirm_bid"
	MessageTypeCancelBid       MessageType = "cancel_bid"
	MessageTypeListSellerItems MessageType = "list_seller_items"
	MessageTypePing            MessageType = "ping"

	// Server to Client message types
	MessageTypeBidState     MessageType = "bid_state"
	MessageTypeBidIntent    MessageType = "bid_intent"
	MessageTypeBidPlaced    MessageType = "bid_placed"
	MessageTypeAuctionEnded MessageType = "auction_ended"
	MessageTypeSellerItems  MessageType = "seller_items"
	MessageTypeError        MessageType = "error"
	MessageTypePong         MessageType = "pong"
)

type ClientMessage struct {
	Type      MessageType            `json:"type"`
	Item      *ItemPayload           `json:"item,omitempty"`
	Data      map[string]interface{} `json:"data,omitempty"`
	Timestamp int64                  `json:"timestamp"`
}

// ItemPayload is the item a client wants to bid on, as the catalog page
// already has it
type ItemPayload struct {
	ID            int64  `json:"id"`
	Title         string `json:"title"`
	Description   string `json:"description"`
	StartingPrice int64  `json:"startingPrice"`
	CurrentBid    int64  `json:"currentBid"`
	AuctionEnd    string `json:"auctionEnd"`
	Image         string `json:"image"`
}

// ServerMessage represents a message sent from server to client
type ServerMessage struct {
	Type      MessageType            `json:"type"`
	ItemID    *int64                 `json:"item_id,omitempty"`
	Data      map[string]interface{} `json:"data,omitempty"`
	Error     *string                `json:"error,omitempty"`
	Timestamp int64                  `json:"timestamp"`
}

func NewServerMessage(msgType MessageType) *ServerMessage {
	return &ServerMessage{
		Type:      msgType,
		Data:      make(map[string]interface{}),
		Timestamp: time.Now().Unix(),
	}
}

func NewErrorMessage(err string, itemID *int64) *ServerMessage {
	return &ServerMessage{
		Type:      MessageTypeError,
		ItemID:    itemID,
		Error:     &err,
		Timestamp: time.Now().Unix(),
	}
}

// NewBidStateMessage carries a full snapshot of the bidding panel
func NewBidStateMessage(view outbound.BidView) *ServerMessage {
	msg := NewServerMessage(MessageTypeBidState)
	msg.ItemID = &view.ItemID
	msg.Data["state"] = view
	return msg
}

// NewBidIntentMessage asks the client to confirm payment
func NewBidIntentMessage(intent bid.Intent) *ServerMessage {
	msg := NewServerMessage(MessageTypeBidIntent)
	msg.ItemID = &intent.ItemID
	msg.Data["intent"] = intent
	return msg
}

func NewBidPlacedMessage(itemID int64, notice shared.Notice) *ServerMessage {
	msg := NewServerMessage(MessageTypeBidPlaced)
	msg.ItemID = &itemID
	msg.Data["message"] = notice.Message
	msg.Data["amount"] = notice.Amount
	return msg
}

// NewAuctionEndedMessage creates an auction ended message
func NewAuctionEndedMessage(view outbound.BidView) *ServerMessage {
	msg := NewServerMessage(MessageTypeAuctionEnded)
	msg.ItemID = &view.ItemID
	msg.Data["final_bid"] = view.CurrentBid
	msg.Data["state"] = view
	return msg
}

func NewSellerItemsMessage(view *inbound.SellerItemsView) *ServerMessage {
	msg := NewServerMessage(MessageTypeSellerItems)
	msg.Data["items"] = view.Items
	msg.Data["counts"] = view.Counts
	msg.Data["count"] = len(view.Items)
	return msg
}

// ToItem converts the payload into a validated auction item
func (p *ItemPayload) ToItem() (*auction.Item, error) {
	end, err := time.Parse(time.RFC3339, p.AuctionEnd)
	if err != nil {
		return nil, fmt.Errorf("%w: auctionEnd must be RFC3339", shared.ErrInvalidTimeFormat)
	}

	item := &auction.Item{
		ID:            p.ID,
		Title:         p.Title,
		Description:   p.Description,
		StartingPrice: p.StartingPrice,
		CurrentBid:    p.CurrentBid,
		AuctionEnd:    end,
		Image:         p.Image,
	}
	if err := item.Validate(); err != nil {
		return nil, err
	}
	return item, nil
}

// ParseClientMessage parses a JSON message from client
func ParseClientMessage(data []byte) (*ClientMessage, error) {
	var msg ClientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("failed to parse client message: %w", err)
	}

	// Validate required fields
	if msg.Type == "" {
		return nil, shared.ErrMessageTypeRequired
	}

	return &msg, nil
}

// Validate validates a client message
func (m *ClientMessage) Validate() error {
	switch m.Type {
	case MessageTypeSubscribe:
		if m.Item == nil {
			return shared.ErrItemRequired
		}
	case MessageTypeSetDraft:
		if _, ok := m.Data["amount"]; !ok {
			return shared.ErrInvalidAmount
		}
	case MessageTypeSelectIncrement:
		if _, ok := m.Data["index"].(float64); !ok {
			return shared.ErrInvalidIncrement
		}
	case MessageTypeListSellerItems:
		if raw, ok := m.Data["status"]; ok && raw != nil {
			status, ok := raw.(string)
			if !ok || (status != "" && !shared.ItemStatus(status).Valid()) {
				return fmt.Errorf("unknown item status %v", raw)
			}
		}
	case MessageTypeUnsubscribe, MessageTypeSubmitBid, MessageTypeConfirmBid, MessageTypeCancelBid:

	case MessageTypePing:

	default:
		return shared.ErrUnknownMessageType
	}

	return nil
}

// DraftAmount reads the set_draft amount. Numbers are truncated, strings
// use their leading integer ("150.5" and "150abc" are 150). Returns false
// when nothing usable was sent.
func (m *ClientMessage) DraftAmount() (int64, bool) {
	switch v := m.Data["amount"].(type) {
	case float64:
		return int64(v), true
	case string:
		return leadingInt(v)
	default:
		return 0, false
	}
}

// IncrementIndex reads the select_increment index
func (m *ClientMessage) IncrementIndex() int {
	index, _ := m.Data["index"].(float64)
	return int(index)
}

// StatusFilter reads the optional list_seller_items status
func (m *ClientMessage) StatusFilter() *shared.ItemStatus {
	raw, ok := m.Data["status"].(string)
	if !ok || raw == "" {
		return nil
	}
	status := shared.ItemStatus(raw)
	return &status
}

func leadingInt(s string) (int64, bool) {
	s = strings.TrimSpace(s)
	end := 0
	if end < len(s) && (s[end] == '-' || s[end] == '+') {
		end++
	}
	digits := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digits {
		return 0, false
	}
	n, err := strconv.ParseInt(s[:end], 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}
