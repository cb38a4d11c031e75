package ledger

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"

	"troffee-bid-sync/internal/domain/bid"
	"troffee-bid-sync/internal/domain/shared"
	"troffee-bid-sync/internal/ports/outbound"
)

// wireBid is a bid record as the ledger serializes it. Amounts may come back
// as 120 or 120.0 depending on the ledger's numeric type. Fractions are
// floored so a poll never reports more than was actually bid.
type wireBid struct {
	ItemID     int64       `json:"itemId"`
	BidAmount  json.Number `json:"bidAmount"`
	CustomerID int64       `json:"customerId"`
	Item       *struct {
		ID int64 `json:"id"`
	} `json:"item,omitempty"`
}

func (w wireBid) amount() (int64, error) {
	if w.BidAmount == "" {
		return 0, fmt.Errorf("missing bidAmount")
	}
	if v, err := w.BidAmount.Int64(); err == nil {
		return v, nil
	}
	f, err := w.BidAmount.Float64()
	if err != nil {
		return 0, fmt.Errorf("invalid bidAmount %q: %w", w.BidAmount, err)
	}
	return int64(math.Floor(f)), nil
}

func (w wireBid) toBid(fallbackItemID int64) (bid.Bid, error) {
	amount, err := w.amount()
	if err != nil {
		return bid.Bid{}, err
	}

	itemID := w.ItemID
	if itemID == 0 && w.Item != nil {
		itemID = w.Item.ID
	}
	if itemID == 0 {
		itemID = fallbackItemID
	}

	return bid.Bid{ItemID: itemID, Amount: amount, BidderID: w.CustomerID}, nil
}

type itemSnapshot struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	Description   string `json:"description"`
	StartingPrice int64  `json:"startingPrice"`
	CurrentBid    int64  `json:"currentBid"`
}

type customerSnapshot struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

// placeBidRequest is the body of POST /api/bid
type placeBidRequest struct {
	ItemID      int64            `json:"itemId"`
	BidAmount   int64            `json:"bidAmount"`
	CustomerID  int64            `json:"customerId"`
	ImageBase64 string           `json:"imageBase64"`
	Item        itemSnapshot     `json:"item"`
	Customer    customerSnapshot `json:"customer"`
}

func newPlaceBidRequest(req outbound.CommitRequest) placeBidRequest {
	body := placeBidRequest{
		ItemID:      req.Item.ID,
		BidAmount:   req.Amount,
		ImageBase64: req.Item.Image,
		Item: itemSnapshot{
			ID:            req.Item.ID,
			Name:          req.Item.Title,
			Description:   req.Item.Description,
			StartingPrice: req.Item.StartingPrice,
			CurrentBid:    req.CurrentBid,
		},
	}
	if req.Bidder != nil {
		body.CustomerID = req.Bidder.ID
		body.Customer = customerSnapshot{ID: req.Bidder.ID, Username: req.Bidder.Username}
	}
	return body
}

// errorMessage extracts {"message": "..."} from an error body. An empty
// result means the caller should fall back to the generic message.
func errorMessage(body []byte) string {
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	return payload.Message
}

// wireItem is a catalog item. The seller is either flattened into sellerId or
// nested under seller.
type wireItem struct {
	ID            int64             `json:"id"`
	Name          string            `json:"name"`
	Description   string            `json:"description"`
	StartingPrice int64             `json:"startingPrice"`
	ImageBase64   *string           `json:"imageBase64"`
	Status        shared.ItemStatus `json:"status"`
	CreatedAt     string            `json:"createdAt"`
	SellerID      *int64            `json:"sellerId,omitempty"`
	Seller        *struct {
		ID int64 `json:"id"`
	} `json:"seller,omitempty"`
}

func (w wireItem) toSellerItem() shared.SellerItem {
	item := shared.SellerItem{
		ID:            w.ID,
		Name:          w.Name,
		Description:   w.Description,
		StartingPrice: w.StartingPrice,
		ImageBase64:   w.ImageBase64,
		Status:        w.Status,
		CreatedAt:     w.CreatedAt,
	}
	switch {
	case w.SellerID != nil && *w.SellerID != 0:
		item.SellerID = *w.SellerID
	case w.Seller != nil:
		item.SellerID = w.Seller.ID
	}
	return item
}

// decodeItemList accepts either a bare array or {"data": [...]}
func decodeItemList(body []byte) ([]wireItem, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("empty body")
	}

	if trimmed[0] == '[' {
		var items []wireItem
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, err
		}
		return items, nil
	}

	var envelope struct {
		Data []wireItem `json:"data"`
	}
	if err := json.Unmarshal(trimmed, &envelope); err != nil {
		return nil, err
	}
	if envelope.Data == nil {
		return nil, fmt.Errorf("response has no data array")
	}
	return envelope.Data, nil
}
