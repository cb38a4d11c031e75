package bid

import (
	"time"

	"github.com/google/uuid"
)

// Bid is a bid as recorded by the ledger. Read-only on this side.
type Bid struct {
	ItemID   int64 `json:"itemId"`
	Amount   int64 `json:"bidAmount"`
	BidderID int64 `json:"customerId"`
}

// MaxAmount returns the highest amount among bids and false when there are
// none. Order and duplicates don't matter.
func MaxAmount(bids []Bid) (int64, bool) {
	if len(bids) == 0 {
		return 0, false
	}
	highest := bids[0].Amount
	for _, b := range bids[1:] {
		if b.Amount > highest {
			highest = b.Amount
		}
	}
	return highest, true
}

// Intent is a validated bid waiting for the bidder to confirm payment
type Intent struct {
	ID        uuid.UUID `json:"intent_id"`
	ItemID    int64     `json:"item_id"`
	Amount    int64     `json:"amount"`
	CreatedAt time.Time `json:"created_at"`
}

// NewIntent creates an intent for amount on itemID
func NewIntent(itemID, amount int64, now time.Time) *Intent {
	return &Intent{
		ID:        uuid.New(),
		ItemID:    itemID,
		Amount:    amount,
		CreatedAt: now,
	}
}
