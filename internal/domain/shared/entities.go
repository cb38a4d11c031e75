package shared

import (
	"time"

	"github.com/google/uuid"
)

// Bidder is the signed-in user placing bids. Credential is the opaque session
// token handed to us by the auth layer and forwarded to the ledger as-is.
type Bidder struct {
	ID         int64  `json:"id"`
	Username   string `json:"username"`
	Credential string `json:"-"`
}

// ItemStatus is the moderation/sale status of a seller's item
type ItemStatus string

const (
	ItemStatusPending  ItemStatus = "PENDING"
	ItemStatusApproved ItemStatus = "APPROVED"
	ItemStatusRejected ItemStatus = "REJECTED"
	ItemStatusSold     ItemStatus = "SOLD"
	ItemStatusExpired  ItemStatus = "EXPIRED"
)

// ItemStatuses lists every status in display order
var ItemStatuses = []ItemStatus{
	ItemStatusPending,
	ItemStatusApproved,
	ItemStatusRejected,
	ItemStatusSold,
	ItemStatusExpired,
}

// Valid returns true if s is one of the known statuses
func (s ItemStatus) Valid() bool {
	for _, known := range ItemStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// SellerItem is an item as listed by the catalog for the seller view
type SellerItem struct {
	ID            int64      `json:"id"`
	Name          string     `json:"name"`
	Description   string     `json:"description"`
	StartingPrice int64      `json:"startingPrice"`
	ImageBase64   *string    `json:"imageBase64"`
	Status        ItemStatus `json:"status"`
	CreatedAt     string     `json:"createdAt"`
	SellerID      int64      `json:"sellerId"`
}

// ReceiptOutcome records how a commit attempt ended
type ReceiptOutcome string

const (
	OutcomeAccepted ReceiptOutcome = "accepted"
	OutcomeRejected ReceiptOutcome = "rejected"
	OutcomeFailed   ReceiptOutcome = "failed"
)

// CommitReceipt is a journal entry for one confirmed commit attempt
type CommitReceipt struct {
	ID        uuid.UUID      `json:"id"`
	SessionID uuid.UUID      `json:"session_id"`
	IntentID  uuid.UUID      `json:"intent_id"`
	ItemID    int64          `json:"item_id"`
	BidderID  int64          `json:"bidder_id"`
	Amount    int64          `json:"amount"`
	Outcome   ReceiptOutcome `json:"outcome"`
	Reason    string         `json:"reason,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}
