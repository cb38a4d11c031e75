package outbound

import (
	"context"

	"troffee-bid-sync/internal/domain/auction"
	"troffee-bid-sync/internal/domain/bid"
	"troffee-bid-sync/internal/domain/shared"

	"github.com/google/uuid"
)

// CommitRequest is everything the ledger needs to record a bid
type CommitRequest struct {
	Item   *auction.Item
	Bidder *shared.Bidder
	Amount int64
	// CurrentBid is the bid the bidder saw when confirming
	CurrentBid int64
}

// BidLedger defines the read/write contract of the external bid ledger
type BidLedger interface {
	// FetchBids returns every bid recorded for an item, in no particular order
	FetchBids(ctx context.Context, itemID int64) ([]bid.Bid, error)

	// SubmitBid commits a bid. Failures are returned as *shared.CommitError.
	SubmitBid(ctx context.Context, req CommitRequest) (*shared.CommitResult, error)
}

// ItemCatalog defines the read-only item listing used by the seller view
type ItemCatalog interface {
	// ListItems returns every listed item
	ListItems(ctx context.Context) ([]shared.SellerItem, error)
}

// ReceiptRepository defines the journal of commit attempts
type ReceiptRepository interface {
	// Create records a receipt
	Create(ctx context.Context, receipt *shared.CommitReceipt) error

	// ListBySession returns the receipts of a bid session, oldest first
	ListBySession(ctx context.Context, sessionID uuid.UUID) ([]*shared.CommitReceipt, error)
}
