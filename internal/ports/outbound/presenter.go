package outbound

import (
	"troffee-bid-sync/internal/domain/auction"
	"troffee-bid-sync/internal/domain/bid"
	"troffee-bid-sync/internal/domain/shared"
)

// BidView is what the bidding panel renders
type BidView struct {
	ItemID        int64           `json:"item_id"`
	StartingPrice int64           `json:"starting_price"`
	CurrentBid    int64           `json:"current_bid"`
	DraftBid      int64           `json:"draft_bid"`
	MinBid        int64           `json:"min_bid"`
	BidIncrement  int64           `json:"bid_increment"`
	Increments    []int64         `json:"increments"`
	Clock         auction.Reading `json:"clock"`
	TimeRemaining string          `json:"time_remaining"`
	CanSubmit     bool            `json:"can_submit"`
	Pending       *bid.Intent     `json:"pending,omitempty"`
	Committing    bool            `json:"committing"`
}

// Presenter receives session output for the bidder's screen
type Presenter interface {
	// ShowState renders a fresh snapshot
	ShowState(view BidView)

	// ShowIntent asks the bidder to confirm payment for a validated bid
	ShowIntent(intent bid.Intent)

	// ShowNotice surfaces a success or error toast
	ShowNotice(notice shared.Notice)

	// ShowEnded announces that the auction closed. Called once per session.
	ShowEnded(view BidView)
}
