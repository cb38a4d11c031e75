package inbound

import (
	"context"

	"troffee-bid-sync/internal/domain/auction"
	"troffee-bid-sync/internal/domain/bid"
	"troffee-bid-sync/internal/domain/shared"
	"troffee-bid-sync/internal/ports/outbound"
)

// BidSession defines the operations of one bidder watching one item
type BidSession interface {
	// Start acquires the poll and countdown schedules
	Start(ctx context.Context) error

	// Close releases everything Start acquired
	Close()

	// Reconcile polls the ledger once and merges the highest bid
	Reconcile(ctx context.Context)

	// SetDraft replaces the bidder's candidate amount
	SetDraft(amount int64)

	// SelectIncrement sets the draft to one of the quick-select amounts
	SelectIncrement(index int) error

	// Submit validates the draft and returns an intent awaiting confirmation
	Submit() (*bid.Intent, error)

	// Cancel abandons the pending intent
	Cancel()

	// Confirm commits the pending intent to the ledger
	Confirm(ctx context.Context) error

	// View returns the current snapshot
	View() outbound.BidView

	// Item returns the item being bid on
	Item() *auction.Item
}

// ItemStatusService defines the seller's read-only item status view
type ItemStatusService interface {
	// ListSellerItems returns the seller's items, optionally filtered by status
	ListSellerItems(ctx context.Context, req ListSellerItemsRequest) (*SellerItemsView, error)
}

// request to list a seller's items
type ListSellerItemsRequest struct {
	Seller *shared.Bidder     `json:"-"`
	Status *shared.ItemStatus `json:"status,omitempty"`
}

// SellerItemsView groups a seller's items for the status tabs
type SellerItemsView struct {
	Items  []shared.SellerItem       `json:"items"`
	Counts map[shared.ItemStatus]int `json:"counts"`
}
