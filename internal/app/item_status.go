package app

import (
	"context"
	"fmt"

	"troffee-bid-sync/internal/domain/shared"
	"troffee-bid-sync/internal/ports/inbound"
	"troffee-bid-sync/internal/ports/outbound"

	"github.com/rs/zerolog"
)

// ItemStatusService implements the seller's item status view
type ItemStatusService struct {
	catalog outbound.ItemCatalog
	logger  zerolog.Logger
}

type ItemStatusServiceParams struct {
	Catalog outbound.ItemCatalog
	Logger  zerolog.Logger
}

// NewItemStatusService creates a new item status service
func NewItemStatusService(params ItemStatusServiceParams) *ItemStatusService {
	return &ItemStatusService{
		catalog: params.Catalog,
		logger:  params.Logger.With().Str("component", "item_status_service").Logger(),
	}
}

// ListSellerItems returns the items listed by the signed-in seller. Counts
// always cover every status so the tabs can be rendered even when filtered.
func (service *ItemStatusService) ListSellerItems(ctx context.Context, req inbound.ListSellerItemsRequest) (*inbound.SellerItemsView, error) {
	if req.Seller == nil {
		return nil, shared.ErrNotSignedIn
	}
	if req.Status != nil && !req.Status.Valid() {
		return nil, fmt.Errorf("unknown item status %q", *req.Status)
	}

	items, err := service.catalog.ListItems(ctx)
	if err != nil {
		service.logger.Error().Err(err).Int64("seller_id", req.Seller.ID).Msg("Failed to list items")
		return nil, err
	}

	view := &inbound.SellerItemsView{
		Items:  []shared.SellerItem{},
		Counts: make(map[shared.ItemStatus]int, len(shared.ItemStatuses)),
	}
	for _, status := range shared.ItemStatuses {
		view.Counts[status] = 0
	}

	for _, item := range items {
		if item.SellerID != req.Seller.ID {
			continue
		}
		view.Counts[item.Status]++
		if req.Status != nil && item.Status != *req.Status {
			continue
		}
		view.Items = append(view.Items, item)
	}

	service.logger.Debug().
		Int64("seller_id", req.Seller.ID).
		Int("total", len(items)).
		Int("matched", len(view.Items)).
		Msg("Listed seller items")
	return view, nil
}
