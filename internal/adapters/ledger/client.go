package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"troffee-bid-sync/internal/config"
	"troffee-bid-sync/internal/domain/bid"
	"troffee-bid-sync/internal/domain/shared"
	"troffee-bid-sync/internal/ports/outbound"

	"github.com/rs/zerolog"
)

const (
	bidsByItemPath = "/api/bid/item/%d"
	placeBidPath   = "/api/bid"
	itemsPath      = "/api/item"

	maxErrorBody = 4 << 10
)

// Client talks to the bid ledger over its REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	credential string
	logger     zerolog.Logger
}

type ClientParams struct {
	Config     config.LedgerConfig
	HTTPClient *http.Client
	Logger     zerolog.Logger
}

// NewClient creates a new ledger client
func NewClient(params ClientParams) *Client {
	httpClient := params.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: params.Config.RequestTimeout}
	}

	return &Client{
		baseURL:    params.Config.BaseURL,
		httpClient: httpClient,
		logger:     params.Logger.With().Str("component", "ledger_client").Logger(),
	}
}

// WithCredential returns a client that forwards the bidder's session token.
// The underlying HTTP client is shared.
func (c *Client) WithCredential(credential string) *Client {
	clone := *c
	clone.credential = credential
	return &clone
}

// FetchBids returns every bid recorded for an item
func (c *Client) FetchBids(ctx context.Context, itemID int64) ([]bid.Bid, error) {
	body, err := c.get(ctx, fmt.Sprintf(bidsByItemPath, itemID), c.credential)
	if err != nil {
		return nil, fmt.Errorf("fetch bids for item %d: %w", itemID, err)
	}

	var wire []wireBid
	if err := json.Unmarshal(body, &wire); err != nil {
		return nil, fmt.Errorf("fetch bids for item %d: %w: %v", itemID, shared.ErrLedgerResponse, err)
	}

	bids := make([]bid.Bid, 0, len(wire))
	for _, w := range wire {
		b, err := w.toBid(itemID)
		if err != nil {
			c.logger.Warn().Err(err).Int64("item_id", itemID).Msg("Skipping malformed bid from ledger")
			continue
		}
		bids = append(bids, b)
	}

	c.logger.Debug().Int64("item_id", itemID).Int("count", len(bids)).Msg("Fetched bids from ledger")
	return bids, nil
}

// SubmitBid commits a bid. Any failure is returned as *shared.CommitError.
func (c *Client) SubmitBid(ctx context.Context, req outbound.CommitRequest) (*shared.CommitResult, error) {
	payload, err := json.Marshal(newPlaceBidRequest(req))
	if err != nil {
		return nil, &shared.CommitError{Err: fmt.Errorf("encode bid: %w", err)}
	}

	credential := c.credential
	if req.Bidder != nil && req.Bidder.Credential != "" {
		credential = req.Bidder.Credential
	}

	httpReq, err := c.newRequest(ctx, http.MethodPost, placeBidPath, bytes.NewReader(payload), credential)
	if err != nil {
		return nil, &shared.CommitError{Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.logger.Error().Err(err).Int64("item_id", req.Item.ID).Int64("amount", req.Amount).Msg("Bid commit request failed")
		return nil, &shared.CommitError{Err: fmt.Errorf("%w: %v", shared.ErrLedgerUnavailable, err)}
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		reason := errorMessage(body)
		c.logger.Warn().
			Int("status", resp.StatusCode).
			Str("reason", reason).
			Int64("item_id", req.Item.ID).
			Int64("amount", req.Amount).
			Msg("Ledger rejected bid")
		return nil, &shared.CommitError{
			Reason:   reason,
			Rejected: true,
			Err:      fmt.Errorf("ledger returned status %d", resp.StatusCode),
		}
	}

	result := &shared.CommitResult{ItemID: req.Item.ID, Amount: req.Amount}
	var confirmed wireBid
	if err := json.Unmarshal(body, &confirmed); err == nil {
		if amount, err := confirmed.amount(); err == nil && amount > 0 {
			result.Amount = amount
		}
	}

	c.logger.Info().
		Int64("item_id", req.Item.ID).
		Int64("amount", result.Amount).
		Dur("latency", time.Since(start)).
		Msg("Ledger accepted bid")
	return result, nil
}

// ListItems returns every listed item
func (c *Client) ListItems(ctx context.Context) ([]shared.SellerItem, error) {
	body, err := c.get(ctx, itemsPath, c.credential)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}

	wire, err := decodeItemList(body)
	if err != nil {
		return nil, fmt.Errorf("list items: %w: %v", shared.ErrLedgerResponse, err)
	}

	items := make([]shared.SellerItem, 0, len(wire))
	for _, w := range wire {
		items = append(items, w.toSellerItem())
	}
	return items, nil
}

func (c *Client) get(ctx context.Context, path, credential string) ([]byte, error) {
	req, err := c.newRequest(ctx, http.MethodGet, path, nil, credential)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrLedgerUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, fmt.Errorf("%w: status %d: %s", shared.ErrLedgerResponse, resp.StatusCode, string(body))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return body, nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader, credential string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if credential != "" {
		req.Header.Set("Authorization", "Bearer "+credential)
	}
	return req, nil
}
